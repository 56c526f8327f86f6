package redis

import (
	"context"

	"github.com/Aleph-Alpha/trackindex/v1/observability"
	"github.com/Aleph-Alpha/trackindex/v1/pipeline"
	"go.uber.org/fx"
)

// FXModule provides the Redis client and registers its lifecycle.
//
// Usage:
//
//	app := fx.New(
//	    redis.FXModule,
//	    redis.StoreFXModule,
//	    // other modules...
//	)
var FXModule = fx.Module("redis",
	fx.Provide(
		NewClientWithDI,
	),
	fx.Invoke(RegisterRedisLifecycle),
)

// StoreFXModule binds the Redis step store as pipeline.Store and the shared
// sliding log as pipeline.Throttle. It requires FXModule and a pipeline.Config.
var StoreFXModule = fx.Module("redis-store",
	fx.Provide(
		fx.Annotate(NewStepStore, fx.As(new(pipeline.Store))),
		func(r *RedisClient, cfg pipeline.Config) pipeline.Throttle {
			return NewThrottle(r, "attempts", cfg.ThrottleLimit, cfg.ThrottleWindow)
		},
	),
)

// RedisParams groups the dependencies needed to create a Redis client
type RedisParams struct {
	fx.In

	Config   Config
	Logger   Logger                 `optional:"true"`
	Observer observability.Observer `optional:"true"`
}

// NewClientWithDI creates a new Redis client from injected dependencies.
func NewClientWithDI(params RedisParams) (*RedisClient, error) {
	client, err := NewClient(params.Config)
	if err != nil {
		return nil, err
	}
	if params.Logger != nil {
		client.WithLogger(params.Logger)
	}
	if params.Observer != nil {
		client.WithObserver(params.Observer)
	}
	return client, nil
}

// RegisterRedisLifecycle pings Redis on start and closes the client on stop.
func RegisterRedisLifecycle(lc fx.Lifecycle, client *RedisClient) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx); err != nil {
				client.warn("Failed to ping Redis on startup", err, nil)
				return err
			}
			client.info("Redis client started and healthy", map[string]interface{}{
				"host": client.cfg.Host,
				"db":   client.cfg.DB,
			})
			return nil
		},
		OnStop: func(ctx context.Context) error {
			client.info("Shutting down Redis client", nil)
			return client.Close()
		},
	})
}

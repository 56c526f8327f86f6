package postgres

import (
	"context"
	"sync"

	"github.com/Aleph-Alpha/trackindex/v1/observability"
	"github.com/Aleph-Alpha/trackindex/v1/pipeline"
	"go.uber.org/fx"
)

// FXModule is an fx module that provides the Postgres connection, binds the step
// store as pipeline.Store and registers the connection lifecycle.
//
// Example usage with fx:
//
//	app := fx.New(
//	    postgres.FXModule,
//	    fx.Provide(
//	        func() postgres.Config {
//	            return loadPostgresConfig() // Your config loading function
//	        },
//	    ),
//	)
var FXModule = fx.Module("postgres",
	fx.Provide(
		NewPostgresClientWithDI,
		fx.Annotate(NewStepStore, fx.As(new(pipeline.Store))),
	),
	fx.Invoke(RegisterPostgresLifecycle),
)

// PostgresParams groups the dependencies needed to create a Postgres client via
// dependency injection.
type PostgresParams struct {
	fx.In

	Config   Config
	Logger   Logger                 `optional:"true"`
	Observer observability.Observer `optional:"true"`
}

// NewPostgresClientWithDI creates a new Postgres client from injected dependencies.
// When Config.AutoMigrate is set the step store tables are migrated before the
// client is returned.
func NewPostgresClientWithDI(params PostgresParams) (*Postgres, error) {
	client, err := NewPostgres(params.Config)
	if err != nil {
		return nil, err
	}
	if params.Logger != nil {
		client.WithLogger(params.Logger)
	}
	if params.Observer != nil {
		client.WithObserver(params.Observer)
	}
	if params.Config.AutoMigrate {
		if err := client.Migrate(); err != nil {
			_ = client.GracefulShutdown()
			return nil, err
		}
	}
	return client, nil
}

// PostgresLifeCycleParams groups the dependencies needed for Postgres lifecycle management.
type PostgresLifeCycleParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Postgres  *Postgres
}

// RegisterPostgresLifecycle registers lifecycle hooks for the Postgres database component.
// It sets up:
// 1. Connection monitoring on the application starts
// 2. Automatic reconnection mechanism on application start
// 3. Graceful shutdown of database connections on application stop
//
// The monitoring goroutines run on a context that is cancelled on stop, not on the
// start hook's context.
func RegisterPostgresLifecycle(params PostgresLifeCycleParams) {
	wg := &sync.WaitGroup{}
	ctx, cancel := context.WithCancel(context.Background())
	params.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			wg.Add(2)
			go func() {
				defer wg.Done()
				params.Postgres.MonitorConnection(ctx)
			}()
			go func() {
				defer wg.Done()
				params.Postgres.RetryConnection(ctx)
			}()
			params.Postgres.log().Info("Postgres step store started", nil, map[string]interface{}{
				"host": params.Postgres.cfg.Connection.Host,
				"db":   params.Postgres.cfg.Connection.DbName,
			})
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			wg.Wait()
			return params.Postgres.GracefulShutdown()
		},
	})
}

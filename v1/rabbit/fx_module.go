package rabbit

import (
	"context"
	"sync"

	"github.com/Aleph-Alpha/trackindex/v1/events"
	"github.com/Aleph-Alpha/trackindex/v1/observability"
	"go.uber.org/fx"
)

// FXModule is an fx.Module that provides and configures the RabbitMQ client.
//
// Usage:
//
//	app := fx.New(
//	    rabbit.FXModule,
//	    rabbit.PublisherFXModule,
//	    // other modules...
//	)
var FXModule = fx.Module("rabbit",
	fx.Provide(
		NewClientWithDI,
	),
	fx.Invoke(RegisterRabbitLifecycle),
)

// PublisherFXModule binds the client as events.Publisher. It requires FXModule.
var PublisherFXModule = fx.Module("rabbit-publisher",
	fx.Provide(func(r *RabbitClient) events.Publisher { return r }),
)

// RabbitParams groups the dependencies needed to create a Rabbit client
type RabbitParams struct {
	fx.In

	Config   Config
	Logger   Logger                 `optional:"true"`
	Observer observability.Observer `optional:"true"`
	Carrier  Carrier                `optional:"true"`
}

// NewClientWithDI creates a new RabbitMQ client using dependency injection.
//
// Example usage with fx:
//
//	app := fx.New(
//	    rabbit.FXModule,
//	    logger.FXModule,  // Optional: provides logger
//	    fx.Provide(
//	        func() rabbit.Config {
//	            return loadRabbitConfig() // Your config loading function
//	        },
//	    ),
//	)
func NewClientWithDI(params RabbitParams) (*RabbitClient, error) {
	client, err := NewClient(params.Config)
	if err != nil {
		return nil, err
	}

	if params.Logger != nil {
		client.logger = params.Logger
	}
	if params.Observer != nil {
		client.observer = params.Observer
	}
	if params.Carrier != nil {
		client.carrier = params.Carrier
	}

	return client, nil
}

// RegisterRabbitLifecycle starts the reconnection loop on start and shuts the
// client down on stop.
func RegisterRabbitLifecycle(lc fx.Lifecycle, client *RabbitClient) {
	wg := &sync.WaitGroup{}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			wg.Add(1)
			go func() {
				defer wg.Done()
				client.RetryConnection()
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			client.GracefulShutdown()
			wg.Wait()
			return nil
		},
	})
}

// TriggerConsumerParams groups the dependencies of a trigger consumer.
type TriggerConsumerParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Client    *RabbitClient
	Handler   events.TriggerHandler
}

// RegisterTriggerConsumer runs Consume with the injected handler for the lifetime
// of the application.
func RegisterTriggerConsumer(p TriggerConsumerParams) {
	var wg sync.WaitGroup
	ctx, cancel := context.WithCancel(context.Background())

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := p.Client.Consume(ctx, p.Handler); err != nil {
					p.Client.logError(ctx, "RabbitMQ trigger consumer stopped", err, map[string]interface{}{
						"queue": p.Client.cfg.Channel.QueueName,
					})
				}
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			wg.Wait()
			return nil
		},
	})
}

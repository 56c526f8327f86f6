package kafka

import (
	"context"
	"sync"

	"github.com/Aleph-Alpha/trackindex/v1/events"
	"github.com/Aleph-Alpha/trackindex/v1/observability"
	"go.uber.org/fx"
)

// FXModule provides *KafkaClient and closes it on stop.
//
// Usage:
//
//	app := fx.New(
//	    kafka.FXModule,
//	    fx.Provide(func() kafka.Config { return cfg.Kafka }),
//	)
var FXModule = fx.Module("kafka",
	fx.Provide(NewClientWithDI),
	fx.Invoke(RegisterKafkaLifecycle),
)

// PublisherFXModule binds the client as events.Publisher. It requires FXModule.
var PublisherFXModule = fx.Module("kafka-publisher",
	fx.Provide(func(k *KafkaClient) events.Publisher { return k }),
)

// KafkaParams groups the dependencies needed to create a Kafka client.
type KafkaParams struct {
	fx.In

	Config   Config
	Logger   Logger                 `optional:"true"`
	Observer observability.Observer `optional:"true"`
	Carrier  Carrier                `optional:"true"`
}

// NewClientWithDI creates a Kafka client from injected dependencies.
func NewClientWithDI(params KafkaParams) (*KafkaClient, error) {
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
	if params.Carrier != nil {
		client.WithCarrier(params.Carrier)
	}
	return client, nil
}

// RegisterKafkaLifecycle closes the client on stop.
func RegisterKafkaLifecycle(lc fx.Lifecycle, client *KafkaClient) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
}

// TriggerConsumerParams groups the dependencies of a trigger consumer.
type TriggerConsumerParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Client    *KafkaClient
	Handler   events.TriggerHandler
}

// RegisterTriggerConsumer runs Consume with the injected handler for the lifetime
// of the application. Invoke it only when the client has a trigger topic.
func RegisterTriggerConsumer(p TriggerConsumerParams) {
	var wg sync.WaitGroup
	ctx, cancel := context.WithCancel(context.Background())

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := p.Client.Consume(ctx, p.Handler); err != nil && p.Client.logger != nil {
					p.Client.logger.Error("Kafka trigger consumer stopped", err, map[string]interface{}{
						"topic": p.Client.cfg.TriggerTopic,
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

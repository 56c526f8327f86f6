// Package rabbit connects the ingestion pipeline to RabbitMQ.
//
// The client declares a durable exchange and publishes one persistent completion
// event per terminal run to it, waiting for the broker's publisher confirm. When
// Channel.QueueName is set, a durable trigger queue is declared, bound with
// Channel.BindingKey, and consumed by Consume. With DeadLetter.Ttl set, triggers
// that sit in the queue longer than the TTL move to the dead-letter queue.
//
// Trigger handling:
//   - a malformed body is logged and acknowledged
//   - a handler error is retried every DelayToReconnect milliseconds
//   - a trigger still unhandled at shutdown is requeued
//
// The connection is watched by RetryConnection, which re-dials and re-declares
// the topology when the broker closes it; Consume then re-establishes the
// consumer.
//
// Basic Usage:
//
//	client, err := rabbit.NewClient(rabbit.Config{
//		Connection: rabbit.Connection{Host: "localhost", User: "guest", Password: "guest"},
//		Channel: rabbit.Channel{
//			ExchangeName: "tracks",
//			RoutingKey:   "track.ingested",
//			QueueName:    "track-ingest-requests",
//			BindingKey:   "track.ingest",
//		},
//	})
//	if err != nil {
//		return err
//	}
//	defer client.GracefulShutdown()
//	go client.RetryConnection()
//
//	err = client.Publish(ctx, events.CompletionEvent{ISRC: "USRC17607839", Status: events.StatusCompleted})
//
// FX Integration:
//
//	app := fx.New(
//		rabbit.FXModule,
//		rabbit.PublisherFXModule,
//		fx.Invoke(rabbit.RegisterTriggerConsumer),
//	)
package rabbit

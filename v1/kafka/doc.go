// Package kafka connects the ingestion pipeline to Apache Kafka.
//
// A client publishes completion events to EventsTopic and, when TriggerTopic is
// set, consumes ingestion triggers from it within GroupID.
//
// Completion events are JSON, keyed by ISRC, so all events of one recording land
// on one partition in order:
//
//	{"isrc":"USRC17607839","runId":"...","status":"Completed","occurredAt":"..."}
//
// Triggers are JSON objects {"isrc": "...", "forceReprocess": false}. A malformed
// trigger is logged and committed. A trigger whose handler fails is retried after
// RetryDelay without committing, so every well-formed trigger reaches the handler
// at least once.
//
// With a Carrier (such as *tracer.Tracer) the trace context of the publisher is
// injected into message headers and extracted into the handler's context.
//
// Basic Usage:
//
//	client, err := kafka.NewClient(kafka.Config{
//		Brokers:      []string{"localhost:9092"},
//		EventsTopic:  "track-ingested",
//		TriggerTopic: "track-ingest-requests",
//		GroupID:      "trackindexer",
//	})
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	go client.Consume(ctx, func(ctx context.Context, t events.Trigger) error {
//		_, err := orchestrator.Submit(ctx, pipeline.Request{ISRC: t.ISRC, ForceReprocess: t.ForceReprocess})
//		return err
//	})
//
// FX Integration:
//
//	app := fx.New(
//		kafka.FXModule,
//		kafka.PublisherFXModule,
//		fx.Invoke(kafka.RegisterTriggerConsumer),
//	)
package kafka

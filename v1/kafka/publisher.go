package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Aleph-Alpha/trackindex/v1/events"
	"github.com/segmentio/kafka-go"
)

// ErrNoEventsTopic is returned by Publish on a client without an events topic.
var ErrNoEventsTopic = errors.New("kafka: no events topic configured")

const headerContentType = "content-type"

// Publish writes e to the events topic, keyed by ISRC so events of one track stay
// ordered. It implements events.Publisher.
func (k *KafkaClient) Publish(ctx context.Context, e events.CompletionEvent) error {
	if k.writer == nil {
		return ErrNoEventsTopic
	}
	start := time.Now()

	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("kafka: encode event: %w", err)
	}

	msg := kafka.Message{
		Key:     []byte(e.Key()),
		Value:   body,
		Headers: k.headers(ctx),
		Time:    e.OccurredAt,
	}
	err = k.writer.WriteMessages(ctx, msg)
	k.observeOperation("produce", k.cfg.EventsTopic, e.Status, time.Since(start), err, int64(len(body)), map[string]interface{}{
		"isrc":   e.ISRC,
		"run_id": e.RunID,
	})
	if err != nil {
		return fmt.Errorf("kafka: publish %s: %w", e.ISRC, err)
	}
	return nil
}

func (k *KafkaClient) headers(ctx context.Context) []kafka.Header {
	headers := []kafka.Header{{Key: headerContentType, Value: []byte("application/json")}}
	if k.carrier == nil {
		return headers
	}
	for key, value := range k.carrier.GetCarrier(ctx) {
		headers = append(headers, kafka.Header{Key: key, Value: []byte(value)})
	}
	return headers
}

var _ events.Publisher = (*KafkaClient)(nil)

package rabbit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Aleph-Alpha/trackindex/v1/events"
	amqp "github.com/rabbitmq/amqp091-go"
)

var _ events.Publisher = (*RabbitClient)(nil)

// Publish sends e to the configured exchange as a persistent message and waits
// for the broker's confirm. The trace context travels in the headers when a
// Carrier is set.
func (rb *RabbitClient) Publish(ctx context.Context, e events.CompletionEvent) error {
	start := time.Now()
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("rabbit: encode event: %w", err)
	}

	err = rb.publish(ctx, amqp.Publishing{
		Headers:      rb.headers(ctx),
		ContentType:  rb.cfg.Channel.ContentType,
		DeliveryMode: amqp.Persistent,
		MessageId:    e.RunID,
		Timestamp:    e.OccurredAt,
		Type:         e.Status,
		Body:         body,
	})
	rb.observeOperation("produce", rb.cfg.Channel.ExchangeName, rb.cfg.Channel.RoutingKey, time.Since(start), err, int64(len(body)))
	if err != nil {
		return fmt.Errorf("rabbit: publish %s: %w", e.ISRC, err)
	}
	return nil
}

func (rb *RabbitClient) publish(ctx context.Context, msg amqp.Publishing) error {
	rb.mu.RLock()
	ch := rb.channel
	rb.mu.RUnlock()
	if ch == nil || ch.IsClosed() {
		return ErrChannelClosed
	}

	confirm, err := ch.PublishWithDeferredConfirmWithContext(ctx,
		rb.cfg.Channel.ExchangeName,
		rb.cfg.Channel.RoutingKey,
		false, // mandatory
		false, // immediate
		msg,
	)
	if err != nil {
		return err
	}
	ok, err := confirm.WaitContext(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return ErrMessageNacked
	}
	return nil
}

func (rb *RabbitClient) headers(ctx context.Context) amqp.Table {
	if rb.carrier == nil {
		return nil
	}
	carrier := rb.carrier.GetCarrier(ctx)
	if len(carrier) == 0 {
		return nil
	}
	headers := make(amqp.Table, len(carrier))
	for k, v := range carrier {
		headers[k] = v
	}
	return headers
}

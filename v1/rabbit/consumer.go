package rabbit

import (
	"context"
	"time"

	"github.com/Aleph-Alpha/trackindex/v1/events"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Consume delivers triggers from the configured queue to handle until ctx is done
// or the client shuts down. The consumer is re-established after reconnection.
//
// Malformed triggers are logged and acknowledged. A failing handler is retried
// every DelayToReconnect milliseconds; a trigger still unhandled at shutdown is
// requeued.
func (rb *RabbitClient) Consume(ctx context.Context, handle events.TriggerHandler) error {
	queueName := rb.cfg.Channel.QueueName
	if queueName == "" {
		return ErrNoQueue
	}

	for {
		select {
		case <-rb.shutdownSignal:
			return nil
		case <-ctx.Done():
			return nil
		default:
		}

		rb.mu.RLock()
		ch := rb.channel
		rb.mu.RUnlock()

		msgs, err := ch.Consume(
			queueName,
			"",    // consumer
			false, // autoAck
			false, // exclusive
			false, // noLocal
			false, // noWait
			nil,   // args
		)
		if err != nil {
			rb.logError(ctx, "Failed to establish consumer", err, map[string]interface{}{
				"queue": queueName,
			})
			if !rb.sleep(ctx, rb.cfg.retryDelay()) {
				return nil
			}
			continue
		}

		if !rb.drain(ctx, msgs, handle) {
			return nil
		}
	}
}

// drain handles deliveries until msgs closes, returning true, or until the
// consumer must stop, returning false.
func (rb *RabbitClient) drain(ctx context.Context, msgs <-chan amqp.Delivery, handle events.TriggerHandler) bool {
	for {
		select {
		case <-ctx.Done():
			return false
		case <-rb.shutdownSignal:
			return false
		case d, ok := <-msgs:
			if !ok {
				return true
			}
			if !rb.handleDelivery(ctx, d, handle) {
				return false
			}
		}
	}
}

// handleDelivery acknowledges d once it is handled or found malformed. It
// returns false when ctx ended before the handler succeeded.
func (rb *RabbitClient) handleDelivery(ctx context.Context, d amqp.Delivery, handle events.TriggerHandler) bool {
	start := time.Now()
	fields := map[string]interface{}{
		"queue":        rb.cfg.Channel.QueueName,
		"delivery_tag": d.DeliveryTag,
	}

	trigger, err := events.DecodeTrigger(d.Body)
	rb.observeOperation("consume", rb.cfg.Channel.QueueName, "", time.Since(start), err, int64(len(d.Body)))
	if err != nil {
		rb.logWarn(ctx, "Dropping malformed trigger", err, fields)
		rb.ack(ctx, d, fields)
		return true
	}
	fields["isrc"] = trigger.ISRC

	hctx := rb.contextFromHeaders(ctx, d.Headers)
	for {
		err := handle(hctx, trigger)
		if err == nil {
			rb.ack(ctx, d, fields)
			return true
		}
		rb.logWarn(ctx, "Trigger handler failed, retrying", err, fields)

		if !rb.sleep(ctx, rb.cfg.retryDelay()) {
			if err := d.Nack(false, true); err != nil {
				rb.logWarn(ctx, "Failed to requeue trigger", err, fields)
			}
			return false
		}
	}
}

func (rb *RabbitClient) ack(ctx context.Context, d amqp.Delivery, fields map[string]interface{}) {
	if err := d.Ack(false); err != nil {
		rb.logWarn(ctx, "Failed to ack trigger", err, fields)
	}
}

// sleep waits for d and reports whether the consumer should continue.
func (rb *RabbitClient) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-rb.shutdownSignal:
		return false
	case <-timer.C:
		return true
	}
}

func (rb *RabbitClient) contextFromHeaders(ctx context.Context, headers amqp.Table) context.Context {
	if rb.carrier == nil || len(headers) == 0 {
		return ctx
	}
	carrier := make(map[string]string, len(headers))
	for k, v := range headers {
		if s, ok := v.(string); ok {
			carrier[k] = s
		}
	}
	return rb.carrier.SetCarrierOnContext(ctx, carrier)
}

package kafka

import (
	"context"
	"errors"
	"time"

	"github.com/Aleph-Alpha/trackindex/v1/events"
	"github.com/segmentio/kafka-go"
)

// ErrNoTriggerTopic is returned by Consume on a client without a trigger topic.
var ErrNoTriggerTopic = errors.New("kafka: no trigger topic configured")

// Consume reads triggers until ctx is done and passes each to handle. Malformed
// payloads are logged and committed. A handler error leaves the message
// uncommitted and retries it after RetryDelay, so delivery is at least once.
func (k *KafkaClient) Consume(ctx context.Context, handle events.TriggerHandler) error {
	if k.reader == nil {
		return ErrNoTriggerTopic
	}

	for {
		msg, err := k.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		if err := k.handle(ctx, msg, handle); err != nil {
			// Only a cancelled context ends handling early.
			return nil
		}

		start := time.Now()
		err = k.reader.CommitMessages(ctx, msg)
		k.observeOperation("commit", msg.Topic, "", time.Since(start), err, 0, map[string]interface{}{
			"partition": msg.Partition,
			"offset":    msg.Offset,
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

// handle delivers one message, retrying the handler until it succeeds or ctx is
// done. It returns ctx.Err() in the latter case.
func (k *KafkaClient) handle(ctx context.Context, msg kafka.Message, handle events.TriggerHandler) error {
	start := time.Now()
	fields := map[string]interface{}{
		"topic":     msg.Topic,
		"partition": msg.Partition,
		"offset":    msg.Offset,
	}

	trigger, err := events.DecodeTrigger(msg.Value)
	k.observeOperation("consume", msg.Topic, "", time.Since(start), err, int64(len(msg.Value)), fields)
	if err != nil {
		k.warn("Dropping malformed trigger", err, fields)
		return nil
	}
	fields["isrc"] = trigger.ISRC

	ctx = k.contextFromHeaders(ctx, msg.Headers)
	for {
		err := handle(ctx, trigger)
		if err == nil {
			return nil
		}
		k.warn("Trigger handler failed, retrying", err, fields)

		timer := time.NewTimer(k.cfg.RetryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (k *KafkaClient) contextFromHeaders(ctx context.Context, headers []kafka.Header) context.Context {
	if k.carrier == nil || len(headers) == 0 {
		return ctx
	}
	carrier := make(map[string]string, len(headers))
	for _, h := range headers {
		carrier[h.Key] = string(h.Value)
	}
	return k.carrier.SetCarrierOnContext(ctx, carrier)
}

func (k *KafkaClient) warn(msg string, err error, fields map[string]interface{}) {
	if k.logger != nil {
		k.logger.Warn(msg, err, fields)
	}
}

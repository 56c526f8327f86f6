package rabbit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Aleph-Alpha/trackindex/v1/events"
	"github.com/Aleph-Alpha/trackindex/v1/observability"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	mu         sync.Mutex
	operations []observability.OperationContext
}

func (r *recordingObserver) ObserveOperation(ctx observability.OperationContext) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.operations = append(r.operations, ctx)
}

func (r *recordingObserver) snapshot() []observability.OperationContext {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]observability.OperationContext{}, r.operations...)
}

func TestObservePublishWithoutChannel(t *testing.T) {
	obs := &recordingObserver{}
	rb := newTestClient().WithObserver(obs)
	rb.cfg.Channel.ExchangeName = "track-events"
	rb.cfg.Channel.RoutingKey = "indexed"

	err := rb.Publish(context.Background(), events.CompletionEvent{
		ISRC: "USRC17607839", RunID: "r1", Status: "Completed", OccurredAt: time.Now(),
	})
	require.ErrorIs(t, err, ErrChannelClosed)

	ops := obs.snapshot()
	require.Len(t, ops, 1)
	assert.Equal(t, "rabbit", ops[0].Component)
	assert.Equal(t, "produce", ops[0].Operation)
	assert.Equal(t, "track-events", ops[0].Resource)
	assert.Equal(t, "indexed", ops[0].SubResource)
	assert.ErrorIs(t, ops[0].Error, ErrChannelClosed)
	assert.Positive(t, ops[0].Size)
}

func TestObserveConsume(t *testing.T) {
	obs := &recordingObserver{}
	rb := newTestClient().WithObserver(obs)
	acks := &ackRecorder{}

	body := []byte(`{"isrc":"USRC17607839","forceReprocess":true}`)
	rb.handleDelivery(context.Background(), amqp.Delivery{Acknowledger: acks, DeliveryTag: 1, Body: body},
		func(context.Context, events.Trigger) error { return nil })
	rb.handleDelivery(context.Background(), amqp.Delivery{Acknowledger: acks, DeliveryTag: 2, Body: []byte(`not json`)},
		func(context.Context, events.Trigger) error { return nil })

	ops := obs.snapshot()
	require.Len(t, ops, 2)
	assert.Equal(t, "consume", ops[0].Operation)
	assert.Equal(t, "triggers", ops[0].Resource)
	assert.EqualValues(t, len(body), ops[0].Size)
	assert.NoError(t, ops[0].Error)
	assert.ErrorIs(t, ops[1].Error, events.ErrMalformedTrigger)
	assert.Equal(t, []uint64{1, 2}, acks.acked)
}

func TestObserveWithoutObserver(t *testing.T) {
	rb := newTestClient()
	assert.NotPanics(t, func() {
		rb.observeOperation("produce", "track-events", "indexed", time.Millisecond, nil, 10)
	})
}

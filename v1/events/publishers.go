package events

import (
	"context"
	"errors"
	"sync"
)

// Logger is the subset of the logger package used by LogPublisher.
type Logger interface {
	Info(msg string, err error, fields ...map[string]interface{})
	Warn(msg string, err error, fields ...map[string]interface{})
}

// LogPublisher writes events to the log. It is the publisher used when no broker is
// configured.
type LogPublisher struct {
	Logger Logger
}

func (p LogPublisher) Publish(ctx context.Context, e CompletionEvent) error {
	fields := map[string]interface{}{
		"isrc":   e.ISRC,
		"run_id": e.RunID,
		"status": e.Status,
	}
	if e.Status == StatusFailed {
		fields["error_kind"] = e.ErrorKind
		p.Logger.Warn("Ingestion failed", errors.New(e.Error), fields)
		return nil
	}
	p.Logger.Info("Ingestion completed", nil, fields)
	return nil
}

// MemoryPublisher records events in memory.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []CompletionEvent
	err    error
}

// NewMemoryPublisher returns an empty recorder.
func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

func (p *MemoryPublisher) Publish(ctx context.Context, e CompletionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

// FailWith makes every later Publish return err. A nil err restores delivery.
func (p *MemoryPublisher) FailWith(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

// Events returns a copy of the recorded events in publish order.
func (p *MemoryPublisher) Events() []CompletionEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]CompletionEvent, len(p.events))
	copy(out, p.events)
	return out
}

// Fanout publishes to every publisher and joins their errors.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, e CompletionEvent) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

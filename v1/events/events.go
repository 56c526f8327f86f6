// Package events defines the messages exchanged with the systems around the
// ingestion pipeline: triggers coming in, completion events going out.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Terminal statuses carried by a CompletionEvent.
const (
	StatusCompleted = "Completed"
	StatusFailed    = "Failed"
)

// ErrMalformedTrigger is returned by DecodeTrigger for payloads that cannot be
// ingested.
var ErrMalformedTrigger = errors.New("malformed ingestion trigger")

// Trigger requests the ingestion of one recording.
type Trigger struct {
	ISRC           string `json:"isrc"`
	ForceReprocess bool   `json:"forceReprocess,omitempty"`
}

// DecodeTrigger parses a JSON trigger. The ISRC is only checked for presence; its
// format is validated by the pipeline, which reports bad identifiers as failed runs.
func DecodeTrigger(data []byte) (Trigger, error) {
	var t Trigger
	if err := json.Unmarshal(data, &t); err != nil {
		return Trigger{}, fmt.Errorf("%w: %v", ErrMalformedTrigger, err)
	}
	t.ISRC = strings.TrimSpace(t.ISRC)
	if t.ISRC == "" {
		return Trigger{}, fmt.Errorf("%w: missing isrc", ErrMalformedTrigger)
	}
	return t, nil
}

// CompletionEvent reports a run reaching a terminal status.
type CompletionEvent struct {
	ISRC       string    `json:"isrc"`
	RunID      string    `json:"runId"`
	Status     string    `json:"status"`
	ErrorKind  string    `json:"errorKind,omitempty"`
	Error      string    `json:"error,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Key is the partitioning key of the event.
func (e CompletionEvent) Key() string { return e.ISRC }

// Publisher delivers completion events.
type Publisher interface {
	Publish(ctx context.Context, event CompletionEvent) error
}

// TriggerHandler receives decoded triggers from a consumer.
type TriggerHandler func(ctx context.Context, trigger Trigger) error

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/Aleph-Alpha/trackindex/v1/adapter"
	"github.com/Aleph-Alpha/trackindex/v1/isrc"
	"github.com/Aleph-Alpha/trackindex/v1/track"
	"github.com/Aleph-Alpha/trackindex/v1/vectordb"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	_, invalidISRC := isrc.Normalize("bad")

	tests := []struct {
		name      string
		err       error
		kind      ErrorKind
		retryable bool
	}{
		{name: "invalid isrc", err: invalidISRC, kind: KindValidation},
		{
			name: "document validation",
			err:  fmt.Errorf("StoreDocument: %w", &track.ValidationError{Field: "title", Reason: "required"}),
			kind: KindValidation,
		},
		{
			name:      "rate limited",
			err:       fmt.Errorf("FetchLyrics: %w", adapter.FromStatus("lyrics", 429, "", 0)),
			kind:      KindRateLimited,
			retryable: true,
		},
		{
			name:      "server error",
			err:       adapter.FromStatus("interpretation", 503, "", 0),
			kind:      KindAdapter,
			retryable: true,
		},
		{name: "unauthorized", err: adapter.FromStatus("embedding", 401, "", 0), kind: KindAdapter},
		{name: "not found", err: adapter.FromStatus("lyrics", 404, "", 0), kind: KindAdapter},
		{name: "schema", err: adapter.Schema("embedding", errors.New("dimension 3")), kind: KindAdapter},
		{
			name:      "transport",
			err:       adapter.Transport("audiofeatures", errors.New("connection refused")),
			kind:      KindAdapter,
			retryable: true,
		},
		{
			name:      "index write",
			err:       &vectordb.IndexWriteError{Op: "upsert", Err: errors.New("unavailable")},
			kind:      KindIndexWrite,
			retryable: true,
		},
		{
			name: "index schema",
			err:  &vectordb.IndexWriteError{Op: "upsert", Schema: true, Err: errors.New("dimension")},
			kind: KindIndexSchema,
		},
		{
			name:      "step store failure",
			err:       fmt.Errorf("FetchLyrics: %w", transient("record step", errors.New("redis down"))),
			kind:      KindInternal,
			retryable: true,
		},
		{name: "deadline", err: fmt.Errorf("embed: %w", context.DeadlineExceeded), kind: KindInternal, retryable: true},
		{name: "unknown", err: errors.New("boom"), kind: KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, retryable := Classify(tt.err)
			assert.Equal(t, tt.kind, kind)
			assert.Equal(t, tt.retryable, retryable)
		})
	}

	kind, retryable := Classify(nil)
	assert.Empty(t, kind)
	assert.False(t, retryable)
}

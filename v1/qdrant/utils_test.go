package qdrant

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Aleph-Alpha/trackindex/v1/observability"
	"github.com/Aleph-Alpha/trackindex/v1/vectordb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"unavailable", status.Error(codes.Unavailable, "down"), true},
		{"deadline", status.Error(codes.DeadlineExceeded, "slow"), true},
		{"exhausted", status.Error(codes.ResourceExhausted, "busy"), true},
		{"plain timeout", context.DeadlineExceeded, true},
		{"invalid argument", status.Error(codes.InvalidArgument, "wrong vector size"), false},
		{"wrapped invalid argument", fmt.Errorf("upsert: %w", status.Error(codes.InvalidArgument, "bad")), false},
		{"missing collection", status.Error(codes.NotFound, "no collection"), false},
		{"unauthenticated", status.Error(codes.Unauthenticated, "key"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := writeError("upsert", tt.err)

			var werr *vectordb.IndexWriteError
			require.True(t, errors.As(err, &werr))
			assert.Equal(t, tt.retryable, werr.Retryable())
			assert.Equal(t, !tt.retryable, errors.Is(err, vectordb.ErrSchemaMismatch))
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	assert.Error(t, cfg.Validate())

	cfg.Dimension = 8
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultPort, Config{}.port())
	assert.Equal(t, DefaultTimeout, Config{}.timeout())

	cfg.Collection = ""
	assert.Error(t, cfg.Validate())
}

func TestObserveOperationNilObserverNoPanic(t *testing.T) {
	c := &Client{cfg: DefaultConfig()}
	c.observeOperation("upsert", "id", time.Now(), nil, 1, nil)
}

func TestObserveOperationCallsObserver(t *testing.T) {
	var got []observability.OperationContext
	c := (&Client{cfg: DefaultConfig()}).WithObserver(observability.ObserverFunc(func(op observability.OperationContext) {
		got = append(got, op)
	}))

	failure := errors.New("boom")
	c.observeOperation("query", "", time.Now(), failure, 3, map[string]interface{}{"hybrid": true})

	require.Len(t, got, 1)
	assert.Equal(t, "qdrant", got[0].Component)
	assert.Equal(t, "query", got[0].Operation)
	assert.Equal(t, DefaultCollection, got[0].Resource)
	assert.Equal(t, int64(3), got[0].Size)
	assert.Equal(t, failure, got[0].Error)
	assert.Equal(t, true, got[0].Metadata["hybrid"])
}

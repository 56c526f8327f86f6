package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/Aleph-Alpha/trackindex/v1/adapter"
	"github.com/Aleph-Alpha/trackindex/v1/isrc"
	"github.com/Aleph-Alpha/trackindex/v1/track"
	"github.com/Aleph-Alpha/trackindex/v1/vectordb"
)

// ErrorKind classifies the failure of a run for completion events and metrics.
type ErrorKind string

const (
	KindValidation  ErrorKind = "validation"
	KindAdapter     ErrorKind = "adapter"
	KindRateLimited ErrorKind = "rate_limited"
	KindIndexWrite  ErrorKind = "index_write"
	KindIndexSchema ErrorKind = "index_schema"
	KindInternal    ErrorKind = "internal"
)

var (
	// ErrRunNotFound is returned by stores for unknown runs.
	ErrRunNotFound = errors.New("run not found")

	// ErrClosed is returned by Submit after Close.
	ErrClosed = errors.New("orchestrator closed")
)

// transientError marks infrastructure failures of the orchestrator itself (step
// store, event delivery) that a later attempt can overcome.
type transientError struct {
	op  string
	err error
}

func (e *transientError) Error() string { return fmt.Sprintf("%s: %v", e.op, e.err) }
func (e *transientError) Unwrap() error { return e.err }

func transient(op string, err error) error {
	return &transientError{op: op, err: err}
}

// stalledError is a failure around an attempt rather than inside a step: the run
// could not be loaded, admitted by the throttle or recorded. The run is scheduled
// again as it is, without counting an attempt.
type stalledError struct {
	op  string
	err error
}

func (e *stalledError) Error() string { return fmt.Sprintf("pipeline: %s: %v", e.op, e.err) }
func (e *stalledError) Unwrap() error { return e.err }

func stalled(op string, err error) error {
	return &stalledError{op: op, err: err}
}

func isStalled(err error) bool {
	var serr *stalledError
	return errors.As(err, &serr)
}

// stepError is the failure of one step of an attempt.
type stepError struct {
	step Step
	err  error
}

func (e *stepError) Error() string { return fmt.Sprintf("%s: %v", e.step, e.err) }
func (e *stepError) Unwrap() error { return e.err }

func failedStep(err error) (Step, bool) {
	var serr *stepError
	if errors.As(err, &serr) {
		return serr.step, true
	}
	return "", false
}

// Classify maps an error to its kind and whether the run should be retried.
func Classify(err error) (ErrorKind, bool) {
	if err == nil {
		return "", false
	}

	if errors.Is(err, isrc.ErrInvalidIdentifier) || errors.Is(err, track.ErrDocumentValidation) {
		return KindValidation, false
	}

	if aerr, ok := adapter.As(err); ok {
		if errors.Is(aerr, adapter.ErrRateLimited) {
			return KindRateLimited, true
		}
		return KindAdapter, aerr.Retryable
	}

	var werr *vectordb.IndexWriteError
	if errors.As(err, &werr) {
		if werr.Schema {
			return KindIndexSchema, false
		}
		return KindIndexWrite, true
	}

	var terr *transientError
	if errors.As(err, &terr) {
		return KindInternal, true
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindInternal, true
	}
	return KindInternal, false
}

package vectordb

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("document not found")

	// ErrSchemaMismatch matches an *IndexWriteError caused by an incompatible
	// collection schema.
	ErrSchemaMismatch = errors.New("index schema mismatch")

	ErrInvalidQuery = errors.New("invalid query")
)

// IndexWriteError reports a failed write. It is retryable unless Schema is set.
type IndexWriteError struct {
	Op     string
	Schema bool
	Err    error
}

func (e *IndexWriteError) Error() string {
	if e.Schema {
		return fmt.Sprintf("index %s: schema mismatch: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("index %s: %v", e.Op, e.Err)
}

func (e *IndexWriteError) Unwrap() error { return e.Err }

func (e *IndexWriteError) Is(target error) bool {
	return target == ErrSchemaMismatch && e.Schema
}

// Retryable reports whether the write may succeed if attempted again.
func (e *IndexWriteError) Retryable() bool { return !e.Schema }

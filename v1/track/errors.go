package track

import (
	"errors"
	"fmt"
)

// ErrDocumentValidation matches every *ValidationError via errors.Is.
var ErrDocumentValidation = errors.New("document validation failed")

// ValidationError reports a malformed document. It is never retryable.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrDocumentValidation, e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrDocumentValidation
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

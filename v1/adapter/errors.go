package adapter

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	// ErrRateLimited matches an *Error for an HTTP 429 response.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrSchema matches an *Error for a response that failed decoding or validation.
	ErrSchema = errors.New("response failed schema validation")

	// ErrInvalidInput matches an *Error raised before any call was made.
	ErrInvalidInput = errors.New("invalid adapter input")
)

// Error is the failure shape of every external adapter.
type Error struct {
	// Service names the external dependency, e.g. "lyrics".
	Service string

	// StatusCode is the HTTP status, 0 when no response was received or the failure
	// is local (schema, input).
	StatusCode int

	// Retryable is true for 429, 5xx and transport failures.
	Retryable bool

	// RetryAfter is the server's Retry-After hint, zero when absent.
	RetryAfter time.Duration

	Err error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: http %d: %v", e.Service, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	return target == ErrRateLimited && e.StatusCode == http.StatusTooManyRequests
}

// RetryableStatus reports whether an HTTP status is worth retrying: 429 and 5xx.
func RetryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// FromStatus builds the error for a non-2xx response.
func FromStatus(service string, status int, detail string, retryAfter time.Duration) *Error {
	msg := http.StatusText(status)
	if detail != "" {
		msg = detail
	}
	return &Error{
		Service:    service,
		StatusCode: status,
		Retryable:  RetryableStatus(status),
		RetryAfter: retryAfter,
		Err:        errors.New(msg),
	}
}

// Schema builds the non-retryable error for an undecodable or invalid response.
func Schema(service string, err error) *Error {
	return &Error{Service: service, Err: fmt.Errorf("%w: %v", ErrSchema, err)}
}

// Transport builds the retryable error for a request that got no response.
func Transport(service string, err error) *Error {
	return &Error{Service: service, Retryable: true, Err: err}
}

// InvalidInput builds the non-retryable error for input rejected before any call.
func InvalidInput(service, reason string) *Error {
	return &Error{Service: service, Err: fmt.Errorf("%w: %s", ErrInvalidInput, reason)}
}

// As extracts the *Error from err's chain.
func As(err error) (*Error, bool) {
	var aerr *Error
	if errors.As(err, &aerr) {
		return aerr, true
	}
	return nil, false
}

// IsRetryable reports whether err carries a retryable *Error.
func IsRetryable(err error) bool {
	aerr, ok := As(err)
	return ok && aerr.Retryable
}

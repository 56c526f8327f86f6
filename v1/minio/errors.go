package minio

import (
	"errors"
	"net/http"

	"github.com/minio/minio-go/v7"
)

var (
	// ErrConnectionFailed is returned when no client is available.
	ErrConnectionFailed = errors.New("minio: connection failed")

	// ErrObjectNotFound is returned when an archived document does not exist.
	ErrObjectNotFound = errors.New("minio: object not found")
)

// ErrorCategory groups storage errors by how a caller should react.
type ErrorCategory int

const (
	CategoryUnknown ErrorCategory = iota
	CategoryNotFound
	CategoryPermission
	CategoryTemporary
	CategoryPermanent
)

// GetErrorCategory classifies err from its S3 error response.
func GetErrorCategory(err error) ErrorCategory {
	if err == nil {
		return CategoryUnknown
	}
	if errors.Is(err, ErrObjectNotFound) {
		return CategoryNotFound
	}
	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "NoSuchKey", "NoSuchBucket":
		return CategoryNotFound
	case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch":
		return CategoryPermission
	case "SlowDown", "RequestTimeout", "InternalError", "ServiceUnavailable":
		return CategoryTemporary
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return CategoryNotFound
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized:
		return CategoryPermission
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return CategoryTemporary
	case resp.StatusCode >= 400:
		return CategoryPermanent
	}
	// No S3 response: a transport failure.
	return CategoryTemporary
}

// IsRetryableError reports whether retrying the operation may succeed.
func IsRetryableError(err error) bool {
	return GetErrorCategory(err) == CategoryTemporary
}

// translateError maps a missing object to ErrObjectNotFound.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if GetErrorCategory(err) == CategoryNotFound {
		return errors.Join(ErrObjectNotFound, err)
	}
	return err
}

package qdrant

import (
	"github.com/Aleph-Alpha/trackindex/v1/vectordb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// writeError wraps a failed Qdrant call in an *vectordb.IndexWriteError. Requests
// the server rejected as malformed or unauthorized are not retryable; everything
// else, including unavailability and timeouts, is.
func writeError(op string, err error) error {
	return &vectordb.IndexWriteError{Op: op, Schema: !retryableCode(status.Code(err)), Err: err}
}

func retryableCode(code codes.Code) bool {
	switch code {
	case codes.InvalidArgument, codes.FailedPrecondition, codes.NotFound, codes.AlreadyExists,
		codes.PermissionDenied, codes.Unauthenticated, codes.Unimplemented, codes.OutOfRange:
		return false
	default:
		return true
	}
}

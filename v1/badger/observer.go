package badger

import (
	"time"

	"github.com/Aleph-Alpha/trackindex/v1/observability"
)

func (s *Store) observeOperation(operation, resource, subResource string, start time.Time, err error, metadata map[string]interface{}) {
	if s == nil || s.observer == nil {
		return
	}
	s.observer.ObserveOperation(observability.OperationContext{
		Component:   "badger",
		Operation:   operation,
		Resource:    resource,
		SubResource: subResource,
		Duration:    time.Since(start),
		Error:       err,
		Metadata:    metadata,
	})
}

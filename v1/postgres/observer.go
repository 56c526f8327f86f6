package postgres

import (
	"time"

	"github.com/Aleph-Alpha/trackindex/v1/observability"
)

// observeOperation reports a store operation to the observer, if one is set.
func (p *Postgres) observeOperation(operation, resource, subResource string, start time.Time, err error, metadata map[string]interface{}) {
	if p == nil || p.observer == nil {
		return
	}
	p.observer.ObserveOperation(observability.OperationContext{
		Component:   "postgres",
		Operation:   operation,
		Resource:    resource,
		SubResource: subResource,
		Duration:    time.Since(start),
		Error:       err,
		Metadata:    metadata,
	})
}

package qdrant

import (
	"time"

	"github.com/Aleph-Alpha/trackindex/v1/observability"
)

// observeOperation notifies the observer about an operation if one is configured.
// The resource is always the collection; subResource is the point ID when there is
// exactly one.
func (c *Client) observeOperation(operation, subResource string, start time.Time, err error, size int64, metadata map[string]interface{}) {
	if c == nil || c.observer == nil {
		return
	}
	c.observer.ObserveOperation(observability.OperationContext{
		Component:   "qdrant",
		Operation:   operation,
		Resource:    c.cfg.Collection,
		SubResource: subResource,
		Duration:    time.Since(start),
		Error:       err,
		Size:        size,
		Metadata:    metadata,
	})
}

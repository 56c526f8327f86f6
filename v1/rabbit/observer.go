package rabbit

import (
	"time"

	"github.com/Aleph-Alpha/trackindex/v1/observability"
)

// observeOperation reports a produce (exchange, routing key) or a consume (queue).
func (rb *RabbitClient) observeOperation(operation, resource, subResource string, duration time.Duration, err error, size int64) {
	if rb.observer == nil {
		return
	}
	rb.observer.ObserveOperation(observability.OperationContext{
		Component:   "rabbit",
		Operation:   operation,
		Resource:    resource,
		SubResource: subResource,
		Duration:    duration,
		Error:       err,
		Size:        size,
	})
}

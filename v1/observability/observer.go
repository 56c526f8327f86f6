// Package observability defines the hook infrastructure clients call after every
// operation, and a Prometheus-backed implementation of it.
package observability

import "time"

// OperationContext describes one finished operation of an infrastructure client.
type OperationContext struct {
	// Component is the client kind, e.g. "redis", "kafka", "qdrant".
	Component string

	// Operation is the verb, e.g. "get", "produce", "upsert".
	Operation string

	// Resource is the main target: key, topic, collection, bucket.
	Resource string

	// SubResource narrows Resource: field, partition, object name.
	SubResource string

	Duration time.Duration
	Error    error

	// Size is the payload size in bytes or the item count, when meaningful.
	Size int64

	Metadata map[string]interface{}
}

// Observer receives OperationContext values. Implementations must be safe for
// concurrent use and must not block.
type Observer interface {
	ObserveOperation(ctx OperationContext)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx OperationContext)

func (f ObserverFunc) ObserveOperation(ctx OperationContext) { f(ctx) }

// Multi fans an operation out to several observers.
func Multi(observers ...Observer) Observer {
	return ObserverFunc(func(ctx OperationContext) {
		for _, o := range observers {
			if o != nil {
				o.ObserveOperation(ctx)
			}
		}
	})
}

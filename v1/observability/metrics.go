package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector is satisfied by *metrics.Metrics.
type Collector interface {
	CreateCounter(name, help string, labels []string) *prometheus.CounterVec
	CreateHistogram(name, help string, labels []string, buckets []float64) *prometheus.HistogramVec
}

// MetricsObserver counts operations and records their latency per component,
// operation and outcome.
type MetricsObserver struct {
	operations *prometheus.CounterVec
	durations  *prometheus.HistogramVec
}

var _ Observer = (*MetricsObserver)(nil)

// NewMetricsObserver registers client_operations_total and
// client_operation_duration_seconds on the collector.
func NewMetricsObserver(c Collector) *MetricsObserver {
	labels := []string{"component", "operation", "outcome"}
	return &MetricsObserver{
		operations: c.CreateCounter("client_operations_total", "Operations performed by infrastructure clients", labels),
		durations: c.CreateHistogram("client_operation_duration_seconds", "Latency of infrastructure client operations",
			labels, []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10}),
	}
}

func (m *MetricsObserver) ObserveOperation(ctx OperationContext) {
	outcome := "ok"
	if ctx.Error != nil {
		outcome = "error"
	}
	m.operations.WithLabelValues(ctx.Component, ctx.Operation, outcome).Inc()
	m.durations.WithLabelValues(ctx.Component, ctx.Operation, outcome).Observe(ctx.Duration.Seconds())
}

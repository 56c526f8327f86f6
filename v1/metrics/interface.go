package metrics

import "github.com/prometheus/client_golang/prometheus"

// MetricsCollector creates and registers metrics. Components take this interface
// so tests can hand them a collector backed by a throwaway registry.
type MetricsCollector interface {
	CreateCounter(name, help string, labels []string) *prometheus.CounterVec
	CreateHistogram(name, help string, labels []string, buckets []float64) *prometheus.HistogramVec
	CreateGauge(name, help string, labels []string) *prometheus.GaugeVec
}

var _ MetricsCollector = (*Metrics)(nil)

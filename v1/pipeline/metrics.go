package pipeline

import (
	"time"

	"github.com/Aleph-Alpha/trackindex/v1/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// runMetrics are the orchestrator's Prometheus series. A nil *runMetrics records
// nothing.
type runMetrics struct {
	triggers     *prometheus.CounterVec
	runs         *prometheus.CounterVec
	steps        *prometheus.HistogramVec
	throttleWait prometheus.Observer
	inFlight     prometheus.Gauge
}

func newRunMetrics(c metrics.MetricsCollector) *runMetrics {
	return &runMetrics{
		triggers: c.CreateCounter("pipeline_triggers_total",
			"Ingestion triggers by result (started, coalesced, rejected).", []string{"result"}),
		runs: c.CreateCounter("pipeline_attempts_total",
			"Finished run attempts by resulting status and error kind.", []string{"status", "error_kind"}),
		steps: c.CreateHistogram("pipeline_step_duration_seconds",
			"Duration of executed steps.", []string{"step", "outcome"}, nil),
		throttleWait: c.CreateHistogram("pipeline_throttle_wait_seconds",
			"Time attempts waited for the start throttle.", []string{}, nil).WithLabelValues(),
		inFlight: c.CreateGauge("pipeline_attempts_in_flight",
			"Attempts currently executing.", []string{}).WithLabelValues(),
	}
}

func (m *runMetrics) trigger(result string) {
	if m != nil {
		m.triggers.WithLabelValues(result).Inc()
	}
}

func (m *runMetrics) attempt(status Status, kind ErrorKind) {
	if m != nil {
		m.runs.WithLabelValues(string(status), string(kind)).Inc()
	}
}

func (m *runMetrics) step(step Step, d time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.steps.WithLabelValues(string(step), outcome).Observe(d.Seconds())
}

func (m *runMetrics) waited(d time.Duration) {
	if m != nil {
		m.throttleWait.Observe(d.Seconds())
	}
}

func (m *runMetrics) running(delta float64) {
	if m != nil {
		m.inFlight.Add(delta)
	}
}

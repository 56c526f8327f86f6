package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateCounterIsNamespacedAndLabelled(t *testing.T) {
	m := NewMetrics(Config{Namespace: "trackindex", ServiceName: "indexer"})

	counter := m.CreateCounter("runs_total", "runs", []string{"status"})
	counter.WithLabelValues("completed").Inc()
	counter.WithLabelValues("completed").Inc()

	assert.Equal(t, float64(2), testutil.ToFloat64(counter.WithLabelValues("completed")))

	families, err := m.Registry.Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)
	assert.Equal(t, "trackindex_runs_total", families[0].GetName())

	var service string
	for _, label := range families[0].GetMetric()[0].GetLabel() {
		if label.GetName() == "service" {
			service = label.GetValue()
		}
	}
	assert.Equal(t, "indexer", service)
}

func TestDefaultAddress(t *testing.T) {
	m := NewMetrics(Config{})
	assert.Equal(t, DefaultMetricsAddress, m.Server.Addr)
}

func TestHandlerServesRegistry(t *testing.T) {
	m := NewMetrics(Config{Namespace: "trackindex"})
	m.CreateGauge("inflight_runs", "runs in flight", nil).WithLabelValues().Set(3)
	m.CreateHistogram("step_duration_seconds", "step durations", []string{"step"}, nil).
		WithLabelValues("FetchLyrics").Observe(0.2)

	rec := httptest.NewRecorder()
	m.Server.Handler.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "trackindex_inflight_runs 3")
	assert.Contains(t, string(body), "trackindex_step_duration_seconds_bucket")
}

package observability

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

type registryCollector struct {
	reg *prometheus.Registry
}

func (r registryCollector) CreateCounter(name, help string, labels []string) *prometheus.CounterVec {
	c := prometheus.NewCounterVec(prometheus.CounterOpts{Name: name, Help: help}, labels)
	r.reg.MustRegister(c)
	return c
}

func (r registryCollector) CreateHistogram(name, help string, labels []string, buckets []float64) *prometheus.HistogramVec {
	h := prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: name, Help: help, Buckets: buckets}, labels)
	r.reg.MustRegister(h)
	return h
}

func TestMetricsObserverOutcomes(t *testing.T) {
	obs := NewMetricsObserver(registryCollector{reg: prometheus.NewRegistry()})

	obs.ObserveOperation(OperationContext{Component: "redis", Operation: "get", Duration: time.Millisecond})
	obs.ObserveOperation(OperationContext{Component: "redis", Operation: "get", Duration: time.Millisecond})
	obs.ObserveOperation(OperationContext{Component: "redis", Operation: "get", Error: errors.New("down")})

	assert.Equal(t, float64(2), testutil.ToFloat64(obs.operations.WithLabelValues("redis", "get", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(obs.operations.WithLabelValues("redis", "get", "error")))
}

func TestMultiSkipsNil(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	record := ObserverFunc(func(ctx OperationContext) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, ctx.Operation)
	})

	Multi(record, nil, record).ObserveOperation(OperationContext{Operation: "upsert"})

	assert.Equal(t, []string{"upsert", "upsert"}, seen)
}

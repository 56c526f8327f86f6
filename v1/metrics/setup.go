package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the registry and the HTTP server exposing it.
type Metrics struct {
	Server *http.Server

	Registry *prometheus.Registry

	// registerer adds the service label to everything registered through it.
	registerer prometheus.Registerer
	namespace  string
}

// NewMetrics creates a registry and a /metrics server for it. The server is not
// started; FXModule or the caller runs ListenAndServe.
func NewMetrics(cfg Config) *Metrics {
	registry := prometheus.NewRegistry()

	var registerer prometheus.Registerer = registry
	if cfg.ServiceName != "" {
		registerer = prometheus.WrapRegistererWith(prometheus.Labels{"service": cfg.ServiceName}, registry)
	}

	if cfg.EnableDefaultCollectors {
		registerer.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			collectors.NewBuildInfoCollector(),
		)
	}

	addr := cfg.Address
	if addr == "" {
		addr = DefaultMetricsAddress
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	return &Metrics{
		Server:     &http.Server{Addr: addr, Handler: mux},
		Registry:   registry,
		registerer: registerer,
		namespace:  cfg.Namespace,
	}
}

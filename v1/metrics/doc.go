// Package metrics exposes a Prometheus registry over HTTP and helpers to create
// namespaced counters, histograms and gauges on it.
//
//	m := metrics.NewMetrics(metrics.Config{Address: ":9090", Namespace: "trackindex", ServiceName: "trackindexer"})
//	runs := m.CreateCounter("runs_total", "Finished ingestion runs", []string{"status"})
//	runs.WithLabelValues("completed").Inc()
//
// FXModule starts the server with the application and stops it on shutdown.
package metrics

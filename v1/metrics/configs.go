package metrics

// DefaultMetricsAddress is the listen address used when Config.Address is empty.
const DefaultMetricsAddress = ":9090"

// Config defines how the Prometheus endpoint is exposed and how metrics are named.
type Config struct {
	// Address is the host:port the /metrics server listens on.
	Address string `yaml:"address" envconfig:"METRICS_ADDRESS"`

	// EnableDefaultCollectors registers Go runtime, process and build info collectors.
	EnableDefaultCollectors bool `yaml:"enable_default_collectors" envconfig:"METRICS_ENABLE_DEFAULT_COLLECTORS"`

	// Namespace prefixes every metric created through this package.
	Namespace string `yaml:"namespace" envconfig:"METRICS_NAMESPACE"`

	// ServiceName is attached as a constant "service" label.
	ServiceName string `yaml:"service_name" envconfig:"METRICS_SERVICE_NAME"`
}

package qdrant

import (
	"errors"
	"time"
)

const (
	DefaultPort       = 6334
	DefaultCollection = "tracks"
	DefaultTimeout    = 10 * time.Second
)

// Config holds connection and collection settings for the Qdrant index.
//
// Example:
//
//	cfg := qdrant.DefaultConfig()
//	cfg.Endpoint = "qdrant.internal"
//	cfg.Dimension = 1024
type Config struct {
	// Hostname of the Qdrant server, e.g. "localhost".
	Endpoint string `yaml:"endpoint" envconfig:"QDRANT_ENDPOINT"`

	// gRPC port of the Qdrant server. Defaults to 6334.
	Port int `yaml:"port" envconfig:"QDRANT_PORT"`

	// Optional authentication token for secured deployments.
	ApiKey string `yaml:"api_key" envconfig:"QDRANT_API_KEY"`

	UseTLS bool `yaml:"use_tls" envconfig:"QDRANT_USE_TLS"`

	// Collection holding the track documents.
	Collection string `yaml:"collection" envconfig:"QDRANT_COLLECTION"`

	// Dimension of the dense vectors. Must match the embedding model.
	Dimension int `yaml:"dimension" envconfig:"QDRANT_DIMENSION"`

	// Maximum duration of a single request.
	Timeout time.Duration `yaml:"timeout" envconfig:"QDRANT_TIMEOUT"`

	// Whether to perform version compatibility checks between client and server.
	CheckCompatibility bool `yaml:"check_compatibility" envconfig:"QDRANT_CHECK_COMPATIBILITY"`
}

// DefaultConfig provides sensible defaults for a local deployment.
func DefaultConfig() Config {
	return Config{
		Endpoint:   "localhost",
		Port:       DefaultPort,
		Collection: DefaultCollection,
		Timeout:    DefaultTimeout,
	}
}

func (c Config) Validate() error {
	switch {
	case c.Endpoint == "":
		return errors.New("qdrant: endpoint is required")
	case c.Collection == "":
		return errors.New("qdrant: collection is required")
	case c.Dimension <= 0:
		return errors.New("qdrant: dimension must be positive")
	}
	return nil
}

func (c Config) port() int {
	if c.Port == 0 {
		return DefaultPort
	}
	return c.Port
}

func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultTimeout
	}
	return c.Timeout
}

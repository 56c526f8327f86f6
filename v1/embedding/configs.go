package embedding

import (
	"errors"
	"time"

	"github.com/Aleph-Alpha/trackindex/v1/adapter"
)

// ServiceName identifies this adapter in errors and metrics.
const ServiceName = "embedding"

// Config defines the OpenAI-compatible embeddings endpoint.
type Config struct {
	Endpoint     string `yaml:"endpoint" envconfig:"EMBEDDING_ENDPOINT"`
	ServiceToken string `yaml:"service_token" envconfig:"EMBEDDING_SERVICE_TOKEN"`
	Model        string `yaml:"model" envconfig:"EMBEDDING_MODEL"`

	// Dimension is the expected vector length. Responses of another length are
	// rejected as schema failures; zero disables the check.
	Dimension int `yaml:"dimension" envconfig:"EMBEDDING_DIMENSION"`

	HTTPTimeoutS      int     `yaml:"http_timeout_seconds" envconfig:"EMBEDDING_HTTP_TIMEOUT_SECONDS"`
	RequestsPerSecond float64 `yaml:"requests_per_second" envconfig:"EMBEDDING_RPS"`
	Burst             int     `yaml:"burst" envconfig:"EMBEDDING_BURST"`
}

// DefaultConfig returns a config with a 30s timeout and no endpoint.
func DefaultConfig() Config {
	return Config{HTTPTimeoutS: 30}
}

// Validate checks the mandatory fields.
func (c Config) Validate() error {
	if c.Endpoint == "" {
		return errors.New("embedding: missing EMBEDDING_ENDPOINT")
	}
	if c.Model == "" {
		return errors.New("embedding: missing EMBEDDING_MODEL")
	}
	if c.Dimension < 0 {
		return errors.New("embedding: dimension must not be negative")
	}
	return nil
}

func (c Config) httpConfig() adapter.Config {
	timeout := c.HTTPTimeoutS
	if timeout <= 0 {
		timeout = 30
	}
	return adapter.Config{
		Endpoint:          c.Endpoint,
		Token:             c.ServiceToken,
		Timeout:           time.Duration(timeout) * time.Second,
		RequestsPerSecond: c.RequestsPerSecond,
		Burst:             c.Burst,
	}
}

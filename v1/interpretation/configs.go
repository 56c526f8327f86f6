package interpretation

import (
	"time"

	"github.com/Aleph-Alpha/trackindex/v1/adapter"
)

// ServiceName identifies this adapter in errors and metrics.
const ServiceName = "interpretation"

const (
	DefaultModel     = "gpt-4o-mini"
	DefaultMaxTokens = 600
)

// Config defines the chat-completions endpoint used for interpretations.
type Config struct {
	// Endpoint is the API base, e.g. https://api.openai.com/v1.
	Endpoint          string        `yaml:"endpoint" envconfig:"INTERPRETATION_ENDPOINT"`
	Token             string        `yaml:"token" envconfig:"INTERPRETATION_TOKEN"`
	Model             string        `yaml:"model" envconfig:"INTERPRETATION_MODEL"`
	Temperature       float64       `yaml:"temperature" envconfig:"INTERPRETATION_TEMPERATURE"`
	MaxTokens         int           `yaml:"max_tokens" envconfig:"INTERPRETATION_MAX_TOKENS"`
	Timeout           time.Duration `yaml:"timeout" envconfig:"INTERPRETATION_TIMEOUT"`
	RequestsPerSecond float64       `yaml:"requests_per_second" envconfig:"INTERPRETATION_RPS"`
	Burst             int           `yaml:"burst" envconfig:"INTERPRETATION_BURST"`
}

func (c Config) httpConfig() adapter.Config {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return adapter.Config{
		Endpoint:          c.Endpoint,
		Token:             c.Token,
		Timeout:           timeout,
		RequestsPerSecond: c.RequestsPerSecond,
		Burst:             c.Burst,
	}
}

package lyrics

import (
	"time"

	"github.com/Aleph-Alpha/trackindex/v1/adapter"
)

// ServiceName identifies this adapter in errors and metrics.
const ServiceName = "lyrics"

// Config defines the catalogue and lyrics provider connection.
type Config struct {
	Endpoint          string        `yaml:"endpoint" envconfig:"LYRICS_ENDPOINT"`
	Token             string        `yaml:"token" envconfig:"LYRICS_TOKEN"`
	Timeout           time.Duration `yaml:"timeout" envconfig:"LYRICS_TIMEOUT"`
	RequestsPerSecond float64       `yaml:"requests_per_second" envconfig:"LYRICS_RPS"`
	Burst             int           `yaml:"burst" envconfig:"LYRICS_BURST"`
}

func (c Config) httpConfig() adapter.Config {
	return adapter.Config{
		Endpoint:          c.Endpoint,
		Token:             c.Token,
		Timeout:           c.Timeout,
		RequestsPerSecond: c.RequestsPerSecond,
		Burst:             c.Burst,
	}
}

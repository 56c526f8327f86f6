package audiofeatures

import (
	"time"

	"github.com/Aleph-Alpha/trackindex/v1/adapter"
)

// ServiceName identifies this adapter in errors and metrics.
const ServiceName = "audio_features"

// Config defines the audio feature provider connection.
type Config struct {
	Endpoint          string        `yaml:"endpoint" envconfig:"AUDIO_FEATURES_ENDPOINT"`
	Token             string        `yaml:"token" envconfig:"AUDIO_FEATURES_TOKEN"`
	Timeout           time.Duration `yaml:"timeout" envconfig:"AUDIO_FEATURES_TIMEOUT"`
	RequestsPerSecond float64       `yaml:"requests_per_second" envconfig:"AUDIO_FEATURES_RPS"`
	Burst             int           `yaml:"burst" envconfig:"AUDIO_FEATURES_BURST"`
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

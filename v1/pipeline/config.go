package pipeline

import (
	"errors"
	"fmt"
	"time"
)

// Config tunes the orchestrator.
type Config struct {
	// MaxConcurrent caps the attempts executing at once.
	MaxConcurrent int `yaml:"max_concurrent" envconfig:"PIPELINE_MAX_CONCURRENT"`

	// ThrottleLimit attempt starts are allowed per ThrottleWindow. Zero disables the
	// throttle.
	ThrottleLimit  int           `yaml:"throttle_limit" envconfig:"PIPELINE_THROTTLE_LIMIT"`
	ThrottleWindow time.Duration `yaml:"throttle_window" envconfig:"PIPELINE_THROTTLE_WINDOW"`

	// MaxAttempts bounds the attempts of one run, the first included.
	MaxAttempts int `yaml:"max_attempts" envconfig:"PIPELINE_MAX_ATTEMPTS"`

	// Backoff[i] is the delay before attempt i+2. The last entry repeats.
	Backoff []time.Duration `yaml:"backoff" envconfig:"PIPELINE_BACKOFF"`

	// CoalesceWindow is how long a completed run absorbs new triggers.
	CoalesceWindow time.Duration `yaml:"coalesce_window" envconfig:"PIPELINE_COALESCE_WINDOW"`

	// Dimension of the dense embeddings written to the index.
	Dimension int `yaml:"dimension" envconfig:"PIPELINE_DIMENSION"`
}

// DefaultConfig returns 10 concurrent attempts, 10 starts per minute, 5 attempts
// with 5m/15m/1h/4h backoff and a 24h coalescing window.
func DefaultConfig() Config {
	return Config{
		MaxConcurrent:  10,
		ThrottleLimit:  10,
		ThrottleWindow: time.Minute,
		MaxAttempts:    5,
		Backoff:        []time.Duration{5 * time.Minute, 15 * time.Minute, time.Hour, 4 * time.Hour},
		CoalesceWindow: 24 * time.Hour,
	}
}

func (c Config) Validate() error {
	if c.MaxConcurrent <= 0 {
		return errors.New("pipeline: max_concurrent must be positive")
	}
	if c.MaxAttempts <= 0 {
		return errors.New("pipeline: max_attempts must be positive")
	}
	if c.ThrottleLimit > 0 && c.ThrottleWindow <= 0 {
		return errors.New("pipeline: throttle_window must be positive when a throttle limit is set")
	}
	if c.MaxAttempts > 1 && len(c.Backoff) == 0 {
		return errors.New("pipeline: backoff is required when retries are enabled")
	}
	for i := 1; i < len(c.Backoff); i++ {
		if c.Backoff[i] < c.Backoff[i-1] {
			return fmt.Errorf("pipeline: backoff must not decrease (%s after %s)", c.Backoff[i], c.Backoff[i-1])
		}
	}
	if c.CoalesceWindow < 0 {
		return errors.New("pipeline: coalesce_window must not be negative")
	}
	return nil
}

// BackoffFor returns the delay after the given failed attempt (1-based).
func (c Config) BackoffFor(attempt int) time.Duration {
	if len(c.Backoff) == 0 {
		return 0
	}
	i := attempt - 1
	if i < 0 {
		i = 0
	}
	if i >= len(c.Backoff) {
		i = len(c.Backoff) - 1
	}
	return c.Backoff[i]
}

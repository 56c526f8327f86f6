package adapter

import (
	"errors"
	"time"
)

const (
	DefaultTimeout = 30 * time.Second
	DefaultBurst   = 1
)

// Config configures an HTTPClient. Adapter packages map their own env-tagged
// configs onto it.
type Config struct {
	// Endpoint is the base URL, without trailing slash.
	Endpoint string

	// Token is sent as a bearer token when set.
	Token string

	Timeout time.Duration

	// RequestsPerSecond caps outgoing calls of this client. Zero disables the limiter.
	RequestsPerSecond float64

	// Burst is the token bucket size.
	Burst int

	// Transport overrides the HTTP transport, mostly for tests.
	Transport TransportFunc
}

// Validate checks the mandatory fields.
func (c Config) Validate() error {
	if c.Endpoint == "" {
		return errors.New("endpoint is required")
	}
	if c.RequestsPerSecond < 0 {
		return errors.New("requests per second must not be negative")
	}
	return nil
}

package qdrant

import (
	"context"
	"fmt"
	"time"

	"github.com/Aleph-Alpha/trackindex/v1/observability"
	"github.com/Aleph-Alpha/trackindex/v1/vectordb"
	qdrant "github.com/qdrant/go-client/qdrant"
)

// Logger is the subset of the logger package used by the client.
type Logger interface {
	Info(msg string, err error, fields ...map[string]interface{})
	Debug(msg string, err error, fields ...map[string]interface{})
	Warn(msg string, err error, fields ...map[string]interface{})
	Error(msg string, err error, fields ...map[string]interface{})
}

// Client implements vectordb.HybridIndex on a Qdrant collection with a named dense
// vector and a named sparse vector per point.
type Client struct {
	api      *qdrant.Client
	cfg      Config
	logger   Logger
	observer observability.Observer
}

var _ vectordb.HybridIndex = (*Client)(nil)

// NewClient connects to Qdrant and verifies the server with a health check. The
// gRPC connection is lazy, so the check is what makes startup fail fast.
func NewClient(cfg Config, logger Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	api, err := qdrant.NewClient(&qdrant.Config{
		Host:                   cfg.Endpoint,
		Port:                   cfg.port(),
		APIKey:                 cfg.ApiKey,
		UseTLS:                 cfg.UseTLS,
		SkipCompatibilityCheck: !cfg.CheckCompatibility,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: failed to initialize client: %w", err)
	}

	c := &Client{api: api, cfg: cfg, logger: logger}
	if err := c.HealthCheck(context.Background()); err != nil {
		_ = api.Close()
		return nil, err
	}
	return c, nil
}

// WithObserver attaches an observer notified after every operation.
func (c *Client) WithObserver(observer observability.Observer) *Client {
	c.observer = observer
	return c
}

// HealthCheck calls the server health endpoint.
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	resp, err := c.api.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("qdrant: health check failed: %w", err)
	}
	c.info("Qdrant health check passed", map[string]interface{}{
		"endpoint": c.cfg.Endpoint,
		"version":  resp.GetVersion(),
	})
	return nil
}

// Collection returns the configured collection name.
func (c *Client) Collection() string {
	return c.cfg.Collection
}

// Close releases the gRPC connection.
func (c *Client) Close() error {
	return c.api.Close()
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.cfg.timeout())
}

func (c *Client) info(msg string, fields map[string]interface{}) {
	if c.logger != nil {
		c.logger.Info(msg, nil, fields)
	}
}

func (c *Client) warn(msg string, err error, fields map[string]interface{}) {
	if c.logger != nil {
		c.logger.Warn(msg, err, fields)
	}
}

package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/Aleph-Alpha/trackindex/v1/adapter"
)

// Client embeds texts through a Provider.
type Client struct {
	provider Provider
}

// NewClient validates cfg and creates a client backed by the inference provider.
func NewClient(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("embedding: invalid config: %w", err)
	}

	p, err := newInferenceProvider(cfg)
	if err != nil {
		return nil, fmt.Errorf("embedding: failed to create provider: %w", err)
	}

	return &Client{provider: p}, nil
}

// NewClientWithProvider wraps an arbitrary provider.
func NewClientWithProvider(p Provider) *Client {
	return &Client{provider: p}
}

// Embed returns the dense vector of text. Empty or whitespace-only text fails
// non-retryably without calling the provider.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, adapter.InvalidInput(ServiceName, "empty text")
	}
	vectors, err := c.provider.Create(ctx, text)
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds several texts in one call. Every text must be non-empty.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			return nil, adapter.InvalidInput(ServiceName, fmt.Sprintf("empty text at %d", i))
		}
	}
	return c.provider.Create(ctx, texts...)
}

// Close releases provider resources, if it holds any.
func (c *Client) Close() error {
	if closer, ok := c.provider.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

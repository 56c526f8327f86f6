package qdrant

import (
	"context"

	"github.com/Aleph-Alpha/trackindex/v1/observability"
	"github.com/Aleph-Alpha/trackindex/v1/vectordb"
	"go.uber.org/fx"
)

// FXModule provides *Client and binds it as vectordb.HybridIndex. The schema is
// ensured on start.
var FXModule = fx.Module("qdrant",
	fx.Provide(
		NewClientWithDI,
		func(c *Client) vectordb.HybridIndex { return c },
	),
	fx.Invoke(RegisterQdrantLifecycle),
)

// QdrantParams groups the dependencies needed to create the client.
type QdrantParams struct {
	fx.In

	Config   Config
	Logger   Logger                 `optional:"true"`
	Observer observability.Observer `optional:"true"`
}

// NewClientWithDI creates the client from injected dependencies.
func NewClientWithDI(p QdrantParams) (*Client, error) {
	c, err := NewClient(p.Config, p.Logger)
	if err != nil {
		return nil, err
	}
	if p.Observer != nil {
		c.WithObserver(p.Observer)
	}
	return c, nil
}

// RegisterQdrantLifecycle ensures the collection schema on start and closes the
// connection on stop.
func RegisterQdrantLifecycle(lc fx.Lifecycle, c *Client) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return c.EnsureSchema(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return c.Close()
		},
	})
}

package search

import (
	"github.com/Aleph-Alpha/trackindex/v1/embedding"
	"github.com/Aleph-Alpha/trackindex/v1/observability"
	"github.com/Aleph-Alpha/trackindex/v1/vectordb"
	"go.uber.org/fx"
)

// FXModule provides *Service from the embedding client and the hybrid index.
var FXModule = fx.Module("search",
	fx.Provide(NewServiceWithDI),
)

// SearchParams groups the dependencies of the service.
type SearchParams struct {
	fx.In

	Embedder *embedding.Client
	Index    vectordb.HybridIndex
	Observer observability.Observer `optional:"true"`
}

// NewServiceWithDI creates the service from injected dependencies.
func NewServiceWithDI(p SearchParams) *Service {
	s := NewService(p.Embedder, p.Index)
	if p.Observer != nil {
		s.WithObserver(p.Observer)
	}
	return s
}

package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Aleph-Alpha/trackindex/v1/observability"
	"github.com/Aleph-Alpha/trackindex/v1/sparseembedding"
	"github.com/Aleph-Alpha/trackindex/v1/vectordb"
	"golang.org/x/sync/errgroup"
)

// ErrEmptyQuery is returned when a request has neither text nor an embedding.
var ErrEmptyQuery = errors.New("search: query text or embedding is required")

// Embedder returns the dense vector of a text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Querier runs fused queries. vectordb.HybridIndex implements it.
type Querier interface {
	Query(ctx context.Context, q vectordb.Query) ([]vectordb.Hit, error)
}

// Request is a hybrid search.
type Request struct {
	// QueryText is embedded when QueryEmbedding is empty and always contributes to
	// the sparse query.
	QueryText      string
	QueryEmbedding []float32

	// Paraphrases widen the sparse query; they are not embedded.
	Paraphrases []string

	// TopK defaults to vectordb.DefaultTopK and is capped at vectordb.MaxTopK.
	TopK   int
	Filter *vectordb.Filter
}

// Service answers hybrid searches over the track index.
type Service struct {
	embedder Embedder
	index    Querier
	observer observability.Observer
}

// NewService returns a service. embedder may be nil when every request carries
// its own embedding.
func NewService(embedder Embedder, index Querier) *Service {
	return &Service{embedder: embedder, index: index}
}

// WithObserver sets the observer and returns the service for chaining.
func (s *Service) WithObserver(o observability.Observer) *Service {
	s.observer = o
	return s
}

// Search embeds the query if needed, builds the sparse query from the text and
// every paraphrase, and returns the fused hits.
func (s *Service) Search(ctx context.Context, req Request) ([]vectordb.Hit, error) {
	start := time.Now()
	text := strings.TrimSpace(req.QueryText)
	if text == "" && len(req.QueryEmbedding) == 0 {
		return nil, ErrEmptyQuery
	}

	dense := req.QueryEmbedding
	var sparse sparseembedding.SparseEmbedding

	g, gctx := errgroup.WithContext(ctx)
	if len(dense) == 0 {
		if s.embedder == nil {
			return nil, fmt.Errorf("search: no embedder to embed the query")
		}
		g.Go(func() error {
			vec, err := s.embedder.Embed(gctx, text)
			if err != nil {
				return fmt.Errorf("search: embed query: %w", err)
			}
			dense = vec
			return nil
		})
	}
	g.Go(func() error {
		sparse = SparseQuery(text, req.Paraphrases...)
		return nil
	})
	if err := g.Wait(); err != nil {
		s.observe(start, err, 0, req)
		return nil, err
	}

	hits, err := s.index.Query(ctx, vectordb.Query{
		Dense:  dense,
		Sparse: sparse,
		TopK:   req.TopK,
		Filter: req.Filter,
	})
	s.observe(start, err, len(hits), req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return hits, nil
}

// SparseQuery combines the encodings of text and its paraphrases.
func SparseQuery(text string, paraphrases ...string) sparseembedding.SparseEmbedding {
	vectors := make([]sparseembedding.SparseEmbedding, 0, len(paraphrases)+1)
	vectors = append(vectors, sparseembedding.Encode(text))
	for _, p := range paraphrases {
		vectors = append(vectors, sparseembedding.Encode(p))
	}
	return sparseembedding.Combine(vectors...)
}

func (s *Service) observe(start time.Time, err error, hits int, req Request) {
	if s.observer == nil {
		return
	}
	s.observer.ObserveOperation(observability.OperationContext{
		Component: "search",
		Operation: "query",
		Resource:  "tracks",
		Duration:  time.Since(start),
		Error:     err,
		Size:      int64(hits),
		Metadata: map[string]interface{}{
			"top_k":       vectordb.Query{TopK: req.TopK}.Limit(),
			"paraphrases": len(req.Paraphrases),
			"embedded":    len(req.QueryEmbedding) == 0,
		},
	})
}

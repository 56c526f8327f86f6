package vectordb

import (
	"context"

	"github.com/Aleph-Alpha/trackindex/v1/sparseembedding"
	"github.com/Aleph-Alpha/trackindex/v1/track"
)

// HybridIndex stores track documents with a dense and a sparse vector each and
// answers fused queries over both.
type HybridIndex interface {
	// EnsureSchema creates the collection and payload indexes if missing. An existing
	// collection with an incompatible dense dimension is a schema mismatch.
	EnsureSchema(ctx context.Context) error

	// Upsert writes doc keyed by doc.ID. Writing the same id again replaces it.
	Upsert(ctx context.Context, doc *track.TrackDocument, sparse sparseembedding.SparseEmbedding) error

	// Query returns at most q.Limit() hits ranked by RRF over the dense and sparse
	// candidate lists, or by dense similarity alone when q.Sparse is empty.
	Query(ctx context.Context, q Query) ([]Hit, error)

	// Get returns the document stored for isrc, or ErrNotFound.
	Get(ctx context.Context, isrc string) (*track.TrackDocument, error)

	// Count returns the number of stored documents.
	Count(ctx context.Context) (uint64, error)
}

package pipeline

//go:generate mockgen -source=ports.go -destination=mock_ports.go -package=pipeline

import (
	"context"

	"github.com/Aleph-Alpha/trackindex/v1/interpretation"
	"github.com/Aleph-Alpha/trackindex/v1/lyrics"
	"github.com/Aleph-Alpha/trackindex/v1/sparseembedding"
	"github.com/Aleph-Alpha/trackindex/v1/track"
)

// AudioFeaturesSource returns the audio features of a recording, nil when unknown.
type AudioFeaturesSource interface {
	Fetch(ctx context.Context, isrc string) (*track.AudioFeatures, error)
}

// LyricsSource resolves track metadata and lyrics.
type LyricsSource interface {
	Fetch(ctx context.Context, q lyrics.Query) (*lyrics.Result, error)
}

// Interpreter generates the interpretation and short descriptions.
type Interpreter interface {
	Interpret(ctx context.Context, in interpretation.Input) (*interpretation.Output, error)
}

// Embedder returns the dense vector of a text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Indexer writes documents to the hybrid index.
type Indexer interface {
	Upsert(ctx context.Context, doc *track.TrackDocument, sparse sparseembedding.SparseEmbedding) error
}

// Archive keeps a copy of every indexed document.
type Archive interface {
	Put(ctx context.Context, doc *track.TrackDocument) error
}

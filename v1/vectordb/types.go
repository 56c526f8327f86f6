package vectordb

import (
	"github.com/Aleph-Alpha/trackindex/v1/sparseembedding"
	"github.com/Aleph-Alpha/trackindex/v1/track"
)

// Named vectors and payload fields of a track collection.
const (
	DenseVectorName  = "dense"
	SparseVectorName = "sparse"

	FieldISRC             = "isrc"
	FieldTitle            = "title"
	FieldArtist           = "artist"
	FieldAlbum            = "album"
	FieldLyrics           = "lyrics"
	FieldInterpretation   = "interpretation"
	FieldShortDescription = "short_description"
	FieldAudioFeatures    = "audio_features"
	FieldIndexedAt        = "indexed_at"
)

// KeywordFields get an exact-match payload index.
var KeywordFields = []string{FieldISRC}

// TextFields get a full-text payload index.
var TextFields = []string{FieldTitle, FieldArtist, FieldAlbum, FieldShortDescription}

const (
	// DefaultTopK is used when a query asks for zero results.
	DefaultTopK = 10

	// MaxTopK caps the number of results of a single query.
	MaxTopK = 100

	// PrefetchFactor widens each candidate list beyond TopK before fusion.
	PrefetchFactor = 4
)

// Query is a hybrid retrieval request.
type Query struct {
	Dense  []float32
	Sparse sparseembedding.SparseEmbedding
	TopK   int
	Filter *Filter
}

// Limit returns TopK clamped to [1, MaxTopK], defaulting to DefaultTopK.
func (q Query) Limit() int {
	switch {
	case q.TopK <= 0:
		return DefaultTopK
	case q.TopK > MaxTopK:
		return MaxTopK
	default:
		return q.TopK
	}
}

// CandidateLimit is the length of each ranked list fetched before fusion.
func (q Query) CandidateLimit() int {
	return q.Limit() * PrefetchFactor
}

// Hit is one ranked query result.
type Hit struct {
	ID     string `json:"id"`
	ISRC   string `json:"isrc"`
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Album  string `json:"album"`

	// Score is the fused RRF score, or the cosine similarity when the query had no
	// sparse terms.
	Score float64 `json:"score"`

	// DenseScore is the cosine similarity, zero when the hit came only from the
	// sparse list.
	DenseScore float32 `json:"dense_score"`

	ShortDescription *string             `json:"short_description,omitempty"`
	AudioFeatures    *track.AudioFeatures `json:"audio_features,omitempty"`
}

// HitFromDocument copies the response fields of doc into a Hit.
func HitFromDocument(doc *track.TrackDocument) Hit {
	return Hit{
		ID:               doc.ID,
		ISRC:             doc.ISRC,
		Title:            doc.Title,
		Artist:           doc.Artist,
		Album:            doc.Album,
		ShortDescription: doc.ShortDescription,
		AudioFeatures:    doc.AudioFeatures,
	}
}

// Collection describes the backing collection.
type Collection struct {
	Name       string `json:"name"`
	Status     string `json:"status"`
	Dimension  int    `json:"dimension"`
	PointCount uint64 `json:"pointCount"`
}

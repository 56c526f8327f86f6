package search

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/Aleph-Alpha/trackindex/v1/isrc"
	"github.com/Aleph-Alpha/trackindex/v1/sparseembedding"
	"github.com/Aleph-Alpha/trackindex/v1/track"
	"github.com/Aleph-Alpha/trackindex/v1/vectordb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type embedFunc func(ctx context.Context, text string) ([]float32, error)

func (f embedFunc) Embed(ctx context.Context, text string) ([]float32, error) { return f(ctx, text) }

func seededIndex(t *testing.T) *vectordb.MemoryIndex {
	t.Helper()
	ctx := context.Background()
	idx := vectordb.NewMemoryIndex(2)
	require.NoError(t, idx.EnsureSchema(ctx))

	docs := []struct {
		code, title, artist string
		vec                 []float32
	}{
		{"USRC17607839", "Piano Ballad", "Ana", []float32{1, 0}},
		{"GBAYE0000351", "Drum Storm", "Ben", []float32{0, 1}},
	}
	for _, d := range docs {
		doc := &track.TrackDocument{
			ID: isrc.MustDeriveID(d.code), ISRC: d.code, Title: d.title, Artist: d.artist, DenseEmbedding: d.vec,
		}
		require.NoError(t, idx.Upsert(ctx, doc, sparseembedding.EncodeFields(doc.TextFields()...)))
	}
	return idx
}

func TestSearchEmbedsQueryText(t *testing.T) {
	var embedded atomic.Value
	svc := NewService(embedFunc(func(ctx context.Context, text string) ([]float32, error) {
		embedded.Store(text)
		return []float32{1, 0}, nil
	}), seededIndex(t))

	hits, err := svc.Search(context.Background(), Request{QueryText: "  piano ballad ", TopK: 1})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "USRC17607839", hits[0].ISRC)
	assert.Equal(t, "piano ballad", embedded.Load())
}

func TestSearchUsesSuppliedEmbedding(t *testing.T) {
	svc := NewService(embedFunc(func(context.Context, string) ([]float32, error) {
		t.Fatal("embedder must not be called")
		return nil, nil
	}), seededIndex(t))

	hits, err := svc.Search(context.Background(), Request{QueryEmbedding: []float32{0, 1}})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "GBAYE0000351", hits[0].ISRC)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6, "dense-only ranking scores by cosine")
}

func TestSearchParaphrasesWidenSparseQuery(t *testing.T) {
	svc := NewService(nil, seededIndex(t))

	// Only the paraphrase matches the drum track's terms.
	hits, err := svc.Search(context.Background(), Request{
		QueryText:      "ballad",
		QueryEmbedding: []float32{1, 0},
		Paraphrases:    []string{"drum storm"},
	})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	for _, h := range hits {
		assert.Greater(t, h.Score, 0.0)
	}
	assert.ElementsMatch(t, []string{"USRC17607839", "GBAYE0000351"}, []string{hits[0].ISRC, hits[1].ISRC})
}

func TestSearchFilter(t *testing.T) {
	svc := NewService(nil, seededIndex(t))
	hits, err := svc.Search(context.Background(), Request{
		QueryEmbedding: []float32{1, 0},
		Filter:         &vectordb.Filter{Must: []vectordb.Condition{vectordb.MatchCondition{Field: vectordb.FieldArtist, Value: "Ben"}}},
	})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "GBAYE0000351", hits[0].ISRC)
}

func TestSearchErrors(t *testing.T) {
	idx := seededIndex(t)

	_, err := NewService(nil, idx).Search(context.Background(), Request{QueryText: "   "})
	assert.ErrorIs(t, err, ErrEmptyQuery)

	_, err = NewService(nil, idx).Search(context.Background(), Request{QueryText: "piano"})
	assert.Error(t, err)

	boom := errors.New("embedding service unavailable")
	_, err = NewService(embedFunc(func(context.Context, string) ([]float32, error) { return nil, boom }), idx).
		Search(context.Background(), Request{QueryText: "piano"})
	assert.ErrorIs(t, err, boom)

	_, err = NewService(nil, idx).Search(context.Background(), Request{QueryEmbedding: []float32{1, 0, 0}})
	assert.ErrorIs(t, err, vectordb.ErrInvalidQuery)
}

func TestSparseQueryCombines(t *testing.T) {
	assert.True(t, SparseQuery("").IsEmpty())

	q := SparseQuery("piano", "piano ballad")
	m := q.AsMap()
	assert.Len(t, m, 2)
	assert.Contains(t, m, sparseembedding.HashToken("ballad"))
}

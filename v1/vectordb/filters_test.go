package vectordb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aleph-Alpha/trackindex/v1/track"
)

func samplePayload(t *testing.T) map[string]any {
	t.Helper()
	desc := "A theatrical rock epic in several movements."
	payload, err := DocumentPayload(&track.TrackDocument{
		ID: "id", ISRC: "USRC17607839", Title: "Bohemian Rhapsody", Artist: "Queen", Album: "A Night at the Opera",
		ShortDescription: &desc,
		AudioFeatures:    &track.AudioFeatures{Energy: track.Float(0.85), Tempo: track.Float(150), Mode: track.Int(1)},
		IndexedAt:        time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return payload
}

func ptr(v float64) *float64 { return &v }

func TestFilterMatches(t *testing.T) {
	payload := samplePayload(t)
	since := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	later := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		filter *Filter
		want   bool
	}{
		{"nil filter", nil, true},
		{"artist", NewFilter(Artist("Queen")), true},
		{"artist case sensitive", NewFilter(Artist("queen")), false},
		{"album", NewFilter(Album("A Night at the Opera")), true},
		{"match any", NewFilter(MatchAnyCondition{Field: FieldArtist, Values: []string{"ABBA", "Queen"}}), true},
		{"text all words", NewFilter(TextCondition{Field: FieldShortDescription, Text: "Rock EPIC"}), true},
		{"text missing word", NewFilter(TextCondition{Field: FieldShortDescription, Text: "rock ballad"}), false},
		{"tempo range", NewFilter(Feature("tempo", NumericRange{Gte: ptr(120), Lt: ptr(160)})), true},
		{"tempo too low", NewFilter(Feature("tempo", NumericRange{Gt: ptr(150)})), false},
		{"mode", NewFilter(Feature("mode", NumericRange{Gte: ptr(1), Lte: ptr(1)})), true},
		{"absent feature", NewFilter(Feature("valence", NumericRange{Gte: ptr(0)})), false},
		{"indexed since", NewFilter(IndexedSince(since)), true},
		{"indexed later", NewFilter(IndexedSince(later)), false},
		{"must not", NewFilter().Not(Artist("Queen")), false},
		{"must and must not", NewFilter(Artist("Queen")).Not(Album("Jazz")), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Matches(payload))
		})
	}
}

func TestFilterValidate(t *testing.T) {
	assert.NoError(t, (*Filter)(nil).Validate())
	assert.NoError(t, NewFilter(Artist("Queen")).Validate())
	assert.ErrorIs(t, NewFilter(MatchCondition{Value: "x"}).Validate(), ErrInvalidQuery)
	assert.ErrorIs(t, NewFilter(Feature("tempo", NumericRange{})).Validate(), ErrInvalidQuery)
	assert.ErrorIs(t, NewFilter(TextCondition{Field: FieldTitle, Text: " ! "}).Validate(), ErrInvalidQuery)
	assert.ErrorIs(t, NewFilter(MatchAnyCondition{Field: FieldArtist}).Validate(), ErrInvalidQuery)
	assert.ErrorIs(t, NewFilter(TimeRangeCondition{Field: FieldIndexedAt}).Validate(), ErrInvalidQuery)
	assert.True(t, NewFilter().IsEmpty())
}

func TestPayloadRoundTrip(t *testing.T) {
	lyrics := "Is this the real life?"
	doc := &track.TrackDocument{
		ID: "5b0c6a4e-0000-0000-0000-000000000000", ISRC: "USRC17607839",
		Title: "Bohemian Rhapsody", Artist: "Queen", Album: "A Night at the Opera",
		Lyrics:        &lyrics,
		AudioFeatures: &track.AudioFeatures{Energy: track.Float(0.85), Key: track.Int(-1)},
		IndexedAt:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	payload, err := DocumentPayload(doc)
	require.NoError(t, err)
	assert.NotContains(t, payload, "dense_embedding")
	assert.NotContains(t, payload, FieldInterpretation)

	back, err := DocumentFromPayload(doc.ID, payload, []float32{1, 2})
	require.NoError(t, err)
	assert.Equal(t, doc.ISRC, back.ISRC)
	assert.Equal(t, lyrics, *back.Lyrics)
	assert.Equal(t, 0.85, *back.AudioFeatures.Energy)
	assert.Equal(t, -1, *back.AudioFeatures.Key)
	assert.True(t, doc.IndexedAt.Equal(back.IndexedAt))
	assert.Equal(t, []float32{1, 2}, back.DenseEmbedding)
}

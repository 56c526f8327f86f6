package vectordb

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Aleph-Alpha/trackindex/v1/track"
)

// payloadDocument is the stored payload: the document without its vectors.
type payloadDocument struct {
	ISRC             string               `json:"isrc"`
	Title            string               `json:"title"`
	Artist           string               `json:"artist"`
	Album            string               `json:"album"`
	Lyrics           *string              `json:"lyrics,omitempty"`
	Interpretation   *string              `json:"interpretation,omitempty"`
	ShortDescription *string              `json:"short_description,omitempty"`
	AudioFeatures    *track.AudioFeatures `json:"audio_features,omitempty"`
	IndexedAt        time.Time            `json:"indexed_at"`
}

// DocumentPayload flattens doc into the JSON-shaped payload stored next to its
// vectors. Numbers become float64, timestamps RFC 3339 strings.
func DocumentPayload(doc *track.TrackDocument) (map[string]any, error) {
	data, err := json.Marshal(payloadDocument{
		ISRC:             doc.ISRC,
		Title:            doc.Title,
		Artist:           doc.Artist,
		Album:            doc.Album,
		Lyrics:           doc.Lyrics,
		Interpretation:   doc.Interpretation,
		ShortDescription: doc.ShortDescription,
		AudioFeatures:    doc.AudioFeatures,
		IndexedAt:        doc.IndexedAt.UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return payload, nil
}

// DocumentFromPayload rebuilds a document from its id, payload and dense vector.
func DocumentFromPayload(id string, payload map[string]any, dense []float32) (*track.TrackDocument, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	var p payloadDocument
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return &track.TrackDocument{
		ID:               id,
		ISRC:             p.ISRC,
		Title:            p.Title,
		Artist:           p.Artist,
		Album:            p.Album,
		Lyrics:           p.Lyrics,
		Interpretation:   p.Interpretation,
		ShortDescription: p.ShortDescription,
		AudioFeatures:    p.AudioFeatures,
		DenseEmbedding:   dense,
		IndexedAt:        p.IndexedAt,
	}, nil
}

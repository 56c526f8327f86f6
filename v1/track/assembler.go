package track

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Aleph-Alpha/trackindex/v1/isrc"
)

// Parts are the resolved outputs of the upstream pipeline stages.
type Parts struct {
	ISRC           string
	Metadata       Metadata
	Lyrics         *string
	AudioFeatures  *AudioFeatures
	Interpretation *string

	// Descriptions holds the short descriptions the interpretation stage generated,
	// keyed by the prompt they came from.
	Descriptions map[DescriptionSource]string

	Embedding []float32
}

// Assembler builds validated documents for an index of a fixed dense dimension.
type Assembler struct {
	Dimension int
	Now       func() time.Time
}

// NewAssembler returns an Assembler enforcing the given embedding dimension.
func NewAssembler(dimension int) *Assembler {
	return &Assembler{Dimension: dimension, Now: time.Now}
}

// Assemble validates parts and merges them into a TrackDocument.
func (a *Assembler) Assemble(p Parts) (*TrackDocument, error) {
	code, err := isrc.Normalize(p.ISRC)
	if err != nil {
		return nil, &ValidationError{Field: "isrc", Reason: "not 12 alphanumeric characters", Err: err}
	}
	id, err := isrc.DeriveID(code)
	if err != nil {
		return nil, &ValidationError{Field: "isrc", Reason: "cannot derive id", Err: err}
	}

	if err := a.validateEmbedding(p.Embedding); err != nil {
		return nil, err
	}

	meta := Metadata{
		Title:  strings.TrimSpace(p.Metadata.Title),
		Artist: strings.TrimSpace(p.Metadata.Artist),
		Album:  strings.TrimSpace(p.Metadata.Album),
	}
	for _, f := range [...]struct{ name, value string }{
		{"title", meta.Title}, {"artist", meta.Artist}, {"album", meta.Album},
	} {
		if f.value == "" {
			return nil, &ValidationError{Field: f.name, Reason: "required"}
		}
	}

	features := p.AudioFeatures
	if features.IsEmpty() {
		features = nil
	}
	if err := features.Validate(); err != nil {
		return nil, err
	}

	now := time.Now
	if a.Now != nil {
		now = a.Now
	}

	return &TrackDocument{
		ID:               id,
		ISRC:             code,
		Title:            meta.Title,
		Artist:           meta.Artist,
		Album:            meta.Album,
		Lyrics:           nonBlank(p.Lyrics),
		Interpretation:   nonBlank(p.Interpretation),
		ShortDescription: ChooseShortDescription(p.Descriptions),
		AudioFeatures:    features,
		DenseEmbedding:   p.Embedding,
		IndexedAt:        now().UTC(),
	}, nil
}

func (a *Assembler) validateEmbedding(v []float32) error {
	if len(v) == 0 {
		return &ValidationError{Field: "dense_embedding", Reason: "missing"}
	}
	if a.Dimension > 0 && len(v) != a.Dimension {
		return &ValidationError{
			Field:  "dense_embedding",
			Reason: fmt.Sprintf("length %d, want %d", len(v), a.Dimension),
		}
	}
	for i, x := range v {
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			return &ValidationError{Field: "dense_embedding", Reason: fmt.Sprintf("non-finite value at %d", i)}
		}
	}
	return nil
}

// ChooseShortDescription picks the first non-blank description in
// DescriptionPreference order and caps it at MaxShortDescriptionLength characters.
// It returns nil when none is available.
func ChooseShortDescription(candidates map[DescriptionSource]string) *string {
	for _, source := range DescriptionPreference {
		text := strings.TrimSpace(candidates[source])
		if text == "" {
			continue
		}
		text = Truncate(text, MaxShortDescriptionLength)
		return &text
	}
	return nil
}

// Truncate shortens s to at most n characters, preferring to cut at a word boundary
// in the last fifth of the allowed length.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)[:n]
	cut := strings.LastIndexFunc(string(runes), func(r rune) bool { return r == ' ' || r == '\n' })
	if cut > 0 && utf8.RuneCountInString(string(runes)[:cut]) >= n*4/5 {
		return strings.TrimSpace(string(runes)[:cut])
	}
	return strings.TrimSpace(string(runes))
}

func nonBlank(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}

package track

import "time"

// MaxShortDescriptionLength bounds ShortDescription, in characters.
const MaxShortDescriptionLength = 500

// AudioFeatures holds the optional numeric descriptors of a recording. A nil field
// means the provider has no value for it.
type AudioFeatures struct {
	Danceability     *float64 `json:"danceability,omitempty" msgpack:"danceability,omitempty"`
	Energy           *float64 `json:"energy,omitempty" msgpack:"energy,omitempty"`
	Speechiness      *float64 `json:"speechiness,omitempty" msgpack:"speechiness,omitempty"`
	Acousticness     *float64 `json:"acousticness,omitempty" msgpack:"acousticness,omitempty"`
	Instrumentalness *float64 `json:"instrumentalness,omitempty" msgpack:"instrumentalness,omitempty"`
	Liveness         *float64 `json:"liveness,omitempty" msgpack:"liveness,omitempty"`
	Valence          *float64 `json:"valence,omitempty" msgpack:"valence,omitempty"`
	Loudness         *float64 `json:"loudness,omitempty" msgpack:"loudness,omitempty"`
	Tempo            *float64 `json:"tempo,omitempty" msgpack:"tempo,omitempty"`
	Mode             *int     `json:"mode,omitempty" msgpack:"mode,omitempty"`
	Key              *int     `json:"key,omitempty" msgpack:"key,omitempty"`
}

// IsEmpty reports whether no feature is present.
func (a *AudioFeatures) IsEmpty() bool {
	if a == nil {
		return true
	}
	for _, f := range a.floatFields() {
		if f.value != nil {
			return false
		}
	}
	return a.Mode == nil && a.Key == nil
}

// DescriptionSource names the prompt a short description was generated from.
type DescriptionSource string

const (
	FromLyrics        DescriptionSource = "lyrics"
	FromAudioFeatures DescriptionSource = "audio_features"
	FromMetadata      DescriptionSource = "metadata"
)

// DescriptionPreference is the order in which generated short descriptions are used.
var DescriptionPreference = []DescriptionSource{FromLyrics, FromAudioFeatures, FromMetadata}

// TrackDocument is the indexed representation of a recording.
type TrackDocument struct {
	ID               string         `json:"id"`
	ISRC             string         `json:"isrc"`
	Title            string         `json:"title"`
	Artist           string         `json:"artist"`
	Album            string         `json:"album"`
	Lyrics           *string        `json:"lyrics,omitempty"`
	Interpretation   *string        `json:"interpretation,omitempty"`
	ShortDescription *string        `json:"short_description,omitempty"`
	AudioFeatures    *AudioFeatures `json:"audio_features,omitempty"`
	DenseEmbedding   []float32      `json:"dense_embedding"`
	IndexedAt        time.Time      `json:"indexed_at"`
}

// TextFields returns the free-text fields in a fixed order, empty when absent.
func (d *TrackDocument) TextFields() []string {
	return []string{d.Title, d.Artist, d.Album, deref(d.Lyrics), deref(d.Interpretation), deref(d.ShortDescription)}
}

// Metadata identifies a recording by its catalogue fields.
type Metadata struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Album  string `json:"album"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

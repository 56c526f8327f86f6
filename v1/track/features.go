package track

import (
	"fmt"
	"math"
)

type floatField struct {
	name     string
	value    *float64
	min, max float64
}

func (a *AudioFeatures) floatFields() []floatField {
	return []floatField{
		{"danceability", a.Danceability, 0, 1},
		{"energy", a.Energy, 0, 1},
		{"speechiness", a.Speechiness, 0, 1},
		{"acousticness", a.Acousticness, 0, 1},
		{"instrumentalness", a.Instrumentalness, 0, 1},
		{"liveness", a.Liveness, 0, 1},
		{"valence", a.Valence, 0, 1},
		{"loudness", a.Loudness, -60, 0},
		{"tempo", a.Tempo, 0, 250},
	}
}

// Validate checks every present feature against its range. A nil receiver is valid.
func (a *AudioFeatures) Validate() error {
	if a == nil {
		return nil
	}
	for _, f := range a.floatFields() {
		if f.value == nil {
			continue
		}
		v := *f.value
		if math.IsNaN(v) || v < f.min || v > f.max {
			return &ValidationError{
				Field:  "audio_features." + f.name,
				Reason: fmt.Sprintf("%v outside [%v, %v]", v, f.min, f.max),
			}
		}
	}
	if a.Mode != nil && *a.Mode != 0 && *a.Mode != 1 {
		return &ValidationError{Field: "audio_features.mode", Reason: fmt.Sprintf("%d is not 0 or 1", *a.Mode)}
	}
	if a.Key != nil && (*a.Key < -1 || *a.Key > 11) {
		return &ValidationError{Field: "audio_features.key", Reason: fmt.Sprintf("%d outside [-1, 11]", *a.Key)}
	}
	return nil
}

// Describe renders the present features as "name=value" pairs for prompts.
func (a *AudioFeatures) Describe() []string {
	if a == nil {
		return nil
	}
	var out []string
	for _, f := range a.floatFields() {
		if f.value != nil {
			out = append(out, fmt.Sprintf("%s=%g", f.name, *f.value))
		}
	}
	if a.Mode != nil {
		mode := "minor"
		if *a.Mode == 1 {
			mode = "major"
		}
		out = append(out, "mode="+mode)
	}
	if a.Key != nil && *a.Key >= 0 && *a.Key < len(pitchClasses) {
		out = append(out, "key="+pitchClasses[*a.Key])
	}
	return out
}

var pitchClasses = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// Float returns a pointer to v, for building AudioFeatures literals.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }

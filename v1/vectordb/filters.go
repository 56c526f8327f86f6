package vectordb

import (
	"fmt"
	"strings"
	"time"

	"github.com/Aleph-Alpha/trackindex/v1/sparseembedding"
)

// Condition is one payload predicate.
type Condition interface {
	isCondition()
	field() string
}

// Filter restricts a query to documents matching every Must condition and none of
// the MustNot conditions.
type Filter struct {
	Must    []Condition
	MustNot []Condition
}

// MatchCondition requires the field to equal Value exactly.
type MatchCondition struct {
	Field string
	Value string
}

// MatchAnyCondition requires the field to equal one of Values.
type MatchAnyCondition struct {
	Field  string
	Values []string
}

// TextCondition requires every word of Text to occur in a full-text indexed field.
type TextCondition struct {
	Field string
	Text  string
}

// NumericRange bounds a number. Nil bounds are open.
type NumericRange struct {
	Gt  *float64
	Gte *float64
	Lt  *float64
	Lte *float64
}

// RangeCondition requires a numeric field, e.g. "audio_features.tempo", to fall in Range.
type RangeCondition struct {
	Field string
	Range NumericRange
}

// TimeRange bounds a timestamp. Nil bounds are open.
type TimeRange struct {
	Gte *time.Time
	Lte *time.Time
}

// TimeRangeCondition requires an RFC 3339 timestamp field to fall in Range.
type TimeRangeCondition struct {
	Field string
	Range TimeRange
}

func (MatchCondition) isCondition()     {}
func (MatchAnyCondition) isCondition()  {}
func (TextCondition) isCondition()      {}
func (RangeCondition) isCondition()     {}
func (TimeRangeCondition) isCondition() {}

func (c MatchCondition) field() string     { return c.Field }
func (c MatchAnyCondition) field() string  { return c.Field }
func (c TextCondition) field() string      { return c.Field }
func (c RangeCondition) field() string     { return c.Field }
func (c TimeRangeCondition) field() string { return c.Field }

// NewFilter returns a filter requiring all conditions.
func NewFilter(conditions ...Condition) *Filter {
	return &Filter{Must: conditions}
}

// Not adds exclusion conditions and returns f.
func (f *Filter) Not(conditions ...Condition) *Filter {
	f.MustNot = append(f.MustNot, conditions...)
	return f
}

// IsEmpty reports whether the filter has no conditions.
func (f *Filter) IsEmpty() bool {
	return f == nil || (len(f.Must) == 0 && len(f.MustNot) == 0)
}

// Validate rejects conditions without a field and empty ranges.
func (f *Filter) Validate() error {
	if f == nil {
		return nil
	}
	for _, c := range append(append([]Condition(nil), f.Must...), f.MustNot...) {
		if c == nil || c.field() == "" {
			return fmt.Errorf("%w: condition without field", ErrInvalidQuery)
		}
		switch v := c.(type) {
		case RangeCondition:
			if v.Range.Gt == nil && v.Range.Gte == nil && v.Range.Lt == nil && v.Range.Lte == nil {
				return fmt.Errorf("%w: empty range on %s", ErrInvalidQuery, v.Field)
			}
		case TimeRangeCondition:
			if v.Range.Gte == nil && v.Range.Lte == nil {
				return fmt.Errorf("%w: empty time range on %s", ErrInvalidQuery, v.Field)
			}
		case TextCondition:
			if len(sparseembedding.Tokenize(v.Text)) == 0 {
				return fmt.Errorf("%w: text condition on %s has no words", ErrInvalidQuery, v.Field)
			}
		case MatchAnyCondition:
			if len(v.Values) == 0 {
				return fmt.Errorf("%w: match-any on %s without values", ErrInvalidQuery, v.Field)
			}
		}
	}
	return nil
}

// Matches evaluates the filter against a payload as produced by DocumentPayload.
func (f *Filter) Matches(payload map[string]any) bool {
	if f == nil {
		return true
	}
	for _, c := range f.Must {
		if !matches(c, payload) {
			return false
		}
	}
	for _, c := range f.MustNot {
		if matches(c, payload) {
			return false
		}
	}
	return true
}

func matches(c Condition, payload map[string]any) bool {
	value, ok := lookup(payload, c.field())
	if !ok {
		return false
	}
	switch v := c.(type) {
	case MatchCondition:
		s, ok := value.(string)
		return ok && s == v.Value
	case MatchAnyCondition:
		s, ok := value.(string)
		if !ok {
			return false
		}
		for _, want := range v.Values {
			if s == want {
				return true
			}
		}
		return false
	case TextCondition:
		s, ok := value.(string)
		if !ok {
			return false
		}
		have := make(map[string]bool)
		for _, tok := range sparseembedding.Tokenize(s) {
			have[tok] = true
		}
		for _, tok := range sparseembedding.Tokenize(v.Text) {
			if !have[tok] {
				return false
			}
		}
		return true
	case RangeCondition:
		n, ok := toFloat(value)
		return ok && v.Range.contains(n)
	case TimeRangeCondition:
		s, ok := value.(string)
		if !ok {
			return false
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		return err == nil && v.Range.contains(t)
	default:
		return false
	}
}

func (r NumericRange) contains(n float64) bool {
	return (r.Gt == nil || n > *r.Gt) &&
		(r.Gte == nil || n >= *r.Gte) &&
		(r.Lt == nil || n < *r.Lt) &&
		(r.Lte == nil || n <= *r.Lte)
}

func (r TimeRange) contains(t time.Time) bool {
	return (r.Gte == nil || !t.Before(*r.Gte)) && (r.Lte == nil || !t.After(*r.Lte))
}

// lookup resolves a dotted path in a nested payload.
func lookup(payload map[string]any, path string) (any, bool) {
	var current any = payload
	for _, part := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok || current == nil {
			return nil, false
		}
	}
	return current, true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// Artist is shorthand for an exact artist match.
func Artist(name string) Condition { return MatchCondition{Field: FieldArtist, Value: name} }

// Album is shorthand for an exact album match.
func Album(name string) Condition { return MatchCondition{Field: FieldAlbum, Value: name} }

// Feature bounds one audio feature, e.g. Feature("tempo", NumericRange{Gte: &min}).
func Feature(name string, r NumericRange) Condition {
	return RangeCondition{Field: FieldAudioFeatures + "." + name, Range: r}
}

// IndexedSince keeps documents indexed at or after t.
func IndexedSince(t time.Time) Condition {
	return TimeRangeCondition{Field: FieldIndexedAt, Range: TimeRange{Gte: &t}}
}

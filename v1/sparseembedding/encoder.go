package sparseembedding

import (
	"crypto/md5"
	"encoding/binary"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// K is the term-frequency saturation constant. Weights are float32, so they are
// strictly increasing in tf only up to tf 4545, and round to 1 from about tf 1e8.
const K = 1.2

// SparseEmbedding is a sparse vector: Indices[i] carries weight Values[i].
type SparseEmbedding struct {
	Indices []uint32  `json:"indices"`
	Values  []float32 `json:"values"`
}

// IsEmpty reports whether the vector has no terms.
func (s SparseEmbedding) IsEmpty() bool {
	return len(s.Indices) == 0
}

// Len returns the number of terms.
func (s SparseEmbedding) Len() int {
	return len(s.Indices)
}

// AsMap returns the vector as index -> weight.
func (s SparseEmbedding) AsMap() map[uint32]float32 {
	m := make(map[uint32]float32, len(s.Indices))
	for i, idx := range s.Indices {
		m[idx] = s.Values[i]
	}
	return m
}

// Tokenize lower-cases text, turns every rune that is not a word character into a
// separator and keeps tokens longer than one rune.
func Tokenize(text string) []string {
	cleaned := strings.Map(func(r rune) rune {
		if isWordRune(r) {
			return r
		}
		return ' '
	}, strings.ToLower(text))

	fields := strings.Fields(cleaned)
	tokens := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) > 1 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)
}

// HashToken returns the first four bytes of the token's MD5 digest, big-endian.
func HashToken(token string) uint32 {
	sum := md5.Sum([]byte(token))
	return binary.BigEndian.Uint32(sum[:4])
}

// Weight is the saturated term-frequency weight tf/(tf+K). It is 0 for tf <= 0.
func Weight(tf int) float32 {
	if tf <= 0 {
		return 0
	}
	f := float64(tf)
	return float32(f / (f + K))
}

// Encode builds the sparse embedding of text. Empty or whitespace-only text, or text
// without any token longer than one rune, yields an empty embedding.
func Encode(text string) SparseEmbedding {
	counts := make(map[uint32]int)
	for _, token := range Tokenize(text) {
		counts[HashToken(token)]++
	}

	weights := make(map[uint32]float32, len(counts))
	for idx, tf := range counts {
		weights[idx] = Weight(tf)
	}
	return fromMap(weights)
}

// EncodeFields encodes the concatenation of several text fields, skipping empty ones.
// Term frequencies accumulate across fields.
func EncodeFields(fields ...string) SparseEmbedding {
	nonEmpty := make([]string, 0, len(fields))
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			nonEmpty = append(nonEmpty, f)
		}
	}
	return Encode(strings.Join(nonEmpty, " "))
}

// Combine sums the weights of matching indices across vectors.
func Combine(vectors ...SparseEmbedding) SparseEmbedding {
	sum := make(map[uint32]float32)
	for _, v := range vectors {
		for i, idx := range v.Indices {
			sum[idx] += v.Values[i]
		}
	}
	return fromMap(sum)
}

func fromMap(m map[uint32]float32) SparseEmbedding {
	if len(m) == 0 {
		return SparseEmbedding{}
	}
	out := SparseEmbedding{
		Indices: make([]uint32, 0, len(m)),
		Values:  make([]float32, 0, len(m)),
	}
	for idx := range m {
		out.Indices = append(out.Indices, idx)
	}
	sort.Slice(out.Indices, func(i, j int) bool { return out.Indices[i] < out.Indices[j] })
	for _, idx := range out.Indices {
		out.Values = append(out.Values, m[idx])
	}
	return out
}

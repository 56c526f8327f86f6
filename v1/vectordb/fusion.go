package vectordb

import "sort"

// RRFConstant dampens the weight of top ranks in reciprocal rank fusion.
const RRFConstant = 60

// Candidate is an entry of one ranked list, best first.
type Candidate struct {
	ID    string
	Score float32
}

// Fused is a candidate after fusion.
type Fused struct {
	ID         string
	Score      float64
	DenseScore float32
	DenseRank  int // 1-based, 0 when absent from the dense list
	SparseRank int // 1-based, 0 when absent from the sparse list
}

// FuseRRF merges two ranked lists with reciprocal rank fusion: every candidate scores
// the sum of 1/(rank + c) over the lists it appears in, ranks starting at 1. Ties are
// broken by dense similarity (absent from the dense list sorts last), then by ID.
// Duplicate IDs within a list keep their best rank. A non-positive c uses
// RRFConstant; a non-positive limit keeps every candidate.
func FuseRRF(dense, sparse []Candidate, c float64, limit int) []Fused {
	if c <= 0 {
		c = RRFConstant
	}

	byID := make(map[string]*Fused, len(dense)+len(sparse))
	get := func(id string) *Fused {
		f, ok := byID[id]
		if !ok {
			f = &Fused{ID: id}
			byID[id] = f
		}
		return f
	}

	for i, cand := range dense {
		f := get(cand.ID)
		if f.DenseRank != 0 {
			continue
		}
		f.DenseRank = i + 1
		f.DenseScore = cand.Score
		f.Score += 1 / (float64(i+1) + c)
	}
	for i, cand := range sparse {
		f := get(cand.ID)
		if f.SparseRank != 0 {
			continue
		}
		f.SparseRank = i + 1
		f.Score += 1 / (float64(i+1) + c)
	}

	out := make([]Fused, 0, len(byID))
	for _, f := range byID {
		out = append(out, *f)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		aDense, bDense := a.DenseRank != 0, b.DenseRank != 0
		if aDense != bDense {
			return aDense
		}
		if a.DenseScore != b.DenseScore {
			return a.DenseScore > b.DenseScore
		}
		return a.ID < b.ID
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// RankDense orders dense-only candidates by similarity and converts them to Fused
// with the similarity as score.
func RankDense(dense []Candidate, limit int) []Fused {
	out := make([]Fused, 0, len(dense))
	seen := make(map[string]bool, len(dense))
	for _, cand := range dense {
		if seen[cand.ID] {
			continue
		}
		seen[cand.ID] = true
		out = append(out, Fused{ID: cand.ID, Score: float64(cand.Score), DenseScore: cand.Score})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DenseScore != out[j].DenseScore {
			return out[i].DenseScore > out[j].DenseScore
		}
		return out[i].ID < out[j].ID
	})
	for i := range out {
		out[i].DenseRank = i + 1
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

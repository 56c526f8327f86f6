package vectordb

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/Aleph-Alpha/trackindex/v1/isrc"
	"github.com/Aleph-Alpha/trackindex/v1/sparseembedding"
	"github.com/Aleph-Alpha/trackindex/v1/track"
)

type memoryEntry struct {
	doc     *track.TrackDocument
	payload map[string]any
	sparse  map[uint32]float32
}

// MemoryIndex is an in-process HybridIndex. It scores sparse matches with the same
// BM25 IDF the vector store applies, so rankings agree with a real collection of the
// same content. Intended for tests and local runs.
type MemoryIndex struct {
	mu        sync.RWMutex
	dimension int
	ensured   bool
	entries   map[string]*memoryEntry

	// Upserts counts successful writes, including replacements.
	upserts int
}

var _ HybridIndex = (*MemoryIndex)(nil)

// NewMemoryIndex creates an empty index for vectors of the given dimension.
func NewMemoryIndex(dimension int) *MemoryIndex {
	return &MemoryIndex{dimension: dimension, entries: make(map[string]*memoryEntry)}
}

func (m *MemoryIndex) EnsureSchema(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dimension <= 0 {
		return &IndexWriteError{Op: "ensure schema", Schema: true, Err: fmt.Errorf("invalid dimension %d", m.dimension)}
	}
	m.ensured = true
	return nil
}

func (m *MemoryIndex) Upsert(ctx context.Context, doc *track.TrackDocument, sparse sparseembedding.SparseEmbedding) error {
	if err := ctx.Err(); err != nil {
		return &IndexWriteError{Op: "upsert", Err: err}
	}
	if len(doc.DenseEmbedding) != m.dimension {
		return &IndexWriteError{
			Op:     "upsert",
			Schema: true,
			Err:    fmt.Errorf("dense vector of length %d, collection expects %d", len(doc.DenseEmbedding), m.dimension),
		}
	}
	payload, err := DocumentPayload(doc)
	if err != nil {
		return &IndexWriteError{Op: "upsert", Schema: true, Err: err}
	}

	stored := *doc
	stored.DenseEmbedding = append([]float32(nil), doc.DenseEmbedding...)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[doc.ID] = &memoryEntry{doc: &stored, payload: payload, sparse: sparse.AsMap()}
	m.upserts++
	return nil
}

func (m *MemoryIndex) Query(ctx context.Context, q Query) ([]Hit, error) {
	if err := q.Filter.Validate(); err != nil {
		return nil, err
	}
	if len(q.Dense) != m.dimension {
		return nil, fmt.Errorf("%w: dense query of length %d, collection expects %d", ErrInvalidQuery, len(q.Dense), m.dimension)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	candidates := make([]*memoryEntry, 0, len(m.entries))
	for _, e := range m.entries {
		if q.Filter.Matches(e.payload) {
			candidates = append(candidates, e)
		}
	}

	dense := m.denseList(q.Dense, candidates, q.CandidateLimit())

	var fused []Fused
	if q.Sparse.IsEmpty() {
		fused = RankDense(dense, q.Limit())
	} else {
		fused = FuseRRF(dense, m.sparseList(q.Sparse, candidates, q.CandidateLimit()), RRFConstant, q.Limit())
	}

	hits := make([]Hit, 0, len(fused))
	for _, f := range fused {
		hit := HitFromDocument(m.entries[f.ID].doc)
		hit.Score = f.Score
		hit.DenseScore = f.DenseScore
		hits = append(hits, hit)
	}
	return hits, nil
}

func (m *MemoryIndex) denseList(query []float32, entries []*memoryEntry, limit int) []Candidate {
	out := make([]Candidate, 0, len(entries))
	for _, e := range entries {
		out = append(out, Candidate{ID: e.doc.ID, Score: Cosine(query, e.doc.DenseEmbedding)})
	}
	return topCandidates(out, limit)
}

// sparseList scores documents by sum(q * d * idf) over shared terms, where
// idf = ln(1 + (N - n + 0.5) / (n + 0.5)) over the whole collection.
func (m *MemoryIndex) sparseList(query sparseembedding.SparseEmbedding, entries []*memoryEntry, limit int) []Candidate {
	total := float64(len(m.entries))
	idf := make(map[uint32]float64, query.Len())
	for _, idx := range query.Indices {
		var n float64
		for _, e := range m.entries {
			if _, ok := e.sparse[idx]; ok {
				n++
			}
		}
		idf[idx] = math.Log(1 + (total-n+0.5)/(n+0.5))
	}

	out := make([]Candidate, 0, len(entries))
	for _, e := range entries {
		var score float64
		for i, idx := range query.Indices {
			if w, ok := e.sparse[idx]; ok {
				score += float64(query.Values[i]) * float64(w) * idf[idx]
			}
		}
		if score > 0 {
			out = append(out, Candidate{ID: e.doc.ID, Score: float32(score)})
		}
	}
	return topCandidates(out, limit)
}

func topCandidates(c []Candidate, limit int) []Candidate {
	sort.Slice(c, func(i, j int) bool {
		if c[i].Score != c[j].Score {
			return c[i].Score > c[j].Score
		}
		return c[i].ID < c[j].ID
	})
	if limit > 0 && len(c) > limit {
		c = c[:limit]
	}
	return c
}

func (m *MemoryIndex) Get(ctx context.Context, code string) (*track.TrackDocument, error) {
	id, err := isrc.DeriveID(code)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	doc := *e.doc
	return &doc, nil
}

func (m *MemoryIndex) Count(ctx context.Context) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return uint64(len(m.entries)), nil
}

// Upserts returns the number of successful writes so far.
func (m *MemoryIndex) Upserts() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.upserts
}

// Cosine returns the cosine similarity of a and b, 0 when either is zero or the
// lengths differ.
func Cosine(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

package qdrant

import (
	"context"
	"fmt"
	"time"

	"github.com/Aleph-Alpha/trackindex/v1/isrc"
	"github.com/Aleph-Alpha/trackindex/v1/sparseembedding"
	"github.com/Aleph-Alpha/trackindex/v1/track"
	"github.com/Aleph-Alpha/trackindex/v1/vectordb"
	qdrant "github.com/qdrant/go-client/qdrant"
)

// numericFeatureFields are the audio features that get a float payload index.
var numericFeatureFields = []string{"danceability", "energy", "valence", "acousticness", "tempo"}

// EnsureSchema creates the collection with a cosine float16 dense vector and an
// IDF-weighted sparse vector when it is missing, then ensures the payload indexes.
// An existing collection with another dense dimension, or without the sparse vector,
// is a schema mismatch.
func (c *Client) EnsureSchema(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.observeOperation("ensure_schema", "", start, err, 0, nil) }()

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	name := c.cfg.Collection
	exists, err := c.api.CollectionExists(ctx, name)
	if err != nil {
		return writeError("ensure schema", err)
	}

	if exists {
		info, err := c.api.GetCollectionInfo(ctx, name)
		if err != nil {
			return writeError("ensure schema", err)
		}
		if err := checkSchema(info, c.cfg.Dimension); err != nil {
			c.warn("Qdrant collection schema mismatch", err, map[string]interface{}{"collection": name})
			return &vectordb.IndexWriteError{Op: "ensure schema", Schema: true, Err: err}
		}
	} else {
		c.info("Creating Qdrant collection", map[string]interface{}{"collection": name, "dimension": c.cfg.Dimension})
		err := c.api.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: name,
			VectorsConfig: qdrant.NewVectorsConfigMap(map[string]*qdrant.VectorParams{
				vectordb.DenseVectorName: {
					Size:     uint64(c.cfg.Dimension),
					Distance: qdrant.Distance_Cosine,
					Datatype: qdrant.Datatype_Float16.Enum(),
				},
			}),
			SparseVectorsConfig: qdrant.NewSparseVectorsConfig(map[string]*qdrant.SparseVectorParams{
				vectordb.SparseVectorName: {Modifier: qdrant.Modifier_Idf.Enum()},
			}),
		})
		if err != nil {
			return writeError("create collection", err)
		}
	}

	return c.ensurePayloadIndexes(ctx)
}

func (c *Client) ensurePayloadIndexes(ctx context.Context) error {
	type index struct {
		field  string
		typ    qdrant.FieldType
		params *qdrant.PayloadIndexParams
	}

	indexes := make([]index, 0, 8)
	for _, f := range vectordb.KeywordFields {
		indexes = append(indexes, index{field: f, typ: qdrant.FieldType_FieldTypeKeyword})
	}
	for _, f := range vectordb.TextFields {
		indexes = append(indexes, index{
			field: f,
			typ:   qdrant.FieldType_FieldTypeText,
			params: qdrant.NewPayloadIndexParamsText(&qdrant.TextIndexParams{
				Tokenizer: qdrant.TokenizerType_Word,
				Lowercase: qdrant.PtrOf(true),
			}),
		})
	}
	for _, f := range numericFeatureFields {
		indexes = append(indexes, index{field: vectordb.FieldAudioFeatures + "." + f, typ: qdrant.FieldType_FieldTypeFloat})
	}
	indexes = append(indexes, index{field: vectordb.FieldIndexedAt, typ: qdrant.FieldType_FieldTypeDatetime})

	for _, idx := range indexes {
		_, err := c.api.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName:   c.cfg.Collection,
			FieldName:        idx.field,
			FieldType:        idx.typ.Enum(),
			FieldIndexParams: idx.params,
			Wait:             qdrant.PtrOf(true),
		})
		if err != nil {
			return writeError("create field index "+idx.field, err)
		}
	}
	return nil
}

// Upsert writes the document as a single point keyed by its deterministic ID and
// waits for the write to be applied.
func (c *Client) Upsert(ctx context.Context, doc *track.TrackDocument, sparse sparseembedding.SparseEmbedding) (err error) {
	start := time.Now()
	defer func() {
		c.observeOperation("upsert", doc.ID, start, err, int64(sparse.Len()), map[string]interface{}{"isrc": doc.ISRC})
	}()

	if len(doc.DenseEmbedding) != c.cfg.Dimension {
		return &vectordb.IndexWriteError{
			Op:     "upsert",
			Schema: true,
			Err:    fmt.Errorf("dense vector of length %d, collection expects %d", len(doc.DenseEmbedding), c.cfg.Dimension),
		}
	}

	point, err := toPoint(doc, sparse)
	if err != nil {
		return &vectordb.IndexWriteError{Op: "upsert", Schema: true, Err: err}
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	_, err = c.api.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: c.cfg.Collection,
		Points:         []*qdrant.PointStruct{point},
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return writeError("upsert", err)
	}
	return nil
}

// Query runs the dense and sparse retrievals in one batch request and fuses them
// with reciprocal rank fusion. Without sparse terms only the dense retrieval runs
// and hits carry the cosine similarity as score.
func (c *Client) Query(ctx context.Context, q vectordb.Query) (hits []vectordb.Hit, err error) {
	start := time.Now()
	defer func() {
		c.observeOperation("query", "", start, err, int64(len(hits)), map[string]interface{}{"hybrid": !q.Sparse.IsEmpty()})
	}()

	if err := q.Filter.Validate(); err != nil {
		return nil, err
	}
	if len(q.Dense) != c.cfg.Dimension {
		return nil, fmt.Errorf("%w: dense query of length %d, collection expects %d", vectordb.ErrInvalidQuery, len(q.Dense), c.cfg.Dimension)
	}

	filter := convertFilter(q.Filter)
	limit := qdrant.PtrOf(uint64(q.CandidateLimit()))
	requests := []*qdrant.QueryPoints{{
		CollectionName: c.cfg.Collection,
		Query:          qdrant.NewQueryDense(q.Dense),
		Using:          qdrant.PtrOf(vectordb.DenseVectorName),
		Filter:         filter,
		Limit:          limit,
		WithPayload:    qdrant.NewWithPayload(true),
	}}
	if !q.Sparse.IsEmpty() {
		requests = append(requests, &qdrant.QueryPoints{
			CollectionName: c.cfg.Collection,
			Query:          qdrant.NewQuerySparse(q.Sparse.Indices, q.Sparse.Values),
			Using:          qdrant.PtrOf(vectordb.SparseVectorName),
			Filter:         filter,
			Limit:          limit,
			WithPayload:    qdrant.NewWithPayload(true),
		})
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	results, err := c.api.QueryBatch(ctx, &qdrant.QueryBatchPoints{
		CollectionName: c.cfg.Collection,
		QueryPoints:    requests,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: query failed: %w", err)
	}
	if len(results) != len(requests) {
		return nil, fmt.Errorf("qdrant: query returned %d result lists for %d requests", len(results), len(requests))
	}

	payloads := make(map[string]map[string]*qdrant.Value)
	lists := make([][]vectordb.Candidate, len(results))
	for i, r := range results {
		lists[i], err = toCandidates(r.GetResult(), payloads)
		if err != nil {
			return nil, err
		}
	}

	var fused []vectordb.Fused
	if len(lists) == 1 {
		fused = vectordb.RankDense(lists[0], q.Limit())
	} else {
		fused = vectordb.FuseRRF(lists[0], lists[1], vectordb.RRFConstant, q.Limit())
	}

	hits = make([]vectordb.Hit, 0, len(fused))
	for _, f := range fused {
		doc, err := vectordb.DocumentFromPayload(f.ID, convertPayload(payloads[f.ID]), nil)
		if err != nil {
			return nil, fmt.Errorf("qdrant: point %s: %w", f.ID, err)
		}
		hit := vectordb.HitFromDocument(doc)
		hit.Score = f.Score
		hit.DenseScore = f.DenseScore
		hits = append(hits, hit)
	}
	return hits, nil
}

// Get fetches the document of a recording by ISRC, including its dense vector.
func (c *Client) Get(ctx context.Context, code string) (doc *track.TrackDocument, err error) {
	id, err := isrc.DeriveID(code)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() { c.observeOperation("get", id, start, err, 0, nil) }()

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	points, err := c.api.Get(ctx, &qdrant.GetPoints{
		CollectionName: c.cfg.Collection,
		Ids:            []*qdrant.PointId{qdrant.NewIDUUID(id)},
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: get failed: %w", err)
	}
	if len(points) == 0 {
		return nil, vectordb.ErrNotFound
	}

	p := points[0]
	return vectordb.DocumentFromPayload(id, convertPayload(p.GetPayload()), denseVector(p.GetVectors()))
}

// Count returns the exact number of points in the collection.
func (c *Client) Count(ctx context.Context) (n uint64, err error) {
	start := time.Now()
	defer func() { c.observeOperation("count", "", start, err, int64(n), nil) }()

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	n, err = c.api.Count(ctx, &qdrant.CountPoints{
		CollectionName: c.cfg.Collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("qdrant: count failed: %w", err)
	}
	return n, nil
}

// Describe returns status information about the collection.
func (c *Client) Describe(ctx context.Context) (*vectordb.Collection, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	info, err := c.api.GetCollectionInfo(ctx, c.cfg.Collection)
	if err != nil {
		return nil, fmt.Errorf("qdrant: failed to get collection '%s': %w", c.cfg.Collection, err)
	}
	return &vectordb.Collection{
		Name:       c.cfg.Collection,
		Status:     info.GetStatus().String(),
		Dimension:  denseSize(info),
		PointCount: info.GetPointsCount(),
	}, nil
}

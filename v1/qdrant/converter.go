package qdrant

import (
	"fmt"
	"strconv"

	"github.com/Aleph-Alpha/trackindex/v1/sparseembedding"
	"github.com/Aleph-Alpha/trackindex/v1/track"
	"github.com/Aleph-Alpha/trackindex/v1/vectordb"
	qdrant "github.com/qdrant/go-client/qdrant"
)

// toPoint converts a document into a point with its named vectors. The sparse
// vector is omitted when it has no terms.
func toPoint(doc *track.TrackDocument, sparse sparseembedding.SparseEmbedding) (*qdrant.PointStruct, error) {
	payload, err := vectordb.DocumentPayload(doc)
	if err != nil {
		return nil, err
	}
	values, err := qdrant.TryValueMap(payload)
	if err != nil {
		return nil, fmt.Errorf("convert payload: %w", err)
	}

	vectors := map[string]*qdrant.Vector{
		vectordb.DenseVectorName: qdrant.NewVectorDense(doc.DenseEmbedding),
	}
	if !sparse.IsEmpty() {
		vectors[vectordb.SparseVectorName] = qdrant.NewVectorSparse(sparse.Indices, sparse.Values)
	}

	return &qdrant.PointStruct{
		Id:      qdrant.NewIDUUID(doc.ID),
		Vectors: qdrant.NewVectorsMap(vectors),
		Payload: values,
	}, nil
}

// toCandidates converts scored points into a ranked list and records each payload.
func toCandidates(points []*qdrant.ScoredPoint, payloads map[string]map[string]*qdrant.Value) ([]vectordb.Candidate, error) {
	out := make([]vectordb.Candidate, 0, len(points))
	for _, p := range points {
		id, err := pointID(p.GetId())
		if err != nil {
			return nil, err
		}
		if _, ok := payloads[id]; !ok {
			payloads[id] = p.GetPayload()
		}
		out = append(out, vectordb.Candidate{ID: id, Score: p.GetScore()})
	}
	return out, nil
}

// pointID extracts a string ID from Qdrant's PointId type.
func pointID(id *qdrant.PointId) (string, error) {
	if id == nil {
		return "", fmt.Errorf("qdrant: nil point ID")
	}
	switch v := id.PointIdOptions.(type) {
	case *qdrant.PointId_Uuid:
		return v.Uuid, nil
	case *qdrant.PointId_Num:
		return strconv.FormatUint(v.Num, 10), nil
	default:
		return "", fmt.Errorf("qdrant: unexpected PointId type: %T", v)
	}
}

// denseVector returns the dense named vector of a retrieved point, nil if absent.
func denseVector(v *qdrant.VectorsOutput) []float32 {
	named := v.GetVectors().GetVectors()
	out, ok := named[vectordb.DenseVectorName]
	if !ok || out == nil {
		return nil
	}
	if dense := out.GetDense(); dense != nil {
		return dense.GetData()
	}
	return out.GetData()
}

// denseSize returns the configured size of the dense named vector, 0 if the
// collection has none.
func denseSize(info *qdrant.CollectionInfo) int {
	params := info.GetConfig().GetParams().GetVectorsConfig().GetParamsMap().GetMap()[vectordb.DenseVectorName]
	return int(params.GetSize())
}

func hasSparse(info *qdrant.CollectionInfo) bool {
	_, ok := info.GetConfig().GetParams().GetSparseVectorsConfig().GetMap()[vectordb.SparseVectorName]
	return ok
}

// checkSchema reports whether an existing collection can hold documents of the
// given dimension.
func checkSchema(info *qdrant.CollectionInfo, dimension int) error {
	if size := denseSize(info); size != dimension {
		return fmt.Errorf("%w: dense vector size %d, expected %d", vectordb.ErrSchemaMismatch, size, dimension)
	}
	if !hasSparse(info) {
		return fmt.Errorf("%w: missing sparse vector %q", vectordb.ErrSchemaMismatch, vectordb.SparseVectorName)
	}
	return nil
}

// convertPayload converts Qdrant's protobuf payload to a generic map.
func convertPayload(payload map[string]*qdrant.Value) map[string]any {
	if payload == nil {
		return nil
	}
	result := make(map[string]any, len(payload))
	for k, v := range payload {
		result[k] = extractValue(v)
	}
	return result
}

// extractValue recursively converts a Qdrant Value to a Go native type.
func extractValue(v *qdrant.Value) any {
	if v == nil {
		return nil
	}
	switch val := v.Kind.(type) {
	case *qdrant.Value_StringValue:
		return val.StringValue
	case *qdrant.Value_IntegerValue:
		return val.IntegerValue
	case *qdrant.Value_DoubleValue:
		return val.DoubleValue
	case *qdrant.Value_BoolValue:
		return val.BoolValue
	case *qdrant.Value_StructValue:
		return convertPayload(val.StructValue.GetFields())
	case *qdrant.Value_ListValue:
		items := make([]any, len(val.ListValue.GetValues()))
		for i, item := range val.ListValue.GetValues() {
			items[i] = extractValue(item)
		}
		return items
	default:
		return nil
	}
}

package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/Aleph-Alpha/trackindex/v1/adapter"
)

// InferenceProvider implements Provider over POST {endpoint}/embeddings.
type InferenceProvider struct {
	http      *adapter.HTTPClient
	model     string
	dimension int
}

func newInferenceProvider(cfg Config) (*InferenceProvider, error) {
	hc, err := adapter.NewHTTPClient(ServiceName, cfg.httpConfig())
	if err != nil {
		return nil, err
	}
	return &InferenceProvider{http: hc, model: cfg.Model, dimension: cfg.Dimension}, nil
}

type embeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingsResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

func (r *embeddingsResponse) Validate() error {
	if len(r.Data) == 0 {
		return errors.New("embeddings response has no data")
	}
	return nil
}

// Create embeds texts. The response is reordered by its index field.
func (p *InferenceProvider) Create(ctx context.Context, texts ...string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, adapter.InvalidInput(ServiceName, "no texts provided")
	}

	var parsed embeddingsResponse
	if err := p.http.PostJSON(ctx, "/embeddings", embeddingsRequest{Model: p.model, Input: texts}, &parsed); err != nil {
		return nil, err
	}
	if len(parsed.Data) != len(texts) {
		return nil, adapter.Schema(ServiceName, fmt.Errorf("got %d embeddings for %d texts", len(parsed.Data), len(texts)))
	}

	out := make([][]float32, len(texts))
	for i, d := range parsed.Data {
		idx := d.Index
		if idx < 0 || idx >= len(texts) || out[idx] != nil {
			idx = i
		}
		if p.dimension > 0 && len(d.Embedding) != p.dimension {
			return nil, adapter.Schema(ServiceName, fmt.Errorf("embedding of length %d, want %d", len(d.Embedding), p.dimension))
		}
		vec := make([]float32, len(d.Embedding))
		for j, v := range d.Embedding {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, adapter.Schema(ServiceName, fmt.Errorf("non-finite value at %d", j))
			}
			vec[j] = float32(v)
		}
		out[idx] = vec
	}
	return out, nil
}

package embedding

import "context"

// Provider turns texts into dense vectors, one per text, in input order.
type Provider interface {
	Create(ctx context.Context, texts ...string) ([][]float32, error)
}

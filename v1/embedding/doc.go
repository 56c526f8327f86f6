// Package embedding produces dense vectors through an OpenAI-compatible
// /embeddings endpoint.
//
//	client, err := embedding.NewClient(embedding.Config{
//		Endpoint:  "https://inference.example.com/v1",
//		Model:     "text-embedding-3-large",
//		Dimension: 3072,
//	})
//	vec, err := client.Embed(ctx, "melancholic late-night synth pop")
//
// All failures are *adapter.Error. Empty input and vectors of the wrong length are
// non-retryable; 429 and 5xx responses are retryable.
package embedding

// Package search answers free-text queries over the track index.
//
// A query is embedded with the same model that embedded the interpretations at
// ingestion time, unless the caller supplies its own vector. The sparse half of
// the query is the combined encoding of the text and any paraphrases, so
// alternative wordings widen keyword recall without moving the dense query.
//
//	svc := search.NewService(embedder, index)
//	hits, err := svc.Search(ctx, search.Request{
//		QueryText:   "melancholic piano ballad",
//		Paraphrases: []string{"sad piano song"},
//		TopK:        5,
//	})
package search

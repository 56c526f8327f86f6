// Package vectordb defines the hybrid track index: its contract, query and filter
// model, reciprocal rank fusion, payload encoding and an in-memory implementation.
//
// Each document carries a dense embedding compared by cosine similarity and a sparse
// term-frequency vector whose IDF weighting is left to the store. A query fetches a
// ranked list from each and merges them with FuseRRF:
//
//	hits, err := index.Query(ctx, vectordb.Query{
//		Dense:  queryEmbedding,
//		Sparse: sparseembedding.Encode("melancholic piano ballad"),
//		TopK:   10,
//		Filter: vectordb.NewFilter(vectordb.Feature("tempo", vectordb.NumericRange{Lte: &maxTempo})),
//	})
//
// An empty sparse query ranks by dense similarity alone. The Qdrant implementation
// lives in package qdrant.
package vectordb

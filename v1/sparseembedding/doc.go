// Package sparseembedding computes BM25-style sparse embeddings locally.
//
// Text is tokenized, every token is hashed to a 32-bit index, and each distinct index
// carries a saturating term-frequency weight tf/(tf+K). Inverse document frequency is
// not applied here: the vector store's IDF modifier adds it at query time, so the same
// encoder serves documents and queries.
//
// Basic usage:
//
//	doc := sparseembedding.Encode("Bohemian Rhapsody Queen A Night at the Opera")
//	query := sparseembedding.Encode("queen opera")
//
//	if query.IsEmpty() {
//		// no lexical signal: rank by the dense vector alone
//	}
//
// A query expanded into paraphrases is merged with Combine:
//
//	q := sparseembedding.Combine(
//		sparseembedding.Encode("songs about leaving home"),
//		sparseembedding.Encode("tracks about moving away"),
//	)
//
// # Sparse Embedding Format
//
//   - Indices: ascending, unique uint32 token hashes
//   - Values: the matching float32 weights, each in (0, 1) for a single encoding
//
// Everything in this package is pure and safe for concurrent use.
package sparseembedding

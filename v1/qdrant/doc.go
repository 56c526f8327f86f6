// Package qdrant implements vectordb.HybridIndex on top of the Qdrant vector
// database.
//
// Every track is one point keyed by the UUID derived from its ISRC. A point carries
// two named vectors:
//
//   - "dense": the embedding of the document's combined text, float16, cosine.
//   - "sparse": the hashed term weights; the collection applies an IDF modifier.
//
// and a JSON payload without vectors. Payload indexes are created for the ISRC
// (keyword), the descriptive text fields (word tokenizer, lowercased), a few audio
// features (float) and indexed_at (datetime), so filters run server side.
//
// # Basic Usage
//
//	cfg := qdrant.DefaultConfig()
//	cfg.Dimension = 1024
//
//	index, err := qdrant.NewClient(cfg, log)
//	if err != nil {
//	    return err
//	}
//	defer index.Close()
//
//	if err := index.EnsureSchema(ctx); err != nil {
//	    return err
//	}
//	hits, err := index.Query(ctx, vectordb.Query{Dense: vec, Sparse: terms, TopK: 10})
//
// # Hybrid Queries
//
// Query sends the dense and the sparse retrieval in one batch request, each widened
// to vectordb.PrefetchFactor times the requested number of results, and fuses the
// two ranked lists client side with vectordb.FuseRRF. Fusing locally keeps the tie
// order and the reported dense similarity identical to vectordb.MemoryIndex.
//
// # Errors
//
// Write failures are *vectordb.IndexWriteError values. gRPC statuses that cannot
// succeed on retry (InvalidArgument, NotFound, PermissionDenied and similar) are
// marked as schema errors and match vectordb.ErrSchemaMismatch.
//
// # FX Integration
//
//	app := fx.New(
//	    logger.FXModule,
//	    qdrant.FXModule,
//	    fx.Provide(func() qdrant.Config { return cfg }),
//	)
//
// The module also provides the client as vectordb.HybridIndex and ensures the
// schema when the application starts.
package qdrant

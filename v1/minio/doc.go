// Package minio archives indexed track documents in MinIO or any S3-compatible
// object store.
//
// Every document that passes validation is written as JSON to
// {prefix}/{isrc}.json before it is upserted into the index. The archive lets the
// index be rebuilt without calling any upstream provider:
//
//	archive := minio.NewArchive(client)
//	err := archive.Walk(ctx, func(doc *track.TrackDocument) error {
//		return index.Upsert(ctx, doc, sparseembedding.EncodeFields(doc.TextFields()...))
//	})
//
// The client validates the bucket on creation, creates it when
// AccessBucketCreation is set, and reconnects in the background when a health
// check fails. FXModule binds *Archive as pipeline.Archive.
package minio

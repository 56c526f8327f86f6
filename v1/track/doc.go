// Package track defines the indexed track document, its audio features and the
// assembler that validates stage outputs into a document.
//
// Assembly fails with a *ValidationError (matching ErrDocumentValidation) when the
// ISRC or the embedding is malformed, when catalogue metadata is missing, or when a
// present audio feature is out of range. Absent features and absent lyrics are valid.
package track

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package store

import "context"

// CandidateScanner is the read path used for ranking. Implementations call fn
// once per candidate row and stop at the first error fn returns.
type CandidateScanner interface {
	ScanCandidates(ctx context.Context, filter CandidateFilter, fn func(Candidate) error) error
}

// VectorStore persists documents with their text and image embeddings.
type VectorStore interface {
	CandidateScanner

	// AddDocument derives the document ID from its content and upserts it.
	AddDocument(ctx context.Context, doc NewDocument) (string, error)
	// Upsert writes doc under the given ID, replacing any previous document
	// and both of its embeddings.
	Upsert(ctx context.Context, id string, doc NewDocument) error
	GetDocument(ctx context.Context, id string) (*Document, error)
	Stats(ctx context.Context) (Stats, error)
	Close() error
}

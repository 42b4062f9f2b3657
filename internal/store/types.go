// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package store

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

const (
	// ReservedQueryPrefix marks documents that hold query representations.
	// They are stored like any other document but never ranked.
	ReservedQueryPrefix = "query_"

	DefaultClass     = "document"
	DefaultModelName = "openai/clip-vit-base-patch32"
)

// Modality identifies which embedding table a vector belongs to.
type Modality string

const (
	ModalityText  Modality = "text"
	ModalityImage Modality = "image"
)

// Document is a stored item together with its embeddings.
type Document struct {
	ID             string
	Class          string
	Description    string
	SourcePath     string
	Metadata       map[string]any
	TextEmbedding  *Embedding
	ImageEmbedding *Embedding
	CreatedAt      time.Time
}

// Embedding is one stored vector. Dim always equals len(Vector).
type Embedding struct {
	Vector    []float32
	Dim       int
	ModelName string
	CreatedAt time.Time
}

// NewDocument is the input of a single ingestion call. A nil vector means
// the modality is not supplied.
type NewDocument struct {
	Text        string
	TextVector  []float32
	ImageVector []float32
	Metadata    map[string]any
	Class       string
	SourcePath  string
	ModelName   string
}

// WithDefaults fills the class and model name when they are empty.
func (d NewDocument) WithDefaults() NewDocument {
	if d.Class == "" {
		d.Class = DefaultClass
	}
	if d.ModelName == "" {
		d.ModelName = DefaultModelName
	}
	return d
}

// DocumentID derives a stable ID from the class, text and source path.
// Ingesting identical content twice therefore targets the same row.
func DocumentID(class, text, sourcePath string) string {
	h := sha256.New()
	h.Write([]byte(class))
	h.Write([]byte{0})
	h.Write([]byte(text))
	h.Write([]byte{0})
	h.Write([]byte(sourcePath))
	return class + "_" + hex.EncodeToString(h.Sum(nil)[:16])
}

// IsReservedID reports whether id names a query representation.
func IsReservedID(id string) bool {
	return strings.HasPrefix(id, ReservedQueryPrefix)
}

// CandidateFilter narrows the rows returned by ScanCandidates.
type CandidateFilter struct {
	Class     string // exact, case-sensitive; empty matches all classes
	TextModel string // empty matches all models
}

// Candidate is one rankable row: a document joined with its text embedding
// and, when present, its image embedding. Vectors are left encoded.
type Candidate struct {
	ID          string
	Class       string
	Description string
	SourcePath  string
	Metadata    string
	TextVector  []byte
	TextDim     int
	ImageVector []byte
	ImageDim    int
}

// HasImage reports whether the candidate carries an image embedding.
func (c Candidate) HasImage() bool {
	return c.ImageVector != nil
}

// Stats holds row counts per table.
type Stats struct {
	Documents       int64 `json:"total_documents" yaml:"total_documents"`
	TextEmbeddings  int64 `json:"total_text_embeddings" yaml:"total_text_embeddings"`
	ImageEmbeddings int64 `json:"total_image_embeddings" yaml:"total_image_embeddings"`
}

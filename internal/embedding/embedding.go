// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package embedding defines the encoder contracts used to turn text and
// images into vectors, plus the providers that implement them.
package embedding

import (
	"context"
	"math"
)

// TextEncoder produces text embeddings. Implementations return an error
// rather than a placeholder vector when encoding fails.
type TextEncoder interface {
	EncodeText(ctx context.Context, text string, normalize bool) ([]float32, error)
	Dimensions() int
	ModelName() string
}

// ImageEncoder produces image embeddings from a file path.
type ImageEncoder interface {
	EncodeImage(ctx context.Context, path string, normalize bool) ([]float32, error)
	Dimensions() int
	ModelName() string
}

// Captioner describes an image in natural language.
type Captioner interface {
	Caption(ctx context.Context, imagePath string) (string, error)
}

// Normalize scales v in place to unit L2 norm and returns it. A zero vector
// is returned unchanged.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	if sum == 0 {
		return v
	}
	norm := math.Sqrt(sum)
	for i, f := range v {
		v[i] = float32(float64(f) / norm)
	}
	return v
}

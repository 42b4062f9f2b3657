// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package store

import (
	"encoding/binary"
	"math"

	ragerr "github.com/sigil-dev/georag/pkg/errors"
)

// EncodeVector returns the stored form of v: little-endian IEEE 754 float32
// values, concatenated, len(v)*4 bytes. This is the layout sqlite-vec reads.
func EncodeVector(v []float32) []byte {
	b := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(f))
	}
	return b
}

// DecodeVector parses a stored embedding and checks it against the declared
// dimension.
func DecodeVector(b []byte, dim int) ([]float32, error) {
	if len(b) == 0 {
		return nil, ragerr.New(ragerr.CodeStoreEmbeddingCorrupt, "embedding blob is empty")
	}
	if len(b)%4 != 0 {
		return nil, ragerr.Errorf(ragerr.CodeStoreEmbeddingCorrupt, "embedding blob length %d is not a multiple of 4", len(b))
	}
	if n := len(b) / 4; n != dim {
		return nil, ragerr.Errorf(ragerr.CodeStoreEmbeddingCorrupt, "embedding blob holds %d values, declared dimension is %d", n, dim)
	}
	v := make([]float32, dim)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}

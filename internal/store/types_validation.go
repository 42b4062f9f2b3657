// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package store

import (
	"math"

	ragerr "github.com/sigil-dev/georag/pkg/errors"
)

// ValidateVector rejects empty vectors and vectors with NaN or Inf entries.
func ValidateVector(m Modality, v []float32) error {
	if len(v) == 0 {
		return ragerr.New(ragerr.CodeStoreVectorInvalid, "vector is empty", ragerr.FieldModality(string(m)))
	}
	for i, f := range v {
		if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
			return ragerr.New(ragerr.CodeStoreVectorInvalid, "vector contains a non-finite value",
				ragerr.FieldModality(string(m)),
				ragerr.Field("index", i),
			)
		}
	}
	return nil
}

// Validate checks the input of an ingestion call. Vectors are only checked
// when supplied.
func (d NewDocument) Validate() error {
	if d.TextVector != nil {
		if err := ValidateVector(ModalityText, d.TextVector); err != nil {
			return err
		}
	}
	if d.ImageVector != nil {
		if err := ValidateVector(ModalityImage, d.ImageVector); err != nil {
			return err
		}
	}
	return nil
}

// ValidateID checks a caller-chosen document ID.
func ValidateID(id string) error {
	if id == "" {
		return ragerr.New(ragerr.CodeStoreDocumentInvalid, "document: ID is required")
	}
	return nil
}

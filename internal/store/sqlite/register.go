// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package sqlite

import "github.com/sigil-dev/georag/internal/store"

func init() {
	store.RegisterBackend("sqlite", openVectorStore)
}

func openVectorStore(path string, autoCreate bool) (store.VectorStore, error) {
	s, err := Open(path, autoCreate)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigil-dev/georag/internal/store"
	ragerr "github.com/sigil-dev/georag/pkg/errors"
)

func TestOpenVectorStore_UnknownBackend(t *testing.T) {
	_, err := store.OpenVectorStore(&store.StorageConfig{Backend: "unknown", Path: "x.db"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown")
	assert.True(t, ragerr.HasCode(err, ragerr.CodeStoreBackendUnsupported))
}

type stubStore struct {
	store.VectorStore
	path       string
	autoCreate bool
}

func (s *stubStore) Stats(context.Context) (store.Stats, error) { return store.Stats{Documents: 7}, nil }

func TestOpenVectorStore_DispatchesToRegisteredBackend(t *testing.T) {
	var opened *stubStore
	store.RegisterBackend("stub", func(path string, autoCreate bool) (store.VectorStore, error) {
		opened = &stubStore{path: path, autoCreate: autoCreate}
		return opened, nil
	})

	vs, err := store.OpenVectorStore(&store.StorageConfig{Backend: "stub", Path: "/data/v.db", AutoCreate: true})
	require.NoError(t, err)
	require.NotNil(t, opened)
	assert.Equal(t, "/data/v.db", opened.path)
	assert.True(t, opened.autoCreate)

	st, err := vs.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), st.Documents)
}

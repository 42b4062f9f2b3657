// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package secrets_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/sigil-dev/georag/internal/secrets"
	ragerr "github.com/sigil-dev/georag/pkg/errors"
)

func init() {
	// Keep tests off the real OS keyring.
	keyring.MockInit()
}

func TestKeyringStore_Lifecycle(t *testing.T) {
	ks := secrets.NewKeyringStore()
	svc := "test-lifecycle"

	require.NoError(t, ks.Store(svc, "openai", "sk-1"))
	require.NoError(t, ks.Store(svc, "openai", "sk-2"))
	require.NoError(t, ks.Store(svc, "other", "x"))

	val, err := ks.Retrieve(svc, "openai")
	require.NoError(t, err)
	assert.Equal(t, "sk-2", val)

	keys, err := ks.List(svc)
	require.NoError(t, err)
	assert.Equal(t, []string{"openai", "other"}, keys)

	require.NoError(t, ks.Delete(svc, "openai"))
	_, err = ks.Retrieve(svc, "openai")
	assert.Equal(t, ragerr.CodeSecretNotFound, ragerr.CodeOf(err))

	require.NoError(t, ks.Delete(svc, "other"))
	keys, err = ks.List(svc)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestKeyringStore_Errors(t *testing.T) {
	ks := secrets.NewKeyringStore()

	err := ks.Delete("test-errors", "missing")
	assert.Equal(t, ragerr.CodeSecretNotFound, ragerr.CodeOf(err))

	for _, err := range []error{
		ks.Store("", "k", "v"),
		ks.Store("svc", "", "v"),
		ks.Delete("", "k"),
	} {
		assert.Equal(t, ragerr.CodeSecretInputInvalid, ragerr.CodeOf(err))
	}
	_, err = ks.Retrieve("svc", "")
	assert.True(t, ragerr.IsInvalidInput(err))
	_, err = ks.List("")
	assert.True(t, ragerr.IsInvalidInput(err))
}

func TestParseKeyringURI(t *testing.T) {
	tests := []struct {
		uri         string
		wantService string
		wantKey     string
		wantErr     bool
	}{
		{"keyring://georag/openai", "georag", "openai", false},
		{"keyring://georag/path/to/key", "georag", "path/to/key", false},
		{"vault://secret/key", "", "", true},
		{"keyring://georag/", "", "", true},
		{"keyring:///key", "", "", true},
		{"keyring://georag", "", "", true},
		{"keyring://", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			svc, key, err := secrets.ParseKeyringURI(tt.uri)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, ragerr.IsInvalidInput(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantService, svc)
			assert.Equal(t, tt.wantKey, key)
		})
	}
}

func TestResolve(t *testing.T) {
	ks := secrets.NewKeyringStore()
	require.NoError(t, ks.Store("test-resolve", "openai", "sk-live"))

	got, err := secrets.Resolve(ks, secrets.KeyringURI("test-resolve", "openai"))
	require.NoError(t, err)
	assert.Equal(t, "sk-live", got)

	got, err = secrets.Resolve(ks, "sk-literal")
	require.NoError(t, err)
	assert.Equal(t, "sk-literal", got)

	_, err = secrets.Resolve(ks, "keyring://test-resolve/missing")
	require.Error(t, err)
	// The innermost cause is reported.
	assert.Equal(t, ragerr.CodeSecretNotFound, ragerr.CodeOf(err))
	assert.True(t, ragerr.IsNotFound(err))
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package store

import (
	"sync"

	ragerr "github.com/sigil-dev/georag/pkg/errors"
)

// Opener opens a VectorStore at path, creating the schema when autoCreate is set.
type Opener func(path string, autoCreate bool) (VectorStore, error)

var (
	openers   = map[string]Opener{}
	openersMu sync.RWMutex
)

// RegisterBackend registers the opener for a named storage backend.
// Backend packages call this from init(). This function is goroutine-safe.
func RegisterBackend(name string, open Opener) {
	openersMu.Lock()
	defer openersMu.Unlock()
	openers[name] = open
}

// resolveBackend returns the effective backend name, defaulting to "sqlite".
func resolveBackend(cfg *StorageConfig) string {
	if cfg.Backend == "" {
		return "sqlite"
	}
	return cfg.Backend
}

// OpenVectorStore opens the vector store described by cfg.
func OpenVectorStore(cfg *StorageConfig) (VectorStore, error) {
	backend := resolveBackend(cfg)

	openersMu.RLock()
	open, ok := openers[backend]
	openersMu.RUnlock()
	if !ok {
		return nil, ragerr.Errorf(ragerr.CodeStoreBackendUnsupported, "unsupported storage backend: %q", backend)
	}

	return open(cfg.Path, cfg.AutoCreate)
}

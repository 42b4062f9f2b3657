// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package secrets keeps provider credentials out of config files by storing
// them in the OS keyring and resolving keyring:// references at use time.
package secrets

// ServiceName is the keyring service georag stores its secrets under.
const ServiceName = "georag"

// Store provides secret storage operations.
type Store interface {
	// Store saves value under service and key, replacing any previous value.
	Store(service, key, value string) error

	// Retrieve fetches the value for service and key. A missing entry
	// yields CodeSecretNotFound.
	Retrieve(service, key string) (string, error)

	// Delete removes the entry for service and key. A missing entry
	// yields CodeSecretNotFound.
	Delete(service, key string) error

	// List returns the key names stored under service.
	List(service string) ([]string, error)
}

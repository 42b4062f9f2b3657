// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package secrets

import (
	"strings"

	ragerr "github.com/sigil-dev/georag/pkg/errors"
)

const keyringScheme = "keyring://"

// IsKeyringURI reports whether value is a keyring:// reference.
func IsKeyringURI(value string) bool {
	return strings.HasPrefix(value, keyringScheme)
}

// KeyringURI returns the reference to key under service.
func KeyringURI(service, key string) string {
	return keyringScheme + service + "/" + key
}

// ParseKeyringURI splits keyring://service/key. The key may contain slashes.
func ParseKeyringURI(uri string) (service, key string, err error) {
	if !IsKeyringURI(uri) {
		return "", "", ragerr.Errorf(ragerr.CodeSecretInputInvalid, "not a keyring URI: %q", uri)
	}
	service, key, ok := strings.Cut(strings.TrimPrefix(uri, keyringScheme), "/")
	if !ok || service == "" || key == "" {
		return "", "", ragerr.Errorf(ragerr.CodeSecretInputInvalid,
			"invalid keyring URI %q: expected keyring://service/key", uri)
	}
	return service, key, nil
}

// Resolve returns the secret a keyring:// value points to. Any other value
// is returned unchanged.
func Resolve(store Store, value string) (string, error) {
	if !IsKeyringURI(value) {
		return value, nil
	}
	service, key, err := ParseKeyringURI(value)
	if err != nil {
		return "", err
	}
	secret, err := store.Retrieve(service, key)
	if err != nil {
		return "", ragerr.Wrapf(err, ragerr.CodeSecretResolveFailure, "resolving %s", value)
	}
	return secret, nil
}

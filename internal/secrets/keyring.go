// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package secrets

import (
	"encoding/json"
	"errors"
	"log/slog"
	"slices"

	"github.com/zalando/go-keyring"

	ragerr "github.com/sigil-dev/georag/pkg/errors"
)

// indexKeySuffix names the entry holding the JSON list of keys of a service.
// go-keyring cannot enumerate entries on its own.
const indexKeySuffix = "::keys-index"

// KeyringStore implements Store on top of the OS keyring (Keychain on macOS,
// secret-service on Linux, Credential Manager on Windows).
type KeyringStore struct{}

// NewKeyringStore returns a KeyringStore.
func NewKeyringStore() *KeyringStore {
	return &KeyringStore{}
}

func checkNames(op, service, key string) error {
	if service == "" {
		return ragerr.New(ragerr.CodeSecretInputInvalid, "secret "+op+": service must not be empty")
	}
	if key == "" {
		return ragerr.New(ragerr.CodeSecretInputInvalid, "secret "+op+": key must not be empty")
	}
	return nil
}

func (s *KeyringStore) Store(service, key, value string) error {
	if err := checkNames("store", service, key); err != nil {
		return err
	}
	if err := keyring.Set(service, key, value); err != nil {
		return ragerr.Wrapf(err, ragerr.CodeSecretStoreFailure, "storing secret %s/%s", service, key)
	}
	return s.updateIndex(service, func(keys []string) []string {
		if slices.Contains(keys, key) {
			return keys
		}
		return append(keys, key)
	})
}

func (s *KeyringStore) Retrieve(service, key string) (string, error) {
	if err := checkNames("retrieve", service, key); err != nil {
		return "", err
	}
	val, err := keyring.Get(service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ragerr.Errorf(ragerr.CodeSecretNotFound, "secret %s/%s not found", service, key)
	}
	if err != nil {
		return "", ragerr.Wrapf(err, ragerr.CodeSecretStoreFailure, "retrieving secret %s/%s", service, key)
	}
	return val, nil
}

func (s *KeyringStore) Delete(service, key string) error {
	if err := checkNames("delete", service, key); err != nil {
		return err
	}
	err := keyring.Delete(service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return ragerr.Errorf(ragerr.CodeSecretNotFound, "secret %s/%s not found", service, key)
	}
	if err != nil {
		return ragerr.Wrapf(err, ragerr.CodeSecretStoreFailure, "deleting secret %s/%s", service, key)
	}
	return s.updateIndex(service, func(keys []string) []string {
		return slices.DeleteFunc(keys, func(k string) bool { return k == key })
	})
}

func (s *KeyringStore) List(service string) ([]string, error) {
	if service == "" {
		return nil, ragerr.New(ragerr.CodeSecretInputInvalid, "secret list: service must not be empty")
	}
	raw, err := keyring.Get(service, service+indexKeySuffix)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, ragerr.Wrapf(err, ragerr.CodeSecretStoreFailure, "loading key index of %s", service)
	}

	var keys []string
	if err := json.Unmarshal([]byte(raw), &keys); err != nil {
		return nil, ragerr.Wrapf(err, ragerr.CodeSecretStoreFailure, "decoding key index of %s", service)
	}
	return keys, nil
}

func (s *KeyringStore) updateIndex(service string, edit func([]string) []string) error {
	keys, err := s.List(service)
	if err != nil {
		return err
	}
	keys = edit(keys)

	indexKey := service + indexKeySuffix
	if len(keys) == 0 {
		if err := keyring.Delete(service, indexKey); err != nil && !errors.Is(err, keyring.ErrNotFound) {
			slog.Debug("removing empty key index", slog.String("service", service), slog.Any("error", err))
		}
		return nil
	}

	data, err := json.Marshal(keys)
	if err != nil {
		return ragerr.Wrapf(err, ragerr.CodeSecretStoreFailure, "encoding key index of %s", service)
	}
	if err := keyring.Set(service, indexKey, string(data)); err != nil {
		return ragerr.Wrapf(err, ragerr.CodeSecretStoreFailure, "saving key index of %s", service)
	}
	return nil
}

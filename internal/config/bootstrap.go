// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package config

import (
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	ragerr "github.com/sigil-dev/georag/pkg/errors"
)

const header = "# georag configuration. Every key can be overridden with a GEORAG_ environment\n" +
	"# variable, e.g. GEORAG_EMBEDDING_API_KEY for embedding.api_key.\n"

// DefaultConfigPath returns ~/.config/georag/georag.yaml.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", ragerr.Errorf(ragerr.CodeConfigLoadReadFailure, "resolving home directory: %w", err)
	}
	return filepath.Join(home, ".config", "georag", "georag.yaml"), nil
}

// Marshal renders cfg as YAML.
func Marshal(cfg *Config) ([]byte, error) {
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, ragerr.Errorf(ragerr.CodeConfigParseInvalidFormat, "encoding config: %w", err)
	}
	return out, nil
}

// WriteConfig writes cfg to path with owner-only permissions, creating the
// parent directory. An existing file is kept unless overwrite is set; the
// returned bool reports whether the file was written.
func WriteConfig(path string, cfg *Config, overwrite bool) (bool, error) {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			slog.Debug("config file already exists", slog.String("path", path))
			return false, nil
		}
	}

	body, err := Marshal(cfg)
	if err != nil {
		return false, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return false, ragerr.Errorf(ragerr.CodeConfigLoadReadFailure, "creating config directory: %w", err)
	}
	if err := os.WriteFile(path, append([]byte(header), body...), 0o600); err != nil {
		return false, ragerr.Errorf(ragerr.CodeConfigLoadReadFailure, "writing config %s: %w", path, err)
	}

	slog.Info("wrote config", slog.String("path", path))
	return true, nil
}

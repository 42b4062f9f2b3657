// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

//go:build !windows

package config

import (
	"io/fs"
	"log/slog"
	"os"
)

// WarnInsecurePermissions logs a warning when the config file at path is
// readable by group or others, since it may hold embedding.api_key. It never
// fails.
func WarnInsecurePermissions(path string) {
	if path == "" {
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		slog.Debug("could not stat config file for permission check", slog.String("path", path), slog.Any("error", err))
		return
	}

	const groupOrOtherRead fs.FileMode = 0o044
	if info.Mode().Perm()&groupOrOtherRead != 0 {
		slog.Warn("config file has insecure permissions, the embedding API key may be exposed to other users",
			slog.String("path", path),
			slog.String("mode", info.Mode().Perm().String()),
			slog.String("recommended", "0600"),
		)
	}
}

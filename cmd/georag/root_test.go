// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ragerr "github.com/sigil-dev/georag/pkg/errors"
)

// writeTestConfig writes a config using the "none" provider and a database
// inside a temp dir, returning the config and database paths.
func writeTestConfig(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "georag.db")
	cfgPath := filepath.Join(dir, "georag.yaml")
	body := "storage:\n  path: " + dbPath + "\n" +
		"embedding:\n  provider: none\n  model: test-model\n" +
		"log:\n  level: error\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(body), 0o600))
	return cfgPath, dbPath
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	out := new(bytes.Buffer)
	errBuf := new(bytes.Buffer)
	root.SetOut(out)
	root.SetErr(errBuf)
	root.SetIn(strings.NewReader(""))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRootCommand_Help(t *testing.T) {
	out, err := execute(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "georag")
	for _, sub := range []string{"init", "ingest", "query", "stats", "version"} {
		assert.Contains(t, out, sub)
	}
}

func TestRootCommand_GlobalFlags(t *testing.T) {
	root := NewRootCmd()
	for _, name := range []string{"config", "db", "output", "verbose"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(name), name)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "georag dev")
}

func TestMissingConfigFile(t *testing.T) {
	_, err := execute(t, "stats", "--config", "/nonexistent/georag.yaml")
	require.Error(t, err)
	assert.Equal(t, ragerr.CodeConfigLoadReadFailure, ragerr.CodeOf(err))
}

func TestInitWritesConfigAndDatabase(t *testing.T) {
	cfgPath, dbPath := writeTestConfig(t)
	target := filepath.Join(t.TempDir(), "nested", "georag.yaml")

	out, err := execute(t, "init", "--config", cfgPath, "--path", target, "-o", "json")
	require.NoError(t, err)

	var res initResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.True(t, res.ConfigWritten)
	assert.Equal(t, target, res.ConfigPath)
	assert.Equal(t, dbPath, res.DatabasePath)
	assert.FileExists(t, target)
	assert.FileExists(t, dbPath)

	out, err = execute(t, "init", "--config", cfgPath, "--path", target)
	require.NoError(t, err)
	assert.Contains(t, out, "already exists")
}

func TestDBFlagOverridesConfig(t *testing.T) {
	cfgPath, _ := writeTestConfig(t)
	other := filepath.Join(t.TempDir(), "other.db")

	_, err := execute(t, "init", "--config", cfgPath, "--db", other, "--path", filepath.Join(t.TempDir(), "c.yaml"))
	require.NoError(t, err)
	assert.FileExists(t, other)
}

func TestUnknownOutputFormat(t *testing.T) {
	cfgPath, _ := writeTestConfig(t)
	_, err := execute(t, "stats", "--config", cfgPath, "-o", "xml")
	require.Error(t, err)
	assert.Equal(t, ragerr.CodeCLIInputInvalid, ragerr.CodeOf(err))
}

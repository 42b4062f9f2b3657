// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	ragerr "github.com/sigil-dev/georag/pkg/errors"
)

// render writes v as JSON or YAML when --output asks for it, otherwise
// calls text.
func render(cmd *cobra.Command, v any, text func(io.Writer) error) error {
	format, _ := cmd.Flags().GetString("output")
	out := cmd.OutOrStdout()

	switch format {
	case "", "text":
		if err := text(out); err != nil {
			return ragerr.Errorf(ragerr.CodeCLIOutputFailure, "writing output: %w", err)
		}
		return nil
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return ragerr.Errorf(ragerr.CodeCLIOutputFailure, "encoding json: %w", err)
		}
		return nil
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return ragerr.Errorf(ragerr.CodeCLIOutputFailure, "encoding yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return ragerr.Errorf(ragerr.CodeCLIOutputFailure, "encoding yaml: %w", err)
		}
		return nil
	default:
		return ragerr.Errorf(ragerr.CodeCLIInputInvalid, "unknown output format %q, expected text, json or yaml", format)
	}
}

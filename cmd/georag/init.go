// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sigil-dev/georag/internal/config"
	"github.com/sigil-dev/georag/internal/store"
)

type initResult struct {
	ConfigPath    string `json:"config_path" yaml:"config_path"`
	ConfigWritten bool   `json:"config_written" yaml:"config_written"`
	DatabasePath  string `json:"database_path" yaml:"database_path"`
}

func newInitCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file and create the vector store schema",
		Long: "Write the effective configuration to a YAML file (default ~/.config/georag/georag.yaml) " +
			"unless it already exists, then create the database file and its tables.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runInit(cmd)
		},
	}

	cmd.Flags().String("path", "", "where to write the config file")
	cmd.Flags().Bool("force", false, "overwrite an existing config file")

	return cmd
}

func (a *app) runInit(cmd *cobra.Command) error {
	path, _ := cmd.Flags().GetString("path")
	force, _ := cmd.Flags().GetBool("force")

	if path == "" {
		p, err := config.DefaultConfigPath()
		if err != nil {
			return err
		}
		path = p
	}

	written, err := config.WriteConfig(path, a.cfg, force)
	if err != nil {
		return err
	}

	sc := a.cfg.StoreConfig()
	sc.AutoCreate = true
	vs, err := store.OpenVectorStore(sc)
	if err != nil {
		return err
	}
	if err := vs.Close(); err != nil {
		return err
	}

	res := initResult{ConfigPath: path, ConfigWritten: written, DatabasePath: a.cfg.Storage.Path}
	return render(cmd, res, func(w io.Writer) error {
		if written {
			if _, err := fmt.Fprintf(w, "Wrote config to %s\n", path); err != nil {
				return err
			}
		} else if _, err := fmt.Fprintf(w, "Config %s already exists, left unchanged\n", path); err != nil {
			return err
		}
		_, err := fmt.Fprintf(w, "Vector store ready at %s\n", a.cfg.Storage.Path)
		return err
	})
}

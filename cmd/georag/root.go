// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sigil-dev/georag/internal/config"
	ragerr "github.com/sigil-dev/georag/pkg/errors"
)

// app carries the state shared by all subcommands of one root command.
type app struct {
	v      *viper.Viper
	cfg    *config.Config
	logger *slog.Logger
}

// NewRootCmd creates the root georag command with all subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:           "georag",
		Short:         "georag: multi-modal vector store and retriever",
		Long:          "georag stores text and image embeddings of documents in SQLite and ranks them against text and image queries.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	// Global flags, mapped to viper keys in init.
	root.PersistentFlags().StringP("config", "c", "", "path to config file")
	root.PersistentFlags().String("db", "", "path to the vector store database (storage.path)")
	root.PersistentFlags().StringP("output", "o", "text", "output format: text, json or yaml")
	root.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newInitCmd(a),
		newIngestCmd(a),
		newQueryCmd(a),
		newSecretCmd(),
		newStatsCmd(a),
		newVersionCmd(),
	)

	return root
}

// init sets up viper with defaults, env bindings, flag bindings and an
// optional config file so the standard precedence (flag > env > file >
// defaults) is handled uniformly, then installs the logger.
func (a *app) init(cmd *cobra.Command) error {
	v := a.v

	config.SetDefaults(v)
	config.SetupEnv(v)

	if cfgFile, _ := cmd.Flags().GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return ragerr.Errorf(ragerr.CodeConfigLoadReadFailure, "reading config file: %w", err)
		}
	} else {
		// Without SetConfigType viper would also try the bare name, which
		// collides with a ./georag binary.
		v.SetConfigName("georag")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/georag")
		v.AddConfigPath("/etc/georag")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return ragerr.Errorf(ragerr.CodeConfigLoadReadFailure, "reading config: %w", err)
			}
		}
	}

	if f := cmd.Flags().Lookup("db"); f != nil && f.Changed {
		if err := v.BindPFlag("storage.path", f); err != nil {
			return ragerr.Errorf(ragerr.CodeCLISetupFailure, "binding db flag: %w", err)
		}
	}
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		v.Set("log.level", "debug")
	}

	cfg, err := config.FromViper(v)
	if err != nil {
		return err
	}
	a.cfg = cfg
	config.WarnInsecurePermissions(v.ConfigFileUsed())

	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(cfg.Log.Level))); err != nil {
		return ragerr.Errorf(ragerr.CodeCLISetupFailure, "parsing log level: %w", err)
	}
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	slog.SetDefault(a.logger)

	a.logger.Debug("configuration loaded",
		slog.String("config_file", v.ConfigFileUsed()),
		slog.String("storage_path", cfg.Storage.Path),
		slog.String("embedding_provider", cfg.Embedding.Provider),
	)
	return nil
}

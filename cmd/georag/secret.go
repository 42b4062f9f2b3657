// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sigil-dev/georag/internal/secrets"
	ragerr "github.com/sigil-dev/georag/pkg/errors"
)

func newSecretCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Manage provider credentials in the OS keyring",
		Long: "Store embedding provider API keys in the operating system keyring and reference them\n" +
			"from the config as keyring://georag/<name>.",
		// Secrets need no configuration.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "set <name>",
			Short: "Store a secret read from stdin",
			Args:  cobra.ExactArgs(1),
			RunE:  runSecretSet,
		},
		&cobra.Command{
			Use:   "list",
			Short: "List stored secret names",
			Args:  cobra.NoArgs,
			RunE:  runSecretList,
		},
		&cobra.Command{
			Use:   "delete <name>",
			Short: "Delete a secret",
			Args:  cobra.ExactArgs(1),
			RunE:  runSecretDelete,
		},
	)

	return cmd
}

func runSecretSet(cmd *cobra.Command, args []string) error {
	name := args[0]
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	value := strings.TrimSpace(line)
	if value == "" {
		if err != nil && !errors.Is(err, io.EOF) {
			return ragerr.Errorf(ragerr.CodeCLIInputInvalid, "reading secret: %w", err)
		}
		return ragerr.New(ragerr.CodeCLIInputInvalid, "secret value read from stdin is empty")
	}

	if err := secretStoreFactory().Store(secrets.ServiceName, name, value); err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Stored secret %s, reference it as %s\n",
		name, secrets.KeyringURI(secrets.ServiceName, name))
	return err
}

func runSecretList(cmd *cobra.Command, _ []string) error {
	keys, err := secretStoreFactory().List(secrets.ServiceName)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(keys) == 0 {
		_, err := fmt.Fprintln(out, "No secrets stored.")
		return err
	}
	for _, k := range keys {
		if _, err := fmt.Fprintln(out, k); err != nil {
			return err
		}
	}
	return nil
}

func runSecretDelete(cmd *cobra.Command, args []string) error {
	name := args[0]
	if err := secretStoreFactory().Delete(secrets.ServiceName, name); err != nil {
		return err
	}
	_, err := fmt.Fprintf(cmd.OutOrStdout(), "Deleted secret %s\n", name)
	return err
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sigil-dev/georag/internal/store"
)

type statsOutput struct {
	store.Stats `yaml:",inline"`
	Embedding   *embeddingStatus `json:"embedding" yaml:"embedding"`
}

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show document and embedding counts and the embedding provider status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			vs, err := openStore(a.cfg)
			if err != nil {
				return err
			}
			defer func() { _ = vs.Close() }()

			st, err := vs.Stats(cmd.Context())
			if err != nil {
				return err
			}

			out := statsOutput{Stats: st}
			if enc, err := newTextEncoder(a.cfg); err != nil {
				out.Embedding = &embeddingStatus{Provider: a.cfg.Embedding.Provider, Error: err.Error()}
			} else {
				out.Embedding = statusOf(a.cfg.Embedding.Provider, enc)
			}

			return render(cmd, out, func(w io.Writer) error {
				if err := writeStats(w, st); err != nil {
					return err
				}
				return writeEmbeddingStatus(w, out.Embedding)
			})
		},
	}
}

func writeStats(w io.Writer, st store.Stats) error {
	_, err := fmt.Fprintf(w, "Documents:        %d\nText embeddings:  %d\nImage embeddings: %d\n",
		st.Documents, st.TextEmbeddings, st.ImageEmbeddings)
	return err
}

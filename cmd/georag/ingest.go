// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sigil-dev/georag/internal/pipeline"
	ragerr "github.com/sigil-dev/georag/pkg/errors"
)

type ingestFailure struct {
	Line  int    `json:"record" yaml:"record"`
	Error string `json:"error" yaml:"error"`
}

type ingestSummary struct {
	Records int             `json:"records" yaml:"records"`
	Stored  int             `json:"stored" yaml:"stored"`
	IDs     []string        `json:"ids" yaml:"ids"`
	Failed  []ingestFailure `json:"failed,omitempty" yaml:"failed,omitempty"`
	// Set when a text encoder was used.
	Embedding *embeddingStatus `json:"embedding,omitempty" yaml:"embedding,omitempty"`
}

func newIngestCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest [FILE]",
		Short: "Add documents to the vector store",
		Long: "Ingest documents from a JSON Lines file (\"-\" reads stdin), one object per line with\n" +
			"text, class, path, metadata and optional text_vector / image_vector fields,\n" +
			"or a single document given with --text. Missing text vectors are embedded with\n" +
			"the configured provider.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runIngest(cmd, args)
		},
	}

	cmd.Flags().String("text", "", "text of a single document to ingest")
	cmd.Flags().String("class", "", "class of the single document (default ingest.default_class)")
	cmd.Flags().String("path", "", "source path of the single document")
	cmd.Flags().String("id", "", "explicit id of the single document")

	return cmd
}

func (a *app) readIngestRecords(cmd *cobra.Command, args []string) ([]pipeline.Record, error) {
	text, _ := cmd.Flags().GetString("text")

	switch {
	case len(args) == 1 && text != "":
		return nil, ragerr.New(ragerr.CodeCLIInputInvalid, "use either a FILE or --text, not both")
	case len(args) == 1:
		var r io.Reader = cmd.InOrStdin()
		if args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return nil, ragerr.Errorf(ragerr.CodeCLIInputInvalid, "opening %s: %w", args[0], err)
			}
			defer func() { _ = f.Close() }()
			r = f
		}
		return pipeline.ReadRecords(r)
	case text != "":
		class, _ := cmd.Flags().GetString("class")
		path, _ := cmd.Flags().GetString("path")
		id, _ := cmd.Flags().GetString("id")
		return []pipeline.Record{{ID: id, Text: text, Class: class, Path: path}}, nil
	default:
		return nil, ragerr.New(ragerr.CodeCLIInputInvalid, "nothing to ingest: pass a FILE or --text")
	}
}

func (a *app) runIngest(cmd *cobra.Command, args []string) error {
	recs, err := a.readIngestRecords(cmd, args)
	if err != nil {
		return err
	}

	needEncoder := false
	for _, r := range recs {
		if r.TextVector == nil {
			needEncoder = true
			break
		}
	}

	vs, err := openStore(a.cfg)
	if err != nil {
		return err
	}
	defer func() { _ = vs.Close() }()

	p, enc, err := wirePipeline(a.cfg, vs, needEncoder)
	if err != nil {
		return err
	}

	res, err := p.IngestBatch(cmd.Context(), recs)
	if err != nil {
		return err
	}

	summary := ingestSummary{Records: len(recs), Stored: res.Stored(), IDs: []string{}}
	for _, id := range res.IDs {
		if id != "" {
			summary.IDs = append(summary.IDs, id)
		}
	}
	if enc != nil {
		summary.Embedding = statusOf(a.cfg.Embedding.Provider, enc)
	}
	for _, f := range res.Failed {
		summary.Failed = append(summary.Failed, ingestFailure{Line: f.Index + 1, Error: f.Err.Error()})
	}

	if err := render(cmd, summary, func(w io.Writer) error {
		if _, err := fmt.Fprintf(w, "Stored %d of %d documents\n", summary.Stored, summary.Records); err != nil {
			return err
		}
		for _, f := range summary.Failed {
			if _, err := fmt.Fprintf(w, "  record %d: %s\n", f.Line, f.Error); err != nil {
				return err
			}
		}
		if summary.Embedding != nil && summary.Embedding.Health != nil && !summary.Embedding.Health.Available {
			return writeEmbeddingStatus(w, summary.Embedding)
		}
		return nil
	}); err != nil {
		return err
	}

	if len(res.Failed) > 0 {
		return ragerr.Errorf(ragerr.CodeCLIInputInvalid, "%d of %d records failed", len(res.Failed), len(recs))
	}
	return nil
}

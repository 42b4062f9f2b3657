// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sigil-dev/georag/internal/pipeline"
	ragerr "github.com/sigil-dev/georag/pkg/errors"
)

type queryOutput struct {
	Query        string           `json:"query" yaml:"query"`
	QueryID      string           `json:"query_id,omitempty" yaml:"query_id,omitempty"`
	NumRetrieved int              `json:"num_retrieved" yaml:"num_retrieved"`
	Documents    []map[string]any `json:"documents" yaml:"documents"`
}

func newQueryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query [TEXT]",
		Short: "Rank stored documents against a text (and optional image) query",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runQuery(cmd, args)
		},
	}

	cmd.Flags().IntP("top-k", "k", 0, "number of documents to return (default retrieval.top_k)")
	cmd.Flags().String("class", "", "only rank documents of this class")
	cmd.Flags().String("model", "", "only rank text embeddings produced by this model")
	cmd.Flags().String("image", "", "path of an image to embed as part of the query")
	cmd.Flags().String("text-vector", "", "precomputed text query vector as a JSON array")
	cmd.Flags().String("image-vector", "", "precomputed image query vector as a JSON array")
	cmd.Flags().Bool("record", false, "store the query representation as a query_ document")

	return cmd
}

func parseVectorFlag(cmd *cobra.Command, name string) ([]float32, error) {
	raw, _ := cmd.Flags().GetString(name)
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var v []float32
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, ragerr.Errorf(ragerr.CodeCLIInputInvalid, "--%s must be a JSON array of numbers: %w", name, err)
	}
	if v == nil {
		v = []float32{}
	}
	return v, nil
}

func (a *app) runQuery(cmd *cobra.Command, args []string) error {
	req := pipeline.QueryRequest{}
	if len(args) == 1 {
		req.Text = args[0]
	}
	req.TopK, _ = cmd.Flags().GetInt("top-k")
	req.Class, _ = cmd.Flags().GetString("class")
	req.Model, _ = cmd.Flags().GetString("model")
	req.Record, _ = cmd.Flags().GetBool("record")
	req.ImagePath, _ = cmd.Flags().GetString("image")

	var err error
	if req.TextVector, err = parseVectorFlag(cmd, "text-vector"); err != nil {
		return err
	}
	if req.ImageVector, err = parseVectorFlag(cmd, "image-vector"); err != nil {
		return err
	}
	if req.Text == "" && req.TextVector == nil {
		return ragerr.New(ragerr.CodeCLIInputInvalid, "nothing to query: pass TEXT or --text-vector")
	}

	vs, err := openStore(a.cfg)
	if err != nil {
		return err
	}
	defer func() { _ = vs.Close() }()

	p, _, err := wirePipeline(a.cfg, vs, req.TextVector == nil)
	if err != nil {
		return err
	}

	resp, err := p.Query(cmd.Context(), req)
	if err != nil {
		return err
	}

	out := queryOutput{
		Query:        resp.Query,
		QueryID:      resp.QueryID,
		NumRetrieved: len(resp.Results),
		Documents:    make([]map[string]any, 0, len(resp.Results)),
	}
	for _, r := range resp.Results {
		doc := r.View()
		doc["description"] = r.Description
		doc["path"] = r.SourcePath
		out.Documents = append(out.Documents, doc)
	}

	return render(cmd, out, func(w io.Writer) error {
		if resp.QueryID != "" {
			if _, err := fmt.Fprintf(w, "Recorded query as %s\n", resp.QueryID); err != nil {
				return err
			}
		}
		_, err := fmt.Fprintln(w, resp.Context())
		return err
	})
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/sigil-dev/georag/internal/retriever"
	"github.com/sigil-dev/georag/internal/store"
	ragerr "github.com/sigil-dev/georag/pkg/errors"
)

// QueryRequest describes one retrieval. Vectors take precedence over the
// text and image path they would be computed from.
type QueryRequest struct {
	Text        string
	TextVector  []float32
	ImagePath   string
	ImageVector []float32
	TopK        int    // 0 uses Options.TopK
	Class       string // empty matches every class
	Model       string // restrict to text embeddings of this model
	Record      bool   // store the query representation as a query_ document
}

// QueryResponse holds the ranked documents of a query.
type QueryResponse struct {
	Query   string
	QueryID string // set when the query was recorded
	Results []retriever.Result
}

// Context renders the results as numbered lines of description and
// similarity.
func (r *QueryResponse) Context() string {
	if len(r.Results) == 0 {
		return "No relevant context found."
	}
	var b strings.Builder
	for i, res := range r.Results {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d. %s (similarity: %.3f)", i+1, res.Description, res.Score)
	}
	return b.String()
}

// Query embeds the request where needed and ranks stored documents.
func (p *Pipeline) Query(ctx context.Context, req QueryRequest) (*QueryResponse, error) {
	topK := req.TopK
	if topK == 0 {
		topK = p.opts.TopK
	}

	textVec := req.TextVector
	if textVec == nil && strings.TrimSpace(req.Text) != "" {
		if p.text == nil {
			return nil, ragerr.New(ragerr.CodePipelineInputInvalid,
				"query has no text vector and no text encoder is configured")
		}
		v, err := p.text.EncodeText(ctx, req.Text, p.opts.Normalize)
		if err != nil {
			return nil, err
		}
		textVec = v
	}

	imageVec := req.ImageVector
	if imageVec == nil && req.ImagePath != "" {
		if p.image == nil {
			return nil, ragerr.New(ragerr.CodeEmbeddingUnsupported,
				"query has an image but no image encoder is configured", ragerr.FieldPath(req.ImagePath))
		}
		v, err := p.image.EncodeImage(ctx, req.ImagePath, p.opts.Normalize)
		if err != nil {
			return nil, err
		}
		imageVec = v
	}

	opts := []retriever.Option{
		retriever.WithWeights(p.opts.TextWeight, p.opts.ImageWeight),
		retriever.WithLogger(p.logger),
	}
	if imageVec != nil {
		opts = append(opts, retriever.WithImageQuery(imageVec))
	}
	if req.Model != "" {
		opts = append(opts, retriever.WithModelName(req.Model))
	}
	r, err := retriever.New(p.store, textVec, opts...)
	if err != nil {
		return nil, err
	}

	resp := &QueryResponse{Query: req.Text}
	if req.Record {
		id, err := p.recordQuery(ctx, req, textVec, imageVec, topK)
		if err != nil {
			return nil, err
		}
		resp.QueryID = id
	}

	results, err := r.GetRelevantDocuments(ctx, topK, req.Class)
	if err != nil {
		return nil, err
	}
	resp.Results = results

	p.logger.Info("query processed",
		slog.Int("retrieved", len(results)),
		slog.Int("top_k", topK),
		slog.String("class", req.Class),
		slog.Bool("image", imageVec != nil),
	)
	return resp, nil
}

func (p *Pipeline) recordQuery(ctx context.Context, req QueryRequest, textVec, imageVec []float32, topK int) (string, error) {
	id := store.ReservedQueryPrefix + uuid.NewString()
	md := map[string]any{"top_k": topK}
	if req.Class != "" {
		md["filter_class"] = req.Class
	}
	err := p.store.Upsert(ctx, id, store.NewDocument{
		Text:        req.Text,
		TextVector:  textVec,
		ImageVector: imageVec,
		Metadata:    md,
		Class:       QueryClass,
		SourcePath:  req.ImagePath,
		ModelName:   p.opts.ModelName,
	})
	if err != nil {
		return "", err
	}
	p.logger.Debug("query recorded", slog.String("document_id", id))
	return id, nil
}

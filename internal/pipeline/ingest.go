// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/sigil-dev/georag/internal/store"
	ragerr "github.com/sigil-dev/georag/pkg/errors"
)

// RecordError reports the failure of one record in a batch.
type RecordError struct {
	Index int
	ID    string
	Err   error
}

func (e RecordError) Error() string {
	return fmt.Sprintf("record %d: %v", e.Index, e.Err)
}

func (e RecordError) Unwrap() error { return e.Err }

// BatchResult summarizes an IngestBatch call. IDs is aligned with the input;
// failed records leave an empty entry.
type BatchResult struct {
	IDs    []string
	Failed []RecordError
}

// Stored returns the number of records written.
func (r *BatchResult) Stored() int {
	return len(r.IDs) - len(r.Failed)
}

// Ingest embeds what rec lacks and writes it. The returned ID is rec.ID
// when set, otherwise the derived document ID.
func (p *Pipeline) Ingest(ctx context.Context, rec Record) (string, error) {
	doc, err := p.prepare(ctx, rec)
	if err != nil {
		return "", err
	}
	return p.write(ctx, rec.ID, doc)
}

// IngestBatch embeds records concurrently, bounded by Options.Concurrency,
// then writes them one by one on the calling goroutine. A failing record
// does not stop the batch; a canceled context or a closed store does.
func (p *Pipeline) IngestBatch(ctx context.Context, recs []Record) (*BatchResult, error) {
	docs := make([]store.NewDocument, len(recs))
	prepErrs := make([]error, len(recs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Concurrency)
	for i, rec := range recs {
		g.Go(func() error {
			doc, err := p.prepare(gctx, rec)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				prepErrs[i] = err
				return nil
			}
			docs[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, ragerr.Wrap(err, ragerr.CodePipelineCanceled, "batch ingest interrupted")
	}

	res := &BatchResult{IDs: make([]string, len(recs))}
	for i, rec := range recs {
		if err := prepErrs[i]; err != nil {
			res.Failed = append(res.Failed, RecordError{Index: i, ID: rec.ID, Err: err})
			continue
		}
		id, err := p.write(ctx, rec.ID, docs[i])
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return res, ragerr.Wrap(ctxErr, ragerr.CodePipelineCanceled, "batch ingest interrupted")
			}
			if ragerr.HasCode(err, ragerr.CodeStoreHandleClosed) {
				return res, err
			}
			res.Failed = append(res.Failed, RecordError{Index: i, ID: rec.ID, Err: err})
			continue
		}
		res.IDs[i] = id
	}

	p.logger.Info("batch ingested",
		slog.Int("records", len(recs)),
		slog.Int("stored", res.Stored()),
		slog.Int("failed", len(res.Failed)),
	)
	return res, nil
}

func (p *Pipeline) write(ctx context.Context, id string, doc store.NewDocument) (string, error) {
	if id == "" {
		return p.store.AddDocument(ctx, doc)
	}
	if store.IsReservedID(id) {
		return "", ragerr.New(ragerr.CodePipelineInputInvalid,
			"pipeline: ids starting with "+store.ReservedQueryPrefix+" are reserved for recorded queries",
			ragerr.FieldDocumentID(id))
	}
	if err := p.store.Upsert(ctx, id, doc); err != nil {
		return "", err
	}
	return id, nil
}

// prepare resolves the text and vectors of rec. A record must end up with
// a text vector; the image vector is optional.
func (p *Pipeline) prepare(ctx context.Context, rec Record) (store.NewDocument, error) {
	class := rec.Class
	if class == "" {
		class = p.opts.DefaultClass
	}
	// Generated ids start with the class, so this class would produce
	// reserved ids that are never retrieved.
	if class == QueryClass {
		return store.NewDocument{}, ragerr.New(ragerr.CodePipelineInputInvalid,
			"pipeline: class "+QueryClass+" is reserved for recorded queries", ragerr.FieldDocumentID(rec.ID))
	}

	text := rec.Text
	if strings.TrimSpace(text) == "" && rec.Path != "" && p.captioner != nil {
		caption, err := p.captioner.Caption(ctx, rec.Path)
		if err != nil {
			return store.NewDocument{}, ragerr.Wrap(err, ragerr.CodeEmbeddingUpstreamFailure,
				"captioning image", ragerr.FieldPath(rec.Path))
		}
		text = caption
	}

	textVec := rec.TextVector
	if textVec == nil {
		if strings.TrimSpace(text) == "" {
			return store.NewDocument{}, ragerr.New(ragerr.CodePipelineInputInvalid,
				"record has neither text nor a text vector", ragerr.FieldPath(rec.Path))
		}
		if p.text == nil {
			return store.NewDocument{}, ragerr.New(ragerr.CodePipelineInputInvalid,
				"record has no text vector and no text encoder is configured")
		}
		v, err := p.text.EncodeText(ctx, text, p.opts.Normalize)
		if err != nil {
			return store.NewDocument{}, err
		}
		textVec = v
	}

	imageVec := rec.ImageVector
	if imageVec == nil && rec.Path != "" && p.image != nil {
		v, err := p.image.EncodeImage(ctx, rec.Path, p.opts.Normalize)
		if err != nil && !ragerr.HasCode(err, ragerr.CodeEmbeddingUnsupported) {
			return store.NewDocument{}, err
		}
		imageVec = v
	}

	return store.NewDocument{
		Text:        text,
		TextVector:  textVec,
		ImageVector: imageVec,
		Metadata:    rec.Metadata,
		Class:       class,
		SourcePath:  rec.Path,
		ModelName:   p.opts.ModelName,
	}, nil
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package pipeline wires embedding providers, the vector store and the
// retriever into ingest and query operations.
package pipeline

import (
	"log/slog"

	"github.com/sigil-dev/georag/internal/embedding"
	"github.com/sigil-dev/georag/internal/retriever"
	"github.com/sigil-dev/georag/internal/store"
	ragerr "github.com/sigil-dev/georag/pkg/errors"
)

const (
	DefaultTopK        = 5
	DefaultConcurrency = 4

	// QueryClass is the class of recorded query documents.
	QueryClass = "query"
)

// Options holds the defaults applied to ingest and query calls.
type Options struct {
	TopK         int
	TextWeight   float64
	ImageWeight  float64
	DefaultClass string
	ModelName    string // recorded with every stored embedding
	Concurrency  int    // parallel embedding calls in IngestBatch
	Normalize    bool   // L2-normalize vectors produced by encoders
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{
		TopK:         DefaultTopK,
		TextWeight:   retriever.DefaultTextWeight,
		ImageWeight:  retriever.DefaultImageWeight,
		DefaultClass: store.DefaultClass,
		ModelName:    store.DefaultModelName,
		Concurrency:  DefaultConcurrency,
		Normalize:    true,
	}
}

func (o Options) validate() error {
	if o.TopK < 1 {
		return ragerr.Errorf(ragerr.CodePipelineInputInvalid, "pipeline: top_k must be at least 1, got %d", o.TopK)
	}
	if o.Concurrency < 1 {
		return ragerr.Errorf(ragerr.CodePipelineInputInvalid, "pipeline: concurrency must be at least 1, got %d", o.Concurrency)
	}
	if o.DefaultClass == QueryClass {
		return ragerr.New(ragerr.CodePipelineInputInvalid, "pipeline: default class "+QueryClass+" is reserved for recorded queries")
	}
	return nil
}

// Option configures the collaborators of a Pipeline.
type Option func(*Pipeline)

func WithTextEncoder(enc embedding.TextEncoder) Option {
	return func(p *Pipeline) { p.text = enc }
}

func WithImageEncoder(enc embedding.ImageEncoder) Option {
	return func(p *Pipeline) { p.image = enc }
}

// WithCaptioner sets the provider used to describe images ingested
// without text.
func WithCaptioner(c embedding.Captioner) Option {
	return func(p *Pipeline) { p.captioner = c }
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// Pipeline is the orchestrator. It owns no resources; the caller closes the
// store.
type Pipeline struct {
	store     store.VectorStore
	opts      Options
	text      embedding.TextEncoder
	image     embedding.ImageEncoder
	captioner embedding.Captioner
	logger    *slog.Logger
}

// New creates a Pipeline over vs. Encoders are optional; without them every
// record and query must carry precomputed vectors.
func New(vs store.VectorStore, opts Options, deps ...Option) (*Pipeline, error) {
	if vs == nil {
		return nil, ragerr.New(ragerr.CodePipelineInputInvalid, "pipeline: vector store is required")
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if opts.DefaultClass == "" {
		opts.DefaultClass = store.DefaultClass
	}
	if opts.ModelName == "" {
		opts.ModelName = store.DefaultModelName
	}

	p := &Pipeline{store: vs, opts: opts, logger: slog.Default()}
	for _, d := range deps {
		d(p)
	}
	return p, nil
}

// Options returns the effective defaults.
func (p *Pipeline) Options() Options {
	return p.opts
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"fmt"
	"io"
	"time"

	"github.com/sigil-dev/georag/internal/config"
	"github.com/sigil-dev/georag/internal/embedding"
	"github.com/sigil-dev/georag/internal/pipeline"
	"github.com/sigil-dev/georag/internal/secrets"
	"github.com/sigil-dev/georag/internal/store"
	_ "github.com/sigil-dev/georag/internal/store/sqlite" // register sqlite backend
	ragerr "github.com/sigil-dev/georag/pkg/errors"
	"github.com/sigil-dev/georag/pkg/health"
)

// secretStoreFactory is a variable so tests can swap the keyring.
var secretStoreFactory = func() secrets.Store {
	return secrets.NewKeyringStore()
}

// openStore opens the configured vector store.
func openStore(cfg *config.Config) (store.VectorStore, error) {
	return store.OpenVectorStore(cfg.StoreConfig())
}

// newTextEncoder builds the configured text encoder, resolving a keyring://
// API key first.
func newTextEncoder(cfg *config.Config) (embedding.TextEncoder, error) {
	ec := cfg.EmbeddingProvider()
	key, err := secrets.Resolve(secretStoreFactory(), ec.APIKey)
	if err != nil {
		return nil, err
	}
	ec.APIKey = key

	enc, err := embedding.NewTextEncoder(ec)
	if err != nil {
		return nil, ragerr.Wrap(err, ragerr.CodeCLISetupFailure, "creating text encoder")
	}
	return enc, nil
}

// wirePipeline builds the orchestrator over vs. The text encoder is only
// constructed when needEncoder is set, so commands fed precomputed vectors
// work without provider credentials. The returned encoder is nil otherwise.
func wirePipeline(cfg *config.Config, vs store.VectorStore, needEncoder bool) (*pipeline.Pipeline, embedding.TextEncoder, error) {
	opts := pipeline.Options{
		TopK:         cfg.Retrieval.TopK,
		TextWeight:   cfg.Retrieval.TextWeight,
		ImageWeight:  cfg.Retrieval.ImageWeight,
		DefaultClass: cfg.Ingest.DefaultClass,
		ModelName:    cfg.Ingest.ModelName,
		Concurrency:  cfg.Embedding.Concurrency,
		Normalize:    cfg.Embedding.Normalize,
	}

	var (
		deps []pipeline.Option
		enc  embedding.TextEncoder
	)
	if needEncoder {
		var err error
		if enc, err = newTextEncoder(cfg); err != nil {
			return nil, nil, err
		}
		deps = append(deps, pipeline.WithTextEncoder(enc))
		if opts.ModelName == "" {
			opts.ModelName = enc.ModelName()
		}
	}

	p, err := pipeline.New(vs, opts, deps...)
	if err != nil {
		return nil, nil, err
	}
	return p, enc, nil
}

// embeddingStatus describes the configured provider and, when it tracks
// upstream health, its availability.
type embeddingStatus struct {
	Provider   string          `json:"provider" yaml:"provider"`
	Model      string          `json:"model,omitempty" yaml:"model,omitempty"`
	Dimensions int             `json:"dimensions,omitempty" yaml:"dimensions,omitempty"`
	Health     *health.Metrics `json:"health,omitempty" yaml:"health,omitempty"`
	Error      string          `json:"error,omitempty" yaml:"error,omitempty"`
}

func statusOf(provider string, enc embedding.TextEncoder) *embeddingStatus {
	st := &embeddingStatus{Provider: provider, Model: enc.ModelName(), Dimensions: enc.Dimensions()}
	if m, ok := embedding.HealthOf(enc); ok {
		st.Health = &m
	}
	return st
}

func writeEmbeddingStatus(w io.Writer, st *embeddingStatus) error {
	if st.Error != "" {
		_, err := fmt.Fprintf(w, "Embedding:        %s (%s)\n", st.Provider, st.Error)
		return err
	}
	state := "n/a"
	if st.Health != nil {
		state = "available"
		if !st.Health.Available {
			state = "unavailable"
			if st.Health.CooldownUntil != nil {
				state += " until " + st.Health.CooldownUntil.Format(time.RFC3339)
			}
		}
	}
	_, err := fmt.Fprintf(w, "Embedding:        %s %s (%d dims, %s)\n", st.Provider, st.Model, st.Dimensions, state)
	return err
}

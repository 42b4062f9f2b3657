// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package embedding

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	ragerr "github.com/sigil-dev/georag/pkg/errors"
	"github.com/sigil-dev/georag/pkg/health"
)

const DefaultGoogleModel = "gemini-embedding-001"

// GoogleConfig holds Gemini embedding provider configuration.
type GoogleConfig struct {
	APIKey     string
	BaseURL    string // optional, useful for testing against a mock server
	Model      string
	Dimensions int // 0 keeps the model's native size
}

// Google implements TextEncoder using the Gemini API embedContent endpoint.
type Google struct {
	client *genai.Client
	config GoogleConfig
	health *HealthTracker
	logger *slog.Logger
}

var _ TextEncoder = (*Google)(nil)

// NewGoogle creates a Gemini text encoder. Returns an error if the API key
// is missing.
func NewGoogle(cfg GoogleConfig) (*Google, error) {
	if cfg.APIKey == "" {
		return nil, ragerr.New(ragerr.CodeEmbeddingConfigInvalid, "google: missing api_key in config")
	}
	if cfg.Dimensions < 0 {
		return nil, ragerr.Errorf(ragerr.CodeEmbeddingConfigInvalid, "google: dimensions must be non-negative, got %d", cfg.Dimensions)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultGoogleModel
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(context.Background(), cc)
	if err != nil {
		return nil, ragerr.Wrap(err, ragerr.CodeEmbeddingConfigInvalid, "google: creating client")
	}

	tracker, err := NewHealthTracker(DefaultHealthCooldown)
	if err != nil {
		return nil, err
	}

	return &Google{
		client: client,
		config: cfg,
		health: tracker,
		logger: slog.Default(),
	}, nil
}

func (p *Google) ModelName() string { return p.config.Model }

// Dimensions returns the configured output size, or the native size of the
// known Gemini embedding models, or 0 when unknown.
func (p *Google) Dimensions() int {
	if p.config.Dimensions > 0 {
		return p.config.Dimensions
	}
	switch p.config.Model {
	case "gemini-embedding-001":
		return 3072
	case "text-embedding-004":
		return 768
	}
	return 0
}

// Health returns the upstream health snapshot of this encoder.
func (p *Google) Health() health.Metrics {
	return p.health.Metrics()
}

// HealthTracker exposes the tracker so callers can inject a time source.
func (p *Google) HealthTracker() *HealthTracker {
	return p.health
}

func (p *Google) EncodeText(ctx context.Context, text string, normalize bool) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ragerr.New(ragerr.CodeEmbeddingInputInvalid, "google: text must not be empty")
	}
	if !p.health.IsHealthy() {
		return nil, ragerr.New(ragerr.CodeEmbeddingUpstreamFailure, "google: provider is cooling down after a failure",
			ragerr.Field("model", p.config.Model))
	}

	ec := &genai.EmbedContentConfig{TaskType: "RETRIEVAL_DOCUMENT"}
	if p.config.Dimensions > 0 {
		dims := int32(p.config.Dimensions)
		ec.OutputDimensionality = &dims
	}

	resp, err := p.client.Models.EmbedContent(ctx, p.config.Model, genai.Text(text), ec)
	if err != nil {
		if ctx.Err() == nil {
			p.health.RecordFailure()
		}
		fields := []ragerr.Attr{ragerr.Field("model", p.config.Model)}
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			fields = append(fields, ragerr.Field("status", apiErr.Code))
		}
		p.logger.Warn("google embedding request failed",
			slog.String("model", p.config.Model),
			slog.Any("error", err),
		)
		return nil, ragerr.Wrap(err, ragerr.CodeEmbeddingUpstreamFailure, "google: embedding request failed", fields...)
	}
	p.health.RecordSuccess()

	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil || len(resp.Embeddings[0].Values) == 0 {
		return nil, ragerr.New(ragerr.CodeEmbeddingResponseInvalid, "google: response contains no embedding",
			ragerr.Field("model", p.config.Model))
	}
	raw := resp.Embeddings[0].Values
	if p.config.Dimensions > 0 && len(raw) != p.config.Dimensions {
		return nil, ragerr.Errorf(ragerr.CodeEmbeddingResponseInvalid,
			"google: expected %d dimensions, got %d", p.config.Dimensions, len(raw))
	}

	vec := make([]float32, len(raw))
	copy(vec, raw)
	if normalize {
		Normalize(vec)
	}
	return vec, nil
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package embedding

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	ragerr "github.com/sigil-dev/georag/pkg/errors"
	"github.com/sigil-dev/georag/pkg/health"
)

const DefaultOpenAIModel = "text-embedding-3-small"

// OpenAIConfig holds OpenAI embedding provider configuration.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string // optional, useful for testing against a mock server
	Model      string
	Dimensions int // 0 keeps the model's native size
	MaxRetries int // 0 keeps the SDK default
}

// OpenAI implements TextEncoder using the OpenAI embeddings API.
type OpenAI struct {
	client openaisdk.Client
	config OpenAIConfig
	health *HealthTracker
	logger *slog.Logger
}

var _ TextEncoder = (*OpenAI)(nil)

// NewOpenAI creates an OpenAI text encoder. Returns an error if the API key
// is missing.
func NewOpenAI(cfg OpenAIConfig) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, ragerr.New(ragerr.CodeEmbeddingConfigInvalid, "openai: missing api_key in config")
	}
	if cfg.Dimensions < 0 {
		return nil, ragerr.Errorf(ragerr.CodeEmbeddingConfigInvalid, "openai: dimensions must be non-negative, got %d", cfg.Dimensions)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.MaxRetries > 0 {
		opts = append(opts, option.WithMaxRetries(cfg.MaxRetries))
	}

	tracker, err := NewHealthTracker(DefaultHealthCooldown)
	if err != nil {
		return nil, err
	}

	return &OpenAI{
		client: openaisdk.NewClient(opts...),
		config: cfg,
		health: tracker,
		logger: slog.Default(),
	}, nil
}

func (p *OpenAI) ModelName() string { return p.config.Model }

// Dimensions returns the configured output size, or the native size of the
// known OpenAI embedding models, or 0 when unknown.
func (p *OpenAI) Dimensions() int {
	if p.config.Dimensions > 0 {
		return p.config.Dimensions
	}
	switch p.config.Model {
	case "text-embedding-3-small", "text-embedding-ada-002":
		return 1536
	case "text-embedding-3-large":
		return 3072
	}
	return 0
}

// Health returns the upstream health snapshot of this encoder.
func (p *OpenAI) Health() health.Metrics {
	return p.health.Metrics()
}

// HealthTracker exposes the tracker so callers can inject a time source.
func (p *OpenAI) HealthTracker() *HealthTracker {
	return p.health
}

func (p *OpenAI) EncodeText(ctx context.Context, text string, normalize bool) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ragerr.New(ragerr.CodeEmbeddingInputInvalid, "openai: text must not be empty")
	}
	if !p.health.IsHealthy() {
		return nil, ragerr.New(ragerr.CodeEmbeddingUpstreamFailure, "openai: provider is cooling down after a failure",
			ragerr.Field("model", p.config.Model))
	}

	params := openaisdk.EmbeddingNewParams{
		Input: openaisdk.EmbeddingNewParamsInputUnion{OfString: openaisdk.String(text)},
		Model: openaisdk.EmbeddingModel(p.config.Model),
	}
	if p.config.Dimensions > 0 {
		params.Dimensions = openaisdk.Int(int64(p.config.Dimensions))
	}

	resp, err := p.client.Embeddings.New(ctx, params)
	if err != nil {
		if ctx.Err() == nil {
			p.health.RecordFailure()
		}
		fields := []ragerr.Attr{ragerr.Field("model", p.config.Model)}
		var apiErr *openaisdk.Error
		if errors.As(err, &apiErr) {
			fields = append(fields, ragerr.Field("status", apiErr.StatusCode))
		}
		p.logger.Warn("openai embedding request failed",
			slog.String("model", p.config.Model),
			slog.Any("error", err),
		)
		return nil, ragerr.Wrap(err, ragerr.CodeEmbeddingUpstreamFailure, "openai: embedding request failed", fields...)
	}
	p.health.RecordSuccess()

	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, ragerr.New(ragerr.CodeEmbeddingResponseInvalid, "openai: response contains no embedding",
			ragerr.Field("model", p.config.Model))
	}
	raw := resp.Data[0].Embedding
	if p.config.Dimensions > 0 && len(raw) != p.config.Dimensions {
		return nil, ragerr.Errorf(ragerr.CodeEmbeddingResponseInvalid,
			"openai: expected %d dimensions, got %d", p.config.Dimensions, len(raw))
	}

	vec := make([]float32, len(raw))
	for i, f := range raw {
		vec[i] = float32(f)
	}
	if normalize {
		Normalize(vec)
	}
	return vec, nil
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package embedding

import (
	"context"

	ragerr "github.com/sigil-dev/georag/pkg/errors"
	"github.com/sigil-dev/georag/pkg/health"
)

const (
	ProviderOpenAI = "openai"
	ProviderGoogle = "google"
	ProviderNone   = "none"
)

// Providers lists the accepted values of Config.Provider.
var Providers = []string{ProviderOpenAI, ProviderGoogle, ProviderNone}

// HealthReporter is implemented by encoders that track upstream health.
type HealthReporter interface {
	Health() health.Metrics
}

// HealthOf returns the health of enc, looking through a rate limiter. The
// second result is false when enc does not track health.
func HealthOf(enc TextEncoder) (health.Metrics, bool) {
	if t, ok := enc.(*Throttled); ok {
		enc = t.TextEncoder
	}
	hr, ok := enc.(HealthReporter)
	if !ok {
		return health.Metrics{}, false
	}
	return hr.Health(), true
}

// Config selects and configures a text embedding provider.
type Config struct {
	Provider          string
	Model             string
	Dimensions        int
	APIKey            string
	BaseURL           string
	RequestsPerSecond float64
	MaxRetries        int
}

// NewTextEncoder builds the text encoder named by cfg.Provider, wrapped in a
// rate limiter when cfg.RequestsPerSecond is positive. The "none" provider
// yields an encoder that always fails, for stores fed only precomputed
// vectors.
func NewTextEncoder(cfg Config) (TextEncoder, error) {
	switch cfg.Provider {
	case ProviderOpenAI, "":
		enc, err := NewOpenAI(OpenAIConfig{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			MaxRetries: cfg.MaxRetries,
		})
		if err != nil {
			return nil, err
		}
		return Throttle(enc, cfg.RequestsPerSecond, 1), nil
	case ProviderGoogle:
		enc, err := NewGoogle(GoogleConfig{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
		})
		if err != nil {
			return nil, err
		}
		return Throttle(enc, cfg.RequestsPerSecond, 1), nil
	case ProviderNone:
		return Disabled{Model: cfg.Model, Dims: cfg.Dimensions}, nil
	default:
		return nil, ragerr.Errorf(ragerr.CodeEmbeddingConfigInvalid, "unknown embedding provider %q", cfg.Provider)
	}
}

// Disabled is a TextEncoder and ImageEncoder that refuses to encode.
type Disabled struct {
	Model string
	Dims  int
}

var (
	_ TextEncoder  = Disabled{}
	_ ImageEncoder = Disabled{}
)

func (d Disabled) Dimensions() int   { return d.Dims }
func (d Disabled) ModelName() string { return d.Model }

func (d Disabled) EncodeText(context.Context, string, bool) ([]float32, error) {
	return nil, ragerr.New(ragerr.CodeEmbeddingUnsupported, "no text embedding provider is configured",
		ragerr.FieldModality("text"))
}

func (d Disabled) EncodeImage(_ context.Context, path string, _ bool) ([]float32, error) {
	return nil, ragerr.New(ragerr.CodeEmbeddingUnsupported, "no image embedding provider is configured",
		ragerr.FieldModality("image"), ragerr.FieldPath(path))
}

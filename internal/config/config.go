// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package config

import (
	"errors"
	"math"
	"slices"
	"strings"

	"github.com/spf13/viper"

	"github.com/sigil-dev/georag/internal/embedding"
	"github.com/sigil-dev/georag/internal/store"
	ragerr "github.com/sigil-dev/georag/pkg/errors"
)

// Config is the top-level georag configuration.
type Config struct {
	Storage   StorageConfig   `mapstructure:"storage" yaml:"storage"`
	Retrieval RetrievalConfig `mapstructure:"retrieval" yaml:"retrieval"`
	Embedding EmbeddingConfig `mapstructure:"embedding" yaml:"embedding"`
	Ingest    IngestConfig    `mapstructure:"ingest" yaml:"ingest"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
}

// StorageConfig selects the vector store backend and its file.
type StorageConfig struct {
	Backend    string `mapstructure:"backend" yaml:"backend"`
	Path       string `mapstructure:"path" yaml:"path"`
	AutoCreate bool   `mapstructure:"auto_create" yaml:"auto_create"`
}

// RetrievalConfig holds the ranking defaults.
type RetrievalConfig struct {
	TextWeight  float64 `mapstructure:"text_weight" yaml:"text_weight"`
	ImageWeight float64 `mapstructure:"image_weight" yaml:"image_weight"`
	TopK        int     `mapstructure:"top_k" yaml:"top_k"`
}

// EmbeddingConfig selects the text embedding provider.
type EmbeddingConfig struct {
	Provider          string  `mapstructure:"provider" yaml:"provider"`
	Model             string  `mapstructure:"model" yaml:"model"`
	Dimensions        int     `mapstructure:"dimensions" yaml:"dimensions"`
	APIKey            string  `mapstructure:"api_key" yaml:"api_key"`
	BaseURL           string  `mapstructure:"base_url" yaml:"base_url"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	Concurrency       int     `mapstructure:"concurrency" yaml:"concurrency"`
	Normalize         bool    `mapstructure:"normalize" yaml:"normalize"`
}

// IngestConfig holds the defaults applied to ingested records.
type IngestConfig struct {
	DefaultClass string `mapstructure:"default_class" yaml:"default_class"`
	ModelName    string `mapstructure:"model_name" yaml:"model_name"` // empty records the embedding model
}

// LogConfig controls the CLI logger.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("storage.backend", "sqlite")
	v.SetDefault("storage.path", "georag.db")
	v.SetDefault("storage.auto_create", true)
	v.SetDefault("retrieval.text_weight", 0.7)
	v.SetDefault("retrieval.image_weight", 0.3)
	v.SetDefault("retrieval.top_k", 5)
	v.SetDefault("embedding.provider", embedding.ProviderOpenAI)
	v.SetDefault("embedding.model", "") // each provider has its own default
	v.SetDefault("embedding.dimensions", 0)
	v.SetDefault("embedding.api_key", "")
	v.SetDefault("embedding.base_url", "")
	v.SetDefault("embedding.requests_per_second", 0)
	v.SetDefault("embedding.concurrency", 4)
	v.SetDefault("embedding.normalize", true)
	v.SetDefault("ingest.default_class", "document")
	v.SetDefault("ingest.model_name", "")
	v.SetDefault("log.level", "info")
}

// SetupEnv enables GEORAG_ environment overrides, e.g.
// GEORAG_EMBEDDING_API_KEY for embedding.api_key.
func SetupEnv(v *viper.Viper) {
	v.SetEnvPrefix("GEORAG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Default returns the configuration produced by the defaults alone.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// Load reads configuration from the given path (or defaults) with
// environment variable overrides (prefix GEORAG_).
func Load(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	SetupEnv(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, ragerr.Errorf(ragerr.CodeConfigLoadReadFailure, "reading config %s: %w", path, err)
		}
	}
	return FromViper(v)
}

// FromViper decodes and validates the configuration held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, ragerr.Errorf(ragerr.CodeConfigParseInvalidFormat, "unmarshalling config: %w", err)
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ragerr.Errorf(ragerr.CodeConfigValidateInvalidValue, "validating config: %w", errors.Join(errs...))
	}
	return &cfg, nil
}

// Validate checks the configuration for logical errors, collecting every
// issue rather than stopping at the first one.
func (c *Config) Validate() []error {
	var errs []error

	errs = append(errs, c.validateStorage()...)
	errs = append(errs, c.validateRetrieval()...)
	errs = append(errs, c.validateEmbedding()...)
	errs = append(errs, c.validateLog()...)

	return errs
}

func invalid(format string, args ...any) error {
	return ragerr.Errorf(ragerr.CodeConfigValidateInvalidValue, "config: "+format, args...)
}

func (c *Config) validateStorage() []error {
	var errs []error

	validBackends := map[string]bool{"sqlite": true}
	if !validBackends[c.Storage.Backend] {
		errs = append(errs, invalid("storage.backend must be one of [sqlite], got %q", c.Storage.Backend))
	}
	if strings.TrimSpace(c.Storage.Path) == "" {
		errs = append(errs, invalid("storage.path must not be empty"))
	}

	return errs
}

func (c *Config) validateRetrieval() []error {
	var errs []error

	for key, w := range map[string]float64{
		"retrieval.text_weight":  c.Retrieval.TextWeight,
		"retrieval.image_weight": c.Retrieval.ImageWeight,
	} {
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			errs = append(errs, invalid("%s must be a finite non-negative number, got %g", key, w))
		}
	}
	if c.Retrieval.TopK < 1 {
		errs = append(errs, invalid("retrieval.top_k must be at least 1, got %d", c.Retrieval.TopK))
	}

	return errs
}

func (c *Config) validateEmbedding() []error {
	var errs []error

	if !slices.Contains(embedding.Providers, c.Embedding.Provider) {
		errs = append(errs, invalid("embedding.provider must be one of %v, got %q", embedding.Providers, c.Embedding.Provider))
	}
	if c.Embedding.Dimensions < 0 {
		errs = append(errs, invalid("embedding.dimensions must be non-negative, got %d", c.Embedding.Dimensions))
	}
	if c.Embedding.RequestsPerSecond < 0 {
		errs = append(errs, invalid("embedding.requests_per_second must be non-negative, got %g", c.Embedding.RequestsPerSecond))
	}
	if c.Embedding.Concurrency < 1 {
		errs = append(errs, invalid("embedding.concurrency must be at least 1, got %d", c.Embedding.Concurrency))
	}

	return errs
}

func (c *Config) validateLog() []error {
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
		return nil
	}
	return []error{invalid("log.level must be one of [debug, info, warn, error], got %q", c.Log.Level)}
}

// EmbeddingProvider converts the embedding section for embedding.NewTextEncoder.
func (c *Config) EmbeddingProvider() embedding.Config {
	return embedding.Config{
		Provider:          c.Embedding.Provider,
		Model:             c.Embedding.Model,
		Dimensions:        c.Embedding.Dimensions,
		APIKey:            c.Embedding.APIKey,
		BaseURL:           c.Embedding.BaseURL,
		RequestsPerSecond: c.Embedding.RequestsPerSecond,
	}
}

// StoreConfig converts the storage section for store.OpenVectorStore.
func (c *Config) StoreConfig() *store.StorageConfig {
	return &store.StorageConfig{
		Backend:    c.Storage.Backend,
		Path:       c.Storage.Path,
		AutoCreate: c.Storage.AutoCreate,
	}
}

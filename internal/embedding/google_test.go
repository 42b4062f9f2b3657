// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package embedding_test

import (
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigil-dev/georag/internal/embedding"
	ragerr "github.com/sigil-dev/georag/pkg/errors"
)

// fakeGemini serves the Gemini embedContent endpoints, answering with
// vector or with status when status is not 200.
type fakeGemini struct {
	srv      *httptest.Server
	calls    atomic.Int32
	body     string
	path     string
	apiKey   string
	status   int
	vector   []float32
	dataless bool
}

func newFakeGemini(t *testing.T, vector []float32) *fakeGemini {
	t.Helper()
	f := &fakeGemini{status: http.StatusOK, vector: vector}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		if !strings.Contains(r.URL.Path, "mbedContent") {
			http.NotFound(w, r)
			return
		}
		body, _ := io.ReadAll(r.Body)
		f.body = string(body)
		f.path = r.URL.Path
		f.apiKey = r.Header.Get("x-goog-api-key")

		w.Header().Set("Content-Type", "application/json")
		if f.status != http.StatusOK {
			w.WriteHeader(f.status)
			_, _ = w.Write([]byte(`{"error":{"code":403,"message":"API key not valid","status":"PERMISSION_DENIED"}}`))
			return
		}
		values := map[string]any{"values": f.vector}
		embeddings := []any{values}
		if f.dataless {
			embeddings = []any{}
		}
		// Single and batch response shapes.
		resp := map[string]any{"embeddings": embeddings}
		if !f.dataless {
			resp["embedding"] = values
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func newTestGoogle(t *testing.T, f *fakeGemini, cfg embedding.GoogleConfig) *embedding.Google {
	t.Helper()
	cfg.APIKey = "test-key-not-real"
	cfg.BaseURL = f.srv.URL
	p, err := embedding.NewGoogle(cfg)
	require.NoError(t, err)
	return p
}

func TestNewGoogle_Config(t *testing.T) {
	_, err := embedding.NewGoogle(embedding.GoogleConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api_key")
	assert.True(t, ragerr.HasCode(err, ragerr.CodeEmbeddingConfigInvalid))

	_, err = embedding.NewGoogle(embedding.GoogleConfig{APIKey: "k", Dimensions: -1})
	assert.True(t, ragerr.HasCode(err, ragerr.CodeEmbeddingConfigInvalid))

	p, err := embedding.NewGoogle(embedding.GoogleConfig{APIKey: "k", Model: "text-embedding-004"})
	require.NoError(t, err)
	assert.Equal(t, "text-embedding-004", p.ModelName())
	assert.Equal(t, 768, p.Dimensions())
	assert.True(t, p.Health().Available)
}

func TestGoogle_EncodeText(t *testing.T) {
	f := newFakeGemini(t, []float32{3, 4})
	p := newTestGoogle(t, f, embedding.GoogleConfig{Dimensions: 2})

	vec, err := p.EncodeText(context.Background(), "harbour cranes", false)
	require.NoError(t, err)
	assert.Equal(t, []float32{3, 4}, vec)
	assert.Equal(t, "test-key-not-real", f.apiKey)
	assert.Contains(t, f.body, "harbour cranes")
	assert.Contains(t, f.path+f.body, embedding.DefaultGoogleModel)

	vec, err = p.EncodeText(context.Background(), "harbour cranes", true)
	require.NoError(t, err)
	assert.InDelta(t, 0.6, vec[0], 1e-6)
	assert.InDelta(t, 0.8, vec[1], 1e-6)
	assert.InDelta(t, 1.0, math.Hypot(float64(vec[0]), float64(vec[1])), 1e-6)
}

func TestGoogle_EncodeTextRejectsEmptyInput(t *testing.T) {
	f := newFakeGemini(t, []float32{1})
	p := newTestGoogle(t, f, embedding.GoogleConfig{})

	_, err := p.EncodeText(context.Background(), "  ", false)
	assert.True(t, ragerr.HasCode(err, ragerr.CodeEmbeddingInputInvalid))
	assert.Zero(t, f.calls.Load())
}

func TestGoogle_UpstreamFailureStartsCooldown(t *testing.T) {
	f := newFakeGemini(t, []float32{1})
	f.status = http.StatusForbidden
	p := newTestGoogle(t, f, embedding.GoogleConfig{})

	_, err := p.EncodeText(context.Background(), "x", false)
	require.Error(t, err)
	assert.True(t, ragerr.IsUpstreamFailure(err))
	assert.False(t, p.Health().Available)

	sent := f.calls.Load()
	_, err = p.EncodeText(context.Background(), "x", false)
	assert.True(t, ragerr.HasCode(err, ragerr.CodeEmbeddingUpstreamFailure))
	assert.Contains(t, err.Error(), "cooling down")
	assert.Equal(t, sent, f.calls.Load())
}

func TestGoogle_InvalidResponses(t *testing.T) {
	t.Run("no embedding", func(t *testing.T) {
		f := newFakeGemini(t, nil)
		f.dataless = true
		p := newTestGoogle(t, f, embedding.GoogleConfig{})
		_, err := p.EncodeText(context.Background(), "x", false)
		assert.True(t, ragerr.HasCode(err, ragerr.CodeEmbeddingResponseInvalid))
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		f := newFakeGemini(t, []float32{1, 2, 3})
		p := newTestGoogle(t, f, embedding.GoogleConfig{Dimensions: 2})
		_, err := p.EncodeText(context.Background(), "x", false)
		assert.True(t, ragerr.HasCode(err, ragerr.CodeEmbeddingResponseInvalid))
		assert.Contains(t, err.Error(), "expected 2 dimensions, got 3")
	})
}

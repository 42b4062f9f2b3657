// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ragerr "github.com/sigil-dev/georag/pkg/errors"
)

const seedRecords = `{"text":"Port","class":"port","path":"/img/port.png","text_vector":[1,0],"image_vector":[0,1],"metadata":{"country":"NL"}}
{"text":"Airport","class":"airport","text_vector":[1,0]}

{"text":"Field","class":"field","text_vector":[0,1]}
`

func seedStore(t *testing.T) string {
	t.Helper()
	cfgPath, _ := writeTestConfig(t)
	input := filepath.Join(t.TempDir(), "records.jsonl")
	require.NoError(t, os.WriteFile(input, []byte(seedRecords), 0o600))

	out, err := execute(t, "ingest", input, "--config", cfgPath, "-o", "json")
	require.NoError(t, err)

	var summary ingestSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	require.Equal(t, 3, summary.Records)
	require.Equal(t, 3, summary.Stored)
	require.Len(t, summary.IDs, 3)
	return cfgPath
}

func TestIngestAndStats(t *testing.T) {
	cfgPath := seedStore(t)

	out, err := execute(t, "stats", "--config", cfgPath, "-o", "json")
	require.NoError(t, err)

	var st statsOutput
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.Equal(t, int64(3), st.Documents)
	assert.Equal(t, int64(3), st.TextEmbeddings)
	assert.Equal(t, int64(1), st.ImageEmbeddings)
	require.NotNil(t, st.Embedding)
	assert.Equal(t, "none", st.Embedding.Provider)
	assert.Equal(t, "test-model", st.Embedding.Model)
	assert.Nil(t, st.Embedding.Health)

	out, err = execute(t, "stats", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Documents:        3")
	assert.Contains(t, out, "Embedding:        none test-model")
}

func TestIngestWithoutVectorNeedsEncoder(t *testing.T) {
	cfgPath, _ := writeTestConfig(t)

	out, err := execute(t, "ingest", "--config", cfgPath, "--text", "no vector here")
	require.Error(t, err)
	assert.Contains(t, out, "Stored 0 of 1 documents")
}

func TestIngestRejectsFileAndText(t *testing.T) {
	cfgPath, _ := writeTestConfig(t)
	_, err := execute(t, "ingest", "x.jsonl", "--text", "t", "--config", cfgPath)
	require.Error(t, err)
	assert.Equal(t, ragerr.CodeCLIInputInvalid, ragerr.CodeOf(err))

	_, err = execute(t, "ingest", "--config", cfgPath)
	require.Error(t, err)
	assert.Equal(t, ragerr.CodeCLIInputInvalid, ragerr.CodeOf(err))
}

func TestQueryRanksByTextVector(t *testing.T) {
	cfgPath := seedStore(t)

	out, err := execute(t, "query", "harbour", "--config", cfgPath, "--text-vector", "[1,0]", "-k", "2", "-o", "json")
	require.NoError(t, err)

	var res queryOutput
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "harbour", res.Query)
	require.Equal(t, 2, res.NumRetrieved)
	// Equal scores fall back to id order, so only the set is fixed.
	descs := []any{res.Documents[0]["description"], res.Documents[1]["description"]}
	assert.ElementsMatch(t, []any{"Port", "Airport"}, descs)
	assert.InDelta(t, 1.0, res.Documents[0]["similarity"], 1e-6)
}

func TestQueryWithImageVectorWeightsImageMatch(t *testing.T) {
	cfgPath := seedStore(t)

	// Port's image is orthogonal to the image query, so only its text
	// similarity counts at weight 0.7. Airport has no image and keeps its
	// plain text similarity.
	out, err := execute(t, "query", "--config", cfgPath,
		"--text-vector", "[1,0]", "--image-vector", "[1,0]", "-o", "json")
	require.NoError(t, err)

	var res queryOutput
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Equal(t, 3, res.NumRetrieved)
	assert.Equal(t, "Airport", res.Documents[0]["description"])
	assert.InDelta(t, 1.0, res.Documents[0]["similarity"], 1e-6)
	assert.Equal(t, "Port", res.Documents[1]["description"])
	assert.Equal(t, "NL", res.Documents[1]["country"])
	assert.Equal(t, "/img/port.png", res.Documents[1]["path"])
	assert.InDelta(t, 0.7, res.Documents[1]["similarity"], 1e-6)
	assert.Equal(t, "Field", res.Documents[2]["description"])
}

func TestQueryClassFilterAndTextOutput(t *testing.T) {
	cfgPath := seedStore(t)

	out, err := execute(t, "query", "--config", cfgPath, "--text-vector", "[1,0]", "--class", "airport")
	require.NoError(t, err)
	assert.Equal(t, "1. Airport (similarity: 1.000)\n", out)

	out, err = execute(t, "query", "--config", cfgPath, "--text-vector", "[1,0]", "--class", "missing")
	require.NoError(t, err)
	assert.Equal(t, "No relevant context found.\n", out)
}

func TestQueryRecordStoresQueryDocument(t *testing.T) {
	cfgPath := seedStore(t)

	out, err := execute(t, "query", "harbour", "--config", cfgPath, "--text-vector", "[1,0]", "--record", "-o", "json")
	require.NoError(t, err)

	var res queryOutput
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Regexp(t, `^query_`, res.QueryID)
	for _, d := range res.Documents {
		assert.NotEqual(t, res.QueryID, d["id"])
	}

	out, err = execute(t, "stats", "--config", cfgPath, "-o", "json")
	require.NoError(t, err)
	var st statsOutput
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.Equal(t, int64(4), st.Documents)
}

func TestQueryInvalidVectorFlag(t *testing.T) {
	cfgPath := seedStore(t)
	_, err := execute(t, "query", "--config", cfgPath, "--text-vector", "not-json")
	require.Error(t, err)
	assert.Equal(t, ragerr.CodeCLIInputInvalid, ragerr.CodeOf(err))
}

func TestQueryNeedsTextOrVector(t *testing.T) {
	cfgPath := seedStore(t)
	_, err := execute(t, "query", "--config", cfgPath)
	require.Error(t, err)
	assert.Equal(t, ragerr.CodeCLIInputInvalid, ragerr.CodeOf(err))
}

func TestQueryTextWithDisabledProvider(t *testing.T) {
	cfgPath := seedStore(t)

	_, err := execute(t, "query", "harbour", "--config", cfgPath)
	require.Error(t, err)
	assert.Equal(t, ragerr.CodeEmbeddingUnsupported, ragerr.CodeOf(err))
}

func TestQueryTextWithoutAPIKey(t *testing.T) {
	t.Setenv("GEORAG_EMBEDDING_API_KEY", "")
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "georag.yaml")
	body := "storage:\n  path: " + filepath.Join(dir, "g.db") + "\n" +
		"embedding:\n  provider: openai\n" +
		"log:\n  level: error\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(body), 0o600))

	_, err := execute(t, "query", "harbour", "--config", cfgPath)
	require.Error(t, err)
	assert.Equal(t, ragerr.CodeEmbeddingConfigInvalid, ragerr.CodeOf(err))
}

func writeOpenAIConfig(t *testing.T, extra string) string {
	t.Helper()
	t.Setenv("GEORAG_EMBEDDING_API_KEY", "")
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "georag.yaml")
	body := "storage:\n  path: " + filepath.Join(dir, "g.db") + "\n" +
		"embedding:\n  provider: openai\n" + extra +
		"log:\n  level: error\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(body), 0o600))
	return cfgPath
}

func TestStatsReportsProviderHealth(t *testing.T) {
	cfgPath := writeOpenAIConfig(t, "  api_key: sk-test\n")

	out, err := execute(t, "stats", "--config", cfgPath, "-o", "json")
	require.NoError(t, err)

	var st statsOutput
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	require.NotNil(t, st.Embedding)
	assert.Equal(t, "openai", st.Embedding.Provider)
	assert.Equal(t, "text-embedding-3-small", st.Embedding.Model)
	assert.Equal(t, 1536, st.Embedding.Dimensions)
	require.NotNil(t, st.Embedding.Health)
	assert.True(t, st.Embedding.Health.Available)
	assert.Empty(t, st.Embedding.Error)
}

func TestStatsReportsProviderSetupError(t *testing.T) {
	cfgPath := writeOpenAIConfig(t, "")

	out, err := execute(t, "stats", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Embedding:        openai (")
	assert.Contains(t, out, "api_key")
}

func TestIngestReportsProviderCooldown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error","code":"invalid_api_key"}}`))
	}))
	t.Cleanup(srv.Close)
	cfgPath := writeOpenAIConfig(t, "  api_key: sk-test\n  base_url: "+srv.URL+"\n")

	out, err := execute(t, "ingest", "--config", cfgPath, "--text", "harbour", "-o", "json")
	require.Error(t, err)

	var summary ingestSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, 0, summary.Stored)
	require.Len(t, summary.Failed, 1)
	require.NotNil(t, summary.Embedding)
	require.NotNil(t, summary.Embedding.Health)
	assert.False(t, summary.Embedding.Health.Available)
	assert.Equal(t, int64(1), summary.Embedding.Health.FailureCount)
	assert.NotNil(t, summary.Embedding.Health.CooldownUntil)
}

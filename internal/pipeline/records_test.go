// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package pipeline_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigil-dev/georag/internal/pipeline"
	ragerr "github.com/sigil-dev/georag/pkg/errors"
)

func TestReadRecords(t *testing.T) {
	in := `{"text":"planes at gates","class":"airport","path":"a.jpg","metadata":{"city":"Oslo"}}

{"id":"doc-2","text":"shore","text_vector":[0.5,0.25],"image_vector":[1,0]}
`
	recs, err := pipeline.ReadRecords(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, "airport", recs[0].Class)
	assert.Equal(t, "Oslo", recs[0].Metadata["city"])
	assert.Nil(t, recs[0].TextVector)

	assert.Equal(t, "doc-2", recs[1].ID)
	assert.Equal(t, []float32{0.5, 0.25}, recs[1].TextVector)
	assert.Equal(t, []float32{1, 0}, recs[1].ImageVector)
}

func TestReadRecords_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		line string
	}{
		{"malformed json", "{\"text\":\"a\"}\n{not json}\n", "line 2"},
		{"unknown field", "{\"txt\":\"a\"}\n", "line 1"},
		{"trailing garbage", "{\"text\":\"a\"}\n{\"text\":\"b\"} junk\n", "line 2"},
		{"two objects on one line", "{\"text\":\"a\"} {\"text\":\"b\"}\n", "line 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := pipeline.ReadRecords(strings.NewReader(tt.in))
			require.Error(t, err)
			assert.True(t, ragerr.HasCode(err, ragerr.CodePipelineInputInvalid))
			assert.Contains(t, err.Error(), tt.line)
		})
	}
}

func TestReadRecords_Empty(t *testing.T) {
	recs, err := pipeline.ReadRecords(strings.NewReader("\n\n"))
	require.NoError(t, err)
	assert.Empty(t, recs)
}

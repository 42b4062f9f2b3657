// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package pipeline

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"

	ragerr "github.com/sigil-dev/georag/pkg/errors"
)

const maxRecordBytes = 16 << 20

// Record is one document to ingest. Missing vectors are computed by the
// configured encoders.
type Record struct {
	ID          string         `json:"id,omitempty"`
	Text        string         `json:"text"`
	Class       string         `json:"class,omitempty"`
	Path        string         `json:"path,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	TextVector  []float32      `json:"text_vector,omitempty"`
	ImageVector []float32      `json:"image_vector,omitempty"`
}

// ReadRecords parses JSON Lines from r. Blank lines are skipped.
func ReadRecords(r io.Reader) ([]Record, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxRecordBytes)

	var (
		records []Record
		line    int
	)
	for sc.Scan() {
		line++
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		var rec Record
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&rec); err != nil {
			return nil, ragerr.Wrapf(err, ragerr.CodePipelineInputInvalid, "parsing record on line %d", line)
		}
		if dec.More() {
			return nil, ragerr.Errorf(ragerr.CodePipelineInputInvalid,
				"parsing record on line %d: trailing data after the JSON object", line)
		}
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, ragerr.Wrap(err, ragerr.CodePipelineInputInvalid, "reading records")
	}
	return records, nil
}

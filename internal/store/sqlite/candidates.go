// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/sigil-dev/georag/internal/store"
	ragerr "github.com/sigil-dev/georag/pkg/errors"
)

// ScanCandidates streams every document that has a text embedding, joined
// with its image embedding when one exists. Reserved query_ documents are
// never returned. Rows arrive ordered by id.
//
// fn must not call back into the store: an in-memory store holds a single
// connection, which the open cursor occupies until ScanCandidates returns.
func (s *Store) ScanCandidates(ctx context.Context, filter store.CandidateFilter, fn func(store.Candidate) error) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	var q strings.Builder
	q.WriteString(`SELECT d.id, COALESCE(d.class, ''), COALESCE(d.description, ''), COALESCE(d.path, ''),
	COALESCE(d.metadata, ''), te.embedding, te.embedding_dim, ie.embedding, ie.embedding_dim
FROM documents d
JOIN text_embeddings te ON te.id = d.id
LEFT JOIN image_embeddings ie ON ie.id = d.id
WHERE substr(d.id, 1, ?) != ?`)
	args := []any{len(store.ReservedQueryPrefix), store.ReservedQueryPrefix}

	if filter.Class != "" {
		q.WriteString(` AND d.class = ?`)
		args = append(args, filter.Class)
	}
	if filter.TextModel != "" {
		q.WriteString(` AND te.model_name = ?`)
		args = append(args, filter.TextModel)
	}
	q.WriteString(` ORDER BY d.id`)

	rows, err := s.db.QueryContext(ctx, q.String(), args...)
	if err != nil {
		return ragerr.Wrap(err, ragerr.CodeStoreUnavailable, "querying candidates")
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			c                 store.Candidate
			textDim, imageDim sql.NullInt64
		)
		if err := rows.Scan(&c.ID, &c.Class, &c.Description, &c.SourcePath, &c.Metadata,
			&c.TextVector, &textDim, &c.ImageVector, &imageDim); err != nil {
			return ragerr.Wrap(err, ragerr.CodeStoreUnavailable, "scanning candidate")
		}
		c.TextDim = int(textDim.Int64)
		c.ImageDim = int(imageDim.Int64)
		if c.ImageVector == nil && imageDim.Valid {
			// A NULL blob with a declared dimension decodes as corrupt, not absent.
			c.ImageVector = []byte{}
		}

		if err := fn(c); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return ragerr.Wrap(err, ragerr.CodeStoreUnavailable, "iterating candidates")
	}
	return nil
}

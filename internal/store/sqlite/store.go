// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/sigil-dev/georag/internal/store"
	ragerr "github.com/sigil-dev/georag/pkg/errors"
)

func init() {
	sqlite_vec.Auto()
}

// Compile-time interface check.
var _ store.VectorStore = (*Store)(nil)

const memoryPath = ":memory:"

// Store implements store.VectorStore backed by a single SQLite file holding
// the documents, text_embeddings and image_embeddings tables.
//
// A Store is not synchronized for writes; callers sharing one handle must
// serialize AddDocument and Upsert.
type Store struct {
	db     *sql.DB
	path   string
	closed atomic.Bool
	logger *slog.Logger
}

// Open opens the SQLite database at path. When autoCreateSchema is set the
// file is created if missing and the tables are created if absent; otherwise
// the file must already exist. Parent directories are never created.
func Open(path string, autoCreateSchema bool) (*Store, error) {
	if path == "" {
		return nil, ragerr.New(ragerr.CodeStoreUnavailable, "database path is required")
	}

	db, err := sql.Open("sqlite3", dsn(path, autoCreateSchema))
	if err != nil {
		return nil, ragerr.Wrap(err, ragerr.CodeStoreUnavailable, "opening sqlite db", ragerr.FieldPath(path))
	}
	if path == memoryPath {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, ragerr.Wrap(err, ragerr.CodeStoreUnavailable, "pinging sqlite db", ragerr.FieldPath(path))
	}

	var vecVersion string
	if err := db.QueryRow(`SELECT vec_version()`).Scan(&vecVersion); err != nil {
		_ = db.Close()
		return nil, ragerr.Wrap(err, ragerr.CodeStoreUnavailable, "sqlite-vec not available", ragerr.FieldPath(path))
	}

	if autoCreateSchema {
		if err := migrate(db); err != nil {
			_ = db.Close()
			return nil, ragerr.Wrap(err, ragerr.CodeStoreUnavailable, "creating vector store tables", ragerr.FieldPath(path))
		}
	}

	logger := slog.Default()
	logger.Debug("vector store opened",
		slog.String("path", path),
		slog.Bool("auto_create", autoCreateSchema),
		slog.String("vec_version", vecVersion),
	)

	return &Store{db: db, path: path, logger: logger}, nil
}

func dsn(path string, autoCreate bool) string {
	const params = "_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
	if path == memoryPath {
		return "file::memory:?" + params
	}
	mode := "rw"
	if autoCreate {
		mode = "rwc"
	}
	return "file:" + path + "?mode=" + mode + "&" + params
}

func migrate(db *sql.DB) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS documents (
	id          TEXT PRIMARY KEY,
	class       TEXT,
	description TEXT,
	path        TEXT,
	metadata    TEXT,
	created_at  TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_documents_class ON documents(class);

CREATE TABLE IF NOT EXISTS text_embeddings (
	id            TEXT PRIMARY KEY REFERENCES documents(id) ON DELETE CASCADE,
	embedding     BLOB,
	embedding_dim INTEGER,
	model_name    TEXT,
	created_at    TIMESTAMP
);

CREATE TABLE IF NOT EXISTS image_embeddings (
	id            TEXT PRIMARY KEY REFERENCES documents(id) ON DELETE CASCADE,
	embedding     BLOB,
	embedding_dim INTEGER,
	model_name    TEXT,
	created_at    TIMESTAMP
);
`
	_, err := db.Exec(ddl)
	return err
}

func (s *Store) checkOpen() error {
	if s.closed.Load() {
		return ragerr.New(ragerr.CodeStoreHandleClosed, "vector store is closed", ragerr.FieldPath(s.path))
	}
	return nil
}

// Close closes the underlying database connection. Closing twice is a no-op.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return ragerr.Wrap(err, ragerr.CodeStoreUnavailable, "closing sqlite db", ragerr.FieldPath(s.path))
	}
	s.logger.Debug("vector store closed", slog.String("path", s.path))
	return nil
}

// AddDocument derives the document ID from class, text and source path, then
// upserts the document and its embeddings.
func (s *Store) AddDocument(ctx context.Context, doc store.NewDocument) (string, error) {
	doc = doc.WithDefaults()
	id := store.DocumentID(doc.Class, doc.Text, doc.SourcePath)
	if err := s.Upsert(ctx, id, doc); err != nil {
		return "", err
	}
	return id, nil
}

// Upsert writes the document row and one row per supplied vector in a single
// transaction. Existing embeddings for id are removed first, so a modality
// missing from doc does not survive from an earlier write.
func (s *Store) Upsert(ctx context.Context, id string, doc store.NewDocument) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if err := store.ValidateID(id); err != nil {
		return err
	}
	doc = doc.WithDefaults()
	if err := doc.Validate(); err != nil {
		return ragerr.Wrap(err, ragerr.CodeStoreVectorInvalid, "validating document", ragerr.FieldDocumentID(id))
	}

	metaJSON := []byte("{}")
	if len(doc.Metadata) > 0 {
		var err error
		metaJSON, err = json.Marshal(doc.Metadata)
		if err != nil {
			return ragerr.Wrap(err, ragerr.CodeStoreDocumentInvalid, "marshalling document metadata", ragerr.FieldDocumentID(id))
		}
	}

	now := formatTime(time.Now())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ragerr.Wrap(err, ragerr.CodeStoreWriteFailure, "beginning transaction", ragerr.FieldDocumentID(id))
	}
	defer func() { _ = tx.Rollback() }()

	const docQ = `INSERT INTO documents (id, class, description, path, metadata, created_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	class = excluded.class,
	description = excluded.description,
	path = excluded.path,
	metadata = excluded.metadata,
	created_at = excluded.created_at`
	if _, err := tx.ExecContext(ctx, docQ, id, doc.Class, doc.Text, doc.SourcePath, string(metaJSON), now); err != nil {
		return ragerr.Wrap(err, ragerr.CodeStoreWriteFailure, "upserting document", ragerr.FieldDocumentID(id))
	}

	for _, m := range []store.Modality{store.ModalityText, store.ModalityImage} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+embeddingTable(m)+` WHERE id = ?`, id); err != nil {
			return ragerr.Wrap(err, ragerr.CodeStoreWriteFailure, "clearing previous embedding",
				ragerr.FieldDocumentID(id), ragerr.FieldModality(string(m)))
		}
	}

	if doc.TextVector != nil {
		if err := insertEmbedding(ctx, tx, store.ModalityText, id, doc.TextVector, doc.ModelName, now); err != nil {
			return err
		}
	}
	if doc.ImageVector != nil {
		if err := insertEmbedding(ctx, tx, store.ModalityImage, id, doc.ImageVector, doc.ModelName, now); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return ragerr.Wrap(err, ragerr.CodeStoreWriteFailure, "committing document", ragerr.FieldDocumentID(id))
	}

	s.logger.Debug("document upserted",
		slog.String("document_id", id),
		slog.String("class", doc.Class),
		slog.Bool("text_embedding", doc.TextVector != nil),
		slog.Bool("image_embedding", doc.ImageVector != nil),
	)
	return nil
}

func insertEmbedding(ctx context.Context, tx *sql.Tx, m store.Modality, id string, vec []float32, model, created string) error {
	blob := store.EncodeVector(vec)
	q := `INSERT INTO ` + embeddingTable(m) + ` (id, embedding, embedding_dim, model_name, created_at)
VALUES (?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, q, id, blob, len(vec), model, created); err != nil {
		return ragerr.Wrap(err, ragerr.CodeStoreWriteFailure, "inserting embedding",
			ragerr.FieldDocumentID(id), ragerr.FieldModality(string(m)))
	}
	return nil
}

func embeddingTable(m store.Modality) string {
	if m == store.ModalityImage {
		return "image_embeddings"
	}
	return "text_embeddings"
}

// Stats returns the row count of each table.
func (s *Store) Stats(ctx context.Context) (store.Stats, error) {
	if err := s.checkOpen(); err != nil {
		return store.Stats{}, err
	}

	var st store.Stats
	counts := []struct {
		table string
		dst   *int64
	}{
		{"documents", &st.Documents},
		{"text_embeddings", &st.TextEmbeddings},
		{"image_embeddings", &st.ImageEmbeddings},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+c.table).Scan(c.dst); err != nil {
			return store.Stats{}, ragerr.Wrap(err, ragerr.CodeStoreUnavailable, "counting rows", ragerr.Field("table", c.table))
		}
	}
	return st, nil
}

// GetDocument loads a document with its decoded embeddings.
func (s *Store) GetDocument(ctx context.Context, id string) (*store.Document, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	const q = `SELECT d.id, COALESCE(d.class, ''), COALESCE(d.description, ''), COALESCE(d.path, ''),
	COALESCE(d.metadata, ''), d.created_at,
	te.embedding, te.embedding_dim, te.model_name, te.created_at,
	ie.embedding, ie.embedding_dim, ie.model_name, ie.created_at
FROM documents d
LEFT JOIN text_embeddings te ON te.id = d.id
LEFT JOIN image_embeddings ie ON ie.id = d.id
WHERE d.id = ?`

	var (
		doc               store.Document
		metaStr           string
		created           sql.NullString
		textRow, imageRow embeddingRow
	)
	err := s.db.QueryRowContext(ctx, q, id).Scan(
		&doc.ID, &doc.Class, &doc.Description, &doc.SourcePath, &metaStr, &created,
		&textRow.blob, &textRow.dim, &textRow.model, &textRow.created,
		&imageRow.blob, &imageRow.dim, &imageRow.model, &imageRow.created,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ragerr.New(ragerr.CodeStoreDocumentNotFound, "document not found", ragerr.FieldDocumentID(id))
	}
	if err != nil {
		return nil, ragerr.Wrap(err, ragerr.CodeStoreUnavailable, "loading document", ragerr.FieldDocumentID(id))
	}
	doc.CreatedAt = parseTime(created.String)

	if metaStr != "" && metaStr != "{}" {
		if err := json.Unmarshal([]byte(metaStr), &doc.Metadata); err != nil {
			s.logger.Warn("failed to unmarshal document metadata",
				slog.String("document_id", id),
				slog.String("error", err.Error()),
			)
		}
	}

	if doc.TextEmbedding, err = textRow.decode(store.ModalityText, id); err != nil {
		return nil, err
	}
	if doc.ImageEmbedding, err = imageRow.decode(store.ModalityImage, id); err != nil {
		return nil, err
	}
	return &doc, nil
}

// embeddingRow holds the nullable columns of a left-joined embedding table.
type embeddingRow struct {
	blob    []byte
	dim     sql.NullInt64
	model   sql.NullString
	created sql.NullString
}

func (r embeddingRow) decode(m store.Modality, id string) (*store.Embedding, error) {
	if r.blob == nil && !r.dim.Valid {
		return nil, nil
	}
	vec, err := store.DecodeVector(r.blob, int(r.dim.Int64))
	if err != nil {
		return nil, ragerr.Wrap(err, ragerr.CodeStoreEmbeddingCorrupt, "decoding embedding",
			ragerr.FieldDocumentID(id), ragerr.FieldModality(string(m)))
	}
	return &store.Embedding{
		Vector:    vec,
		Dim:       len(vec),
		ModelName: r.model.String,
		CreatedAt: parseTime(r.created.String),
	}, nil
}

// formatTime serialises a time value for storage as an RFC 3339 string.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime deserialises a time string stored in the database.
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/54b3r/docrag-go/internal/logging"
	"github.com/54b3r/docrag-go/internal/rag"
)

// Document is an uploaded file with its extracted text and chunk records.
type Document struct {
	ID          int64  `json:"id"`
	UserID      int64  `json:"-"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type,omitempty"`
	// Content is the extracted text. Empty in list results.
	Content string `json:"content,omitempty"`
	Summary string `json:"summary,omitempty"`
	// Records are the chunk records. Nil in list results.
	Records       []rag.ChunkRecord `json:"-"`
	ChunkCount    int               `json:"chunk_count"`
	EmbeddedCount int               `json:"embedded_count"`
	UploadedAt    time.Time         `json:"uploaded_at"`
}

// Scope converts d into the form the retrieval pipeline ranks over.
func (d *Document) Scope() rag.Document {
	return rag.Document{ID: d.ID, Filename: d.Filename, Records: d.Records}
}

// CreateDocument inserts d for d.UserID and sets its ID and UploadedAt.
func (s *SQLiteStore) CreateDocument(ctx context.Context, d *Document) error {
	blob, err := rag.EncodeRecords(d.Records)
	if err != nil {
		return fmt.Errorf("store: create document: %w", err)
	}
	if d.UploadedAt.IsZero() {
		d.UploadedAt = time.Now()
	}
	d.ChunkCount = len(d.Records)
	d.EmbeddedCount = rag.EmbeddedCount(d.Records)

	const q = `
INSERT INTO documents (user_id, filename, content_type, content, summary, chunks, chunk_count, embedded_count, uploaded_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := s.db.ExecContext(ctx, q,
		d.UserID, d.Filename, d.ContentType, d.Content, d.Summary, blob,
		d.ChunkCount, d.EmbeddedCount, d.UploadedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("store: create document: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("store: create document id: %w", err)
	}
	d.ID = id
	return nil
}

// GetDocument returns a document with its content and records. Documents of
// other users are reported as ErrNotFound.
func (s *SQLiteStore) GetDocument(ctx context.Context, userID, id int64) (*Document, error) {
	const q = `
SELECT id, user_id, filename, content_type, content, summary, chunks, chunk_count, embedded_count, uploaded_at
FROM   documents
WHERE  id = ? AND user_id = ?`
	var (
		d    Document
		blob string
		ts   int64
	)
	err := s.db.QueryRowContext(ctx, q, id, userID).Scan(
		&d.ID, &d.UserID, &d.Filename, &d.ContentType, &d.Content, &d.Summary,
		&blob, &d.ChunkCount, &d.EmbeddedCount, &ts,
	)
	if err != nil {
		return nil, notFound(err, "get document")
	}
	if d.Records, err = rag.DecodeRecords(blob); err != nil {
		return nil, fmt.Errorf("store: get document %d: %w", id, err)
	}
	d.UploadedAt = time.Unix(ts, 0)
	return &d, nil
}

// ListDocuments returns the user's documents newest first, without content
// or records.
func (s *SQLiteStore) ListDocuments(ctx context.Context, userID int64) ([]Document, error) {
	const q = `
SELECT id, user_id, filename, content_type, summary, chunk_count, embedded_count, uploaded_at
FROM   documents
WHERE  user_id = ?
ORDER  BY uploaded_at DESC, id DESC`
	rows, err := s.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("store: list documents: %w", err)
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		var d Document
		var ts int64
		if err := rows.Scan(&d.ID, &d.UserID, &d.Filename, &d.ContentType, &d.Summary, &d.ChunkCount, &d.EmbeddedCount, &ts); err != nil {
			return nil, fmt.Errorf("store: list documents scan: %w", err)
		}
		d.UploadedAt = time.Unix(ts, 0)
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list documents rows: %w", err)
	}
	return docs, nil
}

// ScopeDocuments returns every document visible to the user with decoded
// chunk records, oldest first. Chunk data is read fresh on every call.
func (s *SQLiteStore) ScopeDocuments(ctx context.Context, userID int64) ([]rag.Document, error) {
	const q = `SELECT id, filename, chunks FROM documents WHERE user_id = ? ORDER BY id ASC`
	rows, err := s.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("store: scope documents: %w", err)
	}
	defer rows.Close()

	var docs []rag.Document
	for rows.Next() {
		var d rag.Document
		var blob string
		if err := rows.Scan(&d.ID, &d.Filename, &blob); err != nil {
			return nil, fmt.Errorf("store: scope documents scan: %w", err)
		}
		if d.Records, err = rag.DecodeRecords(blob); err != nil {
			logging.FromContext(ctx).Warn("store: skipping document with unreadable chunks",
				slog.Int64("document_id", d.ID),
				slog.Any("error", err),
			)
			continue
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: scope documents rows: %w", err)
	}
	return docs, nil
}

// UpdateSummary stores a generated summary on the user's document.
func (s *SQLiteStore) UpdateSummary(ctx context.Context, userID, id int64, summary string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE documents SET summary = ? WHERE id = ? AND user_id = ?`, summary, id, userID)
	if err != nil {
		return fmt.Errorf("store: update summary: %w", err)
	}
	return affected(res, "update summary")
}

// DeleteDocument removes the user's document together with its chunk records.
func (s *SQLiteStore) DeleteDocument(ctx context.Context, userID, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("store: delete document: %w", err)
	}
	return affected(res, "delete document")
}

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/scribeflow/scribeflow/internal/common"
	"github.com/scribeflow/scribeflow/internal/model"
)

// SaveDocument persists a new document. Documents are immutable; saving an
// existing id is an error.
func (s *SQLiteStorage) SaveDocument(ctx context.Context, doc *model.Document) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateDocument(doc); err != nil {
		return err
	}

	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	if doc.WordCount == 0 {
		doc.WordCount = model.CountWords(doc.Text)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (id, author_id, kind, text, word_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		doc.ID,
		doc.AuthorID,
		string(doc.Kind),
		doc.Text,
		doc.WordCount,
		doc.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("document %s: %w", doc.ID, common.ErrDuplicateEntry)
		}
		return fmt.Errorf("failed to save document: %w", err)
	}

	return nil
}

// GetDocument loads one document by id.
func (s *SQLiteStorage) GetDocument(ctx context.Context, id string) (*model.Document, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	var doc model.Document
	var kind string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, author_id, kind, text, word_count, created_at
		FROM documents
		WHERE id = ?
	`, id).Scan(&doc.ID, &doc.AuthorID, &kind, &doc.Text, &doc.WordCount, &doc.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	doc.Kind = model.DocumentKind(kind)
	return &doc, nil
}

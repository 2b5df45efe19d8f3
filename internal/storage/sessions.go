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

// CreateSession persists a new generation session.
func (s *SQLiteStorage) CreateSession(ctx context.Context, session *model.GenerationSession) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateSession(session); err != nil {
		return err
	}

	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}
	session.UpdatedAt = session.CreatedAt

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, author_id, document_id, rewritten_document_id, generated_text, word_count, status, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		session.ID,
		session.AuthorID,
		session.DocumentID,
		session.RewrittenID,
		session.GeneratedText,
		session.WordCount,
		string(session.Status),
		session.Error,
		session.CreatedAt,
		session.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("session %s: %w", session.ID, common.ErrDuplicateEntry)
		}
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

// UpdateSession persists the session's current state and appends any trace
// entries not yet stored. Trace rows are insert-only, preserving the
// append-only audit log.
func (s *SQLiteStorage) UpdateSession(ctx context.Context, session *model.GenerationSession) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateSession(session); err != nil {
		return err
	}

	session.UpdatedAt = time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		UPDATE sessions
		SET rewritten_document_id = ?, generated_text = ?, word_count = ?, status = ?, error = ?, updated_at = ?
		WHERE id = ?
	`,
		session.RewrittenID,
		session.GeneratedText,
		session.WordCount,
		string(session.Status),
		session.Error,
		session.UpdatedAt,
		session.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	var stored int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM session_trace WHERE session_id = ?`, session.ID).Scan(&stored); err != nil {
		return fmt.Errorf("failed to count trace entries: %w", err)
	}

	for _, entry := range session.Trace[stored:] {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO session_trace (session_id, step, status, summary, created_at)
			VALUES (?, ?, ?, ?, ?)
		`,
			session.ID,
			entry.Step,
			string(entry.Status),
			entry.Summary,
			entry.Timestamp,
		)
		if err != nil {
			return fmt.Errorf("failed to append trace entry: %w", err)
		}
	}

	return tx.Commit()
}

// GetSession loads one session with its full step trace.
func (s *SQLiteStorage) GetSession(ctx context.Context, id string) (*model.GenerationSession, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	var session model.GenerationSession
	var status string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, author_id, document_id, rewritten_document_id, generated_text, word_count, status, error, created_at, updated_at
		FROM sessions
		WHERE id = ?
	`, id).Scan(
		&session.ID,
		&session.AuthorID,
		&session.DocumentID,
		&session.RewrittenID,
		&session.GeneratedText,
		&session.WordCount,
		&status,
		&session.Error,
		&session.CreatedAt,
		&session.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	session.Status = model.SessionStatus(status)

	trace, err := s.loadTrace(ctx, id)
	if err != nil {
		return nil, err
	}
	session.Trace = trace

	return &session, nil
}

// ListSessions returns the author's most recent sessions, newest first,
// without traces.
func (s *SQLiteStorage) ListSessions(ctx context.Context, authorID string, limit int) ([]model.GenerationSession, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(authorID, "authorID"); err != nil {
		return nil, err
	}
	if err := validateLimit(limit); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, author_id, document_id, rewritten_document_id, generated_text, word_count, status, error, created_at, updated_at
		FROM sessions
		WHERE author_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`, authorID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sessions []model.GenerationSession
	for rows.Next() {
		var session model.GenerationSession
		var status string
		if err := rows.Scan(
			&session.ID,
			&session.AuthorID,
			&session.DocumentID,
			&session.RewrittenID,
			&session.GeneratedText,
			&session.WordCount,
			&status,
			&session.Error,
			&session.CreatedAt,
			&session.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		session.Status = model.SessionStatus(status)
		sessions = append(sessions, session)
	}

	return sessions, rows.Err()
}

// loadTrace loads a session's trace entries in insert order.
func (s *SQLiteStorage) loadTrace(ctx context.Context, sessionID string) ([]model.TraceEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT step, status, summary, created_at
		FROM session_trace
		WHERE session_id = ?
		ORDER BY id ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load trace: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var trace []model.TraceEntry
	for rows.Next() {
		var entry model.TraceEntry
		var status string
		if err := rows.Scan(&entry.Step, &status, &entry.Summary, &entry.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan trace entry: %w", err)
		}
		entry.Status = model.StepStatus(status)
		trace = append(trace, entry)
	}

	return trace, rows.Err()
}

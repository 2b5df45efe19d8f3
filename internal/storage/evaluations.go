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

// SaveEvaluation persists one evaluation. The UNIQUE(session_id)
// constraint surfaces duplicate inserts as common.ErrDuplicateEntry so the
// orchestrator can treat redeliveries as no-ops.
func (s *SQLiteStorage) SaveEvaluation(ctx context.Context, eval *model.Evaluation) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateEvaluation(eval); err != nil {
		return err
	}

	if eval.CreatedAt.IsZero() {
		eval.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO evaluations (
			id, session_id, author_id, document_id, rewritten_document_id,
			sentence_edit_rate, word_error_rate, similarity,
			quality_score, improvement_score,
			prior_tier, recommended_tier, tier_changed, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		eval.ID,
		eval.SessionID,
		eval.AuthorID,
		eval.DocumentID,
		eval.RewrittenDocumentID,
		eval.SentenceEditRate,
		eval.WordErrorRate,
		eval.Similarity,
		eval.QualityScore,
		eval.ImprovementScore,
		string(eval.PriorTier),
		string(eval.RecommendedTier),
		eval.TierChanged,
		eval.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("evaluation for session %s: %w", eval.SessionID, common.ErrDuplicateEntry)
		}
		return fmt.Errorf("failed to save evaluation: %w", err)
	}

	return nil
}

// GetEvaluationBySession loads the evaluation for one session id.
func (s *SQLiteStorage) GetEvaluationBySession(ctx context.Context, sessionID string) (*model.Evaluation, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(sessionID, "sessionID"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, session_id, author_id, document_id, rewritten_document_id,
			sentence_edit_rate, word_error_rate, similarity,
			quality_score, improvement_score,
			prior_tier, recommended_tier, tier_changed, created_at
		FROM evaluations
		WHERE session_id = ?
	`, sessionID)

	eval, err := scanEvaluation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("evaluation for session %s: %w", sessionID, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get evaluation: %w", err)
	}

	return eval, nil
}

// ListRecentEvaluations returns the author's most recent evaluations,
// newest first.
func (s *SQLiteStorage) ListRecentEvaluations(ctx context.Context, authorID string, limit int) ([]model.Evaluation, error) {
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
		SELECT id, session_id, author_id, document_id, rewritten_document_id,
			sentence_edit_rate, word_error_rate, similarity,
			quality_score, improvement_score,
			prior_tier, recommended_tier, tier_changed, created_at
		FROM evaluations
		WHERE author_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`, authorID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list evaluations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var evaluations []model.Evaluation
	for rows.Next() {
		eval, err := scanEvaluation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan evaluation: %w", err)
		}
		evaluations = append(evaluations, *eval)
	}

	return evaluations, rows.Err()
}

// CountEvaluations returns the total number of evaluations for an author.
func (s *SQLiteStorage) CountEvaluations(ctx context.Context, authorID string) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateString(authorID, "authorID"); err != nil {
		return 0, err
	}

	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM evaluations WHERE author_id = ?`, authorID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count evaluations: %w", err)
	}
	return count, nil
}

// scanner abstracts sql.Row and sql.Rows for shared scanning.
type scanner interface {
	Scan(dest ...any) error
}

func scanEvaluation(row scanner) (*model.Evaluation, error) {
	var eval model.Evaluation
	var priorTier, recommendedTier string
	err := row.Scan(
		&eval.ID,
		&eval.SessionID,
		&eval.AuthorID,
		&eval.DocumentID,
		&eval.RewrittenDocumentID,
		&eval.SentenceEditRate,
		&eval.WordErrorRate,
		&eval.Similarity,
		&eval.QualityScore,
		&eval.ImprovementScore,
		&priorTier,
		&recommendedTier,
		&eval.TierChanged,
		&eval.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	eval.PriorTier = model.Tier(priorTier)
	eval.RecommendedTier = model.Tier(recommendedTier)
	return &eval, nil
}

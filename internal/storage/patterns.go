package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/scribeflow/scribeflow/internal/model"
)

// SavePattern persists a correction pattern produced by the extraction
// service.
func (s *SQLiteStorage) SavePattern(ctx context.Context, pattern *model.CorrectionPattern) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if pattern == nil {
		return fmt.Errorf("%w: pattern", ErrNilParameter)
	}
	if err := pattern.Validate(); err != nil {
		return err
	}

	if pattern.CreatedAt.IsZero() {
		pattern.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO correction_patterns (id, author_id, original_span, corrected_span, category, frequency, confidence, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			frequency = excluded.frequency,
			confidence = excluded.confidence
	`,
		pattern.ID,
		pattern.AuthorID,
		pattern.OriginalSpan,
		pattern.CorrectedSpan,
		string(pattern.Category),
		pattern.Frequency,
		pattern.Confidence,
		pattern.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save pattern: %w", err)
	}

	return nil
}

// GetPatterns returns the author's highest-frequency correction patterns,
// descending by frequency.
func (s *SQLiteStorage) GetPatterns(ctx context.Context, authorID string, limit int) ([]model.CorrectionPattern, error) {
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
		SELECT id, author_id, original_span, corrected_span, category, frequency, confidence, created_at
		FROM correction_patterns
		WHERE author_id = ?
		ORDER BY frequency DESC
		LIMIT ?
	`, authorID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get patterns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var patterns []model.CorrectionPattern
	for rows.Next() {
		var pattern model.CorrectionPattern
		var category string
		if err := rows.Scan(
			&pattern.ID,
			&pattern.AuthorID,
			&pattern.OriginalSpan,
			&pattern.CorrectedSpan,
			&category,
			&pattern.Frequency,
			&pattern.Confidence,
			&pattern.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan pattern: %w", err)
		}
		pattern.Category = model.PatternCategory(category)
		patterns = append(patterns, pattern)
	}

	return patterns, rows.Err()
}

// SaveHistoricalPair records one (original, corrected) example pair.
func (s *SQLiteStorage) SaveHistoricalPair(ctx context.Context, authorID string, pair model.ExamplePair) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(authorID, "authorID"); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO historical_pairs (author_id, original, corrected)
		VALUES (?, ?, ?)
	`, authorID, pair.Original, pair.Corrected)
	if err != nil {
		return fmt.Errorf("failed to save historical pair: %w", err)
	}
	return nil
}

// GetHistoricalPairs returns the author's most recent example pairs.
func (s *SQLiteStorage) GetHistoricalPairs(ctx context.Context, authorID string, limit int) ([]model.ExamplePair, error) {
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
		SELECT original, corrected
		FROM historical_pairs
		WHERE author_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`, authorID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get historical pairs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var pairs []model.ExamplePair
	for rows.Next() {
		var pair model.ExamplePair
		if err := rows.Scan(&pair.Original, &pair.Corrected); err != nil {
			return nil, fmt.Errorf("failed to scan historical pair: %w", err)
		}
		pairs = append(pairs, pair)
	}

	return pairs, rows.Err()
}

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

// SaveAuthor creates or replaces an author profile.
func (s *SQLiteStorage) SaveAuthor(ctx context.Context, author *model.Author) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if author == nil {
		return fmt.Errorf("%w: author", ErrNilParameter)
	}
	if err := validateString(author.ID, "author.ID"); err != nil {
		return err
	}

	if author.CreatedAt.IsZero() {
		author.CreatedAt = time.Now().UTC()
	}
	if author.Tier == "" {
		author.Tier = model.TierMid
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO authors (id, name, specialty, experience, tier, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			specialty = excluded.specialty,
			experience = excluded.experience
	`,
		author.ID,
		author.Name,
		author.Specialty,
		string(author.Experience),
		string(author.Tier),
		author.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save author: %w", err)
	}

	return nil
}

// GetAuthor loads one author profile.
func (s *SQLiteStorage) GetAuthor(ctx context.Context, authorID string) (*model.Author, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(authorID, "authorID"); err != nil {
		return nil, err
	}

	var author model.Author
	var experience, tier string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, specialty, experience, tier, created_at
		FROM authors
		WHERE id = ?
	`, authorID).Scan(&author.ID, &author.Name, &author.Specialty, &experience, &tier, &author.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("author %s: %w", authorID, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get author: %w", err)
	}

	author.Experience = model.ExperienceLevel(experience)
	author.Tier = model.Tier(tier)
	return &author, nil
}

// GetTier returns the author's current quality tier.
func (s *SQLiteStorage) GetTier(ctx context.Context, authorID string) (model.Tier, error) {
	author, err := s.GetAuthor(ctx, authorID)
	if err != nil {
		return "", err
	}
	return author.Tier, nil
}

// UpdateAuthorTier applies a tier change. Only the registry updater calls
// this; everything else emits tier.reassigned events.
func (s *SQLiteStorage) UpdateAuthorTier(ctx context.Context, authorID string, tier model.Tier) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(authorID, "authorID"); err != nil {
		return err
	}
	if !tier.Valid() {
		return fmt.Errorf("invalid tier: %s", tier)
	}

	result, err := s.db.ExecContext(ctx, `UPDATE authors SET tier = ? WHERE id = ?`, string(tier), authorID)
	if err != nil {
		return fmt.Errorf("failed to update tier: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check tier update: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("author %s: %w", authorID, common.ErrNotFound)
	}

	return nil
}

// ListAuthors returns all author profiles ordered by name.
func (s *SQLiteStorage) ListAuthors(ctx context.Context) ([]model.Author, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, specialty, experience, tier, created_at
		FROM authors
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list authors: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var authors []model.Author
	for rows.Next() {
		var author model.Author
		var experience, tier string
		if err := rows.Scan(&author.ID, &author.Name, &author.Specialty, &experience, &tier, &author.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan author: %w", err)
		}
		author.Experience = model.ExperienceLevel(experience)
		author.Tier = model.Tier(tier)
		authors = append(authors, author)
	}

	return authors, rows.Err()
}

package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application
// expects. If the database cannot be migrated to this version, it's a
// fatal error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS authors (
					id TEXT PRIMARY KEY,
					name TEXT NOT NULL,
					specialty TEXT,
					experience TEXT,
					tier TEXT NOT NULL DEFAULT 'Mid',
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,

				`CREATE TABLE IF NOT EXISTS documents (
					id TEXT PRIMARY KEY,
					author_id TEXT NOT NULL,
					kind TEXT NOT NULL,
					text TEXT NOT NULL,
					word_count INTEGER NOT NULL DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_documents_author ON documents(author_id)`,

				`CREATE TABLE IF NOT EXISTS sessions (
					id TEXT PRIMARY KEY,
					author_id TEXT NOT NULL,
					document_id TEXT NOT NULL,
					rewritten_document_id TEXT,
					generated_text TEXT,
					word_count INTEGER NOT NULL DEFAULT 0,
					status TEXT NOT NULL,
					error TEXT,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_sessions_author ON sessions(author_id)`,

				`CREATE TABLE IF NOT EXISTS session_trace (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					session_id TEXT NOT NULL,
					step TEXT NOT NULL,
					status TEXT NOT NULL,
					summary TEXT,
					created_at DATETIME NOT NULL,
					FOREIGN KEY (session_id) REFERENCES sessions(id)
				)`,
				`CREATE INDEX idx_session_trace_session ON session_trace(session_id)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Add correction patterns and historical pairs",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS correction_patterns (
					id TEXT PRIMARY KEY,
					author_id TEXT NOT NULL,
					original_span TEXT NOT NULL,
					corrected_span TEXT NOT NULL,
					category TEXT NOT NULL,
					frequency INTEGER NOT NULL DEFAULT 0,
					confidence REAL NOT NULL DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_patterns_author_freq ON correction_patterns(author_id, frequency DESC)`,

				`CREATE TABLE IF NOT EXISTS historical_pairs (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					author_id TEXT NOT NULL,
					original TEXT NOT NULL,
					corrected TEXT NOT NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_pairs_author ON historical_pairs(author_id)`,

				`CREATE TABLE IF NOT EXISTS pattern_embeddings (
					pattern_id TEXT PRIMARY KEY,
					author_id TEXT NOT NULL,
					summary TEXT NOT NULL,
					vector BLOB NOT NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_embeddings_author ON pattern_embeddings(author_id)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Add evaluations with session dedupe",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				// UNIQUE(session_id) enforces at most one evaluation per
				// generation session under at-least-once event delivery.
				`CREATE TABLE IF NOT EXISTS evaluations (
					id TEXT PRIMARY KEY,
					session_id TEXT NOT NULL UNIQUE,
					author_id TEXT NOT NULL,
					document_id TEXT NOT NULL,
					rewritten_document_id TEXT NOT NULL,
					sentence_edit_rate REAL NOT NULL,
					word_error_rate REAL NOT NULL,
					similarity REAL NOT NULL,
					quality_score REAL NOT NULL,
					improvement_score REAL NOT NULL,
					prior_tier TEXT NOT NULL,
					recommended_tier TEXT NOT NULL,
					tier_changed INTEGER NOT NULL DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_evaluations_author_created ON evaluations(author_id, created_at DESC)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
}

// SchemaVersion reports the database's current schema version.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}

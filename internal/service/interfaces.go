// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/scribeflow/scribeflow/internal/model"
)

// DocumentStore defines document and evaluation persistence.
type DocumentStore interface {
	SaveDocument(ctx context.Context, doc *model.Document) error
	GetDocument(ctx context.Context, id string) (*model.Document, error)
	ListRecentEvaluations(ctx context.Context, authorID string, limit int) ([]model.Evaluation, error)
}

// PatternStore serves correction patterns and historical example pairs.
type PatternStore interface {
	GetPatterns(ctx context.Context, authorID string, limit int) ([]model.CorrectionPattern, error)
	GetHistoricalPairs(ctx context.Context, authorID string, limit int) ([]model.ExamplePair, error)
}

// NeighborIndex serves similarity-ranked pattern neighbor summaries.
type NeighborIndex interface {
	QueryNeighbors(ctx context.Context, authorID string, limit int) ([]string, error)
}

// AuthorRegistry is the external owner of author profiles and tier state.
// Tier mutation is triggered through events, never performed directly here.
type AuthorRegistry interface {
	GetAuthor(ctx context.Context, authorID string) (*model.Author, error)
	GetTier(ctx context.Context, authorID string) (model.Tier, error)
}

// SessionStore persists generation sessions and their step traces.
type SessionStore interface {
	CreateSession(ctx context.Context, session *model.GenerationSession) error
	UpdateSession(ctx context.Context, session *model.GenerationSession) error
	GetSession(ctx context.Context, id string) (*model.GenerationSession, error)
	ListSessions(ctx context.Context, authorID string, limit int) ([]model.GenerationSession, error)
}

// EvaluationStore persists evaluations with session-id dedupe.
type EvaluationStore interface {
	SaveEvaluation(ctx context.Context, eval *model.Evaluation) error
	GetEvaluationBySession(ctx context.Context, sessionID string) (*model.Evaluation, error)
	CountEvaluations(ctx context.Context, authorID string) (int, error)
}

// Storage is the full persistence contract, satisfied by the SQLite layer.
type Storage interface {
	DocumentStore
	PatternStore
	SessionStore
	EvaluationStore

	// Pattern embedding operations backing the similarity index.
	SavePatternEmbedding(ctx context.Context, patternID string, summary string, vector []float64) error
	ListPatternEmbeddings(ctx context.Context, authorID string) ([]PatternEmbedding, error)

	// Author registry operations.
	SaveAuthor(ctx context.Context, author *model.Author) error
	GetAuthor(ctx context.Context, authorID string) (*model.Author, error)
	UpdateAuthorTier(ctx context.Context, authorID string, tier model.Tier) error
	ListAuthors(ctx context.Context) ([]model.Author, error)

	// Database management.
	Migrate(ctx context.Context) error
	Close() error
}

// PatternEmbedding pairs a stored pattern summary with its embedding vector.
type PatternEmbedding struct {
	PatternID string
	AuthorID  string
	Summary   string
	Vector    []float64
}

// TextCompleter issues a single text-completion request. Calls are
// idempotent text-in/text-out with no shared remote session state.
type TextCompleter interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Embedder produces a vector embedding for a text body.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// Package llm provides the text-completion and embedding clients used by
// the generation workflow and the scoring engine.
package llm

import (
	"context"
	"time"
)

// Client defines the provider-level completion interface. The same call
// shape serves generation, critique, and refinement; the three calls share
// no session state on the remote side.
type Client interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Config holds configuration for the LLM clients.
type Config struct {
	Provider       string
	APIKey         string
	Model          string
	EmbeddingModel string
	BaseURL        string
	MaxRetries     int
	RetryDelay     time.Duration
	CacheTTL       time.Duration
	RateLimit      int
	Temperature    float64
	MaxTokens      int
}

// Package tier implements the bucket-reassignment policy that turns an
// author's evaluation history into a tier decision.
package tier

import (
	"context"
	"log/slog"

	"github.com/scribeflow/scribeflow/internal/model"
)

// History provides the evaluation history the policy reads. It is a
// read-only view over the evaluation store.
type History interface {
	ListRecentEvaluations(ctx context.Context, authorID string, limit int) ([]model.Evaluation, error)
	CountEvaluations(ctx context.Context, authorID string) (int, error)
}

// Thresholds maps an average quality score onto a tier.
type Thresholds struct {
	Top float64
	Mid float64
}

// Config holds the policy's tunable parameters.
type Config struct {
	Thresholds     Thresholds
	Lookback       int
	MinEvaluations int
}

// DefaultConfig returns the standard policy parameters.
func DefaultConfig() Config {
	return Config{
		Thresholds:     Thresholds{Top: 0.8, Mid: 0.6},
		Lookback:       5,
		MinEvaluations: 3,
	}
}

// Policy decides whether an author's quality tier should change.
type Policy struct {
	history History
	config  Config
}

// NewPolicy creates a bucket policy over the given evaluation history.
func NewPolicy(history History, config Config) *Policy {
	if config.Lookback <= 0 {
		config.Lookback = 5
	}
	if config.MinEvaluations <= 0 {
		config.MinEvaluations = 3
	}
	return &Policy{history: history, config: config}
}

// DetermineRecommendedTier averages the author's most recent evaluations'
// quality scores (or uses currentQualityScore alone if none exist) and maps
// the average through the configured thresholds. Internal failures return
// the lowest tier as a conservative fail-safe.
func (p *Policy) DetermineRecommendedTier(ctx context.Context, authorID string, currentQualityScore float64) model.Tier {
	average := currentQualityScore

	evaluations, err := p.history.ListRecentEvaluations(ctx, authorID, p.config.Lookback)
	if err != nil {
		slog.Error("failed to load evaluation history, defaulting to lowest tier",
			"author_id", authorID,
			"error", err)
		return model.TierLow
	}

	if len(evaluations) > 0 {
		var sum float64
		for _, eval := range evaluations {
			sum += eval.QualityScore
		}
		average = sum / float64(len(evaluations))
	}

	return p.tierFor(average)
}

// ShouldReassign is the hysteresis gate: an author is never reassigned on a
// single evaluation, preventing tier thrash from one noisy document.
func (p *Policy) ShouldReassign(currentTier, recommendedTier model.Tier, evaluationCount int) bool {
	if evaluationCount < p.config.MinEvaluations {
		return false
	}
	return currentTier != recommendedTier
}

// MinEvaluations exposes the gate threshold for callers persisting the
// tierChanged flag.
func (p *Policy) MinEvaluations() int {
	return p.config.MinEvaluations
}

func (p *Policy) tierFor(average float64) model.Tier {
	switch {
	case average >= p.config.Thresholds.Top:
		return model.TierTop
	case average >= p.config.Thresholds.Mid:
		return model.TierMid
	default:
		return model.TierLow
	}
}

package tier

import (
	"context"
	"errors"
	"testing"

	"github.com/scribeflow/scribeflow/internal/model"
	"github.com/stretchr/testify/assert"
)

type stubHistory struct {
	evaluations []model.Evaluation
	count       int
	listErr     error
	countErr    error
}

func (s *stubHistory) ListRecentEvaluations(_ context.Context, _ string, limit int) ([]model.Evaluation, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	if len(s.evaluations) > limit {
		return s.evaluations[:limit], nil
	}
	return s.evaluations, nil
}

func (s *stubHistory) CountEvaluations(_ context.Context, _ string) (int, error) {
	return s.count, s.countErr
}

func withScores(scores ...float64) []model.Evaluation {
	evaluations := make([]model.Evaluation, len(scores))
	for i, score := range scores {
		evaluations[i] = model.Evaluation{QualityScore: score}
	}
	return evaluations
}

func TestDetermineRecommendedTier(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		history *stubHistory
		current float64
		want    model.Tier
	}{
		{
			name:    "no history uses current score",
			history: &stubHistory{},
			current: 0.85,
			want:    model.TierTop,
		},
		{
			name:    "average of recent evaluations",
			history: &stubHistory{evaluations: withScores(0.7, 0.65, 0.6)},
			current: 0.1, // ignored once history exists
			want:    model.TierMid,
		},
		{
			name:    "sustained decline lands in the bottom bucket",
			history: &stubHistory{evaluations: withScores(0.45, 0.40, 0.38, 0.42, 0.35)},
			current: 0.9,
			want:    model.TierLow,
		},
		{
			name:    "boundary average exactly at top threshold",
			history: &stubHistory{evaluations: withScores(0.8, 0.8)},
			want:    model.TierTop,
		},
		{
			name:    "boundary average exactly at mid threshold",
			history: &stubHistory{evaluations: withScores(0.6)},
			want:    model.TierMid,
		},
		{
			name:    "just below mid threshold",
			history: &stubHistory{evaluations: withScores(0.59)},
			want:    model.TierLow,
		},
		{
			name:    "lookback window bounds the average",
			history: &stubHistory{evaluations: withScores(0.9, 0.9, 0.9, 0.9, 0.9, 0.1, 0.1, 0.1)},
			want:    model.TierTop,
		},
		{
			name:    "history failure fails safe to the bottom",
			history: &stubHistory{listErr: errors.New("db locked")},
			current: 0.95,
			want:    model.TierLow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy := NewPolicy(tt.history, DefaultConfig())
			got := policy.DetermineRecommendedTier(ctx, "author-1", tt.current)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestShouldReassign(t *testing.T) {
	policy := NewPolicy(&stubHistory{}, DefaultConfig())

	tests := []struct {
		name        string
		current     model.Tier
		recommended model.Tier
		count       int
		want        bool
	}{
		{name: "different tiers with enough history", current: model.TierTop, recommended: model.TierLow, count: 6, want: true},
		{name: "same tier never reassigns", current: model.TierMid, recommended: model.TierMid, count: 10, want: false},
		{name: "below minimum evaluation count", current: model.TierTop, recommended: model.TierLow, count: 2, want: false},
		{name: "exactly at minimum evaluation count", current: model.TierLow, recommended: model.TierMid, count: 3, want: true},
		{name: "zero evaluations", current: model.TierLow, recommended: model.TierTop, count: 0, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, policy.ShouldReassign(tt.current, tt.recommended, tt.count))
		})
	}
}

func TestNewPolicyDefaults(t *testing.T) {
	policy := NewPolicy(&stubHistory{}, Config{Thresholds: Thresholds{Top: 0.8, Mid: 0.6}})
	assert.Equal(t, 3, policy.MinEvaluations())
}

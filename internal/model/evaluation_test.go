package model

import (
	"testing"
)

func TestEvaluation_Validate(t *testing.T) {
	valid := Evaluation{
		ID:               "eval-1",
		SessionID:        "session-1",
		AuthorID:         "author-1",
		SentenceEditRate: 0.5,
		WordErrorRate:    0.3,
		Similarity:       0.8,
		QualityScore:     0.68,
		ImprovementScore: 0.7,
	}

	tests := []struct {
		name    string
		errMsg  string
		mutate  func(*Evaluation)
		wantErr bool
	}{
		{
			name:   "valid evaluation",
			mutate: func(_ *Evaluation) {},
		},
		{
			name:    "missing id",
			mutate:  func(e *Evaluation) { e.ID = "" },
			wantErr: true,
			errMsg:  "evaluation id is required",
		},
		{
			name:    "missing session id",
			mutate:  func(e *Evaluation) { e.SessionID = "" },
			wantErr: true,
			errMsg:  "session id is required",
		},
		{
			name:    "missing author id",
			mutate:  func(e *Evaluation) { e.AuthorID = "" },
			wantErr: true,
			errMsg:  "author id is required",
		},
		{
			name:    "quality score above one",
			mutate:  func(e *Evaluation) { e.QualityScore = 1.2 },
			wantErr: true,
			errMsg:  "quality score must be between 0.0 and 1.0, got 1.20",
		},
		{
			name:    "negative similarity",
			mutate:  func(e *Evaluation) { e.Similarity = -0.1 },
			wantErr: true,
			errMsg:  "similarity must be between 0.0 and 1.0, got -0.10",
		},
		{
			name: "boundary scores are valid",
			mutate: func(e *Evaluation) {
				e.SentenceEditRate = 0
				e.WordErrorRate = 1
				e.QualityScore = 1
				e.ImprovementScore = 0
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evaluation := valid
			tt.mutate(&evaluation)
			err := evaluation.Validate()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if err.Error() != tt.errMsg {
					t.Errorf("error = %q, want %q", err.Error(), tt.errMsg)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestTier_Valid(t *testing.T) {
	for _, tier := range []Tier{TierTop, TierMid, TierLow} {
		if !tier.Valid() {
			t.Errorf("%q should be valid", tier)
		}
	}
	for _, tier := range []Tier{"", "Bottom", "top"} {
		if tier.Valid() {
			t.Errorf("%q should be invalid", tier)
		}
	}
}

func TestExperienceLevel_Valid(t *testing.T) {
	levels := []ExperienceLevel{
		ExperienceExcellent,
		ExperienceGood,
		ExperienceAverage,
		ExperiencePoor,
		ExperienceNeedsImprovement,
	}
	for _, level := range levels {
		if !level.Valid() {
			t.Errorf("%q should be valid", level)
		}
	}
	if ExperienceLevel("excellent").Valid() {
		t.Error("experience levels are case sensitive")
	}
}

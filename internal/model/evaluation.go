package model

import (
	"fmt"
	"time"
)

// Evaluation records the scored comparison between an original document and
// its rewrite. Score fields are immutable after creation; the tier-decision
// fields are filled in a second pass by the bucket policy before persisting.
type Evaluation struct {
	CreatedAt           time.Time
	ID                  string
	AuthorID            string
	DocumentID          string
	RewrittenDocumentID string
	SessionID           string
	PriorTier           Tier
	RecommendedTier     Tier
	SentenceEditRate    float64
	WordErrorRate       float64
	Similarity          float64
	QualityScore        float64
	ImprovementScore    float64
	TierChanged         bool
}

// Validate checks that all scores are within bounds and required
// identifiers are present.
func (e *Evaluation) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("evaluation id is required")
	}
	if e.SessionID == "" {
		return fmt.Errorf("session id is required")
	}
	if e.AuthorID == "" {
		return fmt.Errorf("author id is required")
	}
	for _, score := range []struct {
		name  string
		value float64
	}{
		{"sentence edit rate", e.SentenceEditRate},
		{"word error rate", e.WordErrorRate},
		{"similarity", e.Similarity},
		{"quality score", e.QualityScore},
		{"improvement score", e.ImprovementScore},
	} {
		if score.value < 0 || score.value > 1 {
			return fmt.Errorf("%s must be between 0.0 and 1.0, got %.2f", score.name, score.value)
		}
	}
	return nil
}

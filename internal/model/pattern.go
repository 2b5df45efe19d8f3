package model

import (
	"fmt"
	"time"
)

// PatternCategory classifies the kind of correction a pattern captures.
type PatternCategory string

// Pattern category constants.
const (
	PatternSpelling       PatternCategory = "spelling"
	PatternGrammar        PatternCategory = "grammar"
	PatternPunctuation    PatternCategory = "punctuation"
	PatternCapitalization PatternCategory = "capitalization"
	PatternWordOrder      PatternCategory = "word-order"
	PatternAbbreviation   PatternCategory = "abbreviation"
	PatternGeneral        PatternCategory = "general"
)

// PatternCategories lists every valid correction category.
var PatternCategories = []PatternCategory{
	PatternSpelling,
	PatternGrammar,
	PatternPunctuation,
	PatternCapitalization,
	PatternWordOrder,
	PatternAbbreviation,
	PatternGeneral,
}

// CorrectionPattern records a recurring edit observed in an author's
// corrected documents. Patterns are produced by a separate extraction
// service and consumed read-only here.
type CorrectionPattern struct {
	CreatedAt     time.Time
	ID            string
	AuthorID      string
	OriginalSpan  string
	CorrectedSpan string
	Category      PatternCategory
	Frequency     int
	Confidence    float64
}

// Validate checks that the pattern is well formed.
func (p *CorrectionPattern) Validate() error {
	if p.AuthorID == "" {
		return fmt.Errorf("author id is required")
	}
	if p.OriginalSpan == "" {
		return fmt.Errorf("original span is required")
	}
	if !p.Category.Valid() {
		return fmt.Errorf("invalid pattern category: %s", p.Category)
	}
	if p.Confidence < 0 || p.Confidence > 1 {
		return fmt.Errorf("confidence must be between 0.0 and 1.0, got %.2f", p.Confidence)
	}
	if p.Frequency < 0 {
		return fmt.Errorf("frequency cannot be negative")
	}
	return nil
}

// Valid reports whether c is a known correction category.
func (c PatternCategory) Valid() bool {
	for _, known := range PatternCategories {
		if c == known {
			return true
		}
	}
	return false
}

// ExamplePair is a historical (original, corrected) document pair used as
// few-shot context for generation.
type ExamplePair struct {
	Original  string
	Corrected string
}

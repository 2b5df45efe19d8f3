// Package model defines the core domain models used throughout the application.
package model

import (
	"fmt"
	"strings"
	"time"
)

// DocumentKind distinguishes dictated originals from generated rewrites.
type DocumentKind string

// Document kind constants.
const (
	KindOriginal  DocumentKind = "original"
	KindRewritten DocumentKind = "rewritten"
)

// Document represents a single note body, either dictated or generated.
// Documents are immutable once created; rewritten documents are created
// only by the generation workflow.
type Document struct {
	CreatedAt time.Time
	ID        string
	AuthorID  string
	Kind      DocumentKind
	Text      string
	WordCount int
}

// Validate checks that the document is well formed.
func (d *Document) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("document id is required")
	}
	if d.AuthorID == "" {
		return fmt.Errorf("author id is required")
	}
	switch d.Kind {
	case KindOriginal, KindRewritten:
	default:
		return fmt.Errorf("invalid document kind: %s", d.Kind)
	}
	return nil
}

// CountWords returns the number of whitespace-delimited tokens in text.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

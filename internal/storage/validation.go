package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/scribeflow/scribeflow/internal/model"
)

// Validation errors.
var (
	ErrNilContext        = errors.New("context cannot be nil")
	ErrEmptyString       = errors.New("string parameter cannot be empty")
	ErrNilParameter      = errors.New("parameter cannot be nil")
	ErrInvalidLimit      = errors.New("limit must be positive")
	ErrInvalidDocument   = errors.New("invalid document")
	ErrInvalidSession    = errors.New("invalid session")
	ErrInvalidEvaluation = errors.New("invalid evaluation")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateLimit ensures a result limit is positive.
func validateLimit(limit int) error {
	if limit <= 0 {
		return ErrInvalidLimit
	}
	return nil
}

// validateDocument validates a document before persisting.
func validateDocument(doc *model.Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document", ErrNilParameter)
	}
	if err := doc.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return nil
}

// validateSession validates a session before persisting.
func validateSession(session *model.GenerationSession) error {
	if session == nil {
		return fmt.Errorf("%w: session", ErrNilParameter)
	}
	if err := session.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	return nil
}

// validateEvaluation validates an evaluation before persisting.
func validateEvaluation(eval *model.Evaluation) error {
	if eval == nil {
		return fmt.Errorf("%w: evaluation", ErrNilParameter)
	}
	if err := eval.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEvaluation, err)
	}
	return nil
}

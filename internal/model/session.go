package model

import (
	"fmt"
	"time"
)

// SessionStatus tracks the lifecycle of a generation session.
type SessionStatus string

// Session status constants.
const (
	SessionPending  SessionStatus = "pending"
	SessionComplete SessionStatus = "complete"
	SessionFailed   SessionStatus = "failed"
)

// StepStatus records the outcome of a single workflow step.
type StepStatus string

// Step status constants.
const (
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
)

// TraceEntry is one entry in a session's step trace. The trace is an
// append-only audit log: entries are never removed or reordered.
type TraceEntry struct {
	Timestamp time.Time
	Step      string
	Status    StepStatus
	Summary   string
}

// GenerationSession captures one end-to-end run of the generation workflow
// for one document. Exactly one session exists per generation attempt.
type GenerationSession struct {
	CreatedAt     time.Time
	UpdatedAt     time.Time
	ID            string
	AuthorID      string
	DocumentID    string
	RewrittenID   string
	GeneratedText string
	Error         string
	Status        SessionStatus
	Trace         []TraceEntry
	WordCount     int
}

// AppendTrace adds a trace entry for an executed step.
func (s *GenerationSession) AppendTrace(step string, status StepStatus, summary string) {
	s.Trace = append(s.Trace, TraceEntry{
		Step:      step,
		Status:    status,
		Summary:   summary,
		Timestamp: time.Now().UTC(),
	})
}

// StepsCompleted returns the names of steps that completed, in order.
func (s *GenerationSession) StepsCompleted() []string {
	steps := make([]string, 0, len(s.Trace))
	for _, entry := range s.Trace {
		if entry.Status == StepCompleted {
			steps = append(steps, entry.Step)
		}
	}
	return steps
}

// Terminal reports whether the session has reached a final state.
func (s *GenerationSession) Terminal() bool {
	return s.Status == SessionComplete || s.Status == SessionFailed
}

// Validate checks that the session is well formed.
func (s *GenerationSession) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("session id is required")
	}
	if s.AuthorID == "" {
		return fmt.Errorf("author id is required")
	}
	if s.DocumentID == "" {
		return fmt.Errorf("document id is required")
	}
	switch s.Status {
	case SessionPending, SessionComplete, SessionFailed:
	default:
		return fmt.Errorf("invalid session status: %s", s.Status)
	}
	return nil
}

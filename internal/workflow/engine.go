// Package workflow implements the multi-step generation pipeline as an
// explicit state machine: context-analysis → pattern-matching →
// draft-generation → [self-critique] → [refinement].
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/scribeflow/scribeflow/internal/common"
	"github.com/scribeflow/scribeflow/internal/events"
	"github.com/scribeflow/scribeflow/internal/gather"
	"github.com/scribeflow/scribeflow/internal/model"
	"github.com/scribeflow/scribeflow/internal/prompt"
	"github.com/scribeflow/scribeflow/internal/service"
)

// State identifies a position in the workflow. The topology is fixed:
// five steps, one conditional fork, one conditional exit.
type State string

// Workflow states. StepsCompleted in the session trace uses the same names.
const (
	StateContextAnalysis State = "context-analysis"
	StatePatternMatching State = "pattern-matching"
	StateDraftGeneration State = "draft-generation"
	StateSelfCritique    State = "self-critique"
	StateRefinement      State = "refinement"
	StateDone            State = "done"
	StateFailed          State = "failed"
)

// next is the transition table. The fork after draft-generation and the
// exit after self-critique depend on the run's flags, resolved by the
// engine at transition time.
var next = map[State]State{
	StateContextAnalysis: StatePatternMatching,
	StatePatternMatching: StateDraftGeneration,
	StateDraftGeneration: StateSelfCritique, // or StateDone when critique disabled
	StateSelfCritique:    StateRefinement,   // or StateDone when no refinement needed
	StateRefinement:      StateDone,
}

// Config holds the workflow's tunable parameters.
type Config struct {
	CritiqueKeywords  []string
	CompletionTimeout time.Duration
	Retry             service.RetryOptions
	UseCritique       bool
}

// DefaultConfig returns the standard workflow configuration.
func DefaultConfig() Config {
	return Config{
		UseCritique:       true,
		CritiqueKeywords:  DefaultCritiqueKeywords,
		CompletionTimeout: 60 * time.Second,
		Retry: service.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: time.Second,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
		},
	}
}

// Engine runs generation sessions. One Engine serves many concurrent
// sessions; it holds no per-session state.
type Engine struct {
	gatherer  Gatherer
	completer service.TextCompleter
	documents service.DocumentStore
	sessions  service.SessionStore
	publisher events.Publisher
	config    Config
}

// New creates a workflow engine.
func New(gatherer Gatherer, completer service.TextCompleter, documents service.DocumentStore, sessions service.SessionStore, publisher events.Publisher, config Config) *Engine {
	if len(config.CritiqueKeywords) == 0 {
		config.CritiqueKeywords = DefaultCritiqueKeywords
	}
	if config.CompletionTimeout <= 0 {
		config.CompletionTimeout = 60 * time.Second
	}
	return &Engine{
		gatherer:  gatherer,
		completer: completer,
		documents: documents,
		sessions:  sessions,
		publisher: publisher,
		config:    config,
	}
}

// Result is the workflow's output contract on success.
type Result struct {
	Session        *model.GenerationSession
	GeneratedText  string
	StepsCompleted []string
	WordCount      int
}

// run carries the mutable state of one session through the state machine.
type run struct {
	session     *model.GenerationSession
	bundle      *gather.Bundle
	histogram   map[model.PatternCategory]int
	draftPrompt string
	critique    string
	needsRefine bool
}

// Run executes one generation session to its terminal state. The session
// is persisted at start and updated after every step; a caller abandoning
// the result does not stop the workflow.
func (e *Engine) Run(ctx context.Context, authorID, documentID string) (*Result, error) {
	session := &model.GenerationSession{
		ID:         uuid.New().String(),
		AuthorID:   authorID,
		DocumentID: documentID,
		Status:     model.SessionPending,
		CreatedAt:  time.Now().UTC(),
	}

	if err := e.sessions.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	slog.Info("generation session started",
		"session_id", session.ID,
		"author_id", authorID,
		"document_id", documentID)

	r := &run{session: session}

	state := StateContextAnalysis
	for state != StateDone && state != StateFailed {
		stepErr := e.step(ctx, state, r)
		if stepErr != nil {
			return nil, e.fail(ctx, r, state, stepErr)
		}

		session.AppendTrace(string(state), model.StepCompleted, e.summary(state, r))
		if err := e.sessions.UpdateSession(ctx, session); err != nil {
			slog.Error("failed to persist step trace",
				"session_id", session.ID,
				"step", state,
				"error", err)
		}

		state = e.transition(state, r)
	}

	return e.complete(ctx, r)
}

// transition resolves the next state, applying the critique fork and the
// refinement exit.
func (e *Engine) transition(state State, r *run) State {
	switch state {
	case StateDraftGeneration:
		if !e.config.UseCritique {
			return StateDone
		}
	case StateSelfCritique:
		if !r.needsRefine {
			return StateDone
		}
	}
	return next[state]
}

// step executes one state's work against the run.
func (e *Engine) step(ctx context.Context, state State, r *run) error {
	switch state {
	case StateContextAnalysis:
		return e.contextAnalysis(ctx, r)
	case StatePatternMatching:
		e.patternMatching(r)
		return nil
	case StateDraftGeneration:
		return e.draftGeneration(ctx, r)
	case StateSelfCritique:
		return e.selfCritique(ctx, r)
	case StateRefinement:
		return e.refinement(ctx, r)
	}
	return fmt.Errorf("unknown workflow state: %s", state)
}

// contextAnalysis gathers the context bundle. A missing or empty target
// document is fatal.
func (e *Engine) contextAnalysis(ctx context.Context, r *run) error {
	bundle, err := e.gatherer.Gather(ctx, r.session.AuthorID, r.session.DocumentID)
	if err != nil {
		return fmt.Errorf("context analysis failed: %w", err)
	}
	if strings.TrimSpace(bundle.Document.Text) == "" {
		return fmt.Errorf("context analysis failed: %w", common.ErrEmptyDocument)
	}
	r.bundle = bundle
	return nil
}

// patternMatching builds the category histogram over the already-fetched
// patterns and hands it to draft generation as a prompt input. It cannot
// fail the workflow; anything unusable is treated as zero patterns.
func (e *Engine) patternMatching(r *run) {
	histogram := make(map[model.PatternCategory]int)
	for _, p := range r.bundle.Patterns {
		if !p.Category.Valid() {
			slog.Warn("skipping pattern with unknown category",
				"session_id", r.session.ID,
				"category", p.Category)
			continue
		}
		histogram[p.Category] += p.Frequency
	}
	r.histogram = histogram

	slog.Debug("pattern histogram computed",
		"session_id", r.session.ID,
		"categories", len(histogram))
}

func (e *Engine) draftGeneration(ctx context.Context, r *run) error {
	r.draftPrompt = prompt.Draft(r.bundle, r.histogram)

	text, err := e.completeWithRetry(ctx, prompt.System(), r.draftPrompt)
	if err != nil {
		return fmt.Errorf("draft generation failed: %w", err)
	}

	r.session.GeneratedText = text
	r.session.WordCount = model.CountWords(text)
	return nil
}

func (e *Engine) selfCritique(ctx context.Context, r *run) error {
	critiquePrompt := prompt.Critique(r.bundle.Document.Text, r.session.GeneratedText)

	critique, err := e.completeWithRetry(ctx, prompt.System(), critiquePrompt)
	if err != nil {
		return fmt.Errorf("self-critique failed: %w", err)
	}

	r.critique = critique
	r.needsRefine = NeedsRefinement(critique, e.config.CritiqueKeywords)

	slog.Info("self-critique evaluated",
		"session_id", r.session.ID,
		"needs_refinement", r.needsRefine)
	return nil
}

func (e *Engine) refinement(ctx context.Context, r *run) error {
	refinePrompt := prompt.Refinement(r.draftPrompt, r.session.GeneratedText, r.critique)

	text, err := e.completeWithRetry(ctx, prompt.System(), refinePrompt)
	if err != nil {
		return fmt.Errorf("refinement failed: %w", err)
	}

	r.session.GeneratedText = text
	r.session.WordCount = model.CountWords(text)
	return nil
}

// completeWithRetry issues one completion with a per-call timeout and the
// configured retry budget. Completion calls are idempotent, so retries
// cannot corrupt state.
func (e *Engine) completeWithRetry(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	var text string

	err := common.WithRetry(ctx, func() error {
		callCtx, cancel := context.WithTimeout(ctx, e.config.CompletionTimeout)
		defer cancel()

		result, err := e.completer.Complete(callCtx, systemPrompt, userPrompt)
		if err != nil {
			return &common.RetryableError{Err: fmt.Errorf("%w: %v", common.ErrUpstreamFailure, err), Retryable: true}
		}
		if strings.TrimSpace(result) == "" {
			return &common.RetryableError{Err: errors.New("empty completion"), Retryable: true}
		}
		text = result
		return nil
	}, e.config.Retry)

	return text, err
}

// complete persists the rewritten document, finalizes the session, and
// emits the document.rewritten event.
func (e *Engine) complete(ctx context.Context, r *run) (*Result, error) {
	session := r.session

	rewritten := &model.Document{
		ID:        uuid.New().String(),
		AuthorID:  session.AuthorID,
		Kind:      model.KindRewritten,
		Text:      session.GeneratedText,
		WordCount: session.WordCount,
		CreatedAt: time.Now().UTC(),
	}
	if err := e.documents.SaveDocument(ctx, rewritten); err != nil {
		return nil, e.fail(ctx, r, StateDone, fmt.Errorf("failed to save rewritten document: %w", err))
	}

	session.RewrittenID = rewritten.ID
	session.Status = model.SessionComplete
	session.UpdatedAt = time.Now().UTC()
	if err := e.sessions.UpdateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to finalize session: %w", err)
	}

	event := events.DocumentRewritten{
		SessionID:           session.ID,
		AuthorID:            session.AuthorID,
		SourceDocumentID:    session.DocumentID,
		RewrittenDocumentID: rewritten.ID,
		WordCount:           session.WordCount,
		ConfidenceScore:     e.confidence(r),
	}
	if err := e.publisher.Publish(ctx, events.TopicDocumentRewritten, event); err != nil {
		slog.Error("failed to publish document.rewritten",
			"session_id", session.ID,
			"error", err)
	}

	slog.Info("generation session complete",
		"session_id", session.ID,
		"word_count", session.WordCount,
		"steps", len(session.Trace))

	return &Result{
		Session:        session,
		GeneratedText:  session.GeneratedText,
		WordCount:      session.WordCount,
		StepsCompleted: session.StepsCompleted(),
	}, nil
}

// fail records the step failure, marks the session terminal, and returns
// the wrapped error. The orchestrator process never crashes on a failed
// session.
func (e *Engine) fail(ctx context.Context, r *run, state State, stepErr error) error {
	session := r.session
	if state != StateDone {
		session.AppendTrace(string(state), model.StepFailed, stepErr.Error())
	}
	session.Status = model.SessionFailed
	session.Error = stepErr.Error()
	session.UpdatedAt = time.Now().UTC()

	if err := e.sessions.UpdateSession(ctx, session); err != nil {
		slog.Error("failed to persist failed session",
			"session_id", session.ID,
			"error", err)
	}

	slog.Error("generation session failed",
		"session_id", session.ID,
		"step", state,
		"error", stepErr)

	return fmt.Errorf("%w: %w", common.ErrSessionFailed, stepErr)
}

// confidence reports how settled the final text is: drafts that survived
// critique untouched score highest, refined drafts lower, uncritiqued
// drafts in between.
func (e *Engine) confidence(r *run) float64 {
	switch {
	case !e.config.UseCritique:
		return 0.9
	case r.needsRefine:
		return 0.85
	default:
		return 0.95
	}
}

// summary produces the trace payload summary for a completed step.
func (e *Engine) summary(state State, r *run) string {
	switch state {
	case StateContextAnalysis:
		return fmt.Sprintf("patterns=%d examples=%d neighbors=%d",
			len(r.bundle.Patterns), len(r.bundle.Examples), len(r.bundle.Neighbors))
	case StatePatternMatching:
		return histogramSummary(r.histogram)
	case StateDraftGeneration, StateRefinement:
		return fmt.Sprintf("words=%d", r.session.WordCount)
	case StateSelfCritique:
		return fmt.Sprintf("needs_refinement=%t", r.needsRefine)
	}
	return ""
}

// histogramSummary renders category counts in a stable order for the
// step trace.
func histogramSummary(histogram map[model.PatternCategory]int) string {
	categories := make([]string, 0, len(histogram))
	for category := range histogram {
		categories = append(categories, string(category))
	}
	sort.Strings(categories)

	parts := make([]string, 0, len(categories)+1)
	parts = append(parts, fmt.Sprintf("categories=%d", len(histogram)))
	for _, category := range categories {
		parts = append(parts, fmt.Sprintf("%s=%d", category, histogram[model.PatternCategory(category)]))
	}
	return strings.Join(parts, " ")
}

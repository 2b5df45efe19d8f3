// Package pipeline sequences generation → scoring → tier decision across
// the asynchronous event boundary, with idempotent evaluation persistence.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/scribeflow/scribeflow/internal/common"
	"github.com/scribeflow/scribeflow/internal/events"
	"github.com/scribeflow/scribeflow/internal/model"
	"github.com/scribeflow/scribeflow/internal/scoring"
	"github.com/scribeflow/scribeflow/internal/service"
	"github.com/scribeflow/scribeflow/internal/tier"
)

// Orchestrator consumes document.rewritten notifications, runs the scoring
// engine and bucket policy, persists the evaluation, and emits the
// downstream events.
type Orchestrator struct {
	documents   service.DocumentStore
	evaluations service.EvaluationStore
	registry    service.AuthorRegistry
	scorer      *scoring.Engine
	policy      *tier.Policy
	publisher   events.Publisher
}

// NewOrchestrator creates a pipeline orchestrator.
func NewOrchestrator(documents service.DocumentStore, evaluations service.EvaluationStore, registry service.AuthorRegistry, scorer *scoring.Engine, policy *tier.Policy, publisher events.Publisher) *Orchestrator {
	return &Orchestrator{
		documents:   documents,
		evaluations: evaluations,
		registry:    registry,
		scorer:      scorer,
		policy:      policy,
		publisher:   publisher,
	}
}

// Register subscribes the orchestrator to the rewrite topic on the bus.
func (o *Orchestrator) Register(bus *events.Bus) {
	bus.Subscribe(events.TopicDocumentRewritten, o.HandleRewritten)
}

// HandleRewritten processes one document.rewritten message. Delivery is
// at-least-once: reprocessing the same session id is a no-op.
func (o *Orchestrator) HandleRewritten(ctx context.Context, msg events.Message) error {
	var event events.DocumentRewritten
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		// A malformed payload will never parse on redelivery; drop it.
		slog.Error("malformed document.rewritten payload",
			"correlation_id", msg.CorrelationID,
			"error", err)
		return nil
	}

	if _, err := o.Evaluate(ctx, event); err != nil {
		return fmt.Errorf("evaluation for session %s: %w", event.SessionID, err)
	}
	return nil
}

// Evaluate runs the scoring and tier decision for one completed generation
// and persists the result. Duplicate session ids are detected before
// insert and swallowed as a no-op.
func (o *Orchestrator) Evaluate(ctx context.Context, event events.DocumentRewritten) (*model.Evaluation, error) {
	existing, err := o.evaluations.GetEvaluationBySession(ctx, event.SessionID)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("dedupe check failed: %w", err)
	}
	if existing != nil {
		slog.Info("evaluation already exists for session, skipping",
			"session_id", event.SessionID,
			"evaluation_id", existing.ID)
		return existing, nil
	}

	original, err := o.documents.GetDocument(ctx, event.SourceDocumentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load source document: %w", err)
	}
	rewritten, err := o.documents.GetDocument(ctx, event.RewrittenDocumentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load rewritten document: %w", err)
	}

	priorTier, err := o.registry.GetTier(ctx, event.AuthorID)
	if err != nil {
		slog.Warn("failed to load author tier, defaulting to lowest",
			"author_id", event.AuthorID,
			"error", err)
		priorTier = model.TierLow
	}

	metrics := o.scorer.Score(ctx, original.Text, rewritten.Text)

	evaluation := &model.Evaluation{
		ID:                  uuid.New().String(),
		AuthorID:            event.AuthorID,
		DocumentID:          event.SourceDocumentID,
		RewrittenDocumentID: event.RewrittenDocumentID,
		SessionID:           event.SessionID,
		SentenceEditRate:    metrics.SentenceEditRate,
		WordErrorRate:       metrics.WordErrorRate,
		Similarity:          metrics.Similarity,
		QualityScore:        metrics.QualityScore,
		ImprovementScore:    metrics.ImprovementScore,
		PriorTier:           priorTier,
		CreatedAt:           time.Now().UTC(),
	}

	// Second pass: the bucket policy fills the tier-decision fields before
	// the evaluation is persisted.
	recommended := o.policy.DetermineRecommendedTier(ctx, event.AuthorID, metrics.QualityScore)
	count, err := o.evaluations.CountEvaluations(ctx, event.AuthorID)
	if err != nil {
		slog.Warn("failed to count evaluations, reassignment gated off",
			"author_id", event.AuthorID,
			"error", err)
		count = 0
	}

	evaluation.RecommendedTier = recommended
	evaluation.TierChanged = o.policy.ShouldReassign(priorTier, recommended, count)

	if err := o.evaluations.SaveEvaluation(ctx, evaluation); err != nil {
		if errors.Is(err, common.ErrDuplicateEntry) {
			// A concurrent redelivery won the insert race.
			slog.Info("duplicate evaluation for session, skipping",
				"session_id", event.SessionID)
			return o.evaluations.GetEvaluationBySession(ctx, event.SessionID)
		}
		return nil, fmt.Errorf("failed to save evaluation: %w", err)
	}

	slog.Info("evaluation completed",
		"evaluation_id", evaluation.ID,
		"session_id", event.SessionID,
		"quality", metrics.QualityScore,
		"improvement", metrics.ImprovementScore,
		"tier_changed", evaluation.TierChanged)

	o.emit(ctx, evaluation)

	return evaluation, nil
}

// emit publishes evaluation.completed always, and tier.reassigned only
// when the policy gate opened.
func (o *Orchestrator) emit(ctx context.Context, evaluation *model.Evaluation) {
	completed := events.EvaluationCompleted{
		EvaluationID:     evaluation.ID,
		AuthorID:         evaluation.AuthorID,
		DocumentID:       evaluation.DocumentID,
		QualityScore:     evaluation.QualityScore,
		ImprovementScore: evaluation.ImprovementScore,
		TierChanged:      evaluation.TierChanged,
	}
	if err := o.publisher.Publish(ctx, events.TopicEvaluationCompleted, completed); err != nil {
		slog.Error("failed to publish evaluation.completed",
			"evaluation_id", evaluation.ID,
			"error", err)
	}

	if !evaluation.TierChanged {
		return
	}

	reassigned := events.TierReassigned{
		AuthorID:         evaluation.AuthorID,
		EvaluationID:     evaluation.ID,
		OldTier:          string(evaluation.PriorTier),
		NewTier:          string(evaluation.RecommendedTier),
		QualityScore:     evaluation.QualityScore,
		ImprovementScore: evaluation.ImprovementScore,
	}
	if err := o.publisher.Publish(ctx, events.TopicTierReassigned, reassigned); err != nil {
		slog.Error("failed to publish tier.reassigned",
			"evaluation_id", evaluation.ID,
			"error", err)
	}
}

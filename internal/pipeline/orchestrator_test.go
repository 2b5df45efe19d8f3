package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/scribeflow/scribeflow/internal/events"
	"github.com/scribeflow/scribeflow/internal/model"
	"github.com/scribeflow/scribeflow/internal/scoring"
	"github.com/scribeflow/scribeflow/internal/service"
	"github.com/scribeflow/scribeflow/internal/storage"
	"github.com/scribeflow/scribeflow/internal/tier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
	events []any
}

func (r *recordingPublisher) Publish(_ context.Context, topic string, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.topics = append(r.topics, topic)
	r.events = append(r.events, payload)
	return nil
}

func (r *recordingPublisher) published(topic string) []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []any
	for i, t := range r.topics {
		if t == topic {
			out = append(out, r.events[i])
		}
	}
	return out
}

type orchestratorFixture struct {
	db           service.Storage
	publisher    *recordingPublisher
	orchestrator *Orchestrator
}

func setupOrchestrator(t *testing.T) *orchestratorFixture {
	t.Helper()

	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.Migrate(context.Background()))
	t.Cleanup(func() { _ = db.Close() })

	scorer, err := scoring.NewEngine(nil, scoring.DefaultWeights())
	require.NoError(t, err)

	publisher := &recordingPublisher{}
	policy := tier.NewPolicy(db, tier.DefaultConfig())
	orchestrator := NewOrchestrator(db, db, db, scorer, policy, publisher)

	return &orchestratorFixture{db: db, publisher: publisher, orchestrator: orchestrator}
}

func (f *orchestratorFixture) saveAuthor(t *testing.T, id string, authorTier model.Tier) {
	t.Helper()
	require.NoError(t, f.db.SaveAuthor(context.Background(), &model.Author{
		ID:         id,
		Name:       "Test Author",
		Experience: model.ExperienceAverage,
		Tier:       authorTier,
		CreatedAt:  time.Now().UTC(),
	}))
}

func (f *orchestratorFixture) saveDocumentPair(t *testing.T, authorID string) (string, string) {
	t.Helper()
	ctx := context.Background()

	original := &model.Document{
		ID:        uuid.New().String(),
		AuthorID:  authorID,
		Kind:      model.KindOriginal,
		Text:      "Pt stable. Cont meds.",
		WordCount: 4,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, f.db.SaveDocument(ctx, original))

	rewritten := &model.Document{
		ID:        uuid.New().String(),
		AuthorID:  authorID,
		Kind:      model.KindRewritten,
		Text:      "The patient is stable. Continue current medications as prescribed.",
		WordCount: 10,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, f.db.SaveDocument(ctx, rewritten))

	return original.ID, rewritten.ID
}

func (f *orchestratorFixture) seedEvaluations(t *testing.T, authorID string, scores ...float64) {
	t.Helper()
	ctx := context.Background()
	for i, score := range scores {
		require.NoError(t, f.db.SaveEvaluation(ctx, &model.Evaluation{
			ID:               uuid.New().String(),
			AuthorID:         authorID,
			DocumentID:       fmt.Sprintf("doc-%d", i),
			SessionID:        uuid.New().String(),
			QualityScore:     score,
			ImprovementScore: score,
			PriorTier:        model.TierMid,
			RecommendedTier:  model.TierMid,
			CreatedAt:        time.Now().UTC().Add(time.Duration(i) * time.Second),
		}))
	}
}

func TestOrchestratorEvaluate(t *testing.T) {
	f := setupOrchestrator(t)
	f.saveAuthor(t, "author-1", model.TierMid)
	origID, rewrittenID := f.saveDocumentPair(t, "author-1")

	event := events.DocumentRewritten{
		SessionID:           uuid.New().String(),
		AuthorID:            "author-1",
		SourceDocumentID:    origID,
		RewrittenDocumentID: rewrittenID,
		WordCount:           10,
	}

	evaluation, err := f.orchestrator.Evaluate(context.Background(), event)
	require.NoError(t, err)

	assert.Equal(t, event.SessionID, evaluation.SessionID)
	assert.Equal(t, model.TierMid, evaluation.PriorTier)
	assert.GreaterOrEqual(t, evaluation.QualityScore, 0.0)
	assert.LessOrEqual(t, evaluation.QualityScore, 1.0)

	// A first evaluation never moves the tier.
	assert.False(t, evaluation.TierChanged)
	assert.Len(t, f.publisher.published(events.TopicEvaluationCompleted), 1)
	assert.Empty(t, f.publisher.published(events.TopicTierReassigned))

	stored, err := f.db.GetEvaluationBySession(context.Background(), event.SessionID)
	require.NoError(t, err)
	assert.Equal(t, evaluation.ID, stored.ID)
}

func TestOrchestratorEvaluate_Idempotent(t *testing.T) {
	f := setupOrchestrator(t)
	f.saveAuthor(t, "author-1", model.TierMid)
	origID, rewrittenID := f.saveDocumentPair(t, "author-1")

	event := events.DocumentRewritten{
		SessionID:           uuid.New().String(),
		AuthorID:            "author-1",
		SourceDocumentID:    origID,
		RewrittenDocumentID: rewrittenID,
	}

	first, err := f.orchestrator.Evaluate(context.Background(), event)
	require.NoError(t, err)

	second, err := f.orchestrator.Evaluate(context.Background(), event)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)

	count, err := f.db.CountEvaluations(context.Background(), "author-1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// The duplicate delivery produced no second downstream event.
	assert.Len(t, f.publisher.published(events.TopicEvaluationCompleted), 1)
}

func TestOrchestratorEvaluate_TierReassignment(t *testing.T) {
	f := setupOrchestrator(t)
	f.saveAuthor(t, "author-1", model.TierTop)
	origID, rewrittenID := f.saveDocumentPair(t, "author-1")

	// A sustained run of poor evaluations drags the average below the
	// mid threshold.
	f.seedEvaluations(t, "author-1", 0.45, 0.40, 0.38, 0.42, 0.35)

	event := events.DocumentRewritten{
		SessionID:           uuid.New().String(),
		AuthorID:            "author-1",
		SourceDocumentID:    origID,
		RewrittenDocumentID: rewrittenID,
	}

	evaluation, err := f.orchestrator.Evaluate(context.Background(), event)
	require.NoError(t, err)

	assert.Equal(t, model.TierTop, evaluation.PriorTier)
	assert.Equal(t, model.TierLow, evaluation.RecommendedTier)
	assert.True(t, evaluation.TierChanged)

	reassignments := f.publisher.published(events.TopicTierReassigned)
	require.Len(t, reassignments, 1)
	reassigned, ok := reassignments[0].(events.TierReassigned)
	require.True(t, ok)
	assert.Equal(t, "Top", reassigned.OldTier)
	assert.Equal(t, "Low", reassigned.NewTier)
	assert.Equal(t, evaluation.ID, reassigned.EvaluationID)
}

func TestOrchestratorEvaluate_MissingAuthorDefaultsLow(t *testing.T) {
	f := setupOrchestrator(t)
	origID, rewrittenID := f.saveDocumentPair(t, "ghost-author")

	event := events.DocumentRewritten{
		SessionID:           uuid.New().String(),
		AuthorID:            "ghost-author",
		SourceDocumentID:    origID,
		RewrittenDocumentID: rewrittenID,
	}

	evaluation, err := f.orchestrator.Evaluate(context.Background(), event)
	require.NoError(t, err)
	assert.Equal(t, model.TierLow, evaluation.PriorTier)
}

func TestOrchestratorEvaluate_MissingDocument(t *testing.T) {
	f := setupOrchestrator(t)
	f.saveAuthor(t, "author-1", model.TierMid)

	event := events.DocumentRewritten{
		SessionID:           uuid.New().String(),
		AuthorID:            "author-1",
		SourceDocumentID:    "no-such-doc",
		RewrittenDocumentID: "also-missing",
	}

	_, err := f.orchestrator.Evaluate(context.Background(), event)
	assert.Error(t, err)
}

func TestHandleRewritten_MalformedPayloadDropped(t *testing.T) {
	f := setupOrchestrator(t)

	err := f.orchestrator.HandleRewritten(context.Background(), events.Message{
		CorrelationID: "corr-1",
		Topic:         events.TopicDocumentRewritten,
		Payload:       []byte("not json"),
	})
	// Returning nil keeps the bus from redelivering a payload that can
	// never parse.
	assert.NoError(t, err)
}

func TestHandleRewritten_EndToEndOverBus(t *testing.T) {
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.Migrate(context.Background()))
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	require.NoError(t, db.SaveAuthor(ctx, &model.Author{
		ID:         "author-1",
		Experience: model.ExperienceGood,
		Tier:       model.TierTop,
		CreatedAt:  time.Now().UTC(),
	}))

	scorer, err := scoring.NewEngine(nil, scoring.DefaultWeights())
	require.NoError(t, err)

	bus := events.NewBus(events.Config{MaxAttempts: 3, RetryDelay: time.Millisecond, QueueSize: 16})
	policy := tier.NewPolicy(db, tier.DefaultConfig())
	orchestrator := NewOrchestrator(db, db, db, scorer, policy, bus)
	orchestrator.Register(bus)
	NewRegistryUpdater(db).Register(bus)

	// Seed enough poor history to open the reassignment gate.
	for i := 0; i < 5; i++ {
		require.NoError(t, db.SaveEvaluation(ctx, &model.Evaluation{
			ID:              uuid.New().String(),
			AuthorID:        "author-1",
			DocumentID:      fmt.Sprintf("doc-%d", i),
			SessionID:       uuid.New().String(),
			QualityScore:    0.4,
			PriorTier:       model.TierTop,
			RecommendedTier: model.TierTop,
			CreatedAt:       time.Now().UTC(),
		}))
	}

	original := &model.Document{
		ID: uuid.New().String(), AuthorID: "author-1", Kind: model.KindOriginal,
		Text: "Pt stable.", CreatedAt: time.Now().UTC(),
	}
	rewritten := &model.Document{
		ID: uuid.New().String(), AuthorID: "author-1", Kind: model.KindRewritten,
		Text: "The patient is stable.", CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, db.SaveDocument(ctx, original))
	require.NoError(t, db.SaveDocument(ctx, rewritten))

	event := events.DocumentRewritten{
		SessionID:           uuid.New().String(),
		AuthorID:            "author-1",
		SourceDocumentID:    original.ID,
		RewrittenDocumentID: rewritten.ID,
	}
	require.NoError(t, bus.Publish(ctx, events.TopicDocumentRewritten, event))
	bus.Close()

	// The evaluation landed and the tier write was applied.
	stored, err := db.GetEvaluationBySession(ctx, event.SessionID)
	require.NoError(t, err)
	assert.True(t, stored.TierChanged)

	currentTier, err := db.GetTier(ctx, "author-1")
	require.NoError(t, err)
	assert.Equal(t, model.TierLow, currentTier)
}

func TestRegistryUpdater_HandleReassigned(t *testing.T) {
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.Migrate(context.Background()))
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	require.NoError(t, db.SaveAuthor(ctx, &model.Author{
		ID:         "author-1",
		Experience: model.ExperienceAverage,
		Tier:       model.TierLow,
		CreatedAt:  time.Now().UTC(),
	}))

	updater := NewRegistryUpdater(db)

	payload, err := json.Marshal(events.TierReassigned{
		AuthorID: "author-1",
		OldTier:  "Low",
		NewTier:  "Mid",
	})
	require.NoError(t, err)

	require.NoError(t, updater.HandleReassigned(ctx, events.Message{Payload: payload}))

	currentTier, err := db.GetTier(ctx, "author-1")
	require.NoError(t, err)
	assert.Equal(t, model.TierMid, currentTier)

	// Replaying the same message is harmless.
	require.NoError(t, updater.HandleReassigned(ctx, events.Message{Payload: payload}))

	t.Run("unknown tier is dropped", func(t *testing.T) {
		bad, err := json.Marshal(events.TierReassigned{AuthorID: "author-1", NewTier: "Platinum"})
		require.NoError(t, err)
		require.NoError(t, updater.HandleReassigned(ctx, events.Message{Payload: bad}))

		currentTier, err := db.GetTier(ctx, "author-1")
		require.NoError(t, err)
		assert.Equal(t, model.TierMid, currentTier)
	})

	t.Run("malformed payload is dropped", func(t *testing.T) {
		require.NoError(t, updater.HandleReassigned(ctx, events.Message{Payload: []byte("{{")}))
	})
}

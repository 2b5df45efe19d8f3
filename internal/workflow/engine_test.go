package workflow

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/scribeflow/scribeflow/internal/common"
	"github.com/scribeflow/scribeflow/internal/events"
	"github.com/scribeflow/scribeflow/internal/gather"
	"github.com/scribeflow/scribeflow/internal/model"
	"github.com/scribeflow/scribeflow/internal/neighbors"
	"github.com/scribeflow/scribeflow/internal/service"
	"github.com/scribeflow/scribeflow/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingPublisher captures published events for assertions.
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

func (r *recordingPublisher) rewrittenEvents() []events.DocumentRewritten {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.DocumentRewritten
	for _, payload := range r.events {
		if event, ok := payload.(events.DocumentRewritten); ok {
			out = append(out, event)
		}
	}
	return out
}

func setupWorkflowTest(t *testing.T) (*storage.SQLiteStorage, *gather.Aggregator, string) {
	t.Helper()

	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.Migrate(context.Background()))
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	doc := &model.Document{
		ID:        uuid.New().String(),
		AuthorID:  "author-1",
		Kind:      model.KindOriginal,
		Text:      "Pt c/o chest pain. Hx of HTN.",
		WordCount: 7,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, db.SaveDocument(ctx, doc))

	aggregator := gather.New(db, db, neighbors.NewIndex(db), db)
	return db, aggregator, doc.ID
}

func fastConfig(useCritique bool) Config {
	return Config{
		UseCritique:       useCritique,
		CompletionTimeout: time.Second,
		Retry: service.RetryOptions{
			MaxAttempts:  2,
			InitialDelay: time.Millisecond,
			MaxDelay:     time.Millisecond,
			Multiplier:   1.0,
		},
	}
}

func TestEngineRun_WithoutCritique(t *testing.T) {
	db, aggregator, docID := setupWorkflowTest(t)
	completer := NewMockCompleter("The patient complains of chest pain and has a history of hypertension.")
	publisher := &recordingPublisher{}

	engine := New(aggregator, completer, db, db, publisher, fastConfig(false))

	result, err := engine.Run(context.Background(), "author-1", docID)
	require.NoError(t, err)

	assert.Equal(t, []string{"context-analysis", "pattern-matching", "draft-generation"}, result.StepsCompleted)
	assert.Equal(t, 1, completer.CallCount())
	assert.Equal(t, model.SessionComplete, result.Session.Status)
	assert.Equal(t, 12, result.WordCount)

	// The rewritten document was persisted as a separate record.
	require.NotEmpty(t, result.Session.RewrittenID)
	rewritten, err := db.GetDocument(context.Background(), result.Session.RewrittenID)
	require.NoError(t, err)
	assert.Equal(t, model.KindRewritten, rewritten.Kind)
	assert.Equal(t, result.GeneratedText, rewritten.Text)

	rewrites := publisher.rewrittenEvents()
	require.Len(t, rewrites, 1)
	assert.Equal(t, result.Session.ID, rewrites[0].SessionID)
	assert.Equal(t, docID, rewrites[0].SourceDocumentID)
	assert.InDelta(t, 0.9, rewrites[0].ConfidenceScore, 1e-9)
}

func TestEngineRun_HistogramFeedsDraftPrompt(t *testing.T) {
	db, aggregator, docID := setupWorkflowTest(t)
	ctx := context.Background()

	patterns := []*model.CorrectionPattern{
		{
			ID:            "p-1",
			AuthorID:      "author-1",
			Category:      model.PatternSpelling,
			OriginalSpan:  "diabetis",
			CorrectedSpan: "diabetes",
			Frequency:     6,
			Confidence:    0.9,
		},
		{
			ID:            "p-2",
			AuthorID:      "author-1",
			Category:      model.PatternSpelling,
			OriginalSpan:  "cleen",
			CorrectedSpan: "clean",
			Frequency:     3,
			Confidence:    0.9,
		},
		{
			ID:            "p-3",
			AuthorID:      "author-1",
			Category:      model.PatternAbbreviation,
			OriginalSpan:  "hx",
			CorrectedSpan: "history",
			Frequency:     4,
			Confidence:    0.8,
		},
	}
	for _, p := range patterns {
		require.NoError(t, db.SavePattern(ctx, p))
	}

	completer := NewMockCompleter("The patient complains of chest pain and has a history of hypertension.")
	publisher := &recordingPublisher{}
	engine := New(aggregator, completer, db, db, publisher, fastConfig(false))

	result, err := engine.Run(ctx, "author-1", docID)
	require.NoError(t, err)

	// The pattern-matching output feeds the draft prompt: per-category
	// frequency totals, heaviest category first.
	calls := completer.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].UserPrompt, "Correction focus areas for this author")
	assert.Contains(t, calls[0].UserPrompt, "- spelling: 9 recorded corrections")
	assert.Contains(t, calls[0].UserPrompt, "- abbreviation: 4 recorded corrections")
	assert.Less(t,
		strings.Index(calls[0].UserPrompt, "- spelling: 9"),
		strings.Index(calls[0].UserPrompt, "- abbreviation: 4"))

	// The step trace carries the same counts.
	session, err := db.GetSession(ctx, result.Session.ID)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(session.Trace), 2)
	assert.Equal(t, "pattern-matching", session.Trace[1].Step)
	assert.Equal(t, "categories=2 abbreviation=4 spelling=9", session.Trace[1].Summary)
}

func TestEngineRun_CritiqueClean(t *testing.T) {
	db, aggregator, docID := setupWorkflowTest(t)
	completer := NewMockCompleter(
		"The patient complains of chest pain and has a history of hypertension.",
		"The draft is accurate and complete.",
	)
	publisher := &recordingPublisher{}

	engine := New(aggregator, completer, db, db, publisher, fastConfig(true))

	result, err := engine.Run(context.Background(), "author-1", docID)
	require.NoError(t, err)

	assert.Equal(t, []string{"context-analysis", "pattern-matching", "draft-generation", "self-critique"}, result.StepsCompleted)
	assert.Equal(t, 2, completer.CallCount())

	rewrites := publisher.rewrittenEvents()
	require.Len(t, rewrites, 1)
	assert.InDelta(t, 0.95, rewrites[0].ConfidenceScore, 1e-9)
}

func TestEngineRun_CritiqueTriggersRefinement(t *testing.T) {
	db, aggregator, docID := setupWorkflowTest(t)
	completer := NewMockCompleter(
		"The patient complains of chest pain.",
		"There is an error: the hypertension history is missing.",
		"The patient complains of chest pain and has a history of hypertension.",
	)
	publisher := &recordingPublisher{}

	engine := New(aggregator, completer, db, db, publisher, fastConfig(true))

	result, err := engine.Run(context.Background(), "author-1", docID)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"context-analysis",
		"pattern-matching",
		"draft-generation",
		"self-critique",
		"refinement",
	}, result.StepsCompleted)
	assert.Equal(t, 3, completer.CallCount())

	// The refined text replaces the draft.
	assert.Contains(t, result.GeneratedText, "hypertension")

	rewrites := publisher.rewrittenEvents()
	require.Len(t, rewrites, 1)
	assert.InDelta(t, 0.85, rewrites[0].ConfidenceScore, 1e-9)
}

func TestEngineRun_CompleterFailureFailsSession(t *testing.T) {
	db, aggregator, docID := setupWorkflowTest(t)
	completer := NewMockCompleter()
	completer.FailWith(errors.New("provider unavailable"))
	publisher := &recordingPublisher{}

	engine := New(aggregator, completer, db, db, publisher, fastConfig(true))

	_, err := engine.Run(context.Background(), "author-1", docID)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrSessionFailed)

	// The retry budget was spent before giving up.
	assert.Equal(t, 2, completer.CallCount())

	// The failed session is persisted with the failing step in its trace.
	sessions, err := db.ListSessions(context.Background(), "author-1", 10)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, model.SessionFailed, sessions[0].Status)
	assert.NotEmpty(t, sessions[0].Error)

	session, err := db.GetSession(context.Background(), sessions[0].ID)
	require.NoError(t, err)
	last := session.Trace[len(session.Trace)-1]
	assert.Equal(t, "draft-generation", last.Step)
	assert.Equal(t, model.StepFailed, last.Status)

	// No rewrite event is emitted for a failed session.
	assert.Empty(t, publisher.rewrittenEvents())
}

func TestEngineRun_EmptyDocumentFails(t *testing.T) {
	db, aggregator, _ := setupWorkflowTest(t)

	ctx := context.Background()
	empty := &model.Document{
		ID:        uuid.New().String(),
		AuthorID:  "author-1",
		Kind:      model.KindOriginal,
		Text:      "   ",
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, db.SaveDocument(ctx, empty))

	completer := NewMockCompleter("should never be called")
	engine := New(aggregator, completer, db, db, &recordingPublisher{}, fastConfig(true))

	_, err := engine.Run(ctx, "author-1", empty.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrSessionFailed)
	assert.ErrorIs(t, err, common.ErrEmptyDocument)
	assert.Zero(t, completer.CallCount())
}

func TestEngineRun_MissingDocumentFails(t *testing.T) {
	db, aggregator, _ := setupWorkflowTest(t)

	completer := NewMockCompleter("should never be called")
	engine := New(aggregator, completer, db, db, &recordingPublisher{}, fastConfig(true))

	_, err := engine.Run(context.Background(), "author-1", "no-such-document")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrSessionFailed)
	assert.Zero(t, completer.CallCount())
}

func TestEngineRun_TracePersistedIncrementally(t *testing.T) {
	db, aggregator, docID := setupWorkflowTest(t)
	completer := NewMockCompleter("Rewritten text body for the stored note.")

	engine := New(aggregator, completer, db, db, &recordingPublisher{}, fastConfig(false))

	result, err := engine.Run(context.Background(), "author-1", docID)
	require.NoError(t, err)

	session, err := db.GetSession(context.Background(), result.Session.ID)
	require.NoError(t, err)
	require.Len(t, session.Trace, 3)
	for _, entry := range session.Trace {
		assert.Equal(t, model.StepCompleted, entry.Status)
		assert.False(t, entry.Timestamp.IsZero())
	}
}

package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/scribeflow/scribeflow/internal/common"
	"github.com/scribeflow/scribeflow/internal/events"
	"github.com/scribeflow/scribeflow/internal/model"
	"github.com/scribeflow/scribeflow/internal/pipeline"
	"github.com/scribeflow/scribeflow/internal/tier"
	"github.com/spf13/cobra"
)

func evaluateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evaluate <session-id>",
		Short: "Score a completed generation session",
		Long: `Score a completed generation session against its source document.

Normally the evaluation happens automatically when a session finishes.
This command covers sessions whose evaluation was lost (for example a
crash between generation and scoring): it re-runs the scorer and the
tier policy for the session. Evaluations are idempotent per session, so
running it against an already-evaluated session just shows the stored
result.`,
		Args: cobra.ExactArgs(1),
		RunE: runEvaluate,
	}

	cmd.Flags().Bool("show", false, "Print the rewritten text alongside the scores")

	return cmd
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	sessionID := args[0]
	show, _ := cmd.Flags().GetBool("show")

	db, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer closeStorage(db)

	session, err := db.GetSession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	if session.Status != model.SessionComplete {
		return fmt.Errorf("session %s is %s, only complete sessions can be evaluated", sessionID, session.Status)
	}
	if session.RewrittenID == "" {
		return fmt.Errorf("session %s has no rewritten document recorded", sessionID)
	}

	scorer, err := buildScorer()
	if err != nil {
		return err
	}

	bus := events.NewBus(events.DefaultConfig())
	policy := tier.NewPolicy(db, tier.DefaultConfig())
	orchestrator := pipeline.NewOrchestrator(db, db, db, scorer, policy, bus)
	pipeline.NewRegistryUpdater(db).Register(bus)

	evaluation, err := orchestrator.Evaluate(ctx, events.DocumentRewritten{
		SessionID:           session.ID,
		AuthorID:            session.AuthorID,
		SourceDocumentID:    session.DocumentID,
		RewrittenDocumentID: session.RewrittenID,
		WordCount:           session.WordCount,
	})
	if err != nil {
		return fmt.Errorf("evaluation failed: %w", err)
	}

	// Drain the bus so a tier reassignment is applied before exit.
	bus.Close()

	slog.Info("Evaluation",
		"evaluation_id", evaluation.ID,
		"session_id", evaluation.SessionID,
		"sentence_edit_rate", fmt.Sprintf("%.3f", evaluation.SentenceEditRate),
		"word_error_rate", fmt.Sprintf("%.3f", evaluation.WordErrorRate),
		"similarity", fmt.Sprintf("%.3f", evaluation.Similarity),
		"quality", fmt.Sprintf("%.3f", evaluation.QualityScore),
		"improvement", fmt.Sprintf("%.3f", evaluation.ImprovementScore),
		"prior_tier", evaluation.PriorTier,
		"recommended_tier", evaluation.RecommendedTier,
		"tier_changed", evaluation.TierChanged)

	if tierState, tierErr := db.GetTier(ctx, session.AuthorID); tierErr == nil {
		slog.Info("Author tier", "author_id", session.AuthorID, "tier", tierState)
	} else if !errors.Is(tierErr, common.ErrNotFound) {
		slog.Warn("Failed to load author tier", "error", tierErr)
	}

	if show {
		fmt.Println(session.GeneratedText)
	}

	return nil
}

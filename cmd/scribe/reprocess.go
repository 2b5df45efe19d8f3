package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/scribeflow/scribeflow/internal/common"
	"github.com/scribeflow/scribeflow/internal/events"
	"github.com/scribeflow/scribeflow/internal/model"
	"github.com/scribeflow/scribeflow/internal/pipeline"
	"github.com/scribeflow/scribeflow/internal/tier"
	"github.com/spf13/cobra"
)

func reprocessCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reprocess",
		Short: "Backfill evaluations for completed sessions",
		Long: `Walk an author's completed generation sessions and evaluate any that
have no stored evaluation. Evaluations are idempotent per session, so
already-scored sessions are skipped.

Useful after a crash between generation and scoring, or after restoring
a database from before the evaluation pipeline existed.`,
		RunE: runReprocess,
	}

	cmd.Flags().StringP("author", "a", "", "Author ID whose sessions to reprocess (required)")
	cmd.Flags().IntP("limit", "n", 100, "Maximum number of sessions to walk, newest first")
	_ = cmd.MarkFlagRequired("author")

	return cmd
}

func runReprocess(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	authorID, _ := cmd.Flags().GetString("author")
	limit, _ := cmd.Flags().GetInt("limit")

	db, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer closeStorage(db)

	sessions, err := db.ListSessions(ctx, authorID, limit)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}
	if len(sessions) == 0 {
		slog.Info("No sessions to reprocess", "author_id", authorID)
		return nil
	}

	scorer, err := buildScorer()
	if err != nil {
		return err
	}

	bus := events.NewBus(events.DefaultConfig())
	policy := tier.NewPolicy(db, tier.DefaultConfig())
	orchestrator := pipeline.NewOrchestrator(db, db, db, scorer, policy, bus)
	pipeline.NewRegistryUpdater(db).Register(bus)

	bar := progressbar.NewOptions(len(sessions),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("Reprocessing sessions..."),
	)

	var evaluated, skipped, failed int
	for _, session := range sessions {
		if err := ctx.Err(); err != nil {
			return err
		}

		if session.Status != model.SessionComplete || session.RewrittenID == "" {
			skipped++
			_ = bar.Add(1)
			continue
		}

		if _, err := db.GetEvaluationBySession(ctx, session.ID); err == nil {
			skipped++
			_ = bar.Add(1)
			continue
		} else if !errors.Is(err, common.ErrNotFound) {
			return fmt.Errorf("failed to check session %s: %w", session.ID, err)
		}

		_, err := orchestrator.Evaluate(ctx, events.DocumentRewritten{
			SessionID:           session.ID,
			AuthorID:            session.AuthorID,
			SourceDocumentID:    session.DocumentID,
			RewrittenDocumentID: session.RewrittenID,
			WordCount:           session.WordCount,
		})
		if err != nil {
			failed++
			slog.Warn("Failed to evaluate session", "session_id", session.ID, "error", err)
		} else {
			evaluated++
		}
		_ = bar.Add(1)
	}
	_ = bar.Finish()
	fmt.Fprintln(os.Stderr)

	// Drain tier reassignments before reporting.
	bus.Close()

	slog.Info("Reprocessing complete",
		"author_id", authorID,
		"evaluated", evaluated,
		"skipped", skipped,
		"failed", failed)

	return nil
}

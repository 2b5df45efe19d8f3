package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/scribeflow/scribeflow/internal/events"
	"github.com/scribeflow/scribeflow/internal/gather"
	"github.com/scribeflow/scribeflow/internal/model"
	"github.com/scribeflow/scribeflow/internal/neighbors"
	"github.com/scribeflow/scribeflow/internal/pipeline"
	"github.com/scribeflow/scribeflow/internal/scoring"
	"github.com/scribeflow/scribeflow/internal/tier"
	"github.com/scribeflow/scribeflow/internal/workflow"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func generateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Rewrite a dictated document",
		Long: `Run the full rewriting workflow for one dictated document.

The document can be an already-stored one (--document), a file on disk
(--file), or inline text (--text). The workflow gathers the author's
correction patterns and historical examples, generates a rewrite with
optional self-critique and refinement, then evaluates the result and
updates the author's quality tier when the bucket policy calls for it.

Examples:
  scribe generate --author dr-chen --file note.txt
  scribe generate --author dr-chen --document 3f9c...
  scribe generate --author dr-chen --text "Pt c/o chest pain." --no-critique`,
		RunE: runGenerate,
	}

	// Flags
	cmd.Flags().StringP("author", "a", "", "Author ID the dictation belongs to (required)")
	cmd.Flags().StringP("document", "d", "", "ID of an already-stored dictated document")
	cmd.Flags().StringP("file", "f", "", "Path to a file containing the dictated text")
	cmd.Flags().StringP("text", "t", "", "Inline dictated text")
	cmd.Flags().Bool("no-critique", false, "Skip the self-critique and refinement steps")
	cmd.Flags().Bool("show", false, "Print the rewritten text to stdout")
	_ = cmd.MarkFlagRequired("author")

	_ = viper.BindPFlag("generation.no_critique", cmd.Flags().Lookup("no-critique"))

	return cmd
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	authorID, _ := cmd.Flags().GetString("author")
	documentID, _ := cmd.Flags().GetString("document")
	filePath, _ := cmd.Flags().GetString("file")
	inlineText, _ := cmd.Flags().GetString("text")
	show, _ := cmd.Flags().GetBool("show")
	noCritique := viper.GetBool("generation.no_critique")

	db, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer closeStorage(db)

	// Resolve the source document: stored id, file, or inline text.
	switch {
	case documentID != "":
		// Already stored, nothing to ingest.
	case filePath != "" || inlineText != "":
		text := inlineText
		if filePath != "" {
			raw, readErr := os.ReadFile(filePath)
			if readErr != nil {
				return fmt.Errorf("failed to read document file: %w", readErr)
			}
			text = string(raw)
		}
		doc := &model.Document{
			ID:        uuid.New().String(),
			AuthorID:  authorID,
			Kind:      model.KindOriginal,
			Text:      strings.TrimSpace(text),
			WordCount: model.CountWords(text),
			CreatedAt: time.Now().UTC(),
		}
		if saveErr := db.SaveDocument(ctx, doc); saveErr != nil {
			return fmt.Errorf("failed to save document: %w", saveErr)
		}
		documentID = doc.ID
		slog.Info("Ingested dictated document", "document_id", doc.ID, "words", doc.WordCount)
	default:
		return fmt.Errorf("one of --document, --file, or --text is required")
	}

	completer, err := createCompleter()
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := completer.Close(); closeErr != nil {
			slog.Error("Failed to close completer", "error", closeErr)
		}
	}()

	// The scorer degrades to a neutral similarity when no embedder is
	// available, so a missing OpenAI key is not fatal here.
	scorer, err := buildScorer()
	if err != nil {
		return err
	}

	bus := events.NewBus(events.DefaultConfig())
	defer bus.Close()

	index := neighbors.NewIndex(db)
	aggregator := gather.New(db, db, index, db)

	policy := tier.NewPolicy(db, tier.DefaultConfig())
	orchestrator := pipeline.NewOrchestrator(db, db, db, scorer, policy, bus)
	orchestrator.Register(bus)
	pipeline.NewRegistryUpdater(db).Register(bus)

	wfConfig := workflow.DefaultConfig()
	wfConfig.UseCritique = !noCritique

	engine := workflow.New(aggregator, completer, db, db, bus, wfConfig)

	slog.Info("Starting generation workflow", "author_id", authorID, "document_id", documentID)

	result, err := engine.Run(ctx, authorID, documentID)
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}

	slog.Info("Generation complete",
		"session_id", result.Session.ID,
		"steps", strings.Join(result.StepsCompleted, ", "),
		"words", result.WordCount)

	// Closing the bus drains in-flight deliveries, so the evaluation and
	// any tier reassignment land before the process exits.
	bus.Close()

	if eval, evalErr := db.GetEvaluationBySession(ctx, result.Session.ID); evalErr == nil {
		slog.Info("Evaluation recorded",
			"quality", fmt.Sprintf("%.3f", eval.QualityScore),
			"improvement", fmt.Sprintf("%.3f", eval.ImprovementScore),
			"tier_changed", eval.TierChanged,
			"recommended_tier", eval.RecommendedTier)
	}

	if show {
		fmt.Println(result.GeneratedText)
	}

	return nil
}

// buildScorer assembles the scoring engine, with or without an embedder
// depending on configuration.
func buildScorer() (*scoring.Engine, error) {
	embedder, err := createEmbedder()
	if err != nil {
		slog.Warn("Embeddings unavailable, semantic similarity will use the neutral default", "reason", err)
		return scoring.NewEngine(nil, scoring.DefaultWeights())
	}
	return scoring.NewEngine(embedder, scoring.DefaultWeights())
}

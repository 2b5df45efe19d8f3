package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/scribeflow/scribeflow/internal/model"
	"github.com/spf13/cobra"
)

func patternsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patterns",
		Short: "Manage correction patterns",
		Long: `View and record an author's correction patterns. Patterns feed the
context gathering step of every generation and the similarity index.`,
	}

	cmd.AddCommand(patternsListCmd())
	cmd.AddCommand(patternsAddCmd())

	return cmd
}

func patternsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List an author's correction patterns",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			authorID, _ := cmd.Flags().GetString("author")
			limit, _ := cmd.Flags().GetInt("limit")

			db, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(db)

			patterns, err := db.GetPatterns(ctx, authorID, limit)
			if err != nil {
				return fmt.Errorf("failed to list patterns: %w", err)
			}

			if len(patterns) == 0 {
				slog.Info("No patterns recorded", "author_id", authorID)
				return nil
			}

			fmt.Printf("%-16s  %-24s  %-24s  %4s  %5s\n", "CATEGORY", "ORIGINAL", "CORRECTED", "FREQ", "CONF")
			for _, p := range patterns {
				fmt.Printf("%-16s  %-24s  %-24s  %4d  %5.2f\n",
					p.Category, truncate(p.OriginalSpan, 24), truncate(p.CorrectedSpan, 24), p.Frequency, p.Confidence)
			}
			return nil
		},
	}

	cmd.Flags().StringP("author", "a", "", "Author ID to list patterns for (required)")
	cmd.Flags().IntP("limit", "n", 50, "Maximum number of patterns to list")
	_ = cmd.MarkFlagRequired("author")

	return cmd
}

func patternsAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a correction pattern for an author",
		Long: `Record one observed correction. The pattern text is embedded and added
to the similarity index when an embeddings key is configured.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			authorID, _ := cmd.Flags().GetString("author")
			original, _ := cmd.Flags().GetString("original")
			corrected, _ := cmd.Flags().GetString("corrected")
			category, _ := cmd.Flags().GetString("category")
			frequency, _ := cmd.Flags().GetInt("frequency")
			confidence, _ := cmd.Flags().GetFloat64("confidence")

			db, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(db)

			pattern := &model.CorrectionPattern{
				ID:            uuid.New().String(),
				AuthorID:      authorID,
				OriginalSpan:  original,
				CorrectedSpan: corrected,
				Category:      model.PatternCategory(category),
				Frequency:     frequency,
				Confidence:    confidence,
				CreatedAt:     time.Now().UTC(),
			}
			if err := pattern.Validate(); err != nil {
				return fmt.Errorf("invalid pattern: %w", err)
			}
			if err := db.SavePattern(ctx, pattern); err != nil {
				return fmt.Errorf("failed to save pattern: %w", err)
			}

			slog.Info("Pattern recorded",
				"pattern_id", pattern.ID,
				"author_id", authorID,
				"category", pattern.Category)

			// Index the pattern when embeddings are available. Generation
			// degrades gracefully without the index, so a missing key only
			// warns.
			embedder, err := createEmbedder()
			if err != nil {
				slog.Warn("Pattern not indexed", "reason", err)
				return nil
			}

			summary := fmt.Sprintf("%s: %q corrected to %q", pattern.Category, original, corrected)
			vector, err := embedder.Embed(ctx, summary)
			if err != nil {
				slog.Warn("Failed to embed pattern, not indexed", "error", err)
				return nil
			}
			if err := db.SavePatternEmbedding(ctx, pattern.ID, summary, vector); err != nil {
				return fmt.Errorf("failed to index pattern: %w", err)
			}

			slog.Info("Pattern indexed", "pattern_id", pattern.ID)
			return nil
		},
	}

	cmd.Flags().StringP("author", "a", "", "Author ID the correction belongs to (required)")
	cmd.Flags().String("original", "", "The span as dictated (required)")
	cmd.Flags().String("corrected", "", "The span after correction (required)")
	cmd.Flags().String("category", string(model.PatternGeneral), "Pattern category (spelling, grammar, punctuation, capitalization, word-order, abbreviation, general)")
	cmd.Flags().Int("frequency", 1, "How many times the correction has been observed")
	cmd.Flags().Float64("confidence", 0.8, "Confidence in the pattern, 0 to 1")
	_ = cmd.MarkFlagRequired("author")
	_ = cmd.MarkFlagRequired("original")
	_ = cmd.MarkFlagRequired("corrected")

	return cmd
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}

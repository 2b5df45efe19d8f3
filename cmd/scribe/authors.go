package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/scribeflow/scribeflow/internal/model"
	"github.com/spf13/cobra"
)

func authorsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "authors",
		Short: "Manage author profiles",
		Long:  `Register authors, view their quality tiers, and review their recent evaluations.`,
	}

	cmd.AddCommand(authorsListCmd())
	cmd.AddCommand(authorsAddCmd())
	cmd.AddCommand(authorsShowCmd())

	return cmd
}

func authorsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all registered authors",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			db, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(db)

			authors, err := db.ListAuthors(ctx)
			if err != nil {
				return fmt.Errorf("failed to list authors: %w", err)
			}

			if len(authors) == 0 {
				slog.Info("No authors registered")
				return nil
			}

			fmt.Printf("%-20s  %-24s  %-16s  %-18s  %-4s\n", "ID", "NAME", "SPECIALTY", "EXPERIENCE", "TIER")
			for _, a := range authors {
				fmt.Printf("%-20s  %-24s  %-16s  %-18s  %-4s\n",
					a.ID, a.Name, a.Specialty, a.Experience, a.Tier)
			}
			return nil
		},
	}
}

func authorsAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <author-id>",
		Short: "Register a new author",
		Long: `Register a new author profile. New authors start in the Low tier and
move up as evaluations accumulate.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			name, _ := cmd.Flags().GetString("name")
			specialty, _ := cmd.Flags().GetString("specialty")
			experience, _ := cmd.Flags().GetString("experience")

			level := model.ExperienceLevel(experience)
			if !level.Valid() {
				return fmt.Errorf("invalid experience level: %s (use Excellent, Good, Average, Poor, or NeedsImprovement)", experience)
			}

			db, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(db)

			author := &model.Author{
				ID:         args[0],
				Name:       name,
				Specialty:  specialty,
				Experience: level,
				Tier:       model.TierLow,
				CreatedAt:  time.Now().UTC(),
			}
			if err := db.SaveAuthor(ctx, author); err != nil {
				return fmt.Errorf("failed to save author: %w", err)
			}

			slog.Info("Author registered", "author_id", author.ID, "tier", author.Tier)
			return nil
		},
	}

	cmd.Flags().String("name", "", "Display name")
	cmd.Flags().String("specialty", "", "Specialty or department")
	cmd.Flags().String("experience", string(model.ExperienceAverage), "Experience level (Excellent, Good, Average, Poor, NeedsImprovement)")

	return cmd
}

func authorsShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <author-id>",
		Short: "Show an author with their recent evaluations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			limit, _ := cmd.Flags().GetInt("limit")

			db, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(db)

			author, err := db.GetAuthor(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to load author: %w", err)
			}

			fmt.Printf("Author:     %s\n", author.ID)
			fmt.Printf("Name:       %s\n", author.Name)
			fmt.Printf("Specialty:  %s\n", author.Specialty)
			fmt.Printf("Experience: %s\n", author.Experience)
			fmt.Printf("Tier:       %s\n", author.Tier)

			evaluations, err := db.ListRecentEvaluations(ctx, author.ID, limit)
			if err != nil {
				return fmt.Errorf("failed to list evaluations: %w", err)
			}
			if len(evaluations) == 0 {
				fmt.Println("\nNo evaluations yet.")
				return nil
			}

			fmt.Printf("\n%-36s  %7s  %11s  %-4s→%-4s\n", "EVALUATION", "QUALITY", "IMPROVEMENT", "FROM", "TO")
			for _, e := range evaluations {
				fmt.Printf("%-36s  %7.3f  %11.3f  %-4s→%-4s\n",
					e.ID, e.QualityScore, e.ImprovementScore, e.PriorTier, e.RecommendedTier)
			}
			return nil
		},
	}

	cmd.Flags().IntP("limit", "n", 10, "Maximum number of evaluations to show")

	return cmd
}

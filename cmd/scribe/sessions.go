package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

func sessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect generation sessions",
		Long:  `List recent generation sessions and inspect their step traces.`,
	}

	cmd.AddCommand(sessionsListCmd())
	cmd.AddCommand(sessionsShowCmd())

	return cmd
}

func sessionsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent sessions for an author",
		RunE: func(cmd *cobra.Command, _ []string) error {
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
				slog.Info("No sessions found", "author_id", authorID)
				return nil
			}

			fmt.Printf("%-36s  %-8s  %6s  %-19s\n", "SESSION", "STATUS", "WORDS", "CREATED")
			for _, s := range sessions {
				fmt.Printf("%-36s  %-8s  %6d  %-19s\n",
					s.ID, s.Status, s.WordCount, s.CreatedAt.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}

	cmd.Flags().StringP("author", "a", "", "Author ID to list sessions for (required)")
	cmd.Flags().IntP("limit", "n", 20, "Maximum number of sessions to list")
	_ = cmd.MarkFlagRequired("author")

	return cmd
}

func sessionsShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show one session with its step trace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			showText, _ := cmd.Flags().GetBool("text")

			db, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(db)

			session, err := db.GetSession(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to load session: %w", err)
			}

			fmt.Printf("Session:   %s\n", session.ID)
			fmt.Printf("Author:    %s\n", session.AuthorID)
			fmt.Printf("Document:  %s\n", session.DocumentID)
			if session.RewrittenID != "" {
				fmt.Printf("Rewritten: %s\n", session.RewrittenID)
			}
			fmt.Printf("Status:    %s\n", session.Status)
			fmt.Printf("Words:     %d\n", session.WordCount)
			if session.Error != "" {
				fmt.Printf("Error:     %s\n", session.Error)
			}

			fmt.Println("\nTrace:")
			for i, entry := range session.Trace {
				fmt.Printf("  %d. [%s] %-18s %s\n", i+1, entry.Status, entry.Step, entry.Summary)
			}

			if showText && session.GeneratedText != "" {
				fmt.Println("\nGenerated text:")
				fmt.Println(session.GeneratedText)
			}
			return nil
		},
	}

	cmd.Flags().Bool("text", false, "Include the generated text")

	return cmd
}

package cmd

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/docsage/docsage/internal/session"
)

var runsCmd = &cobra.Command{
	Use:   "runs <user>",
	Short: "List a user's conversation runs",
	Args:  cobra.ExactArgs(1),
	RunE:  runRuns,
}

var transcriptCmd = &cobra.Command{
	Use:   "transcript <run-id>",
	Short: "Print a run's transcript",
	Args:  cobra.ExactArgs(1),
	RunE:  runTranscript,
}

func init() {
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(transcriptCmd)
}

func runRuns(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	runs, err := a.Sessions.ListRuns(ctx, args[0])
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Printf("No runs for user %q\n", args[0])
		return nil
	}

	for _, run := range runs {
		fmt.Printf("%s  %s\n", run.ID, run.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func runTranscript(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	runID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid run id %q: %w", args[0], err)
	}

	a, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	turns, err := a.Sessions.GetTranscript(ctx, runID)
	if err != nil {
		return err
	}

	for _, turn := range turns {
		prefix := "You"
		if turn.Role == session.RoleAssistant {
			prefix = "Assistant"
		}
		fmt.Printf("[%d] %s: %s\n", turn.Seq, prefix, turn.Content)
	}
	return nil
}

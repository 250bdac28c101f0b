package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/spf13/cobra"

	"github.com/docsage/docsage/internal/assistant"
)

var (
	askUser    string
	askNewRun  bool
	askStream  bool
	askSources bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a single question",
	Long: `Ask resolves the user's conversation run (resuming an existing one unless
--new is given), retrieves relevant knowledge, and prints the answer. The
exchange is recorded in the run's transcript.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askUser, "user", "default", "user the conversation belongs to")
	askCmd.Flags().BoolVar(&askNewRun, "new", false, "start a new run instead of resuming")
	askCmd.Flags().BoolVar(&askStream, "stream", false, "print the answer as it is generated")
	askCmd.Flags().BoolVar(&askSources, "sources", false, "list the source chunks that grounded the answer")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	res, err := a.Engine.ResolveSession(ctx, askUser, askNewRun)
	if err != nil {
		return err
	}
	if res.Resumed {
		fmt.Printf("Continuing run %s\n", res.RunID)
	} else {
		fmt.Printf("Started new run %s\n", res.RunID)
	}

	question := strings.Join(args, " ")

	if askStream {
		answer, err := a.Engine.AskStream(ctx, res.RunID, askUser, question,
			func(_ context.Context, chunk *ai.ModelResponseChunk) error {
				fmt.Print(chunk.Text())
				return nil
			})
		if err != nil {
			return err
		}
		fmt.Println()
		printSources(answer)
		return nil
	}

	answer, err := a.Engine.Ask(ctx, res.RunID, askUser, question)
	if err != nil {
		return err
	}
	fmt.Println(answer.Text)
	printSources(answer)
	return nil
}

// printSources lists grounding chunks when --sources is set.
func printSources(answer *assistant.Answer) {
	if !askSources || len(answer.Sources) == 0 {
		return
	}
	fmt.Println("\nSources:")
	for i, src := range answer.Sources {
		fmt.Printf("  [%d] %s (chunk %d, similarity %.3f)\n",
			i+1, src.Chunk.SourceURI, src.Chunk.Seq, src.Similarity)
	}
}

package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/spf13/cobra"

	"github.com/docsage/docsage/internal/assistant"
)

var (
	chatUser   string
	chatNewRun bool
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive conversation",
	Long: `Chat resolves the user's run once and then reads questions from stdin,
streaming each answer. The whole conversation is recorded in one run.

Type "exit", "quit", or press Ctrl+D to leave.`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatUser, "user", "default", "user the conversation belongs to")
	chatCmd.Flags().BoolVar(&chatNewRun, "new", false, "start a new run instead of resuming")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	res, err := a.Engine.ResolveSession(ctx, chatUser, chatNewRun)
	if err != nil {
		return err
	}
	if res.Resumed {
		fmt.Printf("Continuing run %s\n", res.RunID)
	} else {
		fmt.Printf("Started new run %s\n", res.RunID)
	}
	fmt.Println(`Type your question, or "exit" to leave.`)

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("\n> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Println()
				return nil
			}
			return fmt.Errorf("reading input: %w", err)
		}

		question := strings.TrimSpace(line)
		switch question {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		_, err = a.Engine.AskStream(ctx, res.RunID, chatUser, question,
			func(_ context.Context, chunk *ai.ModelResponseChunk) error {
				fmt.Print(chunk.Text())
				return nil
			})
		if err != nil {
			if errors.Is(err, assistant.ErrEmptyQuery) {
				continue
			}
			fmt.Fprintf(os.Stderr, "\nerror: %v\n", err)
			continue
		}
		fmt.Println()
	}
}

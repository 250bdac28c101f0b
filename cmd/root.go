// Package cmd implements the docsage command line interface.
// Commands stay thin: they load configuration, assemble the application,
// invoke one operation, and render the result.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/docsage/docsage/internal/app"
	"github.com/docsage/docsage/internal/config"
	"github.com/docsage/docsage/internal/log"
)

var debugLogging bool

var rootCmd = &cobra.Command{
	Use:   "docsage",
	Short: "A document assistant that answers questions from your own sources",
	Long: `docsage ingests documents (PDF, HTML, plain text) into a PostgreSQL
knowledge base and answers questions grounded in them, keeping durable
per-user conversation history.

Running docsage with no arguments starts an interactive chat.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd, args)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugLogging, "debug", false, "enable debug logging")
}

// newLogger builds the process logger. DEBUG env var or --debug enables
// debug level.
func newLogger() log.Logger {
	level := slog.LevelInfo
	if debugLogging || os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	return log.New(log.Config{Level: level})
}

// setupApp loads configuration and assembles the application.
// The caller must Close() the returned App.
func setupApp(ctx context.Context) (*app.App, error) {
	logger := newLogger()
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("initializing application: %w", err)
	}
	return a, nil
}

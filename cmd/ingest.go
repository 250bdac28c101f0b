package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	ingestCollection string
	ingestRecreate   bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [uri...]",
	Short: "Load documents into the knowledge base",
	Long: `Ingest downloads each source (http/https URL or local file path), splits
it into chunks, embeds them, and writes them to the knowledge collection.

With no arguments the configured source_uris are ingested. Re-running
ingest on the same sources overwrites the existing chunks instead of
duplicating them.`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestCollection, "collection", "", "target collection (default: configured collection)")
	ingestCmd.Flags().BoolVar(&ingestRecreate, "recreate", false, "delete the collection before ingesting")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	uris := args
	if len(uris) == 0 {
		uris = a.Config.SourceURIs
	}
	if len(uris) == 0 {
		return fmt.Errorf("no sources given and no source_uris configured")
	}

	collection := ingestCollection
	if collection == "" {
		collection = a.Config.Collection
	}

	if ingestRecreate {
		if err := a.Knowledge.DeleteCollection(ctx, collection); err != nil {
			return fmt.Errorf("recreating collection %q: %w", collection, err)
		}
		fmt.Printf("Cleared collection %q\n", collection)
	}

	report, err := a.Ingestor.Ingest(ctx, uris, collection)
	if err != nil {
		return err
	}

	fmt.Printf("Ingested %d source(s) into %q: %d chunk(s) in %s\n",
		report.SourcesLoaded, collection, report.ChunksWritten, report.Duration.Round(time.Millisecond))
	for _, f := range report.Failures {
		fmt.Printf("  failed: %s (%v)\n", f.URI, f.Err)
	}
	return nil
}

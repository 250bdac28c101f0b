package knowledge

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"
)

// IngestorStore is the storage interface Ingestor needs.
// knowledge.Store satisfies it; tests substitute a mock.
type IngestorStore interface {
	Add(ctx context.Context, chunk Chunk) error
}

// SourceError records a single source that failed to ingest.
type SourceError struct {
	URI string
	Err error
}

func (e SourceError) Error() string {
	return fmt.Sprintf("ingesting %s: %v", e.URI, e.Err)
}

func (e SourceError) Unwrap() error { return e.Err }

// Report summarizes one ingestion pass.
type Report struct {
	SourcesLoaded int
	SourcesFailed int
	ChunksWritten int
	Failures      []SourceError
	Duration      time.Duration
}

// Ingestor loads source documents, chunks them, and writes embedded chunks
// into a collection.
type Ingestor struct {
	store   IngestorStore
	loader  Loader
	chunker *Chunker
	logger  *slog.Logger
}

// NewIngestor creates an Ingestor.
func NewIngestor(store IngestorStore, loader Loader, chunker *Chunker, logger *slog.Logger) *Ingestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{
		store:   store,
		loader:  loader,
		chunker: chunker,
		logger:  logger,
	}
}

// Ingest loads every URI, splits it into chunks, and upserts them into the
// named collection. Chunk IDs are deterministic over (collection, uri, seq,
// chunking config), so re-ingesting the same sources with the same
// configuration overwrites rather than duplicates.
//
// A failing source aborts only itself; the rest proceed. The returned Report
// always describes the full pass. An error is returned only when every
// source failed.
func (ing *Ingestor) Ingest(ctx context.Context, uris []string, collection string) (*Report, error) {
	start := time.Now()
	report := &Report{}

	for _, uri := range uris {
		written, err := ing.ingestSource(ctx, uri, collection)
		if err != nil {
			report.SourcesFailed++
			report.Failures = append(report.Failures, SourceError{URI: uri, Err: err})
			ing.logger.Error("source ingestion failed",
				"uri", uri,
				"collection", collection,
				"error", err)
			continue
		}
		report.SourcesLoaded++
		report.ChunksWritten += written
	}

	report.Duration = time.Since(start)
	ing.logger.Info("ingestion pass complete",
		"collection", collection,
		"sources_loaded", report.SourcesLoaded,
		"sources_failed", report.SourcesFailed,
		"chunks_written", report.ChunksWritten,
		"duration", report.Duration)

	if len(uris) > 0 && report.SourcesLoaded == 0 {
		return report, fmt.Errorf("all %d sources failed to ingest", len(uris))
	}
	return report, nil
}

// ingestSource loads one source and writes its chunks, returning the count.
func (ing *Ingestor) ingestSource(ctx context.Context, uri, collection string) (int, error) {
	text, err := ing.loader.Load(ctx, uri)
	if err != nil {
		return 0, err
	}

	pieces := ing.chunker.Split(text)
	if len(pieces) == 0 {
		return 0, fmt.Errorf("%w: %s: no chunks produced", ErrSourceUnparseable, uri)
	}

	now := time.Now()
	for seq, content := range pieces {
		chunk := Chunk{
			ID:         ing.chunkID(collection, uri, seq),
			Collection: collection,
			SourceURI:  uri,
			Seq:        seq,
			Content:    content,
			CreatedAt:  now,
		}
		if err := ing.store.Add(ctx, chunk); err != nil {
			return 0, fmt.Errorf("writing chunk %d: %w", seq, err)
		}
	}
	return len(pieces), nil
}

// chunkID derives a stable chunk identifier. Chunking configuration is part
// of the hash so a size/overlap change produces a fresh set of IDs instead
// of partially overwriting the old one.
func (ing *Ingestor) chunkID(collection, uri string, seq int) string {
	h := sha256.Sum256(fmt.Appendf(nil, "%s|%s|%d|%d|%d",
		collection, uri, seq, ing.chunker.size, ing.chunker.overlap))
	return "chunk_" + hex.EncodeToString(h[:16])
}

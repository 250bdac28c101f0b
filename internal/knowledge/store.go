// Package knowledge implements the vector-backed knowledge base: ingesting
// source documents into embedded chunks and searching them by similarity.
package knowledge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/pgvector/pgvector-go"
)

// searchTimeout bounds a single similarity search, embedding included.
const searchTimeout = 10 * time.Second

// Store manages knowledge chunks with vector search over PostgreSQL+pgvector.
// Content is embedded with the configured embedder on write, and queries are
// embedded with the same embedder on read.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	queries  Querier
	embedder ai.Embedder
	logger   *slog.Logger
}

// New creates a Store.
//
// Example (production):
//
//	store := knowledge.New(knowledge.NewPgxQuerier(pool), embedder, logger)
//
// Example (testing):
//
//	store := knowledge.New(mockQuerier, stubEmbedder, log.NewNop())
func New(querier Querier, embedder ai.Embedder, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		queries:  querier,
		embedder: embedder,
		logger:   logger,
	}
}

// Add embeds a chunk's content and upserts it into its collection.
// Upsert semantics make re-adding the same chunk ID idempotent.
func (s *Store) Add(ctx context.Context, chunk Chunk) error {
	embedding, err := s.embedText(ctx, chunk.Content)
	if err != nil {
		return fmt.Errorf("embedding chunk %q: %w", chunk.ID, err)
	}

	err = s.queries.UpsertChunk(ctx, UpsertChunkParams{
		ID:         chunk.ID,
		Collection: chunk.Collection,
		SourceURI:  chunk.SourceURI,
		Seq:        int32(chunk.Seq), // #nosec G115 -- seq bounded by chunk count per document
		Content:    chunk.Content,
		Embedding:  embedding,
	})
	if err != nil {
		return err
	}

	s.logger.Debug("added chunk",
		"id", chunk.ID,
		"collection", chunk.Collection,
		"content_length", len(chunk.Content))
	return nil
}

// Search embeds the query and returns the k nearest chunks in the collection,
// ordered by descending similarity. An empty collection yields empty results,
// not an error.
func (s *Store) Search(ctx context.Context, collection, query string, k int) ([]Result, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidTopK, k)
	}

	queryCtx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	embedding, err := s.embedText(queryCtx, query)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("query embedding timeout: %w", err)
		}
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	rows, err := s.queries.SearchChunks(queryCtx, SearchChunksParams{
		Collection:     collection,
		QueryEmbedding: embedding,
		ResultLimit:    int32(k), // #nosec G115 -- k validated above, bounded by config
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("search query timeout: %w", err)
		}
		return nil, fmt.Errorf("search failed: %w", err)
	}

	results := make([]Result, 0, len(rows))
	for _, row := range rows {
		var createdAt time.Time
		if row.CreatedAt.Valid {
			createdAt = row.CreatedAt.Time
		}
		results = append(results, Result{
			Chunk: Chunk{
				ID:         row.ID,
				Collection: collection,
				SourceURI:  row.SourceURI,
				Seq:        int(row.Seq),
				Content:    row.Content,
				CreatedAt:  createdAt,
			},
			Similarity: row.Similarity,
		})
	}

	s.logger.Debug("searched collection",
		"collection", collection,
		"k", k,
		"results", len(results))
	return results, nil
}

// Count returns the number of chunks in a collection.
func (s *Store) Count(ctx context.Context, collection string) (int64, error) {
	return s.queries.CountChunks(ctx, collection)
}

// DeleteCollection removes every chunk in a collection.
// Used for wholesale corpus rebuilds.
func (s *Store) DeleteCollection(ctx context.Context, collection string) error {
	deleted, err := s.queries.DeleteCollection(ctx, collection)
	if err != nil {
		return err
	}
	s.logger.Debug("deleted collection", "collection", collection, "chunks", deleted)
	return nil
}

// embedText runs one text through the embedder and returns a pgvector value.
func (s *Store) embedText(ctx context.Context, text string) (*pgvector.Vector, error) {
	resp, err := s.embedder.Embed(ctx, &ai.EmbedRequest{
		Input: []*ai.Document{
			{Content: []*ai.Part{ai.NewTextPart(text)}},
		},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return nil, errors.New("embedder returned no embedding")
	}

	v := pgvector.NewVector(resp.Embeddings[0].Embedding)
	return &v, nil
}

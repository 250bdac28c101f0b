package knowledge

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// Querier defines the database operations Store needs on the chunks table.
// Interfaces are defined by the consumer, not the provider, so Store can be
// unit-tested against a mock.
type Querier interface {
	// UpsertChunk inserts or replaces a chunk by ID.
	UpsertChunk(ctx context.Context, arg UpsertChunkParams) error

	// SearchChunks returns the k nearest chunks in a collection by cosine
	// distance to the query embedding, closest first.
	SearchChunks(ctx context.Context, arg SearchChunksParams) ([]SearchChunksRow, error)

	// CountChunks counts chunks in a collection.
	CountChunks(ctx context.Context, collection string) (int64, error)

	// DeleteCollection removes all chunks in a collection, returning the
	// number deleted.
	DeleteCollection(ctx context.Context, collection string) (int64, error)
}

// UpsertChunkParams are the parameters for Querier.UpsertChunk.
type UpsertChunkParams struct {
	ID         string
	Collection string
	SourceURI  string
	Seq        int32
	Content    string
	Embedding  *pgvector.Vector
}

// SearchChunksParams are the parameters for Querier.SearchChunks.
type SearchChunksParams struct {
	Collection     string
	QueryEmbedding *pgvector.Vector
	ResultLimit    int32
}

// SearchChunksRow is one row returned by Querier.SearchChunks.
type SearchChunksRow struct {
	ID         string
	SourceURI  string
	Seq        int32
	Content    string
	Similarity float32
	CreatedAt  pgtype.Timestamptz
}

// PgxQuerier implements Querier with hand-written SQL over a pgx pool.
// The pool must have pgvector types registered (see app.Setup).
type PgxQuerier struct {
	pool *pgxpool.Pool
}

// NewPgxQuerier creates a PgxQuerier backed by pool.
func NewPgxQuerier(pool *pgxpool.Pool) *PgxQuerier {
	return &PgxQuerier{pool: pool}
}

func (q *PgxQuerier) UpsertChunk(ctx context.Context, arg UpsertChunkParams) error {
	_, err := q.pool.Exec(ctx, `
		INSERT INTO chunks (id, collection, source_uri, seq, content, embedding)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			collection = EXCLUDED.collection,
			source_uri = EXCLUDED.source_uri,
			seq        = EXCLUDED.seq,
			content    = EXCLUDED.content,
			embedding  = EXCLUDED.embedding`,
		arg.ID, arg.Collection, arg.SourceURI, arg.Seq, arg.Content, arg.Embedding,
	)
	if err != nil {
		return fmt.Errorf("upserting chunk %q: %w", arg.ID, err)
	}
	return nil
}

func (q *PgxQuerier) SearchChunks(ctx context.Context, arg SearchChunksParams) ([]SearchChunksRow, error) {
	rows, err := q.pool.Query(ctx, `
		SELECT id, source_uri, seq, content,
		       1 - (embedding <=> $2) AS similarity,
		       created_at
		FROM chunks
		WHERE collection = $1
		ORDER BY embedding <=> $2
		LIMIT $3`,
		arg.Collection, arg.QueryEmbedding, arg.ResultLimit,
	)
	if err != nil {
		return nil, fmt.Errorf("searching chunks: %w", err)
	}
	defer rows.Close()

	var results []SearchChunksRow
	for rows.Next() {
		var r SearchChunksRow
		if err := rows.Scan(&r.ID, &r.SourceURI, &r.Seq, &r.Content, &r.Similarity, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning chunk row: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading chunk rows: %w", err)
	}
	return results, nil
}

func (q *PgxQuerier) CountChunks(ctx context.Context, collection string) (int64, error) {
	var count int64
	err := q.pool.QueryRow(ctx,
		`SELECT count(*) FROM chunks WHERE collection = $1`, collection,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return count, nil
}

func (q *PgxQuerier) DeleteCollection(ctx context.Context, collection string) (int64, error) {
	tag, err := q.pool.Exec(ctx,
		`DELETE FROM chunks WHERE collection = $1`, collection)
	if err != nil {
		return 0, fmt.Errorf("deleting collection %q: %w", collection, err)
	}
	return tag.RowsAffected(), nil
}

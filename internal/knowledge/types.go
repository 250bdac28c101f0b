package knowledge

import (
	"errors"
	"time"
)

// Sentinel errors for source loading and ingestion.
// Check with errors.Is().
var (
	// ErrSourceUnreachable indicates a source URI could not be fetched.
	ErrSourceUnreachable = errors.New("source unreachable")

	// ErrSourceUnparseable indicates a fetched source yielded no usable text.
	ErrSourceUnparseable = errors.New("source unparseable")

	// ErrInvalidTopK indicates a non-positive k was passed to Search.
	ErrInvalidTopK = errors.New("top-k must be positive")
)

// Chunk is one retrievable span of source-document text.
// Chunks are immutable once ingested; re-ingestion upserts by ID.
type Chunk struct {
	ID         string // deterministic, unique within collection
	Collection string
	SourceURI  string
	Seq        int // position within the source document
	Content    string
	CreatedAt  time.Time
}

// Result is a single search result with its cosine similarity score.
type Result struct {
	Chunk      Chunk
	Similarity float32 // 0-1, higher is closer
}

package knowledge

import (
	"fmt"
	"strings"
)

// Chunker splits extracted document text into overlapping windows sized for
// the embedder's input budget. Overlap keeps semantic units that straddle a
// window boundary retrievable from at least one chunk.
type Chunker struct {
	size    int // max runes per chunk
	overlap int // runes carried over between consecutive chunks
}

// NewChunker creates a Chunker. size must be positive and overlap must be in
// [0, size).
func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap must be in [0, %d), got %d", size, overlap)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Split returns the chunks of text in document order. Windows prefer to end
// at a paragraph, newline, or sentence boundary near the size limit rather
// than mid-word. Whitespace-only input yields no chunks.
func (c *Chunker) Split(text string) []string {
	runes := []rune(text)
	var chunks []string

	start := 0
	for start < len(runes) {
		end := start + c.size
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = c.adjustBoundary(runes, start, end)
		}

		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		if end == len(runes) {
			break
		}
		next := end - c.overlap
		if next <= start {
			next = end // guarantee forward progress
		}
		start = next
	}

	return chunks
}

// adjustBoundary scans backwards from end for a natural break point, looking
// at most a fifth of the window back. Preference order: blank line, newline,
// sentence end, word break.
func (c *Chunker) adjustBoundary(runes []rune, start, end int) int {
	limit := end - c.size/5
	if limit < start+1 {
		limit = start + 1
	}

	bestWord := -1
	bestSentence := -1
	for i := end - 1; i >= limit; i-- {
		switch runes[i] {
		case '\n':
			if i > 0 && runes[i-1] == '\n' {
				return i + 1 // blank line: strongest boundary
			}
			if bestSentence < 0 {
				bestSentence = i + 1
			}
		case '.', '!', '?':
			if bestSentence < 0 && i+1 < end && runes[i+1] == ' ' {
				bestSentence = i + 2
			}
		case ' ', '\t':
			if bestWord < 0 {
				bestWord = i + 1
			}
		}
	}

	if bestSentence > 0 {
		return bestSentence
	}
	if bestWord > 0 {
		return bestWord
	}
	return end
}

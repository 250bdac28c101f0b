package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/uuid"

	"github.com/docsage/docsage/internal/knowledge"
	"github.com/docsage/docsage/internal/session"
)

// fallbackResponse is returned when the model produces an empty response.
const fallbackResponse = "I apologize, but I couldn't generate a response. Please try rephrasing your question."

// systemPrompt is the engine's persona. Retrieved context is appended per
// request.
const systemPrompt = `You are a helpful assistant that answers questions using the reference material provided below.
Ground your answers in the reference excerpts. When the excerpts do not cover the question, say so rather than inventing details.
Answer in the same language as the user's question.`

// StreamCallback is called for each fragment of a streaming response.
// The fragment contains partial content that can be displayed immediately.
// Return an error to stop receiving fragments.
type StreamCallback func(ctx context.Context, chunk *ai.ModelResponseChunk) error

// Answer is the complete result of one ask.
type Answer struct {
	Text    string             // Model's final text output
	Sources []knowledge.Result // Chunks that grounded the answer
}

// Ask answers a query within a run (non-streaming).
// This is a convenience wrapper around AskStream with nil callback.
func (e *Engine) Ask(ctx context.Context, runID uuid.UUID, userID, query string) (*Answer, error) {
	return e.AskStream(ctx, runID, userID, query, nil)
}

// AskStream answers a query within a run, optionally streaming fragments.
//
// An empty or whitespace-only query fails with ErrEmptyQuery before any
// retrieval, generation, or persistence happens. On success the user query
// and assistant response are appended to the run's transcript in one
// transaction; on any failure nothing is persisted and the error is an
// *AskError carrying the run and user. Concurrent asks on the same run are
// serialized; the transcript reflects them in some sequential order.
//
// When callback is non-nil it receives each response fragment as generated;
// the concatenation of fragments equals the returned Answer.Text.
func (e *Engine) AskStream(ctx context.Context, runID uuid.UUID, userID, query string, callback StreamCallback) (*Answer, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	release := e.locks.acquire(runID)
	defer release()

	e.logger.Debug("asking",
		"run_id", runID,
		"user_id", userID,
		"query_length", len(query),
		"streaming", callback != nil)

	transcript, err := e.sessions.GetTranscript(ctx, runID)
	if err != nil {
		return nil, askError(runID, userID, fmt.Errorf("loading transcript: %w", err))
	}

	results, err := e.searcher.Search(ctx, e.collection, query, e.topK)
	if err != nil {
		return nil, askError(runID, userID, fmt.Errorf("retrieving context: %w", err))
	}

	messages := e.windowHistory(historyMessages(transcript))
	messages = append(messages, ai.NewUserMessage(ai.NewTextPart(query)))

	opts := []ai.GenerateOption{
		ai.WithModelName(e.modelName),
		ai.WithSystem(composeSystem(results)),
		ai.WithMessages(messages...),
	}

	var streamed bool
	if callback != nil {
		opts = append(opts, ai.WithStreaming(func(ctx context.Context, chunk *ai.ModelResponseChunk) error {
			streamed = true
			return callback(ctx, chunk)
		}))
	}

	resp, err := e.generateWithRetry(ctx, opts, &streamed)
	if err != nil {
		return nil, askError(runID, userID, err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		e.logger.Warn("model returned empty response", "run_id", runID)
		text = fallbackResponse
	}

	contextIDs := make([]string, 0, len(results))
	for _, r := range results {
		contextIDs = append(contextIDs, r.Chunk.ID)
	}

	// One transaction for both turns: a failure here leaves the transcript
	// exactly as it was, never with a dangling user turn.
	err = e.sessions.AppendTurns(ctx, runID,
		&session.Turn{Role: session.RoleUser, Content: query},
		&session.Turn{Role: session.RoleAssistant, Content: text, ContextIDs: contextIDs},
	)
	if err != nil {
		return nil, askError(runID, userID, fmt.Errorf("recording exchange: %w", err))
	}

	return &Answer{Text: text, Sources: results}, nil
}

// historyMessages converts a stored transcript into model messages.
func historyMessages(transcript []*session.Turn) []*ai.Message {
	msgs := make([]*ai.Message, 0, len(transcript))
	for _, turn := range transcript {
		switch turn.Role {
		case session.RoleUser:
			msgs = append(msgs, ai.NewUserMessage(ai.NewTextPart(turn.Content)))
		case session.RoleAssistant:
			msgs = append(msgs, ai.NewModelMessage(ai.NewTextPart(turn.Content)))
		}
	}
	return msgs
}

// composeSystem builds the system prompt with numbered reference excerpts.
// With no retrieval results the persona alone is used.
func composeSystem(results []knowledge.Result) string {
	if len(results) == 0 {
		return systemPrompt
	}

	var b strings.Builder
	b.WriteString(systemPrompt)
	b.WriteString("\n\nReference material:\n")
	for i, r := range results {
		fmt.Fprintf(&b, "\n[%d] (source: %s)\n%s\n", i+1, r.Chunk.SourceURI, r.Chunk.Content)
	}
	return b.String()
}

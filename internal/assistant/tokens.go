package assistant

import (
	"slices"
	"unicode/utf8"

	"github.com/firebase/genkit/go/ai"
)

// TokenBudget manages context window limits for conversation history.
type TokenBudget struct {
	MaxHistoryTokens int // Maximum tokens for conversation history
	MaxInputTokens   int // Maximum tokens for user input
	ReservedTokens   int // Reserved for system prompt and response
}

// DefaultTokenBudget returns conservative defaults for Gemini models.
func DefaultTokenBudget() TokenBudget {
	return TokenBudget{
		MaxHistoryTokens: 8000,
		MaxInputTokens:   2000,
		ReservedTokens:   4000,
	}
}

// estimateTokens provides a rough token count.
// Uses rune count divided by 2 as a conservative estimate that works
// for both English (~4 chars/token) and CJK (~1.5 chars/token) text.
func estimateTokens(text string) int {
	return utf8.RuneCountInString(text) / 2
}

// estimateMessagesTokens estimates total tokens in messages.
func estimateMessagesTokens(msgs []*ai.Message) int {
	total := 0
	for _, msg := range msgs {
		for _, part := range msg.Content {
			total += estimateTokens(part.Text)
		}
	}
	return total
}

// windowHistory applies the message-count window, then drops oldest
// messages until the remainder fits the token budget. The most recent
// exchange is always the last to go.
func (e *Engine) windowHistory(msgs []*ai.Message) []*ai.Message {
	if len(msgs) > e.maxHistoryMessages {
		msgs = msgs[len(msgs)-e.maxHistoryMessages:]
	}

	budget := e.tokenBudget.MaxHistoryTokens
	currentTokens := estimateMessagesTokens(msgs)
	if currentTokens <= budget {
		return msgs
	}

	e.logger.Debug("truncating history",
		"current_tokens", currentTokens,
		"budget", budget,
		"message_count", len(msgs),
	)

	// Add messages from newest to oldest until the budget is exhausted.
	remaining := budget
	kept := make([]*ai.Message, 0, len(msgs))
	for i := len(msgs) - 1; i >= 0; i-- {
		msgTokens := estimateMessagesTokens(msgs[i : i+1])
		if remaining < msgTokens {
			break
		}
		kept = append(kept, msgs[i])
		remaining -= msgTokens
	}
	// Restore chronological order.
	slices.Reverse(kept)

	e.logger.Debug("history truncated",
		"original_count", len(msgs),
		"new_count", len(kept),
		"tokens_used", budget-remaining,
	)

	return kept
}

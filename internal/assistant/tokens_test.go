package assistant

import (
	"fmt"
	"strings"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docsage/docsage/internal/log"
)

func TestEstimateTokens(t *testing.T) {
	t.Parallel()

	assert.Zero(t, estimateTokens(""))
	assert.Equal(t, 2, estimateTokens("four"))
	// CJK text: rune count, not byte count.
	assert.Equal(t, 2, estimateTokens("青咖哩好辣"[:12])) // 4 runes
}

func budgetEngine(maxMessages, maxTokens int) *Engine {
	return &Engine{
		maxHistoryMessages: maxMessages,
		tokenBudget:        TokenBudget{MaxHistoryTokens: maxTokens},
		logger:             log.NewNop(),
	}
}

func userMsg(text string) *ai.Message  { return ai.NewUserMessage(ai.NewTextPart(text)) }
func modelMsg(text string) *ai.Message { return ai.NewModelMessage(ai.NewTextPart(text)) }

func TestEngine_WindowHistory(t *testing.T) {
	t.Parallel()

	t.Run("short history passes through", func(t *testing.T) {
		t.Parallel()
		e := budgetEngine(100, 8000)
		msgs := []*ai.Message{userMsg("hi"), modelMsg("hello")}
		assert.Equal(t, msgs, e.windowHistory(msgs))
	})

	t.Run("message-count window keeps the most recent", func(t *testing.T) {
		t.Parallel()
		e := budgetEngine(4, 8000)
		var msgs []*ai.Message
		for i := range 10 {
			msgs = append(msgs, userMsg(fmt.Sprintf("message %d", i)))
		}

		got := e.windowHistory(msgs)
		require.Len(t, got, 4)
		assert.Equal(t, "message 6", got[0].Text())
		assert.Equal(t, "message 9", got[3].Text())
	})

	t.Run("token budget drops oldest first", func(t *testing.T) {
		t.Parallel()
		e := budgetEngine(100, 50)
		long := strings.Repeat("curry ", 20) // ~60 tokens each
		msgs := []*ai.Message{
			userMsg(long),
			modelMsg(long),
			userMsg("short question"),
			modelMsg("short answer"),
		}

		got := e.windowHistory(msgs)
		require.NotEmpty(t, got)
		// The oldest long messages are gone; the recent short ones survive.
		assert.Equal(t, "short question", got[0].Text())
		assert.Equal(t, "short answer", got[len(got)-1].Text())
		assert.LessOrEqual(t, estimateMessagesTokens(got), 50)
	})

	t.Run("empty history stays empty", func(t *testing.T) {
		t.Parallel()
		e := budgetEngine(100, 8000)
		assert.Empty(t, e.windowHistory(nil))
	})
}

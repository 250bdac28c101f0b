package session_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docsage/docsage/internal/log"
	"github.com/docsage/docsage/internal/session"
	"github.com/docsage/docsage/internal/testutil"
)

func TestStoreIntegration(t *testing.T) {
	pool, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := session.New(session.NewPgxQuerier(pool), pool, log.NewNop())

	t.Run("run lifecycle", func(t *testing.T) {
		run, err := store.CreateRun(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, "alice", run.UserID)
		assert.False(t, run.CreatedAt.IsZero())

		runs, err := store.ListRuns(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, runs, 1)
		assert.Equal(t, run.ID, runs[0].ID)

		// Other users see nothing.
		other, err := store.ListRuns(ctx, "bob")
		require.NoError(t, err)
		assert.Empty(t, other)
	})

	t.Run("runs list oldest first", func(t *testing.T) {
		var created []uuid.UUID
		for range 3 {
			run, err := store.CreateRun(ctx, "carol")
			require.NoError(t, err)
			created = append(created, run.ID)
		}

		runs, err := store.ListRuns(ctx, "carol")
		require.NoError(t, err)
		require.Len(t, runs, 3)
		for i, run := range runs {
			assert.Equal(t, created[i], run.ID)
		}
	})

	t.Run("transcript round trip", func(t *testing.T) {
		run, err := store.CreateRun(ctx, "dave")
		require.NoError(t, err)

		err = store.AppendTurns(ctx, run.ID,
			&session.Turn{Role: session.RoleUser, Content: "what is in pad thai?"},
			&session.Turn{Role: session.RoleAssistant, Content: "Noodles, tamarind, fish sauce.", ContextIDs: []string{"chunk_1", "chunk_2"}},
		)
		require.NoError(t, err)

		turns, err := store.GetTranscript(ctx, run.ID)
		require.NoError(t, err)
		require.Len(t, turns, 2)
		assert.Equal(t, 1, turns[0].Seq)
		assert.Equal(t, session.RoleUser, turns[0].Role)
		assert.Empty(t, turns[0].ContextIDs)
		assert.Equal(t, 2, turns[1].Seq)
		assert.Equal(t, []string{"chunk_1", "chunk_2"}, turns[1].ContextIDs)
	})

	t.Run("unknown run yields ErrRunNotFound", func(t *testing.T) {
		_, err := store.GetTranscript(ctx, uuid.New())
		assert.ErrorIs(t, err, session.ErrRunNotFound)

		err = store.AppendTurns(ctx, uuid.New(), &session.Turn{Role: session.RoleUser, Content: "hi"})
		assert.ErrorIs(t, err, session.ErrRunNotFound)
	})

	t.Run("concurrent appends never interleave a pair", func(t *testing.T) {
		run, err := store.CreateRun(ctx, "erin")
		require.NoError(t, err)

		const writers = 8
		var wg sync.WaitGroup
		for range writers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := store.AppendTurns(ctx, run.ID,
					&session.Turn{Role: session.RoleUser, Content: "q"},
					&session.Turn{Role: session.RoleAssistant, Content: "a"},
				)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		turns, err := store.GetTranscript(ctx, run.ID)
		require.NoError(t, err)
		require.Len(t, turns, writers*2)

		// Sequence numbers are gapless and every pair is user then assistant.
		for i, turn := range turns {
			assert.Equal(t, i+1, turn.Seq)
			if i%2 == 0 {
				assert.Equal(t, session.RoleUser, turn.Role)
			} else {
				assert.Equal(t, session.RoleAssistant, turn.Role)
			}
		}
	})

	t.Run("role constraint enforced by schema", func(t *testing.T) {
		run, err := store.CreateRun(ctx, "frank")
		require.NoError(t, err)

		err = store.AppendTurns(ctx, run.ID, &session.Turn{Role: "narrator", Content: "x"})
		assert.ErrorIs(t, err, session.ErrInvalidRole)
	})
}

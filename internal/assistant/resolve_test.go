package assistant

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_ResolveSession(t *testing.T) {
	t.Parallel()

	t.Run("first contact creates a run", func(t *testing.T) {
		t.Parallel()
		te := newTestEngine(t, nil)

		res, err := te.engine.ResolveSession(context.Background(), "alice", false)
		require.NoError(t, err)
		assert.False(t, res.Resumed)
		assert.Equal(t, 1, te.sessions.createCalls)
	})

	t.Run("returning user resumes the earliest run by default", func(t *testing.T) {
		t.Parallel()
		te := newTestEngine(t, nil)
		first := te.newRun(t, "alice")
		te.newRun(t, "alice")
		te.newRun(t, "alice")

		res, err := te.engine.ResolveSession(context.Background(), "alice", false)
		require.NoError(t, err)
		assert.True(t, res.Resumed)
		assert.Equal(t, first, res.RunID)
	})

	t.Run("resolution is deterministic", func(t *testing.T) {
		t.Parallel()
		te := newTestEngine(t, nil)
		te.newRun(t, "alice")
		te.newRun(t, "alice")

		a, err := te.engine.ResolveSession(context.Background(), "alice", false)
		require.NoError(t, err)
		b, err := te.engine.ResolveSession(context.Background(), "alice", false)
		require.NoError(t, err)
		assert.Equal(t, a.RunID, b.RunID)
	})

	t.Run("latest policy resumes the newest run", func(t *testing.T) {
		t.Parallel()
		te := newTestEngine(t, func(cfg *Config) {
			cfg.Policy = ResumeLatest
		})
		te.newRun(t, "alice")
		newest := te.newRun(t, "alice")

		res, err := te.engine.ResolveSession(context.Background(), "alice", false)
		require.NoError(t, err)
		assert.True(t, res.Resumed)
		assert.Equal(t, newest, res.RunID)
	})

	t.Run("startNew always creates even with history", func(t *testing.T) {
		t.Parallel()
		te := newTestEngine(t, nil)
		existing := te.newRun(t, "alice")

		res, err := te.engine.ResolveSession(context.Background(), "alice", true)
		require.NoError(t, err)
		assert.False(t, res.Resumed)
		assert.NotEqual(t, existing, res.RunID)
		assert.Zero(t, te.sessions.listCalls, "no index consultation when forcing a new run")
	})

	t.Run("users are isolated", func(t *testing.T) {
		t.Parallel()
		te := newTestEngine(t, nil)
		aliceRun := te.newRun(t, "alice")

		res, err := te.engine.ResolveSession(context.Background(), "bob", false)
		require.NoError(t, err)
		assert.False(t, res.Resumed, "bob must not resume alice's run")
		assert.NotEqual(t, aliceRun, res.RunID)
	})

	t.Run("index failure propagates", func(t *testing.T) {
		t.Parallel()
		te := newTestEngine(t, nil)
		te.sessions.listErr = errors.New("connection refused")

		_, err := te.engine.ResolveSession(context.Background(), "alice", false)
		require.Error(t, err)
		assert.Zero(t, te.sessions.createCalls)
	})
}

package assistant

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Resolution is the outcome of ResolveSession: which run the conversation
// uses and whether it was resumed or freshly created.
type Resolution struct {
	RunID   uuid.UUID
	Resumed bool
}

// ResolveSession decides which run a user's conversation continues in.
//
// When startNew is true a fresh run is always created, regardless of
// existing history. Otherwise the user's existing runs are consulted and
// one is resumed per the engine's resolution policy; a user with no runs
// gets a fresh one. Given the same stored state and arguments the outcome
// is deterministic.
func (e *Engine) ResolveSession(ctx context.Context, userID string, startNew bool) (*Resolution, error) {
	if !startNew {
		runs, err := e.sessions.ListRuns(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("listing runs for user %q: %w", userID, err)
		}
		if len(runs) > 0 {
			// ListRuns is oldest-first.
			run := runs[0]
			if e.policy == ResumeLatest {
				run = runs[len(runs)-1]
			}
			e.logger.Debug("resuming run",
				"run_id", run.ID,
				"user_id", userID,
				"policy", e.policy)
			return &Resolution{RunID: run.ID, Resumed: true}, nil
		}
	}

	run, err := e.sessions.CreateRun(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("creating run for user %q: %w", userID, err)
	}
	e.logger.Debug("started new run", "run_id", run.ID, "user_id", userID)
	return &Resolution{RunID: run.ID, Resumed: false}, nil
}

package assistant

import (
	"sync"

	"github.com/google/uuid"
)

// runLocks serializes asks per run. Concurrent asks on the same run take
// turns; asks on different runs proceed in parallel. The database row lock
// inside AppendTurns remains the backstop across processes.
type runLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*runLock
}

type runLock struct {
	mu   sync.Mutex
	refs int
}

func newRunLocks() *runLocks {
	return &runLocks{locks: make(map[uuid.UUID]*runLock)}
}

// acquire blocks until the run's lock is held and returns the release func.
// Entries are reference-counted and removed when the last holder releases,
// so the table does not grow with the number of runs ever seen.
func (r *runLocks) acquire(runID uuid.UUID) (release func()) {
	r.mu.Lock()
	l, ok := r.locks[runID]
	if !ok {
		l = &runLock{}
		r.locks[runID] = l
	}
	l.refs++
	r.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		r.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(r.locks, runID)
		}
		r.mu.Unlock()
	}
}

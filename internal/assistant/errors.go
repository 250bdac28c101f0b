package assistant

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrEmptyQuery indicates the query was empty or whitespace-only. It is
// returned before any retrieval, generation, or persistence happens.
var ErrEmptyQuery = errors.New("query must not be empty")

// AskError wraps any failure during an ask with the run and user it belongs
// to, so callers can report which conversation failed without parsing
// messages. Check the cause with errors.Is/As via Unwrap.
type AskError struct {
	RunID  uuid.UUID
	UserID string
	Err    error
}

func (e *AskError) Error() string {
	return fmt.Sprintf("ask failed (run %s, user %s): %v", e.RunID, e.UserID, e.Err)
}

func (e *AskError) Unwrap() error { return e.Err }

// askError wraps err with run/user context, passing nil through unchanged.
func askError(runID uuid.UUID, userID string, err error) error {
	if err == nil {
		return nil
	}
	return &AskError{RunID: runID, UserID: userID, Err: err}
}

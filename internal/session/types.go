// Package session provides durable conversation state: runs (one conversation
// thread per run) and their ordered transcripts, persisted in PostgreSQL.
package session

import (
	"time"

	"github.com/google/uuid"
)

// Role constants define valid turn roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Run is one conversation thread belonging to a user.
// A run's ID is stable for its lifetime and never reassigned.
type Run struct {
	ID        uuid.UUID
	UserID    string
	CreatedAt time.Time
}

// Turn is a single message in a run's transcript. Immutable once appended.
// ContextIDs records which knowledge chunks grounded an assistant turn.
type Turn struct {
	ID         uuid.UUID
	RunID      uuid.UUID
	Role       string // "user" | "assistant"
	Content    string
	ContextIDs []string
	Seq        int
	CreatedAt  time.Time
}

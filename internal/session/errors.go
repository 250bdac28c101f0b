package session

import "errors"

// Sentinel errors for session operations, part of the Store's public API.
// Check with errors.Is().
var (
	// ErrRunNotFound indicates the referenced run does not exist.
	ErrRunNotFound = errors.New("run not found")

	// ErrInvalidRole indicates a turn carries a role other than user/assistant.
	ErrInvalidRole = errors.New("invalid turn role")
)

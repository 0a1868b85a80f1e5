package session

import (
	"errors"
	"fmt"
)

var (
	// ErrNotInitialized is returned when a scenario has no active session.
	ErrNotInitialized = errors.New("session not initialized for this scenario")

	// ErrSessionClosed is returned by operations on a closed session.
	ErrSessionClosed = errors.New("session closed")

	// ErrStateRegression is returned when a lifecycle transition would move
	// a session backwards.
	ErrStateRegression = errors.New("session state regression")

	// ErrUnsupportedBackend is returned for a Backend the factory cannot build.
	ErrUnsupportedBackend = errors.New("unsupported backend")
)

// CreationError reports that a session could not be provisioned. It is fatal
// for the scenario that requested the session.
type CreationError struct {
	Backend Descriptor
	Err     error
}

func (e *CreationError) Error() string {
	return fmt.Sprintf("session creation failed for %s: %v", e.Backend, e.Err)
}

func (e *CreationError) Unwrap() error {
	return e.Err
}

// CleanupError reports that shutting a session down failed. It is never
// fatal: the session is considered closed regardless.
type CleanupError struct {
	SessionID string
	Backend   Descriptor
	Err       error
}

func (e *CleanupError) Error() string {
	return fmt.Sprintf("session %s (%s) cleanup failed: %v", e.SessionID, e.Backend, e.Err)
}

func (e *CleanupError) Unwrap() error {
	return e.Err
}

// IsCreationError reports whether err is or wraps a CreationError.
func IsCreationError(err error) bool {
	var ce *CreationError
	return errors.As(err, &ce)
}

// IsCleanupError reports whether err is or wraps a CleanupError.
func IsCleanupError(err error) bool {
	var ce *CleanupError
	return errors.As(err, &ce)
}

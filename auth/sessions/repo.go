package sessions

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("session not found")

// Repo defines the interface for session storage operations.
type Repo interface {
	// Create persists a new session.
	Create(ctx context.Context, session *Session) error

	// Get retrieves a session by ID regardless of state.
	Get(ctx context.Context, sessionID string) (*Session, error)

	// Activate flips a session to active and re-sets its expiry.
	Activate(ctx context.Context, sessionID string, expiresAt time.Time) error

	// Deactivate marks the session inactive, scoped to the owning user.
	// Matching zero rows is not an error.
	Deactivate(ctx context.Context, sessionID, userID string) error

	// ActiveByUser returns sessions with active=true and expires_at in the
	// future, most recent first.
	ActiveByUser(ctx context.Context, userID string) ([]*Session, error)

	// DeleteExpired removes sessions past their expiry and reports how many
	// rows went away. Invoked by an external scheduler.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Package refresh defines storage for opaque refresh tokens. A refresh token
// is a random handle with server-side state: it can be revoked at any time
// and it is never rotated on use.
package refresh

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("refresh token not found")

// StoredRefreshToken is the server-side record backing one opaque token.
type StoredRefreshToken struct {
	ID        string
	UserID    string
	Token     string
	Revoked   bool
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Repo defines storage for refresh tokens.
type Repo interface {
	Create(ctx context.Context, token *StoredRefreshToken) error

	// Get retrieves a record by the opaque token value, revoked or not,
	// or ErrNotFound.
	Get(ctx context.Context, token string) (*StoredRefreshToken, error)

	// RevokeByUser marks every token belonging to the user revoked and
	// reports how many rows changed.
	RevokeByUser(ctx context.Context, userID string) (int64, error)

	// DeleteExpired sweeps tokens past their expiry.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

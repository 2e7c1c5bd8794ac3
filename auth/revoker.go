package auth

import (
	"context"

	pkgerrors "github.com/pkg/errors"

	"github.com/andinasec/login-global/token/refresh"
)

// Revoker terminates every credential a user holds: all sessions and all
// refresh tokens. The Postgres store implements this in one transaction so
// logout-all cannot half-apply.
type Revoker interface {
	RevokeUser(ctx context.Context, userID string) error
}

// SessionDeactivator is the session-side half of revocation.
type SessionDeactivator interface {
	DeactivateAll(ctx context.Context, userID string) error
}

// MemoryRevoker composes in-memory stores into a Revoker. Not atomic; used
// in tests and the in-memory dev configuration.
type MemoryRevoker struct {
	Sessions SessionDeactivator
	Refresh  refresh.Repo
}

var _ Revoker = (*MemoryRevoker)(nil)

func (r *MemoryRevoker) RevokeUser(ctx context.Context, userID string) error {
	if err := r.Sessions.DeactivateAll(ctx, userID); err != nil {
		return pkgerrors.Wrap(err, "[MemoryRevoker.RevokeUser] Sessions.DeactivateAll")
	}
	if _, err := r.Refresh.RevokeByUser(ctx, userID); err != nil {
		return pkgerrors.Wrap(err, "[MemoryRevoker.RevokeUser] Refresh.RevokeByUser")
	}
	return nil
}

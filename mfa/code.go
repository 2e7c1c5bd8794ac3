package mfa

import (
	"context"
	"time"
)

// Code is a one-time numeric login challenge. A user may hold several
// unconsumed codes at once; consuming any one of them succeeds and is
// irreversible.
type Code struct {
	ID        string
	UserID    string
	Code      string // 6 digits, leading zeros allowed
	Used      bool
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Repo defines storage for MFA codes.
type Repo interface {
	Create(ctx context.Context, code *Code) error

	// FindValid returns an unused, unexpired code matching (userID, code),
	// or ErrInvalidCode.
	FindValid(ctx context.Context, userID, code string, now time.Time) (*Code, error)

	// Consume atomically marks the code used. It must apply the equivalent
	// of "SET used=true WHERE id=$1 AND used=false" and report whether a row
	// actually changed, so a code is claimed by at most one caller.
	Consume(ctx context.Context, id string) (bool, error)

	// DeleteExpired sweeps codes past their expiry.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

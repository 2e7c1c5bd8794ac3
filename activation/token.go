package activation

import (
	"context"
	"time"
)

// Token is a one-time onboarding credential. At most one live token exists
// per email: generating a new one deletes any predecessor.
type Token struct {
	Email     string
	Token     string // 32 random bytes, hex encoded (64 characters)
	Used      bool
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Repo defines storage for activation tokens.
type Repo interface {
	// DeleteByEmail removes any token rows for the email.
	DeleteByEmail(ctx context.Context, email string) error

	Create(ctx context.Context, token *Token) error

	// Get retrieves a token row by its value, used or not, or ErrTokenNotFound.
	Get(ctx context.Context, token string) (*Token, error)

	// MarkUsed flags the token consumed and reports whether a row matched.
	MarkUsed(ctx context.Context, token string) (bool, error)

	// DeleteExpired sweeps tokens past their expiry.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

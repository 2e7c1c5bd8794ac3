// Package mfa issues and verifies the one-time numeric codes gating login.
package mfa

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"

	"github.com/andinasec/login-global/auth/sessions"
	"github.com/andinasec/login-global/users"
)

const codeTTL = 5 * time.Minute

var (
	ErrInvalidSession = errors.New("invalid session")
	ErrInvalidCode    = errors.New("invalid mfa code")
)

// Delivery hands a generated code to the user. Delivery is best-effort; the
// collaborator owns its own retry policy.
type Delivery interface {
	SendMFACode(ctx context.Context, to, code string) bool
}

// Manager owns the MFA code lifecycle.
type Manager struct {
	repo     Repo
	sessions sessions.Repo
	delivery Delivery
	nowFunc  func() time.Time
}

type ManagerOption func(*Manager)

// WithNowFunc sets the time source (primarily for testing).
func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

func NewManager(repo Repo, sessionRepo sessions.Repo, delivery Delivery, options ...ManagerOption) *Manager {
	m := &Manager{
		repo:     repo,
		sessions: sessionRepo,
		delivery: delivery,
		nowFunc:  time.Now,
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

// Issue generates a fresh 6-digit code for the user, persists it with a
// 5-minute expiry, and hands it to the delivery collaborator.
//
// Previously issued codes are deliberately left alone: a user who requests a
// second code while the first is in flight may consume either one. This is a
// known, accepted weakness of the flow.
func (m *Manager) Issue(ctx context.Context, user *users.User) error {
	code, err := generateCode()
	if err != nil {
		return pkgerrors.Wrap(err, "[Manager.Issue] generateCode")
	}

	now := m.nowFunc()
	if err := m.repo.Create(ctx, &Code{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		Code:      code,
		CreatedAt: now,
		ExpiresAt: now.Add(codeTTL),
	}); err != nil {
		return pkgerrors.Wrap(err, "[Manager.Issue] repo.Create")
	}

	m.delivery.SendMFACode(ctx, user.Email, code)
	return nil
}

// Verify checks a code against the session's owning user and consumes it.
// The session only has to exist - it is activated by the caller after this
// returns, so its Active flag is not inspected here.
func (m *Manager) Verify(ctx context.Context, sessionID, code string) (string, error) {
	session, err := m.sessions.Get(ctx, sessionID)
	if err != nil {
		return "", ErrInvalidSession
	}

	record, err := m.repo.FindValid(ctx, session.UserID, code, m.nowFunc())
	if err != nil {
		return "", ErrInvalidCode
	}

	// Conditional update: losing the race to another verify call with the
	// same code must fail, not silently succeed.
	consumed, err := m.repo.Consume(ctx, record.ID)
	if err != nil {
		return "", pkgerrors.Wrap(err, "[Manager.Verify] repo.Consume")
	}
	if !consumed {
		return "", ErrInvalidCode
	}

	return session.UserID, nil
}

// CleanupExpired sweeps expired codes. Invoked by an external scheduler.
func (m *Manager) CleanupExpired(ctx context.Context) (int64, error) {
	return m.repo.DeleteExpired(ctx, m.nowFunc())
}

// generateCode draws a uniformly random 6-digit code, leading zeros allowed.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

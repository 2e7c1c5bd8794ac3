// Package activation manages the one-time tokens that let a newly created
// account set its first password. Structurally this mirrors the MFA code
// lifecycle, but tokens live longer and each email holds at most one.
package activation

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	pkgerrors "github.com/pkg/errors"
)

const (
	tokenBytes = 32 // 256 bits -> 64 hex characters
	tokenTTL   = 24 * time.Hour
)

// Validation failures are distinct, user-facing reasons - unlike login
// errors, onboarding problems are safe to explain.
var (
	ErrTokenNotFound    = errors.New("activation token not found")
	ErrTokenAlreadyUsed = errors.New("activation token already used")
	ErrTokenExpired     = errors.New("activation token expired")
)

// Manager owns the activation token lifecycle.
type Manager struct {
	repo    Repo
	nowFunc func() time.Time
}

type ManagerOption func(*Manager)

// WithNowFunc sets the time source (primarily for testing).
func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

func NewManager(repo Repo, options ...ManagerOption) *Manager {
	m := &Manager{repo: repo, nowFunc: time.Now}
	for _, opt := range options {
		opt(m)
	}
	return m
}

// Generate mints a fresh token for the email, invalidating any prior one.
func (m *Manager) Generate(ctx context.Context, email string) (string, error) {
	if err := m.repo.DeleteByEmail(ctx, email); err != nil {
		return "", pkgerrors.Wrap(err, "[Manager.Generate] repo.DeleteByEmail")
	}

	raw := make([]byte, tokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", pkgerrors.Wrap(err, "[Manager.Generate] rand.Read")
	}
	token := hex.EncodeToString(raw)

	now := m.nowFunc()
	if err := m.repo.Create(ctx, &Token{
		Email:     email,
		Token:     token,
		CreatedAt: now,
		ExpiresAt: now.Add(tokenTTL),
	}); err != nil {
		return "", pkgerrors.Wrap(err, "[Manager.Generate] repo.Create")
	}

	return token, nil
}

// Validate checks a token and returns the email it was issued for. The three
// failure modes are reported separately so the onboarding UI can explain
// what happened.
func (m *Manager) Validate(ctx context.Context, token string) (string, error) {
	record, err := m.repo.Get(ctx, token)
	if err != nil {
		return "", ErrTokenNotFound
	}
	if record.Used {
		return "", ErrTokenAlreadyUsed
	}
	if !record.ExpiresAt.After(m.nowFunc()) {
		return "", ErrTokenExpired
	}
	return record.Email, nil
}

// MarkUsed consumes the token after a successful activation. A zero-row
// match means the token vanished between Validate and MarkUsed (deleted by a
// concurrent Generate, or already consumed) and is surfaced as not-found.
func (m *Manager) MarkUsed(ctx context.Context, token string) error {
	matched, err := m.repo.MarkUsed(ctx, token)
	if err != nil {
		return pkgerrors.Wrap(err, "[Manager.MarkUsed] repo.MarkUsed")
	}
	if !matched {
		return ErrTokenNotFound
	}
	return nil
}

// CleanupExpired sweeps expired tokens. Invoked by an external scheduler.
func (m *Manager) CleanupExpired(ctx context.Context) (int64, error) {
	return m.repo.DeleteExpired(ctx, m.nowFunc())
}

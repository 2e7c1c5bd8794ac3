package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/andinasec/login-global/activation"
)

var _ activation.Repo = (*ActivationStore)(nil)

// ActivationStore implements activation.Repo on the activation_tokens table.
type ActivationStore struct {
	db *sql.DB
}

func (s *ActivationStore) DeleteByEmail(ctx context.Context, email string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM activation_tokens WHERE email = $1`, email)
	if err != nil {
		return pkgerrors.Wrap(err, "[ActivationStore.DeleteByEmail] delete activation_tokens")
	}
	return nil
}

func (s *ActivationStore) Create(ctx context.Context, token *activation.Token) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO activation_tokens (email, token, used, created_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		token.Email, token.Token, token.Used, token.CreatedAt, token.ExpiresAt)
	if err != nil {
		return pkgerrors.Wrap(err, "[ActivationStore.Create] insert activation_token")
	}
	return nil
}

func (s *ActivationStore) Get(ctx context.Context, token string) (*activation.Token, error) {
	var record activation.Token
	err := s.db.QueryRowContext(ctx,
		`SELECT email, token, used, created_at, expires_at FROM activation_tokens WHERE token = $1`, token).
		Scan(&record.Email, &record.Token, &record.Used, &record.CreatedAt, &record.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, activation.ErrTokenNotFound
		}
		return nil, pkgerrors.Wrap(err, "[ActivationStore.Get] select activation_token")
	}
	return &record, nil
}

func (s *ActivationStore) MarkUsed(ctx context.Context, token string) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE activation_tokens SET used = TRUE WHERE token = $1 AND NOT used`, token)
	if err != nil {
		return false, pkgerrors.Wrap(err, "[ActivationStore.MarkUsed] update activation_token")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, pkgerrors.Wrap(err, "[ActivationStore.MarkUsed] RowsAffected")
	}
	return affected == 1, nil
}

func (s *ActivationStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM activation_tokens WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, pkgerrors.Wrap(err, "[ActivationStore.DeleteExpired] delete activation_tokens")
	}
	return result.RowsAffected()
}

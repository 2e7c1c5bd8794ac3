package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/andinasec/login-global/token/refresh"
)

var _ refresh.Repo = (*RefreshStore)(nil)

// RefreshStore implements refresh.Repo on the refresh_tokens table.
type RefreshStore struct {
	db *sql.DB
}

func (s *RefreshStore) Create(ctx context.Context, token *refresh.StoredRefreshToken) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO refresh_tokens (id, user_id, token, revoked, created_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		token.ID, token.UserID, token.Token, token.Revoked, token.CreatedAt, token.ExpiresAt)
	if err != nil {
		return pkgerrors.Wrap(err, "[RefreshStore.Create] insert refresh_token")
	}
	return nil
}

func (s *RefreshStore) Get(ctx context.Context, token string) (*refresh.StoredRefreshToken, error) {
	var record refresh.StoredRefreshToken
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, token, revoked, created_at, expires_at FROM refresh_tokens WHERE token = $1`, token).
		Scan(&record.ID, &record.UserID, &record.Token, &record.Revoked, &record.CreatedAt, &record.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, refresh.ErrNotFound
		}
		return nil, pkgerrors.Wrap(err, "[RefreshStore.Get] select refresh_token")
	}
	return &record, nil
}

func (s *RefreshStore) RevokeByUser(ctx context.Context, userID string) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked = TRUE WHERE user_id = $1 AND NOT revoked`, userID)
	if err != nil {
		return 0, pkgerrors.Wrap(err, "[RefreshStore.RevokeByUser] update refresh_tokens")
	}
	return result.RowsAffected()
}

func (s *RefreshStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, pkgerrors.Wrap(err, "[RefreshStore.DeleteExpired] delete refresh_tokens")
	}
	return result.RowsAffected()
}

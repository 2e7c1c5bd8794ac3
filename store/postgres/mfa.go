package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/andinasec/login-global/mfa"
)

var _ mfa.Repo = (*MFACodeStore)(nil)

// MFACodeStore implements mfa.Repo on the mfa_codes table.
type MFACodeStore struct {
	db *sql.DB
}

func (s *MFACodeStore) Create(ctx context.Context, code *mfa.Code) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO mfa_codes (id, user_id, code, used, created_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		code.ID, code.UserID, code.Code, code.Used, code.CreatedAt, code.ExpiresAt)
	if err != nil {
		return pkgerrors.Wrap(err, "[MFACodeStore.Create] insert mfa_code")
	}
	return nil
}

func (s *MFACodeStore) FindValid(ctx context.Context, userID, code string, now time.Time) (*mfa.Code, error) {
	var record mfa.Code
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, code, used, created_at, expires_at FROM mfa_codes
		 WHERE user_id = $1 AND code = $2 AND NOT used AND expires_at > $3
		 ORDER BY created_at DESC LIMIT 1`,
		userID, code, now).
		Scan(&record.ID, &record.UserID, &record.Code, &record.Used, &record.CreatedAt, &record.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, mfa.ErrInvalidCode
		}
		return nil, pkgerrors.Wrap(err, "[MFACodeStore.FindValid] select mfa_code")
	}
	return &record, nil
}

func (s *MFACodeStore) Consume(ctx context.Context, id string) (bool, error) {
	// Conditional update: of two racing verifies, exactly one sees a row
	// change.
	result, err := s.db.ExecContext(ctx,
		`UPDATE mfa_codes SET used = TRUE WHERE id = $1 AND NOT used`, id)
	if err != nil {
		return false, pkgerrors.Wrap(err, "[MFACodeStore.Consume] update mfa_code")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, pkgerrors.Wrap(err, "[MFACodeStore.Consume] RowsAffected")
	}
	return affected == 1, nil
}

func (s *MFACodeStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM mfa_codes WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, pkgerrors.Wrap(err, "[MFACodeStore.DeleteExpired] delete mfa_codes")
	}
	return result.RowsAffected()
}

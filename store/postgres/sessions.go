package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/andinasec/login-global/auth/sessions"
)

var _ sessions.Repo = (*SessionStore)(nil)

// SessionStore implements sessions.Repo on the sessions table.
type SessionStore struct {
	db *sql.DB
}

const sessionColumns = `id, user_id, active, ip_address, user_agent, created_at, expires_at`

func scanSession(row interface{ Scan(...any) error }) (*sessions.Session, error) {
	var sess sessions.Session
	err := row.Scan(&sess.ID, &sess.UserID, &sess.Active, &sess.IPAddress, &sess.UserAgent, &sess.CreatedAt, &sess.ExpiresAt)
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *SessionStore) Create(ctx context.Context, session *sessions.Session) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, active, ip_address, user_agent, created_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		session.ID, session.UserID, session.Active, session.IPAddress, session.UserAgent,
		session.CreatedAt, session.ExpiresAt)
	if err != nil {
		return pkgerrors.Wrap(err, "[SessionStore.Create] insert session")
	}
	return nil
}

func (s *SessionStore) Get(ctx context.Context, sessionID string) (*sessions.Session, error) {
	session, err := scanSession(s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, sessionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sessions.ErrNotFound
		}
		return nil, pkgerrors.Wrap(err, "[SessionStore.Get] select session")
	}
	return session, nil
}

func (s *SessionStore) Activate(ctx context.Context, sessionID string, expiresAt time.Time) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET active = TRUE, expires_at = $1 WHERE id = $2`, expiresAt, sessionID)
	if err != nil {
		return pkgerrors.Wrap(err, "[SessionStore.Activate] update session")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return pkgerrors.Wrap(err, "[SessionStore.Activate] RowsAffected")
	}
	if affected == 0 {
		return sessions.ErrNotFound
	}
	return nil
}

func (s *SessionStore) Deactivate(ctx context.Context, sessionID, userID string) error {
	// Scoped to the owning user: a foreign session ID matches zero rows,
	// which is not an error.
	_, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET active = FALSE WHERE id = $1 AND user_id = $2`, sessionID, userID)
	if err != nil {
		return pkgerrors.Wrap(err, "[SessionStore.Deactivate] update session")
	}
	return nil
}

func (s *SessionStore) ActiveByUser(ctx context.Context, userID string) ([]*sessions.Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE user_id = $1 AND active AND expires_at > now()
		 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "[SessionStore.ActiveByUser] select sessions")
	}
	defer rows.Close()

	var out []*sessions.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, pkgerrors.Wrap(err, "[SessionStore.ActiveByUser] scan session")
		}
		out = append(out, session)
	}
	return out, rows.Err()
}

func (s *SessionStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, pkgerrors.Wrap(err, "[SessionStore.DeleteExpired] delete sessions")
	}
	return result.RowsAffected()
}

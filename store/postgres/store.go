// Package postgres implements every repository interface of the engine on a
// single PostgreSQL database, using database/sql over the pgx stdlib driver.
package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	pkgerrors "github.com/pkg/errors"
)

const uniqueViolation = "23505"

// Store provides all persistence for the engine. Each entity repository is
// a thin view over the same connection pool, which lets cross-entity
// operations (RevokeUser) run in a single transaction.
type Store struct {
	db *sql.DB

	Users       *UserStore
	Sessions    *SessionStore
	MFACodes    *MFACodeStore
	Activations *ActivationStore
	Refresh     *RefreshStore
	Roles       *RoleStore
}

// New wraps an existing database handle.
func New(db *sql.DB) *Store {
	return &Store{
		db:          db,
		Users:       &UserStore{db: db},
		Sessions:    &SessionStore{db: db},
		MFACodes:    &MFACodeStore{db: db},
		Activations: &ActivationStore{db: db},
		Refresh:     &RefreshStore{db: db},
		Roles:       &RoleStore{db: db},
	}
}

// Open connects to PostgreSQL and verifies the connection.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "[Open] sql.Open")
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, pkgerrors.Wrap(err, "[Open] db.Ping")
	}
	return New(db), nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping reports database reachability for health checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// isUniqueViolation reports whether err is a Postgres duplicate-key error.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return pkgerrors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// RevokeUser deactivates every session and revokes every refresh token of
// the user in one transaction. Used by logout-all and account disablement.
func (s *Store) RevokeUser(ctx context.Context, userID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return pkgerrors.Wrap(err, "[Store.RevokeUser] BeginTx")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`UPDATE sessions SET active = FALSE WHERE user_id = $1`, userID); err != nil {
		return pkgerrors.Wrap(err, "[Store.RevokeUser] update sessions")
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked = TRUE WHERE user_id = $1 AND NOT revoked`, userID); err != nil {
		return pkgerrors.Wrap(err, "[Store.RevokeUser] update refresh_tokens")
	}

	if err := tx.Commit(); err != nil {
		return pkgerrors.Wrap(err, "[Store.RevokeUser] Commit")
	}
	return nil
}

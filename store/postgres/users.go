package postgres

import (
	"context"
	"database/sql"
	"errors"

	pkgerrors "github.com/pkg/errors"

	"github.com/andinasec/login-global/users"
)

var _ users.Repo = (*UserStore)(nil)

// UserStore implements users.Repo on the users and user_systems tables.
type UserStore struct {
	db *sql.DB
}

const userColumns = `id, email, password_hash, status, phone, first_name, last_name, created_at`

func scanUser(row interface{ Scan(...any) error }) (*users.User, error) {
	var u users.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Status, &u.Phone, &u.FirstName, &u.LastName, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *UserStore) Create(ctx context.Context, user *users.User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, status, phone, first_name, last_name)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		user.ID, user.Email, user.PasswordHash, user.Status, user.Phone, user.FirstName, user.LastName)
	if err != nil {
		if isUniqueViolation(err) {
			return users.ErrEmailTaken
		}
		return pkgerrors.Wrap(err, "[UserStore.Create] insert user")
	}
	return nil
}

func (s *UserStore) GetByID(ctx context.Context, id string) (*users.User, error) {
	user, err := scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, users.ErrNotFound
		}
		return nil, pkgerrors.Wrap(err, "[UserStore.GetByID] select user")
	}
	return user, nil
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (*users.User, error) {
	user, err := scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, users.ErrNotFound
		}
		return nil, pkgerrors.Wrap(err, "[UserStore.GetByEmail] select user")
	}
	return user, nil
}

func (s *UserStore) List(ctx context.Context, offset, limit int) ([]*users.User, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY email OFFSET $1 LIMIT $2`, offset, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "[UserStore.List] select users")
	}
	defer rows.Close()

	var out []*users.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, pkgerrors.Wrap(err, "[UserStore.List] scan user")
		}
		out = append(out, user)
	}
	return out, rows.Err()
}

func (s *UserStore) SetStatus(ctx context.Context, id string, status users.Status) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE users SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return pkgerrors.Wrap(err, "[UserStore.SetStatus] update user")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return pkgerrors.Wrap(err, "[UserStore.SetStatus] RowsAffected")
	}
	if affected == 0 {
		return users.ErrNotFound
	}
	return nil
}

func (s *UserStore) SetPassword(ctx context.Context, id string, passwordHash string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE users SET password_hash = $1 WHERE id = $2`, passwordHash, id)
	if err != nil {
		return pkgerrors.Wrap(err, "[UserStore.SetPassword] update user")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return pkgerrors.Wrap(err, "[UserStore.SetPassword] RowsAffected")
	}
	if affected == 0 {
		return users.ErrNotFound
	}
	return nil
}

func (s *UserStore) SystemCodes(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT system_code FROM user_systems WHERE user_id = $1 ORDER BY system_code`, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "[UserStore.SystemCodes] select user_systems")
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, pkgerrors.Wrap(err, "[UserStore.SystemCodes] scan")
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}

// GrantSystem links a user to a target system. Duplicate grants are no-ops.
func (s *UserStore) GrantSystem(ctx context.Context, userID, systemCode string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user_systems (user_id, system_code) VALUES ($1, $2)
		 ON CONFLICT DO NOTHING`, userID, systemCode)
	if err != nil {
		return pkgerrors.Wrap(err, "[UserStore.GrantSystem] insert user_systems")
	}
	return nil
}

package postgres

import (
	"context"
	"database/sql"
	"errors"

	pkgerrors "github.com/pkg/errors"

	"github.com/andinasec/login-global/roles"
)

var _ roles.Repo = (*RoleStore)(nil)

// RoleStore implements roles.Repo on the roles and user_roles tables.
type RoleStore struct {
	db *sql.DB
}

func (s *RoleStore) Create(ctx context.Context, role *roles.Role) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO roles (code, description) VALUES ($1, $2)`,
		role.Code, role.Description)
	if err != nil {
		return pkgerrors.Wrap(err, "[RoleStore.Create] insert role")
	}
	return nil
}

func (s *RoleStore) GetByCode(ctx context.Context, code string) (*roles.Role, error) {
	var role roles.Role
	err := s.db.QueryRowContext(ctx,
		`SELECT code, description, created_at FROM roles WHERE code = $1`, code).
		Scan(&role.Code, &role.Description, &role.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, roles.ErrNotFound
		}
		return nil, pkgerrors.Wrap(err, "[RoleStore.GetByCode] select role")
	}
	return &role, nil
}

func (s *RoleStore) List(ctx context.Context) ([]*roles.Role, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT code, description, created_at FROM roles ORDER BY code`)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "[RoleStore.List] select roles")
	}
	defer rows.Close()

	var out []*roles.Role
	for rows.Next() {
		var role roles.Role
		if err := rows.Scan(&role.Code, &role.Description, &role.CreatedAt); err != nil {
			return nil, pkgerrors.Wrap(err, "[RoleStore.List] scan role")
		}
		out = append(out, &role)
	}
	return out, rows.Err()
}

func (s *RoleStore) Assign(ctx context.Context, userID, roleCode string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user_roles (user_id, role_code) VALUES ($1, $2)`, userID, roleCode)
	if err != nil {
		if isUniqueViolation(err) {
			// Two unique constraints can fire here: the assignment PK
			// (duplicate grant) and the partial single-admin index.
			if roleCode == roles.SystemAdmin {
				held, herr := s.HasAssignment(ctx, userID, roleCode)
				if herr == nil && held {
					return roles.ErrAlreadyAssigned
				}
				return roles.ErrPolicyViolation
			}
			return roles.ErrAlreadyAssigned
		}
		return pkgerrors.Wrap(err, "[RoleStore.Assign] insert user_role")
	}
	return nil
}

func (s *RoleStore) Remove(ctx context.Context, userID, roleCode string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM user_roles WHERE user_id = $1 AND role_code = $2`, userID, roleCode)
	if err != nil {
		return pkgerrors.Wrap(err, "[RoleStore.Remove] delete user_role")
	}
	return nil
}

func (s *RoleStore) CodesForUser(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT role_code FROM user_roles WHERE user_id = $1 ORDER BY role_code`, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "[RoleStore.CodesForUser] select user_roles")
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, pkgerrors.Wrap(err, "[RoleStore.CodesForUser] scan")
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}

func (s *RoleStore) HasAssignment(ctx context.Context, userID, roleCode string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM user_roles WHERE user_id = $1 AND role_code = $2)`,
		userID, roleCode).Scan(&exists)
	if err != nil {
		return false, pkgerrors.Wrap(err, "[RoleStore.HasAssignment] select user_roles")
	}
	return exists, nil
}

func (s *RoleStore) CountByRole(ctx context.Context, roleCode string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM user_roles WHERE role_code = $1`, roleCode).Scan(&count)
	if err != nil {
		return 0, pkgerrors.Wrap(err, "[RoleStore.CountByRole] select user_roles")
	}
	return count, nil
}

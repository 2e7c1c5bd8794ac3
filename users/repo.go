package users

import (
	"context"
	"errors"
)

var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("email already registered")
)

// Repo defines storage operations for user accounts.
//
// SystemCodes is the read-only view of system grants; system CRUD lives in a
// separate administration surface, the engine only needs the codes for token
// claims.
type Repo interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context, offset, limit int) ([]*User, error)
	SetStatus(ctx context.Context, id string, status Status) error
	SetPassword(ctx context.Context, id string, passwordHash string) error
	SystemCodes(ctx context.Context, userID string) ([]string, error)
}

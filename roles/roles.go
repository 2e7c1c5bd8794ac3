// Package roles manages the role catalog and user-role assignments. Roles
// are coarse, platform-wide entitlements baked into access tokens; a policy
// layer on top of plain assignment enforces that exactly one account may
// hold SYSTEM_ADMIN at a time.
package roles

import (
	"context"
	"errors"
	"time"
)

// SystemAdmin is the privileged role capped at one holder platform-wide.
const SystemAdmin = "SYSTEM_ADMIN"

// Seed roles created at bootstrap.
var SeedRoles = []Role{
	{Code: SystemAdmin, Description: "Platform administrator"},
	{Code: "SUPPORT_AGENT", Description: "Handles support and onboarding"},
	{Code: "REQUESTOR", Description: "Creates payment requests"},
	{Code: "AUTHORIZER", Description: "Approves payment requests"},
	{Code: "PAYMENT_EXECUTOR", Description: "Executes approved payments"},
}

var (
	ErrNotFound        = errors.New("role not found")
	ErrAlreadyAssigned = errors.New("role already assigned")

	// ErrPolicyViolation is returned when an assignment would give the
	// platform a second SYSTEM_ADMIN.
	ErrPolicyViolation = errors.New("role assignment violates single-admin policy")
)

// Role is a catalog entry.
type Role struct {
	Code        string    `json:"code"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Repo defines storage for roles and assignments.
type Repo interface {
	Create(ctx context.Context, role *Role) error

	// GetByCode retrieves a catalog entry or ErrNotFound.
	GetByCode(ctx context.Context, code string) (*Role, error)

	List(ctx context.Context) ([]*Role, error)

	// Assign links a user to a role. Returns ErrAlreadyAssigned on a
	// duplicate and ErrPolicyViolation when the store-level single-admin
	// constraint fires.
	Assign(ctx context.Context, userID, roleCode string) error

	// Remove unlinks a user from a role. Removing an assignment that does
	// not exist is a no-op.
	Remove(ctx context.Context, userID, roleCode string) error

	// CodesForUser returns the role codes assigned to the user.
	CodesForUser(ctx context.Context, userID string) ([]string, error)

	// HasAssignment reports whether the user holds the role.
	HasAssignment(ctx context.Context, userID, roleCode string) (bool, error)

	// CountByRole counts how many users hold the role.
	CountByRole(ctx context.Context, roleCode string) (int64, error)
}

package server

import (
	"context"
	"errors"
	"slices"

	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/andinasec/login-global/internal/config"
	"github.com/andinasec/login-global/roles"
	"github.com/andinasec/login-global/users"
)

// BootstrapDeps carries the collaborators system initialisation needs.
type BootstrapDeps struct {
	UserRepo    users.Repo
	UserService *users.Service
	RoleService *roles.Service
}

// Bootstrap seeds the role catalog and, when ADMIN_EMAIL is configured,
// guarantees a SYSTEM_ADMIN account exists. Safe to run on every startup.
func Bootstrap(ctx context.Context, log zerolog.Logger, cfg config.Config, deps BootstrapDeps) error {
	if err := deps.RoleService.Seed(ctx); err != nil {
		return pkgerrors.Wrap(err, "[Bootstrap] seed roles")
	}

	adminEmail := cfg.GetAdminEmail()
	if adminEmail == "" {
		log.Warn().Msg("ADMIN_EMAIL not set, skipping admin bootstrap")
		return nil
	}

	admin, err := deps.UserRepo.GetByEmail(ctx, adminEmail)
	if errors.Is(err, users.ErrNotFound) {
		admin, err = deps.UserService.Create(ctx, users.NewUser{
			Email:     adminEmail,
			FirstName: "System",
			LastName:  "Administrator",
		})
		if err != nil {
			return pkgerrors.Wrap(err, "[Bootstrap] create admin user")
		}
		log.Info().Str("email", adminEmail).Msg("admin account created, activation mail sent")
	} else if err != nil {
		return pkgerrors.Wrap(err, "[Bootstrap] look up admin user")
	}

	held, err := deps.RoleService.CodesForUser(ctx, admin.ID)
	if err != nil {
		return pkgerrors.Wrap(err, "[Bootstrap] list admin roles")
	}
	if slices.Contains(held, roles.SystemAdmin) {
		return nil
	}

	if err := deps.RoleService.Assign(ctx, admin.ID, roles.SystemAdmin); err != nil {
		if errors.Is(err, roles.ErrPolicyViolation) {
			// someone else already holds SYSTEM_ADMIN; leave it be
			log.Warn().Str("email", adminEmail).Msg("SYSTEM_ADMIN already held by another account")
			return nil
		}
		return pkgerrors.Wrap(err, "[Bootstrap] assign SYSTEM_ADMIN")
	}
	log.Info().Str("email", adminEmail).Msg("SYSTEM_ADMIN assigned")
	return nil
}

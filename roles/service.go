package roles

import (
	"context"
	"fmt"

	pkgerrors "github.com/pkg/errors"

	"github.com/andinasec/login-global/audit"
	"github.com/andinasec/login-global/users"
)

// Service enforces assignment policy on top of the raw repo. The
// single-admin check runs here for a clear error, and again as a store
// constraint so two racing assignments cannot both slip through.
type Service struct {
	repo     Repo
	userRepo users.Repo
	auditor  audit.Recorder
}

func NewService(repo Repo, userRepo users.Repo, auditor audit.Recorder) *Service {
	return &Service{repo: repo, userRepo: userRepo, auditor: auditor}
}

// List returns the role catalog.
func (s *Service) List(ctx context.Context) ([]*Role, error) {
	return s.repo.List(ctx)
}

// Assign grants a role to a user.
func (s *Service) Assign(ctx context.Context, userID, roleCode string) error {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return pkgerrors.Wrap(err, "[Service.Assign] userRepo.GetByID")
	}
	if _, err := s.repo.GetByCode(ctx, roleCode); err != nil {
		return pkgerrors.Wrap(err, "[Service.Assign] repo.GetByCode")
	}

	if roleCode == SystemAdmin {
		count, err := s.repo.CountByRole(ctx, SystemAdmin)
		if err != nil {
			return pkgerrors.Wrap(err, "[Service.Assign] repo.CountByRole")
		}
		if count > 0 {
			return ErrPolicyViolation
		}
	}

	if err := s.repo.Assign(ctx, userID, roleCode); err != nil {
		return err
	}

	s.auditor.Record(ctx, audit.Event{
		UserID:      userID,
		Action:      audit.ActionRoleAssigned,
		Description: fmt.Sprintf("role %s assigned", roleCode),
	})
	return nil
}

// Remove revokes a role from a user. Removing an absent assignment succeeds
// silently.
func (s *Service) Remove(ctx context.Context, userID, roleCode string) error {
	held, err := s.repo.HasAssignment(ctx, userID, roleCode)
	if err != nil {
		return pkgerrors.Wrap(err, "[Service.Remove] repo.HasAssignment")
	}
	if !held {
		return nil
	}

	if err := s.repo.Remove(ctx, userID, roleCode); err != nil {
		return pkgerrors.Wrap(err, "[Service.Remove] repo.Remove")
	}

	s.auditor.Record(ctx, audit.Event{
		UserID:      userID,
		Action:      audit.ActionRoleRemoved,
		Description: fmt.Sprintf("role %s removed", roleCode),
	})
	return nil
}

// CodesForUser returns the role codes assigned to the user.
func (s *Service) CodesForUser(ctx context.Context, userID string) ([]string, error) {
	return s.repo.CodesForUser(ctx, userID)
}

// Seed inserts the catalog's seed roles, skipping those already present.
func (s *Service) Seed(ctx context.Context) error {
	for i := range SeedRoles {
		role := SeedRoles[i]
		if _, err := s.repo.GetByCode(ctx, role.Code); err == nil {
			continue
		}
		if err := s.repo.Create(ctx, &role); err != nil {
			return pkgerrors.Wrapf(err, "[Service.Seed] repo.Create %s", role.Code)
		}
	}
	return nil
}

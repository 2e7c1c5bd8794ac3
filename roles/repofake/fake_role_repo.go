package rolerepofake

import (
	"context"
	"sort"
	"sync"

	"github.com/andinasec/login-global/roles"
)

var _ roles.Repo = (*FakeRoleRepo)(nil)

type assignment struct {
	userID   string
	roleCode string
}

type FakeRoleRepo struct {
	byCode      map[string]*roles.Role
	assignments map[assignment]bool
	lock        sync.RWMutex
}

func NewFakeRoleRepo() *FakeRoleRepo {
	return &FakeRoleRepo{
		byCode:      make(map[string]*roles.Role),
		assignments: make(map[assignment]bool),
	}
}

func (r *FakeRoleRepo) Create(_ context.Context, role *roles.Role) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	copied := *role
	r.byCode[role.Code] = &copied
	return nil
}

func (r *FakeRoleRepo) GetByCode(_ context.Context, code string) (*roles.Role, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	role, ok := r.byCode[code]
	if !ok {
		return nil, roles.ErrNotFound
	}
	copied := *role
	return &copied, nil
}

func (r *FakeRoleRepo) List(_ context.Context) ([]*roles.Role, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	all := make([]*roles.Role, 0, len(r.byCode))
	for _, role := range r.byCode {
		copied := *role
		all = append(all, &copied)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Code < all[j].Code })
	return all, nil
}

func (r *FakeRoleRepo) Assign(_ context.Context, userID, roleCode string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	key := assignment{userID: userID, roleCode: roleCode}
	if r.assignments[key] {
		return roles.ErrAlreadyAssigned
	}
	if roleCode == roles.SystemAdmin {
		for existing := range r.assignments {
			if existing.roleCode == roles.SystemAdmin {
				return roles.ErrPolicyViolation
			}
		}
	}
	r.assignments[key] = true
	return nil
}

func (r *FakeRoleRepo) Remove(_ context.Context, userID, roleCode string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	delete(r.assignments, assignment{userID: userID, roleCode: roleCode})
	return nil
}

func (r *FakeRoleRepo) CodesForUser(_ context.Context, userID string) ([]string, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	var codes []string
	for key := range r.assignments {
		if key.userID == userID {
			codes = append(codes, key.roleCode)
		}
	}
	sort.Strings(codes)
	return codes, nil
}

func (r *FakeRoleRepo) HasAssignment(_ context.Context, userID, roleCode string) (bool, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	return r.assignments[assignment{userID: userID, roleCode: roleCode}], nil
}

func (r *FakeRoleRepo) CountByRole(_ context.Context, roleCode string) (int64, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	var count int64
	for key := range r.assignments {
		if key.roleCode == roleCode {
			count++
		}
	}
	return count, nil
}

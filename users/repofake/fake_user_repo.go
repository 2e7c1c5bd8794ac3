package userrepofake

import (
	"context"
	"sort"
	"sync"

	"github.com/andinasec/login-global/users"
)

var _ users.Repo = (*FakeUserRepo)(nil)

type FakeUserRepo struct {
	byID    map[string]*users.User
	byEmail map[string]string // email to user ID
	systems map[string][]string
	lock    sync.RWMutex
}

func NewFakeUserRepo() *FakeUserRepo {
	return &FakeUserRepo{
		byID:    make(map[string]*users.User),
		byEmail: make(map[string]string),
		systems: make(map[string][]string),
	}
}

func (r *FakeUserRepo) Create(_ context.Context, user *users.User) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if _, ok := r.byEmail[user.Email]; ok {
		return users.ErrEmailTaken
	}
	copied := *user
	r.byID[user.ID] = &copied
	r.byEmail[user.Email] = user.ID
	return nil
}

func (r *FakeUserRepo) GetByID(_ context.Context, id string) (*users.User, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	user, ok := r.byID[id]
	if !ok {
		return nil, users.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (r *FakeUserRepo) GetByEmail(_ context.Context, email string) (*users.User, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, users.ErrNotFound
	}
	copied := *r.byID[id]
	return &copied, nil
}

func (r *FakeUserRepo) List(_ context.Context, offset, limit int) ([]*users.User, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	all := make([]*users.User, 0, len(r.byID))
	for _, u := range r.byID {
		copied := *u
		all = append(all, &copied)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Email < all[j].Email })

	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (r *FakeUserRepo) SetStatus(_ context.Context, id string, status users.Status) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	user, ok := r.byID[id]
	if !ok {
		return users.ErrNotFound
	}
	user.Status = status
	return nil
}

func (r *FakeUserRepo) SetPassword(_ context.Context, id string, passwordHash string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	user, ok := r.byID[id]
	if !ok {
		return users.ErrNotFound
	}
	user.PasswordHash = passwordHash
	return nil
}

func (r *FakeUserRepo) SystemCodes(_ context.Context, userID string) ([]string, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	codes := make([]string, len(r.systems[userID]))
	copy(codes, r.systems[userID])
	return codes, nil
}

// GrantSystem records a system grant for test setups.
func (r *FakeUserRepo) GrantSystem(userID, systemCode string) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.systems[userID] = append(r.systems[userID], systemCode)
}

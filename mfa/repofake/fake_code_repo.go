package mfarepofake

import (
	"context"
	"sync"
	"time"

	"github.com/andinasec/login-global/mfa"
)

var _ mfa.Repo = (*FakeCodeRepo)(nil)

type FakeCodeRepo struct {
	byID map[string]*mfa.Code
	lock sync.Mutex
}

func NewFakeCodeRepo() *FakeCodeRepo {
	return &FakeCodeRepo{byID: make(map[string]*mfa.Code)}
}

func (r *FakeCodeRepo) Create(_ context.Context, code *mfa.Code) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	copied := *code
	r.byID[code.ID] = &copied
	return nil
}

func (r *FakeCodeRepo) FindValid(_ context.Context, userID, code string, now time.Time) (*mfa.Code, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	for _, record := range r.byID {
		if record.UserID == userID && record.Code == code && !record.Used && record.ExpiresAt.After(now) {
			copied := *record
			return &copied, nil
		}
	}
	return nil, mfa.ErrInvalidCode
}

func (r *FakeCodeRepo) Consume(_ context.Context, id string) (bool, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	record, ok := r.byID[id]
	if !ok || record.Used {
		return false, nil
	}
	record.Used = true
	return true, nil
}

func (r *FakeCodeRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	var deleted int64
	for id, record := range r.byID {
		if !record.ExpiresAt.After(now) {
			delete(r.byID, id)
			deleted++
		}
	}
	return deleted, nil
}

// Outstanding returns the number of stored codes for a user. Test helper.
func (r *FakeCodeRepo) Outstanding(userID string) int {
	r.lock.Lock()
	defer r.lock.Unlock()

	count := 0
	for _, record := range r.byID {
		if record.UserID == userID {
			count++
		}
	}
	return count
}

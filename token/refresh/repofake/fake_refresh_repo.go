package refreshrepofake

import (
	"context"
	"sync"
	"time"

	"github.com/andinasec/login-global/token/refresh"
)

var _ refresh.Repo = (*FakeRefreshRepo)(nil)

type FakeRefreshRepo struct {
	byToken map[string]*refresh.StoredRefreshToken
	lock    sync.RWMutex
}

func NewFakeRefreshRepo() *FakeRefreshRepo {
	return &FakeRefreshRepo{byToken: make(map[string]*refresh.StoredRefreshToken)}
}

func (r *FakeRefreshRepo) Create(_ context.Context, token *refresh.StoredRefreshToken) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	copied := *token
	r.byToken[token.Token] = &copied
	return nil
}

func (r *FakeRefreshRepo) Get(_ context.Context, token string) (*refresh.StoredRefreshToken, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	record, ok := r.byToken[token]
	if !ok {
		return nil, refresh.ErrNotFound
	}
	copied := *record
	return &copied, nil
}

func (r *FakeRefreshRepo) RevokeByUser(_ context.Context, userID string) (int64, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	var revoked int64
	for _, record := range r.byToken {
		if record.UserID == userID && !record.Revoked {
			record.Revoked = true
			revoked++
		}
	}
	return revoked, nil
}

func (r *FakeRefreshRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	var deleted int64
	for token, record := range r.byToken {
		if !record.ExpiresAt.After(now) {
			delete(r.byToken, token)
			deleted++
		}
	}
	return deleted, nil
}

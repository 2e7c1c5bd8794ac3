package activationrepofake

import (
	"context"
	"sync"
	"time"

	"github.com/andinasec/login-global/activation"
)

var _ activation.Repo = (*FakeTokenRepo)(nil)

type FakeTokenRepo struct {
	byToken map[string]*activation.Token
	lock    sync.Mutex
}

func NewFakeTokenRepo() *FakeTokenRepo {
	return &FakeTokenRepo{byToken: make(map[string]*activation.Token)}
}

func (r *FakeTokenRepo) DeleteByEmail(_ context.Context, email string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	for token, record := range r.byToken {
		if record.Email == email {
			delete(r.byToken, token)
		}
	}
	return nil
}

func (r *FakeTokenRepo) Create(_ context.Context, token *activation.Token) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	copied := *token
	r.byToken[token.Token] = &copied
	return nil
}

func (r *FakeTokenRepo) Get(_ context.Context, token string) (*activation.Token, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	record, ok := r.byToken[token]
	if !ok {
		return nil, activation.ErrTokenNotFound
	}
	copied := *record
	return &copied, nil
}

func (r *FakeTokenRepo) MarkUsed(_ context.Context, token string) (bool, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	record, ok := r.byToken[token]
	if !ok || record.Used {
		return false, nil
	}
	record.Used = true
	return true, nil
}

func (r *FakeTokenRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
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

package sessionrepofakes

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/andinasec/login-global/auth/sessions"
)

var _ sessions.Repo = (*FakeSessionRepo)(nil)

type FakeSessionRepo struct {
	byID map[string]*sessions.Session
	lock sync.RWMutex
}

func NewFakeSessionRepo() *FakeSessionRepo {
	return &FakeSessionRepo{byID: make(map[string]*sessions.Session)}
}

func (r *FakeSessionRepo) Create(_ context.Context, session *sessions.Session) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	copied := *session
	r.byID[session.ID] = &copied
	return nil
}

func (r *FakeSessionRepo) Get(_ context.Context, sessionID string) (*sessions.Session, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	session, ok := r.byID[sessionID]
	if !ok {
		return nil, sessions.ErrNotFound
	}
	copied := *session
	return &copied, nil
}

func (r *FakeSessionRepo) Activate(_ context.Context, sessionID string, expiresAt time.Time) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	session, ok := r.byID[sessionID]
	if !ok {
		return sessions.ErrNotFound
	}
	session.Active = true
	session.ExpiresAt = expiresAt
	return nil
}

func (r *FakeSessionRepo) Deactivate(_ context.Context, sessionID, userID string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	session, ok := r.byID[sessionID]
	if !ok || session.UserID != userID {
		return nil // scoped update matching zero rows is a no-op
	}
	session.Active = false
	return nil
}

func (r *FakeSessionRepo) ActiveByUser(_ context.Context, userID string) ([]*sessions.Session, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	now := time.Now()
	active := make([]*sessions.Session, 0)
	for _, session := range r.byID {
		if session.UserID == userID && session.Active && !session.Expired(now) {
			copied := *session
			active = append(active, &copied)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].CreatedAt.After(active[j].CreatedAt) })
	return active, nil
}

func (r *FakeSessionRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	var deleted int64
	for id, session := range r.byID {
		if session.Expired(now) {
			delete(r.byID, id)
			deleted++
		}
	}
	return deleted, nil
}

// DeactivateAll marks every session of the user inactive. Used by the
// in-memory revoker.
func (r *FakeSessionRepo) DeactivateAll(_ context.Context, userID string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	for _, session := range r.byID {
		if session.UserID == userID {
			session.Active = false
		}
	}
	return nil
}

package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/sfbridge/sfbridge/internal/errors"
)

// InMemoryRepo is the fallback session store used when Redis is unreachable.
// Sessions do not survive a restart; the caller is expected to log the
// durability downgrade loudly when choosing this backend.
type InMemoryRepo struct {
	mu       sync.RWMutex
	ttl      time.Duration
	sessions map[string]Session
}

func NewInMemoryRepo(ttl time.Duration) *InMemoryRepo {
	return &InMemoryRepo{
		ttl:      ttl,
		sessions: make(map[string]Session),
	}
}

func (r *InMemoryRepo) Get(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, errors.ErrSessionNotFound
	}

	r.mu.RLock()
	session, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.ErrSessionNotFound
	}
	if session.IsExpired() {
		r.mu.Lock()
		delete(r.sessions, id)
		r.mu.Unlock()
		return nil, errors.ErrSessionNotFound
	}

	// Copy so callers can't mutate the stored record without a Save.
	out := session
	return &out, nil
}

func (r *InMemoryRepo) Save(ctx context.Context, session *Session) error {
	if session == nil || session.ID == "" {
		return errors.Wrapf(errors.ErrSessionPersistence, "session id is required")
	}
	session.ExpiresAt = time.Now().Add(r.ttl)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.ID] = *session
	return nil
}

func (r *InMemoryRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	return nil
}

func (r *InMemoryRepo) Kind() string { return "memory" }

func (r *InMemoryRepo) Close() error { return nil }

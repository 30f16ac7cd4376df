// Package memory provides the default in-process SessionStore. Sessions are
// guarded per id so a slow mark on one session never blocks another.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/campuskit/checkin/domain"
	"github.com/campuskit/checkin/repository"
)

type entry struct {
	mu      sync.Mutex
	session *domain.Session
}

type sessionStore struct {
	mu      sync.RWMutex
	entries map[string]*entry
	now     func() time.Time
}

// NewSessionStore creates an empty in-memory session store.
func NewSessionStore() repository.SessionStore {
	return &sessionStore{
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

// NewSessionStoreWithClock is used by tests to control expiry.
func NewSessionStoreWithClock(now func() time.Time) repository.SessionStore {
	if now == nil {
		now = time.Now
	}
	return &sessionStore{
		entries: make(map[string]*entry),
		now:     now,
	}
}

func (s *sessionStore) Put(ctx context.Context, session *domain.Session) error {
	if session == nil || session.ID == "" {
		return domain.ErrInvalidPayload
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[session.ID] = &entry{session: session.Clone()}
	return nil
}

func (s *sessionStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	e, ok := s.lookup(id)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session.IsExpired(s.now()) {
		s.evict(id, e)
		return nil, domain.ErrSessionNotFound
	}
	return e.session.Clone(), nil
}

func (s *sessionStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
	return nil
}

func (s *sessionStore) Mutate(ctx context.Context, id string, fn repository.MutateFunc) error {
	e, ok := s.lookup(id)
	if !ok {
		return domain.ErrSessionNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// The entry may have been deleted or replaced between lookup and lock.
	if current, ok := s.lookup(id); !ok || current != e {
		return domain.ErrSessionNotFound
	}

	if e.session.IsExpired(s.now()) {
		s.evict(id, e)
		return domain.ErrSessionNotFound
	}

	// fn works on a copy; the stored session only advances on success.
	draft := e.session.Clone()
	if err := fn(draft); err != nil {
		return err
	}
	e.session = draft
	return nil
}

func (s *sessionStore) Sweep(ctx context.Context) (int, error) {
	s.mu.RLock()
	ids := make([]string, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	evicted := 0
	for _, id := range ids {
		e, ok := s.lookup(id)
		if !ok {
			continue
		}
		e.mu.Lock()
		if e.session.IsExpired(s.now()) {
			if s.evict(id, e) {
				evicted++
			}
		}
		e.mu.Unlock()
	}
	return evicted, nil
}

func (s *sessionStore) lookup(id string) (*entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	return e, ok
}

// evict removes the entry only if the map still holds this exact entry,
// so it cannot clobber a session re-created under the same id.
func (s *sessionStore) evict(id string, e *entry) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.entries[id]; ok && current == e {
		delete(s.entries, id)
		return true
	}
	return false
}

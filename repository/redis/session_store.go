// Package redis provides a Redis-backed SessionStore so deployments that
// restart frequently do not lose open check-in windows. Per-session
// serialization uses node-local guards; running several writer nodes against
// the same Redis is out of scope.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	redislib "github.com/redis/go-redis/v9"

	"github.com/campuskit/checkin/domain"
	"github.com/campuskit/checkin/repository"
)

type sessionStore struct {
	client *redislib.Client
	prefix string

	mu     sync.Mutex
	guards map[string]*sync.Mutex
}

// NewSessionStore creates a Redis-backed session store.
func NewSessionStore(client *redislib.Client) repository.SessionStore {
	return &sessionStore{
		client: client,
		prefix: "checkin:session:",
		guards: make(map[string]*sync.Mutex),
	}
}

func (s *sessionStore) Put(ctx context.Context, session *domain.Session) error {
	if session == nil || session.ID == "" {
		return domain.ErrInvalidPayload
	}

	payload, err := json.Marshal(session)
	if err != nil {
		return err
	}

	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return domain.ErrSessionExpired
	}

	return s.client.Set(ctx, s.key(session.ID), payload, ttl).Err()
}

func (s *sessionStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	session, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.IsExpired(time.Now()) {
		_ = s.client.Del(ctx, s.key(id)).Err()
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

func (s *sessionStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, s.key(id)).Err()
}

func (s *sessionStore) Mutate(ctx context.Context, id string, fn repository.MutateFunc) error {
	guard := s.guard(id)
	guard.Lock()
	defer guard.Unlock()

	session, err := s.fetch(ctx, id)
	if err != nil {
		return err
	}
	if session.IsExpired(time.Now()) {
		_ = s.client.Del(ctx, s.key(id)).Err()
		return domain.ErrSessionNotFound
	}

	if err := fn(session); err != nil {
		return err
	}

	payload, err := json.Marshal(session)
	if err != nil {
		return err
	}
	// Keep the original expiry; sessions are never extended.
	return s.client.Set(ctx, s.key(id), payload, redislib.KeepTTL).Err()
}

// Sweep is a no-op: Redis evicts keys on its own once their TTL elapses.
func (s *sessionStore) Sweep(ctx context.Context) (int, error) {
	return 0, nil
}

func (s *sessionStore) fetch(ctx context.Context, id string) (*domain.Session, error) {
	result, err := s.client.Get(ctx, s.key(id)).Result()
	if err != nil {
		if err == redislib.Nil {
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}

	var session domain.Session
	if err := json.Unmarshal([]byte(result), &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *sessionStore) guard(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.guards[id]
	if !ok {
		g = &sync.Mutex{}
		s.guards[id] = g
	}
	return g
}

func (s *sessionStore) key(id string) string {
	return fmt.Sprintf("%s%s", s.prefix, id)
}

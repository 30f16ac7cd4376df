package repository

import (
	"context"

	"github.com/campuskit/checkin/domain"
)

// MutateFunc runs with exclusive access to one session. Returning an error
// discards any mutation it made; the stored session only advances when the
// function returns nil.
type MutateFunc func(session *domain.Session) error

// SessionStore owns all live check-in sessions. Implementations must
// serialize operations per session id while letting distinct ids proceed
// concurrently, and Get must lazily evict entries past their expiry.
// Delete is idempotent: removing an absent id is a no-op, which lets the
// one-shot expiry timer race safely with lazy eviction.
type SessionStore interface {
	Put(ctx context.Context, session *domain.Session) error
	Get(ctx context.Context, id string) (*domain.Session, error)
	Delete(ctx context.Context, id string) error

	// Mutate runs fn under the session's exclusive guard. It returns
	// domain.ErrSessionNotFound when the id is absent or already expired
	// (evicting it in the latter case).
	Mutate(ctx context.Context, id string, fn MutateFunc) error

	// Sweep removes every expired session and returns how many it evicted.
	// Correctness never depends on it; it only bounds memory between Gets.
	Sweep(ctx context.Context) (int, error)
}

// Package ratelimit bounds how often a client may poll a session's status.
// It is pure window bookkeeping and knows nothing about sessions beyond
// using their id inside the key.
package ratelimit

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"time"
)

// Limiter keeps a sliding window of request timestamps per
// (clientKey, sessionID) pair.
type Limiter struct {
	window      time.Duration
	maxRequests int
	now         func() time.Time

	mu      sync.Mutex
	windows map[string][]time.Time
}

// New creates a limiter allowing maxRequests per window for each key.
func New(window time.Duration, maxRequests int) *Limiter {
	if window <= 0 {
		window = 5 * time.Second
	}
	if maxRequests <= 0 {
		maxRequests = 3
	}
	return &Limiter{
		window:      window,
		maxRequests: maxRequests,
		now:         time.Now,
		windows:     make(map[string][]time.Time),
	}
}

// NewWithClock is used by tests to control time.
func NewWithClock(window time.Duration, maxRequests int, now func() time.Time) *Limiter {
	l := New(window, maxRequests)
	if now != nil {
		l.now = now
	}
	return l
}

// Allow prunes stale timestamps for the key, then either records the request
// and returns true, or denies it and returns false.
func (l *Limiter) Allow(clientKey, sessionID string) bool {
	key := l.key(clientKey, sessionID)
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	window := prune(l.windows[key], now.Add(-l.window))
	if len(window) >= l.maxRequests {
		l.windows[key] = window
		return false
	}
	l.windows[key] = append(window, now)
	return true
}

// RetryAfterSeconds reports how long a denied client should wait.
func (l *Limiter) RetryAfterSeconds() int {
	return int(math.Ceil(l.window.Seconds()))
}

// PurgeSession drops every window tied to the session. Called when a session
// dies so limiter state does not outlive it.
func (l *Limiter) PurgeSession(sessionID string) {
	suffix := keySeparator + sessionID

	l.mu.Lock()
	defer l.mu.Unlock()
	for key := range l.windows {
		if strings.HasSuffix(key, suffix) {
			delete(l.windows, key)
		}
	}
}

// Sweep removes windows whose every timestamp has aged out. A periodic
// backstop for keys whose session was never deleted through PurgeSession.
func (l *Limiter) Sweep() int {
	cutoff := l.now().Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, window := range l.windows {
		if len(prune(window, cutoff)) == 0 {
			delete(l.windows, key)
			removed++
		}
	}
	return removed
}

// Len reports how many keys are currently tracked.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

const keySeparator = "|"

func (l *Limiter) key(clientKey, sessionID string) string {
	return fmt.Sprintf("%s%s%s", clientKey, keySeparator, sessionID)
}

func prune(window []time.Time, cutoff time.Time) []time.Time {
	idx := len(window)
	for i, t := range window {
		if t.After(cutoff) {
			idx = i
			break
		}
	}
	return window[idx:]
}

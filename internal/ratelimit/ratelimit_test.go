package ratelimit_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/campuskit/checkin/internal/ratelimit"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestAllowWithinWindow(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	limiter := ratelimit.NewWithClock(5*time.Second, 3, clock.Now)

	for i := 0; i < 3; i++ {
		assert.True(t, limiter.Allow("client-1", "sess-1"), "request %d should pass", i+1)
		clock.Advance(300 * time.Millisecond)
	}

	assert.False(t, limiter.Allow("client-1", "sess-1"), "4th request inside the window must be denied")
	assert.Equal(t, 5, limiter.RetryAfterSeconds())
}

func TestAllowAfterWindowPasses(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	limiter := ratelimit.NewWithClock(5*time.Second, 3, clock.Now)

	for i := 0; i < 3; i++ {
		assert.True(t, limiter.Allow("client-1", "sess-1"))
	}
	assert.False(t, limiter.Allow("client-1", "sess-1"))

	clock.Advance(6 * time.Second)
	assert.True(t, limiter.Allow("client-1", "sess-1"), "window elapsed, request should pass again")
}

func TestKeysAreIndependent(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	limiter := ratelimit.NewWithClock(5*time.Second, 1, clock.Now)

	assert.True(t, limiter.Allow("client-1", "sess-1"))
	assert.False(t, limiter.Allow("client-1", "sess-1"))

	// A different client, and the same client on a different session,
	// are unaffected.
	assert.True(t, limiter.Allow("client-2", "sess-1"))
	assert.True(t, limiter.Allow("client-1", "sess-2"))
}

func TestPurgeSession(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	limiter := ratelimit.NewWithClock(5*time.Second, 1, clock.Now)

	assert.True(t, limiter.Allow("client-1", "sess-1"))
	assert.True(t, limiter.Allow("client-2", "sess-1"))
	assert.True(t, limiter.Allow("client-1", "sess-2"))
	assert.Equal(t, 3, limiter.Len())

	limiter.PurgeSession("sess-1")
	assert.Equal(t, 1, limiter.Len())

	// Purged keys start a fresh window.
	assert.True(t, limiter.Allow("client-1", "sess-1"))
	// The surviving key's window is untouched.
	assert.False(t, limiter.Allow("client-1", "sess-2"))
}

func TestSweepRemovesStaleWindows(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	limiter := ratelimit.NewWithClock(5*time.Second, 3, clock.Now)

	limiter.Allow("client-1", "sess-1")
	limiter.Allow("client-2", "sess-2")
	clock.Advance(3 * time.Second)
	limiter.Allow("client-3", "sess-3")

	clock.Advance(3 * time.Second)

	removed := limiter.Sweep()
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, limiter.Len())
}

func TestConcurrentAllow(t *testing.T) {
	limiter := ratelimit.New(5*time.Second, 3)

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if limiter.Allow("client-1", "sess-1") {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, allowed)
}

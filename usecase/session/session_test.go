package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuskit/checkin/domain"
	"github.com/campuskit/checkin/internal/ratelimit"
	"github.com/campuskit/checkin/repository"
	"github.com/campuskit/checkin/repository/memory"
	sessionUC "github.com/campuskit/checkin/usecase/session"
)

func newUseCase(ttl time.Duration, maxPolls int) (*sessionUC.UseCase, repository.SessionStore, *ratelimit.Limiter) {
	store := memory.NewSessionStore()
	limiter := ratelimit.New(5*time.Second, maxPolls)
	uc := sessionUC.New(store, limiter, sessionUC.Config{
		TTL:            ttl,
		PollIntervalMs: 2000,
	}, nil)
	return uc, store, limiter
}

func TestIssueDefaultsClassMetadata(t *testing.T) {
	uc, _, _ := newUseCase(5*time.Minute, 3)

	sess, err := uc.Issue(context.Background(), "", "", nil)
	require.NoError(t, err)

	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, "unassigned", sess.ClassID)
	assert.Equal(t, "Unassigned Class", sess.ClassName)
	assert.Nil(t, sess.RequiredLocation)
	assert.WithinDuration(t, sess.CreatedAt.Add(5*time.Minute), sess.ExpiresAt, time.Second)
}

func TestIssueGeneratesUniqueIDs(t *testing.T) {
	uc, store, _ := newUseCase(5*time.Minute, 3)

	a, err := uc.Issue(context.Background(), "CS101", "Operating Systems", nil)
	require.NoError(t, err)
	b, err := uc.Issue(context.Background(), "CS101", "Operating Systems", nil)
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)

	// Both live in the store.
	_, err = store.Get(context.Background(), a.ID)
	assert.NoError(t, err)
	_, err = store.Get(context.Background(), b.ID)
	assert.NoError(t, err)
}

func TestIssueKeepsRequiredLocation(t *testing.T) {
	uc, store, _ := newUseCase(5*time.Minute, 3)

	loc := &domain.Location{Latitude: 40.0, Longitude: -75.0}
	sess, err := uc.Issue(context.Background(), "CS101", "Operating Systems", loc)
	require.NoError(t, err)

	stored, err := store.Get(context.Background(), sess.ID)
	require.NoError(t, err)
	require.True(t, stored.RequiresGeofence())
	assert.Equal(t, 40.0, stored.RequiredLocation.Latitude)
}

func TestTimerEvictsSessionAndLimiterKeys(t *testing.T) {
	uc, store, limiter := newUseCase(50*time.Millisecond, 3)

	sess, err := uc.Issue(context.Background(), "CS101", "Operating Systems", nil)
	require.NoError(t, err)

	// Build up limiter state tied to the session.
	limiter.Allow("client-1", sess.ID)
	require.Equal(t, 1, limiter.Len())

	assert.Eventually(t, func() bool {
		_, err := store.Get(context.Background(), sess.ID)
		return err != nil && limiter.Len() == 0
	}, 2*time.Second, 20*time.Millisecond)
}

func TestGetStatus(t *testing.T) {
	uc, store, _ := newUseCase(5*time.Minute, 3)

	sess, err := uc.Issue(context.Background(), "CS101", "Operating Systems", nil)
	require.NoError(t, err)

	require.NoError(t, store.Mutate(context.Background(), sess.ID, func(s *domain.Session) error {
		s.Attendees = append(s.Attendees, domain.Attendee{StudentID: "stu-1", StudentName: "Jane Doe"})
		return nil
	}))

	status, err := uc.GetStatus(context.Background(), sess.ID, "client-1")
	require.NoError(t, err)

	assert.True(t, status.Active)
	assert.Greater(t, status.TimeLeftSeconds, 0)
	assert.LessOrEqual(t, status.TimeLeftSeconds, 300)
	assert.Equal(t, 1, status.AttendeeCount)
	require.Len(t, status.Attendees, 1)
	assert.Equal(t, "Jane Doe", status.Attendees[0].StudentName)
	assert.Equal(t, 2000, status.SuggestedPollIntervalMs)
}

func TestGetStatusUnknownSession(t *testing.T) {
	uc, _, _ := newUseCase(5*time.Minute, 3)

	_, err := uc.GetStatus(context.Background(), "missing", "client-1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestGetStatusRateLimited(t *testing.T) {
	uc, _, _ := newUseCase(5*time.Minute, 3)

	sess, err := uc.Issue(context.Background(), "CS101", "Operating Systems", nil)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := uc.GetStatus(context.Background(), sess.ID, "client-1")
		require.NoError(t, err)
	}

	_, err = uc.GetStatus(context.Background(), sess.ID, "client-1")
	var rlErr *domain.RateLimitError
	require.ErrorAs(t, err, &rlErr)
	assert.Equal(t, 5, rlErr.RetryAfterSeconds)

	// A different client is not throttled.
	_, err = uc.GetStatus(context.Background(), sess.ID, "client-2")
	assert.NoError(t, err)
}

func TestCloseSession(t *testing.T) {
	uc, store, limiter := newUseCase(5*time.Minute, 3)

	sess, err := uc.Issue(context.Background(), "CS101", "Operating Systems", nil)
	require.NoError(t, err)

	limiter.Allow("client-1", sess.ID)

	require.NoError(t, uc.Close(context.Background(), sess.ID))

	_, err = store.Get(context.Background(), sess.ID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.Equal(t, 0, limiter.Len())

	// Closing again is a no-op, mirroring idempotent deletes.
	assert.NoError(t, uc.Close(context.Background(), sess.ID))
}

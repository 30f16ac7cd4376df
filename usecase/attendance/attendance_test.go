package attendance_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuskit/checkin/domain"
	"github.com/campuskit/checkin/repository"
	"github.com/campuskit/checkin/repository/memory"
	"github.com/campuskit/checkin/usecase/attendance"
)

type fakeDirectory struct {
	students []*domain.Student
}

func (d *fakeDirectory) FindByIdentifier(_ context.Context, id string) (*domain.Student, error) {
	for _, s := range d.students {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, domain.ErrStudentNotFound
}

func (d *fakeDirectory) FindByEmail(_ context.Context, email string) (*domain.Student, error) {
	for _, s := range d.students {
		if strings.EqualFold(s.Email, email) {
			return s, nil
		}
	}
	return nil, domain.ErrStudentNotFound
}

func (d *fakeDirectory) FindByNameContains(_ context.Context, name string) (*domain.Student, error) {
	for _, s := range d.students {
		if strings.Contains(strings.ToLower(s.Name), strings.ToLower(name)) {
			return s, nil
		}
	}
	return nil, domain.ErrStudentNotFound
}

type fakeRecords struct {
	mu       sync.Mutex
	records  []*domain.AttendanceRecord
	failNext bool
}

func (r *fakeRecords) CreateRecord(_ context.Context, record *domain.AttendanceRecord) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failNext {
		r.failNext = false
		return "", domain.PersistenceError(assert.AnError)
	}
	record.ID = "rec-" + record.StudentID
	r.records = append(r.records, record)
	return record.ID, nil
}

func (r *fakeRecords) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

type fixture struct {
	directory *fakeDirectory
	records   *fakeRecords
	store     repository.SessionStore
	uc        *attendance.UseCase
}

func setup(t *testing.T) *fixture {
	t.Helper()

	directory := &fakeDirectory{students: []*domain.Student{
		{ID: "stu-1", Email: "jane.doe@university.edu", Name: "Jane Doe", Department: "CSE", Status: domain.StudentStatusActive},
		{ID: "stu-2", Email: "bob.smith@university.edu", Name: "Bob Smith", Department: "ECE", Status: domain.StudentStatusActive},
		{ID: "stu-3", Email: "old.grad@university.edu", Name: "Olivia Graduate", Department: "CSE", Status: domain.StudentStatusInactive},
	}}
	records := &fakeRecords{}
	store := memory.NewSessionStore()

	uc := attendance.New(directory, records, store, attendance.Config{
		GeofenceRadiusMeters: 100,
	}, nil)

	return &fixture{directory: directory, records: records, store: store, uc: uc}
}

func (f *fixture) putSession(t *testing.T, id string, location *domain.Location) {
	t.Helper()
	now := time.Now()
	require.NoError(t, f.store.Put(context.Background(), &domain.Session{
		ID:               id,
		ClassID:          "CS101",
		ClassName:        "Operating Systems",
		RequiredLocation: location,
		CreatedAt:        now,
		ExpiresAt:        now.Add(5 * time.Minute),
	}))
}

func ptr(v float64) *float64 { return &v }

func TestMarkHappyPathWithGeofence(t *testing.T) {
	f := setup(t)
	f.putSession(t, "sess-1", &domain.Location{Latitude: 40.000, Longitude: -75.000})

	conf, err := f.uc.Mark(context.Background(), attendance.MarkRequest{
		SessionID:         "sess-1",
		StudentIdentifier: "stu-1",
		Latitude:          ptr(40.0003),
		Longitude:         ptr(-75.000),
	})
	require.NoError(t, err)

	assert.Equal(t, "stu-1", conf.StudentID)
	assert.Equal(t, "Jane Doe", conf.StudentName)
	assert.Equal(t, "CSE", conf.Department)
	assert.Equal(t, "rec-stu-1", conf.RecordID)
	assert.True(t, conf.LocationVerified)
	require.NotNil(t, conf.DistanceMeters)
	assert.InDelta(t, 33.4, *conf.DistanceMeters, 1.0)

	sess, err := f.store.Get(context.Background(), "sess-1")
	require.NoError(t, err)
	require.Len(t, sess.Attendees, 1)
	assert.Equal(t, "Operating Systems", sess.Attendees[0].ClassName)
	assert.Equal(t, domain.AttendanceStatusPresent, sess.Attendees[0].Status)

	require.Equal(t, 1, f.records.count())
	require.NotNil(t, f.records.records[0].Geofence)
	assert.True(t, f.records.records[0].Geofence.Verified)
}

func TestMarkWithoutGeofence(t *testing.T) {
	f := setup(t)
	f.putSession(t, "sess-1", nil)

	conf, err := f.uc.Mark(context.Background(), attendance.MarkRequest{
		SessionID:         "sess-1",
		StudentIdentifier: "stu-1",
	})
	require.NoError(t, err)

	assert.False(t, conf.LocationVerified)
	assert.Nil(t, conf.DistanceMeters)
	assert.Nil(t, f.records.records[0].Geofence)
}

func TestMarkGeofenceViolation(t *testing.T) {
	f := setup(t)
	f.putSession(t, "sess-1", &domain.Location{Latitude: 40.000, Longitude: -75.000})

	_, err := f.uc.Mark(context.Background(), attendance.MarkRequest{
		SessionID:         "sess-1",
		StudentIdentifier: "stu-1",
		Latitude:          ptr(40.002),
		Longitude:         ptr(-75.000),
	})

	var gErr *domain.GeofenceError
	require.ErrorAs(t, err, &gErr)
	assert.InDelta(t, 222.4, gErr.DistanceMeters, 1.0)
	assert.Equal(t, 100.0, gErr.AllowedRadiusMeters)

	assert.Zero(t, f.records.count())
}

func TestMarkLocationRequired(t *testing.T) {
	f := setup(t)
	f.putSession(t, "sess-1", &domain.Location{Latitude: 40.000, Longitude: -75.000})

	_, err := f.uc.Mark(context.Background(), attendance.MarkRequest{
		SessionID:         "sess-1",
		StudentIdentifier: "stu-1",
	})
	assert.ErrorIs(t, err, domain.ErrLocationRequired)
}

func TestMarkRejectsMalformedCoordinates(t *testing.T) {
	f := setup(t)
	f.putSession(t, "sess-1", &domain.Location{Latitude: 40.000, Longitude: -75.000})

	_, err := f.uc.Mark(context.Background(), attendance.MarkRequest{
		SessionID:         "sess-1",
		StudentIdentifier: "stu-1",
		Latitude:          ptr(120.0),
		Longitude:         ptr(-75.000),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidCoordinates)
}

func TestMarkDoubleMark(t *testing.T) {
	f := setup(t)
	f.putSession(t, "sess-1", nil)

	_, err := f.uc.Mark(context.Background(), attendance.MarkRequest{
		SessionID:         "sess-1",
		StudentIdentifier: "stu-1",
	})
	require.NoError(t, err)

	_, err = f.uc.Mark(context.Background(), attendance.MarkRequest{
		SessionID:         "sess-1",
		StudentIdentifier: "stu-1",
	})
	assert.ErrorIs(t, err, domain.ErrAlreadyMarked)

	sess, err := f.store.Get(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Len(t, sess.Attendees, 1)
	assert.Equal(t, 1, f.records.count())
}

func TestMarkConcurrentSameStudent(t *testing.T) {
	f := setup(t)
	f.putSession(t, "sess-1", nil)

	const attempts = 12
	var wg sync.WaitGroup
	results := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.uc.Mark(context.Background(), attendance.MarkRequest{
				SessionID:         "sess-1",
				StudentIdentifier: "stu-1",
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded, alreadyMarked := 0, 0
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case assert.ErrorIs(t, err, domain.ErrAlreadyMarked):
			alreadyMarked++
		}
	}

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, attempts-1, alreadyMarked)
	assert.Equal(t, 1, f.records.count())
}

func TestMarkDifferentStudentsBothSucceed(t *testing.T) {
	f := setup(t)
	f.putSession(t, "sess-1", nil)

	for _, id := range []string{"stu-1", "stu-2"} {
		_, err := f.uc.Mark(context.Background(), attendance.MarkRequest{
			SessionID:         "sess-1",
			StudentIdentifier: id,
		})
		require.NoError(t, err)
	}

	sess, err := f.store.Get(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Len(t, sess.Attendees, 2)
}

func TestMarkSessionNotFound(t *testing.T) {
	f := setup(t)

	_, err := f.uc.Mark(context.Background(), attendance.MarkRequest{
		SessionID:         "never-issued",
		StudentIdentifier: "stu-1",
	})
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestMarkStudentNotFound(t *testing.T) {
	f := setup(t)
	f.putSession(t, "sess-1", nil)

	_, err := f.uc.Mark(context.Background(), attendance.MarkRequest{
		SessionID:         "sess-1",
		StudentIdentifier: "ghost",
	})
	assert.ErrorIs(t, err, domain.ErrStudentNotFound)
}

func TestMarkInactiveStudent(t *testing.T) {
	f := setup(t)
	f.putSession(t, "sess-1", nil)

	_, err := f.uc.Mark(context.Background(), attendance.MarkRequest{
		SessionID:         "sess-1",
		StudentIdentifier: "stu-3",
	})
	assert.ErrorIs(t, err, domain.ErrStudentInactive)
}

func TestMarkResolvesByEmail(t *testing.T) {
	f := setup(t)
	f.putSession(t, "sess-1", nil)

	conf, err := f.uc.Mark(context.Background(), attendance.MarkRequest{
		SessionID:         "sess-1",
		StudentIdentifier: "Jane.Doe@University.edu",
	})
	require.NoError(t, err)
	assert.Equal(t, "stu-1", conf.StudentID)
}

func TestMarkResolvesByNameAsLastResort(t *testing.T) {
	f := setup(t)
	f.putSession(t, "sess-1", nil)

	conf, err := f.uc.Mark(context.Background(), attendance.MarkRequest{
		SessionID:         "sess-1",
		StudentIdentifier: "unknown-id",
		StudentName:       "bob sm",
	})
	require.NoError(t, err)
	assert.Equal(t, "stu-2", conf.StudentID)
}

func TestMarkPersistenceFailureRollsBack(t *testing.T) {
	f := setup(t)
	f.putSession(t, "sess-1", nil)

	f.records.failNext = true
	_, err := f.uc.Mark(context.Background(), attendance.MarkRequest{
		SessionID:         "sess-1",
		StudentIdentifier: "stu-1",
	})
	require.Error(t, err)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeUnavailable))

	sess, err := f.store.Get(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Empty(t, sess.Attendees, "failed persistence must not leave the student marked")

	// The retry is clean: not AlreadyMarked, a fresh record is written.
	conf, err := f.uc.Mark(context.Background(), attendance.MarkRequest{
		SessionID:         "sess-1",
		StudentIdentifier: "stu-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "rec-stu-1", conf.RecordID)
}

// staleStore hands out sessions without expiry eviction, standing in for a
// store implementation that does not evict inline.
type staleStore struct {
	session *domain.Session
	deleted bool
}

func (s *staleStore) Put(context.Context, *domain.Session) error { return nil }

func (s *staleStore) Get(context.Context, string) (*domain.Session, error) {
	return s.session.Clone(), nil
}

func (s *staleStore) Delete(context.Context, string) error {
	s.deleted = true
	return nil
}

func (s *staleStore) Mutate(_ context.Context, _ string, fn repository.MutateFunc) error {
	return fn(s.session.Clone())
}

func (s *staleStore) Sweep(context.Context) (int, error) { return 0, nil }

func TestMarkExpiredSessionDefensiveCheck(t *testing.T) {
	f := setup(t)
	store := &staleStore{session: &domain.Session{
		ID:        "sess-1",
		ClassID:   "CS101",
		CreatedAt: time.Now().Add(-10 * time.Minute),
		ExpiresAt: time.Now().Add(-5 * time.Minute),
	}}
	uc := attendance.New(f.directory, f.records, store, attendance.Config{}, nil)

	_, err := uc.Mark(context.Background(), attendance.MarkRequest{
		SessionID:         "sess-1",
		StudentIdentifier: "stu-1",
	})
	assert.ErrorIs(t, err, domain.ErrSessionExpired)
	assert.True(t, store.deleted, "expired session must be deleted as a side effect")
	assert.Zero(t, f.records.count())
}

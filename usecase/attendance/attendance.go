// Package attendance orchestrates marking a student present: resolve the
// student, validate the session and geofence, enforce at-most-once marking,
// and persist the durable record.
package attendance

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/campuskit/checkin/domain"
	"github.com/campuskit/checkin/pkg/geo"
	"github.com/campuskit/checkin/repository"
)

// Config carries the marking tunables.
type Config struct {
	GeofenceRadiusMeters float64
	PersistTimeout       time.Duration
}

type UseCase struct {
	students repository.StudentDirectory
	records  repository.AttendanceRepository
	store    repository.SessionStore
	cfg      Config
	logger   *zap.Logger
}

func New(students repository.StudentDirectory, records repository.AttendanceRepository, store repository.SessionStore, cfg Config, logger *zap.Logger) *UseCase {
	if cfg.GeofenceRadiusMeters <= 0 {
		cfg.GeofenceRadiusMeters = 100
	}
	if cfg.PersistTimeout <= 0 {
		cfg.PersistTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		students: students,
		records:  records,
		store:    store,
		cfg:      cfg,
		logger:   logger,
	}
}

// MarkRequest is one check-in attempt. Latitude/Longitude are optional and
// only consulted when the session demands a geofence.
type MarkRequest struct {
	SessionID         string
	StudentIdentifier string
	StudentName       string
	Latitude          *float64
	Longitude         *float64
}

// Confirmation is returned for a successful mark.
type Confirmation struct {
	StudentID        string    `json:"student_id"`
	StudentName      string    `json:"student_name"`
	Department       string    `json:"department"`
	MarkedAt         time.Time `json:"marked_at"`
	RecordID         string    `json:"record_id"`
	LocationVerified bool      `json:"location_verified"`
	DistanceMeters   *float64  `json:"distance_meters,omitempty"`
}

// Mark runs the full check-in pipeline. Session validation, the idempotency
// check, persistence and the attendee append all happen under the session's
// exclusive guard, so a persistence failure leaves nothing behind and two
// racing marks for the same student cannot both pass.
func (uc *UseCase) Mark(ctx context.Context, req MarkRequest) (*Confirmation, error) {
	if req.SessionID == "" || req.StudentIdentifier == "" {
		return nil, domain.ErrInvalidPayload
	}

	student, err := uc.resolveStudent(ctx, req.StudentIdentifier, req.StudentName)
	if err != nil {
		return nil, err
	}
	if !student.IsActive() {
		return nil, domain.ErrStudentInactive
	}

	var confirmation *Confirmation
	err = uc.store.Mutate(ctx, req.SessionID, func(sess *domain.Session) error {
		now := time.Now()

		// The store evicts expired entries on lookup, but that is its
		// contract, not a guarantee of every implementation. Re-check here.
		if sess.IsExpired(now) {
			return domain.ErrSessionExpired
		}

		var snapshot *domain.GeofenceSnapshot
		if sess.RequiresGeofence() {
			result, err := uc.checkGeofence(sess, req)
			if err != nil {
				return err
			}
			snapshot = &domain.GeofenceSnapshot{
				DistanceMeters:      result.DistanceMeters,
				AllowedRadiusMeters: result.AllowedRadiusMeters,
				Verified:            result.Valid,
			}
		}

		if sess.HasAttendee(student.ID) {
			return domain.ErrAlreadyMarked
		}

		record := &domain.AttendanceRecord{
			StudentID: student.ID,
			ClassID:   sess.ClassID,
			SessionID: sess.ID,
			Status:    domain.AttendanceStatusPresent,
			MarkedAt:  now,
			Geofence:  snapshot,
		}

		persistCtx, cancel := context.WithTimeout(ctx, uc.cfg.PersistTimeout)
		defer cancel()

		recordID, err := uc.records.CreateRecord(persistCtx, record)
		if err != nil {
			var dErr *domain.Error
			if errors.As(err, &dErr) {
				return err
			}
			return domain.PersistenceError(err)
		}

		sess.Attendees = append(sess.Attendees, domain.Attendee{
			StudentID:   student.ID,
			StudentName: student.Name,
			Department:  student.Department,
			ClassName:   sess.ClassName,
			MarkedAt:    now,
			Status:      domain.AttendanceStatusPresent,
		})

		confirmation = &Confirmation{
			StudentID:        student.ID,
			StudentName:      student.Name,
			Department:       student.Department,
			MarkedAt:         now,
			RecordID:         recordID,
			LocationVerified: snapshot != nil && snapshot.Verified,
		}
		if snapshot != nil {
			d := snapshot.DistanceMeters
			confirmation.DistanceMeters = &d
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrSessionExpired) {
			// Expired sessions are dead on arrival; evict eagerly.
			_ = uc.store.Delete(ctx, req.SessionID)
		}
		return nil, err
	}

	uc.logger.Info("attendance marked",
		zap.String("session_id", req.SessionID),
		zap.String("student_id", student.ID),
		zap.String("record_id", confirmation.RecordID),
		zap.Bool("location_verified", confirmation.LocationVerified),
	)
	return confirmation, nil
}

// resolveStudent tries, in order: registry id, email (when the identifier
// looks like one), and finally a partial name match on the supplied display
// name. The name fallback returns the first case-insensitive hit and exists
// only because client inputs are heterogeneous; it stays a last resort.
func (uc *UseCase) resolveStudent(ctx context.Context, identifier, displayName string) (*domain.Student, error) {
	student, err := uc.students.FindByIdentifier(ctx, identifier)
	if err == nil {
		return student, nil
	}
	if !errors.Is(err, domain.ErrStudentNotFound) {
		return nil, err
	}

	if strings.Contains(identifier, "@") {
		student, err = uc.students.FindByEmail(ctx, identifier)
		if err == nil {
			return student, nil
		}
		if !errors.Is(err, domain.ErrStudentNotFound) {
			return nil, err
		}
	}

	if displayName != "" {
		student, err = uc.students.FindByNameContains(ctx, displayName)
		if err == nil {
			uc.logger.Warn("student resolved by name fallback",
				zap.String("identifier", identifier),
				zap.String("matched_id", student.ID),
			)
			return student, nil
		}
		if !errors.Is(err, domain.ErrStudentNotFound) {
			return nil, err
		}
	}

	return nil, domain.ErrStudentNotFound
}

func (uc *UseCase) checkGeofence(sess *domain.Session, req MarkRequest) (geo.Result, error) {
	if req.Latitude == nil || req.Longitude == nil {
		return geo.Result{}, domain.ErrLocationRequired
	}

	point := domain.Location{Latitude: *req.Latitude, Longitude: *req.Longitude}
	result, err := geo.Validate(*sess.RequiredLocation, point, uc.cfg.GeofenceRadiusMeters)
	if err != nil {
		return geo.Result{}, err
	}
	if !result.Valid {
		return geo.Result{}, &domain.GeofenceError{
			DistanceMeters:      result.DistanceMeters,
			AllowedRadiusMeters: result.AllowedRadiusMeters,
		}
	}
	return result, nil
}

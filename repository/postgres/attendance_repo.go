package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campuskit/checkin/domain"
	"github.com/campuskit/checkin/repository"
)

type attendanceRepository struct {
	pool *pgxpool.Pool
}

// NewAttendanceRepository returns a Postgres-backed implementation of AttendanceRepository.
func NewAttendanceRepository(pool *pgxpool.Pool) repository.AttendanceRepository {
	return &attendanceRepository{pool: pool}
}

func (r *attendanceRepository) CreateRecord(ctx context.Context, record *domain.AttendanceRecord) (string, error) {
	if record == nil || record.StudentID == "" {
		return "", domain.ErrInvalidPayload
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}

	const query = `
	INSERT INTO attendance_records
		(id, student_id, class_id, session_id, status, marked_at,
		 distance_meters, allowed_radius_meters, location_verified)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	RETURNING created_at
	`

	var distance, radius interface{}
	var verified interface{}
	if record.Geofence != nil {
		distance = record.Geofence.DistanceMeters
		radius = record.Geofence.AllowedRadiusMeters
		verified = record.Geofence.Verified
	}

	if err := r.pool.QueryRow(ctx, query,
		record.ID,
		record.StudentID,
		record.ClassID,
		record.SessionID,
		record.Status,
		record.MarkedAt,
		distance,
		radius,
		verified,
	).Scan(&record.CreatedAt); err != nil {
		return "", domain.PersistenceError(err)
	}

	return record.ID, nil
}

package repository

import (
	"context"

	"github.com/campuskit/checkin/domain"
)

// AttendanceRepository persists durable attendance records.
type AttendanceRepository interface {
	// CreateRecord stores the record and returns its durable id.
	CreateRecord(ctx context.Context, record *domain.AttendanceRecord) (string, error)
}

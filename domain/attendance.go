package domain

import "time"

// AttendanceStatus values stored on durable records.
const (
	AttendanceStatusPresent = "present"
)

// AttendanceRecord is the durable row written once a mark passes every check.
type AttendanceRecord struct {
	ID        string            `json:"id"`
	StudentID string            `json:"student_id"`
	ClassID   string            `json:"class_id"`
	SessionID string            `json:"session_id"`
	Status    string            `json:"status"`
	MarkedAt  time.Time         `json:"marked_at"`
	Geofence  *GeofenceSnapshot `json:"geofence,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// GeofenceSnapshot captures the location check that accompanied a mark.
// It is attached to the persisted record for auditability; the live
// validation result itself is never stored.
type GeofenceSnapshot struct {
	DistanceMeters      float64 `json:"distance_meters"`
	AllowedRadiusMeters float64 `json:"allowed_radius_meters"`
	Verified            bool    `json:"verified"`
}

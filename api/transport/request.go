package transport

// IssueSessionRequest opens a new check-in window. Latitude/Longitude, when
// both present, become the session's required geofence center.
type IssueSessionRequest struct {
	ClassID   string   `json:"class_id"`
	ClassName string   `json:"class_name"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// MarkRequest is a student's check-in attempt. StudentID accepts a registry
// id, an email, or (with StudentName as fallback) a display name.
type MarkRequest struct {
	SessionID   string   `json:"session_id"`
	StudentID   string   `json:"student_id"`
	StudentName string   `json:"student_name"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
}

package domain

import "time"

// Session represents a time-boxed QR check-in window for a single class.
// Sessions live in a SessionStore; nothing else keeps a long-lived reference.
type Session struct {
	ID               string     `json:"id"`
	ClassID          string     `json:"class_id"`
	ClassName        string     `json:"class_name"`
	RequiredLocation *Location  `json:"required_location,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	ExpiresAt        time.Time  `json:"expires_at"`
	Attendees        []Attendee `json:"attendees"`
}

// Location is a WGS84 coordinate pair.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Attendee is one check-in inside a session. Entries are append-only and a
// student id appears at most once per session.
type Attendee struct {
	StudentID   string    `json:"student_id"`
	StudentName string    `json:"student_name"`
	Department  string    `json:"department"`
	ClassName   string    `json:"class_name"`
	MarkedAt    time.Time `json:"marked_at"`
	Status      string    `json:"status"`
}

func (s *Session) IsExpired(reference time.Time) bool {
	if s == nil {
		return true
	}
	if reference.IsZero() {
		reference = time.Now()
	}
	return !s.ExpiresAt.After(reference)
}

// HasAttendee reports whether the student already checked in.
func (s *Session) HasAttendee(studentID string) bool {
	if s == nil {
		return false
	}
	for _, a := range s.Attendees {
		if a.StudentID == studentID {
			return true
		}
	}
	return false
}

// RequiresGeofence reports whether marking must pass a location check.
func (s *Session) RequiresGeofence() bool {
	return s != nil && s.RequiredLocation != nil
}

// Clone returns a deep copy so callers can read session state without
// holding store locks.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	if s.RequiredLocation != nil {
		loc := *s.RequiredLocation
		out.RequiredLocation = &loc
	}
	out.Attendees = append([]Attendee(nil), s.Attendees...)
	return &out
}

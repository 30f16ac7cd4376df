package domain

import "time"

// StudentStatus values mirror the registry's enrolment states.
const (
	StudentStatusActive   = "active"
	StudentStatusInactive = "inactive"
)

// Student is the slice of the university directory this service needs:
// enough to resolve heterogeneous check-in identifiers and to stamp
// attendance records.
type Student struct {
	ID         string    `json:"id"`
	Email      string    `json:"email,omitempty"`
	Name       string    `json:"name"`
	Department string    `json:"department"`
	Section    string    `json:"section"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (s *Student) IsActive() bool {
	return s != nil && s.Status == StudentStatusActive
}

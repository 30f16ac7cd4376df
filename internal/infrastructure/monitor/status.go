package monitor

import "time"

// Status reports the health of whichever backing stores are configured.
// Nil dependencies are skipped, not reported unhealthy.
type Status struct {
	PostgreSQL  *bool     `json:"postgresql,omitempty"`
	Redis       *bool     `json:"redis,omitempty"`
	Bolt        *bool     `json:"bolt,omitempty"`
	BoltRecords int       `json:"bolt_records,omitempty"`
	LastCheck   time.Time `json:"last_check"`
}

// Healthy is true when every configured dependency responded.
func (s Status) Healthy() bool {
	for _, check := range []*bool{s.PostgreSQL, s.Redis, s.Bolt} {
		if check != nil && !*check {
			return false
		}
	}
	return true
}

package models

import "time"

// PersistedRun is the durable copy of a firing kept for restart recovery.
type PersistedRun struct {
	RunID     string        `json:"run_id"`
	Profile   FiringProfile `json:"profile"`
	StartedAt time.Time     `json:"started_at"`
	Active    bool          `json:"active"`
	UpdatedAt time.Time     `json:"updated_at"`
}

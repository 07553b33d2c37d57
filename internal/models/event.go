package models

import "time"

// Event types stored in the firing log.
const (
	EventStart       = "START"
	EventCancel      = "CANCEL"
	EventPhaseChange = "PHASE_CHANGE"
	EventAlarm       = "ALARM"
	EventComplete    = "FIRING_COMPLETE"
	EventResumed     = "RESUMED"
)

// FiringEvent is a single log entry.
type FiringEvent struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`        // START | CANCEL | PHASE_CHANGE | ALARM | FIRING_COMPLETE | RESUMED
	Description string    `json:"description"` // human-readable
	Metadata    any       `json:"metadata,omitempty"`
}

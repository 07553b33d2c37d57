package models

import "time"

// Phase is the segment state machine state.
type Phase string

const (
	PhaseIdle        Phase = "IDLE"
	PhaseRamping     Phase = "RAMPING"
	PhaseHolding     Phase = "HOLDING"
	PhaseSlowCooling Phase = "SLOW_COOLING"
)

// Status is the snapshot served to the remote-control layer.
type Status struct {
	Phase              Phase          `json:"phase"`
	Step               int            `json:"step"`
	RunID              string         `json:"run_id,omitempty"`
	SetpointC          *float64       `json:"setpoint_c"`           // null when unset
	TemperatureC       *float64       `json:"temperature_c"`        // null on sensor fault
	InternalC          *float64       `json:"internal_c,omitempty"` // electronics temperature
	RelayOn            bool           `json:"relay_on"`
	Duty               float64        `json:"duty"`
	SensorFault        bool           `json:"sensor_fault"`
	ElapsedMinutes     int            `json:"elapsed_minutes"`
	HoldElapsedMinutes int            `json:"hold_elapsed_minutes,omitempty"`
	EstimatedMinutes   int            `json:"estimated_minutes,omitempty"`
	Display            string         `json:"display"`
	StartedAt          *time.Time     `json:"started_at,omitempty"`
	Profile            *FiringProfile `json:"profile,omitempty"`
	Power              PowerState     `json:"power"`
}

// PhaseChange is emitted whenever the state machine moves.
type PhaseChange struct {
	RunID   string        `json:"run_id"`
	From    Phase         `json:"from"`
	To      Phase         `json:"to"`
	Step    int           `json:"step"`
	Reason  string        `json:"reason,omitempty"`
	At      time.Time     `json:"at"`
	Elapsed time.Duration `json:"elapsed"`
}

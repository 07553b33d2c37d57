package models

import "time"

// PowerState is derived from power-meter pulses.
type PowerState struct {
	LastPulseAt time.Time `json:"last_pulse_at,omitempty"`
	PowerW      float64   `json:"power_w"`
	EnergyWh    float64   `json:"energy_wh"`
	CurrentA    float64   `json:"current_a"`
	Pulses      int       `json:"pulses"`
}

package models

import "time"

// TelemetrySample is the periodic push to telemetry collaborators.
type TelemetrySample struct {
	At           time.Time `json:"at"`
	Phase        Phase     `json:"phase"`
	Step         int       `json:"step"`
	TemperatureC *float64  `json:"temperature_c"`
	InternalC    *float64  `json:"internal_c,omitempty"`
	SetpointC    *float64  `json:"setpoint_c"`
	CurrentA     float64   `json:"current_a"`
	PowerW       float64   `json:"power_w"`
	EnergyWh     float64   `json:"energy_wh"`
	Cost         float64   `json:"cost"`
	RelayOn      bool      `json:"relay_on"`
	RSSI         int       `json:"rssi"`
}

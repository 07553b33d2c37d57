// Package mqtt publishes kiln telemetry, alarms and status to an MQTT broker.
package mqtt

import (
	"encoding/json"
	"time"

	"kiln_controller/internal/models"
)

// Publisher publishes kiln notifications. Failures are returned to the caller
// and must never stop the control loop.
type Publisher interface {
	PublishTelemetry(s models.TelemetrySample) error
	PublishAlarm(a models.Alarm) error
	PublishStatus(s StatusMessage) error
	PublishPhase(p models.PhaseChange) error
	Close() error
}

// ConnectionStatus reports whether the broker connection is up.
type ConnectionStatus interface {
	IsConnected() bool
}

// Topics are derived from a configurable root, e.g. "kiln/telemetry".
type Topics struct {
	Telemetry string
	Alarm     string
	Status    string
	Phase     string
	System    string
}

func NewTopics(root string) Topics {
	if root == "" {
		root = "kiln"
	}
	return Topics{
		Telemetry: root + "/telemetry",
		Alarm:     root + "/alarm",
		Status:    root + "/status",
		Phase:     root + "/phase",
		System:    root + "/system",
	}
}

// StatusMessage is the retained operator-facing status line.
type StatusMessage struct {
	At      time.Time
	Display string
}

// TelemetryPayload is the JSON body published on the telemetry topic.
type TelemetryPayload struct {
	Timestamp    string   `json:"timestamp"`
	Phase        string   `json:"phase"`
	Step         int      `json:"step"`
	TemperatureC *float64 `json:"temperature_c"`
	InternalC    *float64 `json:"internal_c,omitempty"`
	SetpointC    *float64 `json:"setpoint_c"`
	CurrentA     float64  `json:"current_a"`
	PowerW       float64  `json:"power_w"`
	EnergyKWh    float64  `json:"energy_kwh"`
	Cost         float64  `json:"cost"`
	Relay        string   `json:"relay"`
	RSSI         int      `json:"rssi,omitempty"`
}

func FormatTelemetry(s models.TelemetrySample) ([]byte, error) {
	relay := "OFF"
	if s.RelayOn {
		relay = "ON"
	}
	return json.Marshal(TelemetryPayload{
		Timestamp:    s.At.UTC().Format(time.RFC3339),
		Phase:        string(s.Phase),
		Step:         s.Step,
		TemperatureC: s.TemperatureC,
		InternalC:    s.InternalC,
		SetpointC:    s.SetpointC,
		CurrentA:     s.CurrentA,
		PowerW:       s.PowerW,
		EnergyKWh:    s.EnergyWh / 1000,
		Cost:         s.Cost,
		Relay:        relay,
		RSSI:         s.RSSI,
	})
}

// AlarmPayload is the JSON body published on the alarm topic.
type AlarmPayload struct {
	Timestamp string `json:"timestamp"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

func FormatAlarm(a models.Alarm) ([]byte, error) {
	return json.Marshal(AlarmPayload{
		Timestamp: a.At.UTC().Format(time.RFC3339),
		Code:      string(a.Code),
		Message:   a.Message,
	})
}

type statusPayload struct {
	Timestamp string `json:"timestamp"`
	Display   string `json:"display"`
}

func FormatStatus(s StatusMessage) ([]byte, error) {
	return json.Marshal(statusPayload{Timestamp: s.At.UTC().Format(time.RFC3339), Display: s.Display})
}

// PhasePayload is the JSON body published on the phase topic.
type PhasePayload struct {
	Timestamp string `json:"timestamp"`
	RunID     string `json:"run_id,omitempty"`
	From      string `json:"from"`
	To        string `json:"to"`
	Step      int    `json:"step"`
	Reason    string `json:"reason,omitempty"`
	ElapsedS  int64  `json:"elapsed_s"`
}

func FormatPhase(p models.PhaseChange) ([]byte, error) {
	return json.Marshal(PhasePayload{
		Timestamp: p.At.UTC().Format(time.RFC3339),
		RunID:     p.RunID,
		From:      string(p.From),
		To:        string(p.To),
		Step:      p.Step,
		Reason:    p.Reason,
		ElapsedS:  int64(p.Elapsed / time.Second),
	})
}

// SystemPayload announces controller availability; the offline variant is
// registered as the last will.
type SystemPayload struct {
	Timestamp string `json:"timestamp,omitempty"`
	Event     string `json:"event"`
}

func FormatSystem(event string, at time.Time) ([]byte, error) {
	p := SystemPayload{Event: event}
	if !at.IsZero() {
		p.Timestamp = at.UTC().Format(time.RFC3339)
	}
	return json.Marshal(p)
}

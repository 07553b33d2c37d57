package kiln

import "kiln_controller/internal/models"

// Notifier receives everything the core pushes outward. Implementations must
// not block: the core calls them while holding its lock.
type Notifier interface {
	OnTelemetry(models.TelemetrySample)
	OnDisplayText(string)
	OnTemperatureEvent(float64)
	OnAlarm(models.Alarm)
	OnPhaseChange(models.PhaseChange)
}

// Relay is the heating element output.
type Relay interface {
	Set(on bool) error
}

// NopNotifier discards all notifications.
type NopNotifier struct{}

func (NopNotifier) OnTelemetry(models.TelemetrySample) {}
func (NopNotifier) OnDisplayText(string)               {}
func (NopNotifier) OnTemperatureEvent(float64)         {}
func (NopNotifier) OnAlarm(models.Alarm)               {}
func (NopNotifier) OnPhaseChange(models.PhaseChange)   {}

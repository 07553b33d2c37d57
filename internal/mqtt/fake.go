package mqtt

import (
	"sync"

	"kiln_controller/internal/models"
)

// FakePublisher records published messages for test assertions.
type FakePublisher struct {
	mu sync.Mutex

	Telemetry []models.TelemetrySample
	Alarms    []models.Alarm
	Statuses  []StatusMessage
	Phases    []models.PhaseChange

	// PublishError, if set, is returned by every Publish call.
	PublishError error
	Closed       bool
	Connected    bool
}

func NewFakePublisher() *FakePublisher {
	return &FakePublisher{Connected: true}
}

func (f *FakePublisher) PublishTelemetry(s models.TelemetrySample) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	f.Telemetry = append(f.Telemetry, s)
	return nil
}

func (f *FakePublisher) PublishAlarm(a models.Alarm) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	f.Alarms = append(f.Alarms, a)
	return nil
}

func (f *FakePublisher) PublishStatus(s StatusMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	f.Statuses = append(f.Statuses, s)
	return nil
}

func (f *FakePublisher) PublishPhase(p models.PhaseChange) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	f.Phases = append(f.Phases, p)
	return nil
}

func (f *FakePublisher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

func (f *FakePublisher) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Connected
}

// Counts returns the number of telemetry, alarm, status and phase messages.
func (f *FakePublisher) Counts() (telemetry, alarms, statuses, phases int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Telemetry), len(f.Alarms), len(f.Statuses), len(f.Phases)
}

package hardware

import (
	"errors"
	"sync"
	"time"

	"kiln_controller/internal/models"
)

// FakeSensor returns scripted samples. After the script is exhausted the last
// sample repeats.
type FakeSensor struct {
	mu        sync.Mutex
	Samples   []models.SensorSample
	ReadError error
	index     int
	Closed    bool
}

func NewFakeSensor(samples ...models.SensorSample) *FakeSensor {
	return &FakeSensor{Samples: samples}
}

func (f *FakeSensor) Read() (models.SensorSample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ReadError != nil {
		return models.SensorSample{}, f.ReadError
	}
	if len(f.Samples) == 0 {
		return models.SensorSample{}, errors.New("no samples configured")
	}
	s := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	return s, nil
}

func (f *FakeSensor) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// FakeRelay records every switch.
type FakeRelay struct {
	mu       sync.Mutex
	on       bool
	History  []bool
	SetError error
}

func (f *FakeRelay) Set(on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.History = append(f.History, on)
	if f.SetError != nil {
		return f.SetError
	}
	f.on = on
	return nil
}

func (f *FakeRelay) On() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.on
}

func (f *FakeRelay) Close() error { return nil }

// FakePulses is a PulseSource fed by the test.
type FakePulses struct {
	C chan time.Time
}

func NewFakePulses(buffer int) *FakePulses {
	return &FakePulses{C: make(chan time.Time, buffer)}
}

func (f *FakePulses) Pulses() <-chan time.Time { return f.C }
func (f *FakePulses) Close() error             { return nil }

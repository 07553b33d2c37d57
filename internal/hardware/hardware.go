// Package hardware provides the kiln's physical I/O: thermocouple, heating
// relay and energy-meter pulses. The GPIO implementation uses the Linux GPIO
// character device; the simulator and fakes allow running without hardware.
package hardware

import (
	"errors"
	"fmt"
	"time"

	"kiln_controller/internal/config"
	"kiln_controller/internal/models"
)

// Sensor reads the thermocouple converter.
type Sensor interface {
	// Read returns the latest sample. Converter faults are reported in the
	// sample's ErrorCode, not as an error.
	Read() (models.SensorSample, error)
	Close() error
}

// Relay drives the heating element.
type Relay interface {
	Set(on bool) error
	Close() error
}

// PulseSource delivers one timestamp per energy-meter pulse.
type PulseSource interface {
	Pulses() <-chan time.Time
	Close() error
}

// ErrUnsupported is returned when GPIO is requested on a platform without it.
var ErrUnsupported = errors.New("hardware: gpio not supported on this platform (requires Linux)")

// Kit bundles the devices the control loop needs.
type Kit struct {
	Sensor Sensor
	Relay  Relay
	Pulses PulseSource

	// Sim is set in simulated mode so the caller can drive the model.
	Sim *Simulator
}

// Open builds the kit selected by cfg.Mode.
func Open(cfg config.HardwareConfig, power config.PowerConfig, pulseBuffer int) (*Kit, error) {
	switch cfg.Mode {
	case "simulated", "":
		sim := NewSimulator(SimConfig{
			PowerW:      power.RatedPowerW,
			QuantumWh:   power.QuantumWh,
			PulseBuffer: pulseBuffer,
		}, time.Now())
		return &Kit{Sensor: sim, Relay: sim, Pulses: sim, Sim: sim}, nil

	case "gpio":
		relay, err := NewGPIORelay(cfg.Chip, cfg.RelayLine)
		if err != nil {
			return nil, fmt.Errorf("init relay: %w", err)
		}
		pulses, err := NewGPIOPulses(cfg.Chip, cfg.PulseLine, pulseBuffer)
		if err != nil {
			_ = relay.Close()
			return nil, fmt.Errorf("init pulse input: %w", err)
		}
		sensor := NewThermocouple(cfg.ThermocouplePath, cfg.InternalPath, cfg.FaultPath)
		return &Kit{Sensor: sensor, Relay: relay, Pulses: pulses}, nil

	default:
		return nil, fmt.Errorf("hardware: unknown mode %q", cfg.Mode)
	}
}

// Close releases every device, switching the relay off first.
func (k *Kit) Close() error {
	var errs []error
	if k.Relay != nil {
		if err := k.Relay.Set(false); err != nil {
			errs = append(errs, fmt.Errorf("switch relay off: %w", err))
		}
	}
	// the simulator backs all three roles
	if k.Sim != nil {
		return errors.Join(append(errs, k.Sim.Close())...)
	}
	for _, c := range []interface{ Close() error }{k.Relay, k.Pulses, k.Sensor} {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

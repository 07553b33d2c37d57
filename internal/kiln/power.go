package kiln

import (
	"fmt"
	"sync"
	"time"

	"kiln_controller/internal/models"
)

// PowerConfig describes the pulse-output energy meter.
type PowerConfig struct {
	QuantumWh        float64       // energy per pulse
	LineVoltage      float64       // V
	MinPulseInterval time.Duration // shorter intervals are contact bounce
	AnomalyPulses    int           // consecutive pulses with relay off before alarming
}

// DefaultPowerConfig is a 1 Wh/pulse meter on 230 V mains.
func DefaultPowerConfig() PowerConfig {
	return PowerConfig{
		QuantumWh:        1,
		LineVoltage:      230,
		MinPulseInterval: 100 * time.Millisecond,
		AnomalyPulses:    2,
	}
}

// ExpectedPulseInterval is the pulse spacing of a load drawing powerW.
func (c PowerConfig) ExpectedPulseInterval(powerW float64) time.Duration {
	if powerW <= 0 {
		return 0
	}
	return time.Duration(c.QuantumWh * 3600 / powerW * float64(time.Second))
}

// PowerMonitor derives power, current and energy from meter pulses. Pulse is
// the only writer and may be called from the pulse goroutine; everything else
// reads through State.
type PowerMonitor struct {
	cfg    PowerConfig
	notify Notifier

	mu        sync.Mutex
	state     models.PowerState
	started   bool
	offPulses int
	anomaly   bool
	debounced int
}

// NewPowerMonitor returns a monitor that reports anomalies to n.
func NewPowerMonitor(cfg PowerConfig, n Notifier) *PowerMonitor {
	if cfg.QuantumWh <= 0 {
		cfg.QuantumWh = 1
	}
	if cfg.LineVoltage <= 0 {
		cfg.LineVoltage = 230
	}
	if cfg.AnomalyPulses < 1 {
		cfg.AnomalyPulses = 1
	}
	if n == nil {
		n = NopNotifier{}
	}
	return &PowerMonitor{cfg: cfg, notify: n}
}

// Config returns the meter configuration.
func (p *PowerMonitor) Config() PowerConfig { return p.cfg }

// Pulse records one meter pulse seen at now. It returns false when the pulse
// was discarded as bounce.
func (p *PowerMonitor) Pulse(now time.Time, relayOn bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		p.started = true
		p.state.EnergyWh = p.cfg.QuantumWh
		p.state.PowerW = 0
		p.state.CurrentA = 0
		p.state.LastPulseAt = now
		p.state.Pulses = 1
	} else {
		interval := now.Sub(p.state.LastPulseAt)
		if interval < p.cfg.MinPulseInterval {
			p.debounced++
			return false
		}
		p.state.EnergyWh += p.cfg.QuantumWh
		p.state.PowerW = p.cfg.QuantumWh * 3600 / interval.Seconds()
		p.state.CurrentA = p.state.PowerW / p.cfg.LineVoltage
		p.state.LastPulseAt = now
		p.state.Pulses++
	}

	p.checkAnomaly(now, relayOn)
	return true
}

// checkAnomaly latches CURRENT_WITHOUT_OUTPUT once per contiguous run of
// pulses arriving while the relay is off.
func (p *PowerMonitor) checkAnomaly(now time.Time, relayOn bool) {
	if relayOn {
		p.offPulses = 0
		p.anomaly = false
		return
	}
	p.offPulses++
	if p.anomaly || p.offPulses < p.cfg.AnomalyPulses {
		return
	}
	p.anomaly = true
	p.notify.OnAlarm(models.Alarm{
		Code: models.AlarmCurrentWithoutOutput,
		Message: fmt.Sprintf("current but relay is off, I = %.1fA P = %.1fW",
			p.state.CurrentA, p.state.PowerW),
		At: now,
	})
}

// State returns a copy of the current readings.
func (p *PowerMonitor) State() models.PowerState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Anomalous reports whether the current-without-output alarm is latched.
func (p *PowerMonitor) Anomalous() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.anomaly
}

// Debounced returns the number of pulses discarded as bounce.
func (p *PowerMonitor) Debounced() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.debounced
}

// ResetInstantaneous clears power and current after they were reported, so a
// stalled meter reads zero instead of the last rate.
func (p *PowerMonitor) ResetInstantaneous() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.PowerW = 0
	p.state.CurrentA = 0
}

// Reset forgets all readings; the next pulse is treated as the first.
func (p *PowerMonitor) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = models.PowerState{}
	p.started = false
	p.offPulses = 0
	p.anomaly = false
}

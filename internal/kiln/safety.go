package kiln

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"kiln_controller/internal/models"
)

// SafetyConfig holds the watchdog thresholds.
type SafetyConfig struct {
	InternalMaxC    float64 // electronics over-heat threshold
	MaxTemperatureC float64 // 0 disables the absolute limit
	HighBand        float64 // °C above setpoint before TEMPERATURE_HIGH
	LowBand         float64 // °C below setpoint before TEMPERATURE_LOW
	PulseTimeout    time.Duration
	PulseMargin     float64 // multiplier on the expected pulse interval at rated power
	RatedPowerW     float64

	AbortOnOverTemperature  bool
	AbortOnDeviation        bool
	AbortOnInternalOverheat bool
}

// DefaultSafetyConfig is advisory only: nothing aborts the run.
func DefaultSafetyConfig() SafetyConfig {
	return SafetyConfig{
		InternalMaxC:    60,
		MaxTemperatureC: 1300,
		HighBand:        10,
		LowBand:         20,
		PulseTimeout:    2 * time.Second,
		PulseMargin:     1,
		RatedPowerW:     2300,
	}
}

// Verdict is the outcome of one safety check.
type Verdict struct {
	Raised []models.Alarm
	Abort  bool
	Reason string
}

// SafetyMonitor audits the published controller snapshot. Each check is
// latched: it alarms once when the condition appears and clears silently.
type SafetyMonitor struct {
	cfg    SafetyConfig
	power  PowerConfig
	notify Notifier

	mu      sync.Mutex
	latched map[models.AlarmCode]bool
}

// NewSafetyMonitor builds a watchdog. power is used to derive the pulse
// timeout from the rated load.
func NewSafetyMonitor(cfg SafetyConfig, power PowerConfig, n Notifier) *SafetyMonitor {
	if n == nil {
		n = NopNotifier{}
	}
	if cfg.PulseMargin <= 0 {
		cfg.PulseMargin = 1
	}
	return &SafetyMonitor{
		cfg:     cfg,
		power:   power,
		notify:  n,
		latched: make(map[models.AlarmCode]bool),
	}
}

// PulseTimeout is how long the relay may be on without a meter pulse.
func (m *SafetyMonitor) PulseTimeout() time.Duration {
	timeout := m.cfg.PulseTimeout
	expected := time.Duration(float64(m.power.ExpectedPulseInterval(m.cfg.RatedPowerW)) * m.cfg.PulseMargin)
	if expected > timeout {
		timeout = expected
	}
	return timeout
}

// Check runs every watchdog rule against s and ps.
func (m *SafetyMonitor) Check(now time.Time, s Snapshot, ps models.PowerState) Verdict {
	m.mu.Lock()
	defer m.mu.Unlock()

	var v Verdict

	m.evaluate(&v, now, models.AlarmInternalOverheat,
		!math.IsNaN(s.Internal) && s.Internal > m.cfg.InternalMaxC,
		s.Active && m.cfg.AbortOnInternalOverheat,
		func() string {
			return fmt.Sprintf("internal temperature %.1f°C above %.0f°C", s.Internal, m.cfg.InternalMaxC)
		})

	m.evaluate(&v, now, models.AlarmNoPowerPulses, m.pulsesMissing(now, s, ps), false,
		func() string {
			return fmt.Sprintf("relay on but no power pulse for %s", m.PulseTimeout())
		})

	measured := !math.IsNaN(s.Temperature)
	m.evaluate(&v, now, models.AlarmOverTemperature,
		measured && m.cfg.MaxTemperatureC > 0 && s.Temperature > m.cfg.MaxTemperatureC,
		s.Active && m.cfg.AbortOnOverTemperature,
		func() string {
			return fmt.Sprintf("temperature %.1f°C above limit %.0f°C", s.Temperature, m.cfg.MaxTemperatureC)
		})

	tracking := s.Active && measured && !math.IsNaN(s.Setpoint)
	m.evaluate(&v, now, models.AlarmTemperatureHigh,
		tracking && s.Temperature > s.Setpoint+m.cfg.HighBand,
		m.cfg.AbortOnDeviation,
		func() string {
			return fmt.Sprintf("Temperature HIGH %.1f°C, setpoint %.1f°C", s.Temperature, s.Setpoint)
		})
	m.evaluate(&v, now, models.AlarmTemperatureLow,
		tracking && s.Temperature < s.Setpoint-m.cfg.LowBand,
		m.cfg.AbortOnDeviation,
		func() string {
			return fmt.Sprintf("Temperature LOW %.1f°C, setpoint %.1f°C", s.Temperature, s.Setpoint)
		})

	return v
}

func (m *SafetyMonitor) pulsesMissing(now time.Time, s Snapshot, ps models.PowerState) bool {
	if !s.RelayOn {
		return false
	}
	since := ps.LastPulseAt
	if s.RelayOnSince.After(since) {
		since = s.RelayOnSince
	}
	if since.IsZero() {
		return false
	}
	return now.Sub(since) > m.PulseTimeout()
}

func (m *SafetyMonitor) evaluate(v *Verdict, now time.Time, code models.AlarmCode, cond, abort bool, msg func() string) {
	if !cond {
		m.latched[code] = false
		return
	}
	if !m.latched[code] {
		m.latched[code] = true
		a := models.Alarm{Code: code, Message: msg(), At: now}
		v.Raised = append(v.Raised, a)
		m.notify.OnAlarm(a)
	}
	if abort && !v.Abort {
		v.Abort = true
		v.Reason = msg()
	}
}

// Active returns the currently latched alarm codes in sorted order.
func (m *SafetyMonitor) Active() []models.AlarmCode {
	m.mu.Lock()
	defer m.mu.Unlock()
	var codes []models.AlarmCode
	for code, on := range m.latched {
		if on {
			codes = append(codes, code)
		}
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}

// Reset clears every latch.
func (m *SafetyMonitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.latched)
}

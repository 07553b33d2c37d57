package kiln

import (
	"math"
	"testing"
	"time"

	"kiln_controller/internal/models"
)

func idleSnapshot() Snapshot {
	return Snapshot{Phase: models.PhaseIdle, Setpoint: math.NaN(), Temperature: 20, Internal: 25}
}

func TestSafetyMonitor_InternalOverheatLatches(t *testing.T) {
	rec := &recorder{}
	sm := NewSafetyMonitor(DefaultSafetyConfig(), DefaultPowerConfig(), rec)
	s := idleSnapshot()
	s.Internal = 61

	for i := 0; i < 3; i++ {
		sm.Check(t0.Add(time.Duration(i)*time.Second), s, models.PowerState{})
	}
	if n := rec.alarmCount(models.AlarmInternalOverheat); n != 1 {
		t.Fatalf("expected one alarm, got %d", n)
	}

	s.Internal = 40
	sm.Check(t0.Add(4*time.Second), s, models.PowerState{})
	s.Internal = 65
	sm.Check(t0.Add(5*time.Second), s, models.PowerState{})
	if n := rec.alarmCount(models.AlarmInternalOverheat); n != 2 {
		t.Fatalf("expected a new alarm after clearing, got %d", n)
	}
}

func TestSafetyMonitor_DeviationAdvisoryByDefault(t *testing.T) {
	sm := NewSafetyMonitor(DefaultSafetyConfig(), DefaultPowerConfig(), nil)
	s := Snapshot{Active: true, Phase: models.PhaseRamping, Setpoint: 500, Temperature: 515, Internal: 25}

	v := sm.Check(t0, s, models.PowerState{})
	if len(v.Raised) != 1 || v.Raised[0].Code != models.AlarmTemperatureHigh {
		t.Fatalf("expected TEMPERATURE_HIGH, got %+v", v.Raised)
	}
	if v.Abort {
		t.Fatalf("deviation should not abort by default")
	}

	s.Temperature = 475
	v = sm.Check(t0.Add(time.Second), s, models.PowerState{})
	if len(v.Raised) != 1 || v.Raised[0].Code != models.AlarmTemperatureLow {
		t.Fatalf("expected TEMPERATURE_LOW, got %+v", v.Raised)
	}
	if got := sm.Active(); len(got) != 1 || got[0] != models.AlarmTemperatureLow {
		t.Fatalf("active = %v", got)
	}
}

func TestSafetyMonitor_DeviationIgnoredWhenIdle(t *testing.T) {
	sm := NewSafetyMonitor(DefaultSafetyConfig(), DefaultPowerConfig(), nil)
	s := idleSnapshot()
	s.Setpoint = 500
	if v := sm.Check(t0, s, models.PowerState{}); len(v.Raised) != 0 {
		t.Fatalf("idle kiln must not raise deviation alarms: %+v", v.Raised)
	}
}

func TestSafetyMonitor_AbortPolicy(t *testing.T) {
	cfg := DefaultSafetyConfig()
	cfg.AbortOnOverTemperature = true
	sm := NewSafetyMonitor(cfg, DefaultPowerConfig(), nil)
	s := Snapshot{Active: true, Phase: models.PhaseHolding, Setpoint: 1295, Temperature: 1301, Internal: 25}

	v := sm.Check(t0, s, models.PowerState{})
	if !v.Abort || v.Reason == "" {
		t.Fatalf("expected abort with reason, got %+v", v)
	}
	// still aborting while the condition persists, without a second alarm
	v = sm.Check(t0.Add(time.Second), s, models.PowerState{})
	if !v.Abort || len(v.Raised) != 0 {
		t.Fatalf("expected silent abort, got %+v", v)
	}
}

func TestSafetyMonitor_PulseTimeoutFromRelayOn(t *testing.T) {
	sm := NewSafetyMonitor(DefaultSafetyConfig(), DefaultPowerConfig(), nil)
	ps := models.PowerState{LastPulseAt: t0}
	s := Snapshot{Active: true, RelayOn: true, RelayOnSince: t0.Add(10 * time.Second), Setpoint: math.NaN(), Temperature: math.NaN(), Internal: 25}

	if v := sm.Check(t0.Add(11*time.Second), s, ps); len(v.Raised) != 0 {
		t.Fatalf("timeout must count from relay on, got %+v", v.Raised)
	}
	if v := sm.Check(t0.Add(13*time.Second), s, ps); len(v.Raised) != 1 {
		t.Fatalf("expected NO_POWER_PULSES, got %+v", v.Raised)
	}
}

func TestSafetyMonitor_PulseTimeoutScalesWithMargin(t *testing.T) {
	cfg := DefaultSafetyConfig()
	cfg.RatedPowerW = 1000
	cfg.PulseMargin = 1.5
	sm := NewSafetyMonitor(cfg, DefaultPowerConfig(), nil)
	if got := sm.PulseTimeout(); got != 5400*time.Millisecond {
		t.Fatalf("timeout = %s, want 5.4s", got)
	}
}

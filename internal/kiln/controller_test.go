package kiln

import (
	"errors"
	"math"
	"testing"
	"time"

	"kiln_controller/internal/models"
)

func newTestController(t *testing.T, cfg Config) (*Controller, *fakeRelay, *recorder) {
	t.Helper()
	rec := &recorder{}
	relay := &fakeRelay{}
	c := NewController(cfg, relay, NewHysteresis(DefaultDifferential), NewPowerMonitor(DefaultPowerConfig(), rec), rec,
		WithIDGenerator(func() string { return "run-1" }))
	return c, relay, rec
}

// warm fills the averager so the measured temperature equals temp.
func warm(c *Controller, now time.Time, temp float64) {
	for i := 0; i < DefaultAverageWindow; i++ {
		c.SampleTick(now, sample(temp))
	}
}

func TestController_RequestFiring_StartsRamping(t *testing.T) {
	c, _, rec := newTestController(t, DefaultConfig())
	warm(c, t0, 20)

	st, err := c.RequestFiring(t0, scenarioProfile())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.Phase != models.PhaseRamping || st.Step != 0 || st.RunID != "run-1" {
		t.Fatalf("unexpected status: %+v", st)
	}
	// first ramp tick runs immediately with the nominal interval
	if st.SetpointC == nil || math.Abs(*st.SetpointC-(20+100.0/60)) > 1e-9 {
		t.Fatalf("setpoint = %v", st.SetpointC)
	}
	if st.EstimatedMinutes != 428 {
		t.Fatalf("estimate = %d, want 428", st.EstimatedMinutes)
	}
	if rec.lastDisplay() != "Firing 🔥 @100°C" {
		t.Fatalf("display = %q", rec.lastDisplay())
	}
	if len(rec.phases) != 1 || rec.phases[0].From != models.PhaseIdle || rec.phases[0].To != models.PhaseRamping {
		t.Fatalf("unexpected phase changes: %+v", rec.phases)
	}
}

func TestController_RequestFiring_Rejections(t *testing.T) {
	c, _, _ := newTestController(t, DefaultConfig())
	warm(c, t0, 20)

	bad := scenarioProfile()
	bad.Segments[1].TargetC = 50
	if _, err := c.RequestFiring(t0, bad); !errors.Is(err, ErrNonMonotonicTarget) {
		t.Fatalf("expected ErrNonMonotonicTarget, got %v", err)
	}

	hot := scenarioProfile()
	hot.Segments[3].TargetC = 1400
	if _, err := c.RequestFiring(t0, hot); !errors.Is(err, ErrTargetAboveLimit) {
		t.Fatalf("expected ErrTargetAboveLimit, got %v", err)
	}
	if c.Snapshot().Active {
		t.Fatalf("rejected request must not start a run")
	}

	if _, err := c.RequestFiring(t0, scenarioProfile()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := c.RequestFiring(t0, scenarioProfile()); !errors.Is(err, ErrFiringInProgress) {
		t.Fatalf("expected ErrFiringInProgress, got %v", err)
	}
}

func TestController_FullScenario(t *testing.T) {
	c, relay, rec := newTestController(t, DefaultConfig())
	now := t0
	warm(c, now, 20)
	if _, err := c.RequestFiring(now, scenarioProfile()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	temp := 20.0
	lastStep := 0
	for i := 0; i < 24*60 && c.Snapshot().Active; i++ {
		now = now.Add(time.Minute)
		if sp := c.Snapshot().Setpoint; !math.IsNaN(sp) {
			temp = sp
		}
		c.SampleTick(now, sample(temp))
		c.RampTick(now)
		c.ControlTick(now)

		snap := c.Snapshot()
		if snap.Active {
			if snap.Setpoint < 0 || snap.Setpoint > 1240 {
				t.Fatalf("setpoint %.2f out of range at %s", snap.Setpoint, now)
			}
			if snap.Step < lastStep {
				t.Fatalf("step went back from %d to %d", lastStep, snap.Step)
			}
			lastStep = snap.Step
		}
	}

	if c.Snapshot().Active {
		t.Fatalf("firing did not finish within a day")
	}
	want := []models.Phase{
		models.PhaseRamping, models.PhaseHolding,
		models.PhaseRamping, models.PhaseHolding,
		models.PhaseRamping, models.PhaseHolding,
		models.PhaseRamping, models.PhaseHolding,
		models.PhaseSlowCooling, models.PhaseIdle,
	}
	if len(rec.phases) != len(want) {
		t.Fatalf("got %d phase changes, want %d: %+v", len(rec.phases), len(want), rec.phases)
	}
	for i, p := range rec.phases {
		if p.To != want[i] {
			t.Fatalf("phase %d = %s, want %s", i, p.To, want[i])
		}
	}
	if relay.on || c.RelayOn() {
		t.Fatalf("relay must be off after the run")
	}
	if rec.lastDisplay() != DisplayIdle {
		t.Fatalf("display = %q", rec.lastDisplay())
	}
	if c.Status(now).Phase != models.PhaseIdle {
		t.Fatalf("expected idle status")
	}
}

func TestController_DescendingFinalSegment(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CoolingFloor = 100
	c, relay, rec := newTestController(t, cfg)
	p := profile(seg(100, 100, 0), seg(200, 100, 0), seg(300, 100, 0), seg(250, 60, 5))
	now := t0
	warm(c, now, 20)
	if _, err := c.RequestFiring(now, p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	temp := 20.0
	lastSP := math.Inf(1)
	reachedTarget := false
	for i := 0; i < 24*60 && c.Snapshot().Active; i++ {
		now = now.Add(time.Minute)
		if sp := c.Snapshot().Setpoint; !math.IsNaN(sp) {
			temp = sp
		}
		before := c.Snapshot()
		c.SampleTick(now, sample(temp))
		c.RampTick(now)
		c.ControlTick(now)

		snap := c.Snapshot()
		if snap.Phase == models.PhaseRamping && snap.Step == 3 {
			if snap.Setpoint > lastSP || snap.Setpoint < 250 {
				t.Fatalf("descending setpoint %.2f after %.2f", snap.Setpoint, lastSP)
			}
			lastSP = snap.Setpoint
			reachedTarget = reachedTarget || snap.Setpoint == 250
		}
		if before.Phase == models.PhaseRamping && before.Step == 3 && snap.Phase == models.PhaseHolding {
			if snap.Temperature > 250 {
				t.Fatalf("hold entered at %.2f°C, above the 250°C target", snap.Temperature)
			}
			if snap.Setpoint != 250 {
				t.Fatalf("hold setpoint = %.2f, want 250", snap.Setpoint)
			}
		}
	}

	if !reachedTarget {
		t.Fatal("setpoint never clamped at the descending target")
	}
	if c.Snapshot().Active {
		t.Fatal("firing did not finish within a day")
	}
	want := []models.Phase{
		models.PhaseRamping, models.PhaseHolding,
		models.PhaseRamping, models.PhaseHolding,
		models.PhaseRamping, models.PhaseHolding,
		models.PhaseRamping, models.PhaseHolding,
		models.PhaseSlowCooling, models.PhaseIdle,
	}
	if len(rec.phases) != len(want) {
		t.Fatalf("got %d phase changes, want %d: %+v", len(rec.phases), len(want), rec.phases)
	}
	for i, pc := range rec.phases {
		if pc.To != want[i] {
			t.Fatalf("phase %d = %s, want %s", i, pc.To, want[i])
		}
	}
	if rec.phases[7].Step != 3 {
		t.Fatalf("final hold step = %d, want 3", rec.phases[7].Step)
	}
	if relay.on || c.RelayOn() {
		t.Fatal("relay must be off after the run")
	}
}

func TestController_CoolingDisabledFinishesAfterFinalHold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CoolingRate = 0
	c, _, rec := newTestController(t, cfg)
	p := profile(seg(100, 100, 0), seg(100, 100, 0), seg(100, 100, 0), seg(100, 100, 0))
	warm(c, t0, 100)
	if _, err := c.RequestFiring(t0, p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	now := t0
	for i := 0; i < 20 && c.Snapshot().Active; i++ {
		now = now.Add(time.Minute)
		c.SampleTick(now, sample(100))
		c.RampTick(now)
		c.ControlTick(now)
	}
	if c.Snapshot().Active {
		t.Fatalf("run should have finished")
	}
	last := rec.phases[len(rec.phases)-1]
	if last.From != models.PhaseSlowCooling || last.To != models.PhaseIdle {
		t.Fatalf("unexpected final transition: %+v", last)
	}
}

func TestController_SensorFaultMidHold(t *testing.T) {
	c, relay, rec := newTestController(t, DefaultConfig())
	warm(c, t0, 100)
	if _, err := c.RequestFiring(t0, scenarioProfile()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c.ControlTick(t0)
	if c.Snapshot().Phase != models.PhaseHolding {
		t.Fatalf("expected holding, got %s", c.Snapshot().Phase)
	}
	if !relay.on {
		t.Fatalf("relay should be on at setpoint")
	}

	at := func(m int) time.Time { return t0.Add(time.Duration(m) * time.Minute) }
	for m := 1; m <= 5; m++ {
		c.SampleTick(at(m), sample(100))
		c.ControlTick(at(m))
	}

	c.SampleTick(at(5), models.FaultSample(models.FaultOpenCircuit))
	if relay.on || c.Snapshot().RelayOn {
		t.Fatalf("relay must switch off on the faulted sample")
	}
	for m := 6; m <= 8; m++ {
		c.SampleTick(at(m), models.FaultSample(models.FaultOpenCircuit))
		c.RampTick(at(m))
		c.ControlTick(at(m))
		if relay.on {
			t.Fatalf("relay on during fault at minute %d", m)
		}
	}
	if n := rec.alarmCount(models.AlarmSensorFault); n != 1 {
		t.Fatalf("expected one SENSOR_FAULT, got %d", n)
	}
	st := c.Status(at(8))
	if st.Phase != models.PhaseHolding || st.TemperatureC != nil || !st.SensorFault {
		t.Fatalf("unexpected status during fault: %+v", st)
	}

	c.SampleTick(at(8), sample(100))
	if got := c.Status(at(8)).HoldElapsedMinutes; got != 5 {
		t.Fatalf("hold elapsed = %d, want 5 (frozen during fault)", got)
	}
	c.ControlTick(at(17))
	if c.Snapshot().Phase != models.PhaseHolding {
		t.Fatalf("hold finished early")
	}
	c.ControlTick(at(18))
	snap := c.Snapshot()
	if snap.Phase != models.PhaseRamping || snap.Step != 1 {
		t.Fatalf("expected ramping step 1, got %s/%d", snap.Phase, snap.Step)
	}
}

func TestController_IgnoresMaskedFaultBits(t *testing.T) {
	c, _, rec := newTestController(t, DefaultConfig())
	c.SampleTick(t0, models.SensorSample{Temperature: 300, Internal: 25, ErrorCode: models.FaultShortGND})
	if c.Snapshot().SensorFault || rec.alarmCount(models.AlarmSensorFault) != 0 {
		t.Fatalf("short-to-GND is outside the default mask")
	}
	if c.Snapshot().Temperature != 300 {
		t.Fatalf("temperature = %.1f", c.Snapshot().Temperature)
	}
}

func TestController_PersistentFaultAborts(t *testing.T) {
	c, relay, rec := newTestController(t, DefaultConfig())
	warm(c, t0, 20)
	if _, err := c.RequestFiring(t0, scenarioProfile()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for s := 0; s <= 300; s += 2 {
		c.SampleTick(t0.Add(time.Duration(s)*time.Second), models.FaultSample(models.FaultOpenCircuit))
	}
	if c.Snapshot().Active {
		t.Fatalf("run should abort after the fault timeout")
	}
	last := rec.phases[len(rec.phases)-1]
	if last.To != models.PhaseIdle || last.Reason != "sensor fault" {
		t.Fatalf("unexpected final transition: %+v", last)
	}
	if relay.on {
		t.Fatalf("relay must be off")
	}
}

func TestController_CancelFiring(t *testing.T) {
	c, relay, rec := newTestController(t, DefaultConfig())
	if err := c.CancelFiring(t0, "user"); !errors.Is(err, ErrNotFiring) {
		t.Fatalf("expected ErrNotFiring, got %v", err)
	}

	warm(c, t0, 20)
	if _, err := c.RequestFiring(t0, scenarioProfile()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c.ControlTick(t0)
	if !relay.on {
		t.Fatalf("expected relay on while ramping below setpoint")
	}
	if err := c.CancelFiring(t0.Add(time.Second), "user"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if relay.on {
		t.Fatalf("relay must be off when CancelFiring returns")
	}
	st := c.Status(t0.Add(time.Second))
	if st.Phase != models.PhaseIdle || st.SetpointC != nil || st.Profile != nil {
		t.Fatalf("unexpected status: %+v", st)
	}
	if rec.lastDisplay() != DisplayIdle {
		t.Fatalf("display = %q", rec.lastDisplay())
	}
	c.ControlTick(t0.Add(2 * time.Second))
	if relay.on {
		t.Fatalf("idle control tick turned relay on")
	}
}

func TestController_RelayFailure(t *testing.T) {
	c, relay, rec := newTestController(t, DefaultConfig())
	relay.err = errRelayStuck
	warm(c, t0, 20)
	if _, err := c.RequestFiring(t0, scenarioProfile()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c.ControlTick(t0)
	c.ControlTick(t0.Add(5 * time.Second))
	if c.RelayOn() {
		t.Fatalf("failed switch must not be reported as on")
	}
	if n := rec.alarmCount(models.AlarmRelayFault); n != 1 {
		t.Fatalf("expected one RELAY_FAULT, got %d", n)
	}
}

func TestController_Resume(t *testing.T) {
	p := profile(seg(100, 100, 10), seg(600, 150, 10), seg(1000, 150, 10), seg(1200, 100, 10))
	tests := []struct {
		name string
		temp float64
		want int
	}{
		{"cold kiln", 20, 0},
		{"between first and second", 450, 1},
		{"at third target", 1000, 3},
		{"above everything", 1250, 3},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c, _, _ := newTestController(t, DefaultConfig())
			warm(c, t0, tc.temp)
			started := t0.Add(-2 * time.Hour)
			idx, err := c.Resume(t0, models.PersistedRun{RunID: "persisted", Profile: p, StartedAt: started, Active: true})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if idx != tc.want {
				t.Fatalf("segment = %d, want %d", idx, tc.want)
			}
			st := c.Status(t0)
			if st.RunID != "persisted" || st.ElapsedMinutes != 120 {
				t.Fatalf("unexpected status: %+v", st)
			}
		})
	}
}

func TestController_ResumeErrors(t *testing.T) {
	c, _, _ := newTestController(t, DefaultConfig())
	pr := models.PersistedRun{RunID: "r", Profile: scenarioProfile(), Active: true}
	if _, err := c.Resume(t0, pr); !errors.Is(err, ErrNoTemperature) {
		t.Fatalf("expected ErrNoTemperature, got %v", err)
	}
	warm(c, t0, 20)
	if _, err := c.Resume(t0, pr); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := c.Resume(t0, pr); !errors.Is(err, ErrFiringInProgress) {
		t.Fatalf("expected ErrFiringInProgress, got %v", err)
	}
}

func TestController_TelemetryTick(t *testing.T) {
	rec := &recorder{}
	pm := NewPowerMonitor(DefaultPowerConfig(), rec)
	c := NewController(DefaultConfig(), &fakeRelay{}, nil, pm, rec, WithSignalStrength(func() int { return -61 }))
	warm(c, t0, 20)

	for i := 0; i < 1001; i++ {
		pm.Pulse(t0.Add(time.Duration(i)*1565*time.Millisecond), true)
	}
	ts := c.TelemetryTick(t0.Add(time.Hour))
	if ts.EnergyWh != 1001 {
		t.Fatalf("energy = %.0f", ts.EnergyWh)
	}
	if math.Abs(ts.Cost-1001.0/1000*2.14) > 1e-9 {
		t.Fatalf("cost = %.4f", ts.Cost)
	}
	if ts.RSSI != -61 || ts.TemperatureC == nil || *ts.TemperatureC != 20 || ts.SetpointC != nil {
		t.Fatalf("unexpected sample: %+v", ts)
	}
	if pm.State().PowerW != 0 {
		t.Fatalf("instantaneous power should be cleared after reporting")
	}
	if len(rec.telemetry) != 1 {
		t.Fatalf("expected telemetry to be pushed")
	}
}

func TestFormatElapsed(t *testing.T) {
	if got := FormatElapsed(7*time.Hour + 5*time.Minute + 30*time.Second); got != "7:05" {
		t.Fatalf("got %q", got)
	}
}

package kiln

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"kiln_controller/internal/models"

	"github.com/google/uuid"
)

var (
	ErrFiringInProgress = errors.New("a firing is already in progress")
	ErrNotFiring        = errors.New("no firing in progress")
	ErrNoTemperature    = errors.New("no valid temperature reading")
)

// Config holds the control-plane tuning knobs.
type Config struct {
	RampInterval    time.Duration // nominal ramp tick, used for the first increment of a run
	CoolingRate     float64       // °C/h during slow cooling; 0 ends the run after the final hold
	CoolingFloor    float64       // °C at which slow cooling hands over to natural cooling
	MaxTemperature  float64       // °C; profiles above it are rejected, 0 disables
	FaultMask       uint8         // thermocouple error bits treated as faults
	FaultAbortAfter time.Duration // a sensor fault lasting this long ends the run
	AverageWindow   int
	CostPerKWh      float64
}

// DefaultConfig mirrors the firmware defaults.
func DefaultConfig() Config {
	return Config{
		RampInterval:    60 * time.Second,
		CoolingRate:     60,
		CoolingFloor:    760,
		MaxTemperature:  1300,
		FaultMask:       models.FaultOpenCircuit,
		FaultAbortAfter: 5 * time.Minute,
		AverageWindow:   DefaultAverageWindow,
		CostPerKWh:      2.14,
	}
}

// Snapshot is the lock-free view of the controller used by the safety
// watchdog and the pulse handler.
type Snapshot struct {
	At           time.Time
	Active       bool
	Phase        models.Phase
	Step         int
	Setpoint     float64 // NaN when unset
	Temperature  float64 // NaN when unknown or faulted
	Internal     float64
	SensorFault  bool
	RelayOn      bool
	RelayOnSince time.Time
	Duty         float64
}

// run is the live execution context of one firing.
type run struct {
	id          string
	profile     models.FiringProfile
	index       int
	phase       models.Phase
	setpoint    float64
	hasSetpoint bool
	holdStart   time.Time
	holdPaused  time.Duration
	startedAt   time.Time
	lastRamp    time.Time
	estimate    int
}

func (r *run) segment() models.Segment { return r.profile.Segments[r.index] }

// Option customises a Controller.
type Option func(*Controller)

// WithSignalStrength sets the RSSI source reported in telemetry.
func WithSignalStrength(fn func() int) Option {
	return func(c *Controller) { c.rssi = fn }
}

// WithIDGenerator replaces uuid.NewString for run IDs.
func WithIDGenerator(fn func() string) Option {
	return func(c *Controller) { c.newID = fn }
}

// Controller owns all mutable firing state. Every method is serialised by
// one mutex; ticks are driven from outside with an explicit time.
type Controller struct {
	cfg    Config
	relay  Relay
	output OutputController
	power  *PowerMonitor
	notify Notifier
	newID  func() string
	rssi   func() int

	mu           sync.Mutex
	run          *run
	avg          *Averager
	temp         float64
	internal     float64
	fault        bool
	faultSince   time.Time
	relayOn      bool
	relayOnSince time.Time
	relayFault   bool
	duty         float64
	display      string

	relayState atomic.Bool
	snap       atomic.Pointer[Snapshot]
}

// NewController wires the core. A nil notifier discards notifications.
func NewController(cfg Config, relay Relay, output OutputController, power *PowerMonitor, n Notifier, opts ...Option) *Controller {
	if n == nil {
		n = NopNotifier{}
	}
	if output == nil {
		output = NewHysteresis(DefaultDifferential)
	}
	if power == nil {
		power = NewPowerMonitor(DefaultPowerConfig(), n)
	}
	if cfg.RampInterval <= 0 {
		cfg.RampInterval = 60 * time.Second
	}
	c := &Controller{
		cfg:      cfg,
		relay:    relay,
		output:   output,
		power:    power,
		notify:   n,
		newID:    uuid.NewString,
		rssi:     func() int { return 0 },
		avg:      NewAverager(cfg.AverageWindow),
		temp:     math.NaN(),
		internal: math.NaN(),
		display:  DisplayIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.publishLocked(time.Time{})
	return c
}

// Power returns the meter the controller resets and reports.
func (c *Controller) Power() *PowerMonitor { return c.power }

// RelayOn is safe to call from any goroutine without taking the lock.
func (c *Controller) RelayOn() bool { return c.relayState.Load() }

// Snapshot returns the last published state without locking.
func (c *Controller) Snapshot() Snapshot {
	if s := c.snap.Load(); s != nil {
		return *s
	}
	return Snapshot{Setpoint: math.NaN(), Temperature: math.NaN(), Internal: math.NaN(), Phase: models.PhaseIdle}
}

// RequestFiring validates p and starts a run at segment 0.
func (c *Controller) RequestFiring(now time.Time, p models.FiringProfile) (models.Status, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.run != nil {
		return c.statusLocked(now), ErrFiringInProgress
	}
	vp, err := c.admit(p)
	if err != nil {
		return c.statusLocked(now), err
	}
	c.power.Reset()
	c.start(now, vp.Profile(), c.newID(), 0, now)
	return c.statusLocked(now), nil
}

// Resume restarts a persisted run after an unexpected restart. The segment is
// inferred from the current temperature; the returned index is where it
// resumed.
func (c *Controller) Resume(now time.Time, pr models.PersistedRun) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.run != nil {
		return 0, ErrFiringInProgress
	}
	vp, err := c.admit(pr.Profile)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(c.temp) {
		return 0, ErrNoTemperature
	}
	id := pr.RunID
	if id == "" {
		id = c.newID()
	}
	started := pr.StartedAt
	if started.IsZero() {
		started = now
	}
	idx := InferSegment(vp.Profile(), c.temp)
	c.start(now, vp.Profile(), id, idx, started)
	return idx, nil
}

// InferSegment picks the first segment whose target is still above temp,
// falling back to the final segment.
func InferSegment(p models.FiringProfile, temp float64) int {
	for i, s := range p.Segments {
		if temp < s.TargetC {
			return i
		}
	}
	return models.SegmentCount - 1
}

func (c *Controller) admit(p models.FiringProfile) (ValidatedProfile, error) {
	vp, err := NewValidatedProfile(p)
	if err != nil {
		return ValidatedProfile{}, err
	}
	if c.cfg.MaxTemperature > 0 {
		for i, s := range p.Segments {
			if s.TargetC > c.cfg.MaxTemperature {
				return ValidatedProfile{}, &ValidationError{Segment: i, Field: "target", Err: ErrTargetAboveLimit}
			}
		}
	}
	return vp, nil
}

func (c *Controller) start(now time.Time, p models.FiringProfile, id string, idx int, startedAt time.Time) {
	c.output.Reset()
	c.run = &run{
		id:        id,
		profile:   p,
		index:     idx,
		phase:     models.PhaseRamping,
		startedAt: startedAt,
		estimate:  EstimatedDurationMinutes(p, c.temp),
	}
	c.phaseChange(now, models.PhaseIdle, "firing requested")
	c.setDisplay(displayFiring(c.run.segment().TargetC))
	c.rampLocked(now)
	c.publishLocked(now)
}

// CancelFiring stops the run and switches the output off before returning.
func (c *Controller) CancelFiring(now time.Time, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.run == nil {
		c.setRelay(now, false)
		c.publishLocked(now)
		return ErrNotFiring
	}
	if reason == "" {
		reason = "cancelled"
	}
	c.abortLocked(now, reason)
	return nil
}

// Abort is CancelFiring for internal callers that do not care whether a run
// was active.
func (c *Controller) Abort(now time.Time, reason string) {
	_ = c.CancelFiring(now, reason)
}

func (c *Controller) abortLocked(now time.Time, reason string) {
	c.setRelay(now, false)
	c.output.Reset()
	from := c.run.phase
	c.run.phase = models.PhaseIdle
	c.phaseChange(now, from, reason)
	c.run = nil
	c.duty = 0
	c.setDisplay(DisplayIdle)
	c.publishLocked(now)
}

// SampleTick ingests one sensor read.
func (c *Controller) SampleTick(now time.Time, s models.SensorSample) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.internal = s.Internal
	if s.Faulted(c.cfg.FaultMask) {
		c.onFault(now, s)
		c.publishLocked(now)
		return
	}
	if c.fault {
		c.fault = false
		if c.run != nil && c.run.phase == models.PhaseHolding {
			from := c.faultSince
			if c.run.holdStart.After(from) {
				from = c.run.holdStart
			}
			c.run.holdPaused += now.Sub(from)
		}
	}
	c.temp = c.avg.Add(s.Temperature)
	c.notify.OnTemperatureEvent(c.temp)
	c.publishLocked(now)
}

func (c *Controller) onFault(now time.Time, s models.SensorSample) {
	if !c.fault {
		c.fault = true
		c.faultSince = now
		c.avg.Reset()
		c.notify.OnAlarm(models.Alarm{
			Code:    models.AlarmSensorFault,
			Message: fmt.Sprintf("Thermocouple error #%d", s.ErrorCode),
			At:      now,
		})
	}
	c.temp = math.NaN()
	c.output.Update(now, math.NaN(), math.NaN())
	c.duty = 0
	c.setRelay(now, false)
	if c.run != nil && now.Sub(c.faultSince) >= c.cfg.FaultAbortAfter {
		c.abortLocked(now, "sensor fault")
	}
}

// RampTick moves the setpoint. Pending transitions are evaluated first so a
// hold that just elapsed is never skipped.
func (c *Controller) RampTick(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.run == nil {
		return
	}
	if c.fault {
		c.run.lastRamp = now
		return
	}
	c.evaluateLocked(now)
	if c.run == nil {
		return
	}
	c.rampLocked(now)
	c.publishLocked(now)
}

func (c *Controller) rampLocked(now time.Time) {
	r := c.run
	dt := c.cfg.RampInterval
	if !r.lastRamp.IsZero() {
		dt = now.Sub(r.lastRamp)
	}
	r.lastRamp = now

	switch r.phase {
	case models.PhaseRamping:
		if !r.hasSetpoint {
			if math.IsNaN(c.temp) {
				return
			}
			r.setpoint = c.temp
			r.hasSetpoint = true
		}
		seg := r.segment()
		if descending(r.profile, r.index) {
			r.setpoint = NextSetpoint(r.setpoint, seg.TargetC, seg.RateCPerHour, dt)
		} else {
			r.setpoint = ascendSetpoint(r.setpoint, seg.TargetC, seg.RateCPerHour, dt)
		}
	case models.PhaseHolding:
		r.setpoint = r.segment().TargetC
		r.hasSetpoint = true
	case models.PhaseSlowCooling:
		r.setpoint = coolSetpoint(r.setpoint, c.cfg.CoolingRate, dt)
		if r.setpoint < c.cfg.CoolingFloor {
			c.finishLocked(now)
			return
		}
	}
	r.setpoint = math.Max(0, math.Min(r.setpoint, r.profile.MaxTarget()))
}

// ControlTick evaluates segment completion and decides the output.
func (c *Controller) ControlTick(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.publishLocked(now)

	if c.run == nil {
		c.setRelay(now, false)
		return
	}
	if c.fault || math.IsNaN(c.temp) {
		c.setRelay(now, false)
		return
	}
	c.evaluateLocked(now)
	if c.run == nil {
		return
	}
	c.decideOutputLocked(now)
	if c.run.phase == models.PhaseHolding {
		seg := c.run.segment()
		c.setDisplay(displayHold(c.run.setpoint, c.holdElapsed(now), seg.HoldMinutes))
	}
}

// evaluateLocked applies at most one state machine transition.
func (c *Controller) evaluateLocked(now time.Time) {
	r := c.run
	switch r.phase {
	case models.PhaseRamping:
		if math.IsNaN(c.temp) {
			return
		}
		seg := r.segment()
		reached := c.temp >= seg.TargetC
		if descending(r.profile, r.index) {
			reached = c.temp <= seg.TargetC
		}
		if !reached {
			return
		}
		r.phase = models.PhaseHolding
		r.holdStart = now
		r.holdPaused = 0
		r.setpoint = seg.TargetC
		r.hasSetpoint = true
		c.phaseChange(now, models.PhaseRamping, fmt.Sprintf("segment %d target reached", r.index+1))
		c.setDisplay(displayHold(r.setpoint, 0, seg.HoldMinutes))

	case models.PhaseHolding:
		if c.holdElapsed(now) < r.segment().HoldMinutes {
			return
		}
		if r.index+1 < models.SegmentCount {
			r.index++
			r.phase = models.PhaseRamping
			c.phaseChange(now, models.PhaseHolding, "hold complete")
			c.setDisplay(displayFiring(r.segment().TargetC))
			return
		}
		r.index = models.SegmentCount
		r.phase = models.PhaseSlowCooling
		c.phaseChange(now, models.PhaseHolding, "reached temp, after: "+FormatElapsed(now.Sub(r.startedAt)))
		c.setDisplay(DisplayCooling)
		if c.cfg.CoolingRate <= 0 || r.setpoint < c.cfg.CoolingFloor {
			c.finishLocked(now)
		}

	case models.PhaseSlowCooling:
		if r.setpoint < c.cfg.CoolingFloor {
			c.finishLocked(now)
		}
	}
}

func (c *Controller) finishLocked(now time.Time) {
	c.setRelay(now, false)
	c.output.Reset()
	from := c.run.phase
	c.run.phase = models.PhaseIdle
	c.phaseChange(now, from, "cooling complete")
	c.run = nil
	c.duty = 0
	c.setDisplay(DisplayIdle)
	c.publishLocked(now)
}

func (c *Controller) decideOutputLocked(now time.Time) {
	r := c.run
	if !r.hasSetpoint {
		c.duty = 0
		c.setRelay(now, false)
		return
	}
	cmd := c.output.Update(now, r.setpoint, c.temp)
	c.duty = cmd.Duty
	c.setRelay(now, cmd.On)
}

// holdElapsed is whole minutes in hold, excluding time spent in sensor fault.
func (c *Controller) holdElapsed(now time.Time) int {
	r := c.run
	d := now.Sub(r.holdStart) - r.holdPaused
	if d < 0 {
		return 0
	}
	return int(d / time.Minute)
}

// setRelay enforces the output invariants: never on while idle or faulted.
func (c *Controller) setRelay(now time.Time, on bool) {
	if on && (c.run == nil || c.fault) {
		on = false
	}
	if on == c.relayOn {
		return
	}
	if c.relay != nil {
		if err := c.relay.Set(on); err != nil {
			if !c.relayFault {
				c.relayFault = true
				c.notify.OnAlarm(models.Alarm{
					Code:    models.AlarmRelayFault,
					Message: fmt.Sprintf("relay switch to %t failed: %v", on, err),
					At:      now,
				})
			}
			if on {
				return
			}
		} else {
			c.relayFault = false
		}
	}
	c.relayOn = on
	c.relayState.Store(on)
	if on {
		c.relayOnSince = now
	}
}

func (c *Controller) setDisplay(text string) {
	if text == c.display {
		return
	}
	c.display = text
	c.notify.OnDisplayText(text)
}

func (c *Controller) phaseChange(now time.Time, from models.Phase, reason string) {
	pc := models.PhaseChange{From: from, To: models.PhaseIdle, Reason: reason, At: now}
	if c.run != nil {
		pc.RunID = c.run.id
		pc.To = c.run.phase
		pc.Step = c.run.index
		pc.Elapsed = now.Sub(c.run.startedAt)
	}
	c.notify.OnPhaseChange(pc)
}

func (c *Controller) publishLocked(now time.Time) {
	s := &Snapshot{
		At:           now,
		Phase:        models.PhaseIdle,
		Setpoint:     math.NaN(),
		Temperature:  c.temp,
		Internal:     c.internal,
		SensorFault:  c.fault,
		RelayOn:      c.relayOn,
		RelayOnSince: c.relayOnSince,
		Duty:         c.duty,
	}
	if r := c.run; r != nil {
		s.Active = true
		s.Phase = r.phase
		s.Step = r.index
		if r.hasSetpoint {
			s.Setpoint = r.setpoint
		}
	}
	c.snap.Store(s)
}

// Status reports the current state for the remote-control layer.
func (c *Controller) Status(now time.Time) models.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusLocked(now)
}

func (c *Controller) statusLocked(now time.Time) models.Status {
	st := models.Status{
		Phase:        models.PhaseIdle,
		TemperatureC: floatPtr(c.temp),
		InternalC:    floatPtr(c.internal),
		RelayOn:      c.relayOn,
		Duty:         c.duty,
		SensorFault:  c.fault,
		Display:      c.display,
		Power:        c.power.State(),
	}
	if r := c.run; r != nil {
		st.Phase = r.phase
		st.Step = r.index
		st.RunID = r.id
		if r.hasSetpoint {
			st.SetpointC = floatPtr(r.setpoint)
		}
		st.ElapsedMinutes = int(now.Sub(r.startedAt) / time.Minute)
		if r.phase == models.PhaseHolding {
			st.HoldElapsedMinutes = c.holdElapsed(now)
		}
		st.EstimatedMinutes = r.estimate
		started := r.startedAt
		st.StartedAt = &started
		p := r.profile
		st.Profile = &p
	}
	return st
}

// TelemetryTick builds and pushes one telemetry sample, then clears the
// instantaneous power readings.
func (c *Controller) TelemetryTick(now time.Time) models.TelemetrySample {
	c.mu.Lock()
	ps := c.power.State()
	ts := models.TelemetrySample{
		At:           now,
		Phase:        models.PhaseIdle,
		TemperatureC: floatPtr(c.temp),
		InternalC:    floatPtr(c.internal),
		CurrentA:     ps.CurrentA,
		PowerW:       ps.PowerW,
		EnergyWh:     ps.EnergyWh,
		Cost:         ps.EnergyWh / 1000 * c.cfg.CostPerKWh,
		RelayOn:      c.relayOn,
		RSSI:         c.rssi(),
	}
	if r := c.run; r != nil {
		ts.Phase = r.phase
		ts.Step = r.index
		if r.hasSetpoint {
			ts.SetpointC = floatPtr(r.setpoint)
		}
	}
	c.notify.OnTelemetry(ts)
	c.mu.Unlock()

	c.power.ResetInstantaneous()
	return ts
}

func floatPtr(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

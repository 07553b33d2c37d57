package service

import (
	"context"
	"sync"
	"time"

	"kiln_controller/internal/hardware"
	"kiln_controller/internal/kiln"
	"kiln_controller/internal/logger"
	"kiln_controller/internal/models"
	"kiln_controller/internal/repository"
)

// Intervals are the periods of the control loop tickers.
type Intervals struct {
	Sensor    time.Duration
	Control   time.Duration
	Ramp      time.Duration
	Telemetry time.Duration
	Safety    time.Duration
	Persist   time.Duration
}

// DefaultIntervals matches the firmware timing.
func DefaultIntervals() Intervals {
	return Intervals{
		Sensor:    2 * time.Second,
		Control:   5530 * time.Millisecond,
		Ramp:      time.Minute,
		Telemetry: 10 * time.Second,
		Safety:    2115 * time.Millisecond,
		Persist:   time.Minute,
	}
}

// ControlLoop drives the controller from hardware and tickers. Sensor,
// control, ramp and telemetry ticks share one goroutine so they never
// overlap; safety and pulses run on their own.
type ControlLoop struct {
	ctrl    *kiln.Controller
	safety  *kiln.SafetyMonitor
	sensor  hardware.Sensor
	pulses  hardware.PulseSource
	runRepo repository.RunRepo
	every   Intervals
	log     *logger.Logger
	now     func() time.Time
}

func NewControlLoop(ctrl *kiln.Controller, safety *kiln.SafetyMonitor, sensor hardware.Sensor, pulses hardware.PulseSource,
	runRepo repository.RunRepo, every Intervals, log *logger.Logger) *ControlLoop {
	return &ControlLoop{
		ctrl:    ctrl,
		safety:  safety,
		sensor:  sensor,
		pulses:  pulses,
		runRepo: runRepo,
		every:   every,
		log:     log,
		now:     time.Now,
	}
}

// Prime takes one sensor reading so the controller has a temperature before
// recovery or the first request.
func (l *ControlLoop) Prime() {
	l.sense(l.now())
}

// Run blocks until ctx is cancelled.
func (l *ControlLoop) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		l.runSafety(ctx)
	}()
	go func() {
		defer wg.Done()
		l.runPulses(ctx)
	}()

	sensorT := time.NewTicker(l.every.Sensor)
	controlT := time.NewTicker(l.every.Control)
	rampT := time.NewTicker(l.every.Ramp)
	telemetryT := time.NewTicker(l.every.Telemetry)
	persistT := time.NewTicker(l.every.Persist)
	defer func() {
		sensorT.Stop()
		controlT.Stop()
		rampT.Stop()
		telemetryT.Stop()
		persistT.Stop()
	}()

	l.log.Infow("control_loop_started", "sensor", l.every.Sensor, "control", l.every.Control, "ramp", l.every.Ramp)
	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			l.log.Infow("control_loop_stopped")
			return
		case <-sensorT.C:
			l.sense(l.now())
		case <-controlT.C:
			l.ctrl.ControlTick(l.now())
		case <-rampT.C:
			l.ctrl.RampTick(l.now())
		case <-telemetryT.C:
			l.ctrl.TelemetryTick(l.now())
		case <-persistT.C:
			l.persist(ctx, l.now())
		}
	}
}

// sense feeds one reading to the controller. A device error counts as an
// open-circuit fault so the output is switched off.
func (l *ControlLoop) sense(now time.Time) {
	sample, err := l.sensor.Read()
	if err != nil {
		l.log.Errorw("sensor_read_failed", "err", err)
		sample = models.FaultSample(models.FaultOpenCircuit)
	}
	l.ctrl.SampleTick(now, sample)
}

func (l *ControlLoop) runSafety(ctx context.Context) {
	t := time.NewTicker(l.every.Safety)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			l.checkSafety(l.now())
		}
	}
}

// checkSafety audits the published snapshot and aborts the run when the
// verdict demands it.
func (l *ControlLoop) checkSafety(now time.Time) kiln.Verdict {
	v := l.safety.Check(now, l.ctrl.Snapshot(), l.ctrl.Power().State())
	if v.Abort {
		l.log.Errorw("safety_abort", "reason", v.Reason)
		l.ctrl.Abort(now, "safety: "+v.Reason)
	}
	return v
}

func (l *ControlLoop) runPulses(ctx context.Context) {
	if l.pulses == nil {
		return
	}
	ch := l.pulses.Pulses()
	for {
		select {
		case <-ctx.Done():
			return
		case at, ok := <-ch:
			if !ok {
				return
			}
			l.ctrl.Power().Pulse(at, l.ctrl.RelayOn())
		}
	}
}

// persist refreshes the stored copy of the active run.
func (l *ControlLoop) persist(ctx context.Context, now time.Time) {
	st := l.ctrl.Status(now)
	if st.Profile == nil || st.StartedAt == nil {
		return
	}
	err := l.runRepo.Save(ctx, models.PersistedRun{
		RunID:     st.RunID,
		Profile:   *st.Profile,
		StartedAt: st.StartedAt.UTC(),
		Active:    true,
		UpdatedAt: now.UTC(),
	})
	if err != nil {
		l.log.Errorw("run_persist_failed", "run_id", st.RunID, "err", err)
	}
}

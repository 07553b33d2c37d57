package kiln

import (
	"math"
	"time"
)

// Command is the decision of an output controller.
type Command struct {
	On   bool
	Duty float64 // fraction of full power the strategy is asking for
}

// OutputController turns (setpoint, temperature) into a relay command.
type OutputController interface {
	Update(now time.Time, setpoint, temperature float64) Command
	Reset()
}

// DefaultDifferential is the hysteresis band in °C.
const DefaultDifferential = 5.0

// Hysteresis is asymmetric bang-bang control: it switches on as soon as the
// temperature is at or below setpoint, and off only after it exceeds
// setpoint, after which it waits until it is Differential below again.
type Hysteresis struct {
	Differential float64

	on      bool
	applied float64
}

// NewHysteresis returns a controller with differential d (°C).
func NewHysteresis(d float64) *Hysteresis {
	return &Hysteresis{Differential: d}
}

func (h *Hysteresis) Update(_ time.Time, setpoint, temperature float64) Command {
	if math.IsNaN(temperature) || math.IsNaN(setpoint) {
		h.turnOff()
		return Command{}
	}
	delta := setpoint - temperature - h.applied
	switch {
	case !h.on && delta >= 0:
		h.on = true
		h.applied = 0
	case h.on && delta < 0:
		h.turnOff()
	}
	if h.on {
		return Command{On: true, Duty: 1}
	}
	return Command{}
}

func (h *Hysteresis) turnOff() {
	h.on = false
	h.applied = h.Differential
}

// Reset returns to the initial off state with no differential applied.
func (h *Hysteresis) Reset() {
	h.on = false
	h.applied = 0
}

// DutyCycle is a PI controller whose output fraction is time-proportioned
// over a fixed window.
type DutyCycle struct {
	Kp, Ki float64
	Window time.Duration

	integ       float64
	lastTime    time.Time
	windowStart time.Time
	duty        float64
}

// NewDutyCycle returns a PI duty-cycle controller.
func NewDutyCycle(kp, ki float64, window time.Duration) *DutyCycle {
	if window <= 0 {
		window = time.Minute
	}
	return &DutyCycle{Kp: kp, Ki: ki, Window: window}
}

func (d *DutyCycle) Update(now time.Time, setpoint, temperature float64) Command {
	if math.IsNaN(temperature) || math.IsNaN(setpoint) {
		d.Reset()
		return Command{}
	}
	dt := 0.0
	if !d.lastTime.IsZero() {
		dt = now.Sub(d.lastTime).Seconds()
	}
	d.lastTime = now

	err := setpoint - temperature
	integ := d.integ + err*dt
	out := d.Kp*err + d.Ki*integ
	bounded := math.Max(0, math.Min(1, out))
	// anti-windup: keep the integral only while unsaturated
	if out == bounded {
		d.integ = integ
	}

	if d.windowStart.IsZero() || now.Sub(d.windowStart) >= d.Window {
		d.windowStart = now
		d.duty = bounded
	}
	on := now.Sub(d.windowStart) < time.Duration(d.duty*float64(d.Window))
	return Command{On: on && d.duty > 0, Duty: d.duty}
}

func (d *DutyCycle) Reset() {
	d.integ = 0
	d.duty = 0
	d.lastTime = time.Time{}
	d.windowStart = time.Time{}
}

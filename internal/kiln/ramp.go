package kiln

import (
	"math"
	"time"
)

// NextSetpoint advances current toward target at rate °C/h over dt and never
// passes the target, in either direction.
func NextSetpoint(current, target, rate float64, dt time.Duration) float64 {
	step := rate * dt.Hours()
	if step < 0 {
		step = 0
	}
	if current >= target {
		return math.Max(target, current-step)
	}
	return math.Min(target, current+step)
}

// ascendSetpoint is the rising-segment rule: once at or above target the
// setpoint is clamped, otherwise it advances by one increment.
func ascendSetpoint(current, target, rate float64, dt time.Duration) float64 {
	if current >= target {
		return target
	}
	return NextSetpoint(current, target, rate, dt)
}

// coolSetpoint lowers the setpoint by rate °C/h over dt, floored at zero.
func coolSetpoint(current, rate float64, dt time.Duration) float64 {
	return math.Max(0, current-rate*dt.Hours())
}

package service

import (
	"kiln_controller/internal/config"
	"kiln_controller/internal/kiln"
)

// ControllerConfig maps the runtime configuration onto the core.
func ControllerConfig(c *config.Config) kiln.Config {
	return kiln.Config{
		RampInterval:    c.Intervals.Ramp,
		CoolingRate:     c.Cooling.CoolingRate(),
		CoolingFloor:    c.Cooling.FloorC,
		MaxTemperature:  c.Control.MaxTemperatureC,
		FaultMask:       c.Sensor.FaultMask,
		FaultAbortAfter: c.Sensor.FaultAbortAfter,
		AverageWindow:   c.Sensor.AverageWindow,
		CostPerKWh:      c.Energy.CostPerKWh,
	}
}

// OutputStrategy builds the output controller named by control.strategy.
func OutputStrategy(c config.ControlConfig) kiln.OutputController {
	if c.Strategy == "duty_cycle" {
		return kiln.NewDutyCycle(c.Kp, c.Ki, c.Window)
	}
	return kiln.NewHysteresis(c.Differential)
}

func PowerConfig(c config.PowerConfig) kiln.PowerConfig {
	return kiln.PowerConfig{
		QuantumWh:        c.QuantumWh,
		LineVoltage:      c.LineVoltage,
		MinPulseInterval: c.MinPulseInterval,
		AnomalyPulses:    c.AnomalyPulses,
	}
}

func SafetyConfig(c *config.Config) kiln.SafetyConfig {
	return kiln.SafetyConfig{
		InternalMaxC:            c.Safety.InternalMaxC,
		MaxTemperatureC:         c.Control.MaxTemperatureC,
		HighBand:                c.Safety.HighBandC,
		LowBand:                 c.Safety.LowBandC,
		PulseTimeout:            c.Safety.PulseTimeout,
		PulseMargin:             c.Safety.PulseMargin,
		RatedPowerW:             c.Power.RatedPowerW,
		AbortOnOverTemperature:  c.Safety.AbortOnOverTemperature,
		AbortOnDeviation:        c.Safety.AbortOnDeviation,
		AbortOnInternalOverheat: c.Safety.AbortOnInternalOverheat,
	}
}

func LoopIntervals(c config.IntervalsConfig) Intervals {
	return Intervals{
		Sensor:    c.Sensor,
		Control:   c.Control,
		Ramp:      c.Ramp,
		Telemetry: c.Telemetry,
		Safety:    c.Safety,
		Persist:   c.Persist,
	}
}

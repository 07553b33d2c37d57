package models

import "math"

// Thermocouple fault bits as reported by MAX31855-class converters.
const (
	FaultOpenCircuit uint8 = 1 << iota
	FaultShortGND
	FaultShortVCC
)

// SensorSample is a single thermocouple read.
type SensorSample struct {
	Temperature float64 // °C, NaN on fault
	Internal    float64 // cold-junction / electronics °C
	ErrorCode   uint8
}

// Faulted reports whether the sample is unusable for control under the given mask.
func (s SensorSample) Faulted(mask uint8) bool {
	return s.ErrorCode&mask != 0 || math.IsNaN(s.Temperature)
}

// FaultSample builds a sample that carries only a fault code.
func FaultSample(code uint8) SensorSample {
	return SensorSample{Temperature: math.NaN(), Internal: math.NaN(), ErrorCode: code}
}

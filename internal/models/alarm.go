package models

import "time"

// AlarmCode identifies a latched safety or fault condition.
type AlarmCode string

const (
	AlarmSensorFault          AlarmCode = "SENSOR_FAULT"
	AlarmInternalOverheat     AlarmCode = "INTERNAL_OVERHEAT"
	AlarmOverTemperature      AlarmCode = "OVER_TEMPERATURE"
	AlarmTemperatureHigh      AlarmCode = "TEMPERATURE_HIGH"
	AlarmTemperatureLow       AlarmCode = "TEMPERATURE_LOW"
	AlarmNoPowerPulses        AlarmCode = "NO_POWER_PULSES"
	AlarmCurrentWithoutOutput AlarmCode = "CURRENT_WITHOUT_OUTPUT"
	AlarmRelayFault           AlarmCode = "RELAY_FAULT"
)

// Alarm is a latched notification surfaced to the operator.
type Alarm struct {
	Code    AlarmCode `json:"code"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

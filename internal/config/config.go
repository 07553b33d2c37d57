// Package config loads the controller configuration from configs/config.yml
// and KILN_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config is the full runtime configuration.
type Config struct {
	HTTP      HTTPConfig      `mapstructure:"http"`
	Log       LogConfig       `mapstructure:"log"`
	DB        DBConfig        `mapstructure:"db"`
	Hardware  HardwareConfig  `mapstructure:"hardware"`
	Sensor    SensorConfig    `mapstructure:"sensor"`
	Control   ControlConfig   `mapstructure:"control"`
	Cooling   CoolingConfig   `mapstructure:"cooling"`
	Power     PowerConfig     `mapstructure:"power"`
	Safety    SafetyConfig    `mapstructure:"safety"`
	Intervals IntervalsConfig `mapstructure:"intervals"`
	MQTT      MQTTConfig      `mapstructure:"mqtt"`
	History   HistoryConfig   `mapstructure:"history"`
	Energy    EnergyConfig    `mapstructure:"energy"`
}

type HTTPConfig struct {
	Port string `mapstructure:"port" validate:"required"`
}

type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
}

type DBConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// HardwareConfig selects and addresses the I/O backend.
type HardwareConfig struct {
	Mode             string `mapstructure:"mode" validate:"oneof=gpio simulated"`
	Chip             string `mapstructure:"chip"`
	RelayLine        int    `mapstructure:"relay_line" validate:"gte=0"`
	PulseLine        int    `mapstructure:"pulse_line" validate:"gte=0"`
	ThermocouplePath string `mapstructure:"thermocouple_path"`
	InternalPath     string `mapstructure:"internal_path"`
	FaultPath        string `mapstructure:"fault_path"`
}

type SensorConfig struct {
	FaultMask       uint8         `mapstructure:"fault_mask"`
	FaultAbortAfter time.Duration `mapstructure:"fault_abort_after" validate:"gte=0"`
	AverageWindow   int           `mapstructure:"average_window" validate:"gte=1,lte=32"`
}

// ControlConfig picks the output strategy.
type ControlConfig struct {
	Strategy        string        `mapstructure:"strategy" validate:"oneof=hysteresis duty_cycle"`
	Differential    float64       `mapstructure:"differential_c" validate:"gte=0"`
	Kp              float64       `mapstructure:"kp" validate:"gte=0"`
	Ki              float64       `mapstructure:"ki" validate:"gte=0"`
	Window          time.Duration `mapstructure:"window" validate:"gt=0"`
	MaxTemperatureC float64       `mapstructure:"max_temperature_c" validate:"gte=0"`
}

type CoolingConfig struct {
	Preset       string  `mapstructure:"preset" validate:"omitempty,oneof=slow medium fast"`
	RateCPerHour float64 `mapstructure:"rate_c_per_hour" validate:"gte=0"`
	FloorC       float64 `mapstructure:"floor_c" validate:"gte=0"`
}

type PowerConfig struct {
	QuantumWh        float64       `mapstructure:"quantum_wh" validate:"gt=0"`
	LineVoltage      float64       `mapstructure:"line_voltage" validate:"gt=0"`
	RatedPowerW      float64       `mapstructure:"rated_power_w" validate:"gt=0"`
	MinPulseInterval time.Duration `mapstructure:"min_pulse_interval" validate:"gte=0"`
	AnomalyPulses    int           `mapstructure:"anomaly_pulses" validate:"gte=1"`
	PulseBuffer      int           `mapstructure:"pulse_buffer" validate:"gte=1"`
}

type SafetyConfig struct {
	InternalMaxC            float64       `mapstructure:"internal_max_c" validate:"gt=0"`
	HighBandC               float64       `mapstructure:"high_band_c" validate:"gt=0"`
	LowBandC                float64       `mapstructure:"low_band_c" validate:"gt=0"`
	PulseTimeout            time.Duration `mapstructure:"pulse_timeout" validate:"gt=0"`
	PulseMargin             float64       `mapstructure:"pulse_margin" validate:"gte=1"`
	AbortOnOverTemperature  bool          `mapstructure:"abort_on_over_temperature"`
	AbortOnDeviation        bool          `mapstructure:"abort_on_deviation"`
	AbortOnInternalOverheat bool          `mapstructure:"abort_on_internal_overheat"`
}

// IntervalsConfig holds the loop periods.
type IntervalsConfig struct {
	Sensor    time.Duration `mapstructure:"sensor" validate:"gt=0"`
	Control   time.Duration `mapstructure:"control" validate:"gt=0"`
	Ramp      time.Duration `mapstructure:"ramp" validate:"gt=0"`
	Telemetry time.Duration `mapstructure:"telemetry" validate:"gt=0"`
	Safety    time.Duration `mapstructure:"safety" validate:"gt=0"`
	Persist   time.Duration `mapstructure:"persist" validate:"gt=0"`
}

type MQTTConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Broker    string `mapstructure:"broker" validate:"required_if=Enabled true"`
	ClientID  string `mapstructure:"client_id"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	TopicRoot string `mapstructure:"topic_root" validate:"required"`
}

type HistoryConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Path      string        `mapstructure:"path"`
	InMemory  bool          `mapstructure:"in_memory"`
	Retention time.Duration `mapstructure:"retention" validate:"gte=0"`
}

type EnergyConfig struct {
	CostPerKWh float64 `mapstructure:"cost_per_kwh" validate:"gte=0"`
	Currency   string  `mapstructure:"currency"`
}

// Cooling presets in °C/h.
var coolingPresets = map[string]float64{
	"slow":   15,
	"medium": 60,
	"fast":   150,
}

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

const envPrefix = "KILN"

var validate = validator.New()

// SetDefaults registers the built-in defaults on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("http.port", "8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("db.path", "kiln.db")

	v.SetDefault("hardware.mode", "simulated")
	v.SetDefault("hardware.chip", "gpiochip0")
	v.SetDefault("hardware.relay_line", 17)
	v.SetDefault("hardware.pulse_line", 27)
	v.SetDefault("hardware.thermocouple_path", "/sys/bus/iio/devices/iio:device0/in_temp_raw")
	v.SetDefault("hardware.internal_path", "/sys/bus/iio/devices/iio:device0/in_temp_ambient_raw")
	v.SetDefault("hardware.fault_path", "")

	v.SetDefault("sensor.fault_mask", 1)
	v.SetDefault("sensor.fault_abort_after", 5*time.Minute)
	v.SetDefault("sensor.average_window", 4)

	v.SetDefault("control.strategy", "hysteresis")
	v.SetDefault("control.differential_c", 5.0)
	v.SetDefault("control.kp", 0.02)
	v.SetDefault("control.ki", 0.0002)
	v.SetDefault("control.window", time.Minute)
	v.SetDefault("control.max_temperature_c", 1300.0)

	v.SetDefault("cooling.preset", "medium")
	v.SetDefault("cooling.rate_c_per_hour", 0.0)
	v.SetDefault("cooling.floor_c", 760.0)

	v.SetDefault("power.quantum_wh", 1.0)
	v.SetDefault("power.line_voltage", 230.0)
	v.SetDefault("power.rated_power_w", 2300.0)
	v.SetDefault("power.min_pulse_interval", 100*time.Millisecond)
	v.SetDefault("power.anomaly_pulses", 2)
	v.SetDefault("power.pulse_buffer", 64)

	v.SetDefault("safety.internal_max_c", 60.0)
	v.SetDefault("safety.high_band_c", 10.0)
	v.SetDefault("safety.low_band_c", 20.0)
	v.SetDefault("safety.pulse_timeout", 2*time.Second)
	v.SetDefault("safety.pulse_margin", 1.0)
	v.SetDefault("safety.abort_on_over_temperature", false)
	v.SetDefault("safety.abort_on_deviation", false)
	v.SetDefault("safety.abort_on_internal_overheat", false)

	v.SetDefault("intervals.sensor", 2*time.Second)
	v.SetDefault("intervals.control", 5530*time.Millisecond)
	v.SetDefault("intervals.ramp", time.Minute)
	v.SetDefault("intervals.telemetry", 10*time.Second)
	v.SetDefault("intervals.safety", 2115*time.Millisecond)
	v.SetDefault("intervals.persist", time.Minute)

	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.client_id", "kiln-controller")
	v.SetDefault("mqtt.topic_root", "kiln")

	v.SetDefault("history.enabled", true)
	v.SetDefault("history.path", "history")
	v.SetDefault("history.in_memory", false)
	v.SetDefault("history.retention", 30*24*time.Hour)

	v.SetDefault("energy.cost_per_kwh", 2.14)
	v.SetDefault("energy.currency", "kr")
}

// Load reads configs/config.yml (when present) from the given search paths,
// applies KILN_* environment overrides and validates the result.
func Load(paths ...string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{"configs"}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks struct constraints and cross-field rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s failed %q (%s)", ErrInvalid, fe.Namespace(), fe.Tag(), fe.Param())
		}
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if c.Cooling.FloorC > c.Control.MaxTemperatureC && c.Control.MaxTemperatureC > 0 {
		return fmt.Errorf("%w: cooling.floor_c above control.max_temperature_c", ErrInvalid)
	}
	return nil
}

// CoolingRate resolves the slow-cooling rate: an explicit rate wins over the
// preset.
func (c CoolingConfig) CoolingRate() float64 {
	if c.RateCPerHour > 0 {
		return c.RateCPerHour
	}
	return coolingPresets[c.Preset]
}

package service

import (
	"testing"
	"time"

	"kiln_controller/internal/config"
	"kiln_controller/internal/kiln"
)

func TestOutputStrategy(t *testing.T) {
	if _, ok := OutputStrategy(config.ControlConfig{Strategy: "hysteresis", Differential: 5}).(*kiln.Hysteresis); !ok {
		t.Fatal("hysteresis strategy should build *kiln.Hysteresis")
	}
	if _, ok := OutputStrategy(config.ControlConfig{Strategy: "duty_cycle", Kp: 0.02, Window: time.Minute}).(*kiln.DutyCycle); !ok {
		t.Fatal("duty_cycle strategy should build *kiln.DutyCycle")
	}
}

func TestControllerConfig_CoolingPreset(t *testing.T) {
	cfg := &config.Config{}
	cfg.Cooling = config.CoolingConfig{Preset: "slow", FloorC: 760}
	cfg.Intervals.Ramp = time.Minute

	kc := ControllerConfig(cfg)
	if kc.CoolingRate != 15 || kc.CoolingFloor != 760 || kc.RampInterval != time.Minute {
		t.Fatalf("unexpected controller config %+v", kc)
	}

	cfg.Cooling.RateCPerHour = 40
	if got := ControllerConfig(cfg).CoolingRate; got != 40 {
		t.Fatalf("explicit rate should win over preset, got %v", got)
	}
}

func TestSafetyConfig_UsesRatedPower(t *testing.T) {
	cfg := &config.Config{}
	cfg.Power.RatedPowerW = 3600
	cfg.Control.MaxTemperatureC = 1280
	sc := SafetyConfig(cfg)
	if sc.RatedPowerW != 3600 || sc.MaxTemperatureC != 1280 {
		t.Fatalf("unexpected safety config %+v", sc)
	}
}

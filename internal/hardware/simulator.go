package hardware

import (
	"context"
	"math"
	"sync"
	"time"

	"kiln_controller/internal/models"
)

// Thermal model defaults for a small 2.3 kW kiln.
const (
	AmbientC       = 25.0
	HeatCPerSec    = 0.12        // °C/s at full power and ambient temperature
	LossPerSec     = 0.12 / 1400 // fraction of (T - ambient) lost per second
	InternalRiseC  = 15.0        // electronics temperature above ambient with the kiln hot
	DefaultSimTick = time.Second
)

// SimConfig tunes the simulator.
type SimConfig struct {
	PowerW      float64
	QuantumWh   float64
	PulseBuffer int
}

// Simulator is a first-order kiln model that implements Sensor, Relay and
// PulseSource. Energy is integrated while the relay is on and one pulse is
// emitted per quantum.
type Simulator struct {
	cfg SimConfig

	mu        sync.Mutex
	temp      float64
	relayOn   bool
	last      time.Time
	energyAcc float64
	fault     uint8

	pulses    chan time.Time
	closeOnce sync.Once
	done      chan struct{}
}

// NewSimulator starts the model at ambient temperature at time now.
func NewSimulator(cfg SimConfig, now time.Time) *Simulator {
	if cfg.PowerW <= 0 {
		cfg.PowerW = 2300
	}
	if cfg.QuantumWh <= 0 {
		cfg.QuantumWh = 1
	}
	if cfg.PulseBuffer < 1 {
		cfg.PulseBuffer = 64
	}
	return &Simulator{
		cfg:    cfg,
		temp:   AmbientC,
		last:   now,
		pulses: make(chan time.Time, cfg.PulseBuffer),
		done:   make(chan struct{}),
	}
}

// Run advances the model every tick until ctx is cancelled or Close is called.
func (s *Simulator) Run(ctx context.Context, tick time.Duration) {
	t := time.NewTicker(tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case now := <-t.C:
			s.Step(now)
		}
	}
}

// Step integrates the model up to now.
func (s *Simulator) Step(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	elapsed := now.Sub(s.last).Seconds()
	if elapsed <= 0 {
		return
	}
	start := s.last
	s.last = now

	heat := 0.0
	if s.relayOn {
		heat = HeatCPerSec
	}
	s.temp += (heat - LossPerSec*(s.temp-AmbientC)) * elapsed
	s.temp = math.Max(s.temp, AmbientC)

	if !s.relayOn {
		return
	}
	// spread pulses evenly over the elapsed interval
	perPulse := s.cfg.QuantumWh * 3600 / s.cfg.PowerW
	offset := 0.0
	s.energyAcc += s.cfg.PowerW * elapsed / 3600
	for s.energyAcc >= s.cfg.QuantumWh {
		s.energyAcc -= s.cfg.QuantumWh
		offset += perPulse
		at := start.Add(time.Duration(math.Min(offset, elapsed) * float64(time.Second)))
		select {
		case s.pulses <- at:
		default:
		}
	}
}

// Read reports the current model temperature.
func (s *Simulator) Read() (models.SensorSample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	internal := AmbientC + InternalRiseC*(s.temp-AmbientC)/1300
	if s.fault != 0 {
		sample := models.FaultSample(s.fault)
		sample.Internal = internal
		return sample, nil
	}
	return models.SensorSample{Temperature: s.temp, Internal: internal}, nil
}

func (s *Simulator) Set(on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.relayOn = on
	return nil
}

func (s *Simulator) Pulses() <-chan time.Time { return s.pulses }

// InjectFault makes subsequent reads carry code; zero clears it.
func (s *Simulator) InjectFault(code uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fault = code
}

// SetTemperature overrides the model temperature.
func (s *Simulator) SetTemperature(c float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.temp = c
}

// RelayOn reports the simulated relay state.
func (s *Simulator) RelayOn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.relayOn
}

func (s *Simulator) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	return nil
}

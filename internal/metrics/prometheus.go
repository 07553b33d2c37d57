// Package metrics exposes kiln telemetry as Prometheus metrics.
package metrics

import (
	"math"
	"net/http"

	"kiln_controller/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var phases = []models.Phase{
	models.PhaseIdle,
	models.PhaseRamping,
	models.PhaseHolding,
	models.PhaseSlowCooling,
}

// Recorder records kiln state on its own registry.
type Recorder struct {
	reg *prometheus.Registry

	temperature  prometheus.Gauge
	setpoint     prometheus.Gauge
	internal     prometheus.Gauge
	power        prometheus.Gauge
	energy       prometheus.Gauge
	relay        prometheus.Gauge
	step         prometheus.Gauge
	phase        *prometheus.GaugeVec
	alarms       *prometheus.CounterVec
	phaseChanges *prometheus.CounterVec
	dropped      prometheus.Counter
}

// New creates a recorder with a fresh registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Recorder{
		reg: reg,
		temperature: f.NewGauge(prometheus.GaugeOpts{
			Name: "kiln_temperature_celsius",
			Help: "Averaged kiln temperature; NaN while the sensor is faulted",
		}),
		setpoint: f.NewGauge(prometheus.GaugeOpts{
			Name: "kiln_setpoint_celsius",
			Help: "Current control setpoint; NaN when unset",
		}),
		internal: f.NewGauge(prometheus.GaugeOpts{
			Name: "kiln_internal_celsius",
			Help: "Controller electronics temperature",
		}),
		power: f.NewGauge(prometheus.GaugeOpts{
			Name: "kiln_power_watts",
			Help: "Instantaneous power derived from meter pulses",
		}),
		energy: f.NewGauge(prometheus.GaugeOpts{
			Name: "kiln_energy_watt_hours",
			Help: "Energy used by the current firing",
		}),
		relay: f.NewGauge(prometheus.GaugeOpts{
			Name: "kiln_relay_on",
			Help: "1 when the heating relay is closed",
		}),
		step: f.NewGauge(prometheus.GaugeOpts{
			Name: "kiln_segment_step",
			Help: "Current profile segment index",
		}),
		phase: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "kiln_phase",
			Help: "1 for the active firing phase",
		}, []string{"phase"}),
		alarms: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kiln_alarms_total",
			Help: "Alarms raised by code",
		}, []string{"code"}),
		phaseChanges: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kiln_phase_changes_total",
			Help: "Phase transitions by target phase",
		}, []string{"to"}),
		dropped: f.NewCounter(prometheus.CounterOpts{
			Name: "kiln_notifications_dropped_total",
			Help: "Notifications dropped because the dispatch queue was full",
		}),
	}
}

// RecordTelemetry updates every gauge from one sample.
func (r *Recorder) RecordTelemetry(s models.TelemetrySample) {
	r.temperature.Set(value(s.TemperatureC))
	r.setpoint.Set(value(s.SetpointC))
	r.internal.Set(value(s.InternalC))
	r.power.Set(s.PowerW)
	r.energy.Set(s.EnergyWh)
	r.step.Set(float64(s.Step))
	if s.RelayOn {
		r.relay.Set(1)
	} else {
		r.relay.Set(0)
	}
	r.setPhase(s.Phase)
}

func (r *Recorder) RecordAlarm(code models.AlarmCode) {
	r.alarms.WithLabelValues(string(code)).Inc()
}

func (r *Recorder) RecordPhaseChange(pc models.PhaseChange) {
	r.phaseChanges.WithLabelValues(string(pc.To)).Inc()
	r.setPhase(pc.To)
}

func (r *Recorder) RecordDropped() {
	r.dropped.Inc()
}

func (r *Recorder) setPhase(p models.Phase) {
	for _, ph := range phases {
		v := 0.0
		if ph == p {
			v = 1
		}
		r.phase.WithLabelValues(string(ph)).Set(v)
	}
}

// Registry exposes the underlying registry for tests and extra collectors.
func (r *Recorder) Registry() *prometheus.Registry { return r.reg }

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

func value(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}

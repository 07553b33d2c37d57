package kiln

import (
	"errors"
	"sync"
	"time"

	"kiln_controller/internal/models"
)

var t0 = time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)

// recorder is a Notifier that keeps everything it is told.
type recorder struct {
	mu        sync.Mutex
	alarms    []models.Alarm
	phases    []models.PhaseChange
	displays  []string
	telemetry []models.TelemetrySample
	temps     []float64
}

func (r *recorder) OnTelemetry(s models.TelemetrySample) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.telemetry = append(r.telemetry, s)
}
func (r *recorder) OnDisplayText(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.displays = append(r.displays, s)
}
func (r *recorder) OnTemperatureEvent(v float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.temps = append(r.temps, v)
}
func (r *recorder) OnAlarm(a models.Alarm) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alarms = append(r.alarms, a)
}
func (r *recorder) OnPhaseChange(p models.PhaseChange) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.phases = append(r.phases, p)
}

func (r *recorder) alarmCount(code models.AlarmCode) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, a := range r.alarms {
		if a.Code == code {
			n++
		}
	}
	return n
}

func (r *recorder) lastDisplay() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.displays) == 0 {
		return ""
	}
	return r.displays[len(r.displays)-1]
}

type fakeRelay struct {
	on   bool
	sets []bool
	err  error
}

func (f *fakeRelay) Set(on bool) error {
	f.sets = append(f.sets, on)
	if f.err != nil {
		return f.err
	}
	f.on = on
	return nil
}

var errRelayStuck = errors.New("relay stuck")

func seg(target, rate float64, hold int) models.Segment {
	return models.Segment{TargetC: target, RateCPerHour: rate, HoldMinutes: hold}
}

func profile(s0, s1, s2, s3 models.Segment) models.FiringProfile {
	return models.FiringProfile{Segments: [models.SegmentCount]models.Segment{s0, s1, s2, s3}}
}

func scenarioProfile() models.FiringProfile {
	return profile(seg(100, 100, 15), seg(1140, 250, 0), seg(1140, 250, 0), seg(1240, 60, 15))
}

func sample(temp float64) models.SensorSample {
	return models.SensorSample{Temperature: temp, Internal: 25}
}

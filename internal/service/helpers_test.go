package service

import (
	"context"
	"sync"
	"time"

	"kiln_controller/internal/hardware"
	"kiln_controller/internal/kiln"
	"kiln_controller/internal/logger"
	"kiln_controller/internal/models"
)

var t0 = time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// fakeRunRepo satisfies repository.RunRepo with the same run-ID keying as
// the SQLite repository.
type fakeRunRepo struct {
	mu            sync.Mutex
	run           models.PersistedRun
	loadErr       error
	saveErr       error
	deactivateErr error
	saves         []models.PersistedRun
	deactivations []time.Time

	// beforeSave, when set, runs before Save takes effect.
	beforeSave func()
}

func (f *fakeRunRepo) Save(ctx context.Context, r models.PersistedRun) error {
	if f.beforeSave != nil {
		f.beforeSave()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves = append(f.saves, r)
	if f.saveErr != nil {
		return f.saveErr
	}
	if f.run.RunID == r.RunID && !f.run.Active {
		return nil
	}
	f.run = r
	return nil
}

func (f *fakeRunRepo) Load(ctx context.Context) (models.PersistedRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.run, f.loadErr
}

func (f *fakeRunRepo) Deactivate(ctx context.Context, runID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deactivations = append(f.deactivations, at)
	if f.deactivateErr != nil {
		return f.deactivateErr
	}
	if f.run.RunID == runID {
		f.run.Active = false
	}
	return nil
}

// fakeEventRepo satisfies repository.EventRepo and records its inputs.
type fakeEventRepo struct {
	mu        sync.Mutex
	events    []models.FiringEvent
	appendErr error
	listErr   error

	gotFrom time.Time
	gotTo   time.Time
	gotType string
	calls   int
}

func (f *fakeEventRepo) Append(ctx context.Context, e models.FiringEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
	return f.appendErr
}

func (f *fakeEventRepo) List(ctx context.Context, from, to time.Time, typ string) ([]models.FiringEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.gotFrom, f.gotTo, f.gotType = from, to, typ
	return f.events, f.listErr
}

func (f *fakeEventRepo) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.Type)
	}
	return out
}

func (f *fakeEventRepo) count(typ string) int {
	n := 0
	for _, t := range f.types() {
		if t == typ {
			n++
		}
	}
	return n
}

func testProfile() models.FiringProfile {
	return models.FiringProfile{Segments: [models.SegmentCount]models.Segment{
		{TargetC: 100, RateCPerHour: 100, HoldMinutes: 15},
		{TargetC: 1140, RateCPerHour: 250},
		{TargetC: 1140, RateCPerHour: 250},
		{TargetC: 1240, RateCPerHour: 60, HoldMinutes: 15},
	}}
}

func newTestController(relay *hardware.FakeRelay, n kiln.Notifier) *kiln.Controller {
	return kiln.NewController(kiln.DefaultConfig(), relay, kiln.NewHysteresis(kiln.DefaultDifferential), nil, n,
		kiln.WithIDGenerator(func() string { return "run-1" }))
}

func warm(c *kiln.Controller, temp float64) {
	c.SampleTick(t0, models.SensorSample{Temperature: temp, Internal: 25})
}

var nopLog = logger.NewNop()

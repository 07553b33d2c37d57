package service

import (
	"context"
	"time"

	"kiln_controller/internal/kiln"
	"kiln_controller/internal/models"
	"kiln_controller/internal/repository"
)

// Firing exposes the control operations: start, cancel and profile queries.
type Firing interface {
	Start(ctx context.Context, p models.FiringProfile) (models.Status, error)
	Cancel(ctx context.Context, reason string) error
	Profile(ctx context.Context) (models.FiringProfile, bool, error)
	Estimate(p models.FiringProfile) (int, error)
}

// Monitoring exposes read-only controller state.
type Monitoring interface {
	GetStatus(ctx context.Context) (models.Status, error)
	ActiveAlarms() []models.AlarmCode
}

// EventLog exposes the append-only firing log with filtering.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.FiringEvent, error)
}

// History exposes the stored telemetry series.
type History interface {
	Range(ctx context.Context, f HistoryFilter) ([]models.TelemetrySample, error)
}

// Service aggregates all sub-services used by the HTTP layer.
type Service struct {
	Firing
	Monitoring
	EventLog
	History
}

// Deps are the collaborators NewService wires together.
type Deps struct {
	Controller *kiln.Controller
	Safety     *kiln.SafetyMonitor
	Repos      *repository.Repository
	Store      HistoryStore // nil when history is disabled
	Clock      func() time.Time
}

// NewService wires the controller and repositories into concrete services.
func NewService(d Deps) *Service {
	if d.Clock == nil {
		d.Clock = time.Now
	}
	return &Service{
		Firing:     NewFiringService(d.Controller, d.Repos.Runs, d.Repos.Events, d.Clock),
		Monitoring: NewMonitoringService(d.Controller, d.Safety, d.Clock),
		EventLog:   NewEventLogService(d.Repos.Events),
		History:    NewHistoryService(d.Store, d.Clock),
	}
}

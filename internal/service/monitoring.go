package service

import (
	"context"
	"time"

	"kiln_controller/internal/kiln"
	"kiln_controller/internal/models"
)

type MonitoringService struct {
	ctrl   *kiln.Controller
	safety *kiln.SafetyMonitor
	now    func() time.Time
}

func NewMonitoringService(ctrl *kiln.Controller, safety *kiln.SafetyMonitor, now func() time.Time) *MonitoringService {
	return &MonitoringService{ctrl: ctrl, safety: safety, now: now}
}

// GetStatus returns the live controller status with times in UTC.
func (s *MonitoringService) GetStatus(ctx context.Context) (models.Status, error) {
	if err := ctx.Err(); err != nil {
		return models.Status{}, err
	}
	st := s.ctrl.Status(s.now())
	if st.StartedAt != nil {
		started := toUTC(*st.StartedAt)
		st.StartedAt = &started
	}
	st.Power.LastPulseAt = toUTC(st.Power.LastPulseAt)
	return st, nil
}

// ActiveAlarms lists the safety conditions currently latched.
func (s *MonitoringService) ActiveAlarms() []models.AlarmCode {
	if s.safety == nil {
		return nil
	}
	return s.safety.Active()
}

// toUTC normalizes non-zero time to UTC, preserving zero values.
func toUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}

package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"kiln_controller/internal/kiln"
	"kiln_controller/internal/models"
	"kiln_controller/internal/repository"

	"github.com/google/uuid"
)

// FiringService starts and cancels firings and keeps the persisted copy of
// the active profile up to date.
type FiringService struct {
	ctrl      *kiln.Controller
	runRepo   repository.RunRepo
	eventRepo repository.EventRepo
	now       func() time.Time
}

func NewFiringService(ctrl *kiln.Controller, runRepo repository.RunRepo, eventRepo repository.EventRepo, now func() time.Time) *FiringService {
	return &FiringService{ctrl: ctrl, runRepo: runRepo, eventRepo: eventRepo, now: now}
}

// Start validates p, starts the run and persists it for restart recovery.
// A persistence failure is returned but does not stop the firing.
func (s *FiringService) Start(ctx context.Context, p models.FiringProfile) (models.Status, error) {
	now := s.now().UTC()

	st, err := s.ctrl.RequestFiring(now, p)
	if err != nil {
		return st, err
	}

	run := models.PersistedRun{
		RunID:     st.RunID,
		Profile:   p,
		StartedAt: now,
		Active:    true,
		UpdatedAt: now,
	}
	if err := s.runRepo.Save(ctx, run); err != nil {
		return st, fmt.Errorf("persist firing: %w", err)
	}

	err = s.eventRepo.Append(ctx, models.FiringEvent{
		EventID:     uuid.NewString(),
		OccurredAt:  now,
		Type:        models.EventStart,
		Description: "Firing started",
		Metadata: map[string]any{
			"run_id":            st.RunID,
			"profile":           p,
			"estimated_minutes": st.EstimatedMinutes,
		},
	})
	if err != nil {
		return st, fmt.Errorf("log firing start: %w", err)
	}
	return st, nil
}

// ErrBookkeeping marks a failure to persist or log a firing whose control
// action already took effect.
var ErrBookkeeping = errors.New("firing bookkeeping failed")

// Cancel stops the active run. The relay is off when Cancel returns; a
// failure to deactivate or log afterwards wraps ErrBookkeeping.
func (s *FiringService) Cancel(ctx context.Context, reason string) error {
	now := s.now().UTC()
	if reason == "" {
		reason = "cancelled by operator"
	}
	runID := s.ctrl.Status(now).RunID

	if err := s.ctrl.CancelFiring(now, reason); err != nil {
		return err
	}
	var errs []error
	if err := s.runRepo.Deactivate(ctx, runID, now); err != nil {
		errs = append(errs, fmt.Errorf("deactivate firing: %w", err))
	}
	err := s.eventRepo.Append(ctx, models.FiringEvent{
		EventID:     uuid.NewString(),
		OccurredAt:  now,
		Type:        models.EventCancel,
		Description: "Firing cancelled",
		Metadata:    map[string]any{"run_id": runID, "reason": reason},
	})
	if err != nil {
		errs = append(errs, fmt.Errorf("log firing cancel: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrBookkeeping, errors.Join(errs...))
	}
	return nil
}

// Profile returns the running profile, or the last persisted one. The bool
// reports whether any profile is known.
func (s *FiringService) Profile(ctx context.Context) (models.FiringProfile, bool, error) {
	if st := s.ctrl.Status(s.now()); st.Profile != nil {
		return *st.Profile, true, nil
	}
	run, err := s.runRepo.Load(ctx)
	if err != nil {
		return models.FiringProfile{}, false, err
	}
	if run.RunID == "" {
		return models.FiringProfile{}, false, nil
	}
	return run.Profile, true, nil
}

// Estimate validates p and returns its duration from the current temperature.
func (s *FiringService) Estimate(p models.FiringProfile) (int, error) {
	vp, err := kiln.NewValidatedProfile(p)
	if err != nil {
		return 0, err
	}
	temp := s.ctrl.Snapshot().Temperature
	if math.IsNaN(temp) {
		temp = 0
	}
	return kiln.EstimatedDurationMinutes(vp.Profile(), temp), nil
}

// IsValidation reports whether err is a profile rejection.
func IsValidation(err error) bool {
	var verr *kiln.ValidationError
	return errors.As(err, &verr)
}

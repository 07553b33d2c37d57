package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"kiln_controller/internal/kiln"
	"kiln_controller/internal/logger"
	"kiln_controller/internal/models"
	"kiln_controller/internal/repository"

	"github.com/google/uuid"
)

// Recovery restarts a firing that was active when the process stopped.
type Recovery struct {
	ctrl      *kiln.Controller
	runRepo   repository.RunRepo
	eventRepo repository.EventRepo
	log       *logger.Logger
	now       func() time.Time
}

func NewRecovery(ctrl *kiln.Controller, runRepo repository.RunRepo, eventRepo repository.EventRepo, log *logger.Logger) *Recovery {
	return &Recovery{ctrl: ctrl, runRepo: runRepo, eventRepo: eventRepo, log: log, now: time.Now}
}

// Resume loads the persisted run and, if it was active, restarts it at the
// segment inferred from the current temperature. It reports whether a run
// was resumed. A persisted profile that no longer validates is deactivated.
func (r *Recovery) Resume(ctx context.Context) (bool, error) {
	run, err := r.runRepo.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("load persisted run: %w", err)
	}
	if !run.Active {
		return false, nil
	}

	now := r.now().UTC()
	step, err := r.ctrl.Resume(now, run)
	switch {
	case err == nil:
	case errors.Is(err, kiln.ErrNoTemperature):
		return false, fmt.Errorf("resume firing %s: %w", run.RunID, err)
	default:
		r.log.Errorw("resume_rejected", "run_id", run.RunID, "err", err)
		if derr := r.runRepo.Deactivate(ctx, run.RunID, now); derr != nil {
			return false, fmt.Errorf("deactivate rejected run: %w", derr)
		}
		return false, nil
	}

	r.log.Infow("firing_resumed", "run_id", run.RunID, "segment", step+1)
	err = r.eventRepo.Append(ctx, models.FiringEvent{
		EventID:     uuid.NewString(),
		OccurredAt:  now,
		Type:        models.EventResumed,
		Description: fmt.Sprintf("Firing resumed at segment %d", step+1),
		Metadata:    map[string]any{"run_id": run.RunID, "step": step},
	})
	if err != nil {
		return true, fmt.Errorf("log resume: %w", err)
	}
	return true, nil
}

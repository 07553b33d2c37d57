package repository

import (
	"context"
	"database/sql"
	"time"

	"kiln_controller/internal/models"
)

// RunRepo keeps the single persisted firing used for restart recovery.
type RunRepo interface {
	Save(ctx context.Context, r models.PersistedRun) error
	Load(ctx context.Context) (models.PersistedRun, error)
	Deactivate(ctx context.Context, runID string, at time.Time) error
}

// EventRepo is the append-only firing log.
type EventRepo interface {
	Append(ctx context.Context, e models.FiringEvent) error
	List(ctx context.Context, from, to time.Time, typ string) ([]models.FiringEvent, error)
}

type Repository struct {
	Runs   RunRepo
	Events EventRepo
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		Runs:   NewRunSQLite(db),
		Events: NewEventSQLite(db),
	}
}

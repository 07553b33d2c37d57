package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"kiln_controller/internal/models"
)

type RunSQLite struct {
	db *sql.DB
}

func NewRunSQLite(db *sql.DB) *RunSQLite {
	return &RunSQLite{db: db}
}

const (
	firingRunRowID = 1

	upsertRunSQL = `
		INSERT INTO firing_run (id, run_id, profile, started_at, active, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			run_id=excluded.run_id,
			profile=excluded.profile,
			started_at=excluded.started_at,
			active=excluded.active,
			updated_at=excluded.updated_at
		WHERE firing_run.run_id <> excluded.run_id OR firing_run.active = 1
	`

	selectRunSQL = `
		SELECT run_id, profile, started_at, active, updated_at
		FROM firing_run WHERE id=?
	`

	deactivateRunSQL = `UPDATE firing_run SET active=0, updated_at=? WHERE id=? AND run_id=?`
)

// Save replaces the persisted run (there is only ever one row). A run that
// was already deactivated is never switched back on by a later Save carrying
// the same run ID.
func (r *RunSQLite) Save(ctx context.Context, run models.PersistedRun) error {
	profileJSON, err := json.Marshal(run.Profile)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}

	updated := run.UpdatedAt
	if updated.IsZero() {
		updated = time.Now().UTC()
	} else {
		updated = updated.UTC()
	}

	if _, err := r.db.ExecContext(ctx, upsertRunSQL,
		firingRunRowID,
		run.RunID,
		string(profileJSON),
		run.StartedAt.UTC(),
		run.Active,
		updated,
	); err != nil {
		return fmt.Errorf("save firing run %s: %w", run.RunID, err)
	}
	return nil
}

// Load returns the persisted run, or a zero value when none was ever saved.
func (r *RunSQLite) Load(ctx context.Context) (models.PersistedRun, error) {
	row := r.db.QueryRowContext(ctx, selectRunSQL, firingRunRowID)

	var (
		run         models.PersistedRun
		profileJSON string
	)
	if err := row.Scan(&run.RunID, &profileJSON, &run.StartedAt, &run.Active, &run.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.PersistedRun{}, nil
		}
		return models.PersistedRun{}, fmt.Errorf("load firing run: %w", err)
	}
	if err := json.Unmarshal([]byte(profileJSON), &run.Profile); err != nil {
		return models.PersistedRun{}, fmt.Errorf("decode persisted profile: %w", err)
	}
	run.StartedAt = run.StartedAt.UTC()
	run.UpdatedAt = run.UpdatedAt.UTC()
	return run, nil
}

// Deactivate marks the persisted run finished so it is not resumed. It is a
// no-op when the stored row belongs to another run.
func (r *RunSQLite) Deactivate(ctx context.Context, runID string, at time.Time) error {
	if _, err := r.db.ExecContext(ctx, deactivateRunSQL, at.UTC(), firingRunRowID, runID); err != nil {
		return fmt.Errorf("deactivate firing run %s: %w", runID, err)
	}
	return nil
}

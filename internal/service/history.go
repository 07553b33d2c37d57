package service

import (
	"context"
	"errors"
	"time"

	"kiln_controller/internal/models"
)

// DefaultHistoryWindow is used when a history query has no lower bound.
const DefaultHistoryWindow = time.Hour

// ErrHistoryDisabled is returned when no telemetry store is configured.
var ErrHistoryDisabled = errors.New("telemetry history is disabled")

// HistoryStore is the telemetry time-series backend.
type HistoryStore interface {
	Append(s models.TelemetrySample) error
	Range(from, to time.Time) ([]models.TelemetrySample, error)
}

type HistoryService struct {
	store HistoryStore
	now   func() time.Time
}

func NewHistoryService(store HistoryStore, now func() time.Time) *HistoryService {
	return &HistoryService{store: store, now: now}
}

func (s *HistoryService) Range(ctx context.Context, f HistoryFilter) ([]models.TelemetrySample, error) {
	if s.store == nil {
		return nil, ErrHistoryDisabled
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	to := toUTC(f.To)
	if to.IsZero() {
		to = s.now().UTC()
	}
	from := toUTC(f.From)
	if from.IsZero() {
		from = to.Add(-DefaultHistoryWindow)
	}
	if from.After(to) {
		return nil, ErrInvalidTimeRange
	}
	return s.store.Range(from, to)
}

package service

import "time"

// LogFilter selects firing events by time range and type.
type LogFilter struct {
	From time.Time // inclusive; zero means no lower bound
	To   time.Time // inclusive; zero means no upper bound
	Type string    // "", "START", "CANCEL", "PHASE_CHANGE", "ALARM", "FIRING_COMPLETE", "RESUMED"
}

// HistoryFilter selects telemetry samples; zero bounds default to the last
// hour.
type HistoryFilter struct {
	From time.Time
	To   time.Time
}

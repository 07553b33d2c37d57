package service

import (
	"context"
	"testing"
	"time"

	"kiln_controller/internal/hardware"
	"kiln_controller/internal/kiln"
	"kiln_controller/internal/models"
)

func TestMonitoringService_GetStatus_Idle(t *testing.T) {
	ctrl := newTestController(&hardware.FakeRelay{}, nil)
	s := NewMonitoringService(ctrl, nil, fixedClock(t0))

	st, err := s.GetStatus(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.Phase != models.PhaseIdle || st.RunID != "" || st.SetpointC != nil {
		t.Fatalf("unexpected idle status: %+v", st)
	}
	if st.TemperatureC != nil {
		t.Fatalf("temperature should be null before the first sample")
	}
	if got := s.ActiveAlarms(); got != nil {
		t.Fatalf("no safety monitor, expected nil alarms, got %v", got)
	}
}

func TestMonitoringService_GetStatus_Firing(t *testing.T) {
	ctrl := newTestController(&hardware.FakeRelay{}, nil)
	warm(ctrl, 20)
	if _, err := ctrl.RequestFiring(t0, testProfile()); err != nil {
		t.Fatal(err)
	}

	s := NewMonitoringService(ctrl, nil, fixedClock(t0.Add(30*time.Minute)))
	st, err := s.GetStatus(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if st.Phase != models.PhaseRamping || st.RunID != "run-1" {
		t.Fatalf("unexpected status: %+v", st)
	}
	if st.ElapsedMinutes != 30 {
		t.Fatalf("elapsed = %d, want 30", st.ElapsedMinutes)
	}
	if st.StartedAt == nil || st.StartedAt.Location() != time.UTC {
		t.Fatalf("started_at should be UTC: %v", st.StartedAt)
	}
	if st.EstimatedMinutes != 428 {
		t.Fatalf("estimate = %d, want 428", st.EstimatedMinutes)
	}
}

func TestMonitoringService_GetStatus_CancelledContext(t *testing.T) {
	s := NewMonitoringService(newTestController(&hardware.FakeRelay{}, nil), nil, fixedClock(t0))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.GetStatus(ctx); err == nil {
		t.Fatal("expected context error")
	}
}

func TestMonitoringService_ActiveAlarms(t *testing.T) {
	ctrl := newTestController(&hardware.FakeRelay{}, nil)
	ctrl.SampleTick(t0, models.SensorSample{Temperature: 20, Internal: 75})

	safety := kiln.NewSafetyMonitor(kiln.DefaultSafetyConfig(), kiln.DefaultPowerConfig(), nil)
	safety.Check(t0, ctrl.Snapshot(), models.PowerState{})

	got := NewMonitoringService(ctrl, safety, fixedClock(t0)).ActiveAlarms()
	if len(got) != 1 || got[0] != models.AlarmInternalOverheat {
		t.Fatalf("active alarms = %v, want [INTERNAL_OVERHEAT]", got)
	}
}

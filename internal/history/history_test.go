package history

import (
	"bytes"
	"testing"
	"time"

	"kiln_controller/internal/logger"
	"kiln_controller/internal/models"
)

var t0 = time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)

func openMem(t *testing.T, batch int) *Store {
	t.Helper()
	s, err := Open(Options{InMemory: true, BatchSize: batch}, logger.NewNop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sample(at time.Time, temp float64) models.TelemetrySample {
	return models.TelemetrySample{At: at, Phase: models.PhaseRamping, TemperatureC: &temp, PowerW: 2300}
}

func TestKey_SortsChronologically(t *testing.T) {
	a, b := Key(t0), Key(t0.Add(time.Nanosecond))
	if bytes.Compare(a, b) >= 0 {
		t.Error("earlier key must sort first")
	}
}

func TestStore_RangeIsInclusiveAndOrdered(t *testing.T) {
	s := openMem(t, 2)
	for i := 0; i < 5; i++ {
		if err := s.Append(sample(t0.Add(time.Duration(i)*10*time.Second), float64(100+i))); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	got, err := s.Range(t0.Add(10*time.Second), t0.Add(30*time.Second))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d samples, want 3", len(got))
	}
	for i, want := range []float64{101, 102, 103} {
		if got[i].TemperatureC == nil || *got[i].TemperatureC != want {
			t.Errorf("sample %d: temperature %v, want %v", i, got[i].TemperatureC, want)
		}
	}
	if !got[0].At.Equal(t0.Add(10 * time.Second)) {
		t.Errorf("first sample at %v", got[0].At)
	}
}

func TestStore_RangeFlushesPartialBatch(t *testing.T) {
	s := openMem(t, 100)
	if err := s.Append(sample(t0, 20)); err != nil {
		t.Fatal(err)
	}
	got, err := s.Range(t0.Add(-time.Minute), t0.Add(time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d samples, want 1", len(got))
	}
}

func TestStore_NilTemperatureSurvives(t *testing.T) {
	s := openMem(t, 1)
	if err := s.Append(models.TelemetrySample{At: t0, Phase: models.PhaseIdle}); err != nil {
		t.Fatal(err)
	}
	got, err := s.Range(t0, t0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].TemperatureC != nil {
		t.Errorf("expected one sample with nil temperature, got %+v", got)
	}
}

func TestStore_EmptyRange(t *testing.T) {
	s := openMem(t, 1)
	got, err := s.Range(t0, t0.Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("expected no samples, got %d", len(got))
	}
}

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"kiln_controller/internal/models"
)

func Test_toUTC(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   time.Time
		want func(time.Time) bool
	}{
		{
			name: "zero time remains zero",
			in:   time.Time{},
			want: func(out time.Time) bool { return out.IsZero() },
		},
		{
			name: "non-UTC converted to UTC preserving instant",
			in:   time.Date(2026, time.March, 1, 12, 34, 56, 0, time.FixedZone("UTC+3", 3*3600)),
			want: func(out time.Time) bool {
				exp := time.Date(2026, time.March, 1, 9, 34, 56, 0, time.UTC)
				return out.Location() == time.UTC && out.Equal(exp)
			},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := toUTC(tc.in); !tc.want(got) {
				t.Fatalf("unexpected toUTC result: %v (loc=%v)", got, got.Location())
			}
		})
	}
}

func Test_normalizeEventType(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		exp  string
	}{
		{name: "empty stays empty", in: "", exp: ""},
		{name: "trim spaces", in: "  START ", exp: "START"},
		{name: "uppercase", in: "alarm", exp: "ALARM"},
		{name: "underscored type", in: " phase_change ", exp: "PHASE_CHANGE"},
	}

	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			if got := normalizeEventType(c.in); got != c.exp {
				t.Fatalf("normalizeEventType(%q) = %q; want %q", c.in, got, c.exp)
			}
		})
	}
}

func TestEventLogService_List_DelegatesNormalizedParams(t *testing.T) {
	t.Parallel()

	repo := &fakeEventRepo{events: []models.FiringEvent{{EventID: "1"}}}
	s := NewEventLogService(repo)

	from := time.Date(2026, 3, 10, 10, 0, 0, 0, time.FixedZone("UTC+2", 2*3600))
	to := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	got, err := s.List(context.Background(), LogFilter{From: from, To: to, Type: " alarm "})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || repo.calls != 1 {
		t.Fatalf("expected one delegated call returning one event, got calls=%d events=%d", repo.calls, len(got))
	}
	if !repo.gotFrom.Equal(time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)) || repo.gotFrom.Location() != time.UTC {
		t.Fatalf("from not normalized: %v", repo.gotFrom)
	}
	if repo.gotType != "ALARM" {
		t.Fatalf("type = %q, want ALARM", repo.gotType)
	}
}

func TestEventLogService_List_InvalidRange(t *testing.T) {
	t.Parallel()

	repo := &fakeEventRepo{}
	_, err := NewEventLogService(repo).List(context.Background(), LogFilter{
		From: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	if !errors.Is(err, ErrInvalidTimeRange) {
		t.Fatalf("expected ErrInvalidTimeRange, got %v", err)
	}
	if repo.calls != 0 {
		t.Fatalf("repo should not be called on invalid range")
	}
}

func TestEventLogService_List_RepoError(t *testing.T) {
	t.Parallel()

	repo := &fakeEventRepo{listErr: errors.New("db down")}
	if _, err := NewEventLogService(repo).List(context.Background(), LogFilter{}); err == nil {
		t.Fatal("expected error, got nil")
	}
}

// Package kiln is the firing-control core: profile validation, the ramp
// scheduler, the segment state machine, output control, power metering and
// the safety watchdog. It performs no I/O of its own; time is always passed in.
package kiln

import (
	"errors"
	"fmt"
	"math"

	"kiln_controller/internal/models"
)

var (
	ErrIncompleteSegment  = errors.New("incomplete segment")
	ErrNonMonotonicTarget = errors.New("non-monotonic target temperature")
	ErrTargetAboveLimit   = errors.New("target temperature above limit")
)

// ValidationError reports which segment of a profile was rejected.
type ValidationError struct {
	Segment int
	Field   string
	Err     error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("segment %d %s: %v", e.Segment+1, e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Validate checks a profile before a run may start. Hold may be zero. The
// final segment is not part of the monotonic check; a lower final target is
// run as a controlled descent.
func Validate(p models.FiringProfile) error {
	for i, s := range p.Segments {
		switch {
		case !(s.TargetC > 0):
			return &ValidationError{Segment: i, Field: "target", Err: ErrIncompleteSegment}
		case !(s.RateCPerHour > 0):
			return &ValidationError{Segment: i, Field: "rate", Err: ErrIncompleteSegment}
		case s.HoldMinutes < 0:
			return &ValidationError{Segment: i, Field: "hold", Err: ErrIncompleteSegment}
		}
	}
	for i := 1; i < models.SegmentCount-1; i++ {
		if p.Segments[i].TargetC < p.Segments[i-1].TargetC {
			return &ValidationError{Segment: i, Field: "target", Err: ErrNonMonotonicTarget}
		}
	}
	return nil
}

// ValidatedProfile can only be obtained through NewValidatedProfile.
type ValidatedProfile struct {
	profile models.FiringProfile
}

// NewValidatedProfile validates p and wraps it.
func NewValidatedProfile(p models.FiringProfile) (ValidatedProfile, error) {
	if err := Validate(p); err != nil {
		return ValidatedProfile{}, err
	}
	return ValidatedProfile{profile: p}, nil
}

// Profile returns a copy of the wrapped profile.
func (v ValidatedProfile) Profile() models.FiringProfile { return v.profile }

// EstimatedDurationMinutes is a reporting heuristic, not a control input.
func EstimatedDurationMinutes(p models.FiringProfile, currentTemp float64) int {
	total := 0.0
	prev := currentTemp
	if math.IsNaN(prev) {
		prev = 0
	}
	for i, s := range p.Segments {
		if s.RateCPerHour > 0 {
			delta := s.TargetC - prev
			if i == 0 {
				delta = math.Max(delta, 0)
			}
			total += math.Abs(delta) * 60 / s.RateCPerHour
		}
		if s.HoldMinutes > 0 {
			total += float64(s.HoldMinutes)
		}
		prev = s.TargetC
	}
	return int(math.Round(total))
}

// descending reports whether segment i drives the temperature down.
func descending(p models.FiringProfile, i int) bool {
	return i > 0 && p.Segments[i].TargetC < p.Segments[i-1].TargetC
}

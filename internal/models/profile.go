package models

// SegmentCount is the fixed number of legs in a firing profile.
const SegmentCount = 4

// Segment is one leg of a firing profile.
type Segment struct {
	TargetC      float64 `json:"target_c" example:"1000"`       // °C
	RateCPerHour float64 `json:"rate_c_per_hour" example:"150"` // °C/h
	HoldMinutes  int     `json:"hold_min" example:"15"`         // minutes
}

// FiringProfile is the ordered list of segments a run executes.
type FiringProfile struct {
	Segments [SegmentCount]Segment `json:"segments"`
}

// MaxTarget returns the highest segment target.
func (p FiringProfile) MaxTarget() float64 {
	maxT := 0.0
	for _, s := range p.Segments {
		if s.TargetC > maxT {
			maxT = s.TargetC
		}
	}
	return maxT
}

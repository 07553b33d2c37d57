package kiln

import "math"

// DefaultAverageWindow matches the thermocouple smoothing of the controller.
const DefaultAverageWindow = 4

// Averager is a rolling mean over the last N valid samples.
type Averager struct {
	buf   []float64
	next  int
	count int
}

// NewAverager returns an averager over n samples (n < 1 means 1).
func NewAverager(n int) *Averager {
	if n < 1 {
		n = 1
	}
	return &Averager{buf: make([]float64, n)}
}

// Add records v and returns the current mean. NaN is ignored.
func (a *Averager) Add(v float64) float64 {
	if math.IsNaN(v) {
		return a.Mean()
	}
	a.buf[a.next] = v
	a.next = (a.next + 1) % len(a.buf)
	if a.count < len(a.buf) {
		a.count++
	}
	return a.Mean()
}

// Mean returns NaN until at least one sample was added.
func (a *Averager) Mean() float64 {
	if a.count == 0 {
		return math.NaN()
	}
	sum := 0.0
	for i := 0; i < a.count; i++ {
		sum += a.buf[i]
	}
	return sum / float64(a.count)
}

// Reset drops all samples.
func (a *Averager) Reset() {
	a.next, a.count = 0, 0
}

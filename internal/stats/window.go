// Package stats provides a bounded, constant-memory running-statistics
// window used by every per-entity profile in internal/profile.
package stats

import "math"

// Window tracks the mean and sample standard deviation of the most recent
// Capacity observations using Welford's online algorithm, extended with
// eviction so the window never grows past Capacity (spec requires O(1)
// memory per tracked entity regardless of transaction volume).
type Window struct {
	capacity int
	buf      []float64
	pos      int
	filled   bool

	n     int64
	mean  float64
	m2    float64
}

// NewWindow creates a Window retaining at most capacity observations.
// capacity must be >= 1.
func NewWindow(capacity int) *Window {
	if capacity < 1 {
		capacity = 1
	}
	return &Window{
		capacity: capacity,
		buf:      make([]float64, capacity),
	}
}

// Add records a new observation, evicting the oldest once the window is at
// capacity.
func (w *Window) Add(x float64) {
	if w.filled {
		evicted := w.buf[w.pos]
		w.remove(evicted)
	}
	w.buf[w.pos] = x
	w.add(x)
	w.pos++
	if w.pos == w.capacity {
		w.pos = 0
		w.filled = true
	}
}

func (w *Window) add(x float64) {
	w.n++
	delta := x - w.mean
	w.mean += delta / float64(w.n)
	delta2 := x - w.mean
	w.m2 += delta * delta2
}

func (w *Window) remove(x float64) {
	if w.n <= 1 {
		w.n = 0
		w.mean = 0
		w.m2 = 0
		return
	}
	n := float64(w.n)
	newN := n - 1
	newMean := (w.mean*n - x) / newN
	w.m2 -= (x - w.mean) * (x - newMean)
	if w.m2 < 0 {
		w.m2 = 0
	}
	w.mean = newMean
	w.n--
}

// N returns the number of observations currently held.
func (w *Window) N() int {
	return int(w.n)
}

// Mean returns the current mean, or 0 if no observations have been added.
func (w *Window) Mean() float64 {
	return w.mean
}

// StdDev returns the sample standard deviation (divisor N-1). Returns 0
// when fewer than two observations have been added.
func (w *Window) StdDev() float64 {
	if w.n < 2 {
		return 0
	}
	variance := w.m2 / float64(w.n-1)
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance)
}

// ZScore returns (x-mean)/stddev, or 0 when the window doesn't yet have
// enough observations to have a non-zero standard deviation.
func (w *Window) ZScore(x float64) float64 {
	sd := w.StdDev()
	if sd == 0 {
		return 0
	}
	return (x - w.mean) / sd
}

package stats

import (
	"math"
	"testing"
)

func TestWindowMeanAndStdDev(t *testing.T) {
	w := NewWindow(100)
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	for _, v := range values {
		w.Add(v)
	}

	if w.N() != len(values) {
		t.Fatalf("N() = %d, want %d", w.N(), len(values))
	}
	if got, want := w.Mean(), 5.0; math.Abs(got-want) > 1e-9 {
		t.Errorf("Mean() = %v, want %v", got, want)
	}
	// sample stddev (divisor N-1) of this set is 2.138089935...
	if got, want := w.StdDev(), 2.138089935299395; math.Abs(got-want) > 1e-9 {
		t.Errorf("StdDev() = %v, want %v", got, want)
	}
}

func TestWindowFewerThanTwoSamples(t *testing.T) {
	w := NewWindow(10)
	if got := w.StdDev(); got != 0 {
		t.Errorf("StdDev() with 0 samples = %v, want 0", got)
	}
	w.Add(42)
	if got := w.StdDev(); got != 0 {
		t.Errorf("StdDev() with 1 sample = %v, want 0", got)
	}
}

func TestWindowEvictsAtCapacity(t *testing.T) {
	w := NewWindow(3)
	for _, v := range []float64{1, 2, 3, 100} {
		w.Add(v)
	}
	if w.N() != 3 {
		t.Fatalf("N() = %d, want 3 (bounded by capacity)", w.N())
	}
	// window should now hold {2, 3, 100}
	if got, want := w.Mean(), 35.0; math.Abs(got-want) > 1e-9 {
		t.Errorf("Mean() after eviction = %v, want %v", got, want)
	}
}

func TestWindowAgreesWithNaiveRecompute(t *testing.T) {
	w := NewWindow(5)
	input := []float64{10, 20, 15, 42, 8, 99, 3, 77}
	for i, v := range input {
		w.Add(v)

		lo := i - 4
		if lo < 0 {
			lo = 0
		}
		window := input[lo : i+1]

		naiveMean := naiveMean(window)
		if math.Abs(w.Mean()-naiveMean) > 1e-6 {
			t.Fatalf("step %d: Mean() = %v, naive = %v", i, w.Mean(), naiveMean)
		}
		if len(window) >= 2 {
			naiveSd := naiveStdDev(window, naiveMean)
			if math.Abs(w.StdDev()-naiveSd) > 1e-6 {
				t.Fatalf("step %d: StdDev() = %v, naive = %v", i, w.StdDev(), naiveSd)
			}
		}
	}
}

func naiveMean(xs []float64) float64 {
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func naiveStdDev(xs []float64, mean float64) float64 {
	sum := 0.0
	for _, x := range xs {
		sum += (x - mean) * (x - mean)
	}
	return math.Sqrt(sum / float64(len(xs)-1))
}

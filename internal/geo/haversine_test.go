package geo

import (
	"math"
	"testing"
)

func TestDistanceKmSamePoint(t *testing.T) {
	d := DistanceKm(40.71, -74.00, 40.71, -74.00)
	if d != 0 {
		t.Errorf("DistanceKm(same point) = %v, want 0", d)
	}
}

func TestDistanceKmNewYorkToMoscow(t *testing.T) {
	d := DistanceKm(40.71, -74.00, 55.75, 37.62)
	// great-circle distance is roughly 7510km; allow a generous tolerance.
	if math.Abs(d-7510) > 100 {
		t.Errorf("DistanceKm(NYC, Moscow) = %v, want ~7510", d)
	}
}

func TestImpliedSpeedKmh(t *testing.T) {
	if got := ImpliedSpeedKmh(100, 2); got != 50 {
		t.Errorf("ImpliedSpeedKmh(100, 2) = %v, want 50", got)
	}
	if got := ImpliedSpeedKmh(100, 0); !math.IsInf(got, 1) {
		t.Errorf("ImpliedSpeedKmh(100, 0) = %v, want +Inf", got)
	}
	if got := ImpliedSpeedKmh(100, -1); !math.IsInf(got, 1) {
		t.Errorf("ImpliedSpeedKmh(100, -1) = %v, want +Inf", got)
	}
}

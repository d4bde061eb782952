package correct

import (
	"math"
	"testing"
)

func TestSmoothSplineInterpolates(t *testing.T) {
	x := []float64{1, 2, 4, 5, 7}
	y := []float64{2, 1, 3, 2.5, 4}
	// p=1 puts all weight on fidelity: the spline passes through the points
	sp, err := fitSmoothSpline(x, y, 1)
	if err != nil {
		t.Fatalf("fitSmoothSpline: error return %v", err)
	}
	for i := range x {
		if got := sp.eval(x[i]); math.Abs(got-y[i]) > 1e-9 {
			t.Errorf("eval(%v): %v, should interpolate %v", x[i], got, y[i])
		}
	}
}

func TestSmoothSplineConstantData(t *testing.T) {
	x := []float64{1, 2, 3, 4}
	y := []float64{5, 5, 5, 5}
	for _, p := range []float64{1, 0.5, 1e-6} {
		sp, err := fitSmoothSpline(x, y, p)
		if err != nil {
			t.Fatalf("fitSmoothSpline(p=%v): error return %v", p, err)
		}
		for _, at := range []float64{0, 1, 2.5, 4, 6} {
			if got := sp.eval(at); math.Abs(got-5) > 1e-9 {
				t.Errorf("eval(%v) with p=%v: %v, should be 5", at, p, got)
			}
		}
	}
}

func TestSmoothSplineLinearData(t *testing.T) {
	// A straight line has no curvature to penalize, so any smoothing
	// level must reproduce it exactly, including outside the knot range
	line := func(x float64) float64 { return 2*x + 1 }
	x := []float64{1, 3, 4, 6, 8}
	y := make([]float64, len(x))
	for i := range x {
		y[i] = line(x[i])
	}
	for _, p := range []float64{1, 0.3, 1e-4} {
		sp, err := fitSmoothSpline(x, y, p)
		if err != nil {
			t.Fatalf("fitSmoothSpline(p=%v): error return %v", p, err)
		}
		for _, at := range []float64{-1, 1, 2.2, 5, 8, 11} {
			if got := sp.eval(at); math.Abs(got-line(at)) > 1e-8 {
				t.Errorf("eval(%v) with p=%v: %v, should be %v", at, p, got, line(at))
			}
		}
	}
}

func TestSmoothSplineSmooths(t *testing.T) {
	// Noisy data around a line: a heavily smoothed fit must lie closer
	// to the underlying line than the observations do
	x := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	noise := []float64{0.8, -0.9, 1.1, -1.2, 0.7, -0.8, 1.0, -0.9}
	line := func(x float64) float64 { return 3 * x }
	y := make([]float64, len(x))
	for i := range x {
		y[i] = line(x[i]) + noise[i]
	}
	sp, err := fitSmoothSpline(x, y, 1e-6)
	if err != nil {
		t.Fatalf("fitSmoothSpline: error return %v", err)
	}
	var fitDev, obsDev float64
	for i := range x {
		fitDev += math.Abs(sp.eval(x[i]) - line(x[i]))
		obsDev += math.Abs(y[i] - line(x[i]))
	}
	if fitDev >= obsDev/2 {
		t.Errorf("smoothed fit deviation %v, observations %v; expected strong smoothing",
			fitDev, obsDev)
	}
}

func TestSmoothSplineTwoPoints(t *testing.T) {
	sp, err := fitSmoothSpline([]float64{1, 3}, []float64{10, 20}, 0.5)
	if err != nil {
		t.Fatalf("fitSmoothSpline: error return %v", err)
	}
	if got := sp.eval(2); math.Abs(got-15) > 1e-12 {
		t.Errorf("eval(2): %v, should be 15", got)
	}
	if got := sp.eval(5); math.Abs(got-30) > 1e-12 {
		t.Errorf("eval(5): %v, should extrapolate to 30", got)
	}
}

func TestSmoothSplineExtrapolatesLinearly(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5}
	y := []float64{1, 4, 9, 16, 25}
	sp, err := fitSmoothSpline(x, y, 1)
	if err != nil {
		t.Fatalf("fitSmoothSpline: error return %v", err)
	}
	// Beyond the last knot the curve continues with constant slope
	f6 := sp.eval(6)
	f7 := sp.eval(7)
	f8 := sp.eval(8)
	if math.Abs((f7-f6)-(f8-f7)) > 1e-9 {
		t.Errorf("extrapolation not linear: %v %v %v", f6, f7, f8)
	}
}

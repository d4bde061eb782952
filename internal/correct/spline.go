package correct

import (
	"errors"
	"sort"

	"gonum.org/v1/gonum/mat"
)

var errSplineSystem = errors.New("smoothing system is not positive definite")

// smoothSpline is a natural cubic smoothing spline. It balances fidelity
// to the fitted points against curvature, controlled by a smoothing
// parameter p in (0,1]: p=1 interpolates the points, smaller p gives a
// smoother curve. Outside the knot range the spline continues linearly.
type smoothSpline struct {
	x  []float64 // knots, strictly increasing
	g  []float64 // smoothed values at the knots
	m2 []float64 // second derivatives at the knots, zero at both ends
}

// fitSmoothSpline fits a smoothing spline to the points (x[i], y[i]).
// x must be strictly increasing with len(x) >= 2. The minimized criterion
// is sum (y-g)^2 + alpha * integral g''^2 with alpha = (1-p)/p, following
// the Reinsch construction: solve (R + alpha QtQ) gamma = Qt y for the
// interior second derivatives, then g = y - alpha Q gamma.
func fitSmoothSpline(x, y []float64, p float64) (*smoothSpline, error) {
	n := len(x)
	sp := &smoothSpline{
		x:  append([]float64(nil), x...),
		g:  append([]float64(nil), y...),
		m2: make([]float64, n),
	}
	if n == 2 {
		// Two points define a line; there is no curvature to penalize.
		return sp, nil
	}
	alpha := (1 - p) / p

	h := make([]float64, n-1)
	for i := range h {
		h[i] = x[i+1] - x[i]
	}

	// Column j of Q corresponds to interior knot j+1 and has entries
	// a at row j, b at row j+1 and c at row j+2.
	a := make([]float64, n-2)
	b := make([]float64, n-2)
	c := make([]float64, n-2)
	for j := 0; j < n-2; j++ {
		a[j] = 1 / h[j]
		c[j] = 1 / h[j+1]
		b[j] = -a[j] - c[j]
	}

	// A = R + alpha QtQ, symmetric positive definite with bandwidth 2.
	A := mat.NewSymDense(n-2, nil)
	rhs := mat.NewVecDense(n-2, nil)
	for j := 0; j < n-2; j++ {
		A.SetSym(j, j, (h[j]+h[j+1])/3+alpha*(a[j]*a[j]+b[j]*b[j]+c[j]*c[j]))
		if j+1 < n-2 {
			A.SetSym(j, j+1, h[j+1]/6+alpha*(b[j]*a[j+1]+c[j]*b[j+1]))
		}
		if j+2 < n-2 {
			A.SetSym(j, j+2, alpha*c[j]*a[j+2])
		}
		rhs.SetVec(j, a[j]*y[j]+b[j]*y[j+1]+c[j]*y[j+2])
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(A); !ok {
		return nil, errSplineSystem
	}
	gamma := mat.NewVecDense(n-2, nil)
	if err := chol.SolveVecTo(gamma, rhs); err != nil {
		return nil, errSplineSystem
	}

	for j := 0; j < n-2; j++ {
		gj := gamma.AtVec(j)
		sp.m2[j+1] = gj
		sp.g[j] -= alpha * a[j] * gj
		sp.g[j+1] -= alpha * b[j] * gj
		sp.g[j+2] -= alpha * c[j] * gj
	}
	return sp, nil
}

// eval evaluates the fitted curve at t.
func (s *smoothSpline) eval(t float64) float64 {
	n := len(s.x)
	if t <= s.x[0] {
		h := s.x[1] - s.x[0]
		slope := (s.g[1]-s.g[0])/h - h*s.m2[1]/6
		return s.g[0] + slope*(t-s.x[0])
	}
	if t >= s.x[n-1] {
		h := s.x[n-1] - s.x[n-2]
		slope := (s.g[n-1]-s.g[n-2])/h + h*s.m2[n-2]/6
		return s.g[n-1] + slope*(t-s.x[n-1])
	}
	i := sort.SearchFloat64s(s.x, t) - 1
	if s.x[i+1] == t {
		return s.g[i+1]
	}
	h := s.x[i+1] - s.x[i]
	u := (s.x[i+1] - t) / h
	v := (t - s.x[i]) / h
	return u*s.g[i] + v*s.g[i+1] +
		((u*u*u-u)*s.m2[i]+(v*v*v-v)*s.m2[i+1])*h*h/6
}

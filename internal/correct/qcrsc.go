package correct

import (
	"fmt"
	"math"

	"github.com/524D/qcdrift/internal/study"
)

// MinQC is the smallest number of QC injections per batch for which the
// spline correction is well-defined.
const MinQC = 4

// QCRSC removes smooth instrument drift by fitting, per batch and per
// metabolite, a smoothing spline to the QC responses over run order and
// dividing every row's response by the fitted curve. Batches with fewer
// than MinQC QC injections abort the call. Individual fits that cannot be
// computed (too few finite QC responses, degenerate smoothing system)
// leave their column uncorrected in that batch and are reported in the
// result's failure list.
func QCRSC(m study.Matrix, par QCRSCParams) (Result, error) {
	var res Result
	if par.SmoothParam < 0 || par.SmoothParam > 1 {
		return res, fmt.Errorf("smoothing parameter %g outside range 0..1",
			par.SmoothParam)
	}
	auto := par.SmoothParam == 0

	batches := m.Batches()
	for _, batch := range batches {
		if have := len(m.QCRows(batch)); have < MinQC {
			return res, &InsufficientQCError{Batch: batch, Have: have, Need: MinQC}
		}
	}

	out := m.Clone()
	for _, batch := range batches {
		qc := m.QCRows(batch)
		rows := m.BatchRows(batch)
		// QC run orders, ascending; shared by all metabolites of the batch.
		qcOrder := make([]float64, len(qc))
		for k, i := range qc {
			qcOrder[k] = float64(m.Rows[i].RunOrder)
		}

		for j, met := range m.Metabolites {
			// Keep only QC points with a finite response.
			var xs, ys []float64
			for k, i := range qc {
				if v := m.Rows[i].Features[j]; !math.IsNaN(v) {
					xs = append(xs, qcOrder[k])
					ys = append(ys, v)
				}
			}
			if len(xs) < MinQC {
				res.Failures = append(res.Failures, FitConvergenceError{
					Batch:      batch,
					Metabolite: met,
					Reason: fmt.Sprintf("only %d finite QC responses, need %d",
						len(xs), MinQC),
				})
				continue
			}

			p := par.SmoothParam
			var cvErr []float64
			if auto {
				var err error
				p, cvErr, err = selectSmoothing(xs, ys)
				if err != nil {
					res.Failures = append(res.Failures, FitConvergenceError{
						Batch: batch, Metabolite: met, Reason: err.Error(),
					})
					continue
				}
			}
			sp, err := fitSmoothSpline(xs, ys, p)
			if err != nil {
				res.Failures = append(res.Failures, FitConvergenceError{
					Batch: batch, Metabolite: met, Reason: err.Error(),
				})
				continue
			}
			if auto {
				choice := SmoothingChoice{Batch: batch, Metabolite: met, P: p}
				if par.Debug {
					choice.CVErr = cvErr
				}
				res.Smoothing = append(res.Smoothing, choice)
			}

			for _, i := range rows {
				f := sp.eval(float64(m.Rows[i].RunOrder))
				v := m.Rows[i].Features[j] / f
				if f == 0 || math.IsNaN(f) || math.IsInf(f, 0) || math.IsNaN(v) {
					v = math.NaN()
				}
				out.Rows[i].Features[j] = v
			}
		}
	}

	res.Matrix = out
	return res, nil
}

// SmoothingCandidates returns the smoothing parameters tried during
// automatic selection: p=1 plus values log-spaced in the roughness weight
// alpha=(1-p)/p from 1e-6 to 1e6. The grid is fixed so that a
// cross-validation error can always be attributed to a candidate index.
func SmoothingCandidates() []float64 {
	cands := []float64{1}
	for k := -12; k <= 12; k++ {
		alpha := math.Pow(10, float64(k)/2)
		cands = append(cands, 1/(1+alpha))
	}
	return cands
}

// selectSmoothing picks the smoothing parameter minimizing the aggregate
// leave-one-out cross-validation error over the QC points: for every
// candidate, each point is held out in turn, the spline is refitted on the
// remainder and the squared prediction error at the held-out point is
// accumulated. Returns the winning parameter and the per-candidate errors
// (NaN where a candidate failed to fit).
func selectSmoothing(x, y []float64) (float64, []float64, error) {
	cands := SmoothingCandidates()
	cvErr := make([]float64, len(cands))
	best := -1

	xt := make([]float64, len(x)-1)
	yt := make([]float64, len(y)-1)
	for ci, p := range cands {
		sse := 0.0
		failed := false
		for hold := range x {
			copy(xt, x[:hold])
			copy(xt[hold:], x[hold+1:])
			copy(yt, y[:hold])
			copy(yt[hold:], y[hold+1:])
			sp, err := fitSmoothSpline(xt, yt, p)
			if err != nil {
				failed = true
				break
			}
			d := y[hold] - sp.eval(x[hold])
			sse += d * d
		}
		if failed || math.IsNaN(sse) {
			cvErr[ci] = math.NaN()
			continue
		}
		cvErr[ci] = sse
		if best < 0 || sse < cvErr[best] {
			best = ci
		}
	}
	if best < 0 {
		return 0, cvErr, fmt.Errorf("no smoothing candidate produced a valid fit")
	}
	return cands[best], cvErr, nil
}

// Package metrics derives per-metabolite precision metrics from a study
// matrix and filters metabolites by thresholding them. The metrics are
// computed fresh from whatever matrix is passed in, raw or corrected.
package metrics

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/524D/qcdrift/internal/study"
)

// Row holds the precision metrics of one metabolite.
// BiologicalCV is the coefficient of variation over the Sample rows,
// TechnicalCV over the QC rows, both in percent. ICC is the fraction of
// total variance attributable to biological variation. Metrics that are
// not defined for the data (zero mean, too few values) are NaN.
type Row struct {
	Metabolite   string
	Mean         float64
	StdDev       float64
	BiologicalCV float64
	TechnicalCV  float64
	ICC          float64
}

// InsufficientDataError reports a matrix that lacks the rows of one class
// needed to compute the metrics.
type InsufficientDataError struct {
	Missing study.Class
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("matrix contains no %s rows", e.Missing)
}

// Compute derives the metric table from the given matrix. The matrix must
// contain at least one Sample and one QC row. NaN cells are ignored when
// gathering the per-class values. The result does not depend on the order
// of the rows in the matrix.
func Compute(m study.Matrix) ([]Row, error) {
	var haveSample, haveQC bool
	for _, r := range m.Rows {
		switch r.Class {
		case study.ClassSample:
			haveSample = true
		case study.ClassQC:
			haveQC = true
		}
	}
	if !haveSample {
		return nil, &InsufficientDataError{Missing: study.ClassSample}
	}
	if !haveQC {
		return nil, &InsufficientDataError{Missing: study.ClassQC}
	}

	table := make([]Row, len(m.Metabolites))
	for j, met := range m.Metabolites {
		var all, smp, qc []float64
		for _, r := range m.Rows {
			v := r.Features[j]
			if math.IsNaN(v) {
				continue
			}
			all = append(all, v)
			if r.Class == study.ClassQC {
				qc = append(qc, v)
			} else {
				smp = append(smp, v)
			}
		}
		mean, std := meanStdDev(all)
		table[j] = Row{
			Metabolite:   met,
			Mean:         mean,
			StdDev:       std,
			BiologicalCV: cv(smp),
			TechnicalCV:  cv(qc),
			ICC:          icc(smp, qc),
		}
	}
	return table, nil
}

func meanStdDev(xs []float64) (float64, float64) {
	switch len(xs) {
	case 0:
		return math.NaN(), math.NaN()
	case 1:
		return xs[0], math.NaN()
	}
	return stat.MeanStdDev(xs, nil)
}

// cv is the coefficient of variation in percent. Undefined (NaN) for an
// empty slice or a zero mean.
func cv(xs []float64) float64 {
	mean, std := meanStdDev(xs)
	if mean == 0 {
		return math.NaN()
	}
	return std / mean * 100
}

// icc is the intraclass correlation coefficient: the sample (biological)
// variance as a fraction of the total of sample and QC variance.
func icc(smp, qc []float64) float64 {
	if len(smp) < 2 || len(qc) < 2 {
		return math.NaN()
	}
	vs := stat.Variance(smp, nil)
	vq := stat.Variance(qc, nil)
	total := vs + vq
	if total == 0 || math.IsNaN(total) {
		return math.NaN()
	}
	return vs / total
}

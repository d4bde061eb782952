package correct

import (
	"fmt"
	"math"
	"sort"

	"github.com/524D/qcdrift/internal/study"
)

// Valid range for the QCMN neighbor count.
const (
	minNQC = 2
	maxNQC = 10
)

// QCMN removes local run-order drift by dividing every response by the
// per-metabolite median of the row's nearest QC injections, independently
// per batch. Afterwards every column is rescaled by its mean in the
// original matrix, restoring absolute units.
// A zero or NaN QC median makes the corrected cell NaN.
func QCMN(m study.Matrix, par QCMNParams) (Result, error) {
	var res Result
	if par.NQC < minNQC || par.NQC > maxNQC {
		return res, fmt.Errorf("QC neighbor count %d outside range %d..%d",
			par.NQC, minNQC, maxNQC)
	}

	batches := m.Batches()
	// Check QC availability of all batches up front, so the correction
	// is all-or-nothing.
	for _, batch := range batches {
		need := par.NQC
		if par.ExcludeSelf {
			// A QC row cannot be its own reference, so one extra is needed.
			need++
		}
		if have := len(m.QCRows(batch)); have < need {
			return res, &InsufficientQCError{Batch: batch, Have: have, Need: need}
		}
	}

	out := m.Clone()
	window := make([]float64, par.NQC)
	for _, batch := range batches {
		refs := batchQCRefs(&m, batch)
		for _, i := range m.BatchRows(batch) {
			exclude := -1
			if par.ExcludeSelf && m.Rows[i].Class == study.ClassQC {
				exclude = i
			}
			nbrs := nearestQC(refs, m.Rows[i].RunOrder, par.NQC, exclude)
			for j := range m.Metabolites {
				for k, nbr := range nbrs {
					window[k] = m.Rows[nbr.row].Features[j]
				}
				med := median(window)
				v := m.Rows[i].Features[j] / med
				if med == 0 || math.IsNaN(med) || math.IsNaN(v) {
					v = math.NaN()
				}
				out.Rows[i].Features[j] = v
			}
		}
	}

	// Restore the global scale lost by dividing through the QC medians.
	means := m.ColumnMeans()
	for i := range out.Rows {
		for j := range out.Rows[i].Features {
			out.Rows[i].Features[j] *= means[j]
		}
	}

	res.Matrix = out
	return res, nil
}

// batchQCRefs collects the QC injections of a batch, sorted by run order.
func batchQCRefs(m *study.Matrix, batch string) []qcRef {
	qc := m.QCRows(batch)
	refs := make([]qcRef, len(qc))
	for k, i := range qc {
		refs[k] = qcRef{row: i, runOrder: m.Rows[i].RunOrder}
	}
	return refs
}

// median returns the median of xs, or NaN if any value is NaN.
// xs is not modified.
func median(xs []float64) float64 {
	for _, x := range xs {
		if math.IsNaN(x) {
			return math.NaN()
		}
	}
	s := append([]float64(nil), xs...)
	sort.Float64s(s)
	n := len(s)
	if n == 0 {
		return math.NaN()
	}
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}

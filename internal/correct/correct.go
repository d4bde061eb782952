// Package correct removes systematic instrument drift from a study matrix
// using the interspersed QC injections as drift references. Two mutually
// exclusive strategies are provided: nearest-QC median normalization (QCMN)
// and robust smoothing-spline correction (QCRSC). Both are pure functions
// of the input matrix and their parameters; the input is never modified.
package correct

import (
	"errors"
	"fmt"
	"strings"

	"github.com/524D/qcdrift/internal/study"
)

// Method selects the correction strategy.
type Method int

const (
	MethodQCMN Method = iota
	MethodQCRSC
)

func (m Method) String() string {
	switch m {
	case MethodQCMN:
		return "QCMN"
	case MethodQCRSC:
		return "QCRSC"
	}
	return fmt.Sprintf("Method(%d)", int(m))
}

var ErrUnknownMethod = errors.New("unknown correction method")

// MethodFromString maps a user-supplied method name to a Method.
func MethodFromString(s string) (Method, error) {
	switch strings.ToUpper(s) {
	case "QCMN":
		return MethodQCMN, nil
	case "QCRSC":
		return MethodQCRSC, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrUnknownMethod, s)
}

// InsufficientQCError reports a batch that does not contain enough QC
// injections for the requested operation. It is structural: the whole
// correction call is aborted, since a matrix cannot be partially corrected
// per batch.
type InsufficientQCError struct {
	Batch string
	Have  int
	Need  int
}

func (e *InsufficientQCError) Error() string {
	return fmt.Sprintf("batch %s has %d QC injections, need at least %d",
		e.Batch, e.Have, e.Need)
}

// FitConvergenceError reports a failed spline fit for one metabolite in
// one batch. It is not fatal: the affected column stays uncorrected and
// the error is collected in the result's failure list.
type FitConvergenceError struct {
	Batch      string
	Metabolite string
	Reason     string
}

func (e FitConvergenceError) Error() string {
	return fmt.Sprintf("fit failed for metabolite %s in batch %s: %s",
		e.Metabolite, e.Batch, e.Reason)
}

// QCMNParams configures nearest-QC median normalization.
type QCMNParams struct {
	// NQC is the number of nearest QC injections whose median is used
	// as the local drift reference. Valid range 2..10.
	NQC int
	// ExcludeSelf removes a QC row from its own neighbor set. The
	// reference behavior includes it; this switch exists so the
	// alternative can be pinned by tests and selected deliberately.
	ExcludeSelf bool
}

// QCRSCParams configures robust spline correction.
type QCRSCParams struct {
	// SmoothParam is the spline smoothing parameter in [0,1].
	// 1 interpolates the QC responses; the sentinel 0 selects the
	// parameter automatically by leave-one-out cross-validation.
	SmoothParam float64
	// Debug records the per-candidate cross-validation errors in the
	// smoothing choices of the result.
	Debug bool
}

// SmoothingChoice records the smoothing parameter used for one
// batch/metabolite spline fit. CVErr holds the aggregate leave-one-out
// squared error per candidate of SmoothingCandidates, and is only filled
// when QCRSCParams.Debug is set.
type SmoothingChoice struct {
	Batch      string
	Metabolite string
	P          float64
	CVErr      []float64
}

// Result is a corrected snapshot of the input matrix. Row identity and
// metadata are unchanged; feature values are corrected. Columns listed in
// Failures were left uncorrected in the batches named there.
type Result struct {
	Matrix    study.Matrix
	Failures  []FitConvergenceError
	Smoothing []SmoothingChoice
}

package metrics

import (
	"sort"

	"github.com/524D/qcdrift/internal/study"
)

// FilterParams are the feature filter thresholds.
type FilterParams struct {
	// TechnicalCVMax removes metabolites whose technical CV exceeds it.
	TechnicalCVMax float64
	// ICCMin removes metabolites whose ICC falls below it.
	ICCMin float64
}

// Decision lists the metabolites marked for removal, split by the
// threshold that triggered it. A metabolite can appear in both lists.
type Decision struct {
	RemovedByCV  []string
	RemovedByICC []string
}

// Removal returns the union of both removal lists, sorted by name.
func (d *Decision) Removal() []string {
	set := make(map[string]bool)
	for _, met := range d.RemovedByCV {
		set[met] = true
	}
	for _, met := range d.RemovedByICC {
		set[met] = true
	}
	union := make([]string, 0, len(set))
	for met := range set {
		union = append(union, met)
	}
	sort.Strings(union)
	return union
}

// Filter marks a metabolite for removal if its technical CV is strictly
// above TechnicalCVMax or its ICC strictly below ICCMin; values equal to a
// threshold are retained. Undefined (NaN) metrics never trigger removal.
// The lists follow the metabolite order of the table.
func Filter(table []Row, par FilterParams) Decision {
	var d Decision
	for _, r := range table {
		if r.TechnicalCV > par.TechnicalCVMax {
			d.RemovedByCV = append(d.RemovedByCV, r.Metabolite)
		}
		if r.ICC < par.ICCMin {
			d.RemovedByICC = append(d.RemovedByICC, r.Metabolite)
		}
	}
	return d
}

// Apply returns a copy of the matrix with the named metabolite columns
// dropped. All rows are retained unchanged; unknown names are ignored.
func Apply(m study.Matrix, removal []string) study.Matrix {
	drop := make(map[string]bool, len(removal))
	for _, met := range removal {
		drop[met] = true
	}

	var keep []int
	out := study.Matrix{Rows: make([]study.Row, len(m.Rows))}
	for j, met := range m.Metabolites {
		if !drop[met] {
			keep = append(keep, j)
			out.Metabolites = append(out.Metabolites, met)
		}
	}
	for i, r := range m.Rows {
		out.Rows[i] = r
		out.Rows[i].Features = make([]float64, len(keep))
		for k, j := range keep {
			out.Rows[i].Features[k] = r.Features[j]
		}
	}
	return out
}

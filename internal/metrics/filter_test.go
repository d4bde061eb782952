package metrics

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/524D/qcdrift/internal/study"
)

func filterTestTable() []Row {
	return []Row{
		{Metabolite: "good", TechnicalCV: 10, ICC: 0.9},
		{Metabolite: "noisy", TechnicalCV: 45, ICC: 0.9},
		{Metabolite: "uninformative", TechnicalCV: 10, ICC: 0.1},
		{Metabolite: "both", TechnicalCV: 45, ICC: 0.1},
		{Metabolite: "boundary", TechnicalCV: 30, ICC: 0.4},
		{Metabolite: "undefined", TechnicalCV: math.NaN(), ICC: math.NaN()},
	}
}

func TestFilter(t *testing.T) {
	d := Filter(filterTestTable(), FilterParams{TechnicalCVMax: 30, ICCMin: 0.4})
	wantCV := []string{"noisy", "both"}
	wantICC := []string{"uninformative", "both"}
	if diff := cmp.Diff(wantCV, d.RemovedByCV); diff != "" {
		t.Errorf("Filter RemovedByCV (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(wantICC, d.RemovedByICC); diff != "" {
		t.Errorf("Filter RemovedByICC (-want +got):\n%s", diff)
	}
	// Union is sorted and deduplicated
	wantUnion := []string{"both", "noisy", "uninformative"}
	if diff := cmp.Diff(wantUnion, d.Removal()); diff != "" {
		t.Errorf("Filter Removal (-want +got):\n%s", diff)
	}
}

func TestFilterPermissiveThresholdsRemoveNothing(t *testing.T) {
	d := Filter(filterTestTable(), FilterParams{
		TechnicalCVMax: math.Inf(1),
		ICCMin:         0,
	})
	if len(d.RemovedByCV) != 0 || len(d.RemovedByICC) != 0 {
		t.Errorf("Filter: removed %v %v, should remove nothing",
			d.RemovedByCV, d.RemovedByICC)
	}
}

func TestFilterStrictThresholds(t *testing.T) {
	table := filterTestTable()
	d := Filter(table, FilterParams{TechnicalCVMax: 0, ICCMin: 1})
	// Everything off the exact boundary goes; NaN metrics are retained
	removal := d.Removal()
	want := []string{"both", "boundary", "good", "noisy", "uninformative"}
	if diff := cmp.Diff(want, removal); diff != "" {
		t.Errorf("Filter strict (-want +got):\n%s", diff)
	}
}

func TestFilterBoundaryRetained(t *testing.T) {
	d := Filter(filterTestTable(), FilterParams{TechnicalCVMax: 30, ICCMin: 0.4})
	for _, met := range d.Removal() {
		if met == "boundary" {
			t.Errorf("Filter: metabolite at exact thresholds was removed")
		}
	}
}

func TestApply(t *testing.T) {
	m := study.Matrix{
		Metabolites: []string{"met1", "met2", "met3"},
		Rows: []study.Row{
			{ID: "s1", Class: study.ClassSample, Batch: "b1", RunOrder: 1,
				Features: []float64{1, 2, 3}},
			{ID: "q1", Class: study.ClassQC, Batch: "b1", RunOrder: 2,
				Features: []float64{4, 5, 6}},
		},
	}
	out := Apply(m, []string{"met2", "unknown"})
	if diff := cmp.Diff([]string{"met1", "met3"}, out.Metabolites); diff != "" {
		t.Errorf("Apply metabolites (-want +got):\n%s", diff)
	}
	if len(out.Rows) != 2 {
		t.Fatalf("Apply: %d rows, should be 2", len(out.Rows))
	}
	if diff := cmp.Diff([]float64{1, 3}, out.Rows[0].Features); diff != "" {
		t.Errorf("Apply row 0 (-want +got):\n%s", diff)
	}
	if out.Rows[1].ID != "q1" || out.Rows[1].RunOrder != 2 {
		t.Errorf("Apply: row metadata changed: %+v", out.Rows[1])
	}
	// The input matrix is untouched
	if len(m.Metabolites) != 3 || len(m.Rows[0].Features) != 3 {
		t.Errorf("Apply modified its input")
	}
}

func TestApplyEmptyRemoval(t *testing.T) {
	m := study.Matrix{
		Metabolites: []string{"met1"},
		Rows: []study.Row{
			{ID: "s1", Class: study.ClassSample, Batch: "b1", RunOrder: 1,
				Features: []float64{1}},
		},
	}
	out := Apply(m, nil)
	if diff := cmp.Diff(m, out); diff != "" {
		t.Errorf("Apply with empty removal (-want +got):\n%s", diff)
	}
}

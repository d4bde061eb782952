package study

import (
	"bytes"
	"math"
	"strings"
	"testing"
)

func TestWrite(t *testing.T) {
	m := Matrix{
		Metabolites: []string{"met1"},
		Rows: []Row{
			{ID: "s1", Class: ClassSample, Batch: "b1", RunOrder: 1, Features: []float64{1.25}},
			{ID: "q1", Class: ClassQC, Batch: "b1", RunOrder: 2, Features: []float64{math.NaN()}},
		},
	}
	var buf bytes.Buffer
	if err := m.Write(&buf); err != nil {
		t.Fatalf("Write: error return %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("Write: %d lines, should be 3", len(lines))
	}
	if lines[0] != "id,class,batch,order,met1" {
		t.Errorf("Write: header %q", lines[0])
	}
	if lines[1] != "s1,Sample,b1,1,1.25" {
		t.Errorf("Write: row 1 %q", lines[1])
	}
	// NaN must be written as an empty cell
	if lines[2] != "q1,QC,b1,2," {
		t.Errorf("Write: row 2 %q", lines[2])
	}

	// What Write produces, Read must accept unchanged
	back, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read: error return %v", err)
	}
	if back.Rows[0].Features[0] != 1.25 || !math.IsNaN(back.Rows[1].Features[0]) {
		t.Errorf("Read after Write: %v %v",
			back.Rows[0].Features[0], back.Rows[1].Features[0])
	}
}

// Package study holds the in-memory model of a metabolomics study:
// an ordered table of injections (biological samples and QC injections)
// with their batch membership, run order and metabolite responses.
package study

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// Class distinguishes biological samples from quality-control injections.
type Class int

const (
	ClassSample Class = iota
	ClassQC
)

func (c Class) String() string {
	switch c {
	case ClassSample:
		return "Sample"
	case ClassQC:
		return "QC"
	}
	return fmt.Sprintf("Class(%d)", int(c))
}

var (
	ErrNoRows            = errors.New("study matrix contains no rows")
	ErrDuplicateRunOrder = errors.New("duplicate run order within batch")
	ErrFeatureCount      = errors.New("row feature count differs from metabolite count")
	ErrUnknownMetabolite = errors.New("unknown metabolite name")
)

// Row is a single injection. Features is indexed like Matrix.Metabolites;
// an unmeasured response is NaN.
type Row struct {
	ID       string
	Class    Class
	Batch    string
	RunOrder int
	Features []float64
}

// Matrix is the study table. It is treated as read-only once loaded;
// corrections return a fresh copy and never modify the original.
type Matrix struct {
	Metabolites []string
	Rows        []Row
}

// Validate checks the structural invariants of the matrix:
// at least one row, a uniform feature count, and run orders that are
// unique within each batch.
func (m *Matrix) Validate() error {
	if len(m.Rows) == 0 {
		return ErrNoRows
	}
	seen := make(map[string]map[int]bool)
	for _, r := range m.Rows {
		if len(r.Features) != len(m.Metabolites) {
			return fmt.Errorf("%w: row %s has %d features, expected %d",
				ErrFeatureCount, r.ID, len(r.Features), len(m.Metabolites))
		}
		orders, ok := seen[r.Batch]
		if !ok {
			orders = make(map[int]bool)
			seen[r.Batch] = orders
		}
		if orders[r.RunOrder] {
			return fmt.Errorf("%w: batch %s run order %d",
				ErrDuplicateRunOrder, r.Batch, r.RunOrder)
		}
		orders[r.RunOrder] = true
	}
	return nil
}

// Batches returns the batch identifiers in order of first appearance.
func (m *Matrix) Batches() []string {
	var batches []string
	seen := make(map[string]bool)
	for _, r := range m.Rows {
		if !seen[r.Batch] {
			seen[r.Batch] = true
			batches = append(batches, r.Batch)
		}
	}
	return batches
}

// BatchRows returns the indices of all rows belonging to the given batch,
// in original row order.
func (m *Matrix) BatchRows(batch string) []int {
	var idx []int
	for i, r := range m.Rows {
		if r.Batch == batch {
			idx = append(idx, i)
		}
	}
	return idx
}

// QCRows returns the indices of the QC rows of the given batch,
// sorted by run order.
func (m *Matrix) QCRows(batch string) []int {
	var idx []int
	for i, r := range m.Rows {
		if r.Batch == batch && r.Class == ClassQC {
			idx = append(idx, i)
		}
	}
	sort.Slice(idx, func(a, b int) bool {
		return m.Rows[idx[a]].RunOrder < m.Rows[idx[b]].RunOrder
	})
	return idx
}

// MetaboliteIndex returns the column index of the named metabolite.
func (m *Matrix) MetaboliteIndex(name string) (int, error) {
	for j, met := range m.Metabolites {
		if met == name {
			return j, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrUnknownMetabolite, name)
}

// Clone returns a deep copy of the matrix. Feature slices are copied,
// so the clone can be modified without touching the original.
func (m *Matrix) Clone() Matrix {
	out := Matrix{
		Metabolites: append([]string(nil), m.Metabolites...),
		Rows:        make([]Row, len(m.Rows)),
	}
	for i, r := range m.Rows {
		out.Rows[i] = r
		out.Rows[i].Features = append([]float64(nil), r.Features...)
	}
	return out
}

// ColumnMeans returns the per-metabolite mean over all rows,
// ignoring NaN cells. A column without any finite value yields NaN.
func (m *Matrix) ColumnMeans() []float64 {
	means := make([]float64, len(m.Metabolites))
	for j := range m.Metabolites {
		var sum float64
		var n int
		for _, r := range m.Rows {
			if v := r.Features[j]; !math.IsNaN(v) {
				sum += v
				n++
			}
		}
		if n == 0 {
			means[j] = math.NaN()
		} else {
			means[j] = sum / float64(n)
		}
	}
	return means
}

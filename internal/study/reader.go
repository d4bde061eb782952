package study

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// The first four columns of a study CSV file are fixed; everything after
// them is a metabolite response column.
const fixedColumns = 4

var (
	ErrHeader       = errors.New("invalid study CSV header")
	ErrUnknownClass = errors.New("unknown sample class")
)

// Read reads a study matrix from CSV. The expected layout is a header row
// "id,class,batch,order,<metabolite>..." followed by one row per injection.
// Class values are matched case-insensitively. Empty cells and the values
// NA/NaN are read as NaN (unmeasured).
func Read(reader io.Reader) (Matrix, error) {
	var m Matrix

	r := csv.NewReader(reader)
	r.TrimLeadingSpace = true
	header, err := r.Read()
	if err != nil {
		return m, fmt.Errorf("%w: %v", ErrHeader, err)
	}
	if len(header) < fixedColumns+1 {
		return m, fmt.Errorf("%w: need at least %d columns, got %d",
			ErrHeader, fixedColumns+1, len(header))
	}
	for i, want := range []string{"id", "class", "batch", "order"} {
		if !strings.EqualFold(strings.TrimSpace(header[i]), want) {
			return m, fmt.Errorf("%w: column %d is %q, expected %q",
				ErrHeader, i+1, header[i], want)
		}
	}
	m.Metabolites = make([]string, len(header)-fixedColumns)
	for j := range m.Metabolites {
		m.Metabolites[j] = strings.TrimSpace(header[j+fixedColumns])
	}

	for line := 2; ; line++ {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return m, err
		}
		row, err := parseRow(record, len(m.Metabolites))
		if err != nil {
			return m, fmt.Errorf("line %d: %w", line, err)
		}
		m.Rows = append(m.Rows, row)
	}

	err = m.Validate()
	return m, err
}

func parseRow(record []string, numMets int) (Row, error) {
	var row Row

	if len(record) != fixedColumns+numMets {
		return row, fmt.Errorf("%w: %d fields, expected %d",
			ErrFeatureCount, len(record), fixedColumns+numMets)
	}
	row.ID = strings.TrimSpace(record[0])
	class, err := parseClass(record[1])
	if err != nil {
		return row, err
	}
	row.Class = class
	row.Batch = strings.TrimSpace(record[2])
	row.RunOrder, err = strconv.Atoi(strings.TrimSpace(record[3]))
	if err != nil {
		return row, fmt.Errorf("invalid run order %q", record[3])
	}
	row.Features = make([]float64, numMets)
	for j := range row.Features {
		row.Features[j], err = parseResponse(record[fixedColumns+j])
		if err != nil {
			return row, err
		}
	}
	return row, nil
}

func parseClass(s string) (Class, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sample":
		return ClassSample, nil
	case "qc":
		return ClassQC, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownClass, s)
}

func parseResponse(s string) (float64, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "na", "nan":
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid response value %q", s)
	}
	return v, nil
}

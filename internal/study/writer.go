package study

import (
	"encoding/csv"
	"io"
	"math"
	"strconv"
)

// Write writes the matrix as CSV in the same column layout that Read
// expects. NaN cells are written as empty fields.
func (m *Matrix) Write(writer io.Writer) error {
	w := csv.NewWriter(writer)

	header := make([]string, 0, fixedColumns+len(m.Metabolites))
	header = append(header, "id", "class", "batch", "order")
	header = append(header, m.Metabolites...)
	if err := w.Write(header); err != nil {
		return err
	}

	record := make([]string, fixedColumns+len(m.Metabolites))
	for _, r := range m.Rows {
		record[0] = r.ID
		record[1] = r.Class.String()
		record[2] = r.Batch
		record[3] = strconv.Itoa(r.RunOrder)
		for j, v := range r.Features {
			if math.IsNaN(v) {
				record[fixedColumns+j] = ""
			} else {
				record[fixedColumns+j] = strconv.FormatFloat(v, 'g', -1, 64)
			}
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// Copyright 2024 Rob Marissen.
// SPDX-License-Identifier: MIT

package main

import (
	"bytes"
	"encoding/json"
	"math"
	"os"

	"github.com/524D/qcdrift/internal/correct"
	"github.com/524D/qcdrift/internal/metrics"
)

// Format of output, if it ever changes we should still be able to parse
// output from old versions
const outputFormatVersion = "1.0"

// jsonFloat marshals NaN and infinities as null; encoding/json refuses to
// encode them as numbers. null unmarshals back to NaN.
type jsonFloat float64

func (f jsonFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

func (f *jsonFloat) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*f = jsonFloat(math.NaN())
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = jsonFloat(v)
	return nil
}

// reportMetric is one metabolite's metric row. RawTechnicalCV is the
// technical CV before correction, so readers can see the gain; it is null
// when the run had no raw matrix to compare against (stage 2).
type reportMetric struct {
	Metabolite     string
	Mean           jsonFloat
	StdDev         jsonFloat
	BiologicalCV   jsonFloat
	TechnicalCV    jsonFloat
	ICC            jsonFloat
	RawTechnicalCV jsonFloat
}

type fitFailure struct {
	Batch      string
	Metabolite string
	Reason     string
}

// report contains everything downstream consumers (report narration,
// plotting) need from one run, in addition to the two output matrices.
type report struct {
	QcDriftVersion string
	Method         string
	NQC            int     `json:",omitempty"`
	SmoothingParam float64 `json:",omitempty"`
	TechnicalCVMax float64
	ICCMin         float64
	Failures       []fitFailure   `json:",omitempty"`
	Metrics        []reportMetric `json:",omitempty"`
	RemovedByCV    []string
	RemovedByICC   []string
}

func makeReport(par params, failures []correct.FitConvergenceError,
	table []metrics.Row, rawTable []metrics.Row, decision metrics.Decision) report {
	rep := report{
		QcDriftVersion: outputFormatVersion,
		Method:         *par.method,
		NQC:            *par.nQC,
		SmoothingParam: *par.smoothing,
		TechnicalCVMax: *par.cvMax,
		ICCMin:         *par.iccMin,
		RemovedByCV:    decision.RemovedByCV,
		RemovedByICC:   decision.RemovedByICC,
	}
	for _, fail := range failures {
		rep.Failures = append(rep.Failures, fitFailure{
			Batch:      fail.Batch,
			Metabolite: fail.Metabolite,
			Reason:     fail.Reason,
		})
	}
	rawCV := make(map[string]float64, len(rawTable))
	for _, r := range rawTable {
		rawCV[r.Metabolite] = r.TechnicalCV
	}
	for _, r := range table {
		raw, ok := rawCV[r.Metabolite]
		if !ok {
			raw = math.NaN()
		}
		rep.Metrics = append(rep.Metrics, reportMetric{
			Metabolite:     r.Metabolite,
			Mean:           jsonFloat(r.Mean),
			StdDev:         jsonFloat(r.StdDev),
			BiologicalCV:   jsonFloat(r.BiologicalCV),
			TechnicalCV:    jsonFloat(r.TechnicalCV),
			ICC:            jsonFloat(r.ICC),
			RawTechnicalCV: jsonFloat(raw),
		})
	}
	return rep
}

func writeReport(rep report, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	e := json.NewEncoder(f)
	e.SetIndent(``, `  `) // Make output easier to read for humans
	return e.Encode(rep)
}

func readReport(filename string) (report, error) {
	var rep report
	f, err := os.Open(filename)
	if err != nil {
		return rep, err
	}
	defer f.Close()

	d := json.NewDecoder(f)
	err = d.Decode(&rep)
	return rep, err
}

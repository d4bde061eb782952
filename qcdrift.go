// Copyright 2024 Rob Marissen.
// SPDX-License-Identifier: MIT

package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/524D/qcdrift/internal/correct"
	"github.com/524D/qcdrift/internal/metrics"
	"github.com/524D/qcdrift/internal/study"
)

// Program name and version, written to the JSON report
const progName = "qcDrift"

var progVersion = `Unknown`

const (
	infoDefault = iota
	infoSilent
	infoVerbose
)

// Command line parameters
type params struct {
	stage             *int     // Correct only (1), metrics+filter only (2) or both (0)
	studyFilename     *string  // Input study matrix (CSV)
	correctedFilename *string  // Output of corrected matrix (CSV)
	filteredFilename  *string  // Output of corrected+filtered matrix (CSV)
	reportFilename    *string  // Filename where the JSON report will be written
	method            *string  // Correction method as specified by user (QCMN/QCRSC)
	nQC               *int     // QCMN: number of nearest QC injections for the median
	qcSelfExclude     *bool    // QCMN: exclude a QC injection from its own neighbors
	smoothing         *float64 // QCRSC: smoothing parameter, 0 means auto-select
	cvMax             *float64 // Filter: maximum technical CV (%)
	iccMin            *float64 // Filter: minimum ICC
	verbosity         int      // Verbosity of progress messages (infoDefault...)
	args              []string // Additional values passed on the command line
	debug             bool     // Enable debug info (environment variable QCDRIFT_DEBUG=1)
}

// readStudy reads and validates the input study matrix
func readStudy(par params) study.Matrix {
	f, err := os.Open(*par.studyFilename)
	if err != nil {
		log.Fatalf("Open %s: study file %v", *par.studyFilename, err)
	}
	defer f.Close()
	m, err := study.Read(f)
	if err != nil {
		log.Fatalf("study.Read: error return %v", err)
	}
	return m
}

func writeMatrix(m study.Matrix, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	return m.Write(f)
}

// correctStudy runs the selected correction method on the study matrix.
// Structural errors (unknown method, batches with too few QC injections)
// are fatal; per-column fit failures are warned about and reported, the
// affected columns staying uncorrected.
func correctStudy(m study.Matrix, par params) correct.Result {
	method, err := correct.MethodFromString(*par.method)
	if err != nil {
		log.Fatalf("Invalid parameter 'func': %v", err)
	}

	var res correct.Result
	switch method {
	case correct.MethodQCMN:
		res, err = correct.QCMN(m, correct.QCMNParams{
			NQC:         *par.nQC,
			ExcludeSelf: *par.qcSelfExclude,
		})
	case correct.MethodQCRSC:
		res, err = correct.QCRSC(m, correct.QCRSCParams{
			SmoothParam: *par.smoothing,
			Debug:       par.debug,
		})
	}
	if err != nil {
		log.Fatalf("correction (%s) failed: %v", method, err)
	}
	if par.verbosity != infoSilent {
		for _, fail := range res.Failures {
			log.Printf("Warning: %v; column left uncorrected", fail)
		}
	}
	debugLogSmoothing(res)
	return res
}

// computeMetrics derives the per-metabolite precision metrics
func computeMetrics(m study.Matrix) []metrics.Row {
	table, err := metrics.Compute(m)
	if err != nil {
		log.Fatalf("metrics.Compute: error return %v", err)
	}
	return table
}

// runCorrection performs stage 1: drift correction only.
// The corrected matrix and a report with the fit failures are written.
func runCorrection(par params) {
	m := readStudy(par)

	t := time.Now()
	if par.verbosity == infoVerbose {
		fmt.Fprintf(os.Stderr, "Computing %s correction: ", *par.method)
	}
	res := correctStudy(m, par)
	if par.verbosity == infoVerbose {
		fmt.Fprintf(os.Stderr, "%s\n", time.Since(t))
	}

	if err := writeMatrix(res.Matrix, *par.correctedFilename); err != nil {
		log.Fatalf("writeMatrix: error return %v", err)
	}
	rep := makeReport(par, res.Failures, nil, nil, metrics.Decision{})
	if err := writeReport(rep, *par.reportFilename); err != nil {
		log.Fatalf("writeReport: error return %v", err)
	}
}

// runMetrics performs stage 2: metrics and filtering on a matrix that is
// assumed to be corrected already (or deliberately uncorrected).
func runMetrics(par params) {
	m := readStudy(par)

	table := computeMetrics(m)
	decision := metrics.Filter(table, metrics.FilterParams{
		TechnicalCVMax: *par.cvMax,
		ICCMin:         *par.iccMin,
	})
	filtered := metrics.Apply(m, decision.Removal())

	if err := writeMatrix(filtered, *par.filteredFilename); err != nil {
		log.Fatalf("writeMatrix: error return %v", err)
	}
	rep := makeReport(par, nil, table, nil, decision)
	if err := writeReport(rep, *par.reportFilename); err != nil {
		log.Fatalf("writeReport: error return %v", err)
	}
	printFilterSummary(par, table, decision)
}

// runAll performs the default pipeline: correct, compute metrics on both
// the raw and the corrected matrix, filter on the corrected metrics, and
// write the corrected matrix, the filtered matrix and the JSON report.
func runAll(par params) {
	m := readStudy(par)

	t := time.Now()
	if par.verbosity == infoVerbose {
		fmt.Fprintf(os.Stderr, "Computing %s correction: ", *par.method)
	}
	res := correctStudy(m, par)
	if par.verbosity == infoVerbose {
		fmt.Fprintf(os.Stderr, "%s\n", time.Since(t))
		t = time.Now()
		fmt.Fprintf(os.Stderr, "Computing precision metrics: ")
	}

	rawTable := computeMetrics(m)
	table := computeMetrics(res.Matrix)
	decision := metrics.Filter(table, metrics.FilterParams{
		TechnicalCVMax: *par.cvMax,
		ICCMin:         *par.iccMin,
	})
	filtered := metrics.Apply(res.Matrix, decision.Removal())

	if par.verbosity == infoVerbose {
		fmt.Fprintf(os.Stderr, "%s\n", time.Since(t))
	}

	if err := writeMatrix(res.Matrix, *par.correctedFilename); err != nil {
		log.Fatalf("writeMatrix: error return %v", err)
	}
	if err := writeMatrix(filtered, *par.filteredFilename); err != nil {
		log.Fatalf("writeMatrix: error return %v", err)
	}
	rep := makeReport(par, res.Failures, table, rawTable, decision)
	if err := writeReport(rep, *par.reportFilename); err != nil {
		log.Fatalf("writeReport: error return %v", err)
	}
	printFilterSummary(par, table, decision)
}

func printFilterSummary(par params, table []metrics.Row, decision metrics.Decision) {
	if par.verbosity != infoSilent {
		fmt.Fprintf(os.Stderr, "Metabolites: %d Removed by CV: %d Removed by ICC: %d\n",
			len(table), len(decision.RemovedByCV), len(decision.RemovedByICC))
	}
}

// sanitizeParams does some checks on parameters, and fills missing
// filenames if possible
func sanitizeParams(par *params) {
	exeName := filepath.Base(os.Args[0])

	if len(par.args) != 1 {
		fmt.Fprintf(os.Stderr, `Last argument must be name of study CSV file.
Type %s --help for usage
`, exeName)
		os.Exit(2)
	}

	csv := par.args[0]
	par.studyFilename = &csv
	var extension = filepath.Ext(csv)
	var startName = csv[0 : len(csv)-len(extension)]

	if *par.correctedFilename == "" {
		*par.correctedFilename = startName + "-corrected.csv"
	}
	if *par.filteredFilename == "" {
		*par.filteredFilename = startName + "-filtered.csv"
	}
	if *par.reportFilename == "" {
		*par.reportFilename = startName + "-report.json"
	}

	if *par.nQC < 2 || *par.nQC > 10 {
		fmt.Fprintf(os.Stderr, `Invalid value for parameter 'nqc' (range 2:10).
Type %s --help for usage
`, exeName)
		os.Exit(2)
	}
	if *par.smoothing < 0 || *par.smoothing > 1 {
		fmt.Fprintf(os.Stderr, `Invalid value for parameter 'smooth' (range 0:1).
Type %s --help for usage
`, exeName)
		os.Exit(2)
	}
	if *par.cvMax < 0 {
		fmt.Fprintf(os.Stderr, `Invalid value for parameter 'cvmax' (must be >= 0).
Type %s --help for usage
`, exeName)
		os.Exit(2)
	}
	if *par.iccMin < 0 || *par.iccMin > 1 {
		fmt.Fprintf(os.Stderr, `Invalid value for parameter 'iccmin' (range 0:1).
Type %s --help for usage
`, exeName)
		os.Exit(2)
	}
}

func usage() {
	exeName := filepath.Base(os.Args[0])
	fmt.Fprintf(os.Stderr,
		`USAGE:
  %s [options] <studyfile.csv>

  This program corrects systematic instrument drift in a metabolomics
  study acquired in multiple analytical batches, using the interspersed
  QC injections as drift references. After correction, per-metabolite
  precision metrics (technical and biological CV, ICC) are computed and
  metabolites failing the thresholds are removed from the exported matrix.

  The study file is a CSV table with columns id,class,batch,order followed
  by one column per metabolite. class is "Sample" or "QC", order is the
  injection sequence number within the batch. Empty cells and NA/NaN are
  treated as unmeasured.

OPTIONS:
`, exeName)
	flag.PrintDefaults()
	fmt.Fprintf(os.Stderr,
		`
ENVIRONMENT VARIABLES:
    When environment variable QCDRIFT_DEBUG=1, per-candidate cross
    validation errors of the automatic smoothing parameter selection are
    included in the -debug output of %s.

USAGE EXAMPLES:
  %s study.csv
    Correct study.csv with the spline method (smoothing auto-selected),
    write study-corrected.csv, study-filtered.csv and study-report.json.

  %s -func QCMN -nqc 3 study.csv
    Correct using the median of the 3 nearest QC injections instead.

  %s -stage 2 -cvmax 20 study-corrected.csv
    Only recompute metrics and filtering on a previously corrected file,
    with a stricter technical CV threshold.
`, exeName, exeName, exeName, exeName)
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	var par params

	par.method = flag.String("func",
		"QCRSC",
		"correction `function`"+` to apply. Valid function names:
    QCRSC: robust smoothing spline fitted to the QC responses per batch.
    QCMN: normalization by the median of the nearest QC injections.`)
	par.stage = flag.Int("stage", 0,
		`0 (default): correct, compute metrics and filter in one run
1: only correct the matrix
2: only compute metrics and filter (input is used as-is)`)
	par.correctedFilename = flag.String("o",
		"",
		"`filename` of corrected output CSV")
	par.filteredFilename = flag.String("filtered",
		"",
		"`filename` of corrected and filtered output CSV")
	par.reportFilename = flag.String("report",
		"",
		"`filename` for JSON output of metrics, filter decision and fit failures")
	par.nQC = flag.Int("nqc",
		5,
		`number of nearest QC injections used for the QCMN median (range 2:10).
Ignored by QCRSC.`)
	par.qcSelfExclude = flag.Bool("qcselfexclude", false,
		`exclude a QC injection from its own set of nearest QC references.
The default (false) mirrors the reference behavior, where a QC injection
contributes to its own correction median.`)
	par.smoothing = flag.Float64("smooth",
		0.0,
		`QCRSC spline smoothing parameter (range 0:1). 1 interpolates the QC
responses; 0 (default) selects the parameter per batch and metabolite by
leave-one-out cross validation.`)
	par.cvMax = flag.Float64("cvmax",
		30.0,
		`maximum technical CV (%) for a metabolite to be retained.
Metabolites at exactly the threshold are retained.`)
	par.iccMin = flag.Float64("iccmin",
		0.4,
		`minimum ICC for a metabolite to be retained.
Metabolites at exactly the threshold are retained.`)
	version := flag.Bool("version", false,
		`Show software version`)
	verbose := flag.Bool("verbose", false,
		`Print more verbose progress information`)
	quiet := flag.Bool("quiet", false,
		`Don't print any output except for errors`)
	flag.Usage = usage
	flag.Parse()
	if *version {
		fmt.Fprintf(os.Stderr, "%s version %s\n", progName, progVersion)
		return
	}
	if *verbose {
		par.verbosity = infoVerbose
	}
	if *quiet {
		par.verbosity = infoSilent
	}
	par.args = flag.Args()
	// Check if debug output should be enabled
	par.debug = os.Getenv("QCDRIFT_DEBUG") == `1`

	sanitizeParams(&par)
	switch *par.stage {
	case 1:
		runCorrection(par)
	case 2:
		runMetrics(par)
	default:
		runAll(par)
	}
}

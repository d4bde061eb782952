// This file contains code to help debugging, and is
// separated in from the rest in order not to litter
// the main code with debugging stuff

package main

import (
	"flag"
	"fmt"
	"strings"

	"github.com/524D/qcdrift/internal/correct"
)

var debugBatchList *string // Print debug output for given batches

func init() {
	debugBatchList = flag.String("debug", "",
		"Print fit debug output for given `batches` (comma separated, or \"all\")")
}

func debugBatchWanted(batch string) bool {
	if *debugBatchList == `all` {
		return true
	}
	for _, b := range strings.Split(*debugBatchList, `,`) {
		if strings.TrimSpace(b) == batch {
			return true
		}
	}
	return false
}

// debugLogSmoothing prints the automatically selected smoothing parameter
// per batch/metabolite, and the per-candidate cross validation errors when
// they were recorded (QCDRIFT_DEBUG=1).
func debugLogSmoothing(res correct.Result) {
	if *debugBatchList == `` {
		return
	}
	cands := correct.SmoothingCandidates()
	for _, choice := range res.Smoothing {
		if !debugBatchWanted(choice.Batch) {
			continue
		}
		fmt.Printf("batch:%s metabolite:%s p:%g\n",
			choice.Batch, choice.Metabolite, choice.P)
		for ci, cv := range choice.CVErr {
			sel := ' '
			if cands[ci] == choice.P {
				sel = '*'
			}
			fmt.Printf("  p=%-22g cv_err=%e %c\n", cands[ci], cv, sel)
		}
	}
}

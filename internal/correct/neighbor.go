package correct

import "sort"

// qcRef is one QC injection of a batch, used as a drift reference.
type qcRef struct {
	row      int // index into the matrix rows
	runOrder int
}

// nearestQC returns the n references closest to runOrder by absolute run
// order difference, ties broken toward the smaller run order. refs must be
// sorted ascending by run order. A reference whose row index equals exclude
// is skipped (pass -1 to keep all). The caller guarantees that enough
// references remain.
func nearestQC(refs []qcRef, runOrder, n, exclude int) []qcRef {
	out := make([]qcRef, 0, n)

	// lo walks left, hi walks right from the insertion point.
	hi := sort.Search(len(refs), func(i int) bool {
		return refs[i].runOrder >= runOrder
	})
	lo := hi - 1
	for len(out) < n {
		for lo >= 0 && refs[lo].row == exclude {
			lo--
		}
		for hi < len(refs) && refs[hi].row == exclude {
			hi++
		}
		switch {
		case lo < 0 && hi >= len(refs):
			return out // fewer refs than requested; guarded by caller
		case hi >= len(refs):
			out = append(out, refs[lo])
			lo--
		case lo < 0:
			out = append(out, refs[hi])
			hi++
		case runOrder-refs[lo].runOrder <= refs[hi].runOrder-runOrder:
			// <= prefers the left (smaller run order) reference on ties
			out = append(out, refs[lo])
			lo--
		default:
			out = append(out, refs[hi])
			hi++
		}
	}
	return out
}

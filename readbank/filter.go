// Package readbank adapts the teacher's FASTQ scanning machinery
// (encoding/fastq) into the read-acceptance and multi-dataset iteration
// components the count-aggregation engine consumes. Filter's per-base
// counting is grounded on fusion/util.go's countACGTN/IsLowComplexity,
// generalized from a two-largest-bucket low-complexity test into a full
// Shannon-entropy computation.
package readbank

import "math"

// acgtnIndex maps a base byte to its bucket in a [5]int count, the same
// table shape fusion/util.go builds, with N folded in as bucket 4.
var acgtnIndex [256]int

func init() {
	for i := range acgtnIndex {
		acgtnIndex[i] = 4
	}
	acgtnIndex['A'], acgtnIndex['a'] = 0, 0
	acgtnIndex['C'], acgtnIndex['c'] = 1, 1
	acgtnIndex['G'], acgtnIndex['g'] = 2, 2
	acgtnIndex['T'], acgtnIndex['t'] = 3, 3
}

func countACGTN(seq string) [5]int {
	var counts [5]int
	for i := 0; i < len(seq); i++ {
		counts[acgtnIndex[seq[i]]]++
	}
	return counts
}

// shannonIndex returns the base-2 Shannon entropy of seq's {A,C,G,T,N}
// frequency distribution. An empty read, or one composed of a single
// letter, has index 0.
func shannonIndex(seq string) float64 {
	if len(seq) == 0 {
		return 0
	}
	counts := countACGTN(seq)
	n := float64(len(seq))
	var h float64
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := float64(c) / n
		h -= p * math.Log2(p)
	}
	return h
}

// Filter is the SequenceFilter: a side-effect-free predicate over a read.
// The zero value accepts every read.
type Filter struct {
	// MinReadSize rejects reads shorter than this many bases. Zero
	// disables the check.
	MinReadSize int
	// MinShannonIndex rejects reads whose base-composition entropy falls
	// below this threshold. Zero disables the check.
	MinShannonIndex float64
}

// Accept reports whether seq passes the filter. It never errors and has
// no side effects.
func (f Filter) Accept(seq string) bool {
	if f.MinReadSize > 0 && len(seq) < f.MinReadSize {
		return false
	}
	if f.MinShannonIndex > 0 && shannonIndex(seq) < f.MinShannonIndex {
		return false
	}
	return true
}

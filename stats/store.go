// Package stats implements the StatisticsStore: the additive sufficient
// statistics that the count-aggregation engine accumulates and that
// package distance later turns into distance matrices. It is grounded on
// the per-bank/merge/print idiom of markduplicates.Metrics and
// MetricsCollection in the teacher codebase, generalized from a single
// flat per-library record to the dense per-pair matrices the ecological
// distances need.
package stats

import (
	"fmt"
	"io"

	"github.com/grailbio/simka/errs"
)

// Store is the StatisticsStore: every field that every supported
// distance measure is a closed-form function of. All fields are
// exported so package distance can read them directly and package
// persist can serialize them in the fixed order of the wire format.
type Store struct {
	NbBanks                 int
	ComputeSimpleDistances  bool
	ComputeComplexDistances bool

	NbKmers         uint64
	NbDistinctKmers uint64
	NbSolidKmers    uint64
	NbErroneousKmers uint64
	NbSharedKmers   uint64
	TotalReads      uint64

	// Per-bank vectors, length NbBanks.
	DatasetNbReads              []uint64
	NbSolidDistinctKmersPerBank []uint64
	NbSolidKmersPerBank         []uint64
	NbKmersPerBank              []uint64
	ChordSqrtN2                 []float64

	// Symmetric pair storage, length NbBanks*(NbBanks+1)/2, indexed via
	// SymIndex.
	MatrixNbDistinctSharedKmers []uint64
	BrayCurtisNumerator         []uint64

	// Asymmetric NbBanks x NbBanks matrices (row-major; see SharedKmers/
	// AddSharedKmers below).
	MatrixNbSharedKmers []uint64

	// Simple-block matrices (only allocated when ComputeSimpleDistances).
	ChordNiNj         []float64
	HellingerSqrtNiNj []float64
	KulczynskiMinNiNj []float64

	// Complex-block matrices (only allocated when ComputeComplexDistances).
	Canberra         []float64
	WhittakerMinNiNj []float64
	KullbackLeibler  []float64
}

// SymIndex computes sym(i,j) = j + (N-1)*i - i*(i-1)/2 for i<=j, the
// packed index into the symmetric NbBanks*(NbBanks+1)/2 arrays. It
// accepts i,j in either order.
func SymIndex(n, i, j int) int {
	if i > j {
		i, j = j, i
	}
	return j + (n-1)*i - i*(i-1)/2
}

// SymSize returns the number of entries a symmetric pair array holds for
// n banks: N*(N+1)/2.
func SymSize(n int) int { return n * (n + 1) / 2 }

// New zero-initializes a Store for nbBanks datasets.
func New(nbBanks int, computeSimple, computeComplex bool) *Store {
	n2 := nbBanks * nbBanks
	s := &Store{
		NbBanks:                     nbBanks,
		ComputeSimpleDistances:      computeSimple,
		ComputeComplexDistances:     computeComplex,
		DatasetNbReads:              make([]uint64, nbBanks),
		NbSolidDistinctKmersPerBank: make([]uint64, nbBanks),
		NbSolidKmersPerBank:         make([]uint64, nbBanks),
		NbKmersPerBank:              make([]uint64, nbBanks),
		ChordSqrtN2:                 make([]float64, nbBanks),
		MatrixNbDistinctSharedKmers: make([]uint64, SymSize(nbBanks)),
		BrayCurtisNumerator:         make([]uint64, SymSize(nbBanks)),
		MatrixNbSharedKmers:         make([]uint64, n2),
	}
	if computeSimple {
		s.ChordNiNj = make([]float64, n2)
		s.HellingerSqrtNiNj = make([]float64, n2)
		s.KulczynskiMinNiNj = make([]float64, n2)
	}
	if computeComplex {
		s.Canberra = make([]float64, n2)
		s.WhittakerMinNiNj = make([]float64, n2)
		s.KullbackLeibler = make([]float64, n2)
	}
	return s
}

// idx returns the offset of m[i][j] in a row-major NbBanks x NbBanks matrix.
func (s *Store) idx(i, j int) int { return i*s.NbBanks + j }

// SharedKmers returns MatrixNbSharedKmers[i][j].
func (s *Store) SharedKmers(i, j int) uint64 { return s.MatrixNbSharedKmers[s.idx(i, j)] }

// AddSharedKmers adds delta to MatrixNbSharedKmers[i][j].
func (s *Store) AddSharedKmers(i, j int, delta uint64) { s.MatrixNbSharedKmers[s.idx(i, j)] += delta }

func mergeU64(dst, src []uint64) { for i := range dst { dst[i] += src[i] } }
func mergeF64(dst, src []float64) { for i := range dst { dst[i] += src[i] } }

// Merge adds other's field values into s, field-wise. Both stores must
// share NbBanks and feature flags; otherwise a *errs.Error of kind
// errs.Config is returned (ErrSizeMismatch / ErrFlagMismatch wrapped).
//
// Merge is commutative and associative: it implements the commutative
// monoid of testable-property 1, with New(...) as the identity.
func (s *Store) Merge(other *Store) error {
	if s.NbBanks != other.NbBanks {
		return errs.New(errs.Config, "Merge: bank count mismatch", errs.ErrSizeMismatch)
	}
	if s.ComputeSimpleDistances != other.ComputeSimpleDistances ||
		s.ComputeComplexDistances != other.ComputeComplexDistances {
		return errs.New(errs.Config, "Merge: feature flag mismatch", errs.ErrFlagMismatch)
	}

	s.NbKmers += other.NbKmers
	s.NbDistinctKmers += other.NbDistinctKmers
	s.NbSolidKmers += other.NbSolidKmers
	s.NbErroneousKmers += other.NbErroneousKmers
	s.NbSharedKmers += other.NbSharedKmers
	s.TotalReads += other.TotalReads

	mergeU64(s.DatasetNbReads, other.DatasetNbReads)
	mergeU64(s.NbSolidDistinctKmersPerBank, other.NbSolidDistinctKmersPerBank)
	mergeU64(s.NbSolidKmersPerBank, other.NbSolidKmersPerBank)
	mergeU64(s.NbKmersPerBank, other.NbKmersPerBank)
	mergeF64(s.ChordSqrtN2, other.ChordSqrtN2)

	mergeU64(s.MatrixNbDistinctSharedKmers, other.MatrixNbDistinctSharedKmers)
	mergeU64(s.BrayCurtisNumerator, other.BrayCurtisNumerator)
	mergeU64(s.MatrixNbSharedKmers, other.MatrixNbSharedKmers)

	if s.ComputeSimpleDistances {
		mergeF64(s.ChordNiNj, other.ChordNiNj)
		mergeF64(s.HellingerSqrtNiNj, other.HellingerSqrtNiNj)
		mergeF64(s.KulczynskiMinNiNj, other.KulczynskiMinNiNj)
	}
	if s.ComputeComplexDistances {
		mergeF64(s.Canberra, other.Canberra)
		mergeF64(s.WhittakerMinNiNj, other.WhittakerMinNiNj)
		mergeF64(s.KullbackLeibler, other.KullbackLeibler)
	}
	return nil
}

// Print writes a diagnostic summary of read and k-mer totals, modeled on
// SimkaStatistics::print() from the original implementation: total/
// min/max/mean reads across banks, plus distinct/solid k-mer counts.
func (s *Store) Print(w io.Writer) {
	var total, min, max uint64
	min = ^uint64(0)
	for _, r := range s.DatasetNbReads {
		total += r
		if r < min {
			min = r
		}
		if r > max {
			max = r
		}
	}
	var mean uint64
	if s.NbBanks > 0 {
		mean = total / uint64(s.NbBanks)
	}
	fmt.Fprintf(w, "Stats\n")
	fmt.Fprintf(w, "\tReads\n")
	fmt.Fprintf(w, "\t\tTotal: %d\n", total)
	fmt.Fprintf(w, "\t\tMin:   %d\n", min)
	fmt.Fprintf(w, "\t\tMax:   %d\n", max)
	fmt.Fprintf(w, "\t\tMean:  %d\n", mean)
	fmt.Fprintf(w, "\tKmers\n")
	fmt.Fprintf(w, "\t\tTotal:    %d\n", s.NbKmers)
	fmt.Fprintf(w, "\t\tDistinct: %d\n", s.NbDistinctKmers)
	fmt.Fprintf(w, "\t\tSolid:    %d\n", s.NbSolidKmers)
	fmt.Fprintf(w, "\t\tErroneous: %d\n", s.NbErroneousKmers)
}

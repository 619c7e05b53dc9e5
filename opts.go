// Package simka implements the k-mer-based ecological distance engine:
// it consumes per-partition (kmer, counts[N]) streams from an upstream
// k-mer counter, accumulates additive sufficient statistics per dataset
// pair, and derives the full family of ecological distance matrices from
// them. Package layout, options, and orchestration follow fusion.Opts
// and cmd/bio-fusion/main.go from the teacher codebase.
package simka

import "github.com/grailbio/simka/kmer"

// Opts configures a Run.
type Opts struct {
	// Parallelism is the number of concurrent per-partition workers.
	Parallelism int
	// KmerLength is the length, in bases, of the k-mers the upstream
	// counter produces.
	KmerLength int
	// MinimiserLength is the length of the minimiser sub-word MinimiserModel
	// derives from each k-mer, used to key MinimiserTopK when χ² filtering
	// is enabled.
	MinimiserLength int
	// UseChiSquareFiltering selects Mode 1 (χ² top-K selection) over Mode 2
	// (direct accumulation) for every partition's CountProcessor.
	UseChiSquareFiltering bool
	// TopKCapacity is the MinimiserTopK capacity per partition when
	// χ² filtering is enabled.
	TopKCapacity int
	// ComputeSimpleDistances enables the chord/Hellinger/Kulczynski
	// abundance family (requires per-dataset Σcounts² from the sidecar).
	ComputeSimpleDistances bool
	// ComputeComplexDistances enables the Whittaker/Canberra/
	// Kullback-Leibler abundance family.
	ComputeComplexDistances bool
	// MinReadSize and MinShannonIndex configure the SequenceFilter applied
	// before k-mer counting's upstream input (only relevant to callers
	// that route raw reads through readbank; the count-aggregation engine
	// itself only consumes already-counted (kmer, counts) records).
	MinReadSize     int
	MinShannonIndex float64
	// MaxReadsPerDataset caps reads considered per dataset; 0 = unlimited.
	MaxReadsPerDataset uint64
	// SampleRate, if in (0,1), retains each filter-accepted read
	// independently at random with this probability before
	// MaxReadsPerDataset is applied, for normalising sequencing effort
	// across datasets of very different depth. 0 (the zero value) means
	// "unset", treated as 1 (no downsampling).
	SampleRate float64
	// TmpDir is the root of the per-dataset sidecar directory
	// (<TmpDir>/count_synchro/<name>.ok).
	TmpDir string
	// OutDir is where partition selected-kmer files and final distance
	// matrices are written.
	OutDir string
}

// DefaultOpts mirrors the original Simka defaults: an 8-base minimiser,
// a top-K capacity of 1000, and both distance families enabled.
var DefaultOpts = Opts{
	Parallelism:             4,
	KmerLength:              21,
	MinimiserLength:         8,
	UseChiSquareFiltering:   true,
	TopKCapacity:            1000,
	ComputeSimpleDistances:  true,
	ComputeComplexDistances: true,
}

// DefaultMinimiserModel is the minimiser derivation Opts.MinimiserLength
// parameterises; Run always uses it to score χ² top-K candidates.
func (o Opts) DefaultMinimiserModel() kmer.Model {
	return kmer.DefaultModel{Len: o.MinimiserLength}
}

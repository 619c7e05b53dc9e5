package process_test

import (
	"bytes"
	"testing"

	"gonum.org/v1/gonum/stat"

	"github.com/grailbio/simka/kmer"
	"github.com/grailbio/simka/process"
	"github.com/grailbio/simka/stats"
	"github.com/grailbio/testutil/expect"
)

func directProcessor(n int, simple, complex_ bool, nbSolidKmersPerBank []uint64) *process.Processor {
	s := stats.New(n, simple, complex_)
	return process.New(process.Config{
		Mode:                    process.ModeDirect,
		ComputeSimpleDistances:  simple,
		ComputeComplexDistances: complex_,
		NbSolidKmersPerBank:     nbSolidKmersPerBank,
	}, s)
}

// TestScenarioS1IdenticalDatasets reproduces the spec's two-identical-
// datasets scenario: AAA:(3,3), AAC:(1,1), read counts (10,10).
func TestScenarioS1IdenticalDatasets(t *testing.T) {
	p := directProcessor(2, false, false, nil)
	expect.NoError(t, p.Process(kmer.CountRecord{Counts: []uint64{3, 3}}))
	expect.NoError(t, p.Process(kmer.CountRecord{Counts: []uint64{1, 1}}))

	s := p.Store()
	expect.EQ(t, s.BrayCurtisNumerator[stats.SymIndex(2, 0, 1)], uint64(4))
	expect.EQ(t, s.MatrixNbDistinctSharedKmers[stats.SymIndex(2, 0, 1)], uint64(2))
	expect.EQ(t, s.SharedKmers(0, 1), uint64(4))
	expect.EQ(t, s.SharedKmers(1, 0), uint64(4))
}

// TestScenarioS3HalfOverlap reproduces the spec's half-overlap scenario:
// AAA:(2,2), AAC:(2,0), AAG:(0,2), N_i=N_j=4.
func TestScenarioS3HalfOverlap(t *testing.T) {
	p := directProcessor(2, false, false, nil)
	expect.NoError(t, p.Process(kmer.CountRecord{Counts: []uint64{2, 2}}))
	expect.NoError(t, p.Process(kmer.CountRecord{Counts: []uint64{2, 0}}))
	expect.NoError(t, p.Process(kmer.CountRecord{Counts: []uint64{0, 2}}))

	s := p.Store()
	expect.EQ(t, s.BrayCurtisNumerator[stats.SymIndex(2, 0, 1)], uint64(2))
	expect.EQ(t, s.MatrixNbDistinctSharedKmers[stats.SymIndex(2, 0, 1)], uint64(1))
	expect.EQ(t, s.SharedKmers(0, 1), uint64(2))
	expect.EQ(t, s.SharedKmers(1, 0), uint64(2))
}

// TestScenarioS6AsymmetricAccumulation reproduces the spec's asymmetric
// Simka-Jaccard accumulation scenario directly at the processor level.
func TestScenarioS6AsymmetricAccumulation(t *testing.T) {
	p := directProcessor(2, false, false, nil)
	expect.NoError(t, p.Process(kmer.CountRecord{Counts: []uint64{3, 7}}))

	s := p.Store()
	expect.EQ(t, s.SharedKmers(0, 1), uint64(3))
	expect.EQ(t, s.SharedKmers(1, 0), uint64(7))
}

func TestChiSquareMatchesGonumChiSquareTest(t *testing.T) {
	counts := []uint64{7, 2, 1}
	reads := []uint64{100, 50, 50}
	var total uint64
	var totalReads uint64
	for i := range counts {
		total += counts[i]
		totalReads += reads[i]
	}

	got := process.ChiSquare(counts, reads, totalReads)

	observed := make([]float64, len(counts))
	expected := make([]float64, len(counts))
	for i := range counts {
		observed[i] = float64(counts[i])
		expected[i] = float64(total) * float64(reads[i]) / float64(totalReads)
	}
	want := stat.ChiSquare(observed, expected)

	if diff := got - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("ChiSquare = %v, gonum stat.ChiSquare = %v", got, want)
	}
}

func TestChiSquareZeroTotalReadsYieldsZero(t *testing.T) {
	expect.EQ(t, process.ChiSquare([]uint64{1, 2}, []uint64{5, 5}, 0), 0.0)
}

func TestChiSquareUniformSplitIsZero(t *testing.T) {
	got := process.ChiSquare([]uint64{5, 5}, []uint64{10, 10}, 20)
	expect.True(t, got < 1e-9 && got > -1e-9)
}

func TestChiSquareTopKModeDefersAccumulationToEnd(t *testing.T) {
	s := stats.New(2, false, false)
	p := process.New(process.Config{
		Mode:           process.ModeChiSquareTopK,
		TopKCapacity:   10,
		MinimiserModel: kmer.DefaultModel{Len: 4},
		KmerLength:     8,
		DatasetNbReads: []uint64{10, 10},
		TotalReads:     20,
	}, s)

	rec := kmer.CountRecord{Kmer: kmer.Kmer(0xAABB), Counts: []uint64{3, 7}}
	expect.NoError(t, p.Process(rec))
	// Not yet accumulated.
	expect.EQ(t, s.SharedKmers(0, 1), uint64(0))

	var buf bytes.Buffer
	expect.NoError(t, p.End(&buf))
	expect.EQ(t, s.SharedKmers(0, 1), uint64(3))
	expect.EQ(t, s.SharedKmers(1, 0), uint64(7))
	expect.EQ(t, buf.String(), "3 7\n")
}

func TestComplexBlockKullbackLeiblerZeroWhenIdentical(t *testing.T) {
	p := directProcessor(2, false, true, []uint64{10, 10})
	expect.NoError(t, p.Process(kmer.CountRecord{Counts: []uint64{5, 5}}))
	s := p.Store()
	got := s.KullbackLeibler[0*2+1]
	expect.True(t, got > -1e-9 && got < 1e-9)
}

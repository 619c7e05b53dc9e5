package distance_test

import (
	"testing"

	"github.com/grailbio/simka/distance"
	"github.com/grailbio/simka/stats"
	"github.com/grailbio/testutil/expect"
)

func TestSelfDistanceIsZero(t *testing.T) {
	n := 3
	s := stats.New(n, true, true)
	for i := 0; i < n; i++ {
		s.NbSolidDistinctKmersPerBank[i] = 100
		s.NbSolidKmersPerBank[i] = 500
	}
	e := distance.New(s)
	for name, m := range e.All() {
		for i := 0; i < n; i++ {
			expect.EQ(t, m.At(i, i), 0.0)
			_ = name
		}
	}
}

func TestPairsAreSymmetric(t *testing.T) {
	n := 4
	s := stats.New(n, true, true)
	for i := 0; i < n; i++ {
		s.NbSolidDistinctKmersPerBank[i] = uint64(50 + i*10)
		s.NbSolidKmersPerBank[i] = uint64(200 + i*20)
	}
	s.MatrixNbDistinctSharedKmers[stats.SymIndex(n, 1, 2)] = 20
	s.BrayCurtisNumerator[stats.SymIndex(n, 1, 2)] = 30
	s.AddSharedKmers(1, 2, 15)
	s.AddSharedKmers(2, 1, 12)

	e := distance.New(s)
	for name, m := range e.All() {
		if name == "presenceAbsence_simka-jaccard_asym" || name == "abundance_simka-jaccard_asym" {
			continue // direction-sensitive by design
		}
		expect.EQ(t, m.At(1, 2), m.At(2, 1))
	}
}

func TestBrayCurtisJaccardRelationship(t *testing.T) {
	n := 2
	s := stats.New(n, false, false)
	s.NbSolidKmersPerBank[0] = 100
	s.NbSolidKmersPerBank[1] = 120
	s.BrayCurtisNumerator[stats.SymIndex(n, 0, 1)] = 40

	e := distance.New(s)
	bcM, ok := e.Matrix("abundance_braycurtis")
	expect.True(t, ok)
	jM, ok := e.Matrix("abundance_jaccard_from_braycurtis")
	expect.True(t, ok)

	bc := bcM.At(0, 1)
	j := jM.At(0, 1)
	want := 2 * bc / (1 + bc)
	expect.True(t, j == want)
}

func TestZeroDenominatorFallsBackInsteadOfNaN(t *testing.T) {
	n := 2
	s := stats.New(n, true, true)
	e := distance.New(s)
	for name, m := range e.All() {
		v := m.At(0, 1)
		expect.True(t, v == v) // not NaN
		_ = name
	}

	bcM, ok := e.Matrix("abundance_braycurtis")
	expect.True(t, ok)
	expect.EQ(t, bcM.At(0, 1), 1.0)

	jM, ok := e.Matrix("abundance_jaccard_from_braycurtis")
	expect.True(t, ok)
	expect.EQ(t, jM.At(0, 1), 1.0)
}

func TestAsymmetricSimkaJaccardCanDiffer(t *testing.T) {
	n := 2
	s := stats.New(n, false, false)
	s.NbSolidDistinctKmersPerBank[0] = 50
	s.NbSolidDistinctKmersPerBank[1] = 200
	s.MatrixNbDistinctSharedKmers[stats.SymIndex(n, 0, 1)] = 40

	e := distance.New(s)
	m, ok := e.Matrix("presenceAbsence_simka-jaccard_asym")
	expect.True(t, ok)
	expect.True(t, m.At(0, 1) != m.At(1, 0))
}

package stats_test

import (
	"strings"
	"testing"

	"github.com/grailbio/simka/stats"
	"github.com/grailbio/testutil/expect"
)

func TestSymIndexOrderIndependent(t *testing.T) {
	expect.EQ(t, stats.SymIndex(4, 1, 2), stats.SymIndex(4, 2, 1))
	expect.EQ(t, stats.SymIndex(4, 0, 0), 0)
}

func TestSymIndexCoversAllPairs(t *testing.T) {
	n := 5
	seen := map[int]bool{}
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			idx := stats.SymIndex(n, i, j)
			expect.True(t, idx >= 0 && idx < n*(n+1)/2)
			seen[idx] = true
		}
	}
	expect.EQ(t, len(seen), n*(n+1)/2)
}

func TestMergeIsCommutative(t *testing.T) {
	n := 3
	a := stats.New(n, true, true)
	b := stats.New(n, true, true)

	a.NbKmers = 10
	a.DatasetNbReads[0] = 5
	a.AddSharedKmers(0, 1, 3)
	a.MatrixNbDistinctSharedKmers[stats.SymIndex(n, 0, 1)] = 2
	a.ChordNiNj[0*n+1] = 1.5

	b.NbKmers = 20
	b.DatasetNbReads[0] = 7
	b.AddSharedKmers(0, 1, 4)
	b.MatrixNbDistinctSharedKmers[stats.SymIndex(n, 0, 1)] = 1
	b.ChordNiNj[0*n+1] = 2.5

	ab := stats.New(n, true, true)
	expect.NoError(t, ab.Merge(a))
	expect.NoError(t, ab.Merge(b))

	ba := stats.New(n, true, true)
	expect.NoError(t, ba.Merge(b))
	expect.NoError(t, ba.Merge(a))

	expect.EQ(t, ab.NbKmers, ba.NbKmers)
	expect.EQ(t, ab.DatasetNbReads[0], ba.DatasetNbReads[0])
	expect.EQ(t, ab.SharedKmers(0, 1), ba.SharedKmers(0, 1))
	expect.EQ(t, ab.ChordNiNj[0*n+1], ba.ChordNiNj[0*n+1])
}

func TestMergeWithZeroIsIdentity(t *testing.T) {
	n := 2
	s := stats.New(n, false, false)
	s.NbKmers = 42
	s.DatasetNbReads[1] = 9

	zero := stats.New(n, false, false)
	merged := stats.New(n, false, false)
	expect.NoError(t, merged.Merge(s))
	expect.NoError(t, merged.Merge(zero))

	expect.EQ(t, merged.NbKmers, s.NbKmers)
	expect.EQ(t, merged.DatasetNbReads[1], s.DatasetNbReads[1])
}

func TestMergeRejectsFlagMismatch(t *testing.T) {
	a := stats.New(2, true, false)
	b := stats.New(2, false, false)
	err := a.Merge(b)
	expect.True(t, strings.Contains(err.Error(), "feature flag mismatch"))
}

func TestMergeRejectsSizeMismatch(t *testing.T) {
	a := stats.New(2, false, false)
	b := stats.New(3, false, false)
	err := a.Merge(b)
	expect.True(t, strings.Contains(err.Error(), "bank count mismatch"))
}

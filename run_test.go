package simka_test

import (
	"os"
	"testing"

	"github.com/grailbio/simka"
	"github.com/grailbio/simka/kmer"
	"github.com/grailbio/testutil/expect"
)

// sliceSource is a CountSource backed by a fixed in-memory slice, letting
// tests drive Run without an upstream k-mer counter.
type sliceSource struct {
	records []kmer.CountRecord
	pos     int
}

func (s *sliceSource) Next() (kmer.CountRecord, bool) {
	if s.pos >= len(s.records) {
		return kmer.CountRecord{}, false
	}
	r := s.records[s.pos]
	s.pos++
	return r, true
}

func (s *sliceSource) Err() error { return nil }

func writeSidecar(t *testing.T, tmpDir, name string, nbReads, nbSolidDistinct, nbSolid, sumSq uint64) {
	t.Helper()
	dir := tmpDir + "/count_synchro"
	expect.NoError(t, os.MkdirAll(dir, 0o755))
	f, err := os.Create(dir + "/" + name + ".ok")
	expect.NoError(t, err)
	defer f.Close()
	_, err = f.WriteString(
		uitoa(nbReads) + "\n" + uitoa(nbSolidDistinct) + "\n" + uitoa(nbSolid) + "\n" + uitoa(sumSq) + "\n")
	expect.NoError(t, err)
}

func uitoa(v uint64) string {
	if v == 0 {
		return "0"
	}
	var digits []byte
	for v > 0 {
		digits = append([]byte{byte('0' + v%10)}, digits...)
		v /= 10
	}
	return string(digits)
}

func TestRunEndToEndProducesMatricesAndStore(t *testing.T) {
	tmpDir := t.TempDir()
	outDir := t.TempDir()

	writeSidecar(t, tmpDir, "a", 10, 3, 6, 20)
	writeSidecar(t, tmpDir, "b", 10, 3, 6, 20)

	datasets := []simka.Dataset{
		{Index: 0, Name: "a"},
		{Index: 1, Name: "b"},
	}

	source := &sliceSource{records: []kmer.CountRecord{
		{Kmer: kmer.Kmer(1), Counts: []uint64{3, 3}},
		{Kmer: kmer.Kmer(2), Counts: []uint64{1, 1}},
	}}

	opts := simka.DefaultOpts
	opts.Parallelism = 1
	opts.UseChiSquareFiltering = false
	opts.ComputeSimpleDistances = false
	opts.ComputeComplexDistances = false
	opts.TmpDir = tmpDir
	opts.OutDir = outDir

	result, err := simka.Run(datasets, []simka.CountSource{source}, opts)
	expect.NoError(t, err)
	expect.EQ(t, result.Store.NbBanks, 2)
	expect.True(t, len(result.Matrices) > 0)

	entries, err := os.ReadDir(outDir)
	expect.NoError(t, err)
	var sawMatrix, sawSelected, sawStore bool
	for _, e := range entries {
		switch {
		case len(e.Name()) > 4 && e.Name()[:4] == "mat_":
			sawMatrix = true
		case len(e.Name()) > 7 && e.Name()[:7] == "select_":
			sawSelected = true
		case e.Name() == "statistics.bin.gz":
			sawStore = true
		}
	}
	expect.True(t, sawMatrix)
	expect.True(t, sawSelected)
	expect.True(t, sawStore)
}

func TestRunRejectsEmptyPartitionList(t *testing.T) {
	_, err := simka.Run(nil, nil, simka.DefaultOpts)
	expect.True(t, err != nil)
}

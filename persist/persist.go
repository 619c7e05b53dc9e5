// Package persist serializes StatisticsStore to and from a gzip-wrapped
// binary stream, and dumps distance.Matrix values as gzip CSV, the way
// the teacher wraps compress/gzip around structured output streams in its
// encoding/fastq test fixtures and encoding/bgzf.
package persist

import (
	"compress/gzip"
	"encoding/binary"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/grailbio/simka/distance"
	"github.com/grailbio/simka/errs"
	"github.com/grailbio/simka/stats"
)

func writeFloat64(w io.Writer, v float64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], math.Float64bits(v))
	_, err := w.Write(buf[:])
	return err
}

func writeUint64(w io.Writer, v uint64) error { return writeFloat64(w, float64(v)) }

func readFloat64(r io.Reader) (float64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.BigEndian.Uint64(buf[:])), nil
}

func readUint64(r io.Reader) (uint64, error) {
	f, err := readFloat64(r)
	return uint64(f), err
}

func writeUint64Slice(w io.Writer, s []uint64) error {
	for _, v := range s {
		if err := writeUint64(w, v); err != nil {
			return err
		}
	}
	return nil
}

func writeFloat64Slice(w io.Writer, s []float64) error {
	for _, v := range s {
		if err := writeFloat64(w, v); err != nil {
			return err
		}
	}
	return nil
}

func readUint64Slice(r io.Reader, n int) ([]uint64, error) {
	out := make([]uint64, n)
	for i := range out {
		v, err := readUint64(r)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func readFloat64Slice(r io.Reader, n int) ([]float64, error) {
	out := make([]float64, n)
	for i := range out {
		v, err := readFloat64(r)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Save writes s to w as a gzip-wrapped stream of high-precision floats,
// in the fixed field order the format specifies: feature flags, scalar
// totals, per-bank arrays, the asymmetric shared-kmer matrix, then the
// interleaved symmetric pair arrays, then the simple- and complex-block
// matrices when their feature flags are set.
func Save(w io.Writer, s *stats.Store) error {
	gz := gzip.NewWriter(w)
	if err := save(gz, s); err != nil {
		gz.Close()
		return errs.New(errs.IO, "save StatisticsStore", err)
	}
	if err := gz.Close(); err != nil {
		return errs.New(errs.IO, "save StatisticsStore", err)
	}
	return nil
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func save(w io.Writer, s *stats.Store) error {
	if err := writeFloat64(w, boolToFloat(s.ComputeSimpleDistances)); err != nil {
		return err
	}
	if err := writeFloat64(w, boolToFloat(s.ComputeComplexDistances)); err != nil {
		return err
	}
	for _, v := range []uint64{s.NbKmers, s.NbErroneousKmers, s.NbDistinctKmers, s.NbSolidKmers, s.NbSharedKmers} {
		if err := writeUint64(w, v); err != nil {
			return err
		}
	}
	for _, sl := range [][]uint64{s.NbSolidDistinctKmersPerBank, s.NbKmersPerBank, s.NbSolidKmersPerBank} {
		if err := writeUint64Slice(w, sl); err != nil {
			return err
		}
	}
	if err := writeUint64Slice(w, s.MatrixNbSharedKmers); err != nil {
		return err
	}
	sym := stats.SymSize(s.NbBanks)
	for i := 0; i < sym; i++ {
		if err := writeUint64(w, s.MatrixNbDistinctSharedKmers[i]); err != nil {
			return err
		}
		if err := writeUint64(w, s.BrayCurtisNumerator[i]); err != nil {
			return err
		}
	}
	if s.ComputeSimpleDistances {
		if err := writeFloat64Slice(w, s.ChordSqrtN2); err != nil {
			return err
		}
		for _, sl := range [][]float64{s.ChordNiNj, s.HellingerSqrtNiNj, s.KulczynskiMinNiNj} {
			if err := writeFloat64Slice(w, sl); err != nil {
				return err
			}
		}
	}
	if s.ComputeComplexDistances {
		for _, sl := range [][]float64{s.Canberra, s.WhittakerMinNiNj, s.KullbackLeibler} {
			if err := writeFloat64Slice(w, sl); err != nil {
				return err
			}
		}
	}
	return nil
}

// Load reads a Store previously written by Save. nbBanks must be supplied
// by the caller since it is not itself persisted (it is implied by the
// run configuration, matching every worker's Store having been
// constructed with the same N).
func Load(r io.Reader, nbBanks int) (*stats.Store, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, errs.New(errs.IO, "load StatisticsStore", err)
	}
	defer gz.Close()
	s, err := load(gz, nbBanks)
	if err != nil {
		return nil, errs.New(errs.IO, "load StatisticsStore", err)
	}
	return s, nil
}

func load(r io.Reader, nbBanks int) (*stats.Store, error) {
	simpleF, err := readFloat64(r)
	if err != nil {
		return nil, err
	}
	complexF, err := readFloat64(r)
	if err != nil {
		return nil, err
	}
	simple, complexOn := simpleF != 0, complexF != 0
	s := stats.New(nbBanks, simple, complexOn)

	scalars, err := readUint64Slice(r, 5)
	if err != nil {
		return nil, err
	}
	s.NbKmers, s.NbErroneousKmers, s.NbDistinctKmers, s.NbSolidKmers, s.NbSharedKmers =
		scalars[0], scalars[1], scalars[2], scalars[3], scalars[4]

	if s.NbSolidDistinctKmersPerBank, err = readUint64Slice(r, nbBanks); err != nil {
		return nil, err
	}
	if s.NbKmersPerBank, err = readUint64Slice(r, nbBanks); err != nil {
		return nil, err
	}
	if s.NbSolidKmersPerBank, err = readUint64Slice(r, nbBanks); err != nil {
		return nil, err
	}
	if s.MatrixNbSharedKmers, err = readUint64Slice(r, nbBanks*nbBanks); err != nil {
		return nil, err
	}

	sym := stats.SymSize(nbBanks)
	s.MatrixNbDistinctSharedKmers = make([]uint64, sym)
	s.BrayCurtisNumerator = make([]uint64, sym)
	for i := 0; i < sym; i++ {
		if s.MatrixNbDistinctSharedKmers[i], err = readUint64(r); err != nil {
			return nil, err
		}
		if s.BrayCurtisNumerator[i], err = readUint64(r); err != nil {
			return nil, err
		}
	}

	if simple {
		if s.ChordSqrtN2, err = readFloat64Slice(r, nbBanks); err != nil {
			return nil, err
		}
		if s.ChordNiNj, err = readFloat64Slice(r, nbBanks*nbBanks); err != nil {
			return nil, err
		}
		if s.HellingerSqrtNiNj, err = readFloat64Slice(r, nbBanks*nbBanks); err != nil {
			return nil, err
		}
		if s.KulczynskiMinNiNj, err = readFloat64Slice(r, nbBanks*nbBanks); err != nil {
			return nil, err
		}
	}
	if complexOn {
		if s.Canberra, err = readFloat64Slice(r, nbBanks*nbBanks); err != nil {
			return nil, err
		}
		if s.WhittakerMinNiNj, err = readFloat64Slice(r, nbBanks*nbBanks); err != nil {
			return nil, err
		}
		if s.KullbackLeibler, err = readFloat64Slice(r, nbBanks*nbBanks); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// MatrixPath returns the output path for a named distance matrix.
func MatrixPath(outDir, kind, name string) string {
	return filepath.Join(outDir, fmt.Sprintf("mat_%s_%s.csv.gz", kind, name))
}

// StorePath returns the output path for the gzip-wrapped binary dump of a
// run's merged StatisticsStore, written by Save and read back by Load.
func StorePath(outDir string) string {
	return filepath.Join(outDir, "statistics.bin.gz")
}

// WriteMatrixCSV gzip-writes m as a semicolon-delimited CSV to
// <outDir>/mat_<kind>_<name>.csv.gz: header row ";name_1;...;name_N",
// then one row per bank "name_i;v_1;...;v_N" with %f formatting.
func WriteMatrixCSV(outDir, kind, name string, m distance.Matrix, names []string) error {
	path := MatrixPath(outDir, kind, name)
	f, err := os.Create(path)
	if err != nil {
		return errs.New(errs.IO, "create "+path, err)
	}
	defer f.Close()
	gz := gzip.NewWriter(f)
	if err := writeMatrixCSV(gz, m, names); err != nil {
		gz.Close()
		return errs.New(errs.IO, "write "+path, err)
	}
	if err := gz.Close(); err != nil {
		return errs.New(errs.IO, "write "+path, err)
	}
	return nil
}

func writeMatrixCSV(w io.Writer, m distance.Matrix, names []string) error {
	cw := csv.NewWriter(w)
	cw.Comma = ';'
	header := append([]string{""}, names...)
	if err := cw.Write(header); err != nil {
		return errors.Wrap(err, "write matrix header")
	}
	for i, name := range names {
		row := make([]string, 0, len(names)+1)
		row = append(row, name)
		for j := range names {
			row = append(row, fmt.Sprintf("%f", m.At(i, j)))
		}
		if err := cw.Write(row); err != nil {
			return errors.Wrap(err, "write matrix row")
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flush matrix csv")
}

package readbank

import (
	"compress/gzip"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/grailbio/simka/encoding/fastq"
)

// Dataset is one named group of sub-banks a MultiIterator reads from.
// Each sub-bank is one file (single-end) or two files (paired-end,
// concatenated for filtering purposes: only sequence length/composition
// matters here, not downstream k-mer extraction, which is out of scope).
type Dataset struct {
	Name  string
	Files [][]string
}

// Read is one read emitted by a MultiIterator, annotated with the index
// of the dataset it came from.
type Read struct {
	DatasetIndex int
	Seq          string
}

type iterState int

const (
	stateAdvanceWithinSubBank iterState = iota
	stateAdvanceSubBank
	stateAdvanceDataset
	stateDone
)

// MultiIterator is the MultiDatasetReadIterator: a lazy, finite,
// single-pass sequence of filtered reads across N datasets, each with one
// or more sub-banks. It is a flat state machine -- no nested generators --
// grounded on the single-struct-with-Scan()-bool convention
// encoding/fastq.Scanner itself follows.
type MultiIterator struct {
	datasets           []Dataset
	filter             Filter
	maxReadsPerDataset uint64
	sampleRate         float64
	rng                *rand.Rand

	state             iterState
	datasetIdx        int
	subBankIdx        int
	acceptedInDataset uint64

	openFiles []io.Closer
	scanner   subBankScanner
	err       error
}

// subBankScanner abstracts over a single-end Scanner and a paired-end
// PairScanner, both of which this package only uses for their sequence
// content.
type subBankScanner interface {
	next() (seq string, ok bool)
	Err() error
}

type singleEndScanner struct{ s *fastq.Scanner }

func (s singleEndScanner) next() (string, bool) {
	var r fastq.Read
	if !s.s.Scan(&r) {
		return "", false
	}
	return r.Seq, true
}
func (s singleEndScanner) Err() error { return s.s.Err() }

type pairedEndScanner struct{ s *fastq.PairScanner }

func (s pairedEndScanner) next() (string, bool) {
	var r1, r2 fastq.Read
	if !s.s.Scan(&r1, &r2) {
		return "", false
	}
	return r1.Seq + r2.Seq, true
}
func (s pairedEndScanner) Err() error { return s.s.Err() }

// NewMultiIterator constructs a MultiIterator over datasets. A
// maxReadsPerDataset of 0 means unlimited.
func NewMultiIterator(datasets []Dataset, filter Filter, maxReadsPerDataset uint64) *MultiIterator {
	return &MultiIterator{
		datasets:           datasets,
		filter:             filter,
		maxReadsPerDataset: maxReadsPerDataset,
		sampleRate:         1,
		state:              stateAdvanceDataset,
	}
}

// WithSampleRate configures it to retain each read independently with
// probability rate (0 < rate < 1), in addition to whatever Filter already
// rejects. Sampling uses a fixed seed, so a given (datasets, rate) pair
// always retains the same reads -- adapted from the single
// rand.NewSource(0) the teacher's encoding/fastq.Downsample used to make
// paired-file subsampling reproducible, generalized here to a single
// read-level predicate instead of a file-to-file copy.
func (it *MultiIterator) WithSampleRate(rate float64) *MultiIterator {
	it.sampleRate = rate
	it.rng = rand.New(rand.NewSource(0))
	return it
}

func openMaybeGzip(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open "+path)
	}
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, errors.Wrap(err, "gunzip "+path)
		}
		return struct {
			io.Reader
			io.Closer
		}{gz, closerFunc(func() error { gz.Close(); return f.Close() })}, nil
	}
	return f, nil
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func (it *MultiIterator) closeOpenFiles() {
	for _, c := range it.openFiles {
		c.Close()
	}
	it.openFiles = nil
}

func (it *MultiIterator) openSubBank(files []string) error {
	it.closeOpenFiles()
	switch len(files) {
	case 1:
		r, err := openMaybeGzip(files[0])
		if err != nil {
			return err
		}
		it.openFiles = []io.Closer{r}
		it.scanner = singleEndScanner{fastq.NewScanner(r, fastq.Seq)}
	case 2:
		r1, err := openMaybeGzip(files[0])
		if err != nil {
			return err
		}
		r2, err := openMaybeGzip(files[1])
		if err != nil {
			r1.Close()
			return err
		}
		it.openFiles = []io.Closer{r1, r2}
		it.scanner = pairedEndScanner{fastq.NewPairScanner(r1, r2, fastq.Seq)}
	default:
		return errors.Errorf("sub-bank must have 1 or 2 files, got %d", len(files))
	}
	return nil
}

// Scan advances to the next read that passes the filter, filling *out.
// It returns false when the sequence is exhausted or a fatal read error
// occurred (distinguishable via Err).
func (it *MultiIterator) Scan(out *Read) bool {
	for {
		switch it.state {
		case stateDone:
			return false

		case stateAdvanceDataset:
			if it.datasetIdx >= len(it.datasets) {
				it.state = stateDone
				it.closeOpenFiles()
				continue
			}
			it.subBankIdx = 0
			it.acceptedInDataset = 0
			it.state = stateAdvanceSubBank

		case stateAdvanceSubBank:
			banks := it.datasets[it.datasetIdx].Files
			if it.subBankIdx >= len(banks) {
				it.datasetIdx++
				it.state = stateAdvanceDataset
				continue
			}
			if err := it.openSubBank(banks[it.subBankIdx]); err != nil {
				it.err = err
				it.state = stateDone
				return false
			}
			it.state = stateAdvanceWithinSubBank

		case stateAdvanceWithinSubBank:
			if it.maxReadsPerDataset > 0 && it.acceptedInDataset >= it.maxReadsPerDataset {
				it.subBankIdx = len(it.datasets[it.datasetIdx].Files)
				it.state = stateAdvanceSubBank
				continue
			}
			seq, ok := it.scanner.next()
			if !ok {
				if err := it.scanner.Err(); err != nil {
					it.err = errors.Wrap(err, "read error")
					it.state = stateDone
					return false
				}
				it.subBankIdx++
				it.state = stateAdvanceSubBank
				continue
			}
			if !it.filter.Accept(seq) {
				continue
			}
			if it.sampleRate < 1 && it.rng.Float64() >= it.sampleRate {
				continue
			}
			it.acceptedInDataset++
			out.DatasetIndex = it.datasetIdx
			out.Seq = seq
			return true
		}
	}
}

// Err returns the fatal read error that stopped iteration, if any.
// Filter rejects are not errors.
func (it *MultiIterator) Err() error { return it.err }

// SubBankPath is a small helper mirroring how upstream callers typically
// name FASTQ inputs by directory + basename; useful in tests and CLI flag
// parsing to build a Dataset's Files.
func SubBankPath(dir, name string) string { return filepath.Join(dir, name) }

package process

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/grailbio/simka/errs"
	"github.com/grailbio/simka/kmer"
)

// TextCountSource reads a partition's (kmer, counts[N]) stream from the
// line-oriented text format an upstream k-mer counter emits: one record
// per line, a decimal k-mer token followed by nbBanks space-separated
// decimal counts. It satisfies simka.CountSource structurally (Next/Err),
// without importing the root package.
type TextCountSource struct {
	scanner *bufio.Scanner
	nbBanks int
	err     error
}

// NewTextCountSource constructs a TextCountSource reading from r, each
// record expected to carry exactly nbBanks counts.
func NewTextCountSource(r io.Reader, nbBanks int) *TextCountSource {
	return &TextCountSource{scanner: bufio.NewScanner(r), nbBanks: nbBanks}
}

// Next parses and returns the next record, or false at end of stream or on
// a malformed line (distinguishable via Err).
func (s *TextCountSource) Next() (kmer.CountRecord, bool) {
	if s.err != nil {
		return kmer.CountRecord{}, false
	}
	if !s.scanner.Scan() {
		s.err = s.scanner.Err()
		return kmer.CountRecord{}, false
	}
	fields := strings.Fields(s.scanner.Text())
	if len(fields) != s.nbBanks+1 {
		s.err = errs.New(errs.InputFormat, "count record: expected "+strconv.Itoa(s.nbBanks+1)+" fields", nil)
		return kmer.CountRecord{}, false
	}
	kmerVal, err := strconv.ParseUint(fields[0], 10, 64)
	if err != nil {
		s.err = errs.New(errs.InputFormat, "count record: malformed kmer token", err)
		return kmer.CountRecord{}, false
	}
	counts := make([]uint64, s.nbBanks)
	for i, f := range fields[1:] {
		c, err := strconv.ParseUint(f, 10, 64)
		if err != nil {
			s.err = errs.New(errs.InputFormat, "count record: malformed count", err)
			return kmer.CountRecord{}, false
		}
		counts[i] = c
	}
	return kmer.CountRecord{Kmer: kmer.Kmer(kmerVal), Counts: counts}, true
}

// Err returns the first parse or read error Next encountered.
func (s *TextCountSource) Err() error { return s.err }

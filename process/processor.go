// Package process implements CountProcessor: the per-partition hot-path
// consumer of (kmer, counts[N]) records. It either accumulates every
// record directly into a worker-local StatisticsStore, or -- when χ²
// top-K selection is enabled -- scores each record and defers
// accumulation to finalisation, retaining only the most discriminative
// records per partition. Grounded on the per-worker accumulate-then-merge
// shape of fusion/preprocess.go and fusion/stitcher.go, generalized from
// fusion-fragment bookkeeping to the additive distance statistics of
// package stats.
package process

import (
	"fmt"
	"io"
	"math"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/grailbio/simka/errs"
	"github.com/grailbio/simka/kmer"
	"github.com/grailbio/simka/stats"
	"github.com/grailbio/simka/topk"
)

// SelectedKmersPath returns the path of the per-partition text file End
// writes the retained χ² top-K k-mers' counts to.
func SelectedKmersPath(outDir string, partition int) string {
	return filepath.Join(outDir, fmt.Sprintf("select_kmers_out_%d.txt", partition))
}

// Mode selects how Processor turns incoming records into statistics.
type Mode int

const (
	// ModeChiSquareTopK scores every record by χ² informativeness and
	// keeps only the top-K most discriminative per partition, deferring
	// accumulation until End. This is the default.
	ModeChiSquareTopK Mode = iota
	// ModeDirect accumulates every record immediately, with no filtering.
	ModeDirect
)

// Config configures a Processor. DatasetNbReads and TotalReads are the
// read-share null model χ² scoring needs; they, and the per-bank
// NbSolidKmersPerBank the complex block's Kullback-Leibler/Canberra/
// Whittaker terms need, are read from this Config (not from the Store)
// and must be set before the first call to Process (normally from the
// per-dataset sidecar, read by the orchestrating Run before workers
// start).
type Config struct {
	Mode                    Mode
	TopKCapacity            int
	MinimiserModel          kmer.Model
	KmerLength              int
	ComputeSimpleDistances  bool
	ComputeComplexDistances bool
	DatasetNbReads          []uint64
	TotalReads              uint64
	// NbSolidKmersPerBank is the per-dataset total solid k-mer count
	// (known ahead of time from each dataset's sidecar), used as the N_i,
	// N_j normalisers in the complex block's Kullback-Leibler/Canberra/
	// Whittaker terms. It is read-only configuration, not accumulated
	// statistics -- unlike Store.NbSolidKmersPerBank, which stays zero on
	// every worker-local store and is populated once, directly, on the
	// merged global store after all partitions complete (populating it
	// per worker would double-count it under Merge).
	NbSolidKmersPerBank []uint64
}

// Processor is the CountProcessor. It owns a private StatisticsStore and,
// in ModeChiSquareTopK, an embedded MinimiserTopK; neither is safe to
// share across partitions.
type Processor struct {
	cfg   Config
	store *stats.Store
	topK  *topk.MinimiserTopK
}

// New constructs a Processor for one partition of nbBanks datasets. store
// is the worker-local StatisticsStore the processor accumulates into; the
// caller owns its lifetime. Sidecar-derived per-bank values come from cfg;
// the processor never reads them from store.
func New(cfg Config, store *stats.Store) *Processor {
	p := &Processor{cfg: cfg, store: store}
	if cfg.Mode == ModeChiSquareTopK {
		p.topK = topk.New(cfg.TopKCapacity)
	}
	return p
}

// Store returns the processor's private StatisticsStore.
func (p *Processor) Store() *stats.Store { return p.store }

// ChiSquare computes the k-mer's deviation from the null hypothesis that
// each dataset contributes occurrences proportionally to its read share.
// A dataset with zero reads contributes no term (undefined share treated
// as exactly matching, per the NumericFallback policy); totalReads == 0
// yields 0 overall.
func ChiSquare(counts []uint64, datasetNbReads []uint64, totalReads uint64) float64 {
	if totalReads == 0 {
		return 0
	}
	var total uint64
	for _, c := range counts {
		total += c
	}
	if total == 0 {
		return 0
	}
	T := float64(total)
	Rtot := float64(totalReads)
	var x2 float64
	for i, c := range counts {
		Ri := float64(datasetNbReads[i])
		if Ri == 0 {
			continue
		}
		d := float64(c)/T - Ri/Rtot
		x2 += d * d * Rtot * T / Ri
	}
	return x2
}

// Process is the hot path: it either scores and offers rec to the
// embedded MinimiserTopK (ModeChiSquareTopK), or accumulates it directly
// into the store (ModeDirect). It performs no I/O.
func (p *Processor) Process(rec kmer.CountRecord) error {
	if p.cfg.Mode == ModeDirect {
		p.updateDistance(rec.Counts)
		return nil
	}
	score := ChiSquare(rec.Counts, p.cfg.DatasetNbReads, p.cfg.TotalReads)
	m := p.cfg.MinimiserModel.Of(rec.Kmer, p.cfg.KmerLength)
	p.topK.Offer(m, score, rec)
	return nil
}

// End finalises the partition: in ModeChiSquareTopK it drains the
// MinimiserTopK in ascending-score order, accumulates each retained
// record, and writes one line per record to selectedOut (the
// space-separated per-dataset counts, newline-terminated). In ModeDirect
// it is a no-op (everything was already accumulated on the hot path).
func (p *Processor) End(selectedOut io.Writer) error {
	if p.cfg.Mode != ModeChiSquareTopK {
		return nil
	}
	for _, r := range p.topK.Drain() {
		p.updateDistance(r.Payload.Counts)
		if err := writeSelectedLine(selectedOut, r.Payload.Counts); err != nil {
			return errs.New(errs.IO, "write selected k-mer line", err)
		}
	}
	return nil
}

func writeSelectedLine(w io.Writer, counts []uint64) error {
	for i, c := range counts {
		if i > 0 {
			if _, err := io.WriteString(w, " "); err != nil {
				return errors.Wrap(err, "process: write separator")
			}
		}
		if _, err := fmt.Fprintf(w, "%d", c); err != nil {
			return errors.Wrap(err, "process: write count")
		}
	}
	_, err := io.WriteString(w, "\n")
	return errors.Wrap(err, "process: write newline")
}

// updateDistance is the fixed, purely additive update spec'd for every
// retained (or directly streamed) record. S = {i : counts[i] > 0}.
func (p *Processor) updateDistance(counts []uint64) {
	n := len(counts)
	for i := 0; i < n; i++ {
		if counts[i] == 0 {
			continue
		}
		for j := i + 1; j < n; j++ {
			if counts[j] == 0 {
				continue
			}
			p.defaultBlock(i, j, counts[i], counts[j])
			if p.cfg.ComputeSimpleDistances {
				p.simpleBlock(i, j, counts[i], counts[j])
			}
		}
	}
	if p.cfg.ComputeComplexDistances {
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				if counts[i] == 0 && counts[j] == 0 {
					continue
				}
				p.complexBlock(i, j, counts[i], counts[j])
			}
		}
	}
}

func minU64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}

// defaultBlock is the always-on accumulation; it is the sole contributor
// to BrayCurtisNumerator and MatrixNbDistinctSharedKmers (the complex
// block's own Bray-Curtis-shaped term is intentionally not re-derived
// here -- the canonical accumulation is this block only, per the source's
// redundant complex-block computation being a duplicate to avoid).
func (p *Processor) defaultBlock(i, j int, ci, cj uint64) {
	s := p.store
	s.AddSharedKmers(i, j, ci)
	s.AddSharedKmers(j, i, cj)
	s.MatrixNbDistinctSharedKmers[stats.SymIndex(s.NbBanks, i, j)]++
	s.BrayCurtisNumerator[stats.SymIndex(s.NbBanks, i, j)] += minU64(ci, cj)
}

func (p *Processor) simpleBlock(i, j int, ci, cj uint64) {
	s := p.store
	idx := i*s.NbBanks + j
	fi, fj := float64(ci), float64(cj)
	s.ChordNiNj[idx] += fi * fj
	s.HellingerSqrtNiNj[idx] += math.Sqrt(fi * fj)
	s.KulczynskiMinNiNj[idx] += float64(minU64(ci, cj))
}

// klTerm computes one side of the Kullback-Leibler accumulation; it
// evaluates to 0 whenever ai is 0, which handles the "only one positive"
// branch by the same formula as the "both positive" branch with roles
// swapped, rather than a separate zero case.
func klTerm(ai, aj, ni, nj float64) float64 {
	if ai == 0 || ni == 0 {
		return 0
	}
	denom := ai*nj + aj*ni
	if denom == 0 {
		return 0
	}
	return (ai / ni) * math.Log(2*ai*nj/denom)
}

func (p *Processor) complexBlock(i, j int, ci, cj uint64) {
	s := p.store
	idx := i*s.NbBanks + j
	Ni := float64(p.cfg.NbSolidKmersPerBank[i])
	Nj := float64(p.cfg.NbSolidKmersPerBank[j])
	ai, aj := float64(ci), float64(cj)

	s.KullbackLeibler[idx] += klTerm(ai, aj, Ni, Nj) + klTerm(aj, ai, Nj, Ni)

	if ai+aj > 0 {
		s.Canberra[idx] += math.Abs(ai-aj) / (ai + aj)
	}
	s.WhittakerMinNiNj[idx] += math.Abs(ai*Nj - aj*Ni)
}

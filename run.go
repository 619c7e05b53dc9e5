package simka

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"

	"github.com/grailbio/simka/distance"
	"github.com/grailbio/simka/errs"
	"github.com/grailbio/simka/kmer"
	"github.com/grailbio/simka/persist"
	"github.com/grailbio/simka/process"
	"github.com/grailbio/simka/readbank"
	"github.com/grailbio/simka/stats"
)

// CountSource is one partition's stream of (kmer, per-bank counts) records,
// the interface an upstream k-mer counter satisfies. Next returns false at
// end of stream or on error; Err distinguishes the two, the same contract
// readbank.MultiIterator.Scan/Err follows.
type CountSource interface {
	Next() (kmer.CountRecord, bool)
	Err() error
}

// Result is everything a Run produces: the merged global statistics and
// the full family of derived distance matrices.
type Result struct {
	Store    *stats.Store
	Matrices map[string]distance.Matrix
}

// Run executes the full count-aggregation engine: it reads every dataset's
// sidecar, fans out over partitions (one worker per entry of sources),
// merges the resulting per-partition StatisticsStores, derives every
// distance matrix, and writes both the matrices and the merged store to
// opts.OutDir. Fan-out is grounded on the traverse.Each(parallelism,
// func(jobIdx int) error {...}) shape of pileup/snp/pileup.go; worker
// failure aborts the whole run, matching traverse.Each's own contract.
func Run(datasets []Dataset, sources []CountSource, opts Opts) (*Result, error) {
	nbBanks := len(datasets)
	if len(sources) == 0 {
		return nil, errs.New(errs.Config, "Run: no partitions supplied", nil)
	}

	sidecars := make([]readbank.Sidecar, nbBanks)
	for i, d := range datasets {
		sc, err := readbank.ReadSidecar(readbank.SidecarPath(opts.TmpDir, d.Name))
		if err != nil {
			return nil, errs.New(errs.IO, fmt.Sprintf("Run: sidecar for dataset %q", d.Name), err)
		}
		sidecars[i] = sc
		log.Printf("simka: dataset %q: %d reads, %d solid k-mers", d.Name, sc.NbReads, sc.NbSolidKmers)
	}

	datasetNbReads := make([]uint64, nbBanks)
	nbSolidDistinctKmersPerBank := make([]uint64, nbBanks)
	nbSolidKmersPerBank := make([]uint64, nbBanks)
	chordSqrtN2 := make([]float64, nbBanks)
	var totalReads uint64
	for i, sc := range sidecars {
		datasetNbReads[i] = sc.NbReads
		nbSolidDistinctKmersPerBank[i] = sc.NbSolidDistinctKmers
		nbSolidKmersPerBank[i] = sc.NbSolidKmers
		chordSqrtN2[i] = math.Sqrt(float64(sc.SumCountsSquared))
		totalReads += sc.NbReads
	}

	model := opts.DefaultMinimiserModel()
	mode := process.ModeDirect
	if opts.UseChiSquareFiltering {
		mode = process.ModeChiSquareTopK
	}

	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return nil, errs.New(errs.IO, "Run: create output directory", err)
	}

	workerStores := make([]*stats.Store, len(sources))
	err := traverse.Limit(opts.Parallelism).Each(len(sources), func(partitionIdx int) error {
		store := stats.New(nbBanks, opts.ComputeSimpleDistances, opts.ComputeComplexDistances)
		proc := process.New(process.Config{
			Mode:                    mode,
			TopKCapacity:            opts.TopKCapacity,
			MinimiserModel:          model,
			KmerLength:              opts.KmerLength,
			ComputeSimpleDistances:  opts.ComputeSimpleDistances,
			ComputeComplexDistances: opts.ComputeComplexDistances,
			DatasetNbReads:          datasetNbReads,
			TotalReads:              totalReads,
			NbSolidKmersPerBank:     nbSolidKmersPerBank,
		}, store)

		source := sources[partitionIdx]
		for {
			rec, ok := source.Next()
			if !ok {
				break
			}
			if err := proc.Process(rec); err != nil {
				return errors.E(err, fmt.Sprintf("partition %d", partitionIdx))
			}
		}
		if err := source.Err(); err != nil {
			return errors.E(err, fmt.Sprintf("partition %d: read", partitionIdx))
		}

		once := errors.Once{}
		selectedPath := process.SelectedKmersPath(opts.OutDir, partitionIdx)
		f, openErr := os.Create(selectedPath)
		once.Set(openErr)
		if openErr == nil {
			once.Set(proc.End(f))
			once.Set(f.Close())
		}
		if err := once.Err(); err != nil {
			return errors.E(err, fmt.Sprintf("partition %d: write selected k-mers", partitionIdx))
		}

		workerStores[partitionIdx] = store
		return nil
	})
	if err != nil {
		return nil, errs.New(errs.IO, "Run: partition processing failed", err)
	}

	global := stats.New(nbBanks, opts.ComputeSimpleDistances, opts.ComputeComplexDistances)
	for _, ws := range workerStores {
		if err := global.Merge(ws); err != nil {
			return nil, errs.New(errs.Config, "Run: merge partition statistics", err)
		}
	}

	// Sidecar-derived per-bank fields are constants known ahead of time,
	// not per-partition accumulations: set them once on the merged store
	// by direct assignment. Populating them identically on every
	// worker-local store and summing them through Merge would multiply
	// them by len(sources).
	global.DatasetNbReads = datasetNbReads
	global.NbSolidDistinctKmersPerBank = nbSolidDistinctKmersPerBank
	global.NbSolidKmersPerBank = nbSolidKmersPerBank
	global.ChordSqrtN2 = chordSqrtN2
	global.TotalReads = totalReads

	names := make([]string, nbBanks)
	for i, d := range datasets {
		names[i] = d.Name
	}

	engine := distance.New(global)
	matrices := engine.All()
	for key, m := range matrices {
		kind, name := splitMatrixKey(key)
		if err := persist.WriteMatrixCSV(opts.OutDir, kind, name, m, names); err != nil {
			return nil, errs.New(errs.IO, "Run: write distance matrix "+key, err)
		}
	}

	statsPath := persist.StorePath(opts.OutDir)
	sf, err := os.Create(statsPath)
	if err != nil {
		return nil, errs.New(errs.IO, "Run: create statistics file", err)
	}
	saveErr := persist.Save(sf, global)
	closeErr := sf.Close()
	if saveErr != nil {
		return nil, errs.New(errs.IO, "Run: save statistics", saveErr)
	}
	if closeErr != nil {
		return nil, errs.New(errs.IO, "Run: close statistics file", closeErr)
	}

	log.Printf("simka: wrote %d distance matrices to %s", len(matrices), opts.OutDir)
	return &Result{Store: global, Matrices: matrices}, nil
}

// splitMatrixKey splits a distance.Engine.All() key of the form
// "<kind>_<name>" back into its two parts. kind is always exactly
// "presenceAbsence" or "abundance" -- neither contains an underscore --
// so splitting on the first underscore is unambiguous even though name
// itself may contain further underscores (e.g. "simka-jaccard_asym").
func splitMatrixKey(key string) (kind, name string) {
	i := strings.IndexByte(key, '_')
	if i < 0 {
		return key, ""
	}
	return key[:i], key[i+1:]
}

// Command simka computes pairwise ecological distance matrices across
// many metagenomic read datasets from pre-counted k-mer partition files.
//
// Example:
//
//    simka -dataset-names=a,b -partitions=shard0.txt,shard1.txt -tmp=/scratch/simka -out=/scratch/simka/out
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"

	"github.com/grailbio/simka"
	"github.com/grailbio/simka/process"
)

// cliFlags collects every command-line option, mirroring the flat
// flags-struct-plus-flag.*Var convention of cmd/bio-fusion/main.go.
type cliFlags struct {
	datasetNames string
	partitions   string
	tmpDir       string
	outDir       string
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: simka [flags]

simka computes pairwise ecological distance matrices from per-partition
count files. -dataset-names lists the N columns every count record
carries, in order; -partitions lists one text file per k-mer-space shard,
each a stream of lines "<kmer> <count_1> ... <count_N>".

`)
	flag.PrintDefaults()
}

// parseDatasetNames parses "name1,name2,..." into an ordered dataset
// list; order determines the index every count record's Counts slice is
// keyed by, and the column a sidecar file is read for.
func parseDatasetNames(spec string) ([]simka.Dataset, error) {
	if spec == "" {
		return nil, fmt.Errorf("-dataset-names must name at least one dataset")
	}
	names := strings.Split(spec, ",")
	datasets := make([]simka.Dataset, len(names))
	for i, name := range names {
		if name == "" {
			return nil, fmt.Errorf("-dataset-names: entry %d is empty", i)
		}
		datasets[i] = simka.Dataset{Index: i, Name: name}
	}
	return datasets, nil
}

// parsePartitionPaths parses "path1,path2,..." into an ordered list of
// per-shard count files; each becomes one simka.CountSource.
func parsePartitionPaths(spec string) ([]string, error) {
	if spec == "" {
		return nil, fmt.Errorf("-partitions must name at least one partition file")
	}
	return strings.Split(spec, ","), nil
}

func main() {
	flag.Usage = usage

	flags := cliFlags{}
	opts := simka.DefaultOpts
	flag.StringVar(&flags.datasetNames, "dataset-names", "", "Comma-separated dataset names; order fixes the column every count record's Counts slice uses.")
	flag.StringVar(&flags.partitions, "partitions", "", "Comma-separated list of per-shard count files, each a stream of \"<kmer> <count_1> ... <count_N>\" lines.")
	flag.StringVar(&flags.tmpDir, "tmp", "", "Directory holding per-dataset sidecar files (<tmp>/count_synchro/<name>.ok).")
	flag.StringVar(&flags.outDir, "out", "./simka-out", "Directory to write distance matrices and the merged statistics store to.")
	flag.IntVar(&opts.Parallelism, "parallelism", opts.Parallelism, "Number of concurrent partition workers.")
	flag.IntVar(&opts.KmerLength, "k", opts.KmerLength, "Length of k-mers, in bases.")
	flag.IntVar(&opts.MinimiserLength, "minimiser-length", opts.MinimiserLength, "Length of the minimiser sub-word used to key chi-square top-K selection.")
	flag.BoolVar(&opts.UseChiSquareFiltering, "chi-square-filter", opts.UseChiSquareFiltering, "Retain only the most discriminative k-mers per minimiser (chi-square top-K).")
	flag.IntVar(&opts.TopKCapacity, "top-k", opts.TopKCapacity, "Per-minimiser top-K capacity when chi-square filtering is enabled.")
	flag.BoolVar(&opts.ComputeSimpleDistances, "simple-distances", opts.ComputeSimpleDistances, "Compute the chord/Hellinger/Kulczynski abundance family.")
	flag.BoolVar(&opts.ComputeComplexDistances, "complex-distances", opts.ComputeComplexDistances, "Compute the Whittaker/Canberra/Kullback-Leibler abundance family.")

	cleanup := grail.Init()
	defer cleanup()

	datasets, err := parseDatasetNames(flags.datasetNames)
	if err != nil {
		log.Fatal(err)
	}
	paths, err := parsePartitionPaths(flags.partitions)
	if err != nil {
		log.Fatal(err)
	}
	opts.TmpDir = flags.tmpDir
	opts.OutDir = flags.outDir

	nbBanks := len(datasets)
	sources := make([]simka.CountSource, len(paths))
	closers := make([]*os.File, len(paths))
	for i, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			log.Panicf("open partition file %v: %v", path, err)
		}
		closers[i] = f
		sources[i] = process.NewTextCountSource(f, nbBanks)
	}
	defer func() {
		for _, f := range closers {
			if f != nil {
				f.Close()
			}
		}
	}()

	result, err := simka.Run(datasets, sources, opts)
	if err != nil {
		log.Panicf("simka run failed: %v", err)
	}
	log.Printf("wrote %d distance matrices to %s", len(result.Matrices), opts.OutDir)
}

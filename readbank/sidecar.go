package readbank

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"

	"github.com/grailbio/simka/errs"
)

// SidecarPath returns the path of the per-dataset sidecar file a worker
// reads before processing datasetName's partition.
func SidecarPath(tmpDir, datasetName string) string {
	return filepath.Join(tmpDir, "count_synchro", datasetName+".ok")
}

// Sidecar holds the four decimal counters a per-dataset sidecar file
// carries.
type Sidecar struct {
	NbReads              uint64
	NbSolidDistinctKmers uint64
	NbSolidKmers         uint64
	SumCountsSquared     uint64
}

var sidecarFieldNames = [4]string{
	"nbReads", "nbSolidDistinctKmers", "nbSolidKmers", "sum(counts^2)",
}

// ReadSidecar parses the four decimal lines of a sidecar file written by
// the upstream k-mer counter. A missing or non-numeric line is reported
// as an *errs.Error of kind errs.InputFormat; a failure to open or read
// the file is reported as errs.IO.
func ReadSidecar(path string) (Sidecar, error) {
	f, err := os.Open(path)
	if err != nil {
		return Sidecar{}, errs.New(errs.IO, "open sidecar "+path, err)
	}
	defer f.Close()
	return readSidecar(f, path)
}

func readSidecar(r io.Reader, path string) (Sidecar, error) {
	scanner := bufio.NewScanner(r)
	var values [4]uint64
	for i := 0; i < 4; i++ {
		if !scanner.Scan() {
			return Sidecar{}, errs.New(errs.InputFormat,
				fmt.Sprintf("sidecar %s: missing line %d (%s)", path, i+1, sidecarFieldNames[i]), nil)
		}
		v, err := strconv.ParseUint(scanner.Text(), 10, 64)
		if err != nil {
			return Sidecar{}, errs.New(errs.InputFormat,
				fmt.Sprintf("sidecar %s: line %d (%s) is not a decimal integer", path, i+1, sidecarFieldNames[i]),
				errors.Wrap(err, "parse"))
		}
		values[i] = v
	}
	if err := scanner.Err(); err != nil {
		return Sidecar{}, errs.New(errs.IO, "read sidecar "+path, err)
	}
	return Sidecar{
		NbReads:              values[0],
		NbSolidDistinctKmers: values[1],
		NbSolidKmers:         values[2],
		SumCountsSquared:     values[3],
	}, nil
}

package simka

// Dataset is one named input to a Run: a set of sub-banks (single files or
// read-pair groups) plus a read count. Run takes the read counts it uses
// from each dataset's sidecar file and does not write them into
// ReadCount.
type Dataset struct {
	Index     int
	Name      string
	Files     [][]string
	ReadCount uint64
}

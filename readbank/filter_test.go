package readbank_test

import (
	"testing"

	"github.com/grailbio/simka/readbank"
	"github.com/grailbio/testutil/expect"
)

func TestZeroValueFilterAcceptsEverything(t *testing.T) {
	var f readbank.Filter
	expect.True(t, f.Accept(""))
	expect.True(t, f.Accept("A"))
	expect.True(t, f.Accept("AAAAAAAAAA"))
}

func TestMinReadSizeRejectsShortReads(t *testing.T) {
	f := readbank.Filter{MinReadSize: 10}
	expect.False(t, f.Accept("ACGT"))
	expect.True(t, f.Accept("ACGTACGTACGT"))
}

func TestMinShannonIndexRejectsLowComplexity(t *testing.T) {
	f := readbank.Filter{MinShannonIndex: 1.5}
	expect.False(t, f.Accept("AAAAAAAAAAAA"))
	expect.True(t, f.Accept("ACGTACGTACGTACGT"))
}

func TestShannonIndexZeroForSingleLetterRead(t *testing.T) {
	f := readbank.Filter{MinShannonIndex: 0.001}
	expect.False(t, f.Accept("GGGGGGGG"))
}

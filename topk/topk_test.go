package topk_test

import (
	"testing"

	"github.com/grailbio/simka/kmer"
	"github.com/grailbio/simka/topk"
	"github.com/grailbio/testutil/expect"
)

func rec(m kmer.Minimiser) kmer.CountRecord {
	return kmer.CountRecord{Kmer: kmer.Kmer(m)}
}

// TestScenarioS4 is the literal end-to-end scenario from the spec: three
// offers at capacity 2 retain only the top two by score, and a later
// re-offer of an already-retained minimiser with a higher score updates
// it in place.
func TestScenarioS4(t *testing.T) {
	tk := topk.New(2)
	tk.Offer(1, 1.0, rec(1))
	tk.Offer(2, 2.0, rec(2))
	tk.Offer(3, 3.0, rec(3))

	got := tk.Drain()
	expect.EQ(t, len(got), 2)
	byMin := map[kmer.Minimiser]float64{}
	for _, r := range got {
		byMin[r.Minimiser] = r.Score
	}
	expect.EQ(t, byMin[2], 2.0)
	expect.EQ(t, byMin[3], 3.0)

	// Re-run the stream, then the update-in-place step.
	tk2 := topk.New(2)
	tk2.Offer(1, 1.0, rec(1))
	tk2.Offer(2, 2.0, rec(2))
	tk2.Offer(3, 3.0, rec(3))
	tk2.Offer(2, 5.0, rec(2))
	got2 := tk2.Drain()
	expect.EQ(t, len(got2), 2)
	byMin2 := map[kmer.Minimiser]float64{}
	for _, r := range got2 {
		byMin2[r.Minimiser] = r.Score
	}
	expect.EQ(t, byMin2[2], 5.0)
	expect.EQ(t, byMin2[3], 3.0)
}

func TestDrainIsAscendingByScore(t *testing.T) {
	tk := topk.New(10)
	scores := []float64{5, 1, 9, 3, 7}
	for i, s := range scores {
		tk.Offer(kmer.Minimiser(i), s, rec(kmer.Minimiser(i)))
	}
	got := tk.Drain()
	expect.EQ(t, len(got), len(scores))
	for i := 1; i < len(got); i++ {
		expect.True(t, got[i-1].Score <= got[i].Score)
	}
}

func TestLowerScoreOfExistingMinimiserIsIgnored(t *testing.T) {
	tk := topk.New(5)
	tk.Offer(1, 10.0, rec(1))
	tk.Offer(1, 2.0, rec(1))
	got := tk.Drain()
	expect.EQ(t, len(got), 1)
	expect.EQ(t, got[0].Score, 10.0)
}

func TestAtCapacityLowerScoreIgnored(t *testing.T) {
	tk := topk.New(2)
	tk.Offer(1, 5.0, rec(1))
	tk.Offer(2, 6.0, rec(2))
	tk.Offer(3, 1.0, rec(3)) // below min(5,6): ignored
	got := tk.Drain()
	expect.EQ(t, len(got), 2)
	for _, r := range got {
		expect.True(t, r.Minimiser == 1 || r.Minimiser == 2)
	}
}

func TestAtMostOneRecordPerMinimiser(t *testing.T) {
	tk := topk.New(3)
	for i := 0; i < 5; i++ {
		tk.Offer(1, float64(i), rec(1))
	}
	got := tk.Drain()
	expect.EQ(t, len(got), 1)
	expect.EQ(t, got[0].Score, 4.0)
}

// Package topk implements MinimiserTopK, the bounded ordered selection
// structure CountProcessor uses to keep only the K most χ²-discriminative
// k-mer records per partition, at most one per minimiser. It follows
// Go's standard bounded-top-K idiom (container/heap) rather than any
// teacher file directly — none of the retrieval pack implements a
// generic ordered/bounded collection in a shape worth adapting here; see
// DESIGN.md for that justification.
package topk

import (
	"container/heap"

	"github.com/grailbio/simka/kmer"
)

// Record is one retained (minimiser, score, payload) triple.
type Record struct {
	Minimiser kmer.Minimiser
	Score     float64
	Payload   kmer.CountRecord
}

type entry struct {
	rec   Record
	index int // position in the heap slice, maintained by heap.Interface
}

type minHeap []*entry

func (h minHeap) Len() int            { return len(h) }
func (h minHeap) Less(i, j int) bool  { return h[i].rec.Score < h[j].rec.Score }
func (h minHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index, h[j].index = i, j
}
func (h *minHeap) Push(x interface{}) {
	e := x.(*entry)
	e.index = len(*h)
	*h = append(*h, e)
}
func (h *minHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

// MinimiserTopK retains at most Capacity records, one per minimiser,
// keeping the highest-scoring occurrence seen for each retained
// minimiser. It is not safe for concurrent use; each CountProcessor owns
// a worker-local instance.
type MinimiserTopK struct {
	capacity int
	byMin    map[kmer.Minimiser]*entry
	h        minHeap
}

// New constructs a MinimiserTopK with the given capacity.
func New(capacity int) *MinimiserTopK {
	return &MinimiserTopK{
		capacity: capacity,
		byMin:    make(map[kmer.Minimiser]*entry),
	}
}

// Len returns the number of records currently retained.
func (t *MinimiserTopK) Len() int { return len(t.h) }

// Offer presents a new (minimiser, score, payload) triple. See spec §4.E
// for the exact replace/evict protocol.
func (t *MinimiserTopK) Offer(m kmer.Minimiser, score float64, payload kmer.CountRecord) {
	if e, ok := t.byMin[m]; ok {
		if score > e.rec.Score {
			e.rec.Score = score
			e.rec.Payload = payload
			heap.Fix(&t.h, e.index)
		}
		return
	}
	if len(t.h) < t.capacity {
		e := &entry{rec: Record{Minimiser: m, Score: score, Payload: payload}}
		heap.Push(&t.h, e)
		t.byMin[m] = e
		return
	}
	// At capacity: evict the minimum only if the newcomer beats it.
	if len(t.h) == 0 {
		return
	}
	min := t.h[0]
	if score > min.rec.Score {
		delete(t.byMin, min.rec.Minimiser)
		e := &entry{rec: Record{Minimiser: m, Score: score, Payload: payload}}
		t.h[0] = e
		e.index = 0
		heap.Fix(&t.h, 0)
		t.byMin[m] = e
	}
}

// Drain removes and returns every retained record, sorted ascending by
// score, and resets the structure to empty.
func (t *MinimiserTopK) Drain() []Record {
	out := make([]Record, 0, len(t.h))
	for t.h.Len() > 0 {
		e := heap.Pop(&t.h).(*entry)
		out = append(out, e.rec)
	}
	t.byMin = make(map[kmer.Minimiser]*entry)
	return out
}

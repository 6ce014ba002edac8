package ranker

import (
	"container/heap"
)

type scored struct {
	acc   *accumulator
	score float64
}

// better orders results by similarity, then by dot product so that
// documents with equal cosine but heavier matches come first, then by
// doc id for a stable order.
func better(a, b scored) bool {
	if a.score != b.score {
		return a.score > b.score
	}
	if a.acc.dotProduct != b.acc.dotProduct {
		return a.acc.dotProduct > b.acc.dotProduct
	}
	return a.acc.docID < b.acc.docID
}

// topK keeps the best limit results seen so far in a min-heap, worst on top.
type topK struct {
	limit int
	h     scoredHeap
}

func newTopK(limit int) *topK {
	return &topK{limit: limit, h: make(scoredHeap, 0, limit+1)}
}

func (t *topK) offer(s scored) {
	if t.h.Len() < t.limit {
		heap.Push(&t.h, s)
		return
	}
	if better(s, t.h[0]) {
		t.h[0] = s
		heap.Fix(&t.h, 0)
	}
}

// sorted drains the heap, best first.
func (t *topK) sorted() []scored {
	out := make([]scored, t.h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(&t.h).(scored)
	}
	return out
}

type scoredHeap []scored

func (h scoredHeap) Len() int { return len(h) }

func (h scoredHeap) Less(i, j int) bool { return better(h[j], h[i]) }

func (h scoredHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *scoredHeap) Push(x interface{}) {
	*h = append(*h, x.(scored))
}

func (h *scoredHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

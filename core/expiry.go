package core

import (
	"container/heap"
	"time"
)

type expiryEntry struct {
	at   time.Time
	meta *MetaInfo
}

// expiryHeap is a min-heap on expiry time, falling back to creation time.
// It implements heap.Interface; use the container/heap functions on it.
type expiryHeap []expiryEntry

func (h expiryHeap) Len() int { return len(h) }

func (h expiryHeap) Less(i, j int) bool {
	if h[i].at.Equal(h[j].at) {
		return h[i].meta.Less(*h[j].meta)
	}
	return h[i].at.Before(h[j].at)
}

func (h expiryHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *expiryHeap) Push(x any) {
	*h = append(*h, x.(expiryEntry))
}

func (h *expiryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = expiryEntry{}
	*h = old[:n-1]
	return e
}

func (h expiryHeap) peek() (expiryEntry, bool) {
	if len(h) == 0 {
		return expiryEntry{}, false
	}
	return h[0], true
}

// buildExpiryHeap collects every TTL-bearing entry and heapifies bottom-up.
func buildExpiryHeap(index map[string]*MetaInfo) expiryHeap {
	h := make(expiryHeap, 0, len(index))
	for _, meta := range index {
		if at, ok := meta.ExpiryAt(); ok {
			h = append(h, expiryEntry{at: at, meta: meta})
		}
	}
	heap.Init(&h)
	return h
}

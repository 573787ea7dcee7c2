// Package util holds small generic data structures shared by the scoring
// and pruning engines.
package util

import "container/heap"

// BoundCandidate pairs a cluster id with a lower-bound distance computed by
// the pruning engine.
type BoundCandidate struct {
	ClusterID int
	Bound     float64
}

// MinHeap orders BoundCandidate entries by ascending bound. The pruning
// engine uses it to revisit deferred candidates (L(i) > best_so_far) in the
// order most likely to still yield the first within-R match cheaply.
type MinHeap struct {
	items []*BoundCandidate
}

// NewMinHeap creates an empty min-heap.
func NewMinHeap() *MinHeap {
	return &MinHeap{items: make([]*BoundCandidate, 0)}
}

func (h *MinHeap) Len() int { return len(h.items) }

func (h *MinHeap) Less(i, j int) bool { return h.items[i].Bound < h.items[j].Bound }

func (h *MinHeap) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *MinHeap) Push(x interface{}) {
	h.items = append(h.items, x.(*BoundCandidate))
}

func (h *MinHeap) Pop() interface{} {
	old := h.items
	n := len(old)
	item := old[n-1]
	h.items = old[:n-1]
	return item
}

// PushCandidate inserts a deferred candidate.
func (h *MinHeap) PushCandidate(c *BoundCandidate) { heap.Push(h, c) }

// PopCandidate removes and returns the lowest-bound deferred candidate, or
// nil if the heap is empty.
func (h *MinHeap) PopCandidate() *BoundCandidate {
	if h.Len() == 0 {
		return nil
	}
	return heap.Pop(h).(*BoundCandidate)
}

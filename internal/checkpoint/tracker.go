package checkpoint

import "sync"

// DirtyTracker is a set of cluster ids marked as changed, emptied by Drain.
// The run loop neither marks nor drains it: every checkpoint re-serializes
// the whole registry.
type DirtyTracker struct {
	mu    sync.Mutex
	dirty map[uint32]struct{}
}

// NewDirtyTracker returns an empty tracker.
func NewDirtyTracker() *DirtyTracker {
	return &DirtyTracker{dirty: make(map[uint32]struct{})}
}

// Mark flags a cluster id as changed.
func (t *DirtyTracker) Mark(id uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dirty[id] = struct{}{}
}

// Drain returns every marked id and clears the tracker, ready for the next
// checkpoint interval.
func (t *DirtyTracker) Drain() []uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]uint32, 0, len(t.dirty))
	for id := range t.dirty {
		out = append(out, id)
	}
	t.dirty = make(map[uint32]struct{})
	return out
}

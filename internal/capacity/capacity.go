// Package capacity implements the three strategies the run loop falls back
// to when the cluster registry is at its maxcl ceiling and a new cluster is
// needed: stop, discard the least-visited of the oldest fraction, or merge
// the DCC-nearest pair.
package capacity

import (
	"fmt"

	"github.com/anchorcluster/anchorcluster/internal/admission"
	"github.com/anchorcluster/anchorcluster/internal/registry"
)

// Strategy names the configured maxcl_strategy option.
type Strategy string

const (
	Stop    Strategy = "stop"
	Discard Strategy = "discard"
	Merge   Strategy = "merge"
)

// Policy bundles a strategy with its parameters and exposes a
// admission.CapacityResolver that the admission controller invokes when the
// registry is full.
type Policy struct {
	Strategy     Strategy
	DiscardFrac  float64 // fraction of the oldest clusters considered for eviction
}

// Resolver returns the admission.CapacityResolver for this policy.
func (p Policy) Resolver() admission.CapacityResolver {
	switch p.Strategy {
	case Stop:
		return nil // nil resolver signals admission to return ErrCapacityStop
	case Discard:
		return func(r *registry.Registry) error { return p.discardOldest(r) }
	case Merge:
		return func(r *registry.Registry) error { return mergeNearest(r) }
	default:
		return nil
	}
}

// discardOldest considers the first MaxLive*DiscardFrac live clusters by id
// (the oldest, since ids are assigned sequentially) and discards the one
// with fewest hits, breaking ties by lowest id.
func (p Policy) discardOldest(r *registry.Registry) error {
	live := r.LiveIDs() // ascending, so already oldest-first by allocation order
	n := int(float64(r.MaxLive()) * p.DiscardFrac)
	if n <= 0 {
		n = 1
	}
	if n > len(live) {
		n = len(live)
	}
	if n == 0 {
		return fmt.Errorf("capacity: discard strategy found no live clusters to evict")
	}

	victim := -1
	var fewestHits uint64
	for _, id := range live[:n] {
		c := r.Get(id)
		if c == nil {
			continue
		}
		if victim == -1 || c.Hits < fewestHits {
			victim = id
			fewestHits = c.Hits
		}
	}
	if victim == -1 {
		return fmt.Errorf("capacity: discard strategy found no eviction candidate")
	}
	r.Discard(victim)
	return nil
}

// mergeNearest finds the DCC-nearest live pair and folds the higher id into
// the lower, per SPEC_FULL §9's resolved Open Question (absorb, don't
// redistribute).
func mergeNearest(r *registry.Registry) error {
	live := r.LiveIDs()
	i, j, _, ok := r.DCC().Nearest(live)
	if !ok {
		return fmt.Errorf("capacity: merge strategy found no DCC pair to merge")
	}
	into, from := i, j
	if into > from {
		into, from = from, into
	}
	r.Merge(into, from)
	return nil
}

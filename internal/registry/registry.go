// Package registry holds the engine's one piece of long-lived, mutable
// state: the cluster array, the anchor-to-anchor distance cache (DCC), the
// transition matrix and the sequence history. It is owned exclusively by
// the controlling goroutine; pruning workers only read DCC entries, through
// the lookup function the run loop hands them.
package registry

import (
	"fmt"
	"math"
)

const renormalizeEvery = 4096

// Registry is the live cluster array plus its supporting caches.
type Registry struct {
	dim         int
	maxLive     int
	maxVisitors int
	seqHistLen  int

	clusters []*Cluster
	liveSet  map[uint32]struct{}
	dcc      *DCC

	transition      map[uint32]map[uint32]uint64
	prevClusterID   int64 // -1 means "no previous assignment yet"
	sequenceHistory []uint32

	probSum           float64
	framesSinceRenorm int

	discarded map[uint32]struct{}
}

// New creates an empty registry. dim is the frame dimensionality inferred
// from the first frame; maxLive is the maxcl ceiling; maxVisitors is the
// per-cluster visitor ring length (maxvis); seqHistLen is the prediction
// history length h (0 disables sequence tracking).
func New(dim, maxLive, maxVisitors, seqHistLen int) *Registry {
	return &Registry{
		dim:           dim,
		maxLive:       maxLive,
		maxVisitors:   maxVisitors,
		seqHistLen:    seqHistLen,
		liveSet:       make(map[uint32]struct{}),
		dcc:           NewDCC(16),
		transition:    make(map[uint32]map[uint32]uint64),
		prevClusterID: -1,
	}
}

// Dim returns the configured frame dimensionality.
func (r *Registry) Dim() int { return r.dim }

// DCC exposes the distance cache for the pruning engine and capacity policy.
func (r *Registry) DCC() *DCC { return r.dcc }

// MaxLive returns the configured capacity ceiling (maxcl).
func (r *Registry) MaxLive() int { return r.maxLive }

// LiveCount returns the number of non-tombstoned clusters.
func (r *Registry) LiveCount() int { return len(r.liveSet) }

// LiveIDs returns the ids of every live cluster, in ascending order.
func (r *Registry) LiveIDs() []int {
	ids := make([]int, 0, len(r.liveSet))
	for id := range r.liveSet {
		ids = append(ids, int(id))
	}
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
	return ids
}

// Get returns cluster id, or nil if id has never been allocated.
func (r *Registry) Get(id int) *Cluster {
	if id < 0 || id >= len(r.clusters) {
		return nil
	}
	return r.clusters[id]
}

// IsLive reports whether id names a cluster that is currently live (not
// tombstoned).
func (r *Registry) IsLive(id int) bool {
	_, ok := r.liveSet[uint32(id)]
	return ok
}

// ErrCapacityReached is returned by NewCluster when live count already
// equals the maxcl ceiling; the caller (the admission controller) is
// expected to have already run the capacity policy before calling again.
var ErrCapacityReached = fmt.Errorf("registry: capacity reached")

// NewCluster allocates a new cluster with anchor as its frozen reference
// vector. Ids are assigned sequentially and never reused, even across
// discard/merge (see DESIGN.md). The new cluster's initial probability is
// the mean of all other live clusters' probabilities, renormalized; DCC
// rows/columns against every other live anchor must be filled in by the
// caller (the one pair of measurements the spec exempts from pruning).
func (r *Registry) NewCluster(anchor []float64, birth uint64) (*Cluster, error) {
	if len(r.liveSet) >= r.maxLive {
		return nil, ErrCapacityReached
	}
	id := uint32(len(r.clusters))
	c := newCluster(id, anchor, birth, r.maxVisitors)

	if n := len(r.liveSet); n > 0 {
		c.Probability = r.probSum / float64(n)
	} else {
		c.Probability = 1.0
	}

	r.clusters = append(r.clusters, c)
	r.liveSet[id] = struct{}{}
	r.dcc.Grow(len(r.clusters))
	r.probSum += c.Probability
	r.renormalizeIfNeeded()
	return c, nil
}

// RecordDCC fills in the exact anchor-to-anchor distance for a freshly
// created (or merge-surviving) pair.
func (r *Registry) RecordDCC(i, j int, dist float64) { r.dcc.Set(i, j, dist) }

// NormalizedProbability returns id's probability divided by the running
// sum, so callers always observe a properly normalized value — the raw
// per-cluster Probability field only sums to 1 immediately after a full
// renormalization pass; dividing by probSum on every read keeps the
// Σprobabilities == 1 invariant true every frame, not just every
// renormalizeEvery frames (SPEC_FULL §9).
func (r *Registry) NormalizedProbability(id int) float64 {
	c := r.Get(id)
	if c == nil || r.probSum <= 0 {
		return 0
	}
	return c.Probability / r.probSum
}

// SetProbability overwrites id's raw probability and keeps the running sum
// consistent. Used only by checkpoint restore, which replays a historical
// raw value recorded before the checkpoint was taken rather than bumping
// the current one by dprob.
func (r *Registry) SetProbability(id int, p float64) {
	c := r.clusters[id]
	r.probSum += p - c.Probability
	c.Probability = p
}

// Assign applies the bookkeeping side effects of assigning frame F to
// existing cluster id c: bump hits, bump probability by dprob, append the
// visitor (with every cluster distance F measured during its own pruning
// pass, for later gprob lookups), advance the transition matrix and
// sequence history.
func (r *Registry) Assign(id int, frameIndex uint64, dist, dprob float64, measurements map[int]float64) {
	c := r.clusters[id]
	c.Hits++
	c.Probability += dprob
	r.probSum += dprob
	c.AddVisitor(frameIndex, dist, measurements)
	r.advance(uint32(id))
	r.renormalizeIfNeeded()
}

// advance pushes id through the transition matrix and sequence history,
// strictly after the corresponding assignment is recorded (ordering
// guarantee from SPEC_FULL §5).
func (r *Registry) advance(id uint32) {
	if r.prevClusterID >= 0 {
		prev := uint32(r.prevClusterID)
		row, ok := r.transition[prev]
		if !ok {
			row = make(map[uint32]uint64)
			r.transition[prev] = row
		}
		row[id]++
	}
	r.prevClusterID = int64(id)

	if r.seqHistLen > 0 {
		r.sequenceHistory = append(r.sequenceHistory, id)
		if len(r.sequenceHistory) > r.seqHistLen {
			r.sequenceHistory = r.sequenceHistory[len(r.sequenceHistory)-r.seqHistLen:]
		}
	}
}

// PrevClusterID returns the cluster id the previous frame was assigned to,
// or -1 if no frame has been assigned yet. A frame that spawned a new
// cluster counts as assigned to that cluster.
func (r *Registry) PrevClusterID() int64 { return r.prevClusterID }

// TransitionRow returns a read-only snapshot of T[prev][*] and the row sum,
// used by the scorer's transition-matrix blend.
func (r *Registry) TransitionRow(prev uint32) (map[uint32]uint64, uint64) {
	row, ok := r.transition[prev]
	if !ok {
		return nil, 0
	}
	var sum uint64
	for _, v := range row {
		sum += v
	}
	return row, sum
}

// SequenceHistory returns the ring of the last h assigned cluster ids,
// oldest first.
func (r *Registry) SequenceHistory() []uint32 {
	out := make([]uint32, len(r.sequenceHistory))
	copy(out, r.sequenceHistory)
	return out
}

// Tombstone marks id as no longer live and drops its remaining probability
// from the running sum. It does not touch DCC entries; callers (capacity
// policy) are responsible for invalidating DCC rows and redistributing
// visitors/probability per the chosen strategy first.
func (r *Registry) Tombstone(id int) {
	if _, live := r.liveSet[uint32(id)]; live {
		r.probSum -= r.clusters[id].Probability
	}
	delete(r.liveSet, uint32(id))
	r.clusters[id].tombstoned = true
}

// Discard tombstones id under the "discard" capacity strategy: its DCC row
// is invalidated and its id is remembered as discarded so the run's output
// can list the frames that landed there (frame_membership.txt keeps their
// original cluster id verbatim; discarded_frames.txt is derived from this
// set after the run).
func (r *Registry) Discard(id int) {
	r.dcc.Invalidate(id)
	r.Tombstone(id)
	if r.discarded == nil {
		r.discarded = make(map[uint32]struct{})
	}
	r.discarded[uint32(id)] = struct{}{}
}

// WasDiscarded reports whether id was evicted by the discard strategy
// (as opposed to merge, or still live).
func (r *Registry) WasDiscarded(id int) bool {
	_, ok := r.discarded[uint32(id)]
	return ok
}

// Merge folds cluster `from` into cluster `into` under the "merge" capacity
// strategy: `from`'s visitors are replayed into `into` (respecting `into`'s
// visitor ring cap), `from`'s probability is absorbed into `into` (the
// resolved Open Question from SPEC_FULL §9 — no redistribution across the
// rest of the registry), and `from`'s DCC row is invalidated before it is
// tombstoned. `into` must be the lower id per the spec's tie-break rule;
// callers are expected to have already picked the DCC-nearest pair.
func (r *Registry) Merge(into, from int) {
	src := r.clusters[from]
	dst := r.clusters[into]

	for _, v := range src.Visitors() {
		dst.AddVisitor(v.FrameIndex, v.Distance, v.Measurements)
	}
	dst.Probability += src.Probability
	src.Probability = 0

	r.dcc.Invalidate(from)
	r.Tombstone(from)
}

// ProbabilitySum returns the registry's tracked running sum of
// probabilities, used for periodic full renormalization rather than a
// divide-by-sum on every frame (SPEC_FULL §9 drift note).
func (r *Registry) ProbabilitySum() float64 { return r.probSum }

func (r *Registry) renormalizeIfNeeded() {
	r.framesSinceRenorm++
	if r.framesSinceRenorm < renormalizeEvery {
		return
	}
	r.framesSinceRenorm = 0
	r.fullRenormalize()
}

// fullRenormalize recomputes the exact probability sum over live clusters
// and rescales so it equals 1, bounding numerical drift accumulated by the
// incremental running-sum bookkeeping.
func (r *Registry) fullRenormalize() {
	var sum float64
	for id := range r.liveSet {
		sum += r.clusters[id].Probability
	}
	if sum <= 0 || math.IsNaN(sum) {
		return
	}
	for id := range r.liveSet {
		r.clusters[id].Probability /= sum
	}
	r.probSum = 1.0
}

// ForceRenormalize is exposed for tests and for the run loop to call once
// at finalization so the Σprobabilities invariant holds exactly at exit.
func (r *Registry) ForceRenormalize() { r.fullRenormalize() }

// Count returns the number of cluster ids ever allocated, live or
// tombstoned — the high-water mark output tooling and the checkpoint
// writer need to iterate every slot, not just the live ones.
func (r *Registry) Count() int { return len(r.clusters) }

// Transition returns a deep copy of the full transition matrix, for the
// checkpoint writer and transition_matrix.txt output.
func (r *Registry) Transition() map[uint32]map[uint32]uint64 {
	out := make(map[uint32]map[uint32]uint64, len(r.transition))
	for prev, row := range r.transition {
		rowCopy := make(map[uint32]uint64, len(row))
		for curr, n := range row {
			rowCopy[curr] = n
		}
		out[prev] = rowCopy
	}
	return out
}

// RestoreState rehydrates a registry from a prior checkpoint: clusters must
// already have been recreated via NewCluster/RecordDCC/Assign by the
// caller in birth order; RestoreState only reinstates the transition
// matrix, sequence history and previous-cluster pointer, which have no
// other public mutator.
func (r *Registry) RestoreState(transition map[uint32]map[uint32]uint64, sequenceHistory []uint32, prevClusterID int64) {
	r.transition = make(map[uint32]map[uint32]uint64, len(transition))
	for prev, row := range transition {
		rowCopy := make(map[uint32]uint64, len(row))
		for curr, n := range row {
			rowCopy[curr] = n
		}
		r.transition[prev] = rowCopy
	}
	r.sequenceHistory = append([]uint32(nil), sequenceHistory...)
	r.prevClusterID = prevClusterID
}

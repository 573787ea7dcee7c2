package registry

// Visitor is a past frame that was assigned to a cluster, alongside its
// measured distance to that cluster's anchor and every other cluster it
// measured an exact distance to during its own pruning pass (its
// "cluster_indices list" in the gprob geometric-boost algorithm).
type Visitor struct {
	FrameIndex   uint64
	Distance     float64
	Measurements map[int]float64
}

// Cluster holds an immutable anchor and the mutable bookkeeping the engine
// accumulates as frames are assigned to it. Anchor, ID and BirthIndex never
// change after creation; Hits, Probability and Visitors evolve on every
// assignment.
type Cluster struct {
	ID          uint32
	Anchor      []float64
	BirthIndex  uint64
	Hits        uint64
	Probability float64

	visitors    []Visitor // ring buffer, FIFO eviction
	visitorHead int
	maxVisitors int

	tombstoned bool
}

func newCluster(id uint32, anchor []float64, birth uint64, maxVisitors int) *Cluster {
	v := make([]float64, len(anchor))
	copy(v, anchor)
	return &Cluster{
		ID:          id,
		Anchor:      v,
		BirthIndex:  birth,
		Hits:        0,
		maxVisitors: maxVisitors,
	}
}

// Live reports whether the cluster's slot is still occupied (not discarded
// or merged away).
func (c *Cluster) Live() bool { return !c.tombstoned }

// AddVisitor appends a (frame, distance, measurements) entry to the visitor
// ring, evicting the oldest entry first once MaxVis is reached.
func (c *Cluster) AddVisitor(frameIndex uint64, distance float64, measurements map[int]float64) {
	if c.maxVisitors <= 0 {
		return
	}
	v := Visitor{FrameIndex: frameIndex, Distance: distance, Measurements: measurements}
	if len(c.visitors) < c.maxVisitors {
		c.visitors = append(c.visitors, v)
		return
	}
	c.visitors[c.visitorHead] = v
	c.visitorHead = (c.visitorHead + 1) % c.maxVisitors
}

// Visitors returns the current visitor ring, oldest first. The returned
// slice is owned by the caller to inspect only; callers must not retain
// references across subsequent AddVisitor calls.
func (c *Cluster) Visitors() []Visitor {
	if len(c.visitors) < c.maxVisitors || c.maxVisitors == 0 {
		out := make([]Visitor, len(c.visitors))
		copy(out, c.visitors)
		return out
	}
	out := make([]Visitor, 0, len(c.visitors))
	out = append(out, c.visitors[c.visitorHead:]...)
	out = append(out, c.visitors[:c.visitorHead]...)
	return out
}

package registry

// notComputed is the DCC sentinel value for "no measurement yet", matching
// the reference tool's -1 convention.
const notComputed = -1.0

// DCC is the symmetric distance cluster-to-cluster cache: exact Euclidean
// distances between anchors, stored flat for cache locality.
//
// The reference C implementation sizes this as a static Cmax x Cmax array,
// since discarded/merged cluster ids are never reused the total number of
// ids allocated over a long run can exceed maxcl even though the live count
// never does (see DESIGN.md on the discard "freed slot" wording). A Go
// slice-backed cache that grows on demand is the idiomatic equivalent of
// that static array without imposing an artificial id ceiling.
type DCC struct {
	capacity int
	dist     []float64
}

// NewDCC allocates a DCC cache sized for up to capacity live clusters.
func NewDCC(capacity int) *DCC {
	d := &DCC{}
	d.grow(capacity)
	return d
}

// Grow ensures the cache has room for ids up to capacity-1, preserving all
// previously recorded distances.
func (d *DCC) Grow(capacity int) {
	if capacity <= d.capacity {
		return
	}
	d.grow(capacity)
}

func (d *DCC) grow(capacity int) {
	old := d.dist
	oldCap := d.capacity
	next := make([]float64, capacity*capacity)
	for i := range next {
		next[i] = notComputed
	}
	for i := 0; i < oldCap; i++ {
		copy(next[i*capacity:i*capacity+oldCap], old[i*oldCap:i*oldCap+oldCap])
	}
	for i := 0; i < capacity; i++ {
		next[i*capacity+i] = 0
	}
	d.dist = next
	d.capacity = capacity
}

func (d *DCC) idx(i, j int) int { return i*d.capacity + j }

// Get returns the cached distance between anchors i and j, or (0, false) if
// not yet computed.
func (d *DCC) Get(i, j int) (float64, bool) {
	v := d.dist[d.idx(i, j)]
	if v == notComputed {
		return 0, false
	}
	return v, true
}

// Set records the exact distance between anchors i and j, keeping the
// matrix symmetric.
func (d *DCC) Set(i, j int, dist float64) {
	d.dist[d.idx(i, j)] = dist
	d.dist[d.idx(j, i)] = dist
}

// Invalidate clears every entry touching cluster i (used on discard/merge,
// where i's slot becomes a tombstone).
func (d *DCC) Invalidate(i int) {
	for k := 0; k < d.capacity; k++ {
		d.dist[d.idx(i, k)] = notComputed
		d.dist[d.idx(k, i)] = notComputed
	}
}

// Capacity returns the number of ids the cache currently has room for.
func (d *DCC) Capacity() int { return d.capacity }

// Entry is one known pairwise distance, with i < j.
type Entry struct {
	I, J int
	Dist float64
}

// Entries returns every known distance with i < j, for checkpointing and
// for the dcc.txt output file.
func (d *DCC) Entries() []Entry {
	var out []Entry
	for i := 0; i < d.capacity; i++ {
		for j := i + 1; j < d.capacity; j++ {
			if v, ok := d.Get(i, j); ok {
				out = append(out, Entry{I: i, J: j, Dist: v})
			}
		}
	}
	return out
}

// Nearest scans the live ids for the pair with the smallest known DCC
// distance, used by the merge capacity policy. Returns ok=false if no pair
// of live ids has a known distance.
func (d *DCC) Nearest(liveIDs []int) (i, j int, dist float64, ok bool) {
	best := -1.0
	bi, bj := -1, -1
	for a := 0; a < len(liveIDs); a++ {
		for b := a + 1; b < len(liveIDs); b++ {
			ii, jj := liveIDs[a], liveIDs[b]
			v, known := d.Get(ii, jj)
			if !known {
				continue
			}
			if best < 0 || v < best {
				best = v
				bi, bj = ii, jj
			}
		}
	}
	if bi < 0 {
		return 0, 0, 0, false
	}
	return bi, bj, best, true
}

// Package admission applies the R-rule outcome of the pruning engine: it
// either records an assignment to an existing cluster or spawns a new one,
// delegating to the capacity policy when the registry is already at its
// ceiling.
package admission

import (
	"errors"
	"fmt"

	"github.com/anchorcluster/anchorcluster/internal/metric"
	"github.com/anchorcluster/anchorcluster/internal/registry"
)

// ErrCapacityStop is returned when the registry is at capacity, the
// configured strategy is "stop", and a new cluster is required. The caller
// (the run loop) must treat this as fatal: flush what has been assigned and
// exit.
var ErrCapacityStop = errors.New("admission: capacity reached, strategy=stop")

// CapacityResolver is invoked when a new cluster is needed but the registry
// is already at maxcl. It must free at least one slot (discard or merge)
// or return ErrCapacityStop.
type CapacityResolver func(r *registry.Registry) error

// Result describes the outcome of Assign for one frame.
type Result struct {
	ClusterID uint32
	Distance  float64
	IsNew     bool
}

// Assign applies the outcome of the pruning engine for frame F. match is
// the cluster id chosen by the pruning engine, or -1 if no live anchor was
// within R. measurements holds every exact distance F measured against a
// live anchor during its own pruning pass, keyed by cluster id — stored on
// the new visitor record so the gprob booster can later reuse it.
func Assign(r *registry.Registry, frameIndex uint64, vec []float64, match int, matchDist float64, measurements map[int]float64, dprob float64, resolveCapacity CapacityResolver) (Result, error) {
	if match >= 0 {
		r.Assign(match, frameIndex, matchDist, dprob, measurements)
		return Result{ClusterID: uint32(match), Distance: matchDist}, nil
	}

	if r.LiveCount() >= r.MaxLive() {
		if resolveCapacity == nil {
			return Result{}, ErrCapacityStop
		}
		if err := resolveCapacity(r); err != nil {
			return Result{}, err
		}
	}

	c, err := r.NewCluster(vec, frameIndex)
	if err != nil {
		return Result{}, fmt.Errorf("admission: spawning cluster for frame %d: %w", frameIndex, err)
	}

	for _, id := range r.LiveIDs() {
		if uint32(id) == c.ID {
			continue
		}
		other := r.Get(id)
		if other == nil {
			continue
		}
		d, err := metric.Euclidean(vec, other.Anchor)
		if err != nil {
			return Result{}, fmt.Errorf("admission: measuring new anchor against cluster %d: %w", id, err)
		}
		r.RecordDCC(int(c.ID), id, d)
	}

	r.Assign(int(c.ID), frameIndex, 0, 0, nil)

	return Result{ClusterID: c.ID, Distance: 0, IsNew: true}, nil
}

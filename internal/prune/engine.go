package prune

import (
	"context"
	"math"

	"github.com/sourcegraph/conc/pool"

	"github.com/anchorcluster/anchorcluster/internal/metric"
	"github.com/anchorcluster/anchorcluster/internal/scorer"
	"github.com/anchorcluster/anchorcluster/internal/util"
)

// Config carries the per-run pruning settings that stay fixed across
// frames.
type Config struct {
	Radius float64
	TE4    bool
	TE5    bool
	NCPU   int
	// Rescore, if set, is invoked after every exact distance measurement
	// with the still-undecided tail of the candidate list and the
	// measurements gathered so far this frame. It may mutate Score on any
	// Unknown-state candidate (the geometric-similarity boost does this);
	// Run re-sorts the tail with scorer.Resort immediately afterward. A
	// nil Rescore disables the hook entirely, leaving ordering untouched
	// after the initial scorer.Order call.
	Rescore RescoreFunc
}

// RescoreFunc mutates the scores of still-undecided candidates given the
// measurements accumulated so far this frame.
type RescoreFunc func(candidates []scorer.Candidate, measured []Measurement)

// Outcome is the result of running the pruning engine against one frame's
// ordered candidate list.
type Outcome struct {
	ClusterID     int // -1 if no candidate is within R
	Distance      float64
	DistanceCalls int
	Pruned        int
	Measured      []Measurement
	// PrunedAtStep[k] is true if the candidate at position k of the list
	// as scanned (the undecided tail is re-sorted after each measurement)
	// was pruned without an exact distance call,
	// feeding the telemetry histogram indexed by measurement step.
	PrunedAtStep []bool
}

// AnchorLookup resolves a live cluster's anchor vector by id.
type AnchorLookup func(id int) []float64

// Run walks candidates in score order, pruning with 3/4/5-point bounds and
// falling back to an exact distance call when pruning fails, stopping at
// the first candidate within cfg.Radius. Bound computation for the
// not-yet-decided tail of the list is fanned out across a bounded worker
// pool whenever cfg.NCPU > 1, re-run after every exact measurement since a
// newly measured anchor can tighten every other candidate's bound; the
// first-within-R scan itself stays strictly sequential so tie-breaking
// never depends on worker scheduling.
func Run(ctx context.Context, frame []float64, candidates []scorer.Candidate, cfg Config, anchor AnchorLookup, dcc DCCLookup) (Outcome, error) {
	out := Outcome{ClusterID: -1, PrunedAtStep: make([]bool, len(candidates))}
	measured := make([]Measurement, 0, len(candidates))
	bestSoFar := math.Inf(1)
	deferred := util.NewMinHeap()

	bounds := computeBounds(ctx, candidates, cfg, measured, dcc)

	for i, cand := range candidates {
		bound, haveBound := bounds[cand.ClusterID]

		if haveBound && bound > cfg.Radius {
			out.Pruned++
			out.PrunedAtStep[i] = true
			candidates[i].State = scorer.Pruned
			continue
		}
		// Defensive: unreachable today, since bestSoFar is only set by a
		// non-within exact measurement and so always exceeds cfg.Radius,
		// while a candidate reaching this line already cleared the
		// bound > cfg.Radius check above. Kept for a future bound tighter
		// than cfg.Radius itself.
		if haveBound && bound > bestSoFar {
			deferred.PushCandidate(&util.BoundCandidate{ClusterID: cand.ClusterID, Bound: bound})
			continue
		}

		d, within, err := measureExact(frame, anchor(cand.ClusterID), cfg.Radius, cand.ClusterID, &out, &measured, &bestSoFar)
		if err != nil {
			return out, err
		}
		candidates[i].State = scorer.Measured
		if within {
			candidates[i].State = scorer.Confirmed
			out.ClusterID = cand.ClusterID
			out.Distance = d
			return out, nil
		}

		// A fresh exact measurement can tighten bounds on everything still
		// undecided, so refresh them before continuing the sequential
		// scan.
		if cfg.Rescore != nil {
			cfg.Rescore(candidates[i+1:], measured)
			scorer.Resort(candidates[i+1:])
		}
		bounds = computeBounds(ctx, candidates[i+1:], cfg, measured, dcc)
	}

	for deferred.Len() > 0 {
		bc := deferred.PopCandidate()
		d, within, err := measureExact(frame, anchor(bc.ClusterID), cfg.Radius, bc.ClusterID, &out, &measured, &bestSoFar)
		if err != nil {
			return out, err
		}
		if within {
			out.ClusterID = bc.ClusterID
			out.Distance = d
			return out, nil
		}
	}

	return out, nil
}

func measureExact(frame, anchorVec []float64, radius float64, clusterID int, out *Outcome, measured *[]Measurement, bestSoFar *float64) (float64, bool, error) {
	// The full distance, not an early-exit partial sum: every later bound
	// this frame is built from it.
	d, err := metric.Euclidean(frame, anchorVec)
	if err != nil {
		return 0, false, err
	}
	within := radius <= 0 || d <= radius
	out.DistanceCalls++
	out.Measured = append(out.Measured, Measurement{ClusterID: clusterID, Dist: d})
	*measured = append(*measured, Measurement{ClusterID: clusterID, Dist: d})
	if d < *bestSoFar {
		*bestSoFar = d
	}
	return d, within, nil
}

// computeBounds computes the tightest available lower bound for every
// candidate in cands against the currently measured set, fanning the work
// out across cfg.NCPU workers via conc/pool when configured for more than
// one, and running inline otherwise.
func computeBounds(ctx context.Context, cands []scorer.Candidate, cfg Config, measured []Measurement, dcc DCCLookup) map[int]float64 {
	out := make(map[int]float64, len(cands))
	if len(cands) == 0 {
		return out
	}

	type result struct {
		id    int
		bound float64
		ok    bool
	}

	compute := func(id int) result {
		b, ok := boundFor(id, measured, cfg, dcc)
		return result{id: id, bound: b, ok: ok}
	}

	if cfg.NCPU <= 1 {
		for _, c := range cands {
			r := compute(c.ClusterID)
			if r.ok {
				out[r.id] = r.bound
			}
		}
		return out
	}

	p := pool.NewWithResults[result]().WithMaxGoroutines(cfg.NCPU).WithContext(ctx)
	for _, c := range cands {
		id := c.ClusterID
		p.Go(func(context.Context) (result, error) {
			return compute(id), nil
		})
	}
	results, _ := p.Wait()
	for _, r := range results {
		if r.ok {
			out[r.id] = r.bound
		}
	}
	return out
}

// boundFor returns the tightest (largest) valid lower bound on d(F,
// candidate) across the 3-point bound (always available once at least one
// anchor is measured), the 4-point bound (te4, using the two most recently
// measured anchors), and the 5-point bound (te5, using the three most
// recently measured anchors).
func boundFor(candidate int, measured []Measurement, cfg Config, dcc DCCLookup) (float64, bool) {
	var best float64
	var ok bool

	if b, found := ThreePoint(candidate, measured, dcc); found {
		best, ok = b, true
	}

	if cfg.TE4 && len(measured) >= 2 {
		k, m := measured[len(measured)-2], measured[len(measured)-1]
		if b, found := FourPoint(candidate, k, m, dcc); found && (!ok || b > best) {
			best, ok = b, true
		}
	}

	if cfg.TE5 && len(measured) >= 3 {
		k, m, n := measured[len(measured)-3], measured[len(measured)-2], measured[len(measured)-1]
		if b, found := FivePoint(candidate, k, m, n, dcc); found && (!ok || b > best) {
			best, ok = b, true
		}
	}

	return best, ok
}

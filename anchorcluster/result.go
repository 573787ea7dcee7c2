package anchorcluster

import (
	"time"

	"github.com/anchorcluster/anchorcluster/internal/registry"
	"github.com/anchorcluster/anchorcluster/internal/runloop"
	"github.com/anchorcluster/anchorcluster/internal/telemetry"
)

// Result is the outcome of one completed or gracefully stopped Run/RunFile
// call. A non-nil error returned alongside Result is either fatal (Result
// is the zero value) or a SeverityWarning *ClusterError wrapping a capacity
// stop, in which case Result still holds every frame processed before the
// stop.
type Result struct {
	cfg            Config
	loopRes        runloop.Result
	duration       time.Duration
	outputDuration time.Duration
}

// Assignments returns the per-frame cluster assignments, in increasing
// frame-index order.
func (r Result) Assignments() []Assignment {
	return assignmentsFrom(r.loopRes.Records)
}

// Clusters returns a summary of every cluster id ever allocated, live or
// tombstoned, in ascending id order.
func (r Result) Clusters() []ClusterSummary {
	reg := r.loopRes.Registry
	if reg == nil {
		return nil
	}
	out := make([]ClusterSummary, 0, reg.Count())
	for id := 0; id < reg.Count(); id++ {
		c := reg.Get(id)
		if c == nil {
			continue
		}
		out = append(out, ClusterSummary{
			ID:          int(c.ID),
			Anchor:      c.Anchor,
			Hits:        c.Hits,
			Probability: reg.NormalizedProbability(id),
			Live:        c.Live(),
			Discarded:   reg.WasDiscarded(id),
		})
	}
	return out
}

// Registry exposes the underlying cluster registry for callers that need
// direct access beyond the summarized view (e.g. a caller writing its own
// output format).
func (r Result) Registry() *registry.Registry { return r.loopRes.Registry }

// Stats summarizes the run's counters.
func (r Result) Stats() Stats {
	live, total := 0, 0
	if reg := r.loopRes.Registry; reg != nil {
		live = reg.LiveCount()
		total = reg.Count()
	}
	status := telemetry.StatusStopped
	lastErr := ""
	if r.loopRes.Stopped != nil {
		status = telemetry.StatusCapacityExceeded
		lastErr = r.loopRes.Stopped.Error()
	}
	return Stats{
		ClustersLive:    live,
		ClustersTotal:   total,
		FramesProcessed: r.loopRes.FramesProcessed,
		DistanceCalls:   r.loopRes.DistanceCalls,
		Pruned:          r.loopRes.Pruned,
		DistHist:        r.loopRes.DistHist,
		Health: telemetry.Health{
			Status:          status,
			FramesProcessed: r.loopRes.FramesProcessed,
			LastError:       lastErr,
		},
	}
}

// ClusteringDuration reports wall-clock time spent in the clustering loop,
// excluding output writing.
func (r Result) ClusteringDuration() time.Duration { return r.duration }

// OutputDuration reports wall-clock time spent writing selected output
// files.
func (r Result) OutputDuration() time.Duration { return r.outputDuration }

// Stopped reports the reason the run ended early, if any (a fatal capacity
// stop under the "stop" strategy). A nil return means the run consumed the
// whole source or hit MaxFrames.
func (r Result) Stopped() error { return r.loopRes.Stopped }

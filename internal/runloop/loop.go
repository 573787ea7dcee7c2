// Package runloop wires the scoring, pruning, admission and capacity
// packages into the engine's per-frame control loop: read a frame, order
// candidates, prune down to the first within-R anchor (or none), apply the
// admission/capacity outcome, record telemetry, repeat until the source is
// exhausted, maxim is reached, or the interrupt flag is observed.
package runloop

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/anchorcluster/anchorcluster/internal/admission"
	"github.com/anchorcluster/anchorcluster/internal/capacity"
	"github.com/anchorcluster/anchorcluster/internal/checkpoint"
	"github.com/anchorcluster/anchorcluster/internal/output"
	"github.com/anchorcluster/anchorcluster/internal/prune"
	"github.com/anchorcluster/anchorcluster/internal/registry"
	"github.com/anchorcluster/anchorcluster/internal/scorer"
	"github.com/anchorcluster/anchorcluster/internal/source"
	"github.com/anchorcluster/anchorcluster/internal/telemetry"
)

// PredictConfig mirrors configfile.PredictParams without importing
// configfile, which sits a layer above runloop in the dependency graph.
type PredictConfig struct {
	Enabled bool
	L, H, N int
}

// Config is the full set of tunables the run loop needs for one pass over
// a source. Dim is discovered from the first frame, not supplied here.
type Config struct {
	Radius      float64
	DeltaProb   float64
	MaxClusters int
	MaxVisitors int
	SeqHistLen  int
	MaxFrames   int64 // 0 means unbounded

	TE4  bool
	TE5  bool
	NCPU int

	TMMixing float64
	Predict  PredictConfig

	GProb   bool
	FMatchA float64
	FMatchB float64

	Capacity capacity.Policy

	CheckpointPath  string
	CheckpointEvery int // 0 disables periodic checkpointing

	Logger *logrus.Logger
}

// Result summarizes one completed (or interrupted) run for the caller to
// feed into internal/output and internal/telemetry.
type Result struct {
	Registry        *registry.Registry
	Records         []output.MembershipRecord
	FramesProcessed uint64
	DistanceCalls   uint64
	Pruned          uint64
	DistHist        []telemetry.DistHistBin
	MaxRSSKB        uint64
	Stopped         error // non-nil only for a fatal stop (ErrCapacityStop with no resolver)
}

// rssSampleEvery bounds how often the run loop pays for a getrusage
// syscall; ru_maxrss is a kernel-maintained high-water mark, so sampling
// doesn't need to be per-frame to capture the true peak.
const rssSampleEvery = 4096

// Loop runs the clustering control loop over one source.
type Loop struct {
	cfg     Config
	reg     *registry.Registry
	metrics *telemetry.Metrics
	log     *logrus.Logger
	store   *checkpoint.Store
	rss     *telemetry.RSSMonitor

	interrupted atomic.Bool
}

// New creates a Loop. metrics may be nil to disable Prometheus
// instrumentation (tests do this to avoid double-registering the default
// registry across table cases).
func New(cfg Config, metrics *telemetry.Metrics) *Loop {
	log := cfg.Logger
	if log == nil {
		log = logrus.New()
	}
	return &Loop{cfg: cfg, metrics: metrics, log: log, rss: telemetry.NewRSSMonitor()}
}

// Interrupt requests a graceful stop: the loop finishes the in-flight frame
// (if any) and returns after that, never mid-frame, matching SPEC_FULL §5's
// cancellation contract.
func (l *Loop) Interrupt() { l.interrupted.Store(true) }

// Run streams frames from src until the source is exhausted, MaxFrames is
// reached, Interrupt is called, or a fatal capacity stop occurs.
func (l *Loop) Run(ctx context.Context, src source.FrameSource) (Result, error) {
	res := Result{}

	frame, err := src.Next(ctx)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return res, nil
		}
		return res, fmt.Errorf("runloop: reading first frame: %w", err)
	}

	l.reg = registry.New(len(frame.Vec), l.cfg.MaxClusters, l.cfg.MaxVisitors, l.cfg.SeqHistLen)
	res.Registry = l.reg

	if l.cfg.CheckpointPath != "" {
		store, err := checkpoint.Open(l.cfg.CheckpointPath)
		if err != nil {
			l.log.WithError(err).Warn("runloop: checkpoint store unavailable, starting cold")
		} else {
			l.store = store
			defer l.store.Close()
			l.restoreCheckpoint()
		}
	}

	distHist := make(map[int]*telemetry.DistHistBin)
	binAt := func(step int) *telemetry.DistHistBin {
		bin, ok := distHist[step]
		if !ok {
			bin = &telemetry.DistHistBin{Step: step}
			distHist[step] = bin
		}
		return bin
	}

	resolver := l.cfg.Capacity.Resolver()

	for {
		if l.interrupted.Load() {
			break
		}

		outcome, assignedID, err := l.processFrame(ctx, frame, resolver)
		if err != nil {
			if errors.Is(err, admission.ErrCapacityStop) {
				res.Stopped = err
				break
			}
			return res, err
		}

		res.FramesProcessed++
		res.DistanceCalls += uint64(outcome.DistanceCalls)
		res.Pruned += uint64(outcome.Pruned)
		binAt(outcome.DistanceCalls).FramesWithKCalls++
		for step, pruned := range outcome.PrunedAtStep {
			if pruned {
				binAt(step).PrunedAtStep++
			}
		}
		if l.metrics != nil {
			l.metrics.FramesProcessed.Inc()
			l.metrics.DistanceCalls.Add(float64(outcome.DistanceCalls))
			l.metrics.DistancesPerFrame.Observe(float64(outcome.DistanceCalls))
			total := outcome.DistanceCalls + outcome.Pruned
			if total > 0 {
				l.metrics.PrunedFraction.Observe(float64(outcome.Pruned) / float64(total))
			}
			if outcome.ClusterID < 0 {
				l.metrics.ClustersCreated.Inc()
			}
		}

		rec := output.MembershipRecord{FrameIndex: frame.Index, ClusterID: assignedID}
		res.Records = append(res.Records, rec)

		if l.store != nil && l.cfg.CheckpointEvery > 0 && res.FramesProcessed%uint64(l.cfg.CheckpointEvery) == 0 {
			if err := l.saveCheckpoint(res.FramesProcessed); err != nil {
				l.log.WithError(err).Warn("runloop: checkpoint save failed")
			}
		}

		if res.FramesProcessed%rssSampleEvery == 0 {
			l.rss.Sample()
		}

		if l.cfg.MaxFrames > 0 && int64(res.FramesProcessed) >= l.cfg.MaxFrames {
			break
		}

		frame, err = src.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return res, fmt.Errorf("runloop: reading frame %d: %w", res.FramesProcessed, err)
		}
	}

	if l.store != nil {
		if err := l.saveCheckpoint(res.FramesProcessed); err != nil {
			l.log.WithError(err).Warn("runloop: final checkpoint save failed")
		}
	}

	l.rss.Sample()
	res.MaxRSSKB = l.rss.PeakKB()

	markDiscarded(res.Records, l.reg)
	res.DistHist = flattenHist(distHist)
	return res, nil
}

// processFrame runs one frame through scoring, pruning and admission,
// returning the outcome of the pruning pass and the cluster id the frame
// was actually assigned to — which may differ from outcome.ClusterID (-1)
// when the frame spawned a brand-new cluster.
func (l *Loop) processFrame(ctx context.Context, frame source.Frame, resolver admission.CapacityResolver) (prune.Outcome, int, error) {
	params := l.scorerParams()

	cands := scorer.Order(params)

	pcfg := prune.Config{Radius: l.cfg.Radius, TE4: l.cfg.TE4, TE5: l.cfg.TE5, NCPU: l.cfg.NCPU}
	if l.cfg.GProb {
		pcfg.Rescore = l.gprobRescore()
	}

	anchorOf := func(id int) []float64 {
		c := l.reg.Get(id)
		if c == nil {
			return nil
		}
		return c.Anchor
	}
	dccOf := func(i, j int) (float64, bool) { return l.reg.DCC().Get(i, j) }

	outcome, err := prune.Run(ctx, frame.Vec, cands, pcfg, anchorOf, dccOf)
	if err != nil {
		return outcome, -1, fmt.Errorf("runloop: pruning frame %d: %w", frame.Index, err)
	}

	measurements := make(map[int]float64, len(outcome.Measured))
	for _, m := range outcome.Measured {
		measurements[m.ClusterID] = m.Dist
	}

	result, err := admission.Assign(l.reg, frame.Index, frame.Vec, outcome.ClusterID, outcome.Distance, measurements, l.cfg.DeltaProb, resolver)
	if err != nil {
		return outcome, -1, err
	}
	return outcome, int(result.ClusterID), nil
}

func (l *Loop) scorerParams() scorer.Params {
	hasPrev := l.reg.PrevClusterID() >= 0
	var row map[uint32]uint64
	var sum uint64
	if hasPrev {
		row, sum = l.reg.TransitionRow(uint32(l.reg.PrevClusterID()))
	}
	return scorer.Params{
		LiveIDs:     l.reg.LiveIDs(),
		Probability: func(id int) float64 { return l.probabilityOf(id) },
		Transition:  scorer.TransitionView{Row: row, Sum: sum},
		HasPrev:     hasPrev,
		TM:          l.cfg.TMMixing,
		SequenceHist: l.reg.SequenceHistory(),
		PredictL:    l.cfg.Predict.L,
		PredictH:    l.cfg.Predict.H,
		PredictN:    l.cfg.Predict.N,
		PredictOn:   l.cfg.Predict.Enabled,
		IsDiscarded: func(id uint32) bool { return l.reg.WasDiscarded(int(id)) },
	}
}

func (l *Loop) probabilityOf(id int) float64 {
	return l.reg.NormalizedProbability(id)
}

// gprobRescore builds the prune.RescoreFunc that applies the
// geometric-similarity boost to every still-undecided candidate after each
// exact measurement, per SPEC_FULL §4.2 step 3.
func (l *Loop) gprobRescore() prune.RescoreFunc {
	return func(cands []scorer.Candidate, measured []prune.Measurement) {
		measuredThisFrame := make(map[int]float64, len(measured))
		for _, m := range measured {
			measuredThisFrame[m.ClusterID] = m.Dist
		}
		for i := range cands {
			if cands[i].State != scorer.Unknown {
				continue
			}
			c := l.reg.Get(cands[i].ClusterID)
			if c == nil {
				continue
			}
			raw := c.Visitors()
			visitors := make([]scorer.VisitorMeasurement, 0, len(raw))
			for _, v := range raw {
				visitors = append(visitors, scorer.VisitorMeasurement{Measurements: v.Measurements})
			}
			boost := scorer.Boost(l.cfg.Radius, l.cfg.FMatchA, l.cfg.FMatchB, visitors, measuredThisFrame)
			cands[i].Score += boost
		}
	}
}

func flattenHist(m map[int]*telemetry.DistHistBin) []telemetry.DistHistBin {
	max := -1
	for step := range m {
		if step > max {
			max = step
		}
	}
	out := make([]telemetry.DistHistBin, max+1)
	for step := range out {
		out[step].Step = step
	}
	for step, bin := range m {
		out[step] = *bin
	}
	return out
}

func markDiscarded(records []output.MembershipRecord, reg *registry.Registry) {
	for i := range records {
		if reg.WasDiscarded(records[i].ClusterID) {
			records[i].Discarded = true
		}
	}
}

// Package anchorcluster provides an online, single-pass clustering engine
// for streams of fixed-dimensional numeric frames: each frame is assigned
// to the first existing cluster whose anchor lies within a configured
// radius, or spawns a new cluster when none qualifies. Frames are never
// revisited once assigned.
package anchorcluster

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/anchorcluster/anchorcluster/internal/capacity"
	"github.com/anchorcluster/anchorcluster/internal/configfile"
	"github.com/anchorcluster/anchorcluster/internal/output"
	"github.com/anchorcluster/anchorcluster/internal/runloop"
	"github.com/anchorcluster/anchorcluster/internal/scandist"
	"github.com/anchorcluster/anchorcluster/internal/source"
	"github.com/anchorcluster/anchorcluster/internal/telemetry"
)

// Engine is the top-level clustering engine, the public counterpart of the
// teacher's Database: one Config, applied via functional options, drives
// every run.
type Engine struct {
	mu      sync.Mutex
	cfg     Config
	log     *logrus.Logger
	metrics *telemetry.Metrics
	closed  bool
}

// New constructs an Engine from the given options, applied over
// defaultConfig in order. Validation errors from individual options are
// returned wrapped as a fatal *ClusterError.
func New(opts ...Option) (*Engine, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, newClusterError(ErrCodeConfiguration, "applying option", err)
		}
	}
	if !cfg.AutoRadius && cfg.Radius <= 0 {
		return nil, newClusterError(ErrCodeConfiguration, "invalid configuration", ErrInvalidRadius)
	}

	log := cfg.Logger
	if log == nil {
		log = logrus.New()
		log.SetLevel(cfg.LogLevel)
	}
	cfg.Logger = log

	e := &Engine{cfg: cfg, log: log}
	if cfg.MetricsEnabled {
		e.metrics = telemetry.NewMetrics()
	}
	return e, nil
}

// FromConfigFile builds an Engine from a legacy key-value config file
// merged over defaultConfig, then over any additional options (which take
// precedence over the file).
func FromConfigFile(path string, opts ...Option) (*Engine, error) {
	fileCfg := configfile.Default()
	if err := configfile.Load(path, &fileCfg); err != nil {
		return nil, newClusterError(ErrCodeConfiguration, "loading config file", err)
	}
	merged := append(optionsFromConfigFile(fileCfg), opts...)
	return New(merged...)
}

func optionsFromConfigFile(fc configfile.Config) []Option {
	opts := []Option{
		WithDeltaProb(fc.DeltaProb),
		WithMaxClusters(fc.MaxClusters),
		WithMaxFrames(fc.MaxFrames),
	}
	if fc.NCPU > 0 {
		opts = append(opts, WithNCPU(fc.NCPU))
	}
	if fc.AutoRadius {
		opts = append(opts, WithAutoRadius(fc.AutoRadiusK))
	} else if fc.Radius > 0 {
		opts = append(opts, WithRadius(fc.Radius))
	}
	opts = append(opts, WithTrianglePruning(fc.TE4, fc.TE5))
	opts = append(opts, WithTransitionMixing(fc.TMMixing))
	if fc.Predict.Enabled {
		opts = append(opts, WithPrediction(fc.Predict.L, fc.Predict.H, fc.Predict.N))
	}
	if fc.GProb {
		opts = append(opts, WithGeometricBoost(fc.FMatchA, fc.FMatchB))
	}
	if fc.MaxVisitors > 0 {
		opts = append(opts, WithMaxVisitors(fc.MaxVisitors))
	}
	strategy := capacityStrategyOf(fc.MaxClStrategy)
	frac := fc.DiscardFrac
	if frac <= 0 {
		frac = 1
	}
	opts = append(opts, WithCapacityStrategy(strategy, frac))
	if fc.ScanDist {
		opts = append(opts, WithScanDist(2000))
	}
	if fc.OutputDir != "" {
		opts = append(opts, WithOutputDir(fc.OutputDir))
	}
	opts = append(opts, WithOutputs(OutputSelection{
		Anchors:    fc.OutputAnchors,
		Membership: fc.OutputMembers,
		DCC:        false,
		Transition: fc.OutputTM,
		Counts:     fc.OutputCounts,
		Discarded:  fc.OutputDiscards,
		Clustered:  fc.OutputClustered,
	}))
	return opts
}

// Run clusters every frame produced by src, stopping at source exhaustion,
// Config.MaxFrames, or a fatal capacity stop; cancelling ctx aborts the run
// with an error. Close does not interrupt a Run already in progress. src's
// dimension is discovered from the first frame and fixed for the whole run.
//
// Run does not perform the scan-distance pre-pass even if Config.AutoRadius
// is set — auto-R requires two passes over the source, so callers that want
// it should use RunFile, or resolve the radius themselves via
// internal/scandist and pass a fixed-radius Config.
func (e *Engine) Run(ctx context.Context, src source.FrameSource) (Result, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return Result{}, newClusterError(ErrCodeConfiguration, "running engine", ErrEngineClosed)
	}
	cfg := e.cfg
	e.mu.Unlock()

	if cfg.AutoRadius {
		return Result{}, newClusterError(ErrCodeConfiguration, "running engine", fmt.Errorf("auto-radius configured but Run was called directly; use RunFile"))
	}

	return e.run(ctx, cfg, src, "stream")
}

// RunFile opens path as a text frame source and clusters it. When
// Config.AutoRadius is set, it first re-reads path through the
// scan-distance pre-pass to resolve a fixed radius, then reopens path for
// the actual clustering pass — exactly the two-pass behavior the original
// tool's `aK` radius syntax describes.
func (e *Engine) RunFile(ctx context.Context, path string) (Result, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return Result{}, newClusterError(ErrCodeConfiguration, "running engine", ErrEngineClosed)
	}
	cfg := e.cfg
	e.mu.Unlock()

	if cfg.AutoRadius || cfg.ScanDist {
		radius, err := e.resolveRadius(ctx, path, cfg)
		if err != nil {
			return Result{}, err
		}
		cfg.Radius = radius
		cfg.AutoRadius = false
	}

	src, err := source.OpenTextSource(path)
	if err != nil {
		return Result{}, newClusterError(ErrCodeSource, "opening input", err)
	}
	defer src.Close()

	return e.run(ctx, cfg, src, filepath.Base(path))
}

func (e *Engine) resolveRadius(ctx context.Context, path string, cfg Config) (float64, error) {
	scanSrc, err := source.OpenTextSource(path)
	if err != nil {
		return 0, newClusterError(ErrCodeSource, "opening input for scan-distance pre-pass", err)
	}
	defer scanSrc.Close()

	maxPairs := cfg.ScanMaxPairs
	if maxPairs <= 0 {
		maxPairs = 2000
	}
	pct, err := scandist.Scan(ctx, frameReaderAdapter{scanSrc}, maxPairs)
	if err != nil {
		return 0, newClusterError(ErrCodeSource, "running scan-distance pre-pass", err)
	}
	if !cfg.AutoRadius {
		e.log.WithFields(logrus.Fields{"min": pct.Min, "p20": pct.P20, "median": pct.Median, "p80": pct.P80, "max": pct.Max}).
			Info("anchorcluster: scan-distance pre-pass complete")
		return cfg.Radius, nil
	}
	radius := scandist.AutoRadius(pct, cfg.AutoRadiusK)
	e.log.WithField("radius", radius).Info("anchorcluster: auto-radius resolved from scan-distance pre-pass")
	return radius, nil
}

type frameReaderAdapter struct{ src *source.TextSource }

func (a frameReaderAdapter) NextVector(ctx context.Context) ([]float64, error) {
	f, err := a.src.Next(ctx)
	if err != nil {
		return nil, err
	}
	return f.Vec, nil
}

func (e *Engine) run(ctx context.Context, cfg Config, src source.FrameSource, inputName string) (Result, error) {
	start := time.Now()

	var metrics *telemetry.Metrics
	e.mu.Lock()
	metrics = e.metrics
	e.mu.Unlock()

	loop := runloop.New(cfg.toRunloopConfig(), metrics)

	loopRes, err := loop.Run(ctx, src)
	clusteringDur := time.Since(start)
	if err != nil {
		return Result{}, newClusterError(ErrCodeSource, "running clustering loop", err)
	}

	res := Result{
		cfg:      cfg,
		loopRes:  loopRes,
		duration: clusteringDur,
	}

	outStart := time.Now()
	if cfg.OutputDir != "" {
		if err := e.writeOutputs(cfg, loopRes, res, inputName); err != nil {
			e.log.WithError(err).Warn("anchorcluster: writing output files")
		}
	}
	res.outputDuration = time.Since(outStart)

	if loopRes.Stopped != nil {
		return res, newWarning(ErrCodeCapacityStop, "run stopped early", loopRes.Stopped)
	}
	return res, nil
}

func (e *Engine) writeOutputs(cfg Config, loopRes runloop.Result, res Result, inputName string) error {
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("anchorcluster: creating output dir: %w", err)
	}

	header := output.ClusteredHeader{
		Params: configfile.ToParams(toConfigFile(cfg)),
		Stats: map[string]string{
			"frames":   fmt.Sprintf("%d", loopRes.FramesProcessed),
			"clusters": fmt.Sprintf("%d", loopRes.Registry.Count()),
		},
	}
	if err := output.WriteAll(cfg.OutputDir, inputName, cfg.Output, header, loopRes.Records, loopRes.Registry, nil); err != nil {
		return fmt.Errorf("anchorcluster: writing selected outputs: %w", err)
	}

	runLog := &telemetry.RunLog{
		Cmd:              "anchorcluster",
		StartTime:        time.Now().Add(-res.duration).Format(time.RFC3339),
		TimeClusteringMS: res.duration.Milliseconds(),
		TimeOutputMS:     res.outputDuration.Milliseconds(),
		OutputDir:        cfg.OutputDir,
		Params:           configfile.ToParams(toConfigFile(cfg)),
		StatsClusters:    loopRes.Registry.Count(),
		StatsFrames:      loopRes.FramesProcessed,
		StatsDists:       loopRes.DistanceCalls,
		StatsPruned:      loopRes.Pruned,
		StatsMaxRSSKB:    loopRes.MaxRSSKB,
		DistHist:         loopRes.DistHist,
	}
	if err := runLog.Write(filepath.Join(cfg.OutputDir, "cluster_run.log")); err != nil {
		return fmt.Errorf("anchorcluster: writing run log: %w", err)
	}

	if cfg.SummaryYAMLPath != "" {
		summary := telemetry.Summary{
			Cmd:              runLog.Cmd,
			StartTime:        runLog.StartTime,
			TimeClusteringMS: runLog.TimeClusteringMS,
			TimeOutputMS:     runLog.TimeOutputMS,
			OutputDir:        runLog.OutputDir,
			Params:           runLog.Params,
			Stats: telemetry.SummaryStats{
				Clusters: runLog.StatsClusters,
				Frames:   runLog.StatsFrames,
				Dists:    runLog.StatsDists,
				Pruned:   runLog.StatsPruned,
				MaxRSSKB: runLog.StatsMaxRSSKB,
			},
		}
		if err := telemetry.WriteSummaryYAML(cfg.SummaryYAMLPath, summary); err != nil {
			return fmt.Errorf("anchorcluster: writing summary sidecar: %w", err)
		}
	}
	return nil
}

func toConfigFile(cfg Config) configfile.Config {
	return configfile.Config{
		Radius:        cfg.Radius,
		AutoRadius:    cfg.AutoRadius,
		AutoRadiusK:   cfg.AutoRadiusK,
		DeltaProb:     cfg.DeltaProb,
		MaxClusters:   cfg.MaxClusters,
		MaxFrames:     cfg.MaxFrames,
		NCPU:          cfg.NCPU,
		OutputDir:     cfg.OutputDir,
		GProb:         cfg.GProb,
		FMatchA:       cfg.FMatchA,
		FMatchB:       cfg.FMatchB,
		MaxVisitors:   cfg.MaxVisitors,
		TE4:           cfg.TE4,
		TE5:           cfg.TE5,
		TMMixing:      cfg.TMMixing,
		MaxClStrategy: configFileStrategyOf(cfg.MaxClStrategy),
		DiscardFrac:   cfg.DiscardFrac,
		Predict: configfile.PredictParams{
			Enabled: cfg.Predict.Enabled,
			L:       cfg.Predict.L,
			H:       cfg.Predict.H,
			N:       cfg.Predict.N,
		},
		ScanDist:        cfg.ScanDist,
		OutputTM:        cfg.Output.Transition,
		OutputAnchors:   cfg.Output.Anchors,
		OutputCounts:    cfg.Output.Counts,
		OutputMembers:   cfg.Output.Membership,
		OutputDiscards:  cfg.Output.Discarded,
		OutputClustered: cfg.Output.Clustered,
	}
}

func capacityStrategyOf(s configfile.Strategy) capacity.Strategy {
	switch s {
	case configfile.StrategyDiscard:
		return capacity.Discard
	case configfile.StrategyMerge:
		return capacity.Merge
	default:
		return capacity.Stop
	}
}

func configFileStrategyOf(s capacity.Strategy) configfile.Strategy {
	switch s {
	case capacity.Discard:
		return configfile.StrategyDiscard
	case capacity.Merge:
		return configfile.StrategyMerge
	default:
		return configfile.StrategyStop
	}
}

// Close releases resources held by the engine. An Engine is safe to Close
// more than once.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

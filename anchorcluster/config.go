package anchorcluster

import (
	"github.com/sirupsen/logrus"

	"github.com/anchorcluster/anchorcluster/internal/capacity"
	"github.com/anchorcluster/anchorcluster/internal/output"
	"github.com/anchorcluster/anchorcluster/internal/runloop"
)

// PredictConfig is the pred[l,h,n] sequence-prediction setting: match the
// last L cluster ids seen in the last H transitions, and if they match,
// boost N candidates to the front of the ordering.
type PredictConfig struct {
	Enabled bool
	L, H, N int
}

// Config is the Engine's full option set, matching spec.md §3's table plus
// the ambient/domain additions SPEC_FULL §3 describes. Config is immutable
// once New returns, per spec.md's "immutable after parse" invariant —
// mutate it only through Option values passed to New.
type Config struct {
	// Admission rule.
	Radius      float64
	AutoRadius  bool
	AutoRadiusK float64
	Metric      Metric

	// Run bounds.
	DeltaProb   float64
	MaxClusters int
	MaxFrames   int64
	NCPU        int

	// Candidate ordering and pruning.
	TE4      bool
	TE5      bool
	TMMixing float64
	Predict  PredictConfig

	// Geometric-similarity boost.
	GProb   bool
	FMatchA float64
	FMatchB float64

	MaxVisitors int

	// Capacity policy.
	MaxClStrategy capacity.Strategy
	DiscardFrac   float64

	// Scan-distance pre-pass.
	ScanDist     bool
	ScanMaxPairs int

	// Output selection, mirroring internal/output.Selection plus the
	// directory every writer shares.
	OutputDir string
	Output    output.Selection

	// (expansion) Ambient stack.
	LogLevel       logrus.Level
	Logger         *logrus.Logger
	MetricsEnabled bool

	// (expansion) Checkpoint persistence.
	CheckpointPath  string
	CheckpointEvery int

	// (expansion) Structured summary sidecar; empty disables.
	SummaryYAMLPath string
}

// defaultConfig returns the documented defaults, matching
// internal/configfile.Default() for every option the two share.
func defaultConfig() Config {
	return Config{
		DeltaProb:     0.01,
		MaxClusters:   1000,
		NCPU:          1,
		FMatchA:       1.0,
		FMatchB:       0.0,
		MaxVisitors:   16,
		TMMixing:      0.0,
		MaxClStrategy: capacity.Stop,
		DiscardFrac:   0.1,
		ScanMaxPairs:  2000,
		Output:        output.Selection{Membership: true},
		LogLevel:      logrus.InfoLevel,
	}
}

func (c Config) toRunloopConfig() runloop.Config {
	return runloop.Config{
		Radius:      c.Radius,
		DeltaProb:   c.DeltaProb,
		MaxClusters: c.MaxClusters,
		MaxVisitors: c.MaxVisitors,
		SeqHistLen:  c.Predict.H,
		MaxFrames:   c.MaxFrames,
		TE4:         c.TE4,
		TE5:         c.TE5,
		NCPU:        c.NCPU,
		TMMixing:    c.TMMixing,
		Predict: runloop.PredictConfig{
			Enabled: c.Predict.Enabled,
			L:       c.Predict.L,
			H:       c.Predict.H,
			N:       c.Predict.N,
		},
		GProb:           c.GProb,
		FMatchA:         c.FMatchA,
		FMatchB:         c.FMatchB,
		Capacity:        capacity.Policy{Strategy: c.MaxClStrategy, DiscardFrac: c.DiscardFrac},
		CheckpointPath:  c.CheckpointPath,
		CheckpointEvery: c.CheckpointEvery,
		Logger:          c.Logger,
	}
}

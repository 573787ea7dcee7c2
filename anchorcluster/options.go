package anchorcluster

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/anchorcluster/anchorcluster/internal/capacity"
)

// Option configures a Config during New. Options are applied in the order
// given; a later option overrides an earlier one touching the same field.
type Option func(*Config) error

// WithRadius sets the fixed admission radius R.
func WithRadius(r float64) Option {
	return func(c *Config) error {
		if r <= 0 {
			return fmt.Errorf("anchorcluster: radius must be positive, got %v", r)
		}
		c.Radius = r
		c.AutoRadius = false
		return nil
	}
}

// WithAutoRadius enables auto-R: the admission radius is set to k times the
// median inter-frame distance measured by the scan-distance pre-pass.
func WithAutoRadius(k float64) Option {
	return func(c *Config) error {
		if k <= 0 {
			return fmt.Errorf("anchorcluster: auto-radius factor must be positive, got %v", k)
		}
		c.AutoRadius = true
		c.AutoRadiusK = k
		return nil
	}
}

// WithDeltaProb sets the probability bump added to the assigned cluster
// each frame.
func WithDeltaProb(p float64) Option {
	return func(c *Config) error {
		if p < 0 {
			return fmt.Errorf("anchorcluster: dprob must be non-negative, got %v", p)
		}
		c.DeltaProb = p
		return nil
	}
}

// WithMaxClusters sets the cluster capacity ceiling.
func WithMaxClusters(n int) Option {
	return func(c *Config) error {
		if n <= 0 {
			return fmt.Errorf("anchorcluster: maxcl must be positive, got %d", n)
		}
		c.MaxClusters = n
		return nil
	}
}

// WithMaxFrames caps the number of frames processed before the run loop
// stops on its own, independent of source exhaustion. 0 means unbounded.
func WithMaxFrames(n int64) Option {
	return func(c *Config) error {
		if n < 0 {
			return fmt.Errorf("anchorcluster: maxim must be non-negative, got %d", n)
		}
		c.MaxFrames = n
		return nil
	}
}

// WithNCPU sets the worker count used to parallelize candidate bound
// computation.
func WithNCPU(n int) Option {
	return func(c *Config) error {
		if n < 1 {
			return fmt.Errorf("anchorcluster: ncpu must be at least 1, got %d", n)
		}
		c.NCPU = n
		return nil
	}
}

// WithTrianglePruning enables the 4-point and/or 5-point triangle-inequality
// bounds on top of the always-on 3-point bound.
func WithTrianglePruning(te4, te5 bool) Option {
	return func(c *Config) error {
		c.TE4 = te4
		c.TE5 = te5
		return nil
	}
}

// WithTransitionMixing sets the [0,1] mixing weight blending
// transition-matrix-derived scores into candidate ordering.
func WithTransitionMixing(w float64) Option {
	return func(c *Config) error {
		if w < 0 || w > 1 {
			return fmt.Errorf("anchorcluster: tm must be in [0,1], got %v", w)
		}
		c.TMMixing = w
		return nil
	}
}

// WithPrediction enables the sequence-prediction candidate booster: match
// the last l cluster ids within a window of h transitions, and if matched,
// boost n candidates to the front of the ordering.
func WithPrediction(l, h, n int) Option {
	return func(c *Config) error {
		if l <= 0 || h <= 0 || n <= 0 {
			return fmt.Errorf("anchorcluster: pred[l,h,n] requires positive l, h, n, got [%d,%d,%d]", l, h, n)
		}
		if l > h {
			return fmt.Errorf("anchorcluster: pred[l,h,n] requires l <= h, got l=%d h=%d", l, h)
		}
		c.Predict = PredictConfig{Enabled: true, L: l, H: h, N: n}
		return nil
	}
}

// WithGeometricBoost enables the gprob candidate-reweighting boost with the
// given linear reward curve endpoints.
func WithGeometricBoost(fmatcha, fmatchb float64) Option {
	return func(c *Config) error {
		c.GProb = true
		c.FMatchA = fmatcha
		c.FMatchB = fmatchb
		return nil
	}
}

// WithMaxVisitors sets the per-cluster visitor ring-buffer length.
func WithMaxVisitors(n int) Option {
	return func(c *Config) error {
		if n <= 0 {
			return fmt.Errorf("anchorcluster: maxvis must be positive, got %d", n)
		}
		c.MaxVisitors = n
		return nil
	}
}

// WithCapacityStrategy sets the policy applied when maxcl is reached: stop
// the run, discard the least-visited of the oldest discardFrac fraction, or
// merge the DCC-nearest live pair.
func WithCapacityStrategy(strategy capacity.Strategy, discardFrac float64) Option {
	return func(c *Config) error {
		switch strategy {
		case capacity.Stop, capacity.Discard, capacity.Merge:
		default:
			return fmt.Errorf("anchorcluster: unknown capacity strategy %q", strategy)
		}
		if strategy == capacity.Discard && (discardFrac <= 0 || discardFrac > 1) {
			return fmt.Errorf("anchorcluster: discard_frac must be in (0,1], got %v", discardFrac)
		}
		c.MaxClStrategy = strategy
		c.DiscardFrac = discardFrac
		return nil
	}
}

// WithScanDist enables the scan-distance pre-pass over up to maxPairs
// consecutive-frame distances before clustering begins.
func WithScanDist(maxPairs int) Option {
	return func(c *Config) error {
		if maxPairs <= 0 {
			return fmt.Errorf("anchorcluster: scandist max pairs must be positive, got %d", maxPairs)
		}
		c.ScanDist = true
		c.ScanMaxPairs = maxPairs
		return nil
	}
}

// WithOutputDir sets the directory every selected output file is written
// under.
func WithOutputDir(dir string) Option {
	return func(c *Config) error {
		if dir == "" {
			return fmt.Errorf("anchorcluster: output dir must not be empty")
		}
		c.OutputDir = dir
		return nil
	}
}

// WithOutputs replaces the selected output files. The zero value selects no
// file at all, not even frame_membership.txt (which defaultConfig selects).
func WithOutputs(sel OutputSelection) Option {
	return func(c *Config) error {
		c.Output = sel.toInternal()
		return nil
	}
}

// WithMetrics enables Prometheus instrumentation via internal/telemetry.
// Registers against the default registry, so a process should construct at
// most one metrics-enabled Engine — promauto panics on double
// registration, matching the teacher's own metrics wiring.
func WithMetrics(enabled bool) Option {
	return func(c *Config) error {
		c.MetricsEnabled = enabled
		return nil
	}
}

// WithLogger installs a caller-provided logrus logger, overriding LogLevel.
func WithLogger(log *logrus.Logger) Option {
	return func(c *Config) error {
		if log == nil {
			return fmt.Errorf("anchorcluster: logger must not be nil")
		}
		c.Logger = log
		return nil
	}
}

// WithLogLevel sets the verbosity of the default logger, mirroring the
// original tool's -verbose/-veryverbose flags.
func WithLogLevel(level logrus.Level) Option {
	return func(c *Config) error {
		c.LogLevel = level
		return nil
	}
}

// WithCheckpoint enables periodic badger-backed checkpointing of the
// cluster registry to path, every interval frames. A zero interval disables
// periodic writes but still attempts a restore on startup.
func WithCheckpoint(path string, interval int) Option {
	return func(c *Config) error {
		if path == "" {
			return fmt.Errorf("anchorcluster: checkpoint path must not be empty")
		}
		if interval < 0 {
			return fmt.Errorf("anchorcluster: checkpoint interval must be non-negative, got %d", interval)
		}
		c.CheckpointPath = path
		c.CheckpointEvery = interval
		return nil
	}
}

// WithSummaryYAML enables the yaml.v3 structured run summary sidecar at
// path, written alongside cluster_run.log.
func WithSummaryYAML(path string) Option {
	return func(c *Config) error {
		if path == "" {
			return fmt.Errorf("anchorcluster: summary yaml path must not be empty")
		}
		c.SummaryYAMLPath = path
		return nil
	}
}

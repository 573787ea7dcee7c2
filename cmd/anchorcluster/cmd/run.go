package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/anchorcluster/anchorcluster"
	"github.com/anchorcluster/anchorcluster/internal/capacity"
)

var (
	dprob          float64
	maxcl          int
	maxim          int64
	gprob          bool
	fmatcha        float64
	fmatchb        float64
	maxvis         int
	predFlag       string
	te4            bool
	te5            bool
	tm             float64
	maxclStrategy  string
	discardFrac    float64
	ncpu           int
	scandistPre    bool
	scandistPairs  int
	outDir         string
	outAnchors     bool
	outCounts      bool
	outDiscards    bool
	outTM          bool
	outDCC         bool
	outClustered   bool
	checkpointPath string
	checkpointEach int
	summaryYAML    bool
	verbose        bool
	veryVerbose    bool
	metricsOn      bool
)

var runCmd = &cobra.Command{
	Use:   "run <rlim> <input>",
	Short: "Cluster a frame file, where rlim is a fixed radius or aK for auto-R = K x median scan distance",
	Args:  cobra.ExactArgs(2),
	RunE:  runCluster,
}

// parseRlim mirrors internal/configfile's "aK" auto-radius syntax: a bare
// float is a fixed radius, an "a"-prefixed float is the auto-radius factor
// K applied to the scan-distance pre-pass's median.
func parseRlim(raw string) (opt anchorcluster.Option, err error) {
	if strings.HasPrefix(raw, "a") {
		k, err := strconv.ParseFloat(raw[1:], 64)
		if err != nil {
			return nil, fmt.Errorf("parsing auto-rlim factor %q: %w", raw, err)
		}
		return anchorcluster.WithAutoRadius(k), nil
	}
	r, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing rlim %q: %w", raw, err)
	}
	return anchorcluster.WithRadius(r), nil
}

// parsePred parses the "l,h,n" form of --pred (brackets are optional on the
// CLI since the shell would otherwise need escaping).
func parsePred(raw string) (l, h, n int, err error) {
	raw = strings.TrimPrefix(raw, "[")
	raw = strings.TrimSuffix(raw, "]")
	parts := strings.Split(raw, ",")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("pred must be of the form l,h,n, got %q", raw)
	}
	vals := make([]int, 3)
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return 0, 0, 0, fmt.Errorf("pred value %q: %w", p, err)
		}
		vals[i] = v
	}
	return vals[0], vals[1], vals[2], nil
}

func runCluster(cmd *cobra.Command, args []string) error {
	rlimOpt, err := parseRlim(args[0])
	if err != nil {
		return err
	}
	input := args[1]

	switch {
	case veryVerbose:
		log.SetLevel(logrus.TraceLevel)
	case verbose:
		log.SetLevel(logrus.DebugLevel)
	default:
		log.SetLevel(logrus.InfoLevel)
	}

	opts := []anchorcluster.Option{
		rlimOpt,
		anchorcluster.WithLogger(log),
		anchorcluster.WithDeltaProb(dprob),
		anchorcluster.WithMaxClusters(maxcl),
		anchorcluster.WithMaxFrames(maxim),
		anchorcluster.WithMaxVisitors(maxvis),
		anchorcluster.WithTrianglePruning(te4, te5),
		anchorcluster.WithTransitionMixing(tm),
		anchorcluster.WithNCPU(ncpu),
	}

	if gprob {
		opts = append(opts, anchorcluster.WithGeometricBoost(fmatcha, fmatchb))
	}
	if predFlag != "" {
		l, h, n, err := parsePred(predFlag)
		if err != nil {
			return err
		}
		opts = append(opts, anchorcluster.WithPrediction(l, h, n))
	}
	if scandistPre {
		opts = append(opts, anchorcluster.WithScanDist(scandistPairs))
	}
	if metricsOn {
		opts = append(opts, anchorcluster.WithMetrics(true))
	}
	if checkpointPath != "" {
		opts = append(opts, anchorcluster.WithCheckpoint(checkpointPath, checkpointEach))
	}

	strategy, err := parseStrategy(maxclStrategy)
	if err != nil {
		return err
	}
	opts = append(opts, anchorcluster.WithCapacityStrategy(strategy, discardFrac))

	if outDir != "" {
		opts = append(opts, anchorcluster.WithOutputDir(outDir))
		opts = append(opts, anchorcluster.WithOutputs(anchorcluster.OutputSelection{
			Anchors:    outAnchors,
			Membership: true,
			DCC:        outDCC,
			Transition: outTM,
			Counts:     outCounts,
			Discarded:  outDiscards,
			Clustered:  outClustered,
		}))
		if summaryYAML {
			opts = append(opts, anchorcluster.WithSummaryYAML(outDir+"/run_summary.yaml"))
		}
	}

	engine, err := anchorcluster.New(opts...)
	if err != nil {
		return err
	}
	defer engine.Close()

	res, err := engine.RunFile(context.Background(), input)
	var clusterErr *anchorcluster.ClusterError
	if err != nil && (!errors.As(err, &clusterErr) || clusterErr.Severity == anchorcluster.SeverityFatal) {
		return err
	}
	if clusterErr != nil {
		log.WithError(clusterErr).Warn("anchorcluster: run stopped early")
	}

	stats := res.Stats()
	log.WithFields(logrus.Fields{
		"clusters_live":    stats.ClustersLive,
		"clusters_total":   stats.ClustersTotal,
		"frames_processed": stats.FramesProcessed,
		"distance_calls":   stats.DistanceCalls,
		"pruned":           stats.Pruned,
	}).Info("anchorcluster: run complete")
	return err
}

func parseStrategy(s string) (capacity.Strategy, error) {
	switch capacity.Strategy(s) {
	case capacity.Stop, capacity.Discard, capacity.Merge:
		return capacity.Strategy(s), nil
	default:
		return "", fmt.Errorf("unknown maxcl_strategy %q, want stop, discard, or merge", s)
	}
}

func init() {
	f := runCmd.Flags()
	f.Float64Var(&dprob, "dprob", 0.01, "probability bump added to the chosen cluster per frame")
	f.IntVar(&maxcl, "maxcl", 1000, "cluster capacity ceiling")
	f.Int64Var(&maxim, "maxim", 0, "maximum frames to process, 0 for unbounded")
	f.BoolVar(&gprob, "gprob", false, "enable geometric-similarity boost")
	f.Float64Var(&fmatcha, "fmatcha", 1.0, "gprob linear reward curve start")
	f.Float64Var(&fmatchb, "fmatchb", 0.0, "gprob linear reward curve end")
	f.IntVar(&maxvis, "maxvis", 16, "ring-buffer length of per-cluster visitor history")
	f.StringVar(&predFlag, "pred", "", "sequence-prediction as l,h,n: match last l ids in last h, boost n candidates")
	f.BoolVar(&te4, "te4", false, "enable 4-point triangle-inequality pruning")
	f.BoolVar(&te5, "te5", false, "enable 5-point triangle-inequality pruning")
	f.Float64Var(&tm, "tm", 0.0, "transition-matrix mixing weight in [0,1]")
	f.StringVar(&maxclStrategy, "maxcl-strategy", "stop", "capacity policy when maxcl is reached: stop, discard, or merge")
	f.Float64Var(&discardFrac, "discard-frac", 0.1, "fraction of oldest clusters considered for eviction under the discard strategy")
	f.IntVar(&ncpu, "ncpu", 1, "worker count for parallel pruning checks")
	f.BoolVar(&scandistPre, "scandist", false, "run the scan-distance pre-pass before clustering")
	f.IntVar(&scandistPairs, "scandist-max-pairs", 2000, "maximum consecutive-frame distances sampled by the pre-pass")
	f.StringVar(&outDir, "out", "", "output directory; empty disables all file output")
	f.BoolVar(&outAnchors, "out-anchors", false, "write anchors.txt")
	f.BoolVar(&outCounts, "out-counts", false, "write cluster_counts.txt")
	f.BoolVar(&outDiscards, "out-discards", false, "write discarded_frames.txt")
	f.BoolVar(&outTM, "out-tm", false, "write transition_matrix.txt")
	f.BoolVar(&outDCC, "out-dcc", false, "write dcc.txt")
	f.BoolVar(&outClustered, "out-clustered", false, "write <input>.clustered.txt")
	f.StringVar(&checkpointPath, "checkpoint", "", "badger checkpoint directory; empty disables checkpointing")
	f.IntVar(&checkpointEach, "checkpoint-every", 0, "frames between periodic checkpoint saves")
	f.BoolVar(&summaryYAML, "summary-yaml", false, "write run_summary.yaml alongside cluster_run.log")
	f.BoolVar(&verbose, "verbose", false, "debug-level logging")
	f.BoolVar(&veryVerbose, "vv", false, "trace-level logging")
	f.BoolVar(&metricsOn, "metrics", false, "enable Prometheus instrumentation")
}

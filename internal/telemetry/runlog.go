package telemetry

import (
	"bufio"
	"fmt"
	"os"
	"sort"
)

// DistHistBin is one row of the STATS_DIST_HIST block: how many frames made
// exactly k distance calls, and how many candidates were pruned at
// measurement step k across the whole run.
type DistHistBin struct {
	Step              int
	FramesWithKCalls  uint64
	PrunedAtStep      uint64
}

// RunLog accumulates the key/value run summary spec.md §6 requires. Params
// holds every configuration option under its PARAM_ prefix, already
// formatted as strings by the caller (internal/configfile shares the same
// key names).
type RunLog struct {
	Cmd               string
	StartTime         string
	TimeClusteringMS  int64
	TimeOutputMS      int64
	OutputDir         string
	Params            map[string]string
	StatsClusters     int
	StatsFrames       uint64
	StatsDists        uint64
	StatsPruned       uint64
	StatsMaxRSSKB     uint64
	DistHist          []DistHistBin
}

// Write renders the log in the exact key/value text format spec.md §6
// specifies: this is a bespoke, line-oriented run summary format unique to
// this tool, not a JSON/YAML/TOML document, so it is written directly with
// bufio rather than through a serialization library (the yaml.v3 sidecar
// in summary.go covers the structured-output use case instead).
func (l *RunLog) Write(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("telemetry: creating run log %q: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	line := func(k, v string) { fmt.Fprintf(w, "%s %s\n", k, v) }

	line("CMD", l.Cmd)
	line("START_TIME", l.StartTime)
	line("TIME_CLUSTERING_MS", fmt.Sprintf("%d", l.TimeClusteringMS))
	line("TIME_OUTPUT_MS", fmt.Sprintf("%d", l.TimeOutputMS))
	line("OUTPUT_DIR", l.OutputDir)

	keys := make([]string, 0, len(l.Params))
	for k := range l.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		line("PARAM_"+k, l.Params[k])
	}

	line("STATS_CLUSTERS", fmt.Sprintf("%d", l.StatsClusters))
	line("STATS_FRAMES", fmt.Sprintf("%d", l.StatsFrames))
	line("STATS_DISTS", fmt.Sprintf("%d", l.StatsDists))
	line("STATS_PRUNED", fmt.Sprintf("%d", l.StatsPruned))
	line("STATS_MAX_RSS_KB", fmt.Sprintf("%d", l.StatsMaxRSSKB))

	line("STATS_DIST_HIST_START", "")
	for _, bin := range l.DistHist {
		if bin.FramesWithKCalls == 0 && bin.PrunedAtStep == 0 {
			continue
		}
		fmt.Fprintf(w, "%d %d %d\n", bin.Step, bin.FramesWithKCalls, bin.PrunedAtStep)
	}
	line("STATS_DIST_HIST_END", "")

	return w.Flush()
}

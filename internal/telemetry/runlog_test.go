package telemetry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunLogWriteContainsRequiredKeys(t *testing.T) {
	l := &RunLog{
		Cmd:       "anchorcluster run 1.0 in.txt",
		StartTime: "2026-08-01T00:00:00Z",
		OutputDir: "out",
		Params:    map[string]string{"rlim": "1.0", "maxcl": "100"},
		StatsClusters: 2,
		StatsFrames:   10,
		StatsDists:    5,
		StatsPruned:   3,
		StatsMaxRSSKB: 1024,
		DistHist:      []DistHistBin{{Step: 0, FramesWithKCalls: 4, PrunedAtStep: 3}},
	}
	path := filepath.Join(t.TempDir(), "run.log")
	require.NoError(t, l.Write(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)

	for _, key := range []string{
		"CMD ", "START_TIME ", "TIME_CLUSTERING_MS ", "TIME_OUTPUT_MS ",
		"OUTPUT_DIR ", "PARAM_rlim ", "PARAM_maxcl ", "STATS_CLUSTERS ",
		"STATS_FRAMES ", "STATS_DISTS ", "STATS_PRUNED ", "STATS_MAX_RSS_KB ",
		"STATS_DIST_HIST_START", "STATS_DIST_HIST_END",
	} {
		assert.True(t, strings.Contains(content, key), "missing key %q", key)
	}
	assert.Contains(t, content, "0 4 3")
}

func TestSummaryYAMLRoundTrips(t *testing.T) {
	s := Summary{
		Cmd:       "anchorcluster run 1.0 in.txt",
		OutputDir: "out",
		Params:    map[string]string{"rlim": "1.0"},
		Stats:     SummaryStats{Clusters: 2, Frames: 10},
	}
	path := filepath.Join(t.TempDir(), "summary.yaml")
	require.NoError(t, WriteSummaryYAML(path, s))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "clusters: 2")
}

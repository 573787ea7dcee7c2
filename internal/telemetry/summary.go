package telemetry

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Summary is the structured, machine-readable counterpart to RunLog,
// written alongside cluster_run.log for tooling that prefers parsing a
// document over a flat key/value format.
type Summary struct {
	Cmd              string            `yaml:"cmd"`
	StartTime        string            `yaml:"start_time"`
	TimeClusteringMS int64             `yaml:"time_clustering_ms"`
	TimeOutputMS     int64             `yaml:"time_output_ms"`
	OutputDir        string            `yaml:"output_dir"`
	Params           map[string]string `yaml:"params"`
	Stats            SummaryStats      `yaml:"stats"`
}

// SummaryStats mirrors RunLog's STATS_* keys as typed YAML fields.
type SummaryStats struct {
	Clusters  int    `yaml:"clusters"`
	Frames    uint64 `yaml:"frames"`
	Dists     uint64 `yaml:"dists"`
	Pruned    uint64 `yaml:"pruned"`
	MaxRSSKB  uint64 `yaml:"max_rss_kb"`
}

// WriteSummaryYAML marshals a Summary to path. Callers should only invoke
// this when Config.SummaryYAMLPath is set — the sidecar is optional.
func WriteSummaryYAML(path string, s Summary) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("telemetry: marshaling run summary: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("telemetry: writing run summary %q: %w", path, err)
	}
	return nil
}

package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes the run's live counters for scraping, complementing the
// archival cluster_run.log: Prometheus for watching a long run in
// progress, the flat file for the permanent record.
type Metrics struct {
	DistanceCalls    prometheus.Counter
	ClustersCreated  prometheus.Counter
	ClustersDiscarded prometheus.Counter
	ClustersMerged   prometheus.Counter
	FramesProcessed  prometheus.Counter
	PrunedFraction   prometheus.Histogram
	DistancesPerFrame prometheus.Histogram
}

// NewMetrics registers and returns the counter/histogram set. Call once per
// process; a second call against the same registry will panic, matching
// promauto's documented behavior.
func NewMetrics() *Metrics {
	return &Metrics{
		DistanceCalls: promauto.NewCounter(prometheus.CounterOpts{
			Name: "anchorcluster_distance_calls_total",
			Help: "Total exact distance calls made by the pruning engine.",
		}),
		ClustersCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "anchorcluster_clusters_created_total",
			Help: "Total clusters spawned.",
		}),
		ClustersDiscarded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "anchorcluster_clusters_discarded_total",
			Help: "Total clusters evicted by the discard capacity strategy.",
		}),
		ClustersMerged: promauto.NewCounter(prometheus.CounterOpts{
			Name: "anchorcluster_clusters_merged_total",
			Help: "Total clusters folded away by the merge capacity strategy.",
		}),
		FramesProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "anchorcluster_frames_processed_total",
			Help: "Total frames consumed from the source.",
		}),
		PrunedFraction: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "anchorcluster_pruned_fraction",
			Help:    "Fraction of candidates pruned without an exact distance call, per frame.",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		}),
		DistancesPerFrame: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "anchorcluster_distances_per_frame",
			Help:    "Exact distance calls made per frame.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
	}
}

package anchorcluster

import (
	"github.com/anchorcluster/anchorcluster/internal/output"
	"github.com/anchorcluster/anchorcluster/internal/telemetry"
)

// Metric selects the distance function the admission rule is evaluated
// against. Only L2 is implemented — the type stays open for forward
// compatibility the way libravdb.DistanceMetric does, since the R-radius
// contract spec.md defines is itself stated in Euclidean terms.
type Metric int

const (
	MetricL2 Metric = iota
)

func (m Metric) String() string {
	switch m {
	case MetricL2:
		return "l2"
	default:
		return "unknown"
	}
}

// Assignment is one resolved frame-to-cluster decision, the public mirror
// of internal/output.MembershipRecord.
type Assignment struct {
	FrameIndex uint64
	ClusterID  int
	Discarded  bool
}

// ClusterSummary describes one live or tombstoned cluster at the end of a
// run, enough to drive a caller's own reporting without reaching into
// internal/registry directly.
type ClusterSummary struct {
	ID          int
	Anchor      []float64
	Hits        uint64
	Probability float64
	Live        bool
	Discarded   bool
}

// Stats is the public summary of a completed or interrupted run.
type Stats struct {
	ClustersLive    int
	ClustersTotal   int
	FramesProcessed uint64
	DistanceCalls   uint64
	Pruned          uint64
	DistHist        []telemetry.DistHistBin
	Health          telemetry.Health
}

// OutputSelection names which result files a run writes, mirroring
// spec.md §6's output table. The zero value selects nothing.
type OutputSelection struct {
	Anchors    bool
	Membership bool
	DCC        bool
	Transition bool
	Counts     bool
	Discarded  bool
	Clustered  bool
}

func (s OutputSelection) toInternal() output.Selection {
	return output.Selection{
		Anchors:    s.Anchors,
		Membership: s.Membership,
		DCC:        s.DCC,
		Transition: s.Transition,
		Counts:     s.Counts,
		Discarded:  s.Discarded,
		Clustered:  s.Clustered,
	}
}

func assignmentsFrom(records []output.MembershipRecord) []Assignment {
	out := make([]Assignment, len(records))
	for i, r := range records {
		out[i] = Assignment{FrameIndex: r.FrameIndex, ClusterID: r.ClusterID, Discarded: r.Discarded}
	}
	return out
}

package telemetry

// Status is the coarse health state of a running engine, queried by
// whatever host process embeds it (a supervisor, a liveness probe).
type Status string

const (
	StatusRunning          Status = "running"
	StatusSourceStalled    Status = "source_stalled"
	StatusCapacityExceeded Status = "capacity_exceeded"
	StatusStopped          Status = "stopped"
)

// Health reports the engine's current lifecycle status alongside the
// counters a caller would want without scraping Prometheus: frames
// processed so far and the last error observed, if any.
type Health struct {
	Status          Status
	FramesProcessed uint64
	LastError       string
}

// Checker is a minimal health-check interface for a host process to poll.
// Nothing in this module implements it; a finished run reports its Health
// through the anchorcluster package's run statistics.
type Checker interface {
	Health() Health
}

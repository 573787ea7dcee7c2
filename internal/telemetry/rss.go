package telemetry

import (
	"sync"
	"syscall"
)

// RSSMonitor tracks the peak resident memory observed during a run, sampled
// periodically by the run loop (STATS_MAX_RSS_KB in the run log). Mirrors
// the reference tool's getrusage(RUSAGE_SELF).ru_maxrss sampling rather than
// the Go runtime's own heap accounting: ru_maxrss is the kernel's own
// high-water mark of the process's resident set, which is what the run log
// is documenting, not Go's heap-in-use figure.
type RSSMonitor struct {
	mu      sync.Mutex
	peakKB  uint64
	samples int
}

// NewRSSMonitor returns a monitor with no samples taken yet.
func NewRSSMonitor() *RSSMonitor { return &RSSMonitor{} }

// Sample reads the process's current maximum resident set size via
// getrusage and updates the running peak. ru_maxrss is already a
// kernel-maintained high-water mark on Linux, reported in kilobytes, so
// even infrequent sampling reflects the true peak up to that point; a
// failed syscall leaves the running peak untouched.
func (m *RSSMonitor) Sample() {
	var usage syscall.Rusage
	if err := syscall.Getrusage(syscall.RUSAGE_SELF, &usage); err != nil {
		return
	}
	kb := uint64(usage.Maxrss)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.samples++
	if kb > m.peakKB {
		m.peakKB = kb
	}
}

// PeakKB returns the highest ru_maxrss figure observed across every Sample
// call, in kilobytes.
func (m *RSSMonitor) PeakKB() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.peakKB
}

package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

// StallState is the state of a StallGuard: closed (reads proceed),
// open (reads are rejected until the cooldown expires), or probing (a
// single trial read is allowed to decide whether the producer recovered).
type StallState int

const (
	StallClosed StallState = iota
	StallOpen
	StallProbing
)

func (s StallState) String() string {
	switch s {
	case StallClosed:
		return "CLOSED"
	case StallOpen:
		return "OPEN"
	case StallProbing:
		return "PROBING"
	default:
		return "UNKNOWN"
	}
}

// StallGuardConfig tunes how aggressively the guard backs off from a
// stalled shared-memory producer. SPEC_FULL §7 requires transient source
// stalls to be retried indefinitely until interrupted, never surfaced as a
// fatal error — the guard exists to keep that retry loop from busy-waiting
// against a producer that is genuinely wedged.
type StallGuardConfig struct {
	// MaxConsecutiveStalls opens the circuit after this many back-to-back
	// stalls.
	MaxConsecutiveStalls int
	// Cooldown is how long the guard stays open before probing again.
	Cooldown time.Duration
}

// DefaultStallGuardConfig mirrors a patient but bounded retry posture: a
// handful of immediate retries before backing off.
func DefaultStallGuardConfig() StallGuardConfig {
	return StallGuardConfig{MaxConsecutiveStalls: 5, Cooldown: 2 * time.Second}
}

// StallGuard wraps a ShmRingSource's Next call with a circuit-breaker-style
// backoff: repeated stalls (Next returning an error other than io.EOF, e.g.
// a producer-side timeout) open the circuit so the run loop waits out the
// cooldown instead of spinning, then admits one probe read per cooldown
// period to detect recovery.
type StallGuard struct {
	mu     sync.Mutex
	cfg    StallGuardConfig
	state  StallState
	stalls int
	openAt time.Time
}

// NewStallGuard wraps cfg into a ready-to-use guard in the closed state.
func NewStallGuard(cfg StallGuardConfig) *StallGuard {
	return &StallGuard{cfg: cfg, state: StallClosed}
}

// Allow reports whether a read attempt should proceed right now, advancing
// an open guard to probing once its cooldown has elapsed.
func (g *StallGuard) Allow(now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch g.state {
	case StallOpen:
		if now.Before(g.openAt.Add(g.cfg.Cooldown)) {
			return false
		}
		g.state = StallProbing
		return true
	default:
		return true
	}
}

// RecordResult feeds back whether the most recent read stalled, updating
// the guard's state machine.
func (g *StallGuard) RecordResult(stalled bool, now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !stalled {
		g.stalls = 0
		g.state = StallClosed
		return
	}

	g.stalls++
	if g.state == StallProbing || g.stalls >= g.cfg.MaxConsecutiveStalls {
		g.state = StallOpen
		g.openAt = now
	}
}

// State returns the guard's current state, primarily for telemetry.
func (g *StallGuard) State() StallState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Retry drives read against src.Next, honoring the stall guard's backoff
// and retrying indefinitely until ctx is cancelled — the specified policy
// for a transient shared-memory source stall. io.EOF from src.Next is end of
// stream, not a stall, and is returned as is.
func Retry(ctx context.Context, g *StallGuard, src ShmRingSource) (Frame, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Frame{}, err
		}
		now := time.Now()
		if !g.Allow(now) {
			select {
			case <-ctx.Done():
				return Frame{}, ctx.Err()
			case <-time.After(g.cfg.Cooldown):
			}
			continue
		}

		fr, err := src.Next(ctx)
		if err == nil {
			g.RecordResult(false, time.Now())
			if ackErr := src.AckHandshake(); ackErr != nil {
				return Frame{}, fmt.Errorf("source: acking handshake after consuming frame %d: %w", fr.Index, ackErr)
			}
			return fr, nil
		}
		if err == context.Canceled || err == context.DeadlineExceeded || errors.Is(err, io.EOF) {
			return Frame{}, err
		}
		g.RecordResult(true, time.Now())
	}
}

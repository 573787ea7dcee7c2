package source

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedShm struct {
	results []error
	frames  []Frame
	i       int
	acked   int
}

func (s *scriptedShm) Next(context.Context) (Frame, error) {
	if s.i >= len(s.results) {
		return Frame{}, errors.New("scriptedShm: exhausted")
	}
	err := s.results[s.i]
	fr := s.frames[s.i]
	s.i++
	return fr, err
}

func (s *scriptedShm) Close() error { return nil }

func (s *scriptedShm) AckHandshake() error {
	s.acked++
	return nil
}

func TestStallGuardOpensAfterConsecutiveStalls(t *testing.T) {
	g := NewStallGuard(StallGuardConfig{MaxConsecutiveStalls: 2, Cooldown: time.Millisecond})
	now := time.Now()
	assert.Equal(t, StallClosed, g.State())
	g.RecordResult(true, now)
	assert.Equal(t, StallClosed, g.State())
	g.RecordResult(true, now)
	assert.Equal(t, StallOpen, g.State())
}

func TestStallGuardClosesOnSuccess(t *testing.T) {
	g := NewStallGuard(StallGuardConfig{MaxConsecutiveStalls: 1, Cooldown: time.Millisecond})
	now := time.Now()
	g.RecordResult(true, now)
	assert.Equal(t, StallOpen, g.State())
	g.RecordResult(false, now)
	assert.Equal(t, StallClosed, g.State())
}

func TestRetryRecoversAfterTransientStall(t *testing.T) {
	errStall := errors.New("producer stalled")
	src := &scriptedShm{
		results: []error{errStall, nil},
		frames:  []Frame{{}, {Index: 1, Vec: []float64{1}}},
	}
	g := NewStallGuard(StallGuardConfig{MaxConsecutiveStalls: 5, Cooldown: time.Millisecond})

	fr, err := Retry(context.Background(), g, src)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), fr.Index)
	assert.Equal(t, 1, src.acked)
}

func TestRetryHonorsCancellation(t *testing.T) {
	errStall := errors.New("producer stalled")
	src := &scriptedShm{results: []error{errStall, errStall, errStall}, frames: make([]Frame, 3)}
	g := NewStallGuard(StallGuardConfig{MaxConsecutiveStalls: 100, Cooldown: time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Retry(ctx, g, src)
	assert.ErrorIs(t, err, context.Canceled)
}

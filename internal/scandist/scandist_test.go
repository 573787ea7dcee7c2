package scandist

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sliceReader struct {
	vecs [][]float64
	i    int
}

func (s *sliceReader) NextVector(ctx context.Context) ([]float64, error) {
	if s.i >= len(s.vecs) {
		return nil, io.EOF
	}
	v := s.vecs[s.i]
	s.i++
	return v, nil
}

func TestScanComputesPercentiles(t *testing.T) {
	r := &sliceReader{vecs: [][]float64{{0}, {1}, {2}, {3}, {4}, {5}}}
	p, err := Scan(context.Background(), r, 100)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, p.Min, 1e-9)
	assert.InDelta(t, 1.0, p.Max, 1e-9)
	assert.InDelta(t, 1.0, p.Median, 1e-9)
}

func TestScanStopsAtMaxPairs(t *testing.T) {
	r := &sliceReader{vecs: [][]float64{{0}, {1}, {2}, {3}}}
	p, err := Scan(context.Background(), r, 1)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, p.Median, 1e-9)
}

func TestScanEmptySourceYieldsZeroPercentiles(t *testing.T) {
	r := &sliceReader{}
	p, err := Scan(context.Background(), r, 10)
	require.NoError(t, err)
	assert.Equal(t, Percentiles{}, p)
}

func TestAutoRadiusScalesMedian(t *testing.T) {
	p := Percentiles{Median: 2.0}
	assert.InDelta(t, 6.0, AutoRadius(p, 3), 1e-9)
}

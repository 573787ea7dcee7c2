package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClusterProbabilityAndDCC(t *testing.T) {
	r := New(3, 10, 5, 0)

	c0, err := r.NewCluster([]float64{0, 0, 0}, 0)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), c0.ID)
	assert.Equal(t, 1.0, c0.Probability)

	c1, err := r.NewCluster([]float64{10, 10, 10}, 1)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, c1.Probability, 1e-9) // mean of [1.0] is 1.0

	r.RecordDCC(0, 1, 17.32)
	d, ok := r.DCC().Get(1, 0)
	assert.True(t, ok)
	assert.InDelta(t, 17.32, d, 1e-9)

	assert.Equal(t, 2, r.LiveCount())
}

func TestCapacityReached(t *testing.T) {
	r := New(1, 1, 5, 0)
	_, err := r.NewCluster([]float64{0}, 0)
	require.NoError(t, err)
	_, err = r.NewCluster([]float64{1}, 1)
	assert.ErrorIs(t, err, ErrCapacityReached)
}

func TestAssignUpdatesBookkeeping(t *testing.T) {
	r := New(1, 10, 2, 5)
	c, _ := r.NewCluster([]float64{0}, 0)
	r.Assign(int(c.ID), 1, 0.0, 0.01, nil)
	assert.Equal(t, uint64(1), c.Hits)
	assert.InDelta(t, 1.01, c.Probability, 1e-9)
	assert.Equal(t, []uint32{c.ID}, r.SequenceHistory())
	assert.Equal(t, int64(c.ID), r.PrevClusterID())
}

func TestVisitorRingEviction(t *testing.T) {
	r := New(1, 10, 2, 0)
	c, _ := r.NewCluster([]float64{0}, 0)
	r.Assign(int(c.ID), 1, 0.1, 0.01, nil)
	r.Assign(int(c.ID), 2, 0.2, 0.01, nil)
	r.Assign(int(c.ID), 3, 0.3, 0.01, nil)

	vs := c.Visitors()
	require.Len(t, vs, 2)
	assert.Equal(t, uint64(2), vs[0].FrameIndex)
	assert.Equal(t, uint64(3), vs[1].FrameIndex)
}

func TestDiscardThenWasDiscarded(t *testing.T) {
	r := New(1, 10, 2, 0)
	c, _ := r.NewCluster([]float64{0}, 0)
	r.Discard(int(c.ID))
	assert.False(t, r.IsLive(int(c.ID)))
	assert.True(t, r.WasDiscarded(int(c.ID)))
}

func TestMergeAbsorbsProbabilityAndVisitors(t *testing.T) {
	r := New(1, 10, 5, 0)
	a, _ := r.NewCluster([]float64{0}, 0)
	b, _ := r.NewCluster([]float64{5}, 1)
	r.RecordDCC(int(a.ID), int(b.ID), 5)
	r.Assign(int(b.ID), 2, 0.0, 0.01, nil)

	aProbBefore := a.Probability
	bProb := b.Probability

	r.Merge(int(a.ID), int(b.ID))

	assert.False(t, r.IsLive(int(b.ID)))
	assert.InDelta(t, aProbBefore+bProb, a.Probability, 1e-9)
	assert.Len(t, a.Visitors(), 1)
	_, known := r.DCC().Get(int(a.ID), int(b.ID))
	assert.False(t, known)
}

func TestTransitionMatrix(t *testing.T) {
	r := New(1, 10, 0, 0)
	a, _ := r.NewCluster([]float64{0}, 0)
	b, _ := r.NewCluster([]float64{5}, 1)
	r.Assign(int(a.ID), 1, 0, 0.01, nil)
	r.Assign(int(b.ID), 2, 0, 0.01, nil)
	r.Assign(int(a.ID), 3, 0, 0.01, nil)

	row, sum := r.TransitionRow(a.ID)
	assert.Equal(t, uint64(1), sum)
	assert.Equal(t, uint64(1), row[b.ID])
}

func TestForceRenormalize(t *testing.T) {
	r := New(1, 10, 0, 0)
	a, _ := r.NewCluster([]float64{0}, 0)
	b, _ := r.NewCluster([]float64{5}, 1)
	r.Assign(int(a.ID), 1, 0, 0.5, nil)
	r.ForceRenormalize()
	assert.InDelta(t, 1.0, a.Probability+b.Probability, 1e-9)
}

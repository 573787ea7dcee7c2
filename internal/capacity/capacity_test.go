package capacity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anchorcluster/anchorcluster/internal/admission"
	"github.com/anchorcluster/anchorcluster/internal/registry"
)

func TestStopStrategyReturnsNilResolver(t *testing.T) {
	p := Policy{Strategy: Stop}
	assert.Nil(t, p.Resolver())
}

func TestDiscardStrategyEvictsFewestHitsAmongOldest(t *testing.T) {
	r := registry.New(1, 3, 10, 0)
	a, _ := r.NewCluster([]float64{0}, 0)
	b, _ := r.NewCluster([]float64{10}, 1)
	_, _ = r.NewCluster([]float64{20}, 2)

	r.Assign(int(a.ID), 3, 0, 0.01, nil)
	r.Assign(int(a.ID), 4, 0, 0.01, nil)
	r.Assign(int(b.ID), 5, 0, 0.01, nil)

	p := Policy{Strategy: Discard, DiscardFrac: 1.0}
	resolver := p.Resolver()
	require.NotNil(t, resolver)
	require.NoError(t, resolver(r))

	assert.Equal(t, 2, r.LiveCount())
	assert.True(t, r.WasDiscarded(2)) // cluster 2 has fewest hits (0) among the oldest discard_frac slice
}

func TestMergeStrategyFoldsNearestPair(t *testing.T) {
	r := registry.New(1, 3, 10, 0)
	a, _ := r.NewCluster([]float64{0}, 0)
	b, _ := r.NewCluster([]float64{100}, 1)
	c, _ := r.NewCluster([]float64{101}, 2)
	r.RecordDCC(int(a.ID), int(b.ID), 100)
	r.RecordDCC(int(a.ID), int(c.ID), 101)
	r.RecordDCC(int(b.ID), int(c.ID), 1)

	p := Policy{Strategy: Merge}
	resolver := p.Resolver()
	require.NoError(t, resolver(r))

	assert.Equal(t, 2, r.LiveCount())
	assert.True(t, r.IsLive(int(a.ID)))
	assert.True(t, r.IsLive(int(b.ID)))
	assert.False(t, r.IsLive(int(c.ID)))
}

func TestAdmissionIntegratesCapacityStop(t *testing.T) {
	r := registry.New(1, 1, 10, 0)
	_, err := r.NewCluster([]float64{0}, 0)
	require.NoError(t, err)

	p := Policy{Strategy: Stop}
	_, err = admission.Assign(r, 1, []float64{10}, -1, 0, nil, 0.01, p.Resolver())
	assert.ErrorIs(t, err, admission.ErrCapacityStop)
}

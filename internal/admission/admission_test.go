package admission

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anchorcluster/anchorcluster/internal/registry"
)

func TestAssignToExistingCluster(t *testing.T) {
	r := registry.New(3, 10, 5, 0)
	c, err := r.NewCluster([]float64{0, 0, 0}, 0)
	require.NoError(t, err)

	res, err := Assign(r, 1, []float64{0.1, 0, 0}, int(c.ID), 0.1, map[int]float64{int(c.ID): 0.1}, 0.01, nil)
	require.NoError(t, err)
	assert.Equal(t, c.ID, res.ClusterID)
	assert.False(t, res.IsNew)
	assert.Equal(t, uint64(1), c.Hits)
}

func TestSpawnsNewClusterAndFillsDCC(t *testing.T) {
	r := registry.New(1, 10, 5, 0)
	a, err := r.NewCluster([]float64{0}, 0)
	require.NoError(t, err)

	res, err := Assign(r, 1, []float64{10}, -1, 0, nil, 0.01, nil)
	require.NoError(t, err)
	require.True(t, res.IsNew)
	assert.NotEqual(t, a.ID, res.ClusterID)

	d, ok := r.DCC().Get(int(a.ID), int(res.ClusterID))
	require.True(t, ok)
	assert.InDelta(t, 10.0, d, 1e-9)
}

func TestCapacityStopWithoutResolver(t *testing.T) {
	r := registry.New(1, 1, 5, 0)
	_, err := r.NewCluster([]float64{0}, 0)
	require.NoError(t, err)

	_, err = Assign(r, 1, []float64{10}, -1, 0, nil, 0.01, nil)
	assert.ErrorIs(t, err, ErrCapacityStop)
}

func TestCapacityResolverFreesSlotForNewCluster(t *testing.T) {
	r := registry.New(1, 1, 5, 0)
	c, err := r.NewCluster([]float64{0}, 0)
	require.NoError(t, err)

	resolver := func(r *registry.Registry) error {
		r.Discard(int(c.ID))
		return nil
	}

	res, err := Assign(r, 1, []float64{10}, -1, 0, nil, 0.01, resolver)
	require.NoError(t, err)
	assert.True(t, res.IsNew)
	assert.False(t, r.IsLive(int(c.ID)))
}

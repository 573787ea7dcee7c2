package prune

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anchorcluster/anchorcluster/internal/scorer"
)

func anchors(vecs map[int][]float64) AnchorLookup {
	return func(id int) []float64 { return vecs[id] }
}

func TestRunFindsFirstWithinRadius(t *testing.T) {
	cfg := Config{Radius: 1}
	cands := []scorer.Candidate{{ClusterID: 0, Score: 1}, {ClusterID: 1, Score: 0.5}}
	anchor := anchors(map[int][]float64{0: {0, 0, 0}, 1: {10, 10, 10}})

	out, err := Run(context.Background(), []float64{0, 0, 0}, cands, cfg, anchor, fixedDCC(nil))
	require.NoError(t, err)
	assert.Equal(t, 0, out.ClusterID)
	assert.InDelta(t, 0, out.Distance, 1e-9)
	assert.Equal(t, 1, out.DistanceCalls)
}

func TestRunReturnsNoMatchWhenAllOutsideRadius(t *testing.T) {
	cfg := Config{Radius: 1}
	cands := []scorer.Candidate{{ClusterID: 0, Score: 1}}
	anchor := anchors(map[int][]float64{0: {100, 100, 100}})

	out, err := Run(context.Background(), []float64{0, 0, 0}, cands, cfg, anchor, fixedDCC(nil))
	require.NoError(t, err)
	assert.Equal(t, -1, out.ClusterID)
	assert.Equal(t, 1, out.DistanceCalls)
}

func TestRunPrunesWithThreePointBound(t *testing.T) {
	cfg := Config{Radius: 1}
	// cluster 0 measured first and found far away; cluster 1's DCC distance
	// to 0 is large enough that the 3-point bound rules it out without an
	// exact call.
	dcc := fixedDCC(map[[2]int]float64{{0, 1}: 50})
	cands := []scorer.Candidate{{ClusterID: 0, Score: 1}, {ClusterID: 1, Score: 0.5}}
	anchor := anchors(map[int][]float64{0: {20, 0, 0}, 1: {-30, 0, 0}})

	out, err := Run(context.Background(), []float64{0, 0, 0}, cands, cfg, anchor, dcc)
	require.NoError(t, err)
	assert.Equal(t, -1, out.ClusterID)
	assert.Equal(t, 1, out.DistanceCalls)
	assert.Equal(t, 1, out.Pruned)
}

func TestRunParallelMatchesSequential(t *testing.T) {
	anchor := anchors(map[int][]float64{0: {0, 0}, 1: {5, 5}, 2: {9, 9}})
	cands := []scorer.Candidate{{ClusterID: 0, Score: 1}, {ClusterID: 1, Score: 0.8}, {ClusterID: 2, Score: 0.5}}

	seq, err := Run(context.Background(), []float64{9, 9}, cands, Config{Radius: 1, NCPU: 1}, anchor, fixedDCC(nil))
	require.NoError(t, err)
	par, err := Run(context.Background(), []float64{9, 9}, cands, Config{Radius: 1, NCPU: 4}, anchor, fixedDCC(nil))
	require.NoError(t, err)

	assert.Equal(t, seq.ClusterID, par.ClusterID)
}

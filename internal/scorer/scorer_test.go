package scorer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func probFunc(m map[int]float64) func(int) float64 {
	return func(id int) float64 { return m[id] }
}

func TestOrderPureProbability(t *testing.T) {
	p := Params{
		LiveIDs:     []int{0, 1, 2},
		Probability: probFunc(map[int]float64{0: 0.2, 1: 0.5, 2: 0.3}),
	}
	out := Order(p)
	assert.Equal(t, []int{1, 2, 0}, ids(out))
}

func TestOrderTieBreaksByID(t *testing.T) {
	p := Params{
		LiveIDs:     []int{2, 0, 1},
		Probability: probFunc(map[int]float64{0: 0.5, 1: 0.5, 2: 0.5}),
	}
	out := Order(p)
	assert.Equal(t, []int{0, 1, 2}, ids(out))
}

func TestOrderTransitionBlend(t *testing.T) {
	p := Params{
		LiveIDs:     []int{0, 1},
		Probability: probFunc(map[int]float64{0: 0.5, 1: 0.5}),
		HasPrev:     true,
		TM:          1.0,
		Transition:  TransitionView{Row: map[uint32]uint64{1: 10}, Sum: 10},
	}
	out := Order(p)
	assert.Equal(t, []int{1, 0}, ids(out))
}

func TestOrderPredictedCandidatesFirst(t *testing.T) {
	p := Params{
		LiveIDs:      []int{0, 1, 2},
		Probability:  probFunc(map[int]float64{0: 0.9, 1: 0.05, 2: 0.05}),
		SequenceHist: []uint32{0, 1, 2, 0, 1},
		PredictOn:    true,
		PredictL:     2,
		PredictH:     10,
		PredictN:     1,
	}
	out := Order(p)
	require := out[0]
	assert.Equal(t, 2, require.ClusterID)
	assert.True(t, require.Predicted)
}

func TestPredictedCandidateSkipsDiscarded(t *testing.T) {
	p := Params{
		LiveIDs:      []int{0, 1},
		Probability:  probFunc(map[int]float64{0: 0.5, 1: 0.5}),
		SequenceHist: []uint32{0, 1, 2, 0, 1},
		PredictOn:    true,
		PredictL:     2,
		PredictH:     10,
		PredictN:     1,
		IsDiscarded:  func(id uint32) bool { return id == 2 },
	}
	out := Order(p)
	for _, c := range out {
		assert.False(t, c.Predicted)
	}
}

func TestResortKeepsDecidedEntriesBeforeUnknown(t *testing.T) {
	cands := []Candidate{
		{ClusterID: 0, Score: 0.1, State: Unknown},
		{ClusterID: 1, Score: 0.9, State: Pruned},
		{ClusterID: 2, Score: 0.5, State: Unknown},
	}
	Resort(cands)
	assert.Equal(t, 1, cands[0].ClusterID)
	assert.Equal(t, 2, cands[1].ClusterID)
	assert.Equal(t, 0, cands[2].ClusterID)
}

func TestRewardFactorEndpoints(t *testing.T) {
	g := GeometricParams{Radius: 1, FMatchA: 1.0, FMatchB: 0.0, DistToJ: 5, VisitorDistJ: 5}
	assert.InDelta(t, 1.0, RewardFactor(g), 1e-9)

	g.VisitorDistJ = 7 // delta = 2 = 2R
	assert.InDelta(t, 0.0, RewardFactor(g), 1e-9)
}

func TestBoostAveragesQualifyingPairs(t *testing.T) {
	visitors := []VisitorMeasurement{
		{Measurements: map[int]float64{5: 3.0}},
		{Measurements: map[int]float64{5: 1.0}},
	}
	measured := map[int]float64{5: 2.0}
	b := Boost(1.0, 1.0, 0.0, visitors, measured)
	assert.Greater(t, b, 0.0)
}

func TestBoostZeroWithNoEvidence(t *testing.T) {
	assert.Equal(t, 0.0, Boost(1.0, 1.0, 0.0, nil, map[int]float64{5: 2.0}))
}

func ids(cs []Candidate) []int {
	out := make([]int, len(cs))
	for i, c := range cs {
		out[i] = c.ClusterID
	}
	return out
}

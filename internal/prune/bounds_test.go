package prune

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func fixedDCC(table map[[2]int]float64) DCCLookup {
	return func(i, j int) (float64, bool) {
		if d, ok := table[[2]int{i, j}]; ok {
			return d, true
		}
		if d, ok := table[[2]int{j, i}]; ok {
			return d, true
		}
		return 0, false
	}
}

func TestThreePointBoundIsTightestMeasured(t *testing.T) {
	dcc := fixedDCC(map[[2]int]float64{
		{0, 2}: 10,
		{1, 2}: 1,
	})
	measured := []Measurement{{ClusterID: 0, Dist: 1}, {ClusterID: 1, Dist: 1}}
	b, ok := ThreePoint(2, measured, dcc)
	assert.True(t, ok)
	assert.InDelta(t, 9.0, b, 1e-9) // |1-10| = 9, tighter than |1-1| = 0
}

func TestThreePointUnknownWithoutDCC(t *testing.T) {
	dcc := fixedDCC(nil)
	_, ok := ThreePoint(2, []Measurement{{ClusterID: 0, Dist: 1}}, dcc)
	assert.False(t, ok)
}

func TestFourPointCollinearExact(t *testing.T) {
	// k at 0, m at 10 on a line; F at 3, candidate anchor at 7.
	dcc := fixedDCC(map[[2]int]float64{
		{0, 1}: 10, // k-m
		{0, 2}: 7,  // k-candidate
		{1, 2}: 3,  // m-candidate
	})
	k := Measurement{ClusterID: 0, Dist: 3} // F to k
	m := Measurement{ClusterID: 1, Dist: 7} // F to m
	b, ok := FourPoint(2, k, m, dcc)
	assert.True(t, ok)
	assert.InDelta(t, 4.0, b, 1e-6) // |3-7| on the same line
}

func TestFourPointDegenerateBaseline(t *testing.T) {
	dcc := fixedDCC(map[[2]int]float64{{0, 1}: 0})
	_, ok := FourPoint(2, Measurement{ClusterID: 0, Dist: 1}, Measurement{ClusterID: 1, Dist: 1}, dcc)
	assert.False(t, ok)
}

func TestFivePointMissingDistanceIsUnknown(t *testing.T) {
	dcc := fixedDCC(map[[2]int]float64{{0, 1}: 5})
	_, ok := FivePoint(3, Measurement{ClusterID: 0, Dist: 1}, Measurement{ClusterID: 1, Dist: 1}, Measurement{ClusterID: 2, Dist: 1}, dcc)
	assert.False(t, ok)
}

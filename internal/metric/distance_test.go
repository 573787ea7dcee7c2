package metric

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEuclidean(t *testing.T) {
	d, err := Euclidean([]float64{0, 0, 0}, []float64{10, 10, 10})
	require.NoError(t, err)
	assert.InDelta(t, 17.320508, d, 1e-5)
}

func TestEuclideanDimensionMismatch(t *testing.T) {
	_, err := Euclidean([]float64{0, 0}, []float64{0, 0, 0})
	require.Error(t, err)
	var dimErr *ErrDimensionMismatch
	assert.ErrorAs(t, err, &dimErr)
}

func TestSquaredEuclideanEarlyExit(t *testing.T) {
	a := []float64{0, 0, 0, 0}
	b := []float64{5, 5, 5, 5}
	sq, exceeded, err := SquaredEuclidean(a, b, 4) // threshold well below true sq distance (100)
	require.NoError(t, err)
	assert.True(t, exceeded)
	assert.GreaterOrEqual(t, sq, 4.0)
}

func TestSquaredEuclideanNoThreshold(t *testing.T) {
	a := []float64{1, 2, 3}
	b := []float64{1, 2, 3}
	sq, exceeded, err := SquaredEuclidean(a, b, 0)
	require.NoError(t, err)
	assert.False(t, exceeded)
	assert.Equal(t, 0.0, sq)
}

func TestEuclideanWithThreshold(t *testing.T) {
	d, within, err := EuclideanWithThreshold([]float64{0, 0}, []float64{0, 3}, 1)
	require.NoError(t, err)
	assert.False(t, within)
	assert.GreaterOrEqual(t, d, 1.0)

	d, within, err = EuclideanWithThreshold([]float64{0, 0}, []float64{0, 0.5}, 1)
	require.NoError(t, err)
	assert.True(t, within)
	assert.InDelta(t, 0.5, d, 1e-9)
}

package source

import (
	"context"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "frames-*.txt")
	require.NoError(t, err)
	_, err = f.WriteString(content)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	return f.Name()
}

func TestTextSourceSkipsCommentsAndBlankLines(t *testing.T) {
	path := writeTemp(t, "# header\n0 0 0\n\n1 1 1\n")
	src, err := OpenTextSource(path)
	require.NoError(t, err)
	defer src.Close()

	f0, err := src.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(0), f0.Index)
	assert.Equal(t, []float64{0, 0, 0}, f0.Vec)

	f1, err := src.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), f1.Index)

	_, err = src.Next(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}

func TestTextSourceRejectsDimensionMismatch(t *testing.T) {
	path := writeTemp(t, "0 0 0\n1 1\n")
	src, err := OpenTextSource(path)
	require.NoError(t, err)
	defer src.Close()

	_, err = src.Next(context.Background())
	require.NoError(t, err)
	_, err = src.Next(context.Background())
	assert.Error(t, err)
	assert.NotErrorIs(t, err, io.EOF)
}

func TestImageSourceFlattensPlanes(t *testing.T) {
	planes := [][][]float64{
		{{1, 2}, {3, 4}},
		{{5, 6}, {7, 8}},
	}
	src, err := NewImageSource(planes)
	require.NoError(t, err)

	f0, err := src.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3, 4}, f0.Vec)

	f1, err := src.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 6, 7, 8}, f1.Vec)

	_, err = src.Next(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}

func TestImageSourceRejectsMismatchedPlaneSizes(t *testing.T) {
	_, err := NewImageSource([][][]float64{{{1, 2}}, {{1}}})
	assert.Error(t, err)
}

func TestVideoPipeStubNotImplemented(t *testing.T) {
	s := NewVideoPipeStub(4, 4)
	_, err := s.Next(context.Background())
	assert.ErrorIs(t, err, ErrNotImplemented)
	w, h := s.Dimensions()
	assert.Equal(t, 4, w)
	assert.Equal(t, 4, h)
}

func TestShmRingStubNotImplemented(t *testing.T) {
	s := NewShmRingStub()
	assert.ErrorIs(t, s.AckHandshake(), ErrNotImplemented)
}

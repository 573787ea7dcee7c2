package source

import (
	"context"
	"fmt"
	"io"
)

// ImageSource reads frames from an in-memory plane stack: a 2-D plane is
// treated as one frame (rows concatenated), a 3-D stack as one frame per
// outermost slice — standing in for the spec's multi-plane image container
// without pulling in an image-codec dependency.
type ImageSource struct {
	planes [][][]float64
	dim    int
	next   int
}

// NewImageSource wraps planes, a stack of 2-D images (rows x cols), as a
// FrameSource. Every plane must have identical dimensions; they are
// flattened row-major into one vector per frame.
func NewImageSource(planes [][][]float64) (*ImageSource, error) {
	if len(planes) == 0 {
		return &ImageSource{}, nil
	}
	dim := flatDim(planes[0])
	for i, p := range planes {
		if flatDim(p) != dim {
			return nil, fmt.Errorf("source: plane %d has %d elements, want %d", i, flatDim(p), dim)
		}
	}
	return &ImageSource{planes: planes, dim: dim}, nil
}

func flatDim(plane [][]float64) int {
	n := 0
	for _, row := range plane {
		n += len(row)
	}
	return n
}

// Next returns the next flattened plane as a frame, or io.EOF.
func (s *ImageSource) Next(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	if s.next >= len(s.planes) {
		return Frame{}, io.EOF
	}
	vec := make([]float64, 0, s.dim)
	for _, row := range s.planes[s.next] {
		vec = append(vec, row...)
	}
	fr := Frame{Index: uint64(s.next), Vec: vec}
	s.next++
	return fr, nil
}

// Close is a no-op: ImageSource owns no external resource.
func (s *ImageSource) Close() error { return nil }

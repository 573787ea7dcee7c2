package source

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// TextSource reads whitespace-separated floats per line from a text file,
// skipping `#`-prefixed comment lines and blank lines. The dimensionality
// is fixed by the first non-empty line; every subsequent frame must match
// it exactly.
type TextSource struct {
	f       *os.File
	scanner *bufio.Scanner
	dim     int
	next    uint64
}

// OpenTextSource opens path and prepares to stream frames from it. The
// file is not fully read here — dimension is inferred lazily from the
// first Next call so an empty file is a valid (zero-frame) source rather
// than an open-time error.
func OpenTextSource(path string) (*TextSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("source: opening %q: %w", path, err)
	}
	return &TextSource{f: f, scanner: bufio.NewScanner(f)}, nil
}

// Next returns the next frame, or io.EOF once every line has been
// consumed. A dimension mismatch against the first frame is a fatal,
// non-EOF error.
func (s *TextSource) Next(ctx context.Context) (Frame, error) {
	for s.scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return Frame{}, err
		}
		line := strings.TrimSpace(s.scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		vec, err := parseVector(line)
		if err != nil {
			return Frame{}, err
		}
		if s.dim == 0 {
			s.dim = len(vec)
		} else if len(vec) != s.dim {
			return Frame{}, fmt.Errorf("source: frame %d has dimension %d, want %d", s.next, len(vec), s.dim)
		}
		fr := Frame{Index: s.next, Vec: vec}
		s.next++
		return fr, nil
	}
	if err := s.scanner.Err(); err != nil {
		return Frame{}, fmt.Errorf("source: reading text stream: %w", err)
	}
	return Frame{}, io.EOF
}

// Close releases the underlying file handle.
func (s *TextSource) Close() error { return s.f.Close() }

func parseVector(line string) ([]float64, error) {
	fields := strings.Fields(line)
	vec := make([]float64, len(fields))
	for i, tok := range fields {
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil, fmt.Errorf("source: parsing token %q: %w", tok, err)
		}
		vec[i] = v
	}
	return vec, nil
}

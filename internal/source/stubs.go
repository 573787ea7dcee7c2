package source

import "context"

// VideoPipeSource is the documented contract for an external decoder pipe
// that emits raw 8-bit grayscale frames (dim = width x height). Frame
// ingestion from this collaborator is out of scope for this module; the
// interface exists so a future implementation has a concrete target.
type VideoPipeSource interface {
	FrameSource
	// Dimensions returns the decoder's fixed width and height.
	Dimensions() (width, height int)
}

// ShmRingSource is the documented contract for a shared-memory ring buffer
// producer/consumer stream. Real implementations must increment the
// handshake counter after every consumed frame, even on early termination,
// so the producer never deadlocks waiting for backpressure (SPEC_FULL §9).
type ShmRingSource interface {
	FrameSource
	// AckHandshake increments the consumer-side handshake counter the
	// producer watches for pacing.
	AckHandshake() error
}

// videoPipeStub and shmRingStub exist only to document that no concrete
// implementation ships here, per the specification's explicit framing that
// these collaborators are specified only by interface.
type videoPipeStub struct{ width, height int }

func (videoPipeStub) Next(context.Context) (Frame, error) { return Frame{}, ErrNotImplemented }
func (videoPipeStub) Close() error                        { return ErrNotImplemented }
func (s videoPipeStub) Dimensions() (int, int)             { return s.width, s.height }

// NewVideoPipeStub returns a VideoPipeSource that always reports
// ErrNotImplemented, documenting the contract without shipping a decoder.
func NewVideoPipeStub(width, height int) VideoPipeSource {
	return videoPipeStub{width: width, height: height}
}

type shmRingStub struct{}

func (shmRingStub) Next(context.Context) (Frame, error) { return Frame{}, ErrNotImplemented }
func (shmRingStub) Close() error                        { return ErrNotImplemented }
func (shmRingStub) AckHandshake() error                 { return ErrNotImplemented }

// NewShmRingStub returns a ShmRingSource that always reports
// ErrNotImplemented, documenting the handshake contract without shipping a
// real shared-memory transport.
func NewShmRingStub() ShmRingSource { return shmRingStub{} }

package yuv

import (
	"sync/atomic"
	"time"
)

// Plane is one strided image plane.
type Plane struct {
	// Data holds the plane bytes. The slice may end right after the last
	// sample of the last row; trailing row padding is not required.
	Data []byte

	// RowStride is the distance in bytes between the starts of two rows.
	RowStride int

	// PixelStride is the distance in bytes between two adjacent samples of
	// the same row. 1 for planar data, 2 for interleaved chroma.
	PixelStride int
}

// sample returns the sample at column x of row y.
func (p Plane) sample(x, y int) byte {
	return p.Data[y*p.RowStride+x*p.PixelStride]
}

// dense reports whether the plane is tightly packed for the given row width.
func (p Plane) dense(width int) bool {
	return p.PixelStride == 1 && p.RowStride == width
}

// Frame is an immutable view over one captured 4:2:0 image.
//
// U is the first chroma plane (Cb) and V the second (Cr). A Frame must be
// released exactly once by whoever consumes it; further Release calls are
// ignored.
type Frame struct {
	Width  int
	Height int

	Y Plane
	U Plane
	V Plane

	// Sequence is a producer-assigned frame counter.
	Sequence uint64

	// Timestamp is the capture time reported by the producer.
	Timestamp time.Time

	release  func()
	released atomic.Bool
}

// NewFrame wraps three planes into a Frame. release is called once when the
// frame is released and may be nil.
func NewFrame(width, height int, y, u, v Plane, release func()) *Frame {
	return &Frame{
		Width:     width,
		Height:    height,
		Y:         y,
		U:         u,
		V:         v,
		Timestamp: time.Now(),
		release:   release,
	}
}

// Release returns the frame to its producer. Only the first call has an
// effect. The frame must not be read afterwards.
func (f *Frame) Release() {
	if f == nil {
		return
	}
	if f.released.CompareAndSwap(false, true) && f.release != nil {
		f.release()
	}
}

// Released reports whether Release has been called.
func (f *Frame) Released() bool {
	return f != nil && f.released.Load()
}

// ChromaSize returns the dimensions of the chroma planes (half of luma,
// rounded down, in each axis).
func (f *Frame) ChromaSize() (width, height int) {
	return f.Width / 2, f.Height / 2
}

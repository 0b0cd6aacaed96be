package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gogpu/camview/yuv"
)

// Layout is the on-disk arrangement of a 4:2:0 frame.
type Layout int

const (
	// LayoutI420 stores Y, then U, then V planes.
	LayoutI420 Layout = iota
	// LayoutNV12 stores Y, then interleaved U/V pairs.
	LayoutNV12
	// LayoutNV21 stores Y, then interleaved V/U pairs.
	LayoutNV21
)

func (l Layout) String() string {
	switch l {
	case LayoutI420:
		return "i420"
	case LayoutNV12:
		return "nv12"
	case LayoutNV21:
		return "nv21"
	default:
		return fmt.Sprintf("Layout(%d)", int(l))
	}
}

// ParseLayout parses "i420", "nv12" or "nv21".
func ParseLayout(s string) (Layout, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "i420", "yuv420p":
		return LayoutI420, nil
	case "nv12":
		return LayoutNV12, nil
	case "nv21":
		return LayoutNV21, nil
	default:
		return 0, fmt.Errorf("source: unknown layout %q", s)
	}
}

// ErrTruncated is returned when the input ends in the middle of a frame.
var ErrTruncated = errors.New("source: truncated frame")

// RawFile reads fixed-size frames from a stream.
type RawFile struct {
	r      io.Reader
	width  int
	height int
	layout Layout
	seq    uint64
}

// NewRawFile returns a source reading width x height frames in layout
// from r.
func NewRawFile(r io.Reader, width, height int, layout Layout) (*RawFile, error) {
	if width <= 0 || height <= 0 || width%2 != 0 || height%2 != 0 {
		return nil, fmt.Errorf("source: invalid frame size %dx%d", width, height)
	}
	if layout < LayoutI420 || layout > LayoutNV21 {
		return nil, fmt.Errorf("source: invalid layout %v", layout)
	}
	return &RawFile{r: r, width: width, height: height, layout: layout}, nil
}

// Next reads one frame. It returns io.EOF at a clean end of input and
// ErrTruncated when the input stops mid-frame.
func (f *RawFile) Next(ctx context.Context) (*yuv.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w, h := f.width, f.height
	buf := make([]byte, yuv.PackedSize(w, h))
	if _, err := io.ReadFull(f.r, buf); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w after %d frames", ErrTruncated, f.seq)
		}
		return nil, err
	}

	cw, ch := w/2, h/2
	luma := yuv.Plane{Data: buf[:w*h], RowStride: w, PixelStride: 1}
	chroma := buf[w*h:]

	var u, v yuv.Plane
	switch f.layout {
	case LayoutI420:
		u = yuv.Plane{Data: chroma[:cw*ch], RowStride: cw, PixelStride: 1}
		v = yuv.Plane{Data: chroma[cw*ch:], RowStride: cw, PixelStride: 1}
	case LayoutNV12:
		u = yuv.Plane{Data: chroma, RowStride: w, PixelStride: 2}
		v = yuv.Plane{Data: chroma[1:], RowStride: w, PixelStride: 2}
	case LayoutNV21:
		v = yuv.Plane{Data: chroma[:len(chroma)-1], RowStride: w, PixelStride: 2}
		u = yuv.Plane{Data: chroma[1:], RowStride: w, PixelStride: 2}
	}

	frame := yuv.NewFrame(w, h, luma, u, v, nil)
	frame.Sequence = f.seq
	f.seq++
	return frame, nil
}

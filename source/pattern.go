package source

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/camview/yuv"
)

// barColors are the classic eight color bars.
var barColors = [...]color.RGBA{
	{0xff, 0xff, 0xff, 0xff}, // white
	{0xff, 0xff, 0x00, 0xff}, // yellow
	{0x00, 0xff, 0xff, 0xff}, // cyan
	{0x00, 0xff, 0x00, 0xff}, // green
	{0xff, 0x00, 0xff, 0xff}, // magenta
	{0xff, 0x00, 0x00, 0xff}, // red
	{0x00, 0x00, 0xff, 0xff}, // blue
	{0x00, 0x00, 0x00, 0xff}, // black
}

// PatternOption configures a TestPattern.
type PatternOption func(*patternOptions)

type patternOptions struct {
	fps         int
	limit       int
	interleaved bool
	padding     int
}

// WithRate paces Next to fps frames per second. Zero means unpaced.
func WithRate(fps int) PatternOption {
	return func(o *patternOptions) {
		if fps >= 0 {
			o.fps = fps
		}
	}
}

// WithLimit ends the stream with io.EOF after n frames. Zero means endless.
func WithLimit(n int) PatternOption {
	return func(o *patternOptions) {
		if n >= 0 {
			o.limit = n
		}
	}
}

// WithInterleavedChroma emits semi-planar VU chroma: U and V are views into
// one buffer with pixel stride 2, as many Android camera HALs deliver.
func WithInterleavedChroma() PatternOption {
	return func(o *patternOptions) {
		o.interleaved = true
	}
}

// WithRowPadding adds n bytes of padding after every row of every plane.
func WithRowPadding(n int) PatternOption {
	return func(o *patternOptions) {
		if n >= 0 {
			o.padding = n
		}
	}
}

// TestPattern generates moving color bars.
//
// Next may be called from one goroutine at a time. Frames may be released
// from any goroutine.
type TestPattern struct {
	width, height int
	opts          patternOptions

	seq      uint64
	next     time.Time
	canvas   *image.YCbCr
	free     chan []byte
	inFlight atomic.Int64
	mu       sync.Mutex
}

// NewTestPattern returns a source of width x height frames. Both dimensions
// must be positive and even.
func NewTestPattern(width, height int, opts ...PatternOption) (*TestPattern, error) {
	if width <= 0 || height <= 0 || width%2 != 0 || height%2 != 0 {
		return nil, fmt.Errorf("source: invalid pattern size %dx%d", width, height)
	}
	var o patternOptions
	for _, opt := range opts {
		opt(&o)
	}
	return &TestPattern{
		width:  width,
		height: height,
		opts:   o,
		canvas: image.NewYCbCr(image.Rect(0, 0, width, height), image.YCbCrSubsampleRatio420),
		free:   make(chan []byte, 4),
	}, nil
}

// InFlight returns the number of frames handed out and not yet released.
func (p *TestPattern) InFlight() int { return int(p.inFlight.Load()) }

// Next returns the next frame, waiting for the configured rate.
func (p *TestPattern) Next(ctx context.Context) (*yuv.Frame, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.opts.limit > 0 && p.seq >= uint64(p.opts.limit) {
		return nil, io.EOF
	}
	if err := p.wait(ctx); err != nil {
		return nil, err
	}

	p.paint(p.seq)
	f := p.frame()
	f.Sequence = p.seq
	p.seq++
	return f, nil
}

func (p *TestPattern) wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.opts.fps <= 0 {
		return nil
	}
	now := time.Now()
	if p.next.IsZero() {
		p.next = now
	}
	if d := p.next.Sub(now); d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	p.next = p.next.Add(time.Second / time.Duration(p.opts.fps))
	return nil
}

// paint draws the bars shifted by seq pixels into the canvas.
func (p *TestPattern) paint(seq uint64) {
	img := p.canvas
	barWidth := (p.width + len(barColors) - 1) / len(barColors)
	shift := int(seq % uint64(p.width))
	for y := 0; y < p.height; y++ {
		for x := 0; x < p.width; x++ {
			c := barColors[((x+shift)%p.width)/barWidth%len(barColors)]
			yy, cb, cr := color.RGBToYCbCr(c.R, c.G, c.B)
			img.Y[img.YOffset(x, y)] = yy
			if x%2 == 0 && y%2 == 0 {
				off := img.COffset(x, y)
				img.Cb[off] = cb
				img.Cr[off] = cr
			}
		}
	}
}

// frame copies the canvas into a buffer laid out according to the options.
func (p *TestPattern) frame() *yuv.Frame {
	if !p.opts.interleaved && p.opts.padding == 0 {
		// Hand out a detached copy of the canvas as a plain image.YCbCr.
		buf := p.buffer(len(p.canvas.Y) + 2*len(p.canvas.Cb))
		img := *p.canvas
		img.Y = buf[:len(p.canvas.Y)]
		img.Cb = buf[len(img.Y) : len(img.Y)+len(p.canvas.Cb)]
		img.Cr = buf[len(img.Y)+len(img.Cb):]
		copy(img.Y, p.canvas.Y)
		copy(img.Cb, p.canvas.Cb)
		copy(img.Cr, p.canvas.Cr)
		return p.track(yuv.FromImage(&img), buf)
	}

	w, h := p.width, p.height
	cw, ch := w/2, h/2
	pad := p.opts.padding
	yStride := w + pad

	if p.opts.interleaved {
		vuStride := w + pad
		buf := p.buffer(yStride*h + vuStride*ch)
		luma, vu := buf[:yStride*h], buf[yStride*h:]
		p.copyLuma(luma, yStride)
		for r := 0; r < ch; r++ {
			for c := 0; c < cw; c++ {
				off := p.canvas.COffset(2*c, 2*r)
				vu[r*vuStride+2*c] = p.canvas.Cr[off]
				vu[r*vuStride+2*c+1] = p.canvas.Cb[off]
			}
		}
		return p.track(yuv.NewFrame(w, h,
			yuv.Plane{Data: luma, RowStride: yStride, PixelStride: 1},
			yuv.Plane{Data: vu[1:], RowStride: vuStride, PixelStride: 2},
			yuv.Plane{Data: vu[:len(vu)-1], RowStride: vuStride, PixelStride: 2},
			nil), buf)
	}

	cStride := cw + pad
	buf := p.buffer(yStride*h + 2*cStride*ch)
	luma := buf[:yStride*h]
	u := buf[yStride*h : yStride*h+cStride*ch]
	v := buf[yStride*h+cStride*ch:]
	p.copyLuma(luma, yStride)
	for r := 0; r < ch; r++ {
		off := p.canvas.COffset(0, 2*r)
		copy(u[r*cStride:r*cStride+cw], p.canvas.Cb[off:off+cw])
		copy(v[r*cStride:r*cStride+cw], p.canvas.Cr[off:off+cw])
	}
	return p.track(yuv.NewFrame(w, h,
		yuv.Plane{Data: luma, RowStride: yStride, PixelStride: 1},
		yuv.Plane{Data: u, RowStride: cStride, PixelStride: 1},
		yuv.Plane{Data: v, RowStride: cStride, PixelStride: 1},
		nil), buf)
}

func (p *TestPattern) copyLuma(dst []byte, stride int) {
	for r := 0; r < p.height; r++ {
		off := p.canvas.YOffset(0, r)
		copy(dst[r*stride:r*stride+p.width], p.canvas.Y[off:off+p.width])
	}
}

// buffer returns a recycled buffer of n bytes when one is available.
func (p *TestPattern) buffer(n int) []byte {
	select {
	case b := <-p.free:
		if len(b) == n {
			return b
		}
	default:
	}
	return make([]byte, n)
}

// track wraps f so that releasing it recycles buf.
func (p *TestPattern) track(f *yuv.Frame, buf []byte) *yuv.Frame {
	p.inFlight.Add(1)
	out := yuv.NewFrame(f.Width, f.Height, f.Y, f.U, f.V, func() {
		p.inFlight.Add(-1)
		select {
		case p.free <- buf:
		default:
		}
	})
	return out
}

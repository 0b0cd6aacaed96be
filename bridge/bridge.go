// Package bridge is the synchronous boundary between frame acquisition and
// the processing routine that renders into a GPU texture.
//
// A Bridge takes a packed NV21 buffer, hands it to a Processor which draws
// into a CPU-side RGBA image, and uploads that image into the texture named
// by a TextureID. Process returns only after the upload has completed, so
// the caller may reuse the buffer immediately.
package bridge

import (
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/gogpu/camview/yuv"
)

// ErrTargetClosed may be returned (or wrapped) by a TextureTarget whose
// texture has been released. Process maps it to StatusClosed.
var ErrTargetClosed = errors.New("bridge: texture target closed")

// Processor is the opaque processing routine. It reads a packed NV21 buffer
// of width x height pixels and draws its output into dst, whose bounds are
// the texture size. It must not retain nv21 or dst.
type Processor interface {
	Process(nv21 []byte, width, height int, dst *image.RGBA) error
}

// ProcessorFunc adapts a function to the Processor interface.
type ProcessorFunc func(nv21 []byte, width, height int, dst *image.RGBA) error

// Process calls f.
func (f ProcessorFunc) Process(nv21 []byte, width, height int, dst *image.RGBA) error {
	return f(nv21, width, height, dst)
}

// TextureTarget owns the textures Process writes into.
type TextureTarget interface {
	// TextureSize reports the size of the texture with the given ID.
	// ok is false for unknown IDs.
	TextureSize(id TextureID) (width, height int, ok bool)

	// WriteTexture replaces the texture contents with tightly packed RGBA8
	// pixels. It returns after the write is visible to later draws.
	WriteTexture(id TextureID, rgba []byte) error
}

// Stats summarizes bridge activity.
type Stats struct {
	Calls    uint64
	Failures uint64
	// LastStatus is the status of the most recent call.
	LastStatus Status
	// LastElapsed is the duration of the most recent successful call.
	LastElapsed time.Duration
}

// Option configures a Bridge.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides the clock used to measure elapsed time.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// Bridge serializes calls into a Processor and a TextureTarget.
//
// Thread safety: Process may be called from any goroutine. Calls are
// serialized, so at most one buffer is in flight.
type Bridge struct {
	target TextureTarget
	proc   Processor
	now    func() time.Time

	mu      sync.Mutex
	scratch *image.RGBA
	closed  bool
	stats   Stats
}

// New returns a Bridge writing into target through proc.
func New(target TextureTarget, proc Processor, opts ...Option) *Bridge {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Bridge{
		target: target,
		proc:   proc,
		now:    o.now,
	}
}

// Process runs the processor on buf and uploads the output into tex.
//
// buf must be a packed NV21 buffer of yuv.PackedSize(width, height) bytes.
// It is read only for the duration of the call. Process never panics.
func (b *Bridge) Process(buf []byte, width, height int, tex TextureID) Result {
	b.mu.Lock()
	defer b.mu.Unlock()

	start := b.now()
	status := b.process(buf, width, height, tex)
	res := Result{Status: status}

	b.stats.Calls++
	b.stats.LastStatus = status
	if status == StatusOK {
		res.Elapsed = b.now().Sub(start)
		b.stats.LastElapsed = res.Elapsed
	} else {
		b.stats.Failures++
	}
	return res
}

func (b *Bridge) process(buf []byte, width, height int, tex TextureID) (status Status) {
	if b.closed {
		return StatusClosed
	}
	if tex == 0 || b.target == nil {
		return StatusInvalidTexture
	}
	tw, th, ok := b.target.TextureSize(tex)
	if !ok || tw <= 0 || th <= 0 {
		slogger().Warn("bridge: unknown texture", "texture", tex)
		return StatusInvalidTexture
	}
	if width <= 0 || height <= 0 || width%2 != 0 || height%2 != 0 ||
		len(buf) != yuv.PackedSize(width, height) {
		slogger().Warn("bridge: invalid buffer",
			"width", width, "height", height, "len", len(buf))
		return StatusInvalidBuffer
	}

	dst := b.scratchImage(tw, th)
	if err := b.runProcessor(buf, width, height, dst); err != nil {
		slogger().Warn("bridge: processing failed", "err", err)
		return StatusProcessingFailed
	}

	if err := b.target.WriteTexture(tex, dst.Pix); err != nil {
		if errors.Is(err, ErrTargetClosed) {
			slogger().Debug("bridge: texture released", "texture", tex)
			return StatusClosed
		}
		slogger().Warn("bridge: texture write failed", "texture", tex, "err", err)
		return StatusTextureWriteFailed
	}

	slogger().Debug("bridge: frame processed", "texture", tex, "width", width, "height", height)
	return StatusOK
}

// runProcessor calls the processor, turning a panic into an error.
func (b *Bridge) runProcessor(buf []byte, width, height int, dst *image.RGBA) (err error) {
	if b.proc == nil {
		return errors.New("bridge: no processor")
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("bridge: processor panic: %v", r)
		}
	}()
	return b.proc.Process(buf, width, height, dst)
}

// scratchImage returns the reusable output image, reallocating it when the
// texture size changes.
func (b *Bridge) scratchImage(w, h int) *image.RGBA {
	if b.scratch == nil || b.scratch.Rect.Dx() != w || b.scratch.Rect.Dy() != h {
		b.scratch = image.NewRGBA(image.Rect(0, 0, w, h))
	}
	return b.scratch
}

// Close makes every later Process call fail with StatusClosed.
func (b *Bridge) Close() {
	b.mu.Lock()
	b.closed = true
	b.scratch = nil
	b.mu.Unlock()
}

// Stats returns a snapshot of the bridge counters.
func (b *Bridge) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stats
}

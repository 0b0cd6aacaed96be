// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package surface

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Renderer receives surface lifecycle callbacks. All methods are called on
// the host's render goroutine.
type Renderer interface {
	OnSurfaceCreated(device hal.Device, queue hal.Queue)
	OnSurfaceResized(width, height int)
	OnDraw(target hal.TextureView)
	OnSurfaceDestroyed()
}

// Host errors.
var (
	ErrNoHalDevice    = errors.New("surface: provider does not expose a hal device and queue")
	ErrNilSurface     = errors.New("surface: nil surface")
	ErrNilRenderer    = errors.New("surface: nil renderer")
	ErrAlreadyStarted = errors.New("surface: host already started")
	ErrStopped        = errors.New("surface: host stopped")
)

// halProvider is implemented by device providers that share their hal
// device and queue.
type halProvider interface {
	HalDevice() any
	HalQueue() any
}

// Stats counts host activity.
type Stats struct {
	// Frames is the number of frames presented.
	Frames uint64
	// Coalesced is the number of redraw requests merged into a pending one.
	Coalesced uint64
	// AcquireFailures counts frames skipped because no surface texture
	// could be acquired.
	AcquireFailures uint64
}

// Host runs a Renderer on a surface from a dedicated goroutine.
//
// Thread safety: RequestRedraw, Resize, Size, ScaleFactor and Stats are
// safe for concurrent use. Start and Stop may be called from any goroutine.
type Host struct {
	device  hal.Device
	queue   hal.Queue
	surf    hal.Surface
	r       Renderer
	opts    options
	format  gputypes.TextureFormat
	adapter gpucontext.AdapterInfo

	redraw   chan struct{}
	resizeCh chan struct{}

	mu     sync.Mutex
	width  int
	height int

	startMu sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}

	frames    atomic.Uint64
	coalesced atomic.Uint64
	failures  atomic.Uint64
}

// NewHost creates a host drawing r on surf with the device shared by
// provider. The provider must expose HalDevice() and HalQueue().
func NewHost(provider gpucontext.DeviceProvider, surf hal.Surface, r Renderer, opts ...Option) (*Host, error) {
	if provider == nil {
		return nil, ErrNoHalDevice
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrNoHalDevice
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrNoHalDevice)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrNoHalDevice)
	}
	if surf == nil {
		return nil, ErrNilSurface
	}
	if r == nil {
		return nil, ErrNilRenderer
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	format := o.format
	if format == gputypes.TextureFormatUndefined {
		format = provider.SurfaceFormat()
	}
	if format == gputypes.TextureFormatUndefined {
		format = gputypes.TextureFormatBGRA8Unorm
	}

	return &Host{
		device:   device,
		queue:    queue,
		surf:     surf,
		r:        r,
		opts:     o,
		format:   format,
		adapter:  provider.AdapterInfo(),
		redraw:   make(chan struct{}, 1),
		resizeCh: make(chan struct{}, 1),
		width:    o.width,
		height:   o.height,
	}, nil
}

// Format returns the texture format the surface is configured with.
func (h *Host) Format() gputypes.TextureFormat { return h.format }

// Start launches the render goroutine and returns once the surface is
// configured and the renderer has received OnSurfaceCreated. The loop runs
// until ctx is canceled or Stop is called.
func (h *Host) Start(ctx context.Context) error {
	h.startMu.Lock()
	defer h.startMu.Unlock()
	if h.started {
		return ErrAlreadyStarted
	}
	h.started = true

	ctx, cancel := context.WithCancel(ctx)
	h.cancel = cancel
	h.done = make(chan struct{})
	ready := make(chan error, 1)
	go h.run(ctx, ready)

	if err := <-ready; err != nil {
		cancel()
		<-h.done
		return err
	}
	slogger().Info("surface: started",
		"mode", h.opts.mode, "adapter", h.adapter.Name, "format", h.format)
	return nil
}

// Stop ends the render loop and waits for it. The renderer receives
// OnSurfaceDestroyed before the surface is unconfigured. Stop is idempotent.
func (h *Host) Stop() {
	h.startMu.Lock()
	cancel, done := h.cancel, h.done
	h.cancel = nil
	h.startMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	slogger().Info("surface: stopped", "frames", h.frames.Load())
}

// Done returns a channel closed when the render goroutine exits, or nil if
// the host was never started.
func (h *Host) Done() <-chan struct{} {
	h.startMu.Lock()
	defer h.startMu.Unlock()
	return h.done
}

// RequestRedraw schedules a draw. It never blocks; requests made while a
// draw is already pending are merged into it. In RedrawContinuous mode the
// request is ignored.
func (h *Host) RequestRedraw() {
	if h.opts.mode == RedrawContinuous {
		return
	}
	select {
	case h.redraw <- struct{}{}:
	default:
		h.coalesced.Add(1)
	}
}

// Resize changes the surface size. The surface is reconfigured on the
// render goroutine before the next draw.
func (h *Host) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	h.mu.Lock()
	h.width, h.height = width, height
	h.mu.Unlock()

	select {
	case h.resizeCh <- struct{}{}:
	default:
	}
	h.RequestRedraw()
}

// Size returns the current surface size in physical pixels.
func (h *Host) Size() (width, height int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.width, h.height
}

// ScaleFactor returns the configured DPI scale.
func (h *Host) ScaleFactor() float64 { return h.opts.scale }

// Stats returns a snapshot of the host counters.
func (h *Host) Stats() Stats {
	return Stats{
		Frames:          h.frames.Load(),
		Coalesced:       h.coalesced.Load(),
		AcquireFailures: h.failures.Load(),
	}
}

// run is the render goroutine.
func (h *Host) run(ctx context.Context, ready chan<- error) {
	defer close(h.done)

	w, ht := h.Size()
	if err := h.configure(w, ht); err != nil {
		ready <- err
		return
	}
	h.r.OnSurfaceCreated(h.device, h.queue)
	h.r.OnSurfaceResized(w, ht)
	ready <- nil

	defer func() {
		h.r.OnSurfaceDestroyed()
		h.surf.Unconfigure(h.device)
	}()

	var tick <-chan time.Time
	if h.opts.mode == RedrawContinuous {
		ticker := time.NewTicker(time.Second / time.Duration(h.opts.fps))
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.resizeCh:
			h.applyResize()
		case <-h.redraw:
			h.drainResize()
			h.drawFrame()
		case <-tick:
			h.drainResize()
			h.drawFrame()
		}
	}
}

// drainResize applies a pending resize so the next frame uses the new size.
func (h *Host) drainResize() {
	select {
	case <-h.resizeCh:
		h.applyResize()
	default:
	}
}

func (h *Host) configure(width, height int) error {
	err := h.surf.Configure(h.device, &hal.SurfaceConfiguration{
		Width:       uint32(width),  //nolint:gosec // validated positive
		Height:      uint32(height), //nolint:gosec // validated positive
		Format:      h.format,
		Usage:       gputypes.TextureUsageRenderAttachment,
		PresentMode: h.opts.presentMode,
		AlphaMode:   hal.CompositeAlphaModeOpaque,
	})
	if err != nil {
		return fmt.Errorf("surface: configure %dx%d: %w", width, height, err)
	}
	return nil
}

func (h *Host) applyResize() {
	w, ht := h.Size()
	if err := h.configure(w, ht); err != nil {
		slogger().Warn("surface: reconfigure failed", "err", err)
		return
	}
	h.r.OnSurfaceResized(w, ht)
	slogger().Debug("surface: resized", "width", w, "height", ht)
}

// drawFrame acquires a surface texture, lets the renderer draw into it and
// presents it. Failures skip the frame.
func (h *Host) drawFrame() {
	acquired, err := h.surf.AcquireTexture(nil)
	if err != nil {
		h.failures.Add(1)
		slogger().Warn("surface: acquire failed", "err", err)
		if errors.Is(err, hal.ErrSurfaceOutdated) {
			h.applyResize()
		}
		return
	}

	view, err := h.device.CreateTextureView(acquired.Texture, &hal.TextureViewDescriptor{
		Label:         "camview_surface_view",
		Format:        h.format,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		h.failures.Add(1)
		h.surf.DiscardTexture(acquired.Texture)
		slogger().Warn("surface: create view failed", "err", err)
		return
	}
	defer h.device.DestroyTextureView(view)

	h.r.OnDraw(view)

	if err := h.queue.Present(h.surf, acquired.Texture, nil); err != nil {
		slogger().Warn("surface: present failed", "err", err)
		return
	}
	h.frames.Add(1)
	if acquired.Suboptimal {
		slogger().Debug("surface: suboptimal surface texture")
	}
}

var _ gpucontext.WindowProvider = (*Host)(nil)

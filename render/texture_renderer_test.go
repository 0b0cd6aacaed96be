// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/camview/bridge"
)

// createNoopDevice opens a device on the noop backend.
func createNoopDevice(t *testing.T) (hal.Device, hal.Queue, func()) {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	cleanup := func() {
		openDev.Device.Destroy()
		instance.Destroy()
	}
	return openDev.Device, openDev.Queue, cleanup
}

// countingDevice records render passes and the draw calls issued through
// them.
type countingDevice struct {
	hal.Device
	clears       atomic.Int32
	draws        atomic.Int32
	lastVertices atomic.Uint32
	failTexture  bool
}

func (d *countingDevice) CreateTexture(desc *hal.TextureDescriptor) (hal.Texture, error) {
	if d.failTexture {
		return nil, errors.New("out of memory")
	}
	return d.Device.CreateTexture(desc)
}

func (d *countingDevice) CreateCommandEncoder(desc *hal.CommandEncoderDescriptor) (hal.CommandEncoder, error) {
	enc, err := d.Device.CreateCommandEncoder(desc)
	if err != nil {
		return nil, err
	}
	return &countingEncoder{CommandEncoder: enc, dev: d}, nil
}

type countingEncoder struct {
	hal.CommandEncoder
	dev *countingDevice
}

func (e *countingEncoder) BeginRenderPass(desc *hal.RenderPassDescriptor) hal.RenderPassEncoder {
	for _, ca := range desc.ColorAttachments {
		if ca.LoadOp == gputypes.LoadOpClear {
			e.dev.clears.Add(1)
		}
	}
	return &countingPass{RenderPassEncoder: e.CommandEncoder.BeginRenderPass(desc), dev: e.dev}
}

type countingPass struct {
	hal.RenderPassEncoder
	dev *countingDevice
}

func (p *countingPass) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	p.dev.draws.Add(1)
	p.dev.lastVertices.Store(vertexCount)
	p.RenderPassEncoder.Draw(vertexCount, instanceCount, firstVertex, firstInstance)
}

// failingQueue rejects texture writes.
type failingQueue struct {
	hal.Queue
}

func (failingQueue) WriteTexture(*hal.ImageCopyTexture, []byte, *hal.ImageDataLayout, *hal.Extent3D) error {
	return errors.New("device lost")
}

func newReadyRenderer(t *testing.T, opts ...Option) (*TextureRenderer, *countingDevice, hal.Queue) {
	t.Helper()
	device, queue, cleanup := createNoopDevice(t)
	t.Cleanup(cleanup)
	dev := &countingDevice{Device: device}
	r := New(opts...)
	r.OnSurfaceCreated(dev, queue)
	if r.State() != StateReady {
		t.Fatalf("State() = %v, want %v", r.State(), StateReady)
	}
	return r, dev, queue
}

func noopView(t *testing.T, device hal.Device) hal.TextureView {
	t.Helper()
	tex, err := device.CreateTexture(&hal.TextureDescriptor{
		Label:         "target",
		Size:          hal.Extent3D{Width: 4, Height: 4, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatBGRA8Unorm,
		Usage:         gputypes.TextureUsageRenderAttachment,
	})
	if err != nil {
		t.Fatalf("CreateTexture: %v", err)
	}
	view, err := device.CreateTextureView(tex, &hal.TextureViewDescriptor{})
	if err != nil {
		t.Fatalf("CreateTextureView: %v", err)
	}
	return view
}

func TestRendererLifecycle(t *testing.T) {
	r := New(WithTextureSize(8, 4))
	if r.State() != StateUninitialized {
		t.Errorf("State() = %v, want %v", r.State(), StateUninitialized)
	}
	if id := r.TextureID(); id != 0 {
		t.Errorf("TextureID() before setup = %d, want 0", id)
	}

	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()
	r.OnSurfaceCreated(device, queue)
	if r.State() != StateReady {
		t.Fatalf("State() = %v, want %v", r.State(), StateReady)
	}
	id := r.TextureID()
	if id == 0 {
		t.Fatal("TextureID() after setup = 0")
	}
	if w, h, ok := r.TextureSize(id); !ok || w != 8 || h != 4 {
		t.Errorf("TextureSize = %d, %d, %v, want 8, 4, true", w, h, ok)
	}

	r.OnSurfaceDestroyed()
	if r.State() != StateDestroyed {
		t.Errorf("State() = %v, want %v", r.State(), StateDestroyed)
	}
	if got := r.TextureID(); got != 0 {
		t.Errorf("TextureID() after destroy = %d, want 0", got)
	}
	r.OnSurfaceDestroyed()
}

func TestTextureIDsAreUnique(t *testing.T) {
	a, _, _ := newReadyRenderer(t)
	b, _, _ := newReadyRenderer(t)
	if a.TextureID() == b.TextureID() {
		t.Errorf("two renderers share texture ID %d", a.TextureID())
	}
}

func TestDrawBeforeSetupIsNoop(t *testing.T) {
	device, _, cleanup := createNoopDevice(t)
	defer cleanup()

	r := New()
	r.OnDraw(noopView(t, device))
	st := r.Stats()
	if st.Draws != 0 || st.SkippedDraws != 1 {
		t.Errorf("Stats = %+v, want 0 draws and 1 skipped", st)
	}
}

func TestDrawIssuesQuad(t *testing.T) {
	r, dev, _ := newReadyRenderer(t)
	r.OnSurfaceResized(320, 240)
	r.OnDraw(noopView(t, dev))

	if got := dev.draws.Load(); got != 1 {
		t.Fatalf("Draw calls = %d, want 1", got)
	}
	if got := dev.lastVertices.Load(); got != quadVertexCount {
		t.Errorf("vertex count = %d, want %d", got, quadVertexCount)
	}
	if st := r.Stats(); st.Draws != 1 {
		t.Errorf("Stats.Draws = %d, want 1", st.Draws)
	}

	r.OnDraw(nil)
	if got := dev.draws.Load(); got != 1 {
		t.Errorf("Draw calls after nil target = %d, want 1", got)
	}
}

func TestDrawAfterDestroyIsNoop(t *testing.T) {
	r, dev, _ := newReadyRenderer(t)
	view := noopView(t, dev)
	r.OnSurfaceDestroyed()
	r.OnDraw(view)
	if got := dev.draws.Load(); got != 0 {
		t.Errorf("Draw calls = %d, want 0", got)
	}
}

func TestWriteTexture(t *testing.T) {
	r, _, _ := newReadyRenderer(t, WithTextureSize(4, 2))
	id := r.TextureID()

	if err := r.WriteTexture(id, make([]byte, 4*2*4)); err != nil {
		t.Fatalf("WriteTexture: %v", err)
	}
	if st := r.Stats(); st.Uploads != 1 {
		t.Errorf("Stats.Uploads = %d, want 1", st.Uploads)
	}
	if err := r.WriteTexture(id, make([]byte, 5)); !errors.Is(err, ErrTextureDataSize) {
		t.Errorf("short write error = %v, want ErrTextureDataSize", err)
	}
	if err := r.WriteTexture(id+1000, make([]byte, 32)); !errors.Is(err, ErrUnknownTexture) {
		t.Errorf("foreign id error = %v, want ErrUnknownTexture", err)
	}

	r.OnSurfaceDestroyed()
	err := r.WriteTexture(id, make([]byte, 32))
	if !errors.Is(err, ErrDestroyed) || !errors.Is(err, bridge.ErrTargetClosed) {
		t.Errorf("write after destroy = %v, want ErrDestroyed", err)
	}
}

func TestWriteTextureBeforeSetup(t *testing.T) {
	r := New()
	if err := r.WriteTexture(1, nil); !errors.Is(err, ErrNotReady) {
		t.Errorf("WriteTexture = %v, want ErrNotReady", err)
	}
}

func TestWriteTextureQueueFailure(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()
	r := New(WithTextureSize(2, 2))
	r.OnSurfaceCreated(device, failingQueue{Queue: queue})
	if r.State() != StateReady {
		t.Fatalf("State() = %v, want %v", r.State(), StateReady)
	}
	if err := r.WriteTexture(r.TextureID(), make([]byte, 16)); err == nil {
		t.Error("WriteTexture succeeded on a failing queue")
	}
}

func TestSetupFailures(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*testing.T) (*TextureRenderer, hal.Device, hal.Queue)
	}{
		{
			name: "invalid shader",
			setup: func(t *testing.T) (*TextureRenderer, hal.Device, hal.Queue) {
				d, q, cleanup := createNoopDevice(t)
				t.Cleanup(cleanup)
				return New(withShaderSource("this is not wgsl")), d, q
			},
		},
		{
			name: "texture allocation",
			setup: func(t *testing.T) (*TextureRenderer, hal.Device, hal.Queue) {
				d, q, cleanup := createNoopDevice(t)
				t.Cleanup(cleanup)
				return New(), &countingDevice{Device: d, failTexture: true}, q
			},
		},
		{
			name: "nil device",
			setup: func(*testing.T) (*TextureRenderer, hal.Device, hal.Queue) {
				return New(), nil, nil
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, device, queue := tt.setup(t)
			r.OnSurfaceCreated(device, queue)
			if r.State() != StateFailed {
				t.Fatalf("State() = %v, want %v", r.State(), StateFailed)
			}
			if id := r.TextureID(); id != 0 {
				t.Errorf("TextureID() = %d, want 0", id)
			}
			r.OnDraw(nil)
			if st := r.Stats(); st.Draws != 0 {
				t.Errorf("Stats.Draws = %d, want 0", st.Draws)
			}
		})
	}
}

func TestFailedSetupStillClears(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()
	dev := &countingDevice{Device: device}

	r := New(withShaderSource("this is not wgsl"))
	r.OnSurfaceCreated(dev, queue)
	if r.State() != StateFailed {
		t.Fatalf("State() = %v, want %v", r.State(), StateFailed)
	}

	r.OnDraw(noopView(t, device))
	if got := dev.clears.Load(); got != 1 {
		t.Errorf("clearing render passes = %d, want 1", got)
	}
	if got := dev.draws.Load(); got != 0 {
		t.Errorf("Draw calls = %d, want 0", got)
	}
	if st := r.Stats(); st.Draws != 0 || st.SkippedDraws != 1 {
		t.Errorf("Stats = %+v, want 0 draws and 1 skipped", st)
	}
}

func TestConcurrentWriteAndDraw(t *testing.T) {
	r, dev, _ := newReadyRenderer(t, WithTextureSize(4, 4))
	view := noopView(t, dev)
	id := r.TextureID()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			_ = r.WriteTexture(id, make([]byte, 64))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			r.OnDraw(view)
		}
	}()
	wg.Wait()

	st := r.Stats()
	if st.Uploads != 50 || st.Draws != 50 {
		t.Errorf("Stats = %+v, want 50 uploads and 50 draws", st)
	}
}

func TestCompileSPIRV(t *testing.T) {
	code, err := compileSPIRV(quadShaderSource)
	if err != nil {
		t.Fatalf("compileSPIRV: %v", err)
	}
	const spirvMagic = 0x07230203
	if len(code) == 0 {
		t.Fatal("compileSPIRV returned no code")
	}
	if code[0] != spirvMagic {
		t.Errorf("SPIR-V header = %#x, want %#x", code[0], spirvMagic)
	}
	if _, err := compileSPIRV(""); err == nil {
		t.Error("compileSPIRV accepted empty source")
	}
}

func TestQuadGeometry(t *testing.T) {
	b := floatBytes(quadPositions[:])
	if len(b) != quadVertexCount*positionStride {
		t.Errorf("position bytes = %d, want %d", len(b), quadVertexCount*positionStride)
	}
	if got := len(floatBytes(quadTexCoords[:])); got != quadVertexCount*texCoordStride {
		t.Errorf("texcoord bytes = %d, want %d", got, quadVertexCount*texCoordStride)
	}
	layout := quadVertexLayout()
	if len(layout) != 2 {
		t.Fatalf("vertex buffers = %d, want 2", len(layout))
	}
	if layout[1].Attributes[0].ShaderLocation != 1 {
		t.Errorf("texcoord location = %d, want 1", layout[1].Attributes[0].ShaderLocation)
	}
}

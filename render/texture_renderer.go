// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/camview/bridge"
)

// State is the lifecycle state of a TextureRenderer.
type State int32

const (
	StateUninitialized State = iota
	StateReady
	StateFailed
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	case StateDestroyed:
		return "destroyed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Renderer errors.
var (
	// ErrDestroyed is returned by WriteTexture after OnSurfaceDestroyed.
	// It matches bridge.ErrTargetClosed.
	ErrDestroyed = fmt.Errorf("render: renderer destroyed: %w", bridge.ErrTargetClosed)

	// ErrNotReady is returned by WriteTexture before setup has completed
	// or after it failed.
	ErrNotReady = errors.New("render: renderer not ready")

	// ErrUnknownTexture is returned for a texture ID this renderer does not own.
	ErrUnknownTexture = errors.New("render: unknown texture")

	// ErrTextureDataSize is returned when pixel data does not match the texture.
	ErrTextureDataSize = errors.New("render: texture data size mismatch")
)

// nextTextureID hands out process-unique texture handles. Zero is never used.
var nextTextureID atomic.Uint32

// Stats counts renderer activity.
type Stats struct {
	Draws        uint64
	SkippedDraws uint64
	Uploads      uint64
}

// TextureRenderer draws a single RGBA texture on a full-screen quad.
//
// OnSurfaceCreated, OnSurfaceResized, OnDraw and OnSurfaceDestroyed are
// called from the render goroutine. TextureID, TextureSize and WriteTexture
// may be called from any goroutine.
type TextureRenderer struct {
	opts  options
	state atomic.Int32
	texID atomic.Uint32

	// mu guards the GPU objects and the texture contents. OnDraw holds it
	// for the whole encode and submit, WriteTexture for the upload.
	mu     sync.Mutex
	device hal.Device
	queue  hal.Queue

	shader     hal.ShaderModule
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipeline   hal.RenderPipeline
	positions  hal.Buffer
	texCoords  hal.Buffer
	texture    hal.Texture
	view       hal.TextureView
	sampler    hal.Sampler
	bindGroup  hal.BindGroup

	viewportW, viewportH int

	draws   atomic.Uint64
	skipped atomic.Uint64
	uploads atomic.Uint64
}

// New creates a renderer. No GPU resources are allocated until
// OnSurfaceCreated.
func New(opts ...Option) *TextureRenderer {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &TextureRenderer{opts: o}
}

// State returns the current lifecycle state.
func (r *TextureRenderer) State() State {
	return State(r.state.Load())
}

// TextureID returns the handle of the frame texture, or 0 while the
// renderer is not ready.
func (r *TextureRenderer) TextureID() bridge.TextureID {
	if r.State() != StateReady {
		return 0
	}
	return bridge.TextureID(r.texID.Load())
}

// TextureSize implements bridge.TextureTarget.
func (r *TextureRenderer) TextureSize(id bridge.TextureID) (width, height int, ok bool) {
	if id == 0 || r.TextureID() != id {
		return 0, 0, false
	}
	return r.opts.width, r.opts.height, true
}

// OnSurfaceCreated allocates every GPU object and moves the renderer to
// StateReady. On failure the partial resources are released, the error is
// logged and the renderer moves to StateFailed.
func (r *TextureRenderer) OnSurfaceCreated(device hal.Device, queue hal.Queue) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.State() != StateUninitialized {
		slogger().Warn("render: OnSurfaceCreated in unexpected state", "state", r.State())
		return
	}
	if device == nil || queue == nil {
		slogger().Error("render: setup failed", "err", "nil device or queue")
		r.state.Store(int32(StateFailed))
		return
	}
	r.device = device
	r.queue = queue

	if err := r.createResources(); err != nil {
		slogger().Error("render: setup failed", "err", err)
		r.destroyResources()
		r.state.Store(int32(StateFailed))
		return
	}

	id := nextTextureID.Add(1)
	if id == 0 {
		id = nextTextureID.Add(1)
	}
	r.texID.Store(id)
	r.state.Store(int32(StateReady))
	slogger().Info("render: ready",
		"texture", id, "width", r.opts.width, "height", r.opts.height)
}

func (r *TextureRenderer) createResources() error {
	if err := r.createPipeline(); err != nil {
		return err
	}
	if err := r.createQuad(); err != nil {
		return err
	}
	return r.createTexture()
}

// createPipeline compiles the shader pair and creates the layouts and the
// triangle-strip render pipeline.
func (r *TextureRenderer) createPipeline() error {
	spirv, err := compileSPIRV(r.opts.shaderSource)
	if err != nil {
		return err
	}
	shader, err := r.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "camview_quad_shader",
		Source: hal.ShaderSource{SPIRV: spirv},
	})
	if err != nil {
		return fmt.Errorf("create shader module: %w", err)
	}
	r.shader = shader

	// Binding 0: frame texture, binding 1: sampler.
	bindLayout, err := r.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "camview_quad_bind_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create bind group layout: %w", err)
	}
	r.bindLayout = bindLayout

	pipeLayout, err := r.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "camview_quad_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{r.bindLayout},
	})
	if err != nil {
		return fmt.Errorf("create pipeline layout: %w", err)
	}
	r.pipeLayout = pipeLayout

	pipeline, err := r.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "camview_quad_pipeline",
		Layout: r.pipeLayout,
		Vertex: hal.VertexState{
			Module:     r.shader,
			EntryPoint: vertexEntryPoint,
			Buffers:    quadVertexLayout(),
		},
		Fragment: &hal.FragmentState{
			Module:     r.shader,
			EntryPoint: fragmentEntryPoint,
			Targets: []gputypes.ColorTargetState{
				{
					Format:    r.opts.targetFormat,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology:  gputypes.PrimitiveTopologyTriangleStrip,
			FrontFace: gputypes.FrontFaceCCW,
			CullMode:  gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return fmt.Errorf("create render pipeline: %w", err)
	}
	r.pipeline = pipeline
	return nil
}

// createQuad uploads the static position and texture coordinate buffers.
func (r *TextureRenderer) createQuad() error {
	var err error
	r.positions, err = r.createVertexBuffer("camview_quad_positions", floatBytes(quadPositions[:]))
	if err != nil {
		return err
	}
	r.texCoords, err = r.createVertexBuffer("camview_quad_texcoords", floatBytes(quadTexCoords[:]))
	return err
}

func (r *TextureRenderer) createVertexBuffer(label string, data []byte) (hal.Buffer, error) {
	buf, err := r.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  uint64(len(data)),
		Usage: gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", label, err)
	}
	if err := r.queue.WriteBuffer(buf, 0, data); err != nil {
		r.device.DestroyBuffer(buf)
		return nil, fmt.Errorf("write %s: %w", label, err)
	}
	return buf, nil
}

// createTexture allocates the frame texture, its view, the sampler and the
// bind group tying them to the pipeline.
func (r *TextureRenderer) createTexture() error {
	tex, err := r.device.CreateTexture(&hal.TextureDescriptor{
		Label: "camview_frame_texture",
		Size: hal.Extent3D{
			Width:              uint32(r.opts.width),  //nolint:gosec // validated positive
			Height:             uint32(r.opts.height), //nolint:gosec // validated positive
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create frame texture: %w", err)
	}
	r.texture = tex

	view, err := r.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         "camview_frame_view",
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		return fmt.Errorf("create frame texture view: %w", err)
	}
	r.view = view

	sampler, err := r.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "camview_frame_sampler",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.FilterModeLinear,
	})
	if err != nil {
		return fmt.Errorf("create frame sampler: %w", err)
	}
	r.sampler = sampler

	bindGroup, err := r.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "camview_quad_bind_group",
		Layout: r.bindLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.TextureViewBinding{TextureView: r.view.NativeHandle()}},
			{Binding: 1, Resource: gputypes.SamplerBinding{Sampler: r.sampler.NativeHandle()}},
		},
	})
	if err != nil {
		return fmt.Errorf("create bind group: %w", err)
	}
	r.bindGroup = bindGroup
	return nil
}

// OnSurfaceResized records the viewport size. The quad geometry is fixed.
func (r *TextureRenderer) OnSurfaceResized(width, height int) {
	r.mu.Lock()
	r.viewportW, r.viewportH = width, height
	r.mu.Unlock()
	slogger().Debug("render: viewport resized", "width", width, "height", height)
}

// WriteTexture replaces the texture contents with tightly packed RGBA8
// pixels. It implements bridge.TextureTarget and returns once the queue
// has accepted the data.
func (r *TextureRenderer) WriteTexture(id bridge.TextureID, rgba []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.State() {
	case StateReady:
	case StateDestroyed:
		return ErrDestroyed
	default:
		return ErrNotReady
	}
	if id == 0 || uint32(id) != r.texID.Load() {
		return fmt.Errorf("%w: %d", ErrUnknownTexture, id)
	}
	w, h := r.opts.width, r.opts.height
	if len(rgba) != w*h*4 {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrTextureDataSize, len(rgba), w*h*4)
	}

	err := r.queue.WriteTexture(
		&hal.ImageCopyTexture{
			Texture:  r.texture,
			MipLevel: 0,
			Aspect:   gputypes.TextureAspectAll,
		},
		rgba,
		&hal.ImageDataLayout{
			Offset:       0,
			BytesPerRow:  uint32(w * 4), //nolint:gosec // texture size is bounded
			RowsPerImage: uint32(h),     //nolint:gosec // texture size is bounded
		},
		&hal.Extent3D{Width: uint32(w), Height: uint32(h), DepthOrArrayLayers: 1}, //nolint:gosec // bounded
	)
	if err != nil {
		return fmt.Errorf("render: write texture: %w", err)
	}
	r.uploads.Add(1)
	return nil
}

// OnDraw clears target and draws the frame texture over it. A renderer
// whose setup failed still clears target, so the surface shows the clear
// color instead of stale contents; such draws count as skipped.
func (r *TextureRenderer) OnDraw(target hal.TextureView) {
	if target == nil {
		r.skipped.Add(1)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// State is read under the lock: OnSurfaceDestroyed may have run.
	switch r.State() {
	case StateReady:
		if err := r.draw(target, true); err != nil {
			slogger().Warn("render: draw failed", "err", err)
			r.skipped.Add(1)
			return
		}
		r.draws.Add(1)
	case StateFailed:
		r.skipped.Add(1)
		if r.device == nil || r.queue == nil {
			return
		}
		if err := r.draw(target, false); err != nil {
			slogger().Warn("render: clear failed", "err", err)
		}
	default:
		r.skipped.Add(1)
	}
}

// draw encodes one render pass clearing target and, when quad is set,
// drawing the textured quad, then submits it and waits for completion.
func (r *TextureRenderer) draw(target hal.TextureView, quad bool) error {
	encoder, err := r.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "camview_quad_encoder",
	})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	defer encoder.Destroy()

	if err := encoder.BeginEncoding("camview_quad_frame"); err != nil {
		return fmt.Errorf("begin encoding: %w", err)
	}

	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "camview_quad_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{
			{
				View:       target,
				LoadOp:     gputypes.LoadOpClear,
				StoreOp:    gputypes.StoreOpStore,
				ClearValue: r.opts.clear,
			},
		},
	})
	if quad {
		if r.viewportW > 0 && r.viewportH > 0 {
			rp.SetViewport(0, 0, float32(r.viewportW), float32(r.viewportH), 0, 1)
		}
		rp.SetPipeline(r.pipeline)
		rp.SetBindGroup(0, r.bindGroup, nil)
		rp.SetVertexBuffer(0, r.positions, 0)
		rp.SetVertexBuffer(1, r.texCoords, 0)
		rp.Draw(quadVertexCount, 1, 0, 0)
	}
	rp.End()

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}
	defer r.device.FreeCommandBuffer(cmdBuf)

	idx, err := r.queue.Submit([]hal.CommandBuffer{cmdBuf})
	if err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	if r.queue.PollCompleted() < idx {
		if err := r.device.WaitIdle(); err != nil {
			return fmt.Errorf("wait idle: %w", err)
		}
	}
	return nil
}

// OnSurfaceDestroyed stops accepting draws and writes, then releases every
// GPU object. Calling it more than once is harmless.
func (r *TextureRenderer) OnSurfaceDestroyed() {
	prev := State(r.state.Swap(int32(StateDestroyed)))
	if prev == StateDestroyed {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.destroyResources()
	r.texID.Store(0)
	slogger().Info("render: destroyed", "previous", prev)
}

// destroyResources releases GPU objects in reverse creation order.
// Callers hold r.mu.
func (r *TextureRenderer) destroyResources() {
	if r.device == nil {
		return
	}
	if r.bindGroup != nil {
		r.device.DestroyBindGroup(r.bindGroup)
		r.bindGroup = nil
	}
	if r.sampler != nil {
		r.device.DestroySampler(r.sampler)
		r.sampler = nil
	}
	if r.view != nil {
		r.device.DestroyTextureView(r.view)
		r.view = nil
	}
	if r.texture != nil {
		r.device.DestroyTexture(r.texture)
		r.texture = nil
	}
	if r.texCoords != nil {
		r.device.DestroyBuffer(r.texCoords)
		r.texCoords = nil
	}
	if r.positions != nil {
		r.device.DestroyBuffer(r.positions)
		r.positions = nil
	}
	if r.pipeline != nil {
		r.device.DestroyRenderPipeline(r.pipeline)
		r.pipeline = nil
	}
	if r.pipeLayout != nil {
		r.device.DestroyPipelineLayout(r.pipeLayout)
		r.pipeLayout = nil
	}
	if r.bindLayout != nil {
		r.device.DestroyBindGroupLayout(r.bindLayout)
		r.bindLayout = nil
	}
	if r.shader != nil {
		r.device.DestroyShaderModule(r.shader)
		r.shader = nil
	}
}

// Stats returns a snapshot of the renderer counters.
func (r *TextureRenderer) Stats() Stats {
	return Stats{
		Draws:        r.draws.Load(),
		SkippedDraws: r.skipped.Load(),
		Uploads:      r.uploads.Load(),
	}
}

var _ bridge.TextureTarget = (*TextureRenderer)(nil)

// Package camview moves camera frames from a capture source to a GPU
// texture on screen.
//
// # Overview
//
// A frame travels through four stages:
//
//  1. A [Source] produces 4:2:0 frames with arbitrary strides.
//  2. The [Pipeline] packs each frame into an NV21 buffer (package yuv).
//  3. A bridge.Bridge runs the processing routine on the buffer and uploads
//     the RGBA result into the renderer's texture (packages bridge and
//     render).
//  4. The pipeline asks the surface host to redraw, and the host draws the
//     texture as a full-screen quad (package surface).
//
// # Quick Start
//
//	dev, _ := gpu.Open(gpu.BackendSoftware)
//	defer dev.Close()
//	surf, _ := dev.CreateSurface()
//
//	tr := render.New(render.WithTargetFormat(dev.SurfaceFormat()))
//	host, _ := surface.NewHost(dev, surf, tr)
//	_ = host.Start(ctx)
//	defer host.Stop()
//
//	br := bridge.New(tr, filter.Passthrough())
//	p := camview.New(br, tr, host)
//
//	src, _ := source.NewTestPattern(640, 480, source.WithLimit(100))
//	err := p.Run(ctx, src)
//
// # Backpressure
//
// The pipeline holds at most one pending frame. A frame that arrives while
// another one is still waiting replaces it; the replaced frame is released
// and counted in [Stats].Dropped. Submit never blocks. [Pipeline.Run] calls
// the source's Next only after the previous frame has been converted and
// released, so a pulled source holds at most one frame at a time.
//
// # Logging
//
// camview is silent by default. Call [SetLogger] to route the logs of this
// package and of bridge, render and surface to a single slog.Logger.
package camview

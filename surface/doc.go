// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package surface hosts a Renderer on a hal.Surface.
//
// A Host owns a dedicated render goroutine. That goroutine configures the
// surface, runs the renderer lifecycle callbacks, and draws frames either on
// request (RedrawOnDemand) or at a fixed rate (RedrawContinuous). Every
// Renderer callback runs on that goroutine, so renderers need no locking
// for their GPU objects beyond what they share with other goroutines.
//
// # Redraw coalescing
//
// RequestRedraw is non-blocking and may be called from any goroutine. Any
// number of requests made before the next draw produce a single draw.
//
// # Usage
//
//	host, err := surface.NewHost(provider, surf, renderer)
//	if err != nil {
//	    return err
//	}
//	if err := host.Start(ctx); err != nil {
//	    return err
//	}
//	defer host.Stop()
//
//	host.RequestRedraw()
package surface

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package render draws one RGBA texture on a full-screen quad.
//
// TextureRenderer owns every GPU object it uses: the shader pair, the
// pipeline, two static vertex buffers (clip-space positions and texture
// coordinates) and a single RGBA8 texture. Other goroutines fill the
// texture through WriteTexture while the render goroutine draws it in
// OnDraw; a mutex makes both operations atomic with respect to each other.
//
// # Lifecycle
//
//	Uninitialized --OnSurfaceCreated--> Ready --OnSurfaceDestroyed--> Destroyed
//	      |
//	      +--setup error--> Failed
//
// A renderer that failed setup stays failed; draws and writes are ignored.
// When the surface is recreated, create a new renderer.
//
// The renderer never creates a device. It receives hal.Device and hal.Queue
// from the surface host that owns them.
package render

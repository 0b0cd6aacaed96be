// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"image/color"

	"github.com/gogpu/gputypes"
)

// Default texture dimensions.
const (
	DefaultTextureWidth  = 640
	DefaultTextureHeight = 480
)

// Option configures a TextureRenderer.
type Option func(*options)

type options struct {
	width, height int
	clear         gputypes.Color
	targetFormat  gputypes.TextureFormat
	shaderSource  string
}

func defaultOptions() options {
	return options{
		width:        DefaultTextureWidth,
		height:       DefaultTextureHeight,
		clear:        gputypes.Color{R: 0, G: 0, B: 0, A: 1},
		targetFormat: gputypes.TextureFormatBGRA8Unorm,
		shaderSource: quadShaderSource,
	}
}

// WithTextureSize sets the size of the frame texture. Non-positive values
// keep the default.
func WithTextureSize(width, height int) Option {
	return func(o *options) {
		if width > 0 && height > 0 {
			o.width, o.height = width, height
		}
	}
}

// WithClearColor sets the color the target is cleared to before the quad
// is drawn. The default is opaque black.
func WithClearColor(c color.Color) Option {
	return func(o *options) {
		r, g, b, a := c.RGBA()
		o.clear = gputypes.Color{
			R: float64(r) / 0xffff,
			G: float64(g) / 0xffff,
			B: float64(b) / 0xffff,
			A: float64(a) / 0xffff,
		}
	}
}

// WithTargetFormat sets the format of the surface textures drawn into.
// Use the format the surface was configured with.
func WithTargetFormat(f gputypes.TextureFormat) Option {
	return func(o *options) {
		if f != gputypes.TextureFormatUndefined {
			o.targetFormat = f
		}
	}
}

// withShaderSource replaces the quad shader. Used by tests.
func withShaderSource(src string) Option {
	return func(o *options) {
		o.shaderSource = src
	}
}

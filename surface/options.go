// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package surface

import (
	"fmt"
	"strings"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// RedrawMode selects what drives frame rendering.
type RedrawMode int

const (
	// RedrawOnDemand draws only after RequestRedraw.
	RedrawOnDemand RedrawMode = iota

	// RedrawContinuous draws at a fixed rate and ignores RequestRedraw.
	RedrawContinuous
)

func (m RedrawMode) String() string {
	switch m {
	case RedrawOnDemand:
		return "on-demand"
	case RedrawContinuous:
		return "continuous"
	default:
		return fmt.Sprintf("RedrawMode(%d)", int(m))
	}
}

// ParseRedrawMode parses "on-demand" or "continuous".
func ParseRedrawMode(s string) (RedrawMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on-demand", "ondemand", "":
		return RedrawOnDemand, nil
	case "continuous":
		return RedrawContinuous, nil
	default:
		return 0, fmt.Errorf("surface: unknown redraw mode %q", s)
	}
}

// Defaults.
const (
	DefaultFPS    = 30
	DefaultWidth  = 640
	DefaultHeight = 480
)

// Option configures a Host.
type Option func(*options)

type options struct {
	mode        RedrawMode
	fps         int
	width       int
	height      int
	scale       float64
	presentMode hal.PresentMode
	format      gputypes.TextureFormat
}

func defaultOptions() options {
	return options{
		mode:        RedrawOnDemand,
		fps:         DefaultFPS,
		width:       DefaultWidth,
		height:      DefaultHeight,
		scale:       1,
		presentMode: hal.PresentModeFifo,
	}
}

// WithRedrawMode sets the redraw policy.
func WithRedrawMode(m RedrawMode) Option {
	return func(o *options) {
		o.mode = m
	}
}

// WithFPS sets the frame rate used by RedrawContinuous.
func WithFPS(fps int) Option {
	return func(o *options) {
		if fps > 0 {
			o.fps = fps
		}
	}
}

// WithSize sets the initial surface size in physical pixels.
func WithSize(width, height int) Option {
	return func(o *options) {
		if width > 0 && height > 0 {
			o.width, o.height = width, height
		}
	}
}

// WithScaleFactor sets the DPI scale reported by ScaleFactor.
func WithScaleFactor(scale float64) Option {
	return func(o *options) {
		if scale > 0 {
			o.scale = scale
		}
	}
}

// WithPresentMode sets the surface present mode. The default is FIFO.
func WithPresentMode(m hal.PresentMode) Option {
	return func(o *options) {
		o.presentMode = m
	}
}

// WithSurfaceFormat overrides the surface format reported by the provider.
func WithSurfaceFormat(f gputypes.TextureFormat) Option {
	return func(o *options) {
		o.format = f
	}
}

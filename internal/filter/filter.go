// Package filter holds the built-in processing routines used behind the
// frame processing bridge.
//
// Every filter decodes a packed NV21 buffer, transforms it, and draws the
// result into the destination image scaled to its bounds.
package filter

import (
	"fmt"
	"image"
	"image/color"
	"sort"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/segment"
	"golang.org/x/image/draw"

	"github.com/gogpu/camview/bridge"
	"github.com/gogpu/camview/yuv"
)

// Names of the built-in filters accepted by ByName.
const (
	NamePassthrough = "passthrough"
	NameGrayscale   = "grayscale"
	NameEdges       = "edges"
)

// DefaultEdgeThreshold is the binarization level used by ByName("edges").
const DefaultEdgeThreshold uint8 = 48

// edgeBlurRadius smooths sensor noise before the Sobel pass.
const edgeBlurRadius = 1.0

// decoder converts NV21 to RGBA into a reusable image.
type decoder struct {
	rgba *image.RGBA
}

func (d *decoder) decode(buf []byte, w, h int) (*image.RGBA, error) {
	if d.rgba == nil || d.rgba.Rect.Dx() != w || d.rgba.Rect.Dy() != h {
		d.rgba = image.NewRGBA(image.Rect(0, 0, w, h))
	}
	if err := yuv.NV21ToRGBA(buf, w, h, d.rgba); err != nil {
		return nil, fmt.Errorf("filter: decode: %w", err)
	}
	return d.rgba, nil
}

// scaleInto draws src over the whole of dst, using a plain copy when the
// sizes already match.
func scaleInto(dst *image.RGBA, src image.Image) {
	if src.Bounds().Size() == dst.Rect.Size() {
		draw.Draw(dst, dst.Rect, src, src.Bounds().Min, draw.Src)
		return
	}
	draw.BiLinear.Scale(dst, dst.Rect, src, src.Bounds(), draw.Src, nil)
}

// Passthrough returns a processor that shows the camera image unchanged.
func Passthrough() bridge.Processor {
	var d decoder
	return bridge.ProcessorFunc(func(buf []byte, w, h int, dst *image.RGBA) error {
		img, err := d.decode(buf, w, h)
		if err != nil {
			return err
		}
		scaleInto(dst, img)
		return nil
	})
}

// Grayscale returns a processor that shows only the luma plane.
func Grayscale() bridge.Processor {
	var gray *image.Gray
	return bridge.ProcessorFunc(func(buf []byte, w, h int, dst *image.RGBA) error {
		if gray == nil || gray.Rect.Dx() != w || gray.Rect.Dy() != h {
			gray = image.NewGray(image.Rect(0, 0, w, h))
		}
		if err := yuv.LumaToGray(buf, w, h, gray); err != nil {
			return fmt.Errorf("filter: luma: %w", err)
		}
		scaleInto(dst, gray)
		return nil
	})
}

// Edges returns a processor that renders a binary edge map: Gaussian blur,
// Sobel gradient, then thresholding at level.
func Edges(level uint8) bridge.Processor {
	var d decoder
	return bridge.ProcessorFunc(func(buf []byte, w, h int, dst *image.RGBA) error {
		img, err := d.decode(buf, w, h)
		if err != nil {
			return err
		}
		edges := segment.Threshold(effect.Sobel(blur.Gaussian(img, edgeBlurRadius)), level)
		scaleInto(dst, edges)
		return nil
	})
}

// Solid returns a processor that fills the texture with c. It ignores the
// frame contents and is used for diagnostics.
func Solid(c color.RGBA) bridge.Processor {
	return bridge.ProcessorFunc(func(_ []byte, _, _ int, dst *image.RGBA) error {
		draw.Draw(dst, dst.Rect, image.NewUniform(c), image.Point{}, draw.Src)
		return nil
	})
}

var registry = map[string]func() bridge.Processor{
	NamePassthrough: Passthrough,
	NameGrayscale:   Grayscale,
	NameEdges:       func() bridge.Processor { return Edges(DefaultEdgeThreshold) },
}

// ByName returns a new instance of the named built-in filter.
func ByName(name string) (bridge.Processor, error) {
	ctor, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("filter: unknown filter %q (available: %v)", name, Names())
	}
	return ctor(), nil
}

// Names returns the sorted names of the built-in filters.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

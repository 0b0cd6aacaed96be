package filter

import (
	"image"
	"image/color"
	"time"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gogpu/camview/bridge"
)

var (
	hudText       = color.RGBA{R: 255, G: 255, A: 255}
	hudBackground = color.RGBA{A: 160}
)

// hudPadding is the margin around the HUD text in pixels.
const hudPadding = 4

// WithOverlay wraps p and draws the line returned by label in the top-left
// corner of every output frame. An empty label draws nothing.
func WithOverlay(p bridge.Processor, label func() string) bridge.Processor {
	return bridge.ProcessorFunc(func(buf []byte, w, h int, dst *image.RGBA) error {
		if err := p.Process(buf, w, h, dst); err != nil {
			return err
		}
		if label != nil {
			DrawLabel(dst, label())
		}
		return nil
	})
}

// DrawLabel draws text on a translucent band at the top-left of dst.
func DrawLabel(dst *image.RGBA, text string) {
	if text == "" {
		return
	}
	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(hudText),
		Face: face,
	}
	width := d.MeasureString(text).Ceil()
	metrics := face.Metrics()
	height := (metrics.Ascent + metrics.Descent).Ceil()

	band := image.Rect(0, 0, width+2*hudPadding, height+2*hudPadding).Intersect(dst.Rect)
	draw.Draw(dst, band, image.NewUniform(hudBackground), image.Point{}, draw.Over)

	d.Dot = fixed.Point26_6{
		X: fixed.I(dst.Rect.Min.X + hudPadding),
		Y: fixed.I(dst.Rect.Min.Y+hudPadding) + metrics.Ascent,
	}
	d.DrawString(text)
}

var printer = message.NewPrinter(language.English)

// FrameLabel formats the HUD line for a processed frame,
// e.g. "frame 1,024 | 12 ms".
func FrameLabel(frame uint64, elapsed time.Duration) string {
	return printer.Sprintf("frame %d | %d ms", frame, elapsed.Milliseconds())
}

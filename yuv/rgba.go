package yuv

import (
	"fmt"
	"image"
	"image/color"
)

// NV21ToRGBA decodes a packed NV21 buffer into dst using full-range BT.601
// coefficients. dst must cover exactly width x height pixels.
func NV21ToRGBA(buf []byte, width, height int, dst *image.RGBA) error {
	if width <= 0 || height <= 0 || width%2 != 0 || height%2 != 0 {
		return formatErrorf("size", "invalid dimensions %dx%d", width, height)
	}
	if want := PackedSize(width, height); len(buf) != want {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrBufferSize, len(buf), want)
	}
	if dst == nil || dst.Rect.Dx() != width || dst.Rect.Dy() != height {
		return fmt.Errorf("yuv: destination image must be %dx%d", width, height)
	}

	luma := buf[:width*height]
	chroma := buf[width*height:]
	for y := 0; y < height; y++ {
		row := dst.Pix[y*dst.Stride : y*dst.Stride+width*4]
		vu := chroma[(y/2)*width:]
		for x := 0; x < width; x++ {
			pair := (x / 2) * 2
			r, g, b := color.YCbCrToRGB(luma[y*width+x], vu[pair+1], vu[pair])
			px := row[x*4 : x*4+4 : x*4+4]
			px[0] = r
			px[1] = g
			px[2] = b
			px[3] = 0xff
		}
	}
	return nil
}

// LumaToGray copies the luma plane of a packed buffer into dst.
func LumaToGray(buf []byte, width, height int, dst *image.Gray) error {
	if len(buf) < width*height {
		return fmt.Errorf("%w: got %d bytes, want at least %d", ErrBufferSize, len(buf), width*height)
	}
	if dst == nil || dst.Rect.Dx() != width || dst.Rect.Dy() != height {
		return fmt.Errorf("yuv: destination image must be %dx%d", width, height)
	}
	for y := 0; y < height; y++ {
		copy(dst.Pix[y*dst.Stride:y*dst.Stride+width], buf[y*width:(y+1)*width])
	}
	return nil
}

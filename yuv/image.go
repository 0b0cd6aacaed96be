package yuv

import "image"

// FromImage wraps a 4:2:0 image.YCbCr as a Frame without copying. It returns
// nil for other subsample ratios. The returned frame shares memory with img.
func FromImage(img *image.YCbCr) *Frame {
	if img == nil || img.SubsampleRatio != image.YCbCrSubsampleRatio420 {
		return nil
	}
	r := img.Rect
	yOff := img.YOffset(r.Min.X, r.Min.Y)
	cOff := img.COffset(r.Min.X, r.Min.Y)
	return NewFrame(r.Dx(), r.Dy(),
		Plane{Data: img.Y[yOff:], RowStride: img.YStride, PixelStride: 1},
		Plane{Data: img.Cb[cOff:], RowStride: img.CStride, PixelStride: 1},
		Plane{Data: img.Cr[cOff:], RowStride: img.CStride, PixelStride: 1},
		nil,
	)
}

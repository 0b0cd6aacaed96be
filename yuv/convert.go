package yuv

import "fmt"

// PackedSize returns the length of the packed NV21 buffer for a frame of the
// given dimensions: a full-resolution luma plane followed by one V/U pair per
// 2x2 luma block.
func PackedSize(width, height int) int {
	return width*height + (width/2)*(height/2)*2
}

// Convert validates f and returns a newly allocated packed NV21 buffer.
// The frame is not retained and may be released right after Convert returns.
func Convert(f *Frame) ([]byte, error) {
	if err := Validate(f); err != nil {
		return nil, err
	}
	dst := make([]byte, PackedSize(f.Width, f.Height))
	convert(dst, f)
	return dst, nil
}

// ConvertInto validates f and writes the packed NV21 buffer into dst, which
// must be exactly PackedSize(f.Width, f.Height) bytes long. Every byte of dst
// is overwritten.
func ConvertInto(dst []byte, f *Frame) error {
	if err := Validate(f); err != nil {
		return err
	}
	if want := PackedSize(f.Width, f.Height); len(dst) != want {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrBufferSize, len(dst), want)
	}
	convert(dst, f)
	return nil
}

// convert assumes f has been validated and dst is correctly sized.
func convert(dst []byte, f *Frame) {
	lumaSize := f.Width * f.Height
	copyLuma(dst[:lumaSize], f)

	chroma := dst[lumaSize:]
	cw, ch := f.ChromaSize()
	switch {
	case isSemiPlanarVU(f):
		copySemiPlanarVU(chroma, f)
	case f.U.dense(cw) && f.V.dense(cw):
		interleaveDense(chroma, f.V.Data, f.U.Data)
	default:
		interleaveStrided(chroma, f, cw, ch)
	}
}

// copyLuma copies the Y plane, dropping any row padding.
func copyLuma(dst []byte, f *Frame) {
	w, h := f.Width, f.Height
	if f.Y.RowStride == w {
		copy(dst, f.Y.Data[:w*h])
		return
	}
	for row := 0; row < h; row++ {
		src := f.Y.Data[row*f.Y.RowStride:]
		copy(dst[row*w:(row+1)*w], src[:w])
	}
}

// isSemiPlanarVU reports whether the chroma planes are two views into one
// interleaved VU buffer without row padding, i.e. the source is already NV21.
func isSemiPlanarVU(f *Frame) bool {
	if f.U.PixelStride != 2 || f.V.PixelStride != 2 {
		return false
	}
	if f.U.RowStride != f.Width || f.V.RowStride != f.Width {
		return false
	}
	if len(f.V.Data) < 2 || len(f.U.Data) == 0 {
		return false
	}
	return &f.U.Data[0] == &f.V.Data[1]
}

// copySemiPlanarVU copies an NV21 chroma region in one bulk copy. The V view
// usually ends one byte short of the region (its last sample is a V), so the
// final U sample is taken from the U plane.
func copySemiPlanarVU(dst []byte, f *Frame) {
	n := copy(dst, f.V.Data)
	if n < len(dst) {
		cw, ch := f.ChromaSize()
		dst[len(dst)-1] = f.U.sample(cw-1, ch-1)
	}
}

// interleaveDense writes V/U pairs from two tightly packed planes.
func interleaveDense(dst, v, u []byte) {
	n := len(dst) / 2
	v = v[:n]
	u = u[:n]
	for i := range n {
		dst[2*i] = v[i]
		dst[2*i+1] = u[i]
	}
}

// interleaveStrided is the general path. It honors each plane's own row and
// pixel strides and is correct for any padding.
func interleaveStrided(dst []byte, f *Frame, cw, ch int) {
	off := 0
	for i := 0; i < ch; i++ {
		vRow := f.V.Data[i*f.V.RowStride:]
		uRow := f.U.Data[i*f.U.RowStride:]
		for j := 0; j < cw; j++ {
			dst[off] = vRow[j*f.V.PixelStride]
			dst[off+1] = uRow[j*f.U.PixelStride]
			off += 2
		}
	}
}

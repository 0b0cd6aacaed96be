package yuv

// Validate checks that f is a well-formed 4:2:0 frame that Convert can
// handle. It returns a *FormatError describing the first problem found.
//
// Requirements:
//   - width and height are positive and even
//   - the Y plane has pixel stride 1
//   - chroma pixel strides are 1 or 2
//   - every row stride covers its row
//   - every plane holds enough bytes for its strides and dimensions
func Validate(f *Frame) error {
	if f == nil {
		return ErrNilFrame
	}
	if f.Width <= 0 || f.Height <= 0 {
		return formatErrorf("size", "non-positive dimensions %dx%d", f.Width, f.Height)
	}
	if f.Width%2 != 0 {
		return formatErrorf("width", "odd width %d", f.Width)
	}
	if f.Height%2 != 0 {
		return formatErrorf("height", "odd height %d", f.Height)
	}

	if f.Y.PixelStride != 1 {
		return formatErrorf("y.pixel_stride", "got %d, want 1", f.Y.PixelStride)
	}
	if err := checkPlane("y", f.Y, f.Width, f.Height); err != nil {
		return err
	}

	cw, ch := f.ChromaSize()
	for _, p := range []struct {
		name  string
		plane Plane
	}{{"u", f.U}, {"v", f.V}} {
		if p.plane.PixelStride != 1 && p.plane.PixelStride != 2 {
			return formatErrorf(p.name+".pixel_stride", "got %d, want 1 or 2", p.plane.PixelStride)
		}
		if err := checkPlane(p.name, p.plane, cw, ch); err != nil {
			return err
		}
	}
	return nil
}

// checkPlane verifies that p can address cols x rows samples.
func checkPlane(name string, p Plane, cols, rows int) error {
	rowSpan := (cols-1)*p.PixelStride + 1
	if p.RowStride < rowSpan {
		return formatErrorf(name+".row_stride", "row stride %d shorter than row span %d", p.RowStride, rowSpan)
	}
	need := (rows-1)*p.RowStride + rowSpan
	if len(p.Data) < need {
		return formatErrorf(name+".data", "plane holds %d bytes, need %d for %dx%d", len(p.Data), need, cols, rows)
	}
	return nil
}

package yuv

import (
	"errors"
	"fmt"
)

var (
	// ErrFormat is matched by every *FormatError via errors.Is.
	ErrFormat = errors.New("yuv: invalid frame format")

	// ErrBufferSize is returned when a destination buffer has the wrong length.
	ErrBufferSize = errors.New("yuv: packed buffer size mismatch")

	// ErrNilFrame is returned when a nil frame is passed.
	ErrNilFrame = errors.New("yuv: nil frame")
)

// FormatError describes why a frame was rejected before conversion.
// Callers drop such frames and continue with the next one.
type FormatError struct {
	// Field names the offending attribute ("width", "u.pixel_stride", ...).
	Field string

	// Reason is a short human-readable explanation.
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("yuv: invalid frame: %s: %s", e.Field, e.Reason)
}

// Is reports whether target is ErrFormat.
func (e *FormatError) Is(target error) bool {
	return target == ErrFormat
}

func formatErrorf(field, format string, args ...any) *FormatError {
	return &FormatError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

package bridge

import (
	"fmt"
	"time"
)

// TextureID identifies a texture owned by the render side. Zero means no
// texture has been allocated yet.
type TextureID uint32

// Status is the outcome code of a Process call. Failures are negative.
type Status int64

const (
	StatusOK                 Status = 0
	StatusInvalidTexture     Status = -1
	StatusInvalidBuffer      Status = -2
	StatusProcessingFailed   Status = -3
	StatusTextureWriteFailed Status = -4
	StatusClosed             Status = -5
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusInvalidTexture:
		return "invalid texture"
	case StatusInvalidBuffer:
		return "invalid buffer"
	case StatusProcessingFailed:
		return "processing failed"
	case StatusTextureWriteFailed:
		return "texture write failed"
	case StatusClosed:
		return "closed"
	default:
		return fmt.Sprintf("status(%d)", int64(s))
	}
}

// Result is returned by Process.
type Result struct {
	Status  Status
	Elapsed time.Duration
}

// OK reports whether the call succeeded.
func (r Result) OK() bool { return r.Status == StatusOK }

// Int64 encodes the result as a single integer: elapsed milliseconds on
// success, the negative status code otherwise.
func (r Result) Int64() int64 {
	if r.Status != StatusOK {
		return int64(r.Status)
	}
	return r.Elapsed.Milliseconds()
}

func (r Result) String() string {
	if r.OK() {
		return fmt.Sprintf("ok (%v)", r.Elapsed)
	}
	return r.Status.String()
}

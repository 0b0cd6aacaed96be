package camview

import (
	"log/slog"

	"github.com/gogpu/camview/yuv"
)

// defaultPoolDepth is the number of packed buffers kept per frame size.
// One buffer is in the bridge while the next frame is being packed.
const defaultPoolDepth = 2

// Option configures a Pipeline during creation.
//
// Example:
//
//	p := camview.New(br, tr, host,
//	    camview.WithBufferPool(yuv.NewBufferPool(4)),
//	    camview.WithOnResult(func(r camview.FrameResult) { ... }),
//	)
type Option func(*options)

// options holds optional configuration for Pipeline creation.
type options struct {
	logger   *slog.Logger
	pool     *yuv.BufferPool
	onResult func(FrameResult)
}

// defaultOptions returns the default pipeline options.
func defaultOptions() options {
	return options{}
}

// WithLogger sets the logger for one pipeline, overriding the package
// logger set with SetLogger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithBufferPool shares a packed buffer pool between pipelines.
func WithBufferPool(p *yuv.BufferPool) Option {
	return func(o *options) {
		o.pool = p
	}
}

// WithOnResult registers a callback invoked on the worker goroutine after
// every frame the worker handled, whatever its outcome. The callback must not
// block.
func WithOnResult(fn func(FrameResult)) Option {
	return func(o *options) {
		o.onResult = fn
	}
}

package camview

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/camview/bridge"
	"github.com/gogpu/camview/gpu"
	"github.com/gogpu/camview/render"
	"github.com/gogpu/camview/surface"
)

// nopHandler is a slog.Handler that silently discards all log records.
// The Enabled method returns false so the caller skips message formatting
// entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// newNopLogger creates a logger that silently discards all output.
func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for camview and its sub-packages
// (bridge, gpu, render, surface). By default nothing is logged.
//
// SetLogger is safe for concurrent use. Pass nil to restore the default
// silent behavior.
//
// Log levels used by camview:
//   - [slog.LevelDebug]: per-frame diagnostics (status, elapsed time)
//   - [slog.LevelInfo]: lifecycle events (pipeline started, GPU adapter)
//   - [slog.LevelWarn]: dropped or rejected frames, failed uploads
//
// Example:
//
//	camview.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)

	bridge.SetLogger(l)
	gpu.SetLogger(l)
	render.SetLogger(l)
	surface.SetLogger(l)
}

// Logger returns the current logger used by camview.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

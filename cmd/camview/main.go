// Command camview runs the camera-to-texture pipeline headless.
//
// It feeds a synthetic test pattern (or a raw YUV file) through the
// pipeline, the selected processing routine and the texture renderer on a
// noop or software GPU backend, then reports the counters of every stage.
//
// Usage:
//
//	camview -frames 120 -processor edges -backend software -snapshot out.png
//	camview -config camview.toml -input capture.nv21 -layout nv21
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/gogpu/camview"
	"github.com/gogpu/camview/bridge"
	"github.com/gogpu/camview/config"
	"github.com/gogpu/camview/gpu"
	"github.com/gogpu/camview/internal/filter"
	"github.com/gogpu/camview/render"
	"github.com/gogpu/camview/source"
	"github.com/gogpu/camview/surface"
	"github.com/gogpu/camview/yuv"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "camview:", err)
		os.Exit(1)
	}
}

// flags holds the command-line overrides.
type flags struct {
	configPath string
	snapshot   string
	verbose    bool

	width, height int
	layout        string
	frames, fps   int
	processor     string
	mode          string
	backend       string
	input         string
}

func parseFlags(args []string, output io.Writer) (*flags, *flag.FlagSet, error) {
	var f flags
	fs := flag.NewFlagSet("camview", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&f.configPath, "config", "", "TOML configuration file")
	fs.IntVar(&f.width, "width", 0, "frame width")
	fs.IntVar(&f.height, "height", 0, "frame height")
	fs.StringVar(&f.layout, "layout", "", "frame layout: i420, nv12 or nv21")
	fs.IntVar(&f.frames, "frames", 0, "number of frames to generate (0 = until interrupted)")
	fs.IntVar(&f.fps, "fps", 0, "source frame rate (0 = unpaced)")
	fs.StringVar(&f.processor, "processor", "", "processing routine: "+strings.Join(filter.Names(), ", "))
	fs.StringVar(&f.mode, "mode", "", "redraw mode: on-demand or continuous")
	fs.StringVar(&f.backend, "backend", "", "GPU backend: noop or software")
	fs.StringVar(&f.snapshot, "snapshot", "", "write the last processed frame to this PNG file")
	fs.StringVar(&f.input, "input", "", "raw YUV file to play instead of the test pattern")
	fs.BoolVar(&f.verbose, "v", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return &f, fs, nil
}

// loadConfig layers the explicitly set flags over the configuration file
// (or the defaults).
func loadConfig(f *flags, fs *flag.FlagSet) (*config.Config, error) {
	cfg := config.Default()
	if f.configPath != "" {
		var err error
		if cfg, err = config.Load(f.configPath); err != nil {
			return nil, err
		}
	}

	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "width":
			cfg.Camera.Width = f.width
		case "height":
			cfg.Camera.Height = f.height
		case "layout":
			cfg.Camera.Layout = f.layout
		case "frames":
			cfg.Camera.Frames = f.frames
		case "fps":
			cfg.Camera.FPS = f.fps
		case "input":
			cfg.Camera.Input = f.input
		case "processor":
			cfg.Processing.Filter = f.processor
		case "mode":
			cfg.Render.Mode = f.mode
		case "backend":
			cfg.Render.Backend = f.backend
		case "v":
			if f.verbose {
				cfg.Log.Level = "debug"
			}
		}
	})
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(ctx context.Context, args []string, stderr io.Writer) error {
	f, fs, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	cfg, err := loadConfig(f, fs)
	if err != nil {
		return err
	}

	logger, err := cfg.Log.NewLogger(stderr)
	if err != nil {
		return err
	}
	camview.SetLogger(logger)
	defer camview.SetLogger(nil)

	backend, _ := gpu.ParseBackend(cfg.Render.Backend)
	dev, err := gpu.Open(backend)
	if err != nil {
		return err
	}
	defer dev.Close()

	surf, err := dev.CreateSurface()
	if err != nil {
		return err
	}

	clearColor, _ := config.ParseColor(cfg.Render.ClearColor)
	tr := render.New(
		render.WithTextureSize(cfg.Render.TextureWidth, cfg.Render.TextureHeight),
		render.WithClearColor(clearColor),
		render.WithTargetFormat(dev.SurfaceFormat()),
	)

	mode, _ := surface.ParseRedrawMode(cfg.Render.Mode)
	host, err := surface.NewHost(dev, surf, tr,
		surface.WithRedrawMode(mode),
		surface.WithFPS(cfg.Render.FPS),
		surface.WithSize(cfg.Render.TextureWidth, cfg.Render.TextureHeight),
	)
	if err != nil {
		return err
	}
	if err := host.Start(ctx); err != nil {
		return err
	}
	defer host.Stop()

	src, closeSrc, err := openSource(cfg.Camera)
	if err != nil {
		return err
	}
	defer closeSrc()

	var p *camview.Pipeline
	var labelled atomic.Uint64
	proc, err := newProcessor(cfg.Processing, func() string {
		return filter.FrameLabel(labelled.Add(1), p.Stats().LastElapsed)
	})
	if err != nil {
		return err
	}
	var snap *snapshotter
	if f.snapshot != "" {
		snap = newSnapshotter(proc)
		proc = snap
	}

	br := bridge.New(tr, proc)
	defer br.Close()

	p = camview.New(br, tr, host,
		camview.WithBufferPool(yuv.NewBufferPool(cfg.Processing.PoolSize)))
	logger.Info("camview: starting",
		"session", p.Session().String(),
		"size", fmt.Sprintf("%dx%d", cfg.Camera.Width, cfg.Camera.Height),
		"processor", cfg.Processing.Filter,
		"backend", dev.Backend(),
		"adapter", dev.AdapterInfo().Name)

	if err := runPipeline(ctx, p, src, host); err != nil {
		return err
	}

	logStats(logger, p.Stats(), br.Stats(), tr.Stats(), host.Stats())
	if snap != nil {
		if err := snap.WritePNG(f.snapshot); err != nil {
			return err
		}
		logger.Info("camview: snapshot written", "path", f.snapshot)
	}
	return nil
}

// runPipeline runs p until the source ends, ctx is cancelled or the host
// exits on its own.
func runPipeline(ctx context.Context, p *camview.Pipeline, src camview.Source, host *surface.Host) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return p.Run(gctx, src)
	})
	g.Go(func() error {
		select {
		case <-host.Done():
			if gctx.Err() == nil {
				return errors.New("render host stopped unexpectedly")
			}
		case <-gctx.Done():
		}
		return nil
	})
	return g.Wait()
}

// openSource returns the raw file reader when an input is configured and the
// test pattern otherwise.
func openSource(c config.Camera) (camview.Source, func(), error) {
	layout, err := source.ParseLayout(c.Layout)
	if err != nil {
		return nil, nil, err
	}

	if c.Input != "" {
		fh, err := os.Open(c.Input)
		if err != nil {
			return nil, nil, err
		}
		rf, err := source.NewRawFile(fh, c.Width, c.Height, layout)
		if err != nil {
			fh.Close()
			return nil, nil, err
		}
		return rf, func() { fh.Close() }, nil
	}

	opts := []source.PatternOption{
		source.WithRate(c.FPS),
		source.WithLimit(c.Frames),
		source.WithRowPadding(c.RowPadding),
	}
	if c.Interleaved || layout == source.LayoutNV21 {
		opts = append(opts, source.WithInterleavedChroma())
	}
	tp, err := source.NewTestPattern(c.Width, c.Height, opts...)
	if err != nil {
		return nil, nil, err
	}
	return tp, func() {}, nil
}

// newProcessor builds the configured routine, with the HUD when enabled.
func newProcessor(c config.Processing, label func() string) (bridge.Processor, error) {
	var proc bridge.Processor
	if c.Filter == filter.NameEdges {
		proc = filter.Edges(c.EdgeThreshold)
	} else {
		var err error
		if proc, err = filter.ByName(c.Filter); err != nil {
			return nil, err
		}
	}
	if c.Overlay {
		proc = filter.WithOverlay(proc, label)
	}
	return proc, nil
}

func logStats(l *slog.Logger, ps camview.Stats, bs bridge.Stats, rs render.Stats, hs surface.Stats) {
	l.Info("camview: pipeline",
		"received", ps.Received,
		"processed", ps.Processed,
		"dropped", ps.Dropped,
		"rejected", ps.Rejected,
		"skipped", ps.Skipped,
		"failures", ps.Failures,
		"last_elapsed", ps.LastElapsed)
	l.Info("camview: bridge",
		"calls", bs.Calls,
		"failures", bs.Failures,
		"last_status", bs.LastStatus)
	l.Info("camview: renderer",
		"draws", rs.Draws,
		"skipped_draws", rs.SkippedDraws,
		"uploads", rs.Uploads)
	l.Info("camview: host",
		"frames", hs.Frames,
		"coalesced", hs.Coalesced,
		"acquire_failures", hs.AcquireFailures)
}

package camview

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/gogpu/camview/bridge"
	"github.com/gogpu/camview/yuv"
)

// Source produces camera frames. Next blocks until a frame is available and
// returns io.EOF when the stream ends. The caller releases every frame it
// receives.
type Source interface {
	Next(ctx context.Context) (*yuv.Frame, error)
}

// Redrawer schedules a redraw of the render surface. surface.Host
// implements it.
type Redrawer interface {
	RequestRedraw()
}

// TextureProvider reports the texture that processed frames are written to.
// A zero ID means no texture exists yet. render.TextureRenderer implements
// it.
type TextureProvider interface {
	TextureID() bridge.TextureID
}

var (
	// ErrAlreadyStarted is returned by Start and Run while the pipeline runs.
	ErrAlreadyStarted = errors.New("camview: pipeline already started")

	// ErrNilSource is returned by Run when src is nil.
	ErrNilSource = errors.New("camview: nil source")
)

// Outcome classifies what happened to one frame.
type Outcome int

const (
	// OutcomeRendered means the frame was uploaded and a redraw requested.
	OutcomeRendered Outcome = iota
	// OutcomeRejected means the frame failed validation.
	OutcomeRejected
	// OutcomeSkipped means no texture was available.
	OutcomeSkipped
	// OutcomeFailed means the bridge returned a non-OK status.
	OutcomeFailed
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeRendered:
		return "rendered"
	case OutcomeRejected:
		return "rejected"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// FrameResult reports the handling of one frame.
type FrameResult struct {
	Sequence uint64
	Outcome  Outcome
	// Result is the bridge result. It is zero for rejected and skipped
	// frames.
	Result bridge.Result
	// Err is the validation error of a rejected frame.
	Err error
}

// Stats summarizes pipeline activity. All counters are cumulative.
type Stats struct {
	Received  uint64 // frames passed to Submit
	Processed uint64 // frames rendered
	Dropped   uint64 // frames replaced by a newer one before processing
	Rejected  uint64 // frames failing validation
	Skipped   uint64 // frames arriving before the texture existed
	Failures  uint64 // bridge calls with a non-OK status
	// LastElapsed is the bridge time of the most recent rendered frame.
	LastElapsed time.Duration
}

// Pipeline delivers frames from a source through a bridge into a texture.
//
// Frames pass through a single-slot mailbox: Submit never blocks, and a
// frame still waiting when the next one arrives is dropped. One worker
// goroutine packs and processes frames in order of arrival.
//
// Thread safety: Submit and Stats may be called from any goroutine. Start,
// Stop and Run must be called from one goroutine.
type Pipeline struct {
	bridge *bridge.Bridge
	tex    TextureProvider
	host   Redrawer
	pool   *yuv.BufferPool

	onResult func(FrameResult)
	log      *slog.Logger
	session  uuid.UUID

	mu      sync.Mutex
	pending *yuv.Frame
	wake    chan struct{}

	// released counts frames the pipeline has released; freed is signalled
	// after each release.
	released atomic.Uint64
	freed    chan struct{}

	running atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}

	received  atomic.Uint64
	processed atomic.Uint64
	dropped   atomic.Uint64
	rejected  atomic.Uint64
	skipped   atomic.Uint64
	failures  atomic.Uint64
	elapsed   atomic.Int64
}

// New creates a pipeline writing into the texture reported by tex through br
// and requesting redraws from host.
func New(br *bridge.Bridge, tex TextureProvider, host Redrawer, opts ...Option) *Pipeline {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.pool == nil {
		o.pool = yuv.NewBufferPool(defaultPoolDepth)
	}

	p := &Pipeline{
		bridge:   br,
		tex:      tex,
		host:     host,
		pool:     o.pool,
		onResult: o.onResult,
		session:  uuid.New(),
		wake:     make(chan struct{}, 1),
		freed:    make(chan struct{}, 1),
	}
	l := o.logger
	if l == nil {
		l = Logger()
	}
	p.log = l.With("session", p.session.String())
	return p
}

// Session returns the identifier attached to this pipeline's log lines.
func (p *Pipeline) Session() uuid.UUID { return p.session }

// Submit hands a frame to the pipeline and returns immediately. If a frame is
// already pending it is released and counted as dropped. The pipeline takes
// ownership of f.
func (p *Pipeline) Submit(f *yuv.Frame) {
	if f == nil {
		return
	}
	p.received.Add(1)

	p.mu.Lock()
	old := p.pending
	p.pending = f
	p.mu.Unlock()

	if old != nil {
		p.dropped.Add(1)
		p.release(old)
		p.log.Debug("camview: frame dropped", "seq", old.Sequence)
	}

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Start launches the worker goroutine. Frames are then delivered with
// Submit. The worker exits when ctx is cancelled or Stop is called.
func (p *Pipeline) Start(ctx context.Context) error {
	if !p.running.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})

	p.log.Info("camview: pipeline started")
	go func() {
		defer close(p.done)
		p.work(ctx, nil)
	}()
	return nil
}

// Stop stops a pipeline started with Start and waits for the worker to exit.
// A pending frame is released. Stop is idempotent.
func (p *Pipeline) Stop() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	<-p.done
	p.discard()
	p.cancel = nil
	p.running.Store(false)
	p.log.Info("camview: pipeline stopped")
}

// Run pulls frames from src and processes them until src returns io.EOF or
// ctx is cancelled. At most one frame from src is unreleased at a time: Next
// is called only after the previous frame has been converted and released.
// The frame pending at EOF is still processed; on cancellation it is
// released. Run returns nil on EOF and on cancellation of ctx, and the
// source error otherwise.
func (p *Pipeline) Run(ctx context.Context, src Source) error {
	if src == nil {
		return ErrNilSource
	}
	if !p.running.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	defer p.running.Store(false)

	p.log.Info("camview: pipeline run started")
	g, gctx := errgroup.WithContext(ctx)
	eof := make(chan struct{})

	g.Go(func() error {
		p.work(gctx, eof)
		return nil
	})
	g.Go(func() error {
		defer close(eof)
		for {
			if err := p.awaitReleased(gctx); err != nil {
				return nil
			}
			f, err := src.Next(gctx)
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				if gctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("camview: source: %w", err)
			}
			p.Submit(f)
		}
	})

	err := g.Wait()
	p.discard()
	st := p.Stats()
	p.log.Info("camview: pipeline run finished",
		"received", st.Received,
		"processed", st.Processed,
		"dropped", st.Dropped,
		"rejected", st.Rejected)
	return err
}

// work is the worker loop. A closed eof ends the loop once the mailbox is
// empty; a nil eof never fires.
func (p *Pipeline) work(ctx context.Context, eof <-chan struct{}) {
	for {
		if f := p.take(); f != nil {
			if ctx.Err() != nil {
				p.release(f)
				return
			}
			p.handle(f)
			continue
		}
		select {
		case <-ctx.Done():
			p.discard()
			return
		case <-eof:
			if f := p.take(); f != nil && ctx.Err() == nil {
				p.handle(f)
			} else if f != nil {
				p.release(f)
			}
			return
		case <-p.wake:
		}
	}
}

// take empties the mailbox.
func (p *Pipeline) take() *yuv.Frame {
	p.mu.Lock()
	f := p.pending
	p.pending = nil
	p.mu.Unlock()
	return f
}

// discard releases a pending frame without processing it.
func (p *Pipeline) discard() {
	if f := p.take(); f != nil {
		p.release(f)
	}
}

// release returns f to its producer and wakes awaitReleased.
func (p *Pipeline) release(f *yuv.Frame) {
	f.Release()
	p.released.Add(1)
	select {
	case p.freed <- struct{}{}:
	default:
	}
}

// awaitReleased blocks until every submitted frame has been released.
func (p *Pipeline) awaitReleased(ctx context.Context) error {
	for p.released.Load() < p.received.Load() {
		select {
		case <-p.freed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// handle packs f, releases it, and passes the packed buffer to the bridge.
func (p *Pipeline) handle(f *yuv.Frame) {
	seq, w, h := f.Sequence, f.Width, f.Height

	buf := p.pool.Get(w, h)
	err := yuv.ConvertInto(buf, f)
	p.release(f)
	if err != nil {
		p.pool.Put(buf)
		p.rejected.Add(1)
		p.log.Warn("camview: frame rejected", "seq", seq, "err", err)
		p.report(FrameResult{Sequence: seq, Outcome: OutcomeRejected, Err: err})
		return
	}
	defer p.pool.Put(buf)

	tex := p.tex.TextureID()
	if tex == 0 {
		p.skipped.Add(1)
		p.log.Debug("camview: no texture yet", "seq", seq)
		p.report(FrameResult{Sequence: seq, Outcome: OutcomeSkipped})
		return
	}

	res := p.bridge.Process(buf, w, h, tex)
	if !res.OK() {
		p.failures.Add(1)
		p.log.Warn("camview: bridge failed", "seq", seq, "status", res.Status)
		p.report(FrameResult{Sequence: seq, Outcome: OutcomeFailed, Result: res})
		return
	}

	p.processed.Add(1)
	p.elapsed.Store(int64(res.Elapsed))
	p.host.RequestRedraw()
	p.log.Debug("camview: frame rendered", "seq", seq, "elapsed", res.Elapsed)
	p.report(FrameResult{Sequence: seq, Outcome: OutcomeRendered, Result: res})
}

func (p *Pipeline) report(r FrameResult) {
	if p.onResult != nil {
		p.onResult(r)
	}
}

// Stats returns a snapshot of the pipeline counters.
func (p *Pipeline) Stats() Stats {
	return Stats{
		Received:    p.received.Load(),
		Processed:   p.processed.Load(),
		Dropped:     p.dropped.Load(),
		Rejected:    p.rejected.Load(),
		Skipped:     p.skipped.Load(),
		Failures:    p.failures.Load(),
		LastElapsed: time.Duration(p.elapsed.Load()),
	}
}

package bridge

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"
	"testing"
	"time"

	"github.com/gogpu/camview/yuv"
)

// fakeTarget records texture writes.
type fakeTarget struct {
	mu      sync.Mutex
	id      TextureID
	w, h    int
	writes  int
	last    []byte
	failErr error
}

func (f *fakeTarget) TextureSize(id TextureID) (int, int, bool) {
	if id != f.id {
		return 0, 0, false
	}
	return f.w, f.h, true
}

func (f *fakeTarget) WriteTexture(id TextureID, rgba []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return f.failErr
	}
	f.writes++
	f.last = append(f.last[:0], rgba...)
	return nil
}

func fill(c color.RGBA) Processor {
	return ProcessorFunc(func(_ []byte, _, _ int, dst *image.RGBA) error {
		for y := 0; y < dst.Rect.Dy(); y++ {
			for x := 0; x < dst.Rect.Dx(); x++ {
				dst.SetRGBA(x, y, c)
			}
		}
		return nil
	})
}

func TestProcessWritesTexture(t *testing.T) {
	tgt := &fakeTarget{id: 7, w: 2, h: 2}
	b := New(tgt, fill(color.RGBA{1, 2, 3, 4}))

	res := b.Process(make([]byte, yuv.PackedSize(4, 2)), 4, 2, 7)
	if !res.OK() {
		t.Fatalf("Process = %v, want ok", res)
	}
	if tgt.writes != 1 {
		t.Fatalf("writes = %d, want 1", tgt.writes)
	}
	if len(tgt.last) != 16 || tgt.last[0] != 1 || tgt.last[3] != 4 {
		t.Errorf("written pixels = %v", tgt.last)
	}
	if res.Int64() < 0 {
		t.Errorf("Int64() = %d, want >= 0", res.Int64())
	}
}

func TestProcessInvalidTexture(t *testing.T) {
	for _, tex := range []TextureID{0, 99} {
		tgt := &fakeTarget{id: 7, w: 2, h: 2}
		called := false
		b := New(tgt, ProcessorFunc(func([]byte, int, int, *image.RGBA) error {
			called = true
			return nil
		}))
		res := b.Process(make([]byte, yuv.PackedSize(2, 2)), 2, 2, tex)
		if res.Status != StatusInvalidTexture {
			t.Errorf("tex %d: Status = %v, want %v", tex, res.Status, StatusInvalidTexture)
		}
		if res.Int64() != -1 {
			t.Errorf("tex %d: Int64() = %d, want -1", tex, res.Int64())
		}
		if called || tgt.writes != 0 {
			t.Errorf("tex %d: processor called = %v, writes = %d, want nothing", tex, called, tgt.writes)
		}
	}
}

func TestProcessInvalidBuffer(t *testing.T) {
	tgt := &fakeTarget{id: 1, w: 2, h: 2}
	b := New(tgt, fill(color.RGBA{}))
	tests := []struct {
		name string
		len  int
		w, h int
	}{
		{"short", 5, 2, 2},
		{"long", 7, 2, 2},
		{"odd", yuv.PackedSize(3, 2), 3, 2},
		{"zero", 0, 0, 0},
	}
	for _, tt := range tests {
		res := b.Process(make([]byte, tt.len), tt.w, tt.h, 1)
		if res.Status != StatusInvalidBuffer {
			t.Errorf("%s: Status = %v, want %v", tt.name, res.Status, StatusInvalidBuffer)
		}
	}
	if tgt.writes != 0 {
		t.Errorf("writes = %d, want 0", tgt.writes)
	}
}

func TestProcessProcessorFailure(t *testing.T) {
	tgt := &fakeTarget{id: 1, w: 2, h: 2}
	b := New(tgt, ProcessorFunc(func([]byte, int, int, *image.RGBA) error {
		return errors.New("boom")
	}))
	if res := b.Process(make([]byte, 6), 2, 2, 1); res.Status != StatusProcessingFailed {
		t.Errorf("Status = %v, want %v", res.Status, StatusProcessingFailed)
	}

	b = New(tgt, ProcessorFunc(func([]byte, int, int, *image.RGBA) error {
		panic("native crash")
	}))
	if res := b.Process(make([]byte, 6), 2, 2, 1); res.Status != StatusProcessingFailed {
		t.Errorf("panic: Status = %v, want %v", res.Status, StatusProcessingFailed)
	}
	if tgt.writes != 0 {
		t.Errorf("writes = %d, want 0", tgt.writes)
	}
}

func TestProcessWriteFailure(t *testing.T) {
	tgt := &fakeTarget{id: 1, w: 2, h: 2, failErr: errors.New("device lost")}
	b := New(tgt, fill(color.RGBA{}))
	if res := b.Process(make([]byte, 6), 2, 2, 1); res.Status != StatusTextureWriteFailed {
		t.Errorf("Status = %v, want %v", res.Status, StatusTextureWriteFailed)
	}

	tgt.failErr = fmt.Errorf("render: %w", ErrTargetClosed)
	if res := b.Process(make([]byte, 6), 2, 2, 1); res.Status != StatusClosed {
		t.Errorf("closed target: Status = %v, want %v", res.Status, StatusClosed)
	}
}

func TestClose(t *testing.T) {
	tgt := &fakeTarget{id: 1, w: 2, h: 2}
	b := New(tgt, fill(color.RGBA{}))
	b.Close()
	if res := b.Process(make([]byte, 6), 2, 2, 1); res.Status != StatusClosed {
		t.Errorf("Status = %v, want %v", res.Status, StatusClosed)
	}
}

func TestStatsAndElapsed(t *testing.T) {
	tgt := &fakeTarget{id: 1, w: 2, h: 2}
	clock := time.Unix(0, 0)
	b := New(tgt, fill(color.RGBA{}), WithClock(func() time.Time {
		clock = clock.Add(5 * time.Millisecond)
		return clock
	}))

	res := b.Process(make([]byte, 6), 2, 2, 1)
	if res.Elapsed != 5*time.Millisecond || res.Int64() != 5 {
		t.Errorf("Elapsed = %v (%d), want 5ms", res.Elapsed, res.Int64())
	}
	b.Process(make([]byte, 6), 2, 2, 0)

	st := b.Stats()
	if st.Calls != 2 || st.Failures != 1 {
		t.Errorf("Stats = %+v, want 2 calls and 1 failure", st)
	}
	if st.LastStatus != StatusInvalidTexture {
		t.Errorf("LastStatus = %v, want %v", st.LastStatus, StatusInvalidTexture)
	}
	if st.LastElapsed != 5*time.Millisecond {
		t.Errorf("LastElapsed = %v, want 5ms", st.LastElapsed)
	}
}

func TestProcessSerialized(t *testing.T) {
	tgt := &fakeTarget{id: 1, w: 2, h: 2}
	var inFlight, maxInFlight int
	var mu sync.Mutex
	b := New(tgt, ProcessorFunc(func([]byte, int, int, *image.RGBA) error {
		mu.Lock()
		inFlight++
		if inFlight > maxInFlight {
			maxInFlight = inFlight
		}
		mu.Unlock()
		time.Sleep(time.Millisecond)
		mu.Lock()
		inFlight--
		mu.Unlock()
		return nil
	}))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Process(make([]byte, 6), 2, 2, 1)
		}()
	}
	wg.Wait()
	if maxInFlight != 1 {
		t.Errorf("max concurrent processor calls = %d, want 1", maxInFlight)
	}
}

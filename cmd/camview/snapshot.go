package main

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"sync"

	"github.com/gogpu/camview/bridge"
)

// snapshotter keeps a copy of the most recent frame a processor produced.
type snapshotter struct {
	proc bridge.Processor

	mu   sync.Mutex
	last *image.RGBA
}

func newSnapshotter(p bridge.Processor) *snapshotter {
	return &snapshotter{proc: p}
}

// Process runs the wrapped processor and copies its output on success.
func (s *snapshotter) Process(nv21 []byte, width, height int, dst *image.RGBA) error {
	if err := s.proc.Process(nv21, width, height, dst); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil || s.last.Rect != dst.Rect {
		s.last = image.NewRGBA(dst.Rect)
	}
	copy(s.last.Pix, dst.Pix)
	return nil
}

// Last returns a copy of the latest frame, or nil before the first one.
func (s *snapshotter) Last() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return nil
	}
	img := image.NewRGBA(s.last.Rect)
	copy(img.Pix, s.last.Pix)
	return img
}

// WritePNG encodes the latest frame to path.
func (s *snapshotter) WritePNG(path string) (err error) {
	img := s.Last()
	if img == nil {
		return errors.New("snapshot: no frame was processed")
	}
	fh, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	defer func() {
		if cerr := fh.Close(); err == nil {
			err = cerr
		}
	}()
	if err := png.Encode(fh, img); err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	return nil
}

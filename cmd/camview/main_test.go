package main

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gogpu/camview/bridge"
	"github.com/gogpu/camview/config"
	"github.com/gogpu/camview/internal/filter"
)

func TestLoadConfigFlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "camview.toml")
	doc := "[camera]\nwidth = 320\nheight = 240\nframes = 10\n\n[processing]\nfilter = \"grayscale\"\n"
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}

	f, fs, err := parseFlags([]string{"-config", path, "-frames", "3", "-processor", "edges", "-v"}, io.Discard)
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	cfg, err := loadConfig(f, fs)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}

	if cfg.Camera.Width != 320 || cfg.Camera.Height != 240 {
		t.Errorf("size = %dx%d, want 320x240 from file", cfg.Camera.Width, cfg.Camera.Height)
	}
	if cfg.Camera.Frames != 3 {
		t.Errorf("Frames = %d, want 3 from flag", cfg.Camera.Frames)
	}
	if cfg.Processing.Filter != "edges" {
		t.Errorf("Filter = %q, want edges from flag", cfg.Processing.Filter)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Level = %q, want debug", cfg.Log.Level)
	}
}

func TestLoadConfigRejectsBadFlag(t *testing.T) {
	f, fs, err := parseFlags([]string{"-width", "33"}, io.Discard)
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if _, err := loadConfig(f, fs); err == nil {
		t.Error("loadConfig accepted an odd width")
	}
}

func TestNewProcessor(t *testing.T) {
	for _, name := range filter.Names() {
		p, err := newProcessor(config.Processing{Filter: name, EdgeThreshold: 10, Overlay: true}, func() string { return "x" })
		if err != nil || p == nil {
			t.Errorf("newProcessor(%q) = %v, %v", name, p, err)
		}
	}
	if _, err := newProcessor(config.Processing{Filter: "sepia"}, nil); err == nil {
		t.Error("newProcessor accepted an unknown filter")
	}
}

func TestSnapshotterKeepsLastFrame(t *testing.T) {
	shade := uint8(0)
	proc := bridge.ProcessorFunc(func(_ []byte, _, _ int, dst *image.RGBA) error {
		shade += 10
		for i := range dst.Pix {
			dst.Pix[i] = shade
		}
		return nil
	})
	s := newSnapshotter(proc)
	if s.Last() != nil {
		t.Fatal("Last() before any frame should be nil")
	}
	if err := s.WritePNG(filepath.Join(t.TempDir(), "none.png")); err == nil {
		t.Error("WritePNG succeeded without a frame")
	}

	dst := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for range 2 {
		if err := s.Process(nil, 2, 2, dst); err != nil {
			t.Fatalf("Process: %v", err)
		}
	}
	if got := s.Last().RGBAAt(1, 1); got != (color.RGBA{20, 20, 20, 20}) {
		t.Errorf("Last pixel = %v, want the second frame", got)
	}

	path := filepath.Join(t.TempDir(), "last.png")
	if err := s.WritePNG(path); err != nil {
		t.Fatalf("WritePNG: %v", err)
	}
	fh, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer fh.Close()
	img, err := png.Decode(fh)
	if err != nil {
		t.Fatalf("png.Decode: %v", err)
	}
	if img.Bounds() != dst.Rect {
		t.Errorf("snapshot bounds = %v, want %v", img.Bounds(), dst.Rect)
	}
}

func TestRunEndToEnd(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "camview.toml")
	doc := "[render]\ntexture_width = 32\ntexture_height = 16\n\n[processing]\noverlay = true\n"
	if err := os.WriteFile(cfgPath, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}
	snap := filepath.Join(dir, "snap.png")

	var logs bytes.Buffer
	args := []string{
		"-config", cfgPath,
		"-width", "16", "-height", "8",
		"-frames", "4", "-fps", "0",
		"-processor", "grayscale",
		"-backend", "noop",
		"-snapshot", snap,
	}
	if err := run(context.Background(), args, &logs); err != nil {
		t.Fatalf("run: %v\n%s", err, logs.String())
	}

	out := logs.String()
	for _, want := range []string{"camview: pipeline", "received=4", "camview: snapshot written"} {
		if !strings.Contains(out, want) {
			t.Errorf("logs missing %q:\n%s", want, out)
		}
	}
	if _, err := os.Stat(snap); err != nil {
		t.Errorf("snapshot not written: %v", err)
	}
}

func TestRunHelp(t *testing.T) {
	if err := run(context.Background(), []string{"-h"}, io.Discard); err != nil {
		t.Errorf("run -h = %v, want nil", err)
	}
}

// Package config loads camview settings from a TOML file.
//
// Every field has a default, so a file only needs the values it changes:
//
//	[camera]
//	width = 1280
//	height = 720
//	layout = "nv21"
//
//	[render]
//	mode = "continuous"
//	fps = 60
//
//	[processing]
//	filter = "edges"
//
//	[log]
//	level = "debug"
package config

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/gogpu/camview/gpu"
	"github.com/gogpu/camview/internal/filter"
	"github.com/gogpu/camview/source"
	"github.com/gogpu/camview/surface"
)

// Config is the complete application configuration.
type Config struct {
	Camera     Camera     `toml:"camera"`
	Render     Render     `toml:"render"`
	Processing Processing `toml:"processing"`
	Log        Log        `toml:"log"`
}

// Camera describes the frame source.
type Camera struct {
	Width  int `toml:"width"`
	Height int `toml:"height"`
	// FPS paces the synthetic source. Zero means as fast as possible.
	FPS int `toml:"fps"`
	// Frames stops the run after this many frames. Zero means endless.
	Frames int `toml:"frames"`
	// Input is a raw YUV file. Empty selects the test pattern.
	Input       string `toml:"input"`
	Layout      string `toml:"layout"`
	Interleaved bool   `toml:"interleaved"`
	RowPadding  int    `toml:"row_padding"`
}

// Render describes the texture, the surface and the GPU backend.
type Render struct {
	TextureWidth  int    `toml:"texture_width"`
	TextureHeight int    `toml:"texture_height"`
	Mode          string `toml:"mode"`
	FPS           int    `toml:"fps"`
	Backend       string `toml:"backend"`
	ClearColor    string `toml:"clear_color"`
}

// Processing selects the processing routine.
type Processing struct {
	Filter        string `toml:"filter"`
	EdgeThreshold uint8  `toml:"edge_threshold"`
	Overlay       bool   `toml:"overlay"`
	// PoolSize caps the number of pooled packed buffers per frame size.
	PoolSize int `toml:"pool_size"`
}

// Log configures the slog handler.
type Log struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Camera: Camera{
			Width:  640,
			Height: 480,
			FPS:    30,
			Layout: "i420",
		},
		Render: Render{
			TextureWidth:  640,
			TextureHeight: 480,
			Mode:          "on-demand",
			FPS:           surface.DefaultFPS,
			Backend:       string(gpu.BackendNoop),
			ClearColor:    "#000000",
		},
		Processing: Processing{
			Filter:        filter.NamePassthrough,
			EdgeThreshold: filter.DefaultEdgeThreshold,
			PoolSize:      4,
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the file at path over the defaults. Unknown keys are errors.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Decode reads TOML from r over the defaults and validates the result.
func Decode(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := toml.NewDecoder(r).DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, fmt.Errorf("unknown keys:\n%s", strict.String())
		}
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Encode writes cfg as TOML.
func (c *Config) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if err := checkSize("camera", c.Camera.Width, c.Camera.Height, true); err != nil {
		return err
	}
	if err := checkSize("render.texture", c.Render.TextureWidth, c.Render.TextureHeight, false); err != nil {
		return err
	}
	if c.Camera.FPS < 0 || c.Camera.Frames < 0 || c.Camera.RowPadding < 0 {
		return errors.New("config: camera fps, frames and row_padding must not be negative")
	}
	if _, err := source.ParseLayout(c.Camera.Layout); err != nil {
		return fmt.Errorf("config: camera.layout: %w", err)
	}
	if _, err := surface.ParseRedrawMode(c.Render.Mode); err != nil {
		return fmt.Errorf("config: render.mode: %w", err)
	}
	if c.Render.FPS <= 0 {
		return fmt.Errorf("config: render.fps must be positive, got %d", c.Render.FPS)
	}
	if _, err := gpu.ParseBackend(c.Render.Backend); err != nil {
		return fmt.Errorf("config: render.backend: %w", err)
	}
	if _, err := ParseColor(c.Render.ClearColor); err != nil {
		return fmt.Errorf("config: render.clear_color: %w", err)
	}
	if _, err := filter.ByName(c.Processing.Filter); err != nil {
		return fmt.Errorf("config: processing.filter: %w", err)
	}
	if c.Processing.PoolSize < 0 {
		return fmt.Errorf("config: processing.pool_size must not be negative, got %d", c.Processing.PoolSize)
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("config: log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

func checkSize(name string, w, h int, even bool) error {
	if w <= 0 || h <= 0 {
		return fmt.Errorf("config: %s size must be positive, got %dx%d", name, w, h)
	}
	if even && (w%2 != 0 || h%2 != 0) {
		return fmt.Errorf("config: %s size must be even, got %dx%d", name, w, h)
	}
	return nil
}

// SlogLevel parses the configured level name.
func (l Log) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("config: log.level: %w", err)
	}
	return lvl, nil
}

// NewLogger builds a logger writing to w according to the log settings.
func (l Log) NewLogger(w io.Writer) (*slog.Logger, error) {
	lvl, err := l.SlogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

// ParseColor parses "#rrggbb" or "#rrggbbaa".
func ParseColor(s string) (color.RGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) != 6 && len(hex) != 8 {
		return color.RGBA{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	if len(hex) == 6 {
		v = v<<8 | 0xff
	}
	return color.RGBA{
		R: uint8(v >> 24),
		G: uint8(v >> 16),
		B: uint8(v >> 8),
		A: uint8(v),
	}, nil
}

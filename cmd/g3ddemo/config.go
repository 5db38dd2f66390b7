package main

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"io"
	"os"
	"strings"

	"github.com/gogpu/gputypes"
	"gopkg.in/yaml.v3"

	"github.com/gogpu/g3d"
	"github.com/gogpu/g3d/asset"
)

// Config is the demo scene, read from YAML.
type Config struct {
	Width       uint32     `yaml:"width"`
	Height      uint32     `yaml:"height"`
	Backends    []string   `yaml:"backends"`
	PresentMode string     `yaml:"present_mode"`
	ClearColor  [4]float64 `yaml:"clear_color"`
	Frames      int        `yaml:"frames"`
	FPS         int        `yaml:"fps"`
	Mipmaps     bool       `yaml:"mipmaps"`

	// ValidateShaders is nil when unset; validation is on by default.
	ValidateShaders *bool `yaml:"validate_shaders"`

	Camera struct {
		Speed       float32 `yaml:"speed"`
		Sensitivity float32 `yaml:"sensitivity"`
	} `yaml:"camera"`

	Light struct {
		Orbit  float32 `yaml:"orbit"`
		Marker *bool   `yaml:"marker"`
	} `yaml:"light"`

	Grid struct {
		PerRow  int     `yaml:"per_row"`
		Spacing float32 `yaml:"spacing"`
	} `yaml:"grid"`

	Material      MaterialConfig  `yaml:"material"`
	DebugMaterial *MaterialConfig `yaml:"debug_material"`
}

// MaterialConfig names image files for a material. Empty paths use the
// engine defaults.
type MaterialConfig struct {
	Diffuse string `yaml:"diffuse"`
	Normal  string `yaml:"normal"`
}

// DefaultConfig is the scene used when no file is given: a 10x10 grid of
// cubes, 3 units apart.
func DefaultConfig() Config {
	var c Config
	c.Width, c.Height = 1280, 720
	c.PresentMode = "fifo"
	c.ClearColor = [4]float64{0.1, 0.2, 0.3, 1}
	c.Frames = 600
	c.FPS = 60
	c.Camera.Speed = 4
	c.Camera.Sensitivity = 0.4
	c.Grid.PerRow = 10
	c.Grid.Spacing = 3
	return c
}

// LoadConfig reads a YAML scene on top of DefaultConfig.
// Unknown keys are errors.
func LoadConfig(r io.Reader) (Config, error) {
	c := DefaultConfig()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse scene: %w", err)
	}
	return c, c.Validate()
}

// LoadConfigFile reads a YAML scene file.
func LoadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	c, err := LoadConfig(bytes.NewReader(data))
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Validate checks ranges that the engine would otherwise reject later.
func (c *Config) Validate() error {
	switch {
	case c.Width == 0 || c.Height == 0:
		return fmt.Errorf("size %dx%d must be non-zero", c.Width, c.Height)
	case c.FPS <= 0:
		return fmt.Errorf("fps %d must be positive", c.FPS)
	case c.Grid.PerRow <= 0:
		return fmt.Errorf("grid per_row %d must be positive", c.Grid.PerRow)
	}
	if _, err := parsePresentMode(c.PresentMode); err != nil {
		return err
	}
	return nil
}

// Options converts the scene to engine options.
func (c *Config) Options() []g3d.Option {
	mode, _ := parsePresentMode(c.PresentMode)
	opts := []g3d.Option{
		g3d.WithBackends(c.Backends...),
		g3d.WithPresentMode(mode),
		g3d.WithClearColor(gputypes.Color{R: c.ClearColor[0], G: c.ClearColor[1], B: c.ClearColor[2], A: c.ClearColor[3]}),
		g3d.WithInstanceCapacity(c.Grid.PerRow * c.Grid.PerRow),
		g3d.WithMipmaps(c.Mipmaps),
		g3d.WithCameraSpeed(c.Camera.Speed, c.Camera.Sensitivity),
		g3d.WithLightOrbit(c.Light.Orbit),
	}
	if c.ValidateShaders != nil {
		opts = append(opts, g3d.WithShaderValidation(*c.ValidateShaders))
	}
	if c.Light.Marker != nil {
		opts = append(opts, g3d.WithLightMarker(*c.Light.Marker))
	}
	return opts
}

func parsePresentMode(name string) (gputypes.PresentMode, error) {
	switch strings.ToLower(name) {
	case "", "fifo":
		return gputypes.PresentModeFifo, nil
	case "fifo_relaxed":
		return gputypes.PresentModeFifoRelaxed, nil
	case "immediate":
		return gputypes.PresentModeImmediate, nil
	case "mailbox":
		return gputypes.PresentModeMailbox, nil
	}
	return gputypes.PresentModeUndefined, fmt.Errorf("unknown present mode %q", name)
}

// Record loads the material's images. Missing paths leave the map nil.
func (m *MaterialConfig) Record(name string) (asset.MaterialRecord, error) {
	rec := asset.MaterialRecord{Name: name}
	var err error
	if m.Diffuse != "" {
		if rec.Diffuse, err = asset.LoadPixels(m.Diffuse); err != nil {
			return rec, err
		}
	}
	if m.Normal != "" {
		if rec.Normal, err = asset.LoadPixels(m.Normal); err != nil {
			return rec, err
		}
	}
	return rec, nil
}

// debugChecker is the debug material used when the scene names none.
func debugChecker() asset.MaterialRecord {
	return asset.MaterialRecord{
		Name:    "debug_checker",
		Diffuse: asset.Checker("debug_checker", 256, 32,
			color.NRGBA{R: 255, G: 0, B: 255, A: 255},
			color.NRGBA{R: 32, G: 32, B: 32, A: 255}),
	}
}

// Package config loads and validates the renderer's TOML configuration.
package config

import (
	"os"

	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	Window   Window   `toml:"window"`
	Renderer Renderer `toml:"renderer"`
	Assets   Assets   `toml:"assets"`
	Log      Log      `toml:"log"`
}

type Window struct {
	Title  string `toml:"title"`
	Width  int32  `toml:"width"`
	Height int32  `toml:"height"`
}

type Renderer struct {
	// FramesInFlight is how many frames the CPU may record before waiting
	// for the GPU to catch up.
	FramesInFlight int `toml:"frames_in_flight"`

	VSync bool `toml:"vsync"`

	// SampleCount caps MSAA. Zero means use the best the device supports.
	SampleCount int `toml:"sample_count"`

	Validation bool `toml:"validation"`
}

type Assets struct {
	MeshPath           string `toml:"mesh"`
	MaterialPath       string `toml:"material"`
	TexturePath        string `toml:"texture"`
	VertexShaderPath   string `toml:"vertex_shader"`
	FragmentShaderPath string `toml:"fragment_shader"`
}

type Log struct {
	Level string `toml:"level"`
}

func Default() Config {
	return Config{
		Window: Window{
			Title:  "Viking Room",
			Width:  1024,
			Height: 768,
		},
		Renderer: Renderer{
			FramesInFlight: 3,
			VSync:          false,
			SampleCount:    0,
			Validation:     true,
		},
		Assets: Assets{
			MeshPath:           "resources/viking_room.obj",
			TexturePath:        "resources/rook.png",
			VertexShaderPath:   "shaders/vert.spv",
			FragmentShaderPath: "shaders/frag.spv",
		},
		Log: Log{
			Level: "info",
		},
	}
}

// Load reads a TOML config file over the defaults. A missing file is not an
// error: the defaults stand on their own.
func Load(path string) (Config, error) {
	cfg := Default()

	contents, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	} else if err != nil {
		return cfg, errors.Wrapf(err, "failed to read config %s", path)
	}

	err = toml.Unmarshal(contents, &cfg)
	if err != nil {
		return cfg, errors.Wrapf(err, "failed to parse config %s", path)
	}

	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	if c.Window.Width < 1 || c.Window.Height < 1 {
		return errors.Errorf("window size %dx%d is not drawable", c.Window.Width, c.Window.Height)
	}
	if c.Renderer.FramesInFlight < 1 {
		return errors.Errorf("frames_in_flight must be at least 1, got %d", c.Renderer.FramesInFlight)
	}
	switch c.Renderer.SampleCount {
	case 0, 1, 2, 4, 8, 16, 32, 64:
	default:
		return errors.Errorf("sample_count must be 0 or a power of two up to 64, got %d", c.Renderer.SampleCount)
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return errors.Wrapf(err, "invalid log level %q", c.Log.Level)
	}
	return nil
}

// LogLevel parses the configured level. Validate has already checked it, so
// errors only surface for configs that skipped validation.
func (c *Config) LogLevel() (log.Level, error) {
	return log.ParseLevel(c.Log.Level)
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "renderer.toml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	require.Equal(t, int32(1024), cfg.Window.Width)
	require.Equal(t, 3, cfg.Renderer.FramesInFlight)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[window]
title = "Test Scene"
width = 640
height = 480

[renderer]
frames_in_flight = 2
vsync = true
sample_count = 4

[assets]
mesh = "meshes/cube.obj"

[log]
level = "debug"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "Test Scene", cfg.Window.Title)
	require.Equal(t, int32(640), cfg.Window.Width)
	require.Equal(t, 2, cfg.Renderer.FramesInFlight)
	require.True(t, cfg.Renderer.VSync)
	require.Equal(t, 4, cfg.Renderer.SampleCount)
	require.Equal(t, "meshes/cube.obj", cfg.Assets.MeshPath)

	// Keys the file does not mention keep their defaults.
	require.Equal(t, "resources/rook.png", cfg.Assets.TexturePath)
	require.True(t, cfg.Renderer.Validation)

	level, err := cfg.LogLevel()
	require.NoError(t, err)
	require.Equal(t, log.DebugLevel, level)
}

func TestLoadRejectsMalformedTOML(t *testing.T) {
	path := writeConfig(t, `[window`)

	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to parse config")
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero width", func(c *Config) { c.Window.Width = 0 }},
		{"negative height", func(c *Config) { c.Window.Height = -1 }},
		{"zero frames in flight", func(c *Config) { c.Renderer.FramesInFlight = 0 }},
		{"odd sample count", func(c *Config) { c.Renderer.SampleCount = 3 }},
		{"unknown log level", func(c *Config) { c.Log.Level = "loud" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestLoadValidatesFileContents(t *testing.T) {
	path := writeConfig(t, `
[renderer]
frames_in_flight = 0
`)

	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "frames_in_flight")
}

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-cluster/engine/cull"
	"github.com/Carmen-Shannon/oxy-cluster/engine/render_path"
	"github.com/Carmen-Shannon/oxy-cluster/engine/renderer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cluster.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	kind, err := cfg.Kind()
	require.NoError(t, err)
	assert.Equal(t, render_path.ClusteredForward, kind)
	backend, err := cfg.BackendType()
	require.NoError(t, err)
	assert.Equal(t, renderer.BackendTypeSoftware, backend)

	opts := cfg.PathOptions()
	assert.Equal(t, render_path.DefaultOptions(), opts)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
render_path: tiled_deferred_multiple
lights: 512
tile_pixel_size_x: 32
tile_pixel_size_y: 32
max_lights_per_cell: 128
moving_lights: true
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "tiled_deferred_multiple", cfg.RenderPath)
	assert.Equal(t, 512, cfg.Lights)
	assert.Equal(t, uint32(32), cfg.TilePixelSizeX)
	assert.True(t, cfg.MovingLights)
	// untouched keys keep their defaults
	assert.Equal(t, uint32(1920), cfg.BackbufferWidth)
	assert.Equal(t, uint32(24), cfg.ClustersZ)
	assert.NoError(t, cfg.Validate())
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(writeConfig(t, "lightz: 3\n"))
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParseFlagsOverrideFile(t *testing.T) {
	path := writeConfig(t, "lights: 64\nclusters_x: 32\n")
	cfg, err := Parse("cluster", []string{"-config", path, "-lights", "128", "-width", "2560", "-height", "1440"})
	require.NoError(t, err)
	assert.Equal(t, 128, cfg.Lights)
	assert.Equal(t, uint32(32), cfg.ClustersX)
	assert.Equal(t, uint32(2560), cfg.BackbufferWidth)
	assert.Equal(t, uint32(1440), cfg.BackbufferHeight)

	_, err = Parse("cluster", []string{"-width", "wide"})
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		fatal  bool
	}{
		{name: "unknown path", mutate: func(c *Config) { c.RenderPath = "raytraced" }},
		{name: "unknown backend", mutate: func(c *Config) { c.Backend = "metal" }},
		{name: "too many lights", mutate: func(c *Config) { c.Lights = c.MaxLights + 1 }},
		{name: "negative window", mutate: func(c *Config) { c.MeasureOverSeconds = -1 }},
		{name: "zero tile", mutate: func(c *Config) {
			c.RenderPath = render_path.TiledSingleForward.String()
			c.TilePixelSizeX = 0
		}, fatal: true},
		{name: "above index ceiling", mutate: func(c *Config) {
			c.ClustersX, c.ClustersY, c.ClustersZ = 4096, 4096, 64
		}, fatal: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Equal(t, tt.fatal, errors.Is(err, cull.ErrConfigurationFatal))
		})
	}

	// the grid is only checked for paths that cull
	cfg := Default()
	cfg.RenderPath = render_path.Forward.String()
	cfg.ClustersX, cfg.ClustersY, cfg.ClustersZ = 4096, 4096, 64
	assert.NoError(t, cfg.Validate())
}

func TestOutputPaths(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "Cluster.log", cfg.LogPath())
	assert.Equal(t, "measurements.csv", cfg.OutputPath())

	cfg.LogFile = ""
	cfg.Output = "out/sweep.csv"
	assert.Equal(t, "Cluster.log", cfg.LogPath())
	assert.Equal(t, "out/sweep.csv", cfg.OutputPath())

	cfg, err := Parse("cluster", []string{"-sweep", "-output", ""})
	require.NoError(t, err)
	assert.True(t, cfg.Sweep)
	assert.Equal(t, "measurements.csv", cfg.OutputPath())
}

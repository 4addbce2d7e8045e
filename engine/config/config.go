package config

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/Carmen-Shannon/oxy-cluster/common"
	"github.com/Carmen-Shannon/oxy-cluster/engine/cull"
	"github.com/Carmen-Shannon/oxy-cluster/engine/render_path"
	"github.com/Carmen-Shannon/oxy-cluster/engine/renderer"
	"gopkg.in/yaml.v3"
)

// Config holds every setting of a benchmark or viewer run.
type Config struct {
	// Backend is the device backend: "software" or "wgpu".
	Backend    string `yaml:"backend"`
	RenderPath string `yaml:"render_path"`

	Lights    int `yaml:"lights"`
	MaxLights int `yaml:"max_lights"`

	BackbufferWidth  uint32 `yaml:"backbuffer_width"`
	BackbufferHeight uint32 `yaml:"backbuffer_height"`

	TilePixelSizeX uint32 `yaml:"tile_pixel_size_x"`
	TilePixelSizeY uint32 `yaml:"tile_pixel_size_y"`

	ClustersX                 uint32 `yaml:"clusters_x"`
	ClustersY                 uint32 `yaml:"clusters_y"`
	ClustersZ                 uint32 `yaml:"clusters_z"`
	TreatClusterXYAsPixelSize bool   `yaml:"treat_cluster_xy_as_pixel_size"`

	MaxLightsPerCell uint32 `yaml:"max_lights_per_cell"`

	MovingLights       bool    `yaml:"moving_lights"`
	MeasureOverSeconds float64 `yaml:"measure_over_seconds"`
	Seed               uint64  `yaml:"seed"`

	WriteLog bool   `yaml:"write_log"`
	LogFile  string `yaml:"log_file"`
	Profile  bool   `yaml:"profile"`

	// Sweep runs the full benchmark plan instead of a single measurement.
	Sweep  bool   `yaml:"sweep"`
	Output string `yaml:"output"`
}

const (
	defaultLogFile = "Cluster.log"
	defaultOutput  = "measurements.csv"
)

// Default returns the stock configuration: a clustered forward path at 1920x1080 with
// one light, 16x16 px tiles and 16x8x24 clusters.
func Default() Config {
	return Config{
		Backend:            renderer.BackendTypeSoftware.String(),
		RenderPath:         render_path.ClusteredForward.String(),
		Lights:             1,
		MaxLights:          65536,
		BackbufferWidth:    1920,
		BackbufferHeight:   1080,
		TilePixelSizeX:     16,
		TilePixelSizeY:     16,
		ClustersX:          16,
		ClustersY:          8,
		ClustersZ:          24,
		MaxLightsPerCell:   4096,
		MeasureOverSeconds: 2,
		Seed:               1337,
		WriteLog:           true,
		LogFile:            defaultLogFile,
		Profile:            true,
		Output:             defaultOutput,
	}
}

// Load reads a YAML file on top of the defaults. Unknown keys are an error.
//
// Parameters:
//   - path: the YAML file
//
// Returns:
//   - Config: the configuration, not yet validated
//   - error: read or decode failure
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := cfg.decode(data); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	// an empty file keeps the defaults
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// RegisterFlags binds every setting to a flag on fs, using the current values as
// defaults.
//
// Parameters:
//   - fs: the flag set to register on
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.Backend, "backend", c.Backend, "device backend (software, wgpu)")
	fs.StringVar(&c.RenderPath, "path", c.RenderPath, "render path, e.g. clustered_forward")
	fs.IntVar(&c.Lights, "lights", c.Lights, "number of generated lights")
	fs.IntVar(&c.MaxLights, "max-lights", c.MaxLights, "upper bound for -lights")
	uintVar(fs, &c.BackbufferWidth, "width", "backbuffer width in pixels")
	uintVar(fs, &c.BackbufferHeight, "height", "backbuffer height in pixels")
	uintVar(fs, &c.TilePixelSizeX, "tile-x", "tile width in pixels")
	uintVar(fs, &c.TilePixelSizeY, "tile-y", "tile height in pixels")
	uintVar(fs, &c.ClustersX, "clusters-x", "cluster count (or pixel size) on x")
	uintVar(fs, &c.ClustersY, "clusters-y", "cluster count (or pixel size) on y")
	uintVar(fs, &c.ClustersZ, "clusters-z", "depth slice count")
	fs.BoolVar(&c.TreatClusterXYAsPixelSize, "cluster-xy-pixels", c.TreatClusterXYAsPixelSize, "read -clusters-x/-clusters-y as pixel sizes")
	uintVar(fs, &c.MaxLightsPerCell, "max-lights-per-cell", "light index slots per tile or cluster")
	fs.BoolVar(&c.MovingLights, "moving-lights", c.MovingLights, "rotate the lights around the scene")
	fs.Float64Var(&c.MeasureOverSeconds, "measure", c.MeasureOverSeconds, "measurement window in seconds")
	fs.Uint64Var(&c.Seed, "seed", c.Seed, "light generator seed")
	fs.BoolVar(&c.WriteLog, "write-log", c.WriteLog, "write the log to -log-file")
	fs.StringVar(&c.LogFile, "log-file", c.LogFile, "log file path")
	fs.BoolVar(&c.Profile, "profile", c.Profile, "log periodic profiler lines")
	fs.BoolVar(&c.Sweep, "sweep", c.Sweep, "run the full benchmark sweep")
	fs.StringVar(&c.Output, "output", c.Output, "measurement CSV path")
}

// uint32Value adapts a *uint32 to flag.Value.
type uint32Value struct{ p *uint32 }

func (v uint32Value) String() string {
	if v.p == nil {
		return "0"
	}
	return fmt.Sprint(*v.p)
}

func (v uint32Value) Set(s string) error {
	var n uint32
	if _, err := fmt.Sscan(s, &n); err != nil {
		return fmt.Errorf("invalid uint32 %q", s)
	}
	*v.p = n
	return nil
}

func uintVar(fs *flag.FlagSet, p *uint32, name, usage string) {
	fs.Var(uint32Value{p}, name, usage)
}

// Parse builds a configuration from command-line arguments. A -config file is loaded
// first and flags given on the command line override it.
//
// Parameters:
//   - name: the program name used in usage output
//   - args: the arguments without the program name
//
// Returns:
//   - Config: the validated configuration
//   - error: flag, file or validation failure
func Parse(name string, args []string) (Config, error) {
	var path string
	pre := flag.NewFlagSet(name, flag.ContinueOnError)
	pre.SetOutput(io.Discard)
	pre.StringVar(&path, "config", "", "")
	scratch := Default()
	scratch.RegisterFlags(pre)
	if err := pre.Parse(args); err != nil {
		return Config{}, err
	}

	cfg := Default()
	if path != "" {
		loaded, err := Load(path)
		if err != nil {
			return Config{}, err
		}
		cfg = loaded
	}

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.String("config", path, "YAML configuration file")
	cfg.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// Validate checks every setting. For tiled and clustered paths it derives the cell grid,
// so a grid above the light-index ceiling fails here with cull.ErrConfigurationFatal.
//
// Returns:
//   - error: every violation joined, or nil
func (c Config) Validate() error {
	var errs []error
	if _, err := renderer.ParseBackendType(c.Backend); err != nil {
		errs = append(errs, err)
	}
	kind, err := render_path.ParseKind(c.RenderPath)
	if err != nil {
		errs = append(errs, err)
	}
	if c.Lights < 0 || c.MaxLights < 0 {
		errs = append(errs, errors.New("light counts must not be negative"))
	} else if c.Lights > c.MaxLights {
		errs = append(errs, fmt.Errorf("lights %d exceed max lights %d", c.Lights, c.MaxLights))
	}
	if c.MeasureOverSeconds < 0 {
		errs = append(errs, fmt.Errorf("measurement window %v must not be negative", c.MeasureOverSeconds))
	}
	if err == nil {
		if gridCfg, ok := c.PathOptions().GridConfig(kind); ok {
			if _, err := cull.DeriveGrid(c.BackbufferWidth, c.BackbufferHeight, gridCfg); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Kind returns the configured render path.
func (c Config) Kind() (render_path.Kind, error) {
	return render_path.ParseKind(c.RenderPath)
}

// BackendType returns the configured device backend.
func (c Config) BackendType() (renderer.BackendType, error) {
	return renderer.ParseBackendType(c.Backend)
}

// LogPath returns the log file path, falling back to the default name when unset.
func (c Config) LogPath() string {
	return common.Coalesce(c.LogFile, defaultLogFile)
}

// OutputPath returns the measurement CSV path, falling back to the default name when unset.
func (c Config) OutputPath() string {
	return common.Coalesce(c.Output, defaultOutput)
}

// PathOptions returns the culling options of the configuration.
func (c Config) PathOptions() render_path.Options {
	return render_path.Options{
		TilePixelSize:             [2]uint32{c.TilePixelSizeX, c.TilePixelSizeY},
		ClusterDimensions:         [3]uint32{c.ClustersX, c.ClustersY, c.ClustersZ},
		TreatClusterXYAsPixelSize: c.TreatClusterXYAsPixelSize,
		MaxLightsPerCell:          c.MaxLightsPerCell,
	}
}

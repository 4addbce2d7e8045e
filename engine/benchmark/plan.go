package benchmark

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Carmen-Shannon/oxy-cluster/engine/cull"
	"github.com/Carmen-Shannon/oxy-cluster/engine/render_path"
)

// ParameterGroup is one named set of culling parameters swept by the benchmark.
type ParameterGroup struct {
	Name string
	Kind cull.CellKind

	// MaxLightsPerCell is the per-cell index capacity.
	MaxLightsPerCell uint32

	// Dimensions holds the tile pixel size (x, y) for tiles and the cluster counts for clusters.
	Dimensions [3]uint32

	// LightLimit skips the group for light counts at or above it.
	LightLimit int
}

// Columns returns the group as the ";"-joined parameter column of a measurement row.
func (g ParameterGroup) Columns() string {
	parts := []string{
		g.Name,
		strconv.FormatUint(uint64(g.MaxLightsPerCell), 10),
		strconv.FormatUint(uint64(g.Dimensions[0]), 10),
		strconv.FormatUint(uint64(g.Dimensions[1]), 10),
	}
	if g.Kind == cull.KindCluster {
		parts = append(parts, strconv.FormatUint(uint64(g.Dimensions[2]), 10))
	}
	return strings.Join(parts, ";")
}

// Accepts reports whether the group is measured at the given light count.
func (g ParameterGroup) Accepts(lights int) bool {
	return lights < g.LightLimit
}

func tiled(name string, maxLights, px uint32, limit int) ParameterGroup {
	return ParameterGroup{Name: name, Kind: cull.KindTile, MaxLightsPerCell: maxLights, Dimensions: [3]uint32{px, px, 1}, LightLimit: limit}
}

func clustered(name string, maxLights uint32, x, y, z uint32, limit int) ParameterGroup {
	return ParameterGroup{Name: name, Kind: cull.KindCluster, MaxLightsPerCell: maxLights, Dimensions: [3]uint32{x, y, z}, LightLimit: limit}
}

// TiledGroups are the tile sizes and capacities swept for the tiled paths.
var TiledGroups = []ParameterGroup{
	tiled("t32s", 32, 16, 128),
	tiled("t32m", 32, 32, 128),
	tiled("t32h", 32, 64, 128),
	tiled("t128s", 128, 16, 512),
	tiled("t128m", 128, 32, 512),
	tiled("t128h", 128, 64, 512),
	tiled("t512s", 512, 16, 2048),
	tiled("t512m", 512, 32, 2048),
	tiled("t512h", 512, 64, 2048),
	tiled("t2048s", 2048, 16, 16384),
	tiled("t2048m", 2048, 32, 16384),
	tiled("t2048h", 2048, 64, 16384),
}

// ClusteredGroups are the cluster counts and capacities swept for the clustered paths.
var ClusteredGroups = []ParameterGroup{
	clustered("c32s", 32, 12, 8, 16, 128),
	clustered("c32m", 32, 16, 8, 24, 128),
	clustered("c32h", 32, 32, 16, 48, 128),
	clustered("c32u", 32, 64, 64, 32, 128),

	clustered("c128s", 128, 12, 8, 16, 512),
	clustered("c128m", 128, 16, 8, 24, 512),
	clustered("c128h", 128, 32, 16, 48, 512),
	clustered("c128u", 128, 64, 64, 32, 512),

	clustered("c512s", 512, 12, 8, 16, 2048),
	clustered("c512m", 512, 16, 8, 24, 2048),
	clustered("c512h", 512, 32, 16, 48, 2048),
	clustered("c512u", 512, 64, 64, 32, 2048),

	clustered("c2048s", 2048, 12, 8, 16, 16384),
	clustered("c2048m", 2048, 16, 8, 24, 16384),
	clustered("c2048h", 2048, 32, 16, 48, 16384),
	clustered("c2048u", 2048, 64, 64, 32, 16384),
}

// LightCounts are the scene sizes swept at every resolution.
var LightCounts = []int{0, 2, 4, 16, 32, 64, 128, 512, 1024, 2048, 4096, 8192, 16384}

// Resolution is a backbuffer size.
type Resolution struct {
	Width  uint32
	Height uint32
}

// Resolutions are the backbuffer sizes swept.
var Resolutions = []Resolution{
	{1920, 1080},
	{2560, 1440},
	{3840, 2160},
}

// Run is one measurement: a resolution, a light count, a path and, for culled paths, a parameter group.
type Run struct {
	Resolution Resolution
	Lights     int
	Path       render_path.Kind
	Group      *ParameterGroup
}

// Params returns the parameter column of the run, "N/A" for unculled paths.
func (r Run) Params() string {
	if r.Group == nil {
		return "N/A"
	}
	return r.Group.Columns()
}

func (r Run) String() string {
	return fmt.Sprintf("%dx%d %d lights %s %s", r.Resolution.Width, r.Resolution.Height, r.Lights, r.Path, r.Params())
}

// Options applies the run's parameter group to base.
//
// Parameters:
//   - base: the options used for everything the group does not set
//
// Returns:
//   - render_path.Options: the options to render the run with
func (r Run) Options(base render_path.Options) render_path.Options {
	if r.Group == nil {
		return base
	}
	opts := base
	opts.MaxLightsPerCell = r.Group.MaxLightsPerCell
	switch r.Group.Kind {
	case cull.KindTile:
		opts.TilePixelSize = [2]uint32{r.Group.Dimensions[0], r.Group.Dimensions[1]}
	case cull.KindCluster:
		opts.ClusterDimensions = r.Group.Dimensions
		opts.TreatClusterXYAsPixelSize = false
	}
	return opts
}

// Plan describes a sweep. Runs are produced resolution by resolution, then light count
// by light count, with unculled paths first, then tiled, then clustered.
type Plan struct {
	Resolutions     []Resolution
	LightCounts     []int
	Paths           []render_path.Kind
	TiledGroups     []ParameterGroup
	ClusteredGroups []ParameterGroup
}

// DefaultPlan returns the full sweep over every path and parameter group.
func DefaultPlan() Plan {
	return Plan{
		Resolutions:     Resolutions,
		LightCounts:     LightCounts,
		Paths:           render_path.Kinds(),
		TiledGroups:     TiledGroups,
		ClusteredGroups: ClusteredGroups,
	}
}

// Runs expands the plan into its measurements.
//
// Returns:
//   - []Run: the runs in execution order
func (p Plan) Runs() []Run {
	var basic, tiles, clusters []render_path.Kind
	for _, k := range p.Paths {
		kind, culled := k.Culled()
		switch {
		case !culled:
			basic = append(basic, k)
		case kind == cull.KindTile:
			tiles = append(tiles, k)
		default:
			clusters = append(clusters, k)
		}
	}

	var runs []Run
	grouped := func(res Resolution, lights int, paths []render_path.Kind, groups []ParameterGroup) {
		for _, k := range paths {
			for i := range groups {
				if !groups[i].Accepts(lights) {
					continue
				}
				runs = append(runs, Run{Resolution: res, Lights: lights, Path: k, Group: &groups[i]})
			}
		}
	}
	for _, res := range p.Resolutions {
		for _, lights := range p.LightCounts {
			for _, k := range basic {
				runs = append(runs, Run{Resolution: res, Lights: lights, Path: k})
			}
			grouped(res, lights, tiles, p.TiledGroups)
			grouped(res, lights, clusters, p.ClusteredGroups)
		}
	}
	return runs
}

package cull

import (
	"fmt"
	"math"

	"github.com/Carmen-Shannon/oxy-cluster/common"
	"github.com/Carmen-Shannon/oxy-cluster/engine/camera"
	"github.com/Carmen-Shannon/oxy-cluster/engine/cull/kernels"
	"github.com/Carmen-Shannon/oxy-cluster/engine/renderer"
	"github.com/go-gl/mathgl/mgl32"
)

// MaxIndexEntries is the largest light-index capacity a grid may require:
// countX*countY*countZ*maxLightsPerCell must not exceed it.
const MaxIndexEntries uint64 = 1 << 32

// Thread shapes per workgroup. Clusters fall back to the compact shape on devices
// limited to 256 invocations per workgroup.
var (
	TileThreads           = [3]uint32{16, 16, 1}
	ClusterThreads        = [3]uint32{16, 8, 4}
	ClusterThreadsCompact = [3]uint32{16, 8, 2}
)

// CellKind selects screen-space tiles or view-space clusters.
type CellKind int

const (
	// KindTile partitions the screen into 2D tiles spanning the full depth range.
	KindTile CellKind = iota

	// KindCluster additionally splits each tile into exponentially spaced depth slices.
	KindCluster
)

func (k CellKind) String() string {
	switch k {
	case KindTile:
		return "tile"
	case KindCluster:
		return "cluster"
	default:
		return fmt.Sprintf("CellKind(%d)", int(k))
	}
}

// SizingPolicy selects how the x/y dimensions of a GridConfig are read.
type SizingPolicy int

const (
	// SizingFixedPixel reads x/y as cell sizes in pixels; counts follow the viewport.
	SizingFixedPixel SizingPolicy = iota

	// SizingFixedCount reads x/y as cell counts; pixel sizes follow the viewport.
	SizingFixedCount
)

func (s SizingPolicy) String() string {
	switch s {
	case SizingFixedPixel:
		return "fixed_pixel"
	case SizingFixedCount:
		return "fixed_count"
	default:
		return fmt.Sprintf("SizingPolicy(%d)", int(s))
	}
}

// GridConfig is the user-facing description of a cell grid.
type GridConfig struct {
	Kind   CellKind
	Policy SizingPolicy

	// Dimensions holds x/y pixel sizes or counts (see Policy) and the depth slice
	// count. The depth entry is ignored for tiles.
	Dimensions [3]uint32

	MaxLightsPerCell uint32
}

// Grid is a grid derived from a GridConfig for one viewport.
type Grid struct {
	Kind             CellKind
	Counts           [3]uint32
	CellSize         [2]uint32 // pixels per cell on x and y
	Viewport         [2]uint32
	MaxLightsPerCell uint32
}

// DeriveGrid computes the cell counts and pixel sizes of cfg for a viewport and checks
// the index ceiling. It allocates nothing.
//
// Parameters:
//   - viewportWidth: viewport width in pixels
//   - viewportHeight: viewport height in pixels
//   - cfg: the grid description
//
// Returns:
//   - Grid: the derived grid
//   - error: a *ConfigurationError if the configuration cannot be honored
func DeriveGrid(viewportWidth, viewportHeight uint32, cfg GridConfig) (Grid, error) {
	if viewportWidth == 0 || viewportHeight == 0 {
		return Grid{}, &ConfigurationError{Field: "viewport", Reason: fmt.Sprintf("%dx%d has no area", viewportWidth, viewportHeight)}
	}
	if cfg.Kind != KindTile && cfg.Kind != KindCluster {
		return Grid{}, &ConfigurationError{Field: "kind", Reason: cfg.Kind.String()}
	}
	if cfg.MaxLightsPerCell == 0 {
		return Grid{}, &ConfigurationError{Field: "max lights per cell", Reason: "must be positive"}
	}
	dims := cfg.Dimensions
	if cfg.Kind == KindTile {
		dims[2] = 1
	}
	for i, d := range dims {
		if d == 0 {
			return Grid{}, &ConfigurationError{Field: "dimensions", Reason: fmt.Sprintf("axis %d is zero", i)}
		}
	}

	g := Grid{
		Kind:             cfg.Kind,
		Viewport:         [2]uint32{viewportWidth, viewportHeight},
		MaxLightsPerCell: cfg.MaxLightsPerCell,
	}
	g.Counts[2] = dims[2]
	viewport := [2]uint32{viewportWidth, viewportHeight}
	for axis := range 2 {
		switch cfg.Policy {
		case SizingFixedPixel:
			g.CellSize[axis] = dims[axis]
			g.Counts[axis] = common.CeilDiv(viewport[axis], dims[axis])
		case SizingFixedCount:
			g.Counts[axis] = dims[axis]
			g.CellSize[axis] = common.CeilDiv(viewport[axis], dims[axis])
		default:
			return Grid{}, &ConfigurationError{Field: "sizing policy", Reason: cfg.Policy.String()}
		}
	}

	if g.IndexCapacity() > MaxIndexEntries {
		return Grid{}, &ConfigurationError{
			Field:  "capacity",
			Reason: fmt.Sprintf("%dx%dx%d cells x %d lights exceeds %d index entries", g.Counts[0], g.Counts[1], g.Counts[2], g.MaxLightsPerCell, MaxIndexEntries),
		}
	}
	return g, nil
}

// CellCount returns countX*countY*countZ.
func (g Grid) CellCount() uint64 {
	return uint64(g.Counts[0]) * uint64(g.Counts[1]) * uint64(g.Counts[2])
}

// IndexCapacity returns the number of light-index entries the grid needs.
func (g Grid) IndexCapacity() uint64 {
	return g.CellCount() * uint64(g.MaxLightsPerCell)
}

// Index flattens a cell coordinate: x + y*countX + z*countX*countY.
func (g Grid) Index(cell [3]uint32) uint32 {
	return cell[0] + cell[1]*g.Counts[0] + cell[2]*g.Counts[0]*g.Counts[1]
}

// Coord expands a flat cell index into its coordinate.
func (g Grid) Coord(index uint32) [3]uint32 {
	plane := g.Counts[0] * g.Counts[1]
	return [3]uint32{index % g.Counts[0], (index % plane) / g.Counts[0], index / plane}
}

// Groups returns the building dispatch size: ceil(count / threads) per axis.
func (g Grid) Groups(threads [3]uint32) [3]uint32 {
	return [3]uint32{
		common.CeilDiv(g.Counts[0], threads[0]),
		common.CeilDiv(g.Counts[1], threads[1]),
		common.CeilDiv(g.Counts[2], threads[2]),
	}
}

// CellCoord maps a fragment to its cell the way the shading stage does.
//
// Parameters:
//   - fragX, fragY: the fragment position in pixels, origin top-left
//   - viewZ: the fragment's view-space z (negative in front of the camera)
//   - near, far: the camera clip distances
//
// Returns:
//   - [3]uint32: the cell coordinate
//   - bool: false if the fragment lies outside the grid
func (g Grid) CellCoord(fragX, fragY, viewZ, near, far float32) ([3]uint32, bool) {
	if fragX < 0 || fragY < 0 || g.CellSize[0] == 0 || g.CellSize[1] == 0 {
		return [3]uint32{}, false
	}
	cell := [3]uint32{
		uint32(fragX / float32(g.CellSize[0])),
		uint32(fragY / float32(g.CellSize[1])),
		0,
	}
	if g.Kind == KindCluster {
		depth := -viewZ
		if depth < near || depth > far {
			return [3]uint32{}, false
		}
		slice := math.Log(float64(depth/near)) / math.Log(float64(far/near)) * float64(g.Counts[2])
		cell[2] = min(uint32(slice), g.Counts[2]-1)
	}
	if cell[0] >= g.Counts[0] || cell[1] >= g.Counts[1] {
		return [3]uint32{}, false
	}
	return cell, true
}

// Params returns the kernel-facing description of the grid for a camera.
//
// Parameters:
//   - invProj: the camera's inverse projection matrix
//   - p: the camera's projection settings
//
// Returns:
//   - kernels.CellParams: the grid as the kernels read it
func (g Grid) Params(invProj mgl32.Mat4, p camera.ProjectionParams) kernels.CellParams {
	return kernels.CellParams{
		InvProj:   invProj,
		Counts:    g.Counts,
		MaxLights: g.MaxLightsPerCell,
		CellSize:  mgl32.Vec2{float32(g.CellSize[0]), float32(g.CellSize[1])},
		Near:      p.Near,
		Far:       p.Far,
		Viewport:  mgl32.Vec2{float32(g.Viewport[0]), float32(g.Viewport[1])},
	}
}

// ThreadsPerGroup picks the workgroup shape for a cell kind on a device.
//
// Parameters:
//   - kind: tiles or clusters
//   - caps: the device capabilities
//
// Returns:
//   - [3]uint32: threads per workgroup on x, y and z
func ThreadsPerGroup(kind CellKind, caps renderer.Capabilities) [3]uint32 {
	if kind == KindTile {
		return TileThreads
	}
	if limit := caps.MaxInvocationsPerWorkgroup; limit > 0 && limit < ClusterThreads[0]*ClusterThreads[1]*ClusterThreads[2] {
		return ClusterThreadsCompact
	}
	return ClusterThreads
}

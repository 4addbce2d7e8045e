package kernels

import (
	"math"

	"github.com/Carmen-Shannon/oxy-cluster/common"
	"github.com/Carmen-Shannon/oxy-cluster/engine/renderer"
	"github.com/go-gl/mathgl/mgl32"
)

// CellParams is the grid description the kernels read from the cull uniforms.
type CellParams struct {
	InvProj   mgl32.Mat4
	Counts    [3]uint32
	MaxLights uint32
	CellSize  mgl32.Vec2 // pixels per cell on x and y
	Near      float32
	Far       float32
	Viewport  mgl32.Vec2 // width, height in pixels
}

// Index flattens a cell coordinate: x + y*countX + z*countX*countY.
func (p CellParams) Index(cell [3]uint32) uint32 {
	return cell[0] + cell[1]*p.Counts[0] + cell[2]*p.Counts[0]*p.Counts[1]
}

// Contains reports whether a cell coordinate lies inside the grid.
func (p CellParams) Contains(cell [3]uint32) bool {
	return cell[0] < p.Counts[0] && cell[1] < p.Counts[1] && cell[2] < p.Counts[2]
}

// SliceDepth returns the view-space z of depth slice boundary k. Slices are spaced
// exponentially between -near (k = 0) and -far (k = countZ).
//
// Parameters:
//   - k: the slice boundary, 0..countZ
//
// Returns:
//   - float32: the view-space z, negative in front of the camera
func (p CellParams) SliceDepth(k uint32) float32 {
	t := float64(k) / float64(max(p.Counts[2], 1))
	return -p.Near * float32(math.Pow(float64(p.Far/p.Near), t))
}

// CellBounds computes the view-space AABB of a cell: the cell's pixel rectangle is
// unprojected onto the near plane, its four corner rays are cut by the cell's two
// depth slice planes and the box encloses the eight intersection points.
//
// Parameters:
//   - p: the grid description
//   - cell: the cell coordinate
//
// Returns:
//   - common.AABB: the view-space bounds
func CellBounds(p CellParams, cell [3]uint32) common.AABB {
	lo := mgl32.Vec2{float32(cell[0]) * p.CellSize.X(), float32(cell[1]) * p.CellSize.Y()}
	hi := mgl32.Vec2{
		min(float32(cell[0]+1)*p.CellSize.X(), p.Viewport.X()),
		min(float32(cell[1]+1)*p.CellSize.Y(), p.Viewport.Y()),
	}
	zNear := p.SliceDepth(cell[2])
	zFar := p.SliceDepth(cell[2] + 1)

	b := common.EmptyAABB()
	for _, c := range [4]mgl32.Vec2{lo, {hi.X(), lo.Y()}, {lo.X(), hi.Y()}, hi} {
		ray := p.unprojectNear(c)
		b = b.Extend(ray.Mul(zNear / ray.Z()))
		b = b.Extend(ray.Mul(zFar / ray.Z()))
	}
	return b
}

// unprojectNear maps a pixel to the view-space point it covers on the near plane.
func (p CellParams) unprojectNear(px mgl32.Vec2) mgl32.Vec3 {
	ndc := mgl32.Vec4{px.X()/p.Viewport.X()*2 - 1, 1 - px.Y()/p.Viewport.Y()*2, 0, 1}
	v := p.InvProj.Mul4x1(ndc)
	return v.Vec3().Mul(1 / v.W())
}

// Uniforms returns the named vec4 values the kernels read from the grid.
func (p CellParams) Uniforms() map[string][4]float32 {
	return map[string][4]float32{
		UniformCellCount: {float32(p.Counts[0]), float32(p.Counts[1]), float32(p.Counts[2]), float32(p.MaxLights)},
		UniformCellSize:  {p.CellSize.X(), p.CellSize.Y(), 0, 0},
		UniformZNearFar:  {p.Near, p.Far, 0, 0},
		UniformViewRect:  {0, 0, p.Viewport.X(), p.Viewport.Y()},
	}
}

func paramsFromWorkgroup(wg *renderer.Workgroup) CellParams {
	counts := wg.Uniform(UniformCellCount)
	size := wg.Uniform(UniformCellSize)
	zr := wg.Uniform(UniformZNearFar)
	rect := wg.Uniform(UniformViewRect)
	return CellParams{
		InvProj:   wg.UniformMat4(UniformInvProj),
		Counts:    [3]uint32{uint32(counts[0]), uint32(counts[1]), uint32(counts[2])},
		MaxLights: uint32(counts[3]),
		CellSize:  mgl32.Vec2{size[0], size[1]},
		Near:      zr[0],
		Far:       zr[1],
		Viewport:  mgl32.Vec2{rect[2], rect[3]},
	}
}

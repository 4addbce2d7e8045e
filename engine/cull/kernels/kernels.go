package kernels

import (
	_ "embed"
	"fmt"

	"github.com/Carmen-Shannon/oxy-cluster/engine/light"
	"github.com/Carmen-Shannon/oxy-cluster/engine/renderer"
)

// Binding slots shared by the culling kernels and the shading stage.
const (
	SlotUniforms uint32 = renderer.UniformSlot
	SlotLights   uint32 = 6
	SlotCells    uint32 = 12
	SlotIndices  uint32 = 13
	SlotGrid     uint32 = 14
	SlotCursor   uint32 = 15
)

// Uniform names. Each matches a CullUniforms member.
const (
	UniformInvProj   = "u_invProj"
	UniformView      = "u_view"
	UniformCellCount = "u_cellCountVec"
	UniformCellSize  = "u_cellSizeVec"
	UniformZNearFar  = "u_zNearFarVec"
	UniformViewRect  = "u_viewRect"
)

// uniformBlock is the WGSL type of the uniform block every grid kernel reads.
const uniformBlock = "CullUniforms"

var (
	//go:embed assets/cell_common.wgsl
	cellCommonSource string
	//go:embed assets/light_common.wgsl
	lightCommonSource string
	//go:embed assets/build_cells.wgsl
	buildCellsSource string
	//go:embed assets/reset_cursor.wgsl
	resetCursorSource string
	//go:embed assets/cull_single.wgsl
	cullSingleSource string
	//go:embed assets/cull_multiple.wgsl
	cullMultipleSource string
)

// Structs returns the include registry shared by the culling kernels. Entries without
// a type are function snippets.
//
// Returns:
//   - map[string]renderer.KernelStruct: include key to WGSL source
func Structs() map[string]renderer.KernelStruct {
	return map[string]renderer.KernelStruct{
		"cull_uniforms":    {Source: GPUCullUniformsSource, Type: uniformBlock},
		"cell_bounds":      {Source: GPUCellBoundsSource, Type: "CellBounds"},
		"light_grid_entry": {Source: GPULightGridEntrySource, Type: "LightGridEntry"},
		"point_light":      {Source: light.GPUPointLightSource, Type: "PointLight"},
		"light_buffer":     {Source: light.GPULightBufferSource, Type: "LightBuffer"},
		"cell_common":      {Source: cellCommonSource},
		"light_common":     {Source: lightCommonSource},
	}
}

func kernelName(base string, ws [3]uint32) string {
	return fmt.Sprintf("%s_%dx%dx%d", base, ws[0], ws[1], ws[2])
}

// BuildCells describes the cell-building kernel: one invocation per cell writes the
// cell's view-space AABB.
//
// Parameters:
//   - ws: threads per workgroup; the dispatch covers ceil(count / ws) groups per axis
//
// Returns:
//   - renderer.KernelSource: the kernel description
func BuildCells(ws [3]uint32) renderer.KernelSource {
	return renderer.KernelSource{
		Name:          kernelName("build_cells", ws),
		WGSL:          buildCellsSource,
		Structs:       Structs(),
		WorkgroupSize: ws,
		Bindings: []renderer.KernelBinding{
			{Slot: SlotCells, Access: renderer.AccessReadWrite},
		},
		UniformBlock: uniformBlock,
		Reference:    buildCellsReference,
	}
}

// ResetCursor describes the 1x1x1 kernel that zeroes the shared light-index cursor.
//
// Returns:
//   - renderer.KernelSource: the kernel description
func ResetCursor() renderer.KernelSource {
	return renderer.KernelSource{
		Name:          "reset_cursor",
		WGSL:          resetCursorSource,
		WorkgroupSize: [3]uint32{1, 1, 1},
		Bindings: []renderer.KernelBinding{
			{Slot: SlotCursor, Access: renderer.AccessReadWrite},
		},
		Reference: resetCursorReference,
	}
}

// CullSingle describes the single-thread-per-cell culling kernel. It is dispatched over
// the same group grid as BuildCells and reserves each cell's slice from the cursor, so
// ResetCursor must run first every frame.
//
// Parameters:
//   - ws: threads per workgroup
//
// Returns:
//   - renderer.KernelSource: the kernel description
func CullSingle(ws [3]uint32) renderer.KernelSource {
	return renderer.KernelSource{
		Name:          kernelName("cull_single", ws),
		WGSL:          cullSingleSource,
		Structs:       Structs(),
		WorkgroupSize: ws,
		Bindings: []renderer.KernelBinding{
			{Slot: SlotLights, Access: renderer.AccessRead},
			{Slot: SlotCells, Access: renderer.AccessRead},
			{Slot: SlotIndices, Access: renderer.AccessReadWrite},
			{Slot: SlotGrid, Access: renderer.AccessReadWrite},
			{Slot: SlotCursor, Access: renderer.AccessReadWrite},
		},
		UniformBlock: uniformBlock,
		Reference:    cullSingleReference,
	}
}

// CullMultiple describes the multiple-thread-per-cell culling kernel. It is dispatched
// with one workgroup per cell; each cell owns the fixed region cell*maxLights.
//
// Parameters:
//   - ws: threads per workgroup, all of which stride over the light list
//
// Returns:
//   - renderer.KernelSource: the kernel description
func CullMultiple(ws [3]uint32) renderer.KernelSource {
	return renderer.KernelSource{
		Name:          kernelName("cull_multiple", ws),
		WGSL:          cullMultipleSource,
		Structs:       Structs(),
		WorkgroupSize: ws,
		Bindings: []renderer.KernelBinding{
			{Slot: SlotLights, Access: renderer.AccessRead},
			{Slot: SlotCells, Access: renderer.AccessRead},
			{Slot: SlotIndices, Access: renderer.AccessReadWrite},
			{Slot: SlotGrid, Access: renderer.AccessReadWrite},
		},
		UniformBlock: uniformBlock,
		Reference:    cullMultipleReference,
	}
}

package kernels

import (
	_ "embed"
	"encoding/binary"
	"fmt"
	"math"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-cluster/engine/renderer"
)

// GPUCellBoundsSource is the canonical WGSL definition of the CellBounds struct.
// Matches GPUCellBounds layout exactly (32 bytes).
//
//go:embed assets/cell_bounds.wgsl
var GPUCellBoundsSource string

// GPULightGridEntrySource is the canonical WGSL definition of the LightGridEntry struct.
// Matches GPULightGridEntry layout exactly (16 bytes).
//
//go:embed assets/light_grid_entry.wgsl
var GPULightGridEntrySource string

// GPUCullUniformsSource is the canonical WGSL definition of the CullUniforms block.
// Every member is a vec4 or mat4 named after the device uniform that fills it.
//
//go:embed assets/cull_uniforms.wgsl
var GPUCullUniformsSource string

// GPUCellBounds is the view-space AABB of one cell. W components are padding.
// Size: 32 bytes.
type GPUCellBounds struct {
	Min [4]float32
	Max [4]float32
}

// Size returns the size of the GPUCellBounds struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (32)
func (c *GPUCellBounds) Size() int {
	return int(unsafe.Sizeof(*c))
}

// Marshal serializes the bounds into a 32-byte little-endian buffer.
//
// Returns:
//   - []byte: 32-byte buffer ready for GPU upload
func (c *GPUCellBounds) Marshal() []byte {
	buf := make([]byte, 32)
	for i := range 4 {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(c.Min[i]))
		binary.LittleEndian.PutUint32(buf[16+i*4:], math.Float32bits(c.Max[i]))
	}
	return buf
}

// GPULightGridEntry is the (offset, count) pair locating one cell's lights in the
// light-index buffer. Size: 16 bytes.
//
// Layout:
//
//	u32 offset (offset 0)
//	u32 count  (offset 4)
//	u32 _pad0  (offset 8)
//	u32 _pad1  (offset 12)
type GPULightGridEntry struct {
	Offset uint32
	Count  uint32
	_pad   [2]uint32
}

// Size returns the size of the GPULightGridEntry struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (16)
func (e *GPULightGridEntry) Size() int {
	return int(unsafe.Sizeof(*e))
}

// Marshal serializes the entry into a 16-byte little-endian buffer.
//
// Returns:
//   - []byte: 16-byte buffer ready for GPU upload
func (e *GPULightGridEntry) Marshal() []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint32(buf[0:4], e.Offset)
	binary.LittleEndian.PutUint32(buf[4:8], e.Count)
	return buf
}

// Element layouts of the buffers the culling kernels bind.
var (
	CellBoundsLayout = renderer.ElementLayout{Name: "cell_bounds", Stride: 32}
	LightGridLayout  = renderer.ElementLayout{Name: "light_grid", Stride: 16}
	LightIndexLayout = renderer.ElementLayout{Name: "light_index", Stride: 4}
	CursorLayout     = renderer.ElementLayout{Name: "light_cursor", Stride: 4}
	// LightBufferLayout counts 16-byte units: one for the header and two per light.
	LightBufferLayout = renderer.ElementLayout{Name: "light_buffer", Stride: 16}
)

// LightBufferElements returns how many LightBufferLayout elements hold capacity lights.
func LightBufferElements(capacity uint64) uint64 {
	return 1 + 2*capacity
}

// DecodeCellBounds parses a cell-bounds buffer read back from a device.
//
// Parameters:
//   - b: the raw bytes, a multiple of 32
//
// Returns:
//   - []GPUCellBounds: one entry per cell
//   - error: if the length is not a whole number of entries
func DecodeCellBounds(b []byte) ([]GPUCellBounds, error) {
	if len(b)%32 != 0 {
		return nil, fmt.Errorf("cell bounds: %d bytes is not a multiple of 32", len(b))
	}
	out := make([]GPUCellBounds, len(b)/32)
	for i := range out {
		e := b[i*32:]
		for j := range 4 {
			out[i].Min[j] = math.Float32frombits(binary.LittleEndian.Uint32(e[j*4:]))
			out[i].Max[j] = math.Float32frombits(binary.LittleEndian.Uint32(e[16+j*4:]))
		}
	}
	return out, nil
}

// DecodeLightGrid parses a light-grid buffer read back from a device.
//
// Parameters:
//   - b: the raw bytes, a multiple of 16
//
// Returns:
//   - []GPULightGridEntry: one entry per cell
//   - error: if the length is not a whole number of entries
func DecodeLightGrid(b []byte) ([]GPULightGridEntry, error) {
	if len(b)%16 != 0 {
		return nil, fmt.Errorf("light grid: %d bytes is not a multiple of 16", len(b))
	}
	out := make([]GPULightGridEntry, len(b)/16)
	for i := range out {
		out[i].Offset = binary.LittleEndian.Uint32(b[i*16:])
		out[i].Count = binary.LittleEndian.Uint32(b[i*16+4:])
	}
	return out, nil
}

// DecodeLightIndices parses a light-index buffer read back from a device.
//
// Parameters:
//   - b: the raw bytes, a multiple of 4
//
// Returns:
//   - []uint32: the light indices
//   - error: if the length is not a whole number of entries
func DecodeLightIndices(b []byte) ([]uint32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("light index: %d bytes is not a multiple of 4", len(b))
	}
	out := make([]uint32, len(b)/4)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	return out, nil
}

package light

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"
)

// GPUPointLightSource is the canonical WGSL definition of the PointLight struct.
// Matches GPUPointLight layout exactly (32 bytes).
//
//go:embed assets/point_light.wgsl
var GPUPointLightSource string

// GPULightBufferSource is the canonical WGSL definition of the LightBuffer struct:
// a 16 byte header followed by a runtime-sized PointLight array. It references
// PointLight, so GPUPointLightSource must be included first.
//
//go:embed assets/light_buffer.wgsl
var GPULightBufferSource string

// GPUPointLight is the GPU-aligned representation of a single point light.
// Size: 32 bytes.
type GPUPointLight struct {
	Position  [3]float32 // offset  0
	Range     float32    // offset 12
	Color     [3]float32 // offset 16
	Intensity float32    // offset 28
}

// Size returns the size of the GPUPointLight struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (32)
func (g *GPUPointLight) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUPointLight into a 32-byte little-endian buffer.
//
// Returns:
//   - []byte: 32-byte buffer ready for GPU upload
func (g *GPUPointLight) Marshal() []byte {
	buf := make([]byte, 32)
	g.marshalInto(buf)
	return buf
}

func (g *GPUPointLight) marshalInto(buf []byte) {
	for i := range 3 {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(g.Position[i]))
		binary.LittleEndian.PutUint32(buf[16+i*4:], math.Float32bits(g.Color[i]))
	}
	binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(g.Range))
	binary.LittleEndian.PutUint32(buf[28:32], math.Float32bits(g.Intensity))
}

// GPULightHeader is the header prepended to the light storage buffer.
// Size: 16 bytes.
type GPULightHeader struct {
	Count uint32
	_pad  [3]uint32
}

// Size returns the size of the GPULightHeader struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (16)
func (h *GPULightHeader) Size() int {
	return int(unsafe.Sizeof(*h))
}

// Marshal serializes the header into a 16-byte little-endian buffer.
//
// Returns:
//   - []byte: 16-byte buffer ready for GPU upload
func (h *GPULightHeader) Marshal() []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint32(buf[0:4], h.Count)
	return buf
}

// ToGPUPointLight converts a Light into its GPU-aligned form.
//
// Parameters:
//   - l: the Light to convert
//
// Returns:
//   - GPUPointLight: the GPU-aligned representation
func ToGPUPointLight(l Light) GPUPointLight {
	return GPUPointLight{
		Position:  l.Position(),
		Range:     l.Range(),
		Color:     l.Color(),
		Intensity: l.Intensity(),
	}
}

// MarshalLightBuffer marshals the enabled lights into a byte buffer laid out as
// the WGSL LightBuffer:
//
//	[GPULightHeader (16 bytes)] [GPUPointLight × count (32 bytes each)]
//
// Disabled lights are skipped, so indices in the buffer refer to the enabled
// subset in order.
//
// Parameters:
//   - lights: the lights to marshal
//
// Returns:
//   - []byte: the marshaled buffer
//   - uint32: the number of lights written
func MarshalLightBuffer(lights []Light) ([]byte, uint32) {
	headerSize := (&GPULightHeader{}).Size()
	lightSize := (&GPUPointLight{}).Size()

	count := 0
	for _, l := range lights {
		if l.Enabled() {
			count++
		}
	}

	buf := make([]byte, headerSize+count*lightSize)
	header := GPULightHeader{Count: uint32(count)}
	copy(buf, header.Marshal())

	offset := headerSize
	for _, l := range lights {
		if !l.Enabled() {
			continue
		}
		gpu := ToGPUPointLight(l)
		gpu.marshalInto(buf[offset : offset+lightSize])
		offset += lightSize
	}
	return buf, uint32(count)
}

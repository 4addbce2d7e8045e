package renderer

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// Access is the access tier a buffer is created with or bound at.
type Access uint8

const (
	// AccessRead allows kernels to read the buffer only.
	AccessRead Access = iota + 1

	// AccessWrite allows kernels to write the buffer only.
	AccessWrite

	// AccessReadWrite allows kernels to read and write the buffer, atomics included.
	AccessReadWrite
)

// String returns the name of the access tier.
func (a Access) String() string {
	switch a {
	case AccessRead:
		return "read"
	case AccessWrite:
		return "write"
	case AccessReadWrite:
		return "read_write"
	default:
		return "invalid"
	}
}

// CanRead reports whether the tier permits loads.
func (a Access) CanRead() bool { return a == AccessRead || a == AccessReadWrite }

// CanWrite reports whether the tier permits stores and atomics.
func (a Access) CanWrite() bool { return a == AccessWrite || a == AccessReadWrite }

// Covers reports whether a binding made at tier a satisfies a kernel that requires tier req.
//
// Parameters:
//   - req: the tier the kernel declares
//
// Returns:
//   - bool: true if every operation permitted by req is permitted by a
func (a Access) Covers(req Access) bool {
	if req.CanRead() && !a.CanRead() {
		return false
	}
	if req.CanWrite() && !a.CanWrite() {
		return false
	}
	return true
}

// ElementLayout describes the elements of a compute buffer.
type ElementLayout struct {
	// Name is the element type name, used in debug labels.
	Name string

	// Stride is the element size in bytes. It must be a non-zero multiple of 4.
	Stride uint32
}

// BufferHandle identifies a buffer created by a Device. The zero value is never issued
// and is rejected by every Device method.
type BufferHandle struct {
	id uuid.UUID
}

// Valid reports whether the handle was issued by a Device.
func (h BufferHandle) Valid() bool {
	return h.id != uuid.Nil
}

// String returns the handle identity.
func (h BufferHandle) String() string {
	return h.id.String()
}

func newBufferHandle() BufferHandle {
	return BufferHandle{id: uuid.New()}
}

// Capabilities lists the optional features a Device exposes.
type Capabilities struct {
	// Compute reports compute-kernel support.
	Compute bool

	// Index32 reports 32-bit index buffer support.
	Index32 bool

	// MultipleRenderTargets reports support for writing several color targets at once.
	MultipleRenderTargets bool

	// Blit reports framebuffer blit support.
	Blit bool

	// MaxWorkgroupsPerDimension is the largest group count accepted per dispatch axis.
	MaxWorkgroupsPerDimension uint32

	// MaxInvocationsPerWorkgroup is the largest thread count a single workgroup may have.
	MaxInvocationsPerWorkgroup uint32
}

// KernelSource describes a compute kernel in both of its forms. Backends pick the form
// they execute: the software device runs Reference, the wgpu device compiles WGSL.
type KernelSource struct {
	// Name identifies the kernel in labels and logs.
	Name string

	// WGSL is the raw kernel source, @oxy annotations included.
	WGSL string

	// Structs are the WGSL structs the source may include, keyed by annotation argument.
	Structs map[string]KernelStruct

	// WorkgroupSize is the thread count per workgroup substituted for //@oxy:workgroup.
	WorkgroupSize [3]uint32

	// Bindings lists the slots the kernel touches and the tier it needs on each.
	Bindings []KernelBinding

	// UniformBlock is the WGSL struct name of the kernel's uniform block, bound at slot 0.
	// Members whose names match a SetUniform/SetUniformMat4 name receive that value.
	UniformBlock string

	// Reference is the CPU implementation executed once per workgroup by the software device.
	Reference KernelFunc
}

// KernelStruct is a WGSL struct available to kernel sources.
type KernelStruct struct {
	Source string
	Type   string
}

// KernelBinding is a slot a kernel reads or writes.
type KernelBinding struct {
	Slot   uint32
	Access Access
}

// KernelFunc executes one workgroup of a kernel on the CPU.
type KernelFunc func(wg *Workgroup)

// KernelProgram is a kernel prepared for dispatch on a specific Device.
type KernelProgram interface {
	// Name returns the kernel name.
	Name() string

	// WorkgroupSize returns the threads per workgroup.
	WorkgroupSize() [3]uint32

	// Bindings returns the slots the kernel touches.
	Bindings() []KernelBinding
}

// Device is the GPU capability the culling core runs on.
//
// Buffers, uniforms and bindings are device state: dispatches observe the bindings and
// uniform values current when DispatchCompute is called. Dispatches execute in the order
// they are recorded. A Device is driven from a single goroutine.
type Device interface {
	// CreateComputeBuffer allocates a zero-filled buffer of elementCount elements.
	//
	// Parameters:
	//   - elementCount: number of elements (must be > 0)
	//   - layout: element layout (stride must be a non-zero multiple of 4)
	//   - access: the widest tier the buffer may ever be bound at
	//
	// Returns:
	//   - BufferHandle: the new buffer
	//   - error: a *ResourceError if allocation fails
	CreateComputeBuffer(elementCount uint64, layout ElementLayout, access Access) (BufferHandle, error)

	// DestroyBuffer releases a buffer and clears every binding that references it.
	// Destroying an unknown or already destroyed handle does nothing.
	DestroyBuffer(h BufferHandle)

	// SetUniform sets a named vec4 uniform.
	SetUniform(name string, v [4]float32)

	// SetUniformMat4 sets a named mat4 uniform.
	SetUniformMat4(name string, m mgl32.Mat4)

	// BindBuffer binds a buffer to a slot at the given tier. Binding the zero handle clears
	// the slot. A tier wider than the buffer's creation tier is reported by the next dispatch.
	BindBuffer(slot uint32, h BufferHandle, access Access)

	// CreateKernel prepares a kernel for dispatch.
	//
	// Parameters:
	//   - src: the kernel description
	//
	// Returns:
	//   - KernelProgram: the prepared kernel
	//   - error: a *ResourceError if compilation or pipeline creation fails
	CreateKernel(src KernelSource) (KernelProgram, error)

	// DispatchCompute records one dispatch of groupsX×groupsY×groupsZ workgroups.
	// A zero group count on any axis records nothing.
	//
	// Returns:
	//   - error: ErrAccessViolation when a slot the kernel needs is unbound or bound at an
	//     insufficient tier, or an execution error from the software device
	DispatchCompute(kernel KernelProgram, groupsX, groupsY, groupsZ uint32) error

	// WriteBuffer uploads data at a byte offset. Data past the buffer end is an error.
	WriteBuffer(h BufferHandle, offset uint64, data []byte) error

	// ReadBuffer waits for recorded work and copies size bytes from offset.
	ReadBuffer(h BufferHandle, offset, size uint64) ([]byte, error)

	// Flush submits recorded dispatches and waits for them to complete.
	Flush() error

	// Capabilities reports the optional features of the device.
	Capabilities() Capabilities

	// Backend returns the backend type of the device.
	Backend() BackendType

	// Stats returns the cumulative counters of the device.
	Stats() DeviceStats

	// Release destroys every buffer and kernel and shuts the device down.
	Release()
}

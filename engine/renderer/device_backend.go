package renderer

import (
	"fmt"
	"time"
)

// BackendType identifies the Device implementation.
type BackendType int

const (
	// BackendTypeSoftware executes kernels on the CPU with a worker pool.
	BackendTypeSoftware BackendType = iota

	// BackendTypeWGPU executes kernels as WGSL compute shaders through WebGPU.
	BackendTypeWGPU
)

// String returns the configuration name of the backend.
func (b BackendType) String() string {
	switch b {
	case BackendTypeSoftware:
		return "software"
	case BackendTypeWGPU:
		return "wgpu"
	default:
		return fmt.Sprintf("BackendType(%d)", int(b))
	}
}

// ParseBackendType maps a configuration name onto a BackendType.
//
// Parameters:
//   - name: "software" or "wgpu"
//
// Returns:
//   - BackendType: the backend
//   - error: an error for unknown names
func ParseBackendType(name string) (BackendType, error) {
	switch name {
	case "software", "cpu":
		return BackendTypeSoftware, nil
	case "wgpu", "webgpu":
		return BackendTypeWGPU, nil
	default:
		return 0, fmt.Errorf("unknown device backend %q", name)
	}
}

// DeviceStats are cumulative counters of a Device.
type DeviceStats struct {
	// Dispatches counts recorded non-empty dispatches.
	Dispatches uint64

	// DeviceTime is the time spent executing kernels (software) or waiting for the queue (wgpu).
	DeviceTime time.Duration

	// BufferBytes is the total size of live buffers.
	BufferBytes uint64
}

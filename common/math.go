package common

import (
	"math"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// SliceToBytes converts any slice to a byte slice for GPU buffer uploads.
// Uses unsafe pointer operations to create a view into the original data.
// WARNING: The returned slice shares memory with the input - do not modify.
//
// Parameters:
//   - data: source slice of any type
//
// Returns:
//   - []byte: byte slice view of the input data, or nil if input is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	size := int(unsafe.Sizeof(zero))
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), len(data)*size)
}

// Perspective creates a right-handed perspective projection with WebGPU clip-space
// depth [0, 1]. The camera looks down -Z in view space.
//
// mgl32.Perspective maps depth to [-1, 1], which does not match the compute
// kernels' unprojection, so the matrix is built by hand.
//
// Parameters:
//   - fovY: vertical field of view in radians
//   - aspect: viewport aspect ratio (width/height)
//   - near: near clipping plane distance (must be > 0)
//   - far: far clipping plane distance (must be > near)
//
// Returns:
//   - mgl32.Mat4: the column-major projection matrix
func Perspective(fovY, aspect, near, far float32) mgl32.Mat4 {
	f := 1.0 / float32(math.Tan(float64(fovY)/2.0))
	var out mgl32.Mat4
	out[0] = f / aspect
	out[5] = f
	out[10] = far / (near - far)
	out[11] = -1.0
	out[14] = (near * far) / (near - far)
	return out
}

// CeilDiv returns ceil(a / b) for unsigned integers. A zero divisor yields zero.
//
// Parameters:
//   - a: dividend
//   - b: divisor
//
// Returns:
//   - uint32: the rounded-up quotient
func CeilDiv(a, b uint32) uint32 {
	if b == 0 {
		return 0
	}
	return (a + b - 1) / b
}

// MatricesDiffer reports whether any component of a and b differs by at least eps.
// The comparison is absolute per component; mgl32's ApproxEqual family is relative
// and would treat large projection terms differently from small ones.
//
// Parameters:
//   - a: first matrix
//   - b: second matrix
//   - eps: absolute per-component tolerance
//
// Returns:
//   - bool: true if at least one component differs by eps or more
func MatricesDiffer(a, b mgl32.Mat4, eps float32) bool {
	for i := range a {
		d := a[i] - b[i]
		if d < 0 {
			d = -d
		}
		if d >= eps || d != d {
			return true
		}
	}
	return false
}

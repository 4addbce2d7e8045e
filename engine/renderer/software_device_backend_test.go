package renderer

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var wordLayout = ElementLayout{Name: "words", Stride: 4}

func newTestDevice(t *testing.T, options ...DeviceBuilderOption) Device {
	t.Helper()
	d, err := NewDevice(BackendTypeSoftware, append([]DeviceBuilderOption{WithWorkers(4)}, options...)...)
	require.NoError(t, err)
	t.Cleanup(d.Release)
	return d
}

func words(b []byte) []uint32 {
	out := make([]uint32, len(b)/4)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	return out
}

func TestSoftwareBufferRoundTrip(t *testing.T) {
	d := newTestDevice(t)

	h, err := d.CreateComputeBuffer(4, wordLayout, AccessReadWrite)
	require.NoError(t, err)
	require.True(t, h.Valid())

	data := make([]byte, 8)
	binary.LittleEndian.PutUint32(data, 7)
	binary.LittleEndian.PutUint32(data[4:], 9)
	require.NoError(t, d.WriteBuffer(h, 4, data))

	out, err := d.ReadBuffer(h, 0, 16)
	require.NoError(t, err)
	assert.Equal(t, []uint32{0, 7, 9, 0}, words(out))

	assert.ErrorIs(t, d.WriteBuffer(h, 12, data), ErrOutOfBounds)
	_, err = d.ReadBuffer(h, 8, 12)
	assert.ErrorIs(t, err, ErrOutOfBounds)
	assert.Equal(t, uint64(16), d.Stats().BufferBytes)
}

func TestSoftwareBufferCreationErrors(t *testing.T) {
	d := newTestDevice(t)

	var resErr *ResourceError
	_, err := d.CreateComputeBuffer(0, wordLayout, AccessRead)
	require.ErrorAs(t, err, &resErr)
	assert.Equal(t, "buffer words", resErr.Resource)

	_, err = d.CreateComputeBuffer(4, ElementLayout{Name: "odd", Stride: 6}, AccessRead)
	assert.ErrorAs(t, err, &resErr)
}

func TestZeroHandleIsRejected(t *testing.T) {
	d := newTestDevice(t)

	var zero BufferHandle
	assert.False(t, zero.Valid())
	assert.ErrorIs(t, d.WriteBuffer(zero, 0, []byte{0, 0, 0, 0}), ErrInvalidHandle)
	_, err := d.ReadBuffer(zero, 0, 4)
	assert.ErrorIs(t, err, ErrInvalidHandle)
	d.DestroyBuffer(zero)
}

func counterKernel(t *testing.T, d Device) KernelProgram {
	t.Helper()
	k, err := d.CreateKernel(KernelSource{
		Name:          "count",
		WorkgroupSize: [3]uint32{8, 1, 1},
		Bindings:      []KernelBinding{{Slot: 15, Access: AccessReadWrite}},
		Reference: func(wg *Workgroup) {
			for range wg.Invocations() {
				wg.AtomicAdd(15, 0, 1)
			}
		},
	})
	require.NoError(t, err)
	return k
}

func TestSoftwareAtomicsAcrossWorkgroups(t *testing.T) {
	d := newTestDevice(t)
	h, err := d.CreateComputeBuffer(1, wordLayout, AccessReadWrite)
	require.NoError(t, err)
	d.BindBuffer(15, h, AccessReadWrite)

	k := counterKernel(t, d)
	require.NoError(t, d.DispatchCompute(k, 25, 4, 2))

	out, err := d.ReadBuffer(h, 0, 4)
	require.NoError(t, err)
	assert.Equal(t, uint32(25*4*2*8), words(out)[0])
	assert.Equal(t, uint64(1), d.Stats().Dispatches)

	require.NoError(t, d.DispatchCompute(k, 0, 4, 2))
	assert.Equal(t, uint64(1), d.Stats().Dispatches, "empty dispatch must not count")
}

func TestSoftwareAccessTiers(t *testing.T) {
	d := newTestDevice(t)
	k := counterKernel(t, d)

	readOnly, err := d.CreateComputeBuffer(1, wordLayout, AccessRead)
	require.NoError(t, err)
	rw, err := d.CreateComputeBuffer(1, wordLayout, AccessReadWrite)
	require.NoError(t, err)

	t.Run("unbound", func(t *testing.T) {
		assert.ErrorIs(t, d.DispatchCompute(k, 1, 1, 1), ErrAccessViolation)
	})
	t.Run("bound read for read_write kernel", func(t *testing.T) {
		d.BindBuffer(15, rw, AccessRead)
		assert.ErrorIs(t, d.DispatchCompute(k, 1, 1, 1), ErrAccessViolation)
	})
	t.Run("bound wider than created", func(t *testing.T) {
		d.BindBuffer(15, readOnly, AccessReadWrite)
		assert.ErrorIs(t, d.DispatchCompute(k, 1, 1, 1), ErrAccessViolation)
	})
	t.Run("destroy clears binding", func(t *testing.T) {
		d.BindBuffer(15, rw, AccessReadWrite)
		require.NoError(t, d.DispatchCompute(k, 1, 1, 1))
		d.DestroyBuffer(rw)
		assert.ErrorIs(t, d.DispatchCompute(k, 1, 1, 1), ErrAccessViolation)
	})
}

func TestSoftwareKernelOutOfBoundsIsReported(t *testing.T) {
	d := newTestDevice(t)
	h, err := d.CreateComputeBuffer(4, wordLayout, AccessReadWrite)
	require.NoError(t, err)
	d.BindBuffer(13, h, AccessReadWrite)

	k, err := d.CreateKernel(KernelSource{
		Name:     "overrun",
		Bindings: []KernelBinding{{Slot: 13, Access: AccessReadWrite}},
		Reference: func(wg *Workgroup) {
			wg.Store(13, uint64(wg.ID[0]), wg.ID[0]+1)
		},
	})
	require.NoError(t, err)

	err = d.DispatchCompute(k, 6, 1, 1)
	require.ErrorIs(t, err, ErrOutOfBounds)
	assert.Equal(t, uint64(16), d.Stats().BufferBytes)
}

func TestSoftwareKernelReadOnlyStoreIsReported(t *testing.T) {
	d := newTestDevice(t)
	h, err := d.CreateComputeBuffer(1, wordLayout, AccessReadWrite)
	require.NoError(t, err)
	d.BindBuffer(12, h, AccessRead)

	k, err := d.CreateKernel(KernelSource{
		Name:      "sneaky",
		Bindings:  []KernelBinding{{Slot: 12, Access: AccessRead}},
		Reference: func(wg *Workgroup) { wg.Store(12, 0, 1) },
	})
	require.NoError(t, err)
	assert.ErrorIs(t, d.DispatchCompute(k, 1, 1, 1), ErrAccessViolation)
}

func TestSoftwareKernelPanicIsReported(t *testing.T) {
	d := newTestDevice(t)
	k, err := d.CreateKernel(KernelSource{
		Name:      "boom",
		Reference: func(wg *Workgroup) { panic("boom") },
	})
	require.NoError(t, err)
	err = d.DispatchCompute(k, 3, 1, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestSoftwareUniformsReachKernels(t *testing.T) {
	d := newTestDevice(t)
	h, err := d.CreateComputeBuffer(4, wordLayout, AccessReadWrite)
	require.NoError(t, err)
	d.BindBuffer(13, h, AccessReadWrite)
	d.SetUniform("u_vec", [4]float32{1, 2, 3, 4})

	k, err := d.CreateKernel(KernelSource{
		Name:     "copy_uniform",
		Bindings: []KernelBinding{{Slot: 13, Access: AccessReadWrite}},
		Reference: func(wg *Workgroup) {
			wg.StoreVec4(13, 0, wg.Uniform("u_vec"))
		},
	})
	require.NoError(t, err)
	require.NoError(t, d.DispatchCompute(k, 1, 1, 1))

	out, err := d.ReadBuffer(h, 0, 16)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x40400000), words(out)[2])
}

func TestKernelBindingsMustMatchSource(t *testing.T) {
	d := newTestDevice(t)
	src := KernelSource{
		Name: "mismatch",
		WGSL: `//@oxy:group 0 13 read_write light_index array<u32>
@compute @workgroup_size(1)
fn main() { light_index[0] = 1u; }`,
		Bindings:  []KernelBinding{{Slot: 13, Access: AccessRead}},
		Reference: func(wg *Workgroup) {},
	}
	_, err := d.CreateKernel(src)
	var resErr *ResourceError
	require.ErrorAs(t, err, &resErr)
	assert.Contains(t, err.Error(), "declared read but source uses read_write")

	src.Bindings = []KernelBinding{{Slot: 13, Access: AccessReadWrite}}
	_, err = d.CreateKernel(src)
	assert.NoError(t, err)

	src.Reference = nil
	_, err = d.CreateKernel(src)
	assert.Error(t, err)
}

func TestAccessCovers(t *testing.T) {
	assert.True(t, AccessReadWrite.Covers(AccessRead))
	assert.True(t, AccessReadWrite.Covers(AccessWrite))
	assert.False(t, AccessRead.Covers(AccessReadWrite))
	assert.False(t, AccessWrite.Covers(AccessRead))
	assert.True(t, AccessRead.Covers(AccessRead))
	assert.Equal(t, "read_write", AccessReadWrite.String())
}

func TestMissingCapability(t *testing.T) {
	err := MissingCapability("compute")
	assert.True(t, errors.Is(err, ErrCapabilityUnsupported))
	assert.Contains(t, err.Error(), "compute")
}

func TestParseBackendType(t *testing.T) {
	b, err := ParseBackendType("software")
	require.NoError(t, err)
	assert.Equal(t, BackendTypeSoftware, b)
	b, err = ParseBackendType("wgpu")
	require.NoError(t, err)
	assert.Equal(t, BackendTypeWGPU, b)
	_, err = ParseBackendType("vulkan")
	assert.Error(t, err)
}

package renderer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wgpuCounterKernel = `//@oxy:group 0 15 read_write counter array<atomic<u32>>

@compute
//@oxy:workgroup
fn main(@builtin(global_invocation_id) gid: vec3<u32>) {
    atomicAdd(&counter[0], 1u);
}
`

func newWGPUTestDevice(t *testing.T) Device {
	t.Helper()
	d, err := NewDevice(BackendTypeWGPU, WithLabel("wgpu_test"))
	if err != nil {
		t.Skipf("Skipping: no WebGPU adapter: %v", err)
	}
	t.Cleanup(d.Release)
	return d
}

func TestWGPUWritesDoNotWaitForQueue(t *testing.T) {
	d := newWGPUTestDevice(t)

	counter, err := d.CreateComputeBuffer(1, wordLayout, AccessReadWrite)
	require.NoError(t, err)
	lights, err := d.CreateComputeBuffer(4, wordLayout, AccessRead)
	require.NoError(t, err)
	d.BindBuffer(15, counter, AccessReadWrite)

	k, err := d.CreateKernel(KernelSource{
		Name:          "count",
		WGSL:          wgpuCounterKernel,
		WorkgroupSize: [3]uint32{8, 1, 1},
		Bindings:      []KernelBinding{{Slot: 15, Access: AccessReadWrite}},
	})
	require.NoError(t, err)

	// a per-frame upload submits the recorded pass but must not block on it
	require.NoError(t, d.DispatchCompute(k, 4, 1, 1))
	require.NoError(t, d.WriteBuffer(lights, 0, make([]byte, 16)))
	assert.Zero(t, d.Stats().DeviceTime)

	out, err := d.ReadBuffer(counter, 0, 4)
	require.NoError(t, err)
	assert.Equal(t, uint32(32), words(out)[0])

	require.NoError(t, d.DispatchCompute(k, 1, 1, 1))
	require.NoError(t, d.Flush())
	assert.Positive(t, d.Stats().DeviceTime)

	out, err = d.ReadBuffer(counter, 0, 4)
	require.NoError(t, err)
	assert.Equal(t, uint32(40), words(out)[0])
}

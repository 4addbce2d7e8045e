package renderer

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"
)

// boundBuffer is a slot binding captured for the duration of one dispatch.
type boundBuffer struct {
	name   string
	words  []uint32
	access Access
}

// dispatchState is shared by all workgroups of one dispatch.
type dispatchState struct {
	kernel   string
	slots    map[uint32]boundBuffer
	uniforms map[string][4]float32
	mats     map[string]mgl32.Mat4

	failed atomic.Bool
	errMu  sync.Mutex
	err    error
}

func (d *dispatchState) fail(err error) {
	d.errMu.Lock()
	defer d.errMu.Unlock()
	if d.err == nil {
		d.err = fmt.Errorf("kernel %s: %w", d.kernel, err)
	}
	d.failed.Store(true)
}

// Workgroup is the execution context handed to a KernelFunc for one workgroup.
//
// Buffers are addressed by slot and 32-bit word index. Access outside the bound tier or
// past the end of a buffer is not performed: it records ErrAccessViolation or
// ErrOutOfBounds on the dispatch and the operation yields zero.
type Workgroup struct {
	// ID is the workgroup index within the dispatch.
	ID [3]uint32

	// Size is the number of threads per workgroup.
	Size [3]uint32

	// Count is the number of workgroups in the dispatch.
	Count [3]uint32

	state *dispatchState
}

// Invocations returns the number of threads in the workgroup.
func (w *Workgroup) Invocations() uint32 {
	return w.Size[0] * w.Size[1] * w.Size[2]
}

// LocalID converts a flat thread index into its 3D local invocation id.
//
// Parameters:
//   - index: flat thread index in [0, Invocations())
//
// Returns:
//   - [3]uint32: the local invocation id
func (w *Workgroup) LocalID(index uint32) [3]uint32 {
	return [3]uint32{
		index % w.Size[0],
		(index / w.Size[0]) % w.Size[1],
		index / (w.Size[0] * w.Size[1]),
	}
}

// GlobalID returns the global invocation id of a thread given its local id.
func (w *Workgroup) GlobalID(local [3]uint32) [3]uint32 {
	return [3]uint32{
		w.ID[0]*w.Size[0] + local[0],
		w.ID[1]*w.Size[1] + local[1],
		w.ID[2]*w.Size[2] + local[2],
	}
}

// Failed reports whether any workgroup of the dispatch recorded an error.
// Kernels may use it to stop early.
func (w *Workgroup) Failed() bool {
	return w.state.failed.Load()
}

// Uniform returns a named vec4 uniform, zero if unset.
func (w *Workgroup) Uniform(name string) [4]float32 {
	return w.state.uniforms[name]
}

// UniformMat4 returns a named mat4 uniform, zero if unset.
func (w *Workgroup) UniformMat4(name string) mgl32.Mat4 {
	return w.state.mats[name]
}

// Len returns the number of 32-bit words bound at slot, zero if unbound.
func (w *Workgroup) Len(slot uint32) uint64 {
	return uint64(len(w.state.slots[slot].words))
}

func (w *Workgroup) word(slot uint32, index uint64, write bool) (*uint32, bool) {
	b, ok := w.state.slots[slot]
	if !ok {
		w.state.fail(fmt.Errorf("%w: slot %d is not bound", ErrAccessViolation, slot))
		return nil, false
	}
	if write && !b.access.CanWrite() {
		w.state.fail(fmt.Errorf("%w: write to slot %d (%s) bound %s", ErrAccessViolation, slot, b.name, b.access))
		return nil, false
	}
	if !write && !b.access.CanRead() {
		w.state.fail(fmt.Errorf("%w: read from slot %d (%s) bound %s", ErrAccessViolation, slot, b.name, b.access))
		return nil, false
	}
	if index >= uint64(len(b.words)) {
		w.state.fail(fmt.Errorf("%w: slot %d (%s) word %d of %d", ErrOutOfBounds, slot, b.name, index, len(b.words)))
		return nil, false
	}
	return &b.words[index], true
}

// Load reads a word.
func (w *Workgroup) Load(slot uint32, index uint64) uint32 {
	p, ok := w.word(slot, index, false)
	if !ok {
		return 0
	}
	return *p
}

// LoadFloat reads a word as float32.
func (w *Workgroup) LoadFloat(slot uint32, index uint64) float32 {
	return math.Float32frombits(w.Load(slot, index))
}

// LoadVec4 reads four consecutive words as a vec4.
func (w *Workgroup) LoadVec4(slot uint32, index uint64) mgl32.Vec4 {
	return mgl32.Vec4{
		w.LoadFloat(slot, index),
		w.LoadFloat(slot, index+1),
		w.LoadFloat(slot, index+2),
		w.LoadFloat(slot, index+3),
	}
}

// Store writes a word.
func (w *Workgroup) Store(slot uint32, index uint64, v uint32) {
	if p, ok := w.word(slot, index, true); ok {
		*p = v
	}
}

// StoreFloat writes a float32 word.
func (w *Workgroup) StoreFloat(slot uint32, index uint64, v float32) {
	w.Store(slot, index, math.Float32bits(v))
}

// StoreVec4 writes four consecutive float32 words.
func (w *Workgroup) StoreVec4(slot uint32, index uint64, v mgl32.Vec4) {
	for i := range 4 {
		w.StoreFloat(slot, index+uint64(i), v[i])
	}
}

// AtomicAdd adds delta to a word atomically and returns the previous value.
func (w *Workgroup) AtomicAdd(slot uint32, index uint64, delta uint32) uint32 {
	p, ok := w.word(slot, index, true)
	if !ok {
		return 0
	}
	return atomic.AddUint32(p, delta) - delta
}

// AtomicStore writes a word atomically.
func (w *Workgroup) AtomicStore(slot uint32, index uint64, v uint32) {
	if p, ok := w.word(slot, index, true); ok {
		atomic.StoreUint32(p, v)
	}
}

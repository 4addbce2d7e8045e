package renderer

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-cluster/common"
	"github.com/go-gl/mathgl/mgl32"
)

// softwareBuffer is host memory standing in for a storage buffer.
type softwareBuffer struct {
	layout ElementLayout
	access Access
	words  []uint32
}

type softwareBinding struct {
	handle BufferHandle
	access Access
}

// softwareKernel is a kernel prepared for the software device.
type softwareKernel struct {
	*kernelBase
	reference KernelFunc
}

// softwareDevice executes kernels on the CPU. Each dispatch splits its workgroups into
// batches submitted to a worker pool and waits for all of them before returning, so
// dispatches complete in recording order.
type softwareDevice struct {
	mu       sync.Mutex
	label    string
	buffers  map[BufferHandle]*softwareBuffer
	bindings map[uint32]softwareBinding
	uniforms map[string][4]float32
	mats     map[string]mgl32.Mat4

	pool     worker.DynamicWorkerPool
	workers  int
	nextTask int

	caps     Capabilities
	validate bool
	stats    DeviceStats
	released bool
}

var _ Device = &softwareDevice{}

func newSoftwareDevice(cfg *deviceConfig) *softwareDevice {
	caps := Capabilities{
		Compute:                    true,
		Index32:                    true,
		MultipleRenderTargets:      true,
		Blit:                       true,
		MaxWorkgroupsPerDimension:  65535,
		MaxInvocationsPerWorkgroup: 1024,
	}
	if cfg.capabilities != nil {
		caps = *cfg.capabilities
	}
	return &softwareDevice{
		label:    cfg.label,
		buffers:  make(map[BufferHandle]*softwareBuffer),
		bindings: make(map[uint32]softwareBinding),
		uniforms: make(map[string][4]float32),
		mats:     make(map[string]mgl32.Mat4),
		pool:     worker.NewDynamicWorkerPool(cfg.workers, 256, 1*time.Second),
		workers:  cfg.workers,
		caps:     caps,
		validate: cfg.validateKernels,
	}
}

func (d *softwareDevice) CreateComputeBuffer(elementCount uint64, layout ElementLayout, access Access) (BufferHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	resource := "buffer " + layout.Name
	switch {
	case d.released:
		return BufferHandle{}, &ResourceError{Resource: resource, Err: errors.New("device released")}
	case elementCount == 0:
		return BufferHandle{}, &ResourceError{Resource: resource, Err: errors.New("zero element count")}
	case layout.Stride == 0 || layout.Stride%4 != 0:
		return BufferHandle{}, &ResourceError{Resource: resource, Err: fmt.Errorf("stride %d is not a non-zero multiple of 4", layout.Stride)}
	}

	words := elementCount * uint64(layout.Stride/4)
	h := newBufferHandle()
	d.buffers[h] = &softwareBuffer{
		layout: layout,
		access: access,
		words:  make([]uint32, words),
	}
	d.stats.BufferBytes += words * 4
	common.Logger().Debug("buffer created", "device", d.label, "name", layout.Name, "elements", elementCount, "bytes", words*4, "access", access.String())
	return h, nil
}

func (d *softwareDevice) DestroyBuffer(h BufferHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()

	buf, ok := d.buffers[h]
	if !ok {
		return
	}
	d.stats.BufferBytes -= uint64(len(buf.words)) * 4
	delete(d.buffers, h)
	for slot, b := range d.bindings {
		if b.handle == h {
			delete(d.bindings, slot)
		}
	}
}

func (d *softwareDevice) SetUniform(name string, v [4]float32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.uniforms[name] = v
}

func (d *softwareDevice) SetUniformMat4(name string, m mgl32.Mat4) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.mats[name] = m
}

func (d *softwareDevice) BindBuffer(slot uint32, h BufferHandle, access Access) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !h.Valid() {
		delete(d.bindings, slot)
		return
	}
	d.bindings[slot] = softwareBinding{handle: h, access: access}
}

func (d *softwareDevice) CreateKernel(src KernelSource) (KernelProgram, error) {
	if src.Reference == nil {
		return nil, &ResourceError{Resource: "kernel " + src.Name, Err: errors.New("software device requires a reference implementation")}
	}
	base, err := prepareKernel(src, d.validate)
	if err != nil {
		return nil, &ResourceError{Resource: "kernel " + src.Name, Err: err}
	}
	ws := base.workgroupSize
	if limit := d.caps.MaxInvocationsPerWorkgroup; limit > 0 && ws[0]*ws[1]*ws[2] > limit {
		return nil, &ResourceError{Resource: "kernel " + src.Name, Err: fmt.Errorf("workgroup %v exceeds %d invocations", ws, limit)}
	}
	return &softwareKernel{kernelBase: base, reference: src.Reference}, nil
}

func (d *softwareDevice) DispatchCompute(kernel KernelProgram, groupsX, groupsY, groupsZ uint32) error {
	k, ok := kernel.(*softwareKernel)
	if !ok {
		return fmt.Errorf("kernel %s was not created by the software device", kernel.Name())
	}
	if groupsX == 0 || groupsY == 0 || groupsZ == 0 {
		return nil
	}
	if limit := d.caps.MaxWorkgroupsPerDimension; limit > 0 && (groupsX > limit || groupsY > limit || groupsZ > limit) {
		return fmt.Errorf("kernel %s: dispatch %dx%dx%d exceeds %d groups per dimension", k.name, groupsX, groupsY, groupsZ, limit)
	}

	state, err := d.snapshot(k)
	if err != nil {
		return err
	}

	start := time.Now()
	d.run(k, state, [3]uint32{groupsX, groupsY, groupsZ})
	elapsed := time.Since(start)

	d.mu.Lock()
	d.stats.Dispatches++
	d.stats.DeviceTime += elapsed
	d.mu.Unlock()

	common.Logger().Debug("dispatch", "device", d.label, "kernel", k.name, "groups", [3]uint32{groupsX, groupsY, groupsZ}, "elapsed", elapsed)

	state.errMu.Lock()
	defer state.errMu.Unlock()
	return state.err
}

// snapshot captures bindings and uniforms for a dispatch and checks the kernel's
// declared tiers against them.
func (d *softwareDevice) snapshot(k *softwareKernel) (*dispatchState, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.released {
		return nil, errors.New("device released")
	}

	state := &dispatchState{
		kernel:   k.name,
		slots:    make(map[uint32]boundBuffer, len(k.bindings)),
		uniforms: make(map[string][4]float32, len(d.uniforms)),
		mats:     make(map[string]mgl32.Mat4, len(d.mats)),
	}
	for name, v := range d.uniforms {
		state.uniforms[name] = v
	}
	for name, m := range d.mats {
		state.mats[name] = m
	}

	for _, kb := range k.bindings {
		b, ok := d.bindings[kb.Slot]
		if !ok {
			return nil, fmt.Errorf("kernel %s: %w: slot %d is not bound", k.name, ErrAccessViolation, kb.Slot)
		}
		buf, ok := d.buffers[b.handle]
		if !ok {
			return nil, fmt.Errorf("kernel %s: slot %d: %w", k.name, kb.Slot, ErrInvalidHandle)
		}
		if !buf.access.Covers(b.access) {
			return nil, fmt.Errorf("kernel %s: %w: slot %d (%s) bound %s but created %s", k.name, ErrAccessViolation, kb.Slot, buf.layout.Name, b.access, buf.access)
		}
		if !b.access.Covers(kb.Access) {
			return nil, fmt.Errorf("kernel %s: %w: slot %d (%s) bound %s but kernel needs %s", k.name, ErrAccessViolation, kb.Slot, buf.layout.Name, b.access, kb.Access)
		}
		state.slots[kb.Slot] = boundBuffer{name: buf.layout.Name, words: buf.words, access: b.access}
	}
	return state, nil
}

// run executes all workgroups of a dispatch on the worker pool. A WaitGroup is the
// dispatch barrier since pool.Wait() blocks until workers idle-exit.
func (d *softwareDevice) run(k *softwareKernel, state *dispatchState, groups [3]uint32) {
	total := uint64(groups[0]) * uint64(groups[1]) * uint64(groups[2])
	batches := min(total, uint64(d.workers)*4)
	per := (total + batches - 1) / batches

	var wg sync.WaitGroup
	for first := uint64(0); first < total; first += per {
		last := min(first+per, total)
		wg.Add(1)
		d.nextTask++
		d.pool.SubmitTask(worker.Task{
			ID: d.nextTask,
			Do: func() (any, error) {
				defer wg.Done()
				defer func() {
					if r := recover(); r != nil {
						state.fail(fmt.Errorf("panic in workgroup: %v", r))
					}
				}()

				wgCtx := Workgroup{Size: k.workgroupSize, Count: groups, state: state}
				for flat := first; flat < last; flat++ {
					if state.failed.Load() {
						return nil, nil
					}
					wgCtx.ID = [3]uint32{
						uint32(flat % uint64(groups[0])),
						uint32((flat / uint64(groups[0])) % uint64(groups[1])),
						uint32(flat / (uint64(groups[0]) * uint64(groups[1]))),
					}
					k.reference(&wgCtx)
				}
				return nil, nil
			},
		})
	}
	wg.Wait()
}

func (d *softwareDevice) WriteBuffer(h BufferHandle, offset uint64, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	buf, ok := d.buffers[h]
	if !ok {
		return ErrInvalidHandle
	}
	if offset%4 != 0 || len(data)%4 != 0 {
		return fmt.Errorf("write to %s: offset %d and size %d must be multiples of 4", buf.layout.Name, offset, len(data))
	}
	if offset+uint64(len(data)) > uint64(len(buf.words))*4 {
		return fmt.Errorf("write to %s: %w: %d bytes at %d exceed %d", buf.layout.Name, ErrOutOfBounds, len(data), offset, len(buf.words)*4)
	}
	base := offset / 4
	for i := 0; i < len(data); i += 4 {
		buf.words[base+uint64(i/4)] = binary.LittleEndian.Uint32(data[i:])
	}
	return nil
}

func (d *softwareDevice) ReadBuffer(h BufferHandle, offset, size uint64) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	buf, ok := d.buffers[h]
	if !ok {
		return nil, ErrInvalidHandle
	}
	if offset%4 != 0 || size%4 != 0 {
		return nil, fmt.Errorf("read from %s: offset %d and size %d must be multiples of 4", buf.layout.Name, offset, size)
	}
	if offset+size > uint64(len(buf.words))*4 {
		return nil, fmt.Errorf("read from %s: %w: %d bytes at %d exceed %d", buf.layout.Name, ErrOutOfBounds, size, offset, len(buf.words)*4)
	}
	out := make([]byte, size)
	base := offset / 4
	for i := uint64(0); i < size; i += 4 {
		binary.LittleEndian.PutUint32(out[i:], buf.words[base+i/4])
	}
	return out, nil
}

// Flush is a no-op: software dispatches complete before DispatchCompute returns.
func (d *softwareDevice) Flush() error {
	return nil
}

func (d *softwareDevice) Capabilities() Capabilities {
	return d.caps
}

func (d *softwareDevice) Backend() BackendType {
	return BackendTypeSoftware
}

func (d *softwareDevice) Stats() DeviceStats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

func (d *softwareDevice) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.released {
		return
	}
	d.released = true
	d.buffers = make(map[BufferHandle]*softwareBuffer)
	d.bindings = make(map[uint32]softwareBinding)
	d.stats.BufferBytes = 0
	d.pool.Stop()
}

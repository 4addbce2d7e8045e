package renderer

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-cluster/common"
	"github.com/Carmen-Shannon/oxy-cluster/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-cluster/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-cluster/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

// wgpuBuffer is a storage buffer owned by the wgpu device.
type wgpuBuffer struct {
	buf    *wgpu.Buffer
	size   uint64
	layout ElementLayout
	access Access
}

// wgpuKernel is a compute pipeline plus the per-kernel uniform block and bind group cache.
type wgpuKernel struct {
	*kernelBase
	pipeline      pipeline.Pipeline
	provider      bind_group_provider.BindGroupProvider
	uniformLayout shader.StructLayout
	uniformBuffer *wgpu.Buffer
	lastUniforms  []byte
}

// wgpuDevice runs kernels as WGSL compute shaders. Dispatches are recorded as one compute
// pass each into a shared command encoder that is submitted by Flush, or implicitly by any
// queue write or readback that must observe or precede the recorded work.
type wgpuDevice struct {
	mu    sync.Mutex
	label string

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	limits   wgpu.Limits

	buffers  map[BufferHandle]*wgpuBuffer
	bindings map[uint32]softwareBinding
	uniforms map[string][4]float32
	mats     map[string]mgl32.Mat4
	kernels  []*wgpuKernel

	encoder *wgpu.CommandEncoder
	pending int

	// inflight is set while submitted work has not been waited on.
	inflight bool

	validate bool
	stats    DeviceStats
	released bool
}

var _ Device = &wgpuDevice{}

func newWGPUDevice(cfg *deviceConfig) (*wgpuDevice, error) {
	runtime.LockOSThread()
	d := &wgpuDevice{
		label:    cfg.label,
		instance: wgpu.CreateInstance(nil),
		buffers:  make(map[BufferHandle]*wgpuBuffer),
		bindings: make(map[uint32]softwareBinding),
		uniforms: make(map[string][4]float32),
		mats:     make(map[string]mgl32.Mat4),
		validate: cfg.validateKernels,
	}

	a, err := d.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: cfg.forceFallbackAdapter,
	})
	if err != nil {
		d.instance.Release()
		return nil, &ResourceError{Resource: "adapter", Err: err}
	}
	d.adapter = a

	// Large light-index buffers exceed the default 128 MiB binding size and 16x8x4 cluster
	// workgroups exceed 256 invocations; ask for more and settle for the defaults if the
	// adapter refuses.
	raised := wgpu.DefaultLimits()
	raised.MaxStorageBufferBindingSize = 1 << 30
	raised.MaxBufferSize = 1 << 30
	raised.MaxComputeInvocationsPerWorkgroup = 512

	for _, limits := range []wgpu.Limits{raised, wgpu.DefaultLimits()} {
		dev, reqErr := a.RequestDevice(&wgpu.DeviceDescriptor{
			Label: cfg.label + " Device",
			RequiredLimits: &wgpu.RequiredLimits{
				Limits: limits,
			},
		})
		if reqErr != nil {
			err = reqErr
			continue
		}
		d.device = dev
		d.limits = limits
		break
	}
	if d.device == nil {
		d.adapter.Release()
		d.instance.Release()
		return nil, &ResourceError{Resource: "device", Err: err}
	}
	d.queue = d.device.GetQueue()
	return d, nil
}

func (d *wgpuDevice) CreateComputeBuffer(elementCount uint64, layout ElementLayout, access Access) (BufferHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	resource := "buffer " + layout.Name
	size := elementCount * uint64(layout.Stride)
	switch {
	case d.released:
		return BufferHandle{}, &ResourceError{Resource: resource, Err: errors.New("device released")}
	case elementCount == 0:
		return BufferHandle{}, &ResourceError{Resource: resource, Err: errors.New("zero element count")}
	case layout.Stride == 0 || layout.Stride%4 != 0:
		return BufferHandle{}, &ResourceError{Resource: resource, Err: fmt.Errorf("stride %d is not a non-zero multiple of 4", layout.Stride)}
	case size > d.limits.MaxStorageBufferBindingSize:
		return BufferHandle{}, &ResourceError{Resource: resource, Err: fmt.Errorf("%d bytes exceed the %d byte binding limit", size, d.limits.MaxStorageBufferBindingSize)}
	}

	h := newBufferHandle()
	buf, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: d.label + " " + layout.Name + " " + h.String()[:8],
		Size:  size,
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst | wgpu.BufferUsageCopySrc,
	})
	if err != nil {
		return BufferHandle{}, &ResourceError{Resource: resource, Err: err}
	}
	d.buffers[h] = &wgpuBuffer{buf: buf, size: size, layout: layout, access: access}
	d.stats.BufferBytes += size
	common.Logger().Debug("buffer created", "device", d.label, "name", layout.Name, "elements", elementCount, "bytes", size, "access", access.String())
	return h, nil
}

func (d *wgpuDevice) DestroyBuffer(h BufferHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()

	b, ok := d.buffers[h]
	if !ok {
		return
	}
	// recorded passes may still reference the buffer
	if err := d.drainLocked(); err != nil {
		common.Logger().Warn("flush before buffer destroy failed", "device", d.label, "error", err)
	}
	for slot, bound := range d.bindings {
		if bound.handle == h {
			delete(d.bindings, slot)
		}
	}
	for _, k := range d.kernels {
		for _, buf := range k.provider.Buffers() {
			if buf == b.buf {
				k.provider.Invalidate()
				break
			}
		}
	}
	d.stats.BufferBytes -= b.size
	b.buf.Release()
	delete(d.buffers, h)
}

func (d *wgpuDevice) SetUniform(name string, v [4]float32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.uniforms[name] = v
}

func (d *wgpuDevice) SetUniformMat4(name string, m mgl32.Mat4) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.mats[name] = m
}

func (d *wgpuDevice) BindBuffer(slot uint32, h BufferHandle, access Access) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !h.Valid() {
		delete(d.bindings, slot)
		return
	}
	d.bindings[slot] = softwareBinding{handle: h, access: access}
}

func (d *wgpuDevice) CreateKernel(src KernelSource) (KernelProgram, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	resource := "kernel " + src.Name
	if src.WGSL == "" {
		return nil, &ResourceError{Resource: resource, Err: errors.New("wgpu device requires WGSL source")}
	}
	base, err := prepareKernel(src, d.validate)
	if err != nil {
		return nil, &ResourceError{Resource: resource, Err: err}
	}
	s := base.shader

	module, err := d.device.CreateShaderModule(s.Module())
	if err != nil {
		return nil, &ResourceError{Resource: resource + " module", Err: err}
	}
	defer module.Release()

	descriptors := s.BindGroupLayoutDescriptors()
	if len(descriptors) > 1 {
		return nil, &ResourceError{Resource: resource, Err: errors.New("kernels must declare all bindings in group 0")}
	}
	desc := descriptors[0]
	bgl, err := d.device.CreateBindGroupLayout(&desc)
	if err != nil {
		return nil, &ResourceError{Resource: resource, Err: fmt.Errorf("failed to create bind group layout for group %d: %w", 0, err)}
	}

	layout, err := d.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            src.Name,
		BindGroupLayouts: []*wgpu.BindGroupLayout{bgl},
	})
	if err != nil {
		bgl.Release()
		return nil, &ResourceError{Resource: resource + " pipeline layout", Err: err}
	}

	created, err := d.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  src.Name + " Compute Pipeline",
		Layout: layout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     module,
			EntryPoint: s.EntryPoint(),
		},
	})
	if err != nil {
		layout.Release()
		bgl.Release()
		return nil, &ResourceError{Resource: resource + " pipeline", Err: err}
	}

	k := &wgpuKernel{
		kernelBase: base,
		pipeline:   pipeline.NewPipeline(src.Name, s, pipeline.WithBindGroupLayouts([]*wgpu.BindGroupLayout{bgl})),
		provider:   bind_group_provider.NewBindGroupProvider(src.Name, bind_group_provider.WithBindGroupLayout(bgl)),
	}
	k.pipeline.SetComputePipeline(created, layout, []*wgpu.BindGroupLayout{bgl})

	if src.UniformBlock != "" {
		ul, ok := s.StructLayout(src.UniformBlock)
		if !ok {
			k.pipeline.Release()
			return nil, &ResourceError{Resource: resource, Err: fmt.Errorf("uniform block %s not declared", src.UniformBlock)}
		}
		ub, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: src.Name + " Uniforms",
			Size:  ul.Size,
			Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			k.pipeline.Release()
			return nil, &ResourceError{Resource: resource + " uniform buffer", Err: err}
		}
		k.uniformLayout = ul
		k.uniformBuffer = ub
	}

	d.kernels = append(d.kernels, k)
	common.Logger().Debug("kernel created", "device", d.label, "kernel", src.Name, "workgroup", base.workgroupSize)
	return k, nil
}

// packUniforms lays the current uniform values out in the kernel's uniform block.
// vec4<f32> members take SetUniform values and mat4x4<f32> members take SetUniformMat4 values.
func (d *wgpuDevice) packUniforms(k *wgpuKernel) []byte {
	out := make([]byte, k.uniformLayout.Size)
	put := func(offset uint64, vals []float32) {
		for i, v := range vals {
			binary.LittleEndian.PutUint32(out[offset+uint64(i)*4:], math.Float32bits(v))
		}
	}
	for _, f := range k.uniformLayout.Fields {
		switch f.Size {
		case 64:
			m := d.mats[f.Name]
			put(f.Offset, m[:])
		case 16:
			v := d.uniforms[f.Name]
			put(f.Offset, v[:])
		}
	}
	return out
}

func (d *wgpuDevice) DispatchCompute(kernel KernelProgram, groupsX, groupsY, groupsZ uint32) error {
	k, ok := kernel.(*wgpuKernel)
	if !ok {
		return fmt.Errorf("kernel %s was not created by the wgpu device", kernel.Name())
	}
	if groupsX == 0 || groupsY == 0 || groupsZ == 0 {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.released {
		return errors.New("device released")
	}
	if limit := d.limits.MaxComputeWorkgroupsPerDimension; groupsX > limit || groupsY > limit || groupsZ > limit {
		return fmt.Errorf("kernel %s: dispatch %dx%dx%d exceeds %d groups per dimension", k.name, groupsX, groupsY, groupsZ, limit)
	}

	entries := make(map[int]*wgpu.Buffer, len(k.bindings)+1)
	for _, kb := range k.bindings {
		b, ok := d.bindings[kb.Slot]
		if !ok {
			return fmt.Errorf("kernel %s: %w: slot %d is not bound", k.name, ErrAccessViolation, kb.Slot)
		}
		buf, ok := d.buffers[b.handle]
		if !ok {
			return fmt.Errorf("kernel %s: slot %d: %w", k.name, kb.Slot, ErrInvalidHandle)
		}
		if !buf.access.Covers(b.access) || !b.access.Covers(kb.Access) {
			return fmt.Errorf("kernel %s: %w: slot %d (%s) bound %s, created %s, kernel needs %s",
				k.name, ErrAccessViolation, kb.Slot, buf.layout.Name, b.access, buf.access, kb.Access)
		}
		entries[int(kb.Slot)] = buf.buf
	}

	if k.uniformBuffer != nil {
		packed := d.packUniforms(k)
		if string(packed) != string(k.lastUniforms) {
			// recorded passes of this kernel must see the values they were recorded with
			if err := d.flushLocked(); err != nil {
				return err
			}
			d.queue.WriteBuffer(k.uniformBuffer, 0, packed)
			k.lastUniforms = packed
		}
		entries[int(UniformSlot)] = k.uniformBuffer
	}

	if !k.provider.Matches(entries) {
		bgEntries := make([]wgpu.BindGroupEntry, 0, len(entries))
		for _, b := range k.pipeline.Shader().Bindings() {
			buf, ok := entries[int(b.Binding)]
			if !ok {
				return fmt.Errorf("kernel %s: %w: slot %d (%s) is not bound", k.name, ErrAccessViolation, b.Binding, b.Name)
			}
			bgEntries = append(bgEntries, wgpu.BindGroupEntry{
				Binding: b.Binding,
				Buffer:  buf,
				Offset:  0,
				Size:    wgpu.WholeSize,
			})
		}
		bg, err := d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:   k.provider.Label() + " Bind Group",
			Layout:  k.provider.BindGroupLayout(),
			Entries: bgEntries,
		})
		if err != nil {
			return &ResourceError{Resource: "bind group " + k.name, Err: err}
		}
		// the previous bind group may be referenced by recorded passes
		if err := d.flushLocked(); err != nil {
			return err
		}
		k.provider.SetBindGroup(bg, entries)
	}

	if d.encoder == nil {
		encoder, err := d.device.CreateCommandEncoder(nil)
		if err != nil {
			return &ResourceError{Resource: "command encoder", Err: err}
		}
		d.encoder = encoder
	}

	pass := d.encoder.BeginComputePass(nil)
	pass.SetPipeline(k.pipeline.ComputePipeline())
	pass.SetBindGroup(0, k.provider.BindGroup(), nil)
	pass.DispatchWorkgroups(groupsX, groupsY, groupsZ)
	pass.End()

	d.pending++
	d.stats.Dispatches++
	common.Logger().Debug("dispatch", "device", d.label, "kernel", k.name, "groups", [3]uint32{groupsX, groupsY, groupsZ})
	return nil
}

// flushLocked submits the recorded encoder without waiting for the GPU. Queue order keeps
// later writes and submissions behind it. Callers hold d.mu.
func (d *wgpuDevice) flushLocked() error {
	if d.encoder == nil {
		return nil
	}
	encoder := d.encoder
	d.encoder = nil
	d.pending = 0

	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		encoder.Release()
		return fmt.Errorf("failed to finish compute encoder: %w", err)
	}
	d.queue.Submit(commandBuffer)
	d.device.Poll(false, nil)
	d.inflight = true

	commandBuffer.Release()
	encoder.Release()
	return nil
}

// drainLocked submits the recorded encoder and blocks until the queue is idle. The wait
// is added to DeviceTime. Only Flush, Release and buffer destruction drain. Callers hold d.mu.
func (d *wgpuDevice) drainLocked() error {
	if err := d.flushLocked(); err != nil {
		return err
	}
	if !d.inflight {
		return nil
	}
	start := time.Now()
	d.device.Poll(true, nil)
	d.stats.DeviceTime += time.Since(start)
	d.inflight = false
	return nil
}

func (d *wgpuDevice) WriteBuffer(h BufferHandle, offset uint64, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	b, ok := d.buffers[h]
	if !ok {
		return ErrInvalidHandle
	}
	if offset%4 != 0 || len(data)%4 != 0 {
		return fmt.Errorf("write to %s: offset %d and size %d must be multiples of 4", b.layout.Name, offset, len(data))
	}
	if offset+uint64(len(data)) > b.size {
		return fmt.Errorf("write to %s: %w: %d bytes at %d exceed %d", b.layout.Name, ErrOutOfBounds, len(data), offset, b.size)
	}
	// queue writes land before any later submit; recorded passes must run first
	if err := d.flushLocked(); err != nil {
		return err
	}
	d.queue.WriteBuffer(b.buf, offset, data)
	return nil
}

func (d *wgpuDevice) ReadBuffer(h BufferHandle, offset, size uint64) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	b, ok := d.buffers[h]
	if !ok {
		return nil, ErrInvalidHandle
	}
	if offset%4 != 0 || size%4 != 0 {
		return nil, fmt.Errorf("read from %s: offset %d and size %d must be multiples of 4", b.layout.Name, offset, size)
	}
	if offset+size > b.size {
		return nil, fmt.Errorf("read from %s: %w: %d bytes at %d exceed %d", b.layout.Name, ErrOutOfBounds, size, offset, b.size)
	}
	if size == 0 {
		return []byte{}, nil
	}
	if err := d.flushLocked(); err != nil {
		return nil, err
	}

	staging, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: b.layout.Name + " Readback",
		Size:  size,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, &ResourceError{Resource: "readback buffer", Err: err}
	}
	defer staging.Release()

	encoder, err := d.device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, &ResourceError{Resource: "command encoder", Err: err}
	}
	encoder.CopyBufferToBuffer(b.buf, offset, staging, 0, size)
	commandBuffer, err := encoder.Finish(nil)
	encoder.Release()
	if err != nil {
		return nil, fmt.Errorf("failed to finish readback encoder: %w", err)
	}
	d.queue.Submit(commandBuffer)
	commandBuffer.Release()

	var status wgpu.BufferMapAsyncStatus
	done := false
	staging.MapAsync(wgpu.MapModeRead, 0, size, func(s wgpu.BufferMapAsyncStatus) {
		status = s
		done = true
	})
	for !done {
		d.device.Poll(true, nil)
	}
	d.inflight = false
	if status != wgpu.BufferMapAsyncStatusSuccess {
		return nil, fmt.Errorf("failed to map %s for reading: status %v", b.layout.Name, status)
	}
	out := make([]byte, size)
	copy(out, staging.GetMappedRange(0, uint(size)))
	staging.Unmap()
	return out, nil
}

func (d *wgpuDevice) Flush() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.drainLocked()
}

func (d *wgpuDevice) Capabilities() Capabilities {
	return Capabilities{
		Compute:                    true,
		Index32:                    true,
		MultipleRenderTargets:      d.limits.MaxColorAttachments >= 4,
		Blit:                       true,
		MaxWorkgroupsPerDimension:  d.limits.MaxComputeWorkgroupsPerDimension,
		MaxInvocationsPerWorkgroup: d.limits.MaxComputeInvocationsPerWorkgroup,
	}
}

func (d *wgpuDevice) Backend() BackendType {
	return BackendTypeWGPU
}

func (d *wgpuDevice) Stats() DeviceStats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

func (d *wgpuDevice) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.released {
		return
	}
	if err := d.drainLocked(); err != nil {
		common.Logger().Warn("flush on release failed", "device", d.label, "error", err)
	}
	d.released = true

	for _, k := range d.kernels {
		k.provider.Release()
		k.pipeline.Release()
		if k.uniformBuffer != nil {
			k.uniformBuffer.Release()
		}
	}
	d.kernels = nil
	for h, b := range d.buffers {
		b.buf.Release()
		delete(d.buffers, h)
	}
	clear(d.bindings)
	d.stats.BufferBytes = 0

	d.queue.Release()
	d.device.Release()
	d.adapter.Release()
	d.instance.Release()
}

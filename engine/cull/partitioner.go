package cull

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-cluster/common"
	"github.com/Carmen-Shannon/oxy-cluster/engine/camera"
	"github.com/Carmen-Shannon/oxy-cluster/engine/cull/kernels"
	"github.com/Carmen-Shannon/oxy-cluster/engine/renderer"
	"github.com/go-gl/mathgl/mgl32"
)

// DefaultRebuildEpsilon is the absolute per-component projection change below which
// cell bounds are reused.
const DefaultRebuildEpsilon float32 = 1e-5

// ErrNotConfigured is returned by operations that need a configured grid.
var ErrNotConfigured = errors.New("partitioner not configured")

// State is the per-frame phase of the culling pipeline.
type State int

const (
	// StateIdle means no cell bounds exist for the current configuration.
	StateIdle State = iota
	// StateBuilding means cell bounds were rebuilt this frame and culling has not run yet.
	StateBuilding
	// StateCulling means a cull is being recorded.
	StateCulling
	// StateReady means the light grid holds this frame's result.
	StateReady
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBuilding:
		return "building"
	case StateCulling:
		return "culling"
	case StateReady:
		return "ready"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Buffers are the device buffers a configured partitioner owns.
type Buffers struct {
	Cells  renderer.BufferHandle
	Index  renderer.BufferHandle
	Grid   renderer.BufferHandle
	Cursor renderer.BufferHandle
}

// Partitioner splits the view frustum into cells and keeps their view-space bounds
// current. It owns the cell-bounds buffer and allocates the light-index, light-grid
// and cursor storage the culler writes.
//
// A Partitioner is driven by the single frame goroutine and is not safe for
// concurrent use.
type Partitioner interface {
	// Configure derives the grid for a viewport and reallocates buffers if any derived
	// parameter changed. A configuration above the index ceiling fails with a
	// *ConfigurationError before anything is allocated.
	//
	// Parameters:
	//   - viewportWidth: viewport width in pixels
	//   - viewportHeight: viewport height in pixels
	//   - cfg: the grid description
	//
	// Returns:
	//   - error: a *ConfigurationError, or a device error from allocation
	Configure(viewportWidth, viewportHeight uint32, cfg GridConfig) error

	// BuffersChanged reports whether the last successful Configure reallocated.
	BuffersChanged() bool

	// RebuildIfNeeded dispatches the cell-building kernel once if the camera projection
	// moved by at least the rebuild epsilon in any component since the last build, or
	// if the viewport changed. The projection then becomes the new baseline.
	//
	// Parameters:
	//   - cam: the camera
	//   - viewportWidth: viewport width in pixels
	//   - viewportHeight: viewport height in pixels
	//
	// Returns:
	//   - bool: true if a rebuild was dispatched
	//   - error: configuration or dispatch failure
	RebuildIfNeeded(cam camera.Camera, viewportWidth, viewportHeight uint32) (bool, error)

	// BindForBuilding binds bounds, index, grid and cursor read-write.
	BindForBuilding()

	// BindForCulling binds index, grid and cursor read-write and bounds read-only.
	BindForCulling()

	// BindForShading binds the grid and index read-only and unbinds everything else
	// the partitioner owns.
	BindForShading()

	// Grid returns the current derived grid.
	Grid() Grid

	// Config returns the last configuration accepted by Configure.
	Config() GridConfig

	// Threads returns the workgroup shape used for building and culling.
	Threads() [3]uint32

	// Buffers returns the owned buffer handles; zero handles when unconfigured.
	Buffers() Buffers

	// Uniforms returns the shader-facing vec4 uniforms for the grid and camera.
	//
	// Parameters:
	//   - cam: the camera
	//
	// Returns:
	//   - map[string][4]float32: uniform name to value
	Uniforms(cam camera.Camera) map[string][4]float32

	// UploadUniforms sets the vec4 uniforms plus the inverse projection and view
	// matrices on the device.
	UploadUniforms(cam camera.Camera)

	// Invalidate forces the next RebuildIfNeeded to dispatch.
	Invalidate()

	// State returns the current pipeline phase.
	State() State

	// Teardown releases all buffers. Safe to call more than once.
	Teardown()

	setState(s State)
}

type partitioner struct {
	device  renderer.Device
	epsilon float32
	kernels *kernelCache

	cfg            GridConfig
	grid           Grid
	threads        [3]uint32
	build          renderer.KernelProgram
	buffers        Buffers
	configured     bool
	buffersChanged bool

	baseline    mgl32.Mat4
	hasBaseline bool
	state       State
}

var _ Partitioner = &partitioner{}

// NewPartitioner creates an unconfigured Partitioner on a device.
//
// Parameters:
//   - device: the device buffers and kernels live on
//   - opts: variadic list of PartitionerBuilderOption functions
//
// Returns:
//   - Partitioner: the partitioner
func NewPartitioner(device renderer.Device, opts ...PartitionerBuilderOption) Partitioner {
	p := &partitioner{
		device:  device,
		epsilon: DefaultRebuildEpsilon,
		kernels: newKernelCache(device),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *partitioner) Configure(viewportWidth, viewportHeight uint32, cfg GridConfig) error {
	g, err := DeriveGrid(viewportWidth, viewportHeight, cfg)
	if err != nil {
		return err
	}
	threads := ThreadsPerGroup(cfg.Kind, p.device.Capabilities())
	if p.configured && g == p.grid && threads == p.threads {
		p.cfg = cfg
		p.buffersChanged = false
		return nil
	}

	build, err := p.kernels.get(kernels.BuildCells(threads))
	if err != nil {
		return fmt.Errorf("failed to create cell building kernel: %w", err)
	}

	p.releaseBuffers()
	var buffers Buffers
	allocs := []struct {
		dst    *renderer.BufferHandle
		count  uint64
		layout renderer.ElementLayout
	}{
		{&buffers.Cells, g.CellCount(), kernels.CellBoundsLayout},
		{&buffers.Index, g.IndexCapacity(), kernels.LightIndexLayout},
		{&buffers.Grid, g.CellCount(), kernels.LightGridLayout},
		{&buffers.Cursor, 1, kernels.CursorLayout},
	}
	for _, a := range allocs {
		h, err := p.device.CreateComputeBuffer(a.count, a.layout, renderer.AccessReadWrite)
		if err != nil {
			// the previous buffers are gone; the next Configure must allocate again
			p.buffers = buffers
			p.releaseBuffers()
			p.configured = false
			p.grid = Grid{}
			p.threads = [3]uint32{}
			p.hasBaseline = false
			p.state = StateIdle
			return err
		}
		*a.dst = h
	}

	p.cfg = cfg
	p.grid = g
	p.threads = threads
	p.build = build
	p.buffers = buffers
	p.configured = true
	p.buffersChanged = true
	p.hasBaseline = false
	p.state = StateIdle
	common.Logger().Info("cell grid configured",
		"kind", g.Kind,
		"counts", g.Counts,
		"cell_px", g.CellSize,
		"max_lights_per_cell", g.MaxLightsPerCell,
		"index_entries", g.IndexCapacity(),
	)
	return nil
}

func (p *partitioner) BuffersChanged() bool {
	return p.buffersChanged
}

func (p *partitioner) RebuildIfNeeded(cam camera.Camera, viewportWidth, viewportHeight uint32) (bool, error) {
	if !p.configured {
		return false, ErrNotConfigured
	}
	if p.grid.Viewport != [2]uint32{viewportWidth, viewportHeight} {
		if err := p.Configure(viewportWidth, viewportHeight, p.cfg); err != nil {
			return false, err
		}
	}

	proj := cam.ProjectionMatrix()
	if p.hasBaseline && !common.MatricesDiffer(proj, p.baseline, p.epsilon) {
		return false, nil
	}

	p.BindForBuilding()
	p.UploadUniforms(cam)
	groups := p.grid.Groups(p.threads)
	if err := p.device.DispatchCompute(p.build, groups[0], groups[1], groups[2]); err != nil {
		return false, fmt.Errorf("failed to build cell bounds: %w", err)
	}
	p.baseline = proj
	p.hasBaseline = true
	p.state = StateBuilding
	common.Logger().Debug("cell bounds rebuilt", "groups", groups)
	return true, nil
}

func (p *partitioner) BindForBuilding() {
	if !p.configured {
		return
	}
	p.device.BindBuffer(kernels.SlotCells, p.buffers.Cells, renderer.AccessReadWrite)
	p.device.BindBuffer(kernels.SlotIndices, p.buffers.Index, renderer.AccessReadWrite)
	p.device.BindBuffer(kernels.SlotGrid, p.buffers.Grid, renderer.AccessReadWrite)
	p.device.BindBuffer(kernels.SlotCursor, p.buffers.Cursor, renderer.AccessReadWrite)
}

func (p *partitioner) BindForCulling() {
	if !p.configured {
		return
	}
	p.device.BindBuffer(kernels.SlotCells, p.buffers.Cells, renderer.AccessRead)
	p.device.BindBuffer(kernels.SlotIndices, p.buffers.Index, renderer.AccessReadWrite)
	p.device.BindBuffer(kernels.SlotGrid, p.buffers.Grid, renderer.AccessReadWrite)
	p.device.BindBuffer(kernels.SlotCursor, p.buffers.Cursor, renderer.AccessReadWrite)
}

func (p *partitioner) BindForShading() {
	if !p.configured {
		return
	}
	p.device.BindBuffer(kernels.SlotCells, renderer.BufferHandle{}, renderer.AccessRead)
	p.device.BindBuffer(kernels.SlotCursor, renderer.BufferHandle{}, renderer.AccessRead)
	p.device.BindBuffer(kernels.SlotIndices, p.buffers.Index, renderer.AccessRead)
	p.device.BindBuffer(kernels.SlotGrid, p.buffers.Grid, renderer.AccessRead)
}

func (p *partitioner) Grid() Grid {
	return p.grid
}

func (p *partitioner) Config() GridConfig {
	return p.cfg
}

func (p *partitioner) Threads() [3]uint32 {
	return p.threads
}

func (p *partitioner) Buffers() Buffers {
	return p.buffers
}

func (p *partitioner) Uniforms(cam camera.Camera) map[string][4]float32 {
	return p.grid.Params(cam.InverseProjectionMatrix(), cam.ProjectionParams()).Uniforms()
}

func (p *partitioner) UploadUniforms(cam camera.Camera) {
	for name, v := range p.Uniforms(cam) {
		p.device.SetUniform(name, v)
	}
	p.device.SetUniformMat4(kernels.UniformInvProj, cam.InverseProjectionMatrix())
	p.device.SetUniformMat4(kernels.UniformView, cam.ViewMatrix())
}

func (p *partitioner) Invalidate() {
	p.hasBaseline = false
}

func (p *partitioner) State() State {
	return p.state
}

func (p *partitioner) setState(s State) {
	p.state = s
}

func (p *partitioner) Teardown() {
	p.releaseBuffers()
	p.configured = false
	p.hasBaseline = false
	p.state = StateIdle
}

// releaseBuffers unbinds and destroys every owned buffer.
func (p *partitioner) releaseBuffers() {
	slots := []struct {
		slot uint32
		h    renderer.BufferHandle
	}{
		{kernels.SlotCells, p.buffers.Cells},
		{kernels.SlotIndices, p.buffers.Index},
		{kernels.SlotGrid, p.buffers.Grid},
		{kernels.SlotCursor, p.buffers.Cursor},
	}
	for _, s := range slots {
		if !s.h.Valid() {
			continue
		}
		p.device.BindBuffer(s.slot, renderer.BufferHandle{}, renderer.AccessRead)
		p.device.DestroyBuffer(s.h)
	}
	p.buffers = Buffers{}
}

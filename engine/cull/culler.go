package cull

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-cluster/common"
	"github.com/Carmen-Shannon/oxy-cluster/engine/camera"
	"github.com/Carmen-Shannon/oxy-cluster/engine/cull/kernels"
	"github.com/Carmen-Shannon/oxy-cluster/engine/light"
	"github.com/Carmen-Shannon/oxy-cluster/engine/renderer"
)

// DefaultInitialLightCapacity is the number of lights the light buffer holds before it
// first grows.
const DefaultInitialLightCapacity uint64 = 64

// Strategy selects how culling threads map to cells.
type Strategy int

const (
	// SingleThreadPerCell tests every light against one cell per thread and packs the
	// results contiguously through an atomic cursor.
	SingleThreadPerCell Strategy = iota

	// MultipleThreadPerCell runs one workgroup per cell whose threads stride over the
	// lights and share a cell-local counter. Each cell owns maxLightsPerCell index slots.
	MultipleThreadPerCell
)

func (s Strategy) String() string {
	switch s {
	case SingleThreadPerCell:
		return "single"
	case MultipleThreadPerCell:
		return "multiple"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// ParseStrategy maps "single" or "multiple" to a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "single":
		return SingleThreadPerCell, nil
	case "multiple":
		return MultipleThreadPerCell, nil
	}
	return 0, fmt.Errorf("unknown cull strategy %q", s)
}

// Culler assigns lights to the cells of a Partitioner every frame. After Cull each cell's
// light-grid entry names the slice of the light-index buffer holding the lights whose
// sphere of influence intersects the cell.
type Culler interface {
	// Cull uploads the enabled lights and records the culling dispatches. The partitioner
	// must have built cell bounds since it was last configured.
	//
	// Parameters:
	//   - lights: the scene lights; disabled lights are skipped and the rest are indexed
	//     in order
	//   - cam: the camera whose view matrix moves lights into view space
	//
	// Returns:
	//   - error: ErrBoundsNotBuilt, or a device error
	Cull(lights []light.Light, cam camera.Camera) error

	// Strategy returns the active culling strategy.
	Strategy() Strategy

	// SetStrategy switches the culling strategy for subsequent frames.
	SetStrategy(s Strategy)

	// LightCount returns the number of lights uploaded by the last Cull.
	LightCount() uint32

	// LightBuffer returns the light storage buffer.
	LightBuffer() renderer.BufferHandle

	// BindForShading binds the light buffer, light grid and light index read-only.
	BindForShading()

	// ReadLightGrid reads back the light-grid entries of every cell.
	ReadLightGrid() ([]kernels.GPULightGridEntry, error)

	// ReadLightIndices reads back the whole light-index buffer.
	ReadLightIndices() ([]uint32, error)

	// ReadCellBounds reads back the view-space bounds of every cell.
	ReadCellBounds() ([]kernels.GPUCellBounds, error)

	// CellLights returns the light indices assigned to one cell.
	//
	// Parameters:
	//   - cell: the cell coordinate
	//
	// Returns:
	//   - []uint32: indices into the enabled lights passed to the last Cull
	//   - error: if the cell is outside the grid or readback fails
	CellLights(cell [3]uint32) ([]uint32, error)

	// Heatmap reads back per-cell light counts.
	Heatmap() (Heatmap, error)

	// Teardown releases the light buffer. Safe to call more than once.
	Teardown()
}

type culler struct {
	device      renderer.Device
	partitioner Partitioner
	strategy    Strategy
	kernels     *kernelCache

	initialCapacity uint64
	lightCapacity   uint64
	lightBuf        renderer.BufferHandle
	lightCount      uint32
}

var _ Culler = &culler{}

// NewCuller creates a Culler over a partitioner. Both must use the same device.
//
// Parameters:
//   - device: the device dispatches are recorded on
//   - partitioner: the partitioner that owns the cell buffers
//   - opts: variadic list of CullerBuilderOption functions
//
// Returns:
//   - Culler: the culler
func NewCuller(device renderer.Device, partitioner Partitioner, opts ...CullerBuilderOption) Culler {
	c := &culler{
		device:          device,
		partitioner:     partitioner,
		strategy:        SingleThreadPerCell,
		kernels:         newKernelCache(device),
		initialCapacity: DefaultInitialLightCapacity,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *culler) Cull(lights []light.Light, cam camera.Camera) error {
	p := c.partitioner
	prev := p.State()
	if prev == StateIdle {
		return ErrBoundsNotBuilt
	}

	data, count := light.MarshalLightBuffer(lights)
	if err := c.ensureLightCapacity(uint64(count)); err != nil {
		return err
	}
	if err := c.device.WriteBuffer(c.lightBuf, 0, data); err != nil {
		return fmt.Errorf("failed to upload lights: %w", err)
	}

	p.setState(StateCulling)
	p.UploadUniforms(cam)
	p.BindForCulling()
	c.device.BindBuffer(kernels.SlotLights, c.lightBuf, renderer.AccessRead)

	if err := c.dispatch(); err != nil {
		p.setState(prev)
		common.Logger().Warn("light culling failed", "strategy", c.strategy, "error", err)
		return err
	}
	c.lightCount = count
	p.setState(StateReady)
	return nil
}

func (c *culler) dispatch() error {
	threads := c.partitioner.Threads()
	grid := c.partitioner.Grid()

	switch c.strategy {
	case SingleThreadPerCell:
		reset, err := c.kernels.get(kernels.ResetCursor())
		if err != nil {
			return err
		}
		single, err := c.kernels.get(kernels.CullSingle(threads))
		if err != nil {
			return err
		}
		if err := c.device.DispatchCompute(reset, 1, 1, 1); err != nil {
			return err
		}
		groups := grid.Groups(threads)
		return c.device.DispatchCompute(single, groups[0], groups[1], groups[2])

	case MultipleThreadPerCell:
		multi, err := c.kernels.get(kernels.CullMultiple(threads))
		if err != nil {
			return err
		}
		return c.device.DispatchCompute(multi, grid.Counts[0], grid.Counts[1], grid.Counts[2])
	}
	return fmt.Errorf("unknown cull strategy %v", c.strategy)
}

// ensureLightCapacity grows the light buffer by doubling until it holds count lights.
func (c *culler) ensureLightCapacity(count uint64) error {
	need := max(count, 1)
	if c.lightBuf.Valid() && need <= c.lightCapacity {
		return nil
	}
	capacity := max(c.lightCapacity, c.initialCapacity, 1)
	for capacity < need {
		capacity *= 2
	}
	h, err := c.device.CreateComputeBuffer(kernels.LightBufferElements(capacity), kernels.LightBufferLayout, renderer.AccessRead)
	if err != nil {
		return err
	}
	if c.lightBuf.Valid() {
		c.device.DestroyBuffer(c.lightBuf)
	}
	common.Logger().Debug("light buffer resized", "from", c.lightCapacity, "to", capacity)
	c.lightBuf = h
	c.lightCapacity = capacity
	return nil
}

func (c *culler) Strategy() Strategy {
	return c.strategy
}

func (c *culler) SetStrategy(s Strategy) {
	c.strategy = s
}

func (c *culler) LightCount() uint32 {
	return c.lightCount
}

func (c *culler) LightBuffer() renderer.BufferHandle {
	return c.lightBuf
}

func (c *culler) BindForShading() {
	c.partitioner.BindForShading()
	if c.lightBuf.Valid() {
		c.device.BindBuffer(kernels.SlotLights, c.lightBuf, renderer.AccessRead)
	}
}

func (c *culler) ReadLightGrid() ([]kernels.GPULightGridEntry, error) {
	b := c.partitioner.Buffers()
	if !b.Grid.Valid() {
		return nil, ErrNotConfigured
	}
	raw, err := c.device.ReadBuffer(b.Grid, 0, c.partitioner.Grid().CellCount()*uint64(kernels.LightGridLayout.Stride))
	if err != nil {
		return nil, err
	}
	return kernels.DecodeLightGrid(raw)
}

func (c *culler) ReadLightIndices() ([]uint32, error) {
	b := c.partitioner.Buffers()
	if !b.Index.Valid() {
		return nil, ErrNotConfigured
	}
	raw, err := c.device.ReadBuffer(b.Index, 0, c.partitioner.Grid().IndexCapacity()*uint64(kernels.LightIndexLayout.Stride))
	if err != nil {
		return nil, err
	}
	return kernels.DecodeLightIndices(raw)
}

func (c *culler) ReadCellBounds() ([]kernels.GPUCellBounds, error) {
	b := c.partitioner.Buffers()
	if !b.Cells.Valid() {
		return nil, ErrNotConfigured
	}
	raw, err := c.device.ReadBuffer(b.Cells, 0, c.partitioner.Grid().CellCount()*uint64(kernels.CellBoundsLayout.Stride))
	if err != nil {
		return nil, err
	}
	return kernels.DecodeCellBounds(raw)
}

func (c *culler) CellLights(cell [3]uint32) ([]uint32, error) {
	g := c.partitioner.Grid()
	if cell[0] >= g.Counts[0] || cell[1] >= g.Counts[1] || cell[2] >= g.Counts[2] {
		return nil, fmt.Errorf("cell %v outside %v grid", cell, g.Counts)
	}
	b := c.partitioner.Buffers()
	if !b.Grid.Valid() {
		return nil, ErrNotConfigured
	}
	idx := uint64(g.Index(cell))
	stride := uint64(kernels.LightGridLayout.Stride)
	raw, err := c.device.ReadBuffer(b.Grid, idx*stride, stride)
	if err != nil {
		return nil, err
	}
	entries, err := kernels.DecodeLightGrid(raw)
	if err != nil {
		return nil, err
	}
	e := entries[0]
	if e.Count == 0 {
		return nil, nil
	}
	raw, err = c.device.ReadBuffer(b.Index, uint64(e.Offset)*4, uint64(e.Count)*4)
	if err != nil {
		return nil, err
	}
	return kernels.DecodeLightIndices(raw)
}

func (c *culler) Heatmap() (Heatmap, error) {
	entries, err := c.ReadLightGrid()
	if err != nil {
		return Heatmap{}, err
	}
	h := Heatmap{Counts: c.partitioner.Grid().Counts, Values: make([]uint32, len(entries))}
	for i, e := range entries {
		h.Values[i] = e.Count
	}
	return h, nil
}

func (c *culler) Teardown() {
	if c.lightBuf.Valid() {
		c.device.BindBuffer(kernels.SlotLights, renderer.BufferHandle{}, renderer.AccessRead)
		c.device.DestroyBuffer(c.lightBuf)
	}
	c.lightBuf = renderer.BufferHandle{}
	c.lightCapacity = 0
	c.lightCount = 0
}

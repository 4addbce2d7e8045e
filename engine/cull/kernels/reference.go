package kernels

import (
	"github.com/Carmen-Shannon/oxy-cluster/common"
	"github.com/Carmen-Shannon/oxy-cluster/engine/renderer"
	"github.com/go-gl/mathgl/mgl32"
)

// Word offsets inside the bound buffers.
const (
	cellWords      = 8
	gridWords      = 4
	lightWords     = 8
	lightHeaderLen = 4
)

func buildCellsReference(wg *renderer.Workgroup) {
	p := paramsFromWorkgroup(wg)
	for t := range wg.Invocations() {
		cell := wg.GlobalID(wg.LocalID(t))
		if !p.Contains(cell) {
			continue
		}
		b := CellBounds(p, cell)
		base := uint64(p.Index(cell)) * cellWords
		wg.StoreVec4(SlotCells, base, b.Min.Vec4(0))
		wg.StoreVec4(SlotCells, base+4, b.Max.Vec4(0))
	}
}

func resetCursorReference(wg *renderer.Workgroup) {
	wg.AtomicStore(SlotCursor, 0, 0)
}

// viewLight is a light sphere moved into view space.
type viewLight struct {
	center mgl32.Vec3
	radius float32
}

func loadViewLights(wg *renderer.Workgroup) []viewLight {
	view := wg.UniformMat4(UniformView)
	n := wg.Load(SlotLights, 0)
	lights := make([]viewLight, 0, n)
	for i := range uint64(n) {
		base := lightHeaderLen + i*lightWords
		pos := wg.LoadVec4(SlotLights, base)
		if wg.Failed() {
			return nil
		}
		lights = append(lights, viewLight{
			center: view.Mul4x1(mgl32.Vec4{pos.X(), pos.Y(), pos.Z(), 1}).Vec3(),
			radius: pos.W(),
		})
	}
	return lights
}

func loadCellBounds(wg *renderer.Workgroup, idx uint32) common.AABB {
	base := uint64(idx) * cellWords
	return common.AABB{
		Min: wg.LoadVec4(SlotCells, base).Vec3(),
		Max: wg.LoadVec4(SlotCells, base+4).Vec3(),
	}
}

func storeGridEntry(wg *renderer.Workgroup, idx, offset, count uint32) {
	base := uint64(idx) * gridWords
	wg.Store(SlotGrid, base, offset)
	wg.Store(SlotGrid, base+1, count)
	wg.Store(SlotGrid, base+2, 0)
	wg.Store(SlotGrid, base+3, 0)
}

func cullSingleReference(wg *renderer.Workgroup) {
	p := paramsFromWorkgroup(wg)
	lights := loadViewLights(wg)
	capacity := wg.Len(SlotIndices)
	list := make([]uint32, 0, min(uint64(p.MaxLights), uint64(len(lights))))

	for t := range wg.Invocations() {
		cell := wg.GlobalID(wg.LocalID(t))
		if !p.Contains(cell) {
			continue
		}
		idx := p.Index(cell)
		bounds := loadCellBounds(wg, idx)

		list = list[:0]
		for i, l := range lights {
			if uint32(len(list)) >= p.MaxLights {
				break
			}
			if common.SphereIntersectsAABB(l.center, l.radius, bounds) {
				list = append(list, uint32(i))
			}
		}

		count := uint32(len(list))
		offset := wg.AtomicAdd(SlotCursor, 0, count)
		for j, li := range list {
			if at := uint64(offset) + uint64(j); at < capacity {
				wg.Store(SlotIndices, at, li)
			}
		}
		storeGridEntry(wg, idx, offset, count)
	}
}

func cullMultipleReference(wg *renderer.Workgroup) {
	p := paramsFromWorkgroup(wg)
	cell := wg.ID
	if !p.Contains(cell) {
		return
	}
	lights := loadViewLights(wg)
	idx := p.Index(cell)
	base := uint64(idx) * uint64(p.MaxLights)
	bounds := loadCellBounds(wg, idx)

	// threads run one after another; the shared counter plays the workgroup atomic
	threads := wg.Invocations()
	var counter uint32
	for t := range threads {
		for i := t; i < uint32(len(lights)); i += threads {
			l := lights[i]
			if !common.SphereIntersectsAABB(l.center, l.radius, bounds) {
				continue
			}
			slot := counter
			counter++
			if slot < p.MaxLights {
				wg.Store(SlotIndices, base+uint64(slot), i)
			}
		}
	}
	storeGridEntry(wg, idx, uint32(base), min(counter, p.MaxLights))
}

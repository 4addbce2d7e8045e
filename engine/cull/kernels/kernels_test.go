package kernels

import (
	"math"
	"slices"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-cluster/common"
	"github.com/Carmen-Shannon/oxy-cluster/engine/light"
	"github.com/Carmen-Shannon/oxy-cluster/engine/renderer"
	"github.com/Carmen-Shannon/oxy-cluster/engine/renderer/shader"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/naga"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	tileThreads    = [3]uint32{16, 16, 1}
	clusterThreads = [3]uint32{16, 8, 4}
)

func allSources() []renderer.KernelSource {
	return []renderer.KernelSource{
		BuildCells(tileThreads),
		BuildCells(clusterThreads),
		ResetCursor(),
		CullSingle(tileThreads),
		CullSingle(clusterThreads),
		CullMultiple(tileThreads),
		CullMultiple(clusterThreads),
	}
}

func TestKernelSourcesMatchDeclaredBindings(t *testing.T) {
	d, err := renderer.NewDevice(renderer.BackendTypeSoftware, renderer.WithWorkers(2))
	require.NoError(t, err)
	t.Cleanup(d.Release)

	for _, src := range allSources() {
		k, err := d.CreateKernel(src)
		require.NoError(t, err, src.Name)
		assert.Equal(t, src.WorkgroupSize, k.WorkgroupSize(), src.Name)
	}
}

func TestKernelsCompileWithNaga(t *testing.T) {
	for _, src := range allSources() {
		t.Run(src.Name, func(t *testing.T) {
			structs := make(map[shader.AnnotationArg]shader.StructEntry, len(src.Structs))
			for key, st := range src.Structs {
				structs[shader.AnnotationArg(key)] = shader.StructEntry{Source: st.Source, Type: st.Type}
			}
			ws := src.WorkgroupSize
			s, err := shader.NewShader(src.Name, src.WGSL,
				shader.WithStructs(structs),
				shader.WithWorkgroupSize(ws[0], ws[1], ws[2]),
			)
			require.NoError(t, err)

			spirv, err := naga.Compile(s.Source())
			if err != nil {
				msg := err.Error()
				for _, known := range []string{"not yet implemented", "not supported", "lowering error", "atomic"} {
					if strings.Contains(msg, known) {
						t.Skipf("naga limitation: %v", err)
					}
				}
				require.NoError(t, err)
			}
			require.GreaterOrEqual(t, len(spirv), 4)
			assert.Equal(t, []byte{0x03, 0x02, 0x23, 0x07}, spirv[:4])
		})
	}
}

func TestCellBoundsOfTile(t *testing.T) {
	// 90 degree fov, square viewport: the near plane spans [-near, near] on both axes.
	proj := common.Perspective(float32(math.Pi/2), 1, 1, 10)
	p := CellParams{
		InvProj:   proj.Inv(),
		Counts:    [3]uint32{2, 2, 1},
		MaxLights: 8,
		CellSize:  mgl32.Vec2{1, 1},
		Near:      1,
		Far:       10,
		Viewport:  mgl32.Vec2{2, 2},
	}

	// top-left tile
	b := CellBounds(p, [3]uint32{0, 0, 0})
	assert.InDeltaSlice(t, []float32{-10, 0, -10}, b.Min[:], 1e-3)
	assert.InDeltaSlice(t, []float32{0, 10, -1}, b.Max[:], 1e-3)

	// bottom-right tile
	b = CellBounds(p, [3]uint32{1, 1, 0})
	assert.InDeltaSlice(t, []float32{0, -10, -10}, b.Min[:], 1e-3)
	assert.InDeltaSlice(t, []float32{10, 0, -1}, b.Max[:], 1e-3)
}

func TestSliceDepthIsExponential(t *testing.T) {
	p := CellParams{Counts: [3]uint32{1, 1, 4}, Near: 1, Far: 16}
	assert.InDelta(t, -1, p.SliceDepth(0), 1e-5)
	assert.InDelta(t, -2, p.SliceDepth(1), 1e-5)
	assert.InDelta(t, -4, p.SliceDepth(2), 1e-5)
	assert.InDelta(t, -16, p.SliceDepth(4), 1e-4)
}

func TestCellBoundsClampToViewport(t *testing.T) {
	proj := common.Perspective(float32(math.Pi/2), 1, 1, 10)
	// 3 cells of ceil(4/3) = 2 px over a 4 px viewport: the last cell is cut at 4
	p := CellParams{
		InvProj:  proj.Inv(),
		Counts:   [3]uint32{3, 1, 1},
		CellSize: mgl32.Vec2{2, 4},
		Near:     1,
		Far:      10,
		Viewport: mgl32.Vec2{4, 4},
	}
	last := CellBounds(p, [3]uint32{2, 0, 0})
	assert.InDelta(t, 1, last.Min.X(), 1e-3)
	assert.InDelta(t, 10, last.Max.X(), 1e-3)
}

// cullFixture wires the four kernels to a software device for one small grid.
type cullFixture struct {
	d         renderer.Device
	params    CellParams
	view      mgl32.Mat4
	cellCount uint32
	threads   [3]uint32

	cells, index, grid, cursor, lightBuf renderer.BufferHandle
	build, reset, single, multi          renderer.KernelProgram
}

func newCullFixture(t *testing.T, counts [3]uint32, maxLights uint32, lights []light.Light) *cullFixture {
	t.Helper()
	d, err := renderer.NewDevice(renderer.BackendTypeSoftware, renderer.WithWorkers(4))
	require.NoError(t, err)
	t.Cleanup(d.Release)

	viewport := mgl32.Vec2{64, 48}
	f := &cullFixture{
		d: d,
		params: CellParams{
			InvProj:   common.Perspective(float32(math.Pi/3), viewport.X()/viewport.Y(), 0.5, 50).Inv(),
			Counts:    counts,
			MaxLights: maxLights,
			CellSize: mgl32.Vec2{
				float32(common.CeilDiv(uint32(viewport.X()), counts[0])),
				float32(common.CeilDiv(uint32(viewport.Y()), counts[1])),
			},
			Near:     0.5,
			Far:      50,
			Viewport: viewport,
		},
		view:      mgl32.LookAtV(mgl32.Vec3{0, 2, 12}, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 1, 0}),
		cellCount: counts[0] * counts[1] * counts[2],
		threads:   [3]uint32{4, 4, 2},
	}

	mk := func(n uint64, layout renderer.ElementLayout) renderer.BufferHandle {
		h, err := d.CreateComputeBuffer(n, layout, renderer.AccessReadWrite)
		require.NoError(t, err)
		return h
	}
	f.cells = mk(uint64(f.cellCount), CellBoundsLayout)
	f.index = mk(uint64(f.cellCount)*uint64(maxLights), LightIndexLayout)
	f.grid = mk(uint64(f.cellCount), LightGridLayout)
	f.cursor = mk(1, CursorLayout)
	f.lightBuf = mk(LightBufferElements(uint64(max(len(lights), 1))), LightBufferLayout)

	data, _ := light.MarshalLightBuffer(lights)
	require.NoError(t, d.WriteBuffer(f.lightBuf, 0, data))

	for name, v := range f.params.Uniforms() {
		d.SetUniform(name, v)
	}
	d.SetUniformMat4(UniformInvProj, f.params.InvProj)
	d.SetUniformMat4(UniformView, f.view)

	d.BindBuffer(SlotLights, f.lightBuf, renderer.AccessRead)
	d.BindBuffer(SlotCells, f.cells, renderer.AccessReadWrite)
	d.BindBuffer(SlotIndices, f.index, renderer.AccessReadWrite)
	d.BindBuffer(SlotGrid, f.grid, renderer.AccessReadWrite)
	d.BindBuffer(SlotCursor, f.cursor, renderer.AccessReadWrite)

	create := func(src renderer.KernelSource) renderer.KernelProgram {
		k, err := d.CreateKernel(src)
		require.NoError(t, err)
		return k
	}
	f.build = create(BuildCells(f.threads))
	f.reset = create(ResetCursor())
	f.single = create(CullSingle(f.threads))
	f.multi = create(CullMultiple(f.threads))
	return f
}

func (f *cullFixture) groups() (uint32, uint32, uint32) {
	c := f.params.Counts
	return common.CeilDiv(c[0], f.threads[0]), common.CeilDiv(c[1], f.threads[1]), common.CeilDiv(c[2], f.threads[2])
}

func (f *cullFixture) run(t *testing.T, single bool) ([]GPULightGridEntry, []uint32) {
	t.Helper()
	gx, gy, gz := f.groups()
	require.NoError(t, f.d.DispatchCompute(f.build, gx, gy, gz))
	if single {
		require.NoError(t, f.d.DispatchCompute(f.reset, 1, 1, 1))
		require.NoError(t, f.d.DispatchCompute(f.single, gx, gy, gz))
	} else {
		c := f.params.Counts
		require.NoError(t, f.d.DispatchCompute(f.multi, c[0], c[1], c[2]))
	}

	raw, err := f.d.ReadBuffer(f.grid, 0, uint64(f.cellCount)*16)
	require.NoError(t, err)
	grid, err := DecodeLightGrid(raw)
	require.NoError(t, err)
	raw, err = f.d.ReadBuffer(f.index, 0, uint64(f.cellCount)*uint64(f.params.MaxLights)*4)
	require.NoError(t, err)
	index, err := DecodeLightIndices(raw)
	require.NoError(t, err)
	return grid, index
}

// expected computes every cell's overlapping light set by brute force.
func (f *cullFixture) expected(lights []light.Light) [][]uint32 {
	out := make([][]uint32, f.cellCount)
	c := f.params.Counts
	for z := range c[2] {
		for y := range c[1] {
			for x := range c[0] {
				cell := [3]uint32{x, y, z}
				b := CellBounds(f.params, cell)
				idx := f.params.Index(cell)
				for i, l := range lights {
					center := f.view.Mul4x1(l.Position().Vec4(1)).Vec3()
					if common.SphereIntersectsAABB(center, l.Range(), b) {
						out[idx] = append(out[idx], uint32(i))
					}
				}
			}
		}
	}
	return out
}

func testLights() []light.Light {
	return []light.Light{
		light.NewLight(light.WithPosition(0, 0, 0), light.WithRange(1.5)),
		light.NewLight(light.WithPosition(-4, 1, -3), light.WithRange(2)),
		light.NewLight(light.WithPosition(5, -1, 4), light.WithRange(0.75)),
		light.NewLight(light.WithPosition(0, 0, 11), light.WithRange(0.4)),
		light.NewLight(light.WithPosition(100, 0, 0), light.WithRange(1)),
	}
}

func TestCullStrategiesMatchBruteForce(t *testing.T) {
	lights := testLights()
	for _, tc := range []struct {
		name   string
		single bool
	}{
		{name: "single thread per cell", single: true},
		{name: "multiple threads per cell", single: false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			f := newCullFixture(t, [3]uint32{8, 6, 5}, 8, lights)
			grid, index := f.run(t, tc.single)
			want := f.expected(lights)

			nonEmpty := 0
			for idx, e := range grid {
				got := slices.Clone(index[e.Offset : e.Offset+e.Count])
				slices.Sort(got)
				assert.Equal(t, len(want[idx]), len(got), "cell %d", idx)
				if len(want[idx]) > 0 {
					nonEmpty++
					assert.Equal(t, want[idx], got, "cell %d", idx)
				}
				if !tc.single {
					assert.Equal(t, uint32(idx)*8, e.Offset)
				}
			}
			assert.Positive(t, nonEmpty)
		})
	}
}

func TestSingleThreadPacksIndexRegion(t *testing.T) {
	lights := testLights()
	f := newCullFixture(t, [3]uint32{8, 6, 5}, 8, lights)
	grid, _ := f.run(t, true)

	total := uint32(0)
	for _, e := range grid {
		total += e.Count
	}
	raw, err := f.d.ReadBuffer(f.cursor, 0, 4)
	require.NoError(t, err)
	cursor, err := DecodeLightIndices(raw)
	require.NoError(t, err)
	assert.Equal(t, total, cursor[0])

	// a second frame resets the cursor instead of appending after the first
	grid2, _ := f.run(t, true)
	raw, err = f.d.ReadBuffer(f.cursor, 0, 4)
	require.NoError(t, err)
	cursor, _ = DecodeLightIndices(raw)
	assert.Equal(t, total, cursor[0])
	for i := range grid2 {
		assert.LessOrEqual(t, grid2[i].Offset+grid2[i].Count, total)
	}
}

func TestCullTruncatesAtMaxLights(t *testing.T) {
	lights := make([]light.Light, 6)
	for i := range lights {
		lights[i] = light.NewLight(light.WithPosition(0, 0, 0), light.WithRange(100))
	}
	for _, single := range []bool{true, false} {
		f := newCullFixture(t, [3]uint32{2, 2, 2}, 3, lights)
		grid, index := f.run(t, single)
		for idx, e := range grid {
			require.Equal(t, uint32(3), e.Count, "cell %d", idx)
			for _, li := range index[e.Offset : e.Offset+e.Count] {
				assert.Less(t, li, uint32(len(lights)))
			}
		}
	}
}

func TestCullWithNoLights(t *testing.T) {
	for _, single := range []bool{true, false} {
		f := newCullFixture(t, [3]uint32{4, 4, 3}, 4, nil)
		grid, _ := f.run(t, single)
		for _, e := range grid {
			assert.Zero(t, e.Count)
		}
	}
}

func TestDecodeRejectsPartialEntries(t *testing.T) {
	_, err := DecodeLightGrid(make([]byte, 20))
	assert.Error(t, err)
	_, err = DecodeCellBounds(make([]byte, 40))
	assert.Error(t, err)
	_, err = DecodeLightIndices(make([]byte, 6))
	assert.Error(t, err)

	b := GPUCellBounds{Min: [4]float32{1, 2, 3, 0}, Max: [4]float32{4, 5, 6, 0}}
	out, err := DecodeCellBounds(b.Marshal())
	require.NoError(t, err)
	assert.Equal(t, b, out[0])
}

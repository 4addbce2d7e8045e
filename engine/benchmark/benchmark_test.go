package benchmark

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-cluster/engine/camera"
	"github.com/Carmen-Shannon/oxy-cluster/engine/cull"
	"github.com/Carmen-Shannon/oxy-cluster/engine/profiler"
	"github.com/Carmen-Shannon/oxy-cluster/engine/render_path"
	"github.com/Carmen-Shannon/oxy-cluster/engine/renderer"
	"github.com/Carmen-Shannon/oxy-cluster/engine/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupColumns(t *testing.T) {
	assert.Equal(t, "t32s;32;16;16", TiledGroups[0].Columns())
	assert.Equal(t, "c32m;32;16;8;24", ClusteredGroups[1].Columns())
	assert.Len(t, TiledGroups, 12)
	assert.Len(t, ClusteredGroups, 16)
}

func TestPlanSkipsGroupsAtLightLimit(t *testing.T) {
	plan := Plan{
		Resolutions:     []Resolution{{1920, 1080}},
		LightCounts:     []int{64, 128},
		Paths:           []render_path.Kind{render_path.Forward, render_path.TiledSingleForward, render_path.ClusteredDeferred},
		TiledGroups:     TiledGroups[:4],
		ClusteredGroups: ClusteredGroups[:5],
	}
	runs := plan.Runs()

	// 64 lights: forward + 4 tiled + 5 clustered; 128 lights drops the three t32 and four c32 groups
	require.Len(t, runs, 1+4+5+1+1+1)

	assert.Equal(t, render_path.Forward, runs[0].Path)
	assert.Equal(t, "N/A", runs[0].Params())
	assert.Equal(t, render_path.TiledSingleForward, runs[1].Path)
	assert.Equal(t, "t32s", runs[1].Group.Name)
	assert.Equal(t, render_path.ClusteredDeferred, runs[5].Path)

	for _, r := range runs {
		if r.Group != nil {
			assert.Less(t, r.Lights, r.Group.LightLimit, r.String())
		}
	}
	last := runs[len(runs)-1]
	assert.Equal(t, 128, last.Lights)
	assert.Equal(t, "c128s", last.Group.Name)
}

func TestDefaultPlanSize(t *testing.T) {
	runs := DefaultPlan().Runs()
	perRes := 0
	for _, lights := range LightCounts {
		perRes += 2
		for _, g := range TiledGroups {
			if g.Accepts(lights) {
				perRes += 4
			}
		}
		for _, g := range ClusteredGroups {
			if g.Accepts(lights) {
				perRes += 2
			}
		}
	}
	assert.Len(t, runs, perRes*len(Resolutions))
}

func TestRunOptions(t *testing.T) {
	base := render_path.DefaultOptions()
	base.TreatClusterXYAsPixelSize = true

	tile := Run{Path: render_path.TiledSingleForward, Group: &TiledGroups[2]}
	opts := tile.Options(base)
	assert.Equal(t, [2]uint32{64, 64}, opts.TilePixelSize)
	assert.Equal(t, uint32(32), opts.MaxLightsPerCell)

	cluster := Run{Path: render_path.ClusteredForward, Group: &ClusteredGroups[3]}
	opts = cluster.Options(base)
	assert.Equal(t, [3]uint32{64, 64, 32}, opts.ClusterDimensions)
	assert.False(t, opts.TreatClusterXYAsPixelSize)

	assert.Equal(t, base, Run{Path: render_path.Forward}.Options(base))
}

func TestRunnerWritesRows(t *testing.T) {
	plan := Plan{
		Resolutions:     []Resolution{{640, 480}},
		LightCounts:     []int{16},
		Paths:           []render_path.Kind{render_path.Forward, render_path.ClusteredForward},
		ClusteredGroups: ClusteredGroups[:1],
	}
	fake := func(_ context.Context, run Run) (profiler.Stats, error) {
		return profiler.Stats{
			Frames:      10,
			AvgFrameCPU: 2 * time.Millisecond,
			AvgFrameGPU: 1500 * time.Microsecond,
			Views: map[string]profiler.ViewStats{
				render_path.ViewShading: {AvgCPU: time.Millisecond, AvgGPU: 500 * time.Microsecond},
				render_path.ViewCulling: {AvgCPU: 250 * time.Microsecond},
			},
		}, nil
	}

	var seen []int
	var buf bytes.Buffer
	results, err := NewRunner(fake, WithProgress(func(done, _ int, _ Run) { seen = append(seen, done) })).
		Execute(context.Background(), plan, &buf)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, []int{0, 1}, seen)

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"640", "480", "16", "forward", "N/A", "2.0000", "1.5000",
		"culling;0.2500;0.0000;shading;1.0000;0.5000"}, rows[0])
	assert.Equal(t, "clustered_forward", rows[1][3])
	assert.Equal(t, "c32s;32;12;8;16", rows[1][4])
}

func TestRunnerErrors(t *testing.T) {
	plan := Plan{
		Resolutions: []Resolution{{64, 64}},
		LightCounts: []int{0, 2},
		Paths:       []render_path.Kind{render_path.Forward},
	}
	boom := errors.New("boom")
	failFirst := func(_ context.Context, run Run) (profiler.Stats, error) {
		if run.Lights == 0 {
			return profiler.Stats{}, boom
		}
		return profiler.Stats{Frames: 1}, nil
	}

	_, err := NewRunner(failFirst).Execute(context.Background(), plan, nil)
	assert.ErrorIs(t, err, boom)

	results, err := NewRunner(failFirst, WithContinueOnError(true)).Execute(context.Background(), plan, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 2, results[0].Run.Lights)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewRunner(failFirst).Execute(ctx, plan, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEngineRunMeasures(t *testing.T) {
	device, err := renderer.NewDevice(renderer.BackendTypeSoftware, renderer.WithWorkers(4))
	require.NoError(t, err)
	t.Cleanup(device.Release)

	newScene := func(lights int) scene.Scene {
		cam := camera.NewCamera(
			camera.WithNearFar(0.5, 60),
			camera.WithController(camera.NewOrbitController(camera.WithRadius(25), camera.WithAutoOrbit(0.5))),
		)
		return scene.NewScene("bench", cam, scene.WithGeneratedLights(lights), scene.WithMovingLights(true))
	}
	group := ParameterGroup{Name: "tiny", Kind: cull.KindCluster, MaxLightsPerCell: 32, Dimensions: [3]uint32{4, 4, 4}, LightLimit: 128}
	plan := Plan{
		Resolutions:     []Resolution{{96, 64}},
		LightCounts:     []int{8},
		Paths:           []render_path.Kind{render_path.ClusteredForward},
		ClusteredGroups: []ParameterGroup{group},
	}

	run := EngineRun(device, newScene, render_path.DefaultOptions(), 50*time.Millisecond)
	results, err := NewRunner(run).Execute(context.Background(), plan, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)

	stats := results[0].Stats
	assert.Greater(t, stats.Frames, uint64(0))
	assert.Contains(t, stats.Views, render_path.ViewCulling)
	assert.Equal(t, uint64(0), device.Stats().BufferBytes)
}

package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-cluster/engine/camera"
	"github.com/Carmen-Shannon/oxy-cluster/engine/cull"
	"github.com/Carmen-Shannon/oxy-cluster/engine/render_path"
	"github.com/Carmen-Shannon/oxy-cluster/engine/renderer"
	"github.com/Carmen-Shannon/oxy-cluster/engine/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDevice(t *testing.T, opts ...renderer.DeviceBuilderOption) renderer.Device {
	t.Helper()
	d, err := renderer.NewDevice(renderer.BackendTypeSoftware, append([]renderer.DeviceBuilderOption{renderer.WithWorkers(4)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(d.Release)
	return d
}

func newTestScene() scene.Scene {
	cam := camera.NewCamera(
		camera.WithNearFar(0.5, 60),
		camera.WithController(camera.NewOrbitController(camera.WithRadius(25))),
	)
	return scene.NewScene("engine", cam, scene.WithGeneratedLights(32))
}

func testOptions() render_path.Options {
	return render_path.Options{
		TilePixelSize:     [2]uint32{16, 16},
		ClusterDimensions: [3]uint32{8, 4, 6},
		MaxLightsPerCell:  64,
	}
}

func newTestEngine(t *testing.T, device renderer.Device, opts ...EngineBuilderOption) Engine {
	t.Helper()
	base := []EngineBuilderOption{
		WithViewport(128, 96),
		WithPathOptions(testOptions()),
	}
	e, err := NewEngine(device, newTestScene(), append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(e.Shutdown)
	return e
}

func TestNewEngineDefaultsToClusteredForward(t *testing.T) {
	e := newTestEngine(t, newTestDevice(t))
	assert.Equal(t, render_path.ClusteredForward, e.Path().Kind())
}

func TestFrameRecordsViews(t *testing.T) {
	e := newTestEngine(t, newTestDevice(t), WithRenderPath(render_path.TiledSingleForward))

	frame, err := e.Frame(1.0 / 60)
	require.NoError(t, err)
	assert.True(t, frame.Rebuilt)

	frame, err = e.Frame(1.0 / 60)
	require.NoError(t, err)
	assert.False(t, frame.Rebuilt)

	stats := e.Stats()
	assert.Equal(t, uint64(2), stats.Frames)
	assert.Equal(t, []string{
		render_path.ViewBuilding, render_path.ViewCulling, render_path.ViewShading,
	}, stats.ViewNames())
}

func TestSetRenderPathFallsBack(t *testing.T) {
	caps := renderer.Capabilities{
		Compute:                    true,
		Index32:                    true,
		Blit:                       true,
		MaxWorkgroupsPerDimension:  65535,
		MaxInvocationsPerWorkgroup: 1024,
	}
	device := newTestDevice(t, renderer.WithCapabilities(caps))
	e := newTestEngine(t, device, WithRenderPath(render_path.ClusteredDeferred))

	// no MRT: every deferred path is skipped until forward
	assert.Equal(t, render_path.Forward, e.Path().Kind())

	require.NoError(t, e.SetRenderPath(render_path.ClusteredForward))
	assert.Equal(t, render_path.ClusteredForward, e.Path().Kind())
	_, err := e.Frame(0.01)
	require.NoError(t, err)
}

func TestSetPathOptionsRejectsFatalGrid(t *testing.T) {
	e := newTestEngine(t, newTestDevice(t))
	bad := testOptions()
	bad.ClusterDimensions = [3]uint32{0, 4, 6}

	err := e.SetPathOptions(bad)
	require.Error(t, err)
	assert.True(t, errors.Is(err, cull.ErrConfigurationFatal))

	_, err = e.Frame(0.01)
	assert.NoError(t, err)
}

func TestResizeForcesRebuild(t *testing.T) {
	e := newTestEngine(t, newTestDevice(t))
	_, err := e.Frame(0.01)
	require.NoError(t, err)

	require.NoError(t, e.Resize(256, 128))
	frame, err := e.Frame(0.01)
	require.NoError(t, err)
	assert.True(t, frame.Rebuilt)

	// zero sizes are ignored
	assert.NoError(t, e.Resize(0, 0))
}

func TestRunStopsAfterMeasureWindow(t *testing.T) {
	var frames uint64
	e := newTestEngine(t, newTestDevice(t),
		WithMeasureDuration(150*time.Millisecond),
		WithTickRate(200),
	)
	e.SetRenderCallback(func(float32) { frames++ })

	done := make(chan error, 1)
	go func() { done <- e.Run() }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		e.Quit()
		t.Fatal("Run did not stop after the measurement window")
	}
	assert.Greater(t, frames, uint64(0))
	assert.Equal(t, frames, e.Stats().Frames)
}

func TestRunSurfacesFatalRenderError(t *testing.T) {
	fatal := &cull.ConfigurationError{Field: "test", Reason: "broken"}
	e := newTestEngine(t, newTestDevice(t),
		WithShadingStage(render_path.ShadingFunc(func(render_path.ShadingInput) error { return fatal })),
	)

	err := e.Run()
	require.Error(t, err)
	assert.True(t, errors.Is(err, cull.ErrConfigurationFatal))
}

func TestQuitIsIdempotent(t *testing.T) {
	e := newTestEngine(t, newTestDevice(t))
	e.Quit()
	e.Quit()
	assert.NoError(t, e.Run())
}

func TestFractionalRates(t *testing.T) {
	e := newTestEngine(t, newTestDevice(t), WithTickRate(0.5), WithRenderFrameLimit(0.25))
	impl := e.(*engine)
	assert.Equal(t, 2*time.Second, impl.engineTickRate)
	assert.Equal(t, 4*time.Second, impl.renderFrameLimit)

	assert.NotPanics(t, func() {
		e.SetTickRate(0.5)
		e.SetRenderFrameLimit(0.5)
	})
	assert.Equal(t, 2*time.Second, impl.engineTickRate)
	assert.Equal(t, 2*time.Second, impl.renderFrameLimit)
}

func TestReconfigureWhileRunning(t *testing.T) {
	e := newTestEngine(t, newTestDevice(t), WithMeasureDuration(400*time.Millisecond))

	done := make(chan error, 1)
	go func() { done <- e.Run() }()

	sizes := [][2]uint32{{96, 64}, {160, 120}, {128, 96}}
	for i, size := range sizes {
		require.NoError(t, e.Resize(size[0], size[1]))
		opts := testOptions()
		opts.MaxLightsPerCell = uint32(32 * (i + 1))
		require.NoError(t, e.SetPathOptions(opts))
		_ = e.Stats()
	}
	require.NoError(t, e.SetRenderPath(render_path.TiledMultipleForward))
	assert.Equal(t, render_path.TiledMultipleForward, e.Path().Kind())

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		e.Quit()
		t.Fatal("Run did not stop after the measurement window")
	}
	assert.False(t, e.Path().Degraded())
}

func TestGPUTimingFlushesEachView(t *testing.T) {
	device := &flushCountingDevice{Device: newTestDevice(t)}

	e := newTestEngine(t, device)
	_, err := e.Frame(0.01)
	require.NoError(t, err)
	assert.Zero(t, device.flushes)

	timed := newTestEngine(t, device, WithGPUTiming(true))
	_, err = timed.Frame(0.01)
	require.NoError(t, err)
	assert.Equal(t, 3, device.flushes)
}

// flushCountingDevice counts the waits a frame asks the device for.
type flushCountingDevice struct {
	renderer.Device
	flushes int
}

func (d *flushCountingDevice) Flush() error {
	d.flushes++
	return d.Device.Flush()
}

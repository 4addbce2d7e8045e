package render_path

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-cluster/engine/camera"
	"github.com/Carmen-Shannon/oxy-cluster/engine/cull"
	"github.com/Carmen-Shannon/oxy-cluster/engine/renderer"
	"github.com/Carmen-Shannon/oxy-cluster/engine/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fullCaps = renderer.Capabilities{
	Compute:                    true,
	Index32:                    true,
	MultipleRenderTargets:      true,
	Blit:                       true,
	MaxWorkgroupsPerDimension:  65535,
	MaxInvocationsPerWorkgroup: 1024,
}

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
	return scene.NewScene("test", cam, scene.WithGeneratedLights(48))
}

func smallOptions() Options {
	return Options{
		TilePixelSize:     [2]uint32{16, 16},
		ClusterDimensions: [3]uint32{8, 4, 6},
		MaxLightsPerCell:  64,
	}
}

func TestKindNames(t *testing.T) {
	for _, k := range Kinds() {
		parsed, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, parsed)
	}
	_, err := ParseKind("raytraced")
	assert.Error(t, err)

	assert.Equal(t, "tiled_forward_multiple", TiledMultipleForward.String())
	assert.Equal(t, cull.MultipleThreadPerCell, TiledMultipleDeferred.Strategy())
	assert.Equal(t, cull.SingleThreadPerCell, ClusteredDeferred.Strategy())

	kind, ok := ClusteredForward.Culled()
	assert.True(t, ok)
	assert.Equal(t, cull.KindCluster, kind)
	_, ok = Deferred.Culled()
	assert.False(t, ok)
	assert.True(t, TiledSingleDeferred.Deferred())
	assert.False(t, ClusteredForward.Deferred())
}

func TestSupported(t *testing.T) {
	for _, k := range Kinds() {
		assert.NoError(t, Supported(k, fullCaps), k.String())
	}

	noMRT := fullCaps
	noMRT.MultipleRenderTargets = false
	err := Supported(ClusteredDeferred, noMRT)
	require.Error(t, err)
	assert.True(t, errors.Is(err, renderer.ErrCapabilityUnsupported))
	assert.Contains(t, err.Error(), CapabilityMultipleRenderTargets)
	assert.NoError(t, Supported(ClusteredForward, noMRT))

	noIndex32 := fullCaps
	noIndex32.Index32 = false
	assert.ErrorIs(t, Supported(TiledSingleForward, noIndex32), renderer.ErrCapabilityUnsupported)
	assert.NoError(t, Supported(Deferred, noIndex32))
}

func TestSelectFallsBack(t *testing.T) {
	noCompute := fullCaps
	noCompute.Compute = false
	noComputeOrMRT := noCompute
	noComputeOrMRT.MultipleRenderTargets = false
	noBlit := fullCaps
	noBlit.Blit = false

	tests := []struct {
		name      string
		requested Kind
		caps      renderer.Capabilities
		want      Kind
		wantErr   bool
	}{
		{name: "supported", requested: ClusteredDeferred, caps: fullCaps, want: ClusteredDeferred},
		{name: "clustered without compute", requested: ClusteredDeferred, caps: noCompute, want: Deferred},
		{name: "tiled without compute or mrt", requested: TiledMultipleForward, caps: noComputeOrMRT, want: Forward},
		{name: "nothing without blit", requested: ClusteredForward, caps: noBlit, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Select(tt.requested, tt.caps)
			if tt.wantErr {
				assert.ErrorIs(t, err, renderer.ErrCapabilityUnsupported)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewRejectsUnsupportedPath(t *testing.T) {
	caps := fullCaps
	caps.Compute = false
	d := newTestDevice(t, renderer.WithCapabilities(caps))
	_, err := New(ClusteredForward, d, newTestScene())
	assert.ErrorIs(t, err, renderer.ErrCapabilityUnsupported)
}

func TestCulledPathRender(t *testing.T) {
	for _, kind := range []Kind{TiledSingleForward, TiledMultipleDeferred, ClusteredForward, ClusteredDeferred} {
		t.Run(kind.String(), func(t *testing.T) {
			d := newTestDevice(t)
			scn := newTestScene()
			var got ShadingInput
			p, err := New(kind, d, scn,
				WithOptions(smallOptions()),
				WithShadingStage(ShadingFunc(func(in ShadingInput) error {
					got = in
					return nil
				})),
			)
			require.NoError(t, err)
			t.Cleanup(p.Shutdown)
			require.NoError(t, p.Initialize(128, 96))

			frame, err := p.Render(0.016)
			require.NoError(t, err)
			assert.True(t, frame.Rebuilt)
			assert.False(t, frame.Skipped)
			assert.Contains(t, frame.Views, ViewBuilding)
			assert.Contains(t, frame.Views, ViewCulling)
			assert.Contains(t, frame.Views, ViewShading)

			require.NotNil(t, got.Grid)
			assert.Equal(t, uint32(48), got.LightCount)
			assert.Equal(t, [2]uint32{128, 96}, got.Viewport)
			assert.Contains(t, got.Uniforms, "u_cellCountVec")

			culled, ok := p.(CulledPath)
			require.True(t, ok)
			assert.Equal(t, kind.Strategy(), culled.Culler().Strategy())
			assert.Equal(t, cull.StateReady, culled.Partitioner().State())
			h, err := culled.Culler().Heatmap()
			require.NoError(t, err)
			assert.Positive(t, h.Total())

			frame, err = p.Render(0.016)
			require.NoError(t, err)
			assert.False(t, frame.Rebuilt)

			require.NoError(t, p.Reset(64, 96))
			frame, err = p.Render(0.016)
			require.NoError(t, err)
			assert.True(t, frame.Rebuilt)
			assert.Equal(t, [2]uint32{64, 96}, got.Viewport)
		})
	}
}

func TestCulledPathRejectsFatalOptions(t *testing.T) {
	d := newTestDevice(t)
	p, err := New(ClusteredForward, d, newTestScene(), WithOptions(smallOptions()))
	require.NoError(t, err)
	t.Cleanup(p.Shutdown)
	require.NoError(t, p.Initialize(128, 96))

	bad := smallOptions()
	bad.ClusterDimensions = [3]uint32{4096, 4096, 64}
	bad.MaxLightsPerCell = 4096
	err = p.OnOptionsChanged(bad)
	assert.ErrorIs(t, err, cull.ErrConfigurationFatal)

	// the previous grid is still in place
	assert.Equal(t, [3]uint32{8, 4, 6}, p.(CulledPath).Partitioner().Grid().Counts)
	_, err = p.Render(0.016)
	assert.NoError(t, err)

	fresh, err := New(ClusteredForward, d, newTestScene(), WithOptions(bad))
	require.NoError(t, err)
	before := d.Stats().BufferBytes
	assert.ErrorIs(t, fresh.Initialize(1920, 1080), cull.ErrConfigurationFatal)
	assert.Equal(t, before, d.Stats().BufferBytes)
}

func TestShadingFailureSkipsFrame(t *testing.T) {
	d := newTestDevice(t)
	fail := true
	p, err := New(TiledSingleDeferred, d, newTestScene(),
		WithOptions(smallOptions()),
		WithShadingStage(ShadingFunc(func(ShadingInput) error {
			if fail {
				return errors.New("target lost")
			}
			return nil
		})),
	)
	require.NoError(t, err)
	t.Cleanup(p.Shutdown)
	require.NoError(t, p.Initialize(64, 64))

	frame, err := p.Render(0.016)
	require.NoError(t, err)
	assert.True(t, frame.Skipped)
	assert.True(t, p.Degraded())

	fail = false
	frame, err = p.Render(0.016)
	require.NoError(t, err)
	assert.False(t, frame.Skipped)
	assert.False(t, p.Degraded())
}

func TestBasicPathRender(t *testing.T) {
	for _, kind := range []Kind{Forward, Deferred} {
		d := newTestDevice(t)
		var got ShadingInput
		p, err := New(kind, d, newTestScene(), WithShadingStage(ShadingFunc(func(in ShadingInput) error {
			got = in
			return nil
		})))
		require.NoError(t, err)
		require.NoError(t, p.Initialize(64, 64))
		_, isCulled := p.(CulledPath)
		assert.False(t, isCulled)

		frame, err := p.Render(0.016)
		require.NoError(t, err)
		assert.Len(t, frame.Views, 1)
		assert.Nil(t, got.Grid)
		assert.Equal(t, uint32(48), got.LightCount)
		assert.Equal(t, kind, got.Kind)

		p.Shutdown()
		p.Shutdown()
		assert.Zero(t, d.Stats().BufferBytes)
	}
}

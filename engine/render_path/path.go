package render_path

import (
	"errors"
	"time"

	"github.com/Carmen-Shannon/oxy-cluster/common"
	"github.com/Carmen-Shannon/oxy-cluster/engine/cull"
	"github.com/Carmen-Shannon/oxy-cluster/engine/renderer"
	"github.com/Carmen-Shannon/oxy-cluster/engine/scene"
)

// View names reported in Frame timings.
const (
	ViewBuilding = "building"
	ViewCulling  = "culling"
	ViewShading  = "shading"
)

// ViewTiming is the time one view of a frame took.
type ViewTiming struct {
	// CPU is wall time spent recording and waiting for the view.
	CPU time.Duration

	// GPU is the device time the view added.
	GPU time.Duration
}

// Frame reports what one Render call did.
type Frame struct {
	Views map[string]ViewTiming

	// Rebuilt is true when cell bounds were rebuilt this frame.
	Rebuilt bool

	// Skipped is true when a resource failure dropped the frame.
	Skipped bool
}

// Path renders a scene with one render path variant.
type Path interface {
	// Kind returns the variant.
	Kind() Kind

	// Initialize allocates the path's resources for a viewport.
	//
	// Parameters:
	//   - width: viewport width in pixels
	//   - height: viewport height in pixels
	//
	// Returns:
	//   - error: a cull.ErrConfigurationFatal or resource error
	Initialize(width, height uint32) error

	// Reset adapts the path to a new viewport and forces a cell rebuild.
	Reset(width, height uint32) error

	// OnOptionsChanged applies new culling options.
	OnOptionsChanged(opts Options) error

	// Render records one frame.
	//
	// Parameters:
	//   - dt: elapsed time in seconds since the last frame
	//
	// Returns:
	//   - Frame: per-view timings and what the frame did
	//   - error: only for fatal conditions; resource failures skip the frame instead
	Render(dt float32) (Frame, error)

	// Degraded reports whether the last frame was skipped.
	Degraded() bool

	// Shutdown releases the path's resources. Safe to call more than once.
	Shutdown()
}

// CulledPath is a Path that runs light culling.
type CulledPath interface {
	Path

	// Partitioner returns the path's partitioner.
	Partitioner() cull.Partitioner

	// Culler returns the path's culler.
	Culler() cull.Culler
}

// New creates a Path for a kind after checking the device supports it. Use Select first
// to fall back to a supported path.
//
// Parameters:
//   - kind: the variant
//   - device: the device to render on
//   - scn: the scene to render
//   - options: builder options
//
// Returns:
//   - Path: the path, not yet initialized
//   - error: renderer.ErrCapabilityUnsupported if the device lacks a requirement
func New(kind Kind, device renderer.Device, scn scene.Scene, options ...PathBuilderOption) (Path, error) {
	if err := Supported(kind, device.Capabilities()); err != nil {
		return nil, err
	}
	base := pathBase{
		kind:    kind,
		device:  device,
		scene:   scn,
		shading: nopShading{},
		opts:    DefaultOptions(),
	}
	for _, opt := range options {
		opt(&base)
	}
	if _, ok := kind.Culled(); ok {
		return &culledPath{pathBase: base}, nil
	}
	return &basicPath{pathBase: base}, nil
}

// pathBase holds what every variant shares.
type pathBase struct {
	kind     Kind
	device   renderer.Device
	scene    scene.Scene
	shading  ShadingStage
	opts     Options
	width    uint32
	height   uint32
	degraded bool

	// gpuTiming drains the device after every view so its GPU time can be attributed.
	gpuTiming bool
}

func (b *pathBase) Kind() Kind {
	return b.kind
}

func (b *pathBase) Degraded() bool {
	return b.degraded
}

// resize updates the viewport and the camera aspect.
func (b *pathBase) resize(width, height uint32) {
	b.width = width
	b.height = height
	if cam := b.scene.Camera(); cam != nil {
		cam.SetViewport(width, height)
	}
}

// timeView runs fn and records its CPU time. With GPU timing on it also flushes the
// device, so the wait for the view's work is attributed to it.
func (b *pathBase) timeView(frame *Frame, name string, fn func() error) error {
	start := time.Now()
	gpu := b.device.Stats().DeviceTime
	err := fn()
	if err == nil && b.gpuTiming {
		err = b.device.Flush()
	}
	frame.Views[name] = ViewTiming{
		CPU: time.Since(start),
		GPU: b.device.Stats().DeviceTime - gpu,
	}
	return err
}

// frameError turns a per-frame failure into a skipped frame. Configuration errors are
// fatal and returned as is.
func (b *pathBase) frameError(frame Frame, err error) (Frame, error) {
	if errors.Is(err, cull.ErrConfigurationFatal) {
		return frame, err
	}
	b.degraded = true
	frame.Skipped = true
	common.Logger().Warn("frame skipped", "path", b.kind, "error", err)
	return frame, nil
}

package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-cluster/common"
	"github.com/Carmen-Shannon/oxy-cluster/engine/profiler"
	"github.com/Carmen-Shannon/oxy-cluster/engine/render_path"
	"github.com/Carmen-Shannon/oxy-cluster/engine/renderer"
	"github.com/Carmen-Shannon/oxy-cluster/engine/scene"
)

// engine implements the Engine interface.
// Coordinates the tick and render goroutines around one render path.
type engine struct {
	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates

	running bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	// pathMu serializes frames with path switches, option changes and resizes.
	pathMu sync.Mutex

	device renderer.Device
	scene  scene.Scene

	path        render_path.Path
	pathKind    render_path.Kind
	pathOptions render_path.Options
	shading     render_path.ShadingStage
	gpuTiming   bool
	width       uint32
	height      uint32

	profiler         *profiler.Profiler
	profilingEnabled bool

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)
	renderCallback func(deltaTime float32)

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped
	measureDuration  time.Duration // Run stops after this long; 0 = until Quit

	err error
}

// Engine is the frame orchestrator. Each frame it advances the scene, then lets the
// active render path rebuild cell bounds if needed, cull the lights and shade.
type Engine interface {
	// Device returns the device the engine renders on.
	Device() renderer.Device

	// Scene returns the rendered scene.
	Scene() scene.Scene

	// Path returns the active render path.
	Path() render_path.Path

	// SetRenderPath switches to a render path, falling back along the capability chain
	// when the device does not support it. The previous path is shut down.
	// Safe to call while Run is active; the switch happens between frames.
	//
	// Parameters:
	//   - kind: the requested path
	//
	// Returns:
	//   - error: if no path in the fallback chain is supported or initialization fails
	SetRenderPath(kind render_path.Kind) error

	// SetPathOptions applies new culling options to the active path between frames.
	//
	// Parameters:
	//   - opts: the options
	//
	// Returns:
	//   - error: a cull.ErrConfigurationFatal error if the grid cannot be honored
	SetPathOptions(opts render_path.Options) error

	// Resize changes the viewport between frames and forces a cell rebuild.
	//
	// Parameters:
	//   - width: viewport width in pixels
	//   - height: viewport height in pixels
	//
	// Returns:
	//   - error: if the path cannot be reconfigured for the viewport
	Resize(width, height uint32) error

	// Profiler returns the frame profiler.
	Profiler() *profiler.Profiler

	// EnableProfiler enables periodic profiler output to the log.
	EnableProfiler()

	// DisableProfiler disables periodic profiler output.
	DisableProfiler()

	// SetTickRate sets the engine tick rate in frames per second.
	// The tick callback will be called at this rate for game logic updates.
	//
	// Parameters:
	//   - fps: target frames per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each engine tick.
	//
	// Parameters:
	//   - callback: function to call at the configured tick rate, receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderCallback registers the function called after each rendered frame.
	//
	// Parameters:
	//   - callback: function to call each render frame, receiving the delta time in seconds
	SetRenderCallback(callback func(deltaTime float32))

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// Frame renders one frame synchronously. It should not be called while Run is active.
	// Skipped frames are not recorded by the profiler.
	//
	// Parameters:
	//   - dt: elapsed time in seconds
	//
	// Returns:
	//   - render_path.Frame: what the path did
	//   - error: a fatal render error
	Frame(dt float32) (render_path.Frame, error)

	// Run starts the tick and render loops and blocks until Quit is called, the
	// measurement window elapses or a fatal render error occurs.
	//
	// Returns:
	//   - error: the fatal render error, if any
	Run() error

	// Quit signals all engine goroutines to stop.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()

	// Stats returns the profiler averages of the current measurement window.
	Stats() profiler.Stats

	// Shutdown releases the render path's resources.
	Shutdown()
}

// NewEngine creates a new Engine on a device and initializes its render path.
//
// Parameters:
//   - device: the device to render on
//   - scn: the scene to render
//   - options: functional options for engine configuration (path, viewport, profiling, etc.)
//
// Returns:
//   - Engine: the newly created engine
//   - error: if no supported render path can be initialized
func NewEngine(device renderer.Device, scn scene.Scene, options ...EngineBuilderOption) (Engine, error) {
	e := &engine{
		tickRateChannel: make(chan time.Duration, 1),
		quitChannel:     make(chan struct{}),
		device:          device,
		scene:           scn,
		pathKind:        render_path.ClusteredForward,
		pathOptions:     render_path.DefaultOptions(),
		width:           1920,
		height:          1080,
		profiler:        profiler.NewProfiler(),
		engineTickRate:  time.Second / 60,
	}

	for _, opt := range options {
		opt(e)
	}

	if err := e.SetRenderPath(e.pathKind); err != nil {
		return nil, err
	}
	return e, nil
}

// fpsInterval converts a rate into a period. Fractional rates below 1 fps are valid.
func fpsInterval(fps float64) time.Duration {
	return time.Duration(float64(time.Second) / fps)
}

func (e *engine) Device() renderer.Device {
	return e.device
}

func (e *engine) Scene() scene.Scene {
	return e.scene
}

func (e *engine) Path() render_path.Path {
	e.pathMu.Lock()
	defer e.pathMu.Unlock()
	return e.path
}

func (e *engine) SetRenderPath(kind render_path.Kind) error {
	e.pathMu.Lock()
	defer e.pathMu.Unlock()

	selected, err := render_path.Select(kind, e.device.Capabilities())
	if err != nil {
		return err
	}
	p, err := render_path.New(selected, e.device, e.scene,
		render_path.WithOptions(e.pathOptions),
		render_path.WithShadingStage(e.shading),
		render_path.WithGPUTiming(e.gpuTiming),
	)
	if err != nil {
		return err
	}
	if err := p.Initialize(e.width, e.height); err != nil {
		p.Shutdown()
		return fmt.Errorf("failed to initialize render path %s: %w", selected, err)
	}
	if e.path != nil {
		e.path.Shutdown()
	}
	e.path = p
	e.pathKind = selected
	e.profiler.Reset()
	common.Logger().Info("render path selected", "requested", kind, "path", selected, "width", e.width, "height", e.height)
	return nil
}

func (e *engine) SetPathOptions(opts render_path.Options) error {
	e.pathMu.Lock()
	defer e.pathMu.Unlock()

	if err := e.path.OnOptionsChanged(opts); err != nil {
		return err
	}
	e.pathOptions = opts
	e.profiler.Reset()
	return nil
}

func (e *engine) Resize(width, height uint32) error {
	if width == 0 || height == 0 {
		return nil
	}
	e.pathMu.Lock()
	defer e.pathMu.Unlock()

	if err := e.path.Reset(width, height); err != nil {
		return err
	}
	e.width = width
	e.height = height
	return nil
}

func (e *engine) Profiler() *profiler.Profiler {
	return e.profiler
}

func (e *engine) Stats() profiler.Stats {
	e.pathMu.Lock()
	defer e.pathMu.Unlock()
	return e.profiler.Stats()
}

func (e *engine) Frame(dt float32) (render_path.Frame, error) {
	e.pathMu.Lock()
	defer e.pathMu.Unlock()

	start := time.Now()
	gpu := e.device.Stats().DeviceTime

	e.scene.Update(dt)
	frame, err := e.path.Render(dt)
	if err != nil || frame.Skipped {
		return frame, err
	}
	if e.renderCallback != nil {
		e.renderCallback(dt)
	}

	views := make(map[string]profiler.Sample, len(frame.Views))
	for name, v := range frame.Views {
		views[name] = profiler.Sample{CPU: v.CPU, GPU: v.GPU}
	}
	e.profiler.RecordFrame(profiler.Sample{
		CPU: time.Since(start),
		GPU: e.device.Stats().DeviceTime - gpu,
	}, views)
	if e.profilingEnabled {
		e.profiler.Tick()
	}
	return frame, nil
}

func (e *engine) Run() error {
	e.running = true
	e.handle()
	e.wg.Wait()
	e.running = false
	return e.err
}

// Quit signals all engine goroutines to stop and shuts down the engine.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel to signal all goroutines to exit.
// Uses sync.Once to ensure the channel is only closed once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
	})
}

// handle launches the engine and render goroutines.
// Each goroutine is tracked by the engine's WaitGroup.
func (e *engine) handle() {
	e.wg.Add(2)
	go e.handleEngine()
	go e.handleRender()
}

// handleEngine runs the fixed-rate engine tick loop in its own goroutine.
// Fires the tick callback at the configured tick rate and listens for dynamic rate changes
// via tickRateChannel. Exits when the quit channel is closed.
func (e *engine) handleEngine() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.engineTickRate)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			if e.tickCallback != nil {
				e.tickCallback(dt)
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.engineTickRate = newRate
		}
	}
}

// handleRender runs the uncapped (or frame-limited) render loop in its own goroutine.
// It is the only goroutine that touches the device while Run is active.
// Recovers from panics to avoid crashing the process and signals quit on recovery.
func (e *engine) handleRender() {
	defer e.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			e.err = fmt.Errorf("render goroutine panicked: %v", r)
			common.Logger().Error("render goroutine recovered from panic", "panic", r)
			e.signalQuit()
		}
	}()

	e.pathMu.Lock()
	e.profiler.Reset()
	e.pathMu.Unlock()
	started := time.Now()
	lastRender := started

	for {
		select {
		case <-e.quitChannel:
			return
		default:
			now := time.Now()
			dt := float32(now.Sub(lastRender).Seconds())
			lastRender = now

			if _, err := e.Frame(dt); err != nil {
				e.err = err
				common.Logger().Error("render loop stopped", "error", err)
				e.signalQuit()
				return
			}

			if e.measureDuration > 0 && time.Since(started) >= e.measureDuration {
				e.signalQuit()
				return
			}

			if e.renderFrameLimit > 0 {
				elapsed := time.Since(lastRender)
				if remaining := e.renderFrameLimit - elapsed; remaining > 0 {
					time.Sleep(remaining)
				}
			}
		}
	}
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

// SetTickRate sets the engine tick rate in frames per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := fpsInterval(fps)

	if !e.running {
		e.engineTickRate = newRate
		return
	}
	// replace a pending update rather than block
	select {
	case e.tickRateChannel <- newRate:
	default:
		select {
		case <-e.tickRateChannel:
		default:
		}
		e.tickRateChannel <- newRate
	}
}

func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

func (e *engine) SetRenderCallback(callback func(deltaTime float32)) {
	e.renderCallback = callback
}

// SetRenderFrameLimit sets an optional render frame rate cap.
// Pass 0 to uncap the render loop.
func (e *engine) SetRenderFrameLimit(fps float64) {
	if fps <= 0 {
		e.renderFrameLimit = 0
		return
	}
	e.renderFrameLimit = fpsInterval(fps)
}

func (e *engine) Shutdown() {
	e.pathMu.Lock()
	defer e.pathMu.Unlock()

	if e.path != nil {
		e.path.Shutdown()
	}
}

package engine

import (
	"time"

	"github.com/Carmen-Shannon/oxy-cluster/engine/render_path"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables periodic profiler output.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithTickRate sets the engine tick rate in frames per second.
// Values <= 0 will be treated as the default (60Hz).
//
// Parameters:
//   - fps: target ticks per second (default 60)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			fps = 60.0
		}
		e.engineTickRate = fpsInterval(fps)
	}
}

// WithRenderPath sets the requested render path. The engine falls back along the
// capability chain if the device does not support it.
//
// Parameters:
//   - kind: the requested path (default clustered_forward)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderPath(kind render_path.Kind) EngineBuilderOption {
	return func(e *engine) {
		e.pathKind = kind
	}
}

// WithPathOptions sets the culling options of the render path.
//
// Parameters:
//   - opts: the options
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithPathOptions(opts render_path.Options) EngineBuilderOption {
	return func(e *engine) {
		e.pathOptions = opts
	}
}

// WithShadingStage sets the shading stage handed to every render path.
//
// Parameters:
//   - stage: the shading stage
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithShadingStage(stage render_path.ShadingStage) EngineBuilderOption {
	return func(e *engine) {
		e.shading = stage
	}
}

// WithGPUTiming makes the render path wait for the device after every view so the
// profiler gets per-view GPU times. Off by default: the wait blocks the CPU each frame.
//
// Parameters:
//   - enabled: whether to measure per-view GPU time
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithGPUTiming(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.gpuTiming = enabled
	}
}

// WithViewport sets the backbuffer resolution. Zero sizes are ignored.
//
// Parameters:
//   - width: viewport width in pixels (default 1920)
//   - height: viewport height in pixels (default 1080)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithViewport(width, height uint32) EngineBuilderOption {
	return func(e *engine) {
		if width > 0 && height > 0 {
			e.width = width
			e.height = height
		}
	}
}

// WithMeasureDuration makes Run stop on its own after d.
//
// Parameters:
//   - d: the measurement window (0 = run until Quit)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithMeasureDuration(d time.Duration) EngineBuilderOption {
	return func(e *engine) {
		e.measureDuration = max(d, 0)
	}
}

// WithRenderFrameLimit sets an optional render frame rate cap in frames per second.
// Pass 0 to uncap the render loop (default).
//
// Parameters:
//   - fps: maximum render frames per second (0 = uncapped)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			e.renderFrameLimit = 0
			return
		}
		e.renderFrameLimit = fpsInterval(fps)
	}
}

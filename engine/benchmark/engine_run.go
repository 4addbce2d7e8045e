package benchmark

import (
	"context"
	"time"

	"github.com/Carmen-Shannon/oxy-cluster/common"
	"github.com/Carmen-Shannon/oxy-cluster/engine"
	"github.com/Carmen-Shannon/oxy-cluster/engine/profiler"
	"github.com/Carmen-Shannon/oxy-cluster/engine/render_path"
	"github.com/Carmen-Shannon/oxy-cluster/engine/renderer"
	"github.com/Carmen-Shannon/oxy-cluster/engine/scene"
)

// SceneFactory builds the scene measured by a run.
type SceneFactory func(lights int) scene.Scene

// EngineRun returns a RunFunc that renders each run on a fresh engine for the
// measurement window and reports the profiler averages.
//
// Parameters:
//   - device: the device every run renders on
//   - newScene: builds the scene for a light count
//   - base: culling options the parameter groups are applied to
//   - measure: the measurement window of each run
//   - options: extra engine options, applied after the run's own
//
// Returns:
//   - RunFunc: the measurement function
func EngineRun(device renderer.Device, newScene SceneFactory, base render_path.Options, measure time.Duration, options ...engine.EngineBuilderOption) RunFunc {
	return func(ctx context.Context, run Run) (profiler.Stats, error) {
		opts := append([]engine.EngineBuilderOption{
			engine.WithRenderPath(run.Path),
			engine.WithViewport(run.Resolution.Width, run.Resolution.Height),
			engine.WithPathOptions(run.Options(base)),
			engine.WithMeasureDuration(measure),
			engine.WithGPUTiming(true),
		}, options...)

		e, err := engine.NewEngine(device, newScene(run.Lights), opts...)
		if err != nil {
			return profiler.Stats{}, err
		}
		defer e.Shutdown()

		if e.Path().Kind() != run.Path {
			common.Logger().Warn("benchmark path replaced by fallback", "requested", run.Path, "path", e.Path().Kind())
		}

		stop := context.AfterFunc(ctx, e.Quit)
		defer stop()

		if err := e.Run(); err != nil {
			return profiler.Stats{}, err
		}
		return e.Stats(), ctx.Err()
	}
}

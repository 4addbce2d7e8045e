package benchmark

import (
	"context"
	"fmt"
	"io"

	"github.com/Carmen-Shannon/oxy-cluster/common"
	"github.com/Carmen-Shannon/oxy-cluster/engine/profiler"
)

// RunFunc performs one measurement and returns the averages of its window.
type RunFunc func(ctx context.Context, run Run) (profiler.Stats, error)

// Result pairs a run with its measured averages.
type Result struct {
	Run   Run
	Stats profiler.Stats
}

// Runner executes a benchmark plan and streams one CSV row per measured run.
type Runner interface {
	// Execute runs every measurement of the plan in order.
	//
	// Parameters:
	//   - ctx: cancels the sweep between runs
	//   - plan: the sweep to run
	//   - out: destination of the CSV rows, may be nil
	//
	// Returns:
	//   - []Result: the completed measurements
	//   - error: the first run or write error, or the context error
	Execute(ctx context.Context, plan Plan, out io.Writer) ([]Result, error)
}

type runner struct {
	run             RunFunc
	continueOnError bool
	progress        func(done, total int, run Run)
}

var _ Runner = &runner{}

// NewRunner creates a Runner around a measurement function.
//
// Parameters:
//   - run: performs a single measurement
//   - options: functional options for the runner
//
// Returns:
//   - Runner: the runner
func NewRunner(run RunFunc, options ...RunnerBuilderOption) Runner {
	r := &runner{run: run}
	for _, opt := range options {
		opt(r)
	}
	return r
}

func (r *runner) Execute(ctx context.Context, plan Plan, out io.Writer) ([]Result, error) {
	runs := plan.Runs()
	var w *Writer
	if out != nil {
		w = NewWriter(out)
	}

	results := make([]Result, 0, len(runs))
	for i, run := range runs {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		if r.progress != nil {
			r.progress(i, len(runs), run)
		}

		stats, err := r.run(ctx, run)
		if err != nil {
			if r.continueOnError {
				common.Logger().Warn("benchmark run failed", "run", run.String(), "error", err)
				continue
			}
			return results, fmt.Errorf("benchmark run %s: %w", run, err)
		}

		result := Result{Run: run, Stats: stats}
		results = append(results, result)
		if w != nil {
			if err := w.Write(result); err != nil {
				return results, err
			}
		}
		common.Logger().Debug("benchmark run complete", "run", run.String(), "frames", stats.Frames)
	}
	return results, nil
}

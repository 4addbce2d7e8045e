package benchmark

// RunnerBuilderOption is a functional option for configuring a Runner.
type RunnerBuilderOption func(*runner)

// WithContinueOnError makes the runner log failed runs and move on instead of stopping.
//
// Parameters:
//   - enabled: whether to keep going after a failed run
//
// Returns:
//   - RunnerBuilderOption: option function to apply
func WithContinueOnError(enabled bool) RunnerBuilderOption {
	return func(r *runner) {
		r.continueOnError = enabled
	}
}

// WithProgress sets a callback invoked before each run.
//
// Parameters:
//   - fn: receives the run index, the total number of runs and the run
//
// Returns:
//   - RunnerBuilderOption: option function to apply
func WithProgress(fn func(done, total int, run Run)) RunnerBuilderOption {
	return func(r *runner) {
		r.progress = fn
	}
}

package profiler

import "time"

// ProfilerBuilderOption is a function that configures a Profiler during construction.
type ProfilerBuilderOption func(*Profiler)

// WithUpdateInterval sets how often Tick logs. Non-positive values keep the default.
//
// Parameters:
//   - d: the log interval
//
// Returns:
//   - ProfilerBuilderOption: a function that applies the interval to a profiler
func WithUpdateInterval(d time.Duration) ProfilerBuilderOption {
	return func(p *Profiler) {
		if d > 0 {
			p.updateInterval = d
		}
	}
}

package cull

// PartitionerBuilderOption is a function that configures a Partitioner during construction.
type PartitionerBuilderOption func(*partitioner)

// WithRebuildEpsilon sets the absolute per-component projection change that triggers
// a rebuild. Non-positive values keep the default.
//
// Parameters:
//   - eps: the threshold
//
// Returns:
//   - PartitionerBuilderOption: a function that applies the epsilon to a partitioner
func WithRebuildEpsilon(eps float32) PartitionerBuilderOption {
	return func(p *partitioner) {
		if eps > 0 {
			p.epsilon = eps
		}
	}
}

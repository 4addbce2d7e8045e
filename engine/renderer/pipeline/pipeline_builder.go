package pipeline

import "github.com/cogentcore/webgpu/wgpu"

// PipelineBuilderOption is a functional option applied to a pipeline during construction via NewPipeline.
type PipelineBuilderOption func(*pipeline)

// WithBindGroupLayouts attaches bind group layouts created ahead of the pipeline, indexed by group.
//
// Parameters:
//   - groups: the bind group layouts
//
// Returns:
//   - PipelineBuilderOption: a function that applies the layouts option to a pipeline
func WithBindGroupLayouts(groups []*wgpu.BindGroupLayout) PipelineBuilderOption {
	return func(p *pipeline) {
		p.bindGroupLayouts = groups
	}
}

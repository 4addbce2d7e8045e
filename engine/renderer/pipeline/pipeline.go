package pipeline

import (
	"github.com/Carmen-Shannon/oxy-cluster/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// pipeline is the implementation of the Pipeline interface.
type pipeline struct {
	pipelineKey string

	computeShader shader.Shader

	// GPU objects, set once the device has created them
	computePipeline  *wgpu.ComputePipeline
	pipelineLayout   *wgpu.PipelineLayout
	bindGroupLayouts []*wgpu.BindGroupLayout
}

// Pipeline pairs a compute shader with the GPU pipeline objects created from it.
type Pipeline interface {
	// PipelineKey returns the unique identifier of the pipeline.
	PipelineKey() string

	// Shader returns the compute shader the pipeline runs.
	Shader() shader.Shader

	// ComputePipeline returns the created GPU pipeline, or nil before creation.
	ComputePipeline() *wgpu.ComputePipeline

	// BindGroupLayout returns the layout of the given bind group index, or nil.
	BindGroupLayout(group int) *wgpu.BindGroupLayout

	// SetComputePipeline stores the created GPU pipeline objects.
	//
	// Parameters:
	//   - p: the compute pipeline
	//   - layout: the pipeline layout
	//   - groups: bind group layouts indexed by group
	SetComputePipeline(p *wgpu.ComputePipeline, layout *wgpu.PipelineLayout, groups []*wgpu.BindGroupLayout)

	// Release destroys the GPU objects owned by the pipeline.
	Release()
}

var _ Pipeline = &pipeline{}

// NewPipeline creates a Pipeline for a compute shader. The GPU objects are created by the
// device and attached with SetComputePipeline.
//
// Parameters:
//   - pipelineKey: the unique identifier
//   - s: the compute shader
//   - opts: builder options
//
// Returns:
//   - Pipeline: the pipeline
func NewPipeline(pipelineKey string, s shader.Shader, opts ...PipelineBuilderOption) Pipeline {
	p := &pipeline{
		pipelineKey:   pipelineKey,
		computeShader: s,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *pipeline) PipelineKey() string {
	return p.pipelineKey
}

func (p *pipeline) Shader() shader.Shader {
	return p.computeShader
}

func (p *pipeline) ComputePipeline() *wgpu.ComputePipeline {
	return p.computePipeline
}

func (p *pipeline) BindGroupLayout(group int) *wgpu.BindGroupLayout {
	if group < 0 || group >= len(p.bindGroupLayouts) {
		return nil
	}
	return p.bindGroupLayouts[group]
}

func (p *pipeline) SetComputePipeline(cp *wgpu.ComputePipeline, layout *wgpu.PipelineLayout, groups []*wgpu.BindGroupLayout) {
	p.computePipeline = cp
	p.pipelineLayout = layout
	p.bindGroupLayouts = groups
}

func (p *pipeline) Release() {
	if p.computePipeline != nil {
		p.computePipeline.Release()
		p.computePipeline = nil
	}
	if p.pipelineLayout != nil {
		p.pipelineLayout.Release()
		p.pipelineLayout = nil
	}
	for i, bgl := range p.bindGroupLayouts {
		if bgl != nil {
			bgl.Release()
			p.bindGroupLayouts[i] = nil
		}
	}
}

package bind_group_provider

import (
	"maps"

	"github.com/cogentcore/webgpu/wgpu"
)

// bindGroupProvider is the implementation of the BindGroupProvider interface.
type bindGroupProvider struct {
	label string

	bindGroup       *wgpu.BindGroup
	bindGroupLayout *wgpu.BindGroupLayout

	// buffers the current bind group was built from, keyed by binding index
	buffers map[int]*wgpu.Buffer
}

// BindGroupProvider caches one bind group for a layout and rebuilds it only when the
// buffers behind its bindings change.
type BindGroupProvider interface {
	// Label returns the debug label.
	Label() string

	// BindGroup returns the cached bind group, or nil if none was built yet.
	BindGroup() *wgpu.BindGroup

	// BindGroupLayout returns the layout bind groups are built against.
	BindGroupLayout() *wgpu.BindGroupLayout

	// Buffer returns the buffer at a binding index, or nil.
	Buffer(binding int) *wgpu.Buffer

	// Buffers returns the buffers of the cached bind group keyed by binding index.
	Buffers() map[int]*wgpu.Buffer

	// Matches reports whether the cached bind group was built from exactly these buffers.
	//
	// Parameters:
	//   - buffers: the buffers keyed by binding index
	//
	// Returns:
	//   - bool: true if the cached bind group can be reused
	Matches(buffers map[int]*wgpu.Buffer) bool

	// SetBindGroup replaces the cached bind group, releasing the previous one.
	//
	// Parameters:
	//   - bg: the new bind group
	//   - buffers: the buffers it was built from, keyed by binding index
	SetBindGroup(bg *wgpu.BindGroup, buffers map[int]*wgpu.Buffer)

	// SetBindGroupLayout sets the layout bind groups are built against.
	SetBindGroupLayout(bgl *wgpu.BindGroupLayout)

	// Invalidate releases the cached bind group so the next use rebuilds it.
	Invalidate()

	// Release releases the cached bind group. The layout and buffers are owned elsewhere.
	Release()
}

var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates an empty BindGroupProvider.
//
// Parameters:
//   - label: the debug label
//   - options: builder options
//
// Returns:
//   - BindGroupProvider: the provider
func NewBindGroupProvider(label string, options ...BindGroupProviderOption) BindGroupProvider {
	p := &bindGroupProvider{
		label:   label,
		buffers: make(map[int]*wgpu.Buffer),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *bindGroupProvider) Label() string {
	return p.label
}

func (p *bindGroupProvider) BindGroup() *wgpu.BindGroup {
	return p.bindGroup
}

func (p *bindGroupProvider) BindGroupLayout() *wgpu.BindGroupLayout {
	return p.bindGroupLayout
}

func (p *bindGroupProvider) Buffer(binding int) *wgpu.Buffer {
	return p.buffers[binding]
}

func (p *bindGroupProvider) Buffers() map[int]*wgpu.Buffer {
	return p.buffers
}

func (p *bindGroupProvider) Matches(buffers map[int]*wgpu.Buffer) bool {
	return p.bindGroup != nil && maps.Equal(p.buffers, buffers)
}

func (p *bindGroupProvider) SetBindGroup(bg *wgpu.BindGroup, buffers map[int]*wgpu.Buffer) {
	if p.bindGroup != nil && p.bindGroup != bg {
		p.bindGroup.Release()
	}
	p.bindGroup = bg
	p.buffers = maps.Clone(buffers)
}

func (p *bindGroupProvider) SetBindGroupLayout(bgl *wgpu.BindGroupLayout) {
	p.bindGroupLayout = bgl
}

func (p *bindGroupProvider) Invalidate() {
	if p.bindGroup != nil {
		p.bindGroup.Release()
		p.bindGroup = nil
	}
	clear(p.buffers)
}

func (p *bindGroupProvider) Release() {
	p.Invalidate()
}

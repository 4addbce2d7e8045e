package shader

import (
	"errors"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// shader is the implementation of the Shader interface.
type shader struct {
	key                        string
	rawSource                  string
	source                     string
	bindings                   []Binding
	bindGroupLayoutDescriptors map[int]wgpu.BindGroupLayoutDescriptor
	structLayouts              map[string]StructLayout
	workGroupSize              [3]uint32
	entryPoint                 string
	module                     *wgpu.ShaderModuleDescriptor

	structs       map[AnnotationArg]StructEntry
	workgroupSize *[3]uint32
	validate      bool
	pp            PreProcessor
}

// Shader is a pre-processed and parsed WGSL compute kernel.
//
// The parsed metadata (bindings, struct layouts, workgroup size) lets devices create
// bind group layouts and pack uniform blocks without hand-maintained tables.
type Shader interface {
	// Key returns the unique identifier of the shader.
	Key() string

	// Source returns the processed WGSL source.
	Source() string

	// EntryPoint returns the name of the @compute function.
	EntryPoint() string

	// WorkgroupSize returns the parsed @workgroup_size as [x, y, z].
	WorkgroupSize() [3]uint32

	// Bindings returns the buffer bindings declared by the kernel, sorted by group then binding.
	Bindings() []Binding

	// Binding looks up the declaration at the given binding index of group 0.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - Binding: the declaration
	//   - bool: false if the kernel declares nothing at that index
	Binding(binding uint32) (Binding, bool)

	// BindGroupLayoutDescriptors returns wgpu layout descriptors keyed by group index.
	BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor

	// StructLayout returns the resolved layout of a struct declared in the source.
	//
	// Parameters:
	//   - name: the WGSL struct name
	//
	// Returns:
	//   - StructLayout: the layout
	//   - bool: false if the struct is not declared or could not be resolved
	StructLayout(name string) (StructLayout, bool)

	// Module returns the shader module descriptor for the processed source.
	Module() *wgpu.ShaderModuleDescriptor

	// Declarations returns the @oxy:group annotations collected during pre-processing.
	Declarations() []Annotation
}

var _ Shader = &shader{}

// NewShader pre-processes and parses a WGSL compute kernel.
//
// Parameters:
//   - key: unique identifier, also used as the module label
//   - source: the raw WGSL source, annotations included
//   - options: builder options registering structs or the workgroup size
//
// Returns:
//   - Shader: the parsed shader
//   - error: an error if pre-processing fails or the source has no @compute entry point
func NewShader(key string, source string, options ...ShaderBuilderOption) (Shader, error) {
	if source == "" {
		return nil, fmt.Errorf("shader %s: empty source", key)
	}
	s := &shader{
		key:       key,
		rawSource: source,
		structs:   make(map[AnnotationArg]StructEntry),
	}
	for _, opt := range options {
		opt(s)
	}
	s.pp = NewPreProcessor(s.structs, s.workgroupSize)

	if err := s.parse(); err != nil {
		return nil, fmt.Errorf("shader %s: %w", key, err)
	}
	if s.validate {
		if err := Validate(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) EntryPoint() string {
	return s.entryPoint
}

func (s *shader) WorkgroupSize() [3]uint32 {
	return s.workGroupSize
}

func (s *shader) Bindings() []Binding {
	return s.bindings
}

func (s *shader) Binding(binding uint32) (Binding, bool) {
	for _, b := range s.bindings {
		if b.Group == 0 && b.Binding == binding {
			return b, true
		}
	}
	return Binding{}, false
}

func (s *shader) BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor {
	return s.bindGroupLayoutDescriptors
}

func (s *shader) StructLayout(name string) (StructLayout, bool) {
	l, ok := s.structLayouts[name]
	return l, ok
}

func (s *shader) Module() *wgpu.ShaderModuleDescriptor {
	return s.module
}

func (s *shader) Declarations() []Annotation {
	return s.pp.Declarations()
}

func (s *shader) parse() error {
	processed, err := s.pp.Process(s.rawSource)
	if err != nil {
		return fmt.Errorf("failed to pre-process source: %w", err)
	}
	s.source = processed

	s.entryPoint = parseEntryPoint(s.source)
	if s.entryPoint == "" {
		return errors.New("no @compute entry point found")
	}
	s.workGroupSize = parseWorkgroupSize(s.source)
	s.bindings = parseBindings(s.source)
	s.bindGroupLayoutDescriptors = buildBindGroupLayouts(s.bindings, s.key)
	s.structLayouts = parseStructLayouts(s.source)
	s.module = &wgpu.ShaderModuleDescriptor{
		Label: s.key,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: s.source,
		},
	}
	return nil
}

package renderer

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-cluster/engine/renderer/shader"
)

// UniformSlot is the slot of the uniform block every kernel reads its uniforms from.
const UniformSlot uint32 = 0

// kernelBase holds what both backends know about a created kernel.
type kernelBase struct {
	name          string
	workgroupSize [3]uint32
	bindings      []KernelBinding
	shader        shader.Shader
	uniformBlock  string
}

func (k *kernelBase) Name() string {
	return k.name
}

func (k *kernelBase) WorkgroupSize() [3]uint32 {
	return k.workgroupSize
}

func (k *kernelBase) Bindings() []KernelBinding {
	return k.bindings
}

// prepareKernel pre-processes the kernel's WGSL and checks that the declared bindings agree
// with the tiers the source requests. Sources without WGSL skip the shader step.
//
// Parameters:
//   - src: the kernel description
//   - validate: run the processed source through naga
//
// Returns:
//   - *kernelBase: the prepared kernel metadata
//   - error: a description of the first inconsistency
func prepareKernel(src KernelSource, validate bool) (*kernelBase, error) {
	if src.Name == "" {
		return nil, errors.New("kernel without a name")
	}
	ws := src.WorkgroupSize
	for i := range ws {
		if ws[i] == 0 {
			ws[i] = 1
		}
	}
	k := &kernelBase{
		name:          src.Name,
		workgroupSize: ws,
		bindings:      src.Bindings,
		uniformBlock:  src.UniformBlock,
	}
	if src.WGSL == "" {
		return k, nil
	}

	structs := make(map[shader.AnnotationArg]shader.StructEntry, len(src.Structs))
	for key, st := range src.Structs {
		structs[shader.AnnotationArg(key)] = shader.StructEntry{Source: st.Source, Type: st.Type}
	}
	s, err := shader.NewShader(src.Name, src.WGSL,
		shader.WithStructs(structs),
		shader.WithWorkgroupSize(ws[0], ws[1], ws[2]),
		shader.WithValidation(validate),
	)
	if err != nil {
		return nil, err
	}
	if s.WorkgroupSize() != ws {
		return nil, fmt.Errorf("kernel %s: source workgroup size %v does not match %v", src.Name, s.WorkgroupSize(), ws)
	}

	declared := make(map[uint32]Access, len(src.Bindings))
	for _, b := range src.Bindings {
		declared[b.Slot] = b.Access
	}
	for _, b := range s.Bindings() {
		if b.AddressSpace == shader.AnnotationArgUniform {
			if b.Binding != UniformSlot {
				return nil, fmt.Errorf("kernel %s: uniform block %s must be bound at slot %d", src.Name, b.Name, UniformSlot)
			}
			continue
		}
		want, ok := declared[b.Binding]
		if !ok {
			return nil, fmt.Errorf("kernel %s: source binds slot %d (%s) which is not declared", src.Name, b.Binding, b.Name)
		}
		got := AccessRead
		if b.AddressSpace == shader.AnnotationArgReadWrite {
			got = AccessReadWrite
		}
		if got != want && !(want == AccessWrite && got == AccessReadWrite) {
			return nil, fmt.Errorf("kernel %s: slot %d declared %s but source uses %s", src.Name, b.Binding, want, got)
		}
	}
	k.shader = s
	return k, nil
}

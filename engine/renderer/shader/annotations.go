// annotations.go defines the annotation types and parser for the Oxy WGSL kernel
// pre-processor. Annotations are single-line WGSL comments prefixed with @oxy: that
// drive struct injection, binding declaration and workgroup sizing. Struct types are
// not known to this package; they are registered by the packages that own the GPU
// layouts (see WithStruct).
package shader

import (
	"fmt"
	"strconv"
	"strings"
)

// annotationPrefix is the marker that identifies an Oxy annotation within a WGSL comment line.
const annotationPrefix = "@oxy:"

// AnnotationType identifies the kind of annotation parsed from a WGSL comment line.
type AnnotationType string

const (
	// annotationTypeInclude injects the WGSL source of a registered struct definition
	// at the annotation site.
	//
	// Syntax: //@oxy:include <struct_key>
	annotationTypeInclude AnnotationType = "include"

	// AnnotationTypeBindingGroup generates a WGSL @group/@binding variable declaration
	// and records the annotation in the declarations list.
	//
	// Syntax: //@oxy:group <group> <binding> <address_space> <var_name> <type>
	//
	// The type is a registered struct key, a WGSL scalar, or either wrapped in
	// array<> and/or atomic<> (e.g. array<atomic<u32>>).
	//
	// Example: //@oxy:group 0 13 read_write light_index array<u32>
	AnnotationTypeBindingGroup AnnotationType = "group"

	// annotationTypeWorkgroup is replaced with the @workgroup_size attribute configured
	// for the shader through WithWorkgroupSize. It lets one kernel source serve several
	// thread layouts.
	//
	// Syntax: //@oxy:workgroup
	annotationTypeWorkgroup AnnotationType = "workgroup"

	// annotationTypeThreads declares a u32 module constant holding the configured
	// workgroup's total invocation count, for kernels that stride by it.
	//
	// Syntax: //@oxy:threads <const_name>
	annotationTypeThreads AnnotationType = "threads"
)

// Annotation represents a single parsed @oxy: annotation from a WGSL source line.
type Annotation struct {
	// Type identifies which annotation was parsed.
	Type AnnotationType

	// Args holds the annotation's arguments. The contents depend on Type:
	//   - include:   [0] = struct key
	//   - group:     [0] = address space, [1] = var name, [2] = type
	//   - workgroup: none
	Args []AnnotationArg

	// Line is the 1-based line number in the original WGSL source.
	Line int

	// Group is the @group index for group annotations. Nil otherwise.
	Group *int

	// Binding is the @binding index for group annotations. Nil otherwise.
	Binding *int
}

// AnnotationArg is a string argument of an annotation.
type AnnotationArg string

// Address space arguments accepted by @oxy:group.
const (
	// AnnotationArgUniform declares a var<uniform> binding.
	AnnotationArgUniform AnnotationArg = "uniform"

	// AnnotationArgRead declares a var<storage, read> binding.
	AnnotationArgRead AnnotationArg = "read"

	// AnnotationArgReadWrite declares a var<storage, read_write> binding.
	AnnotationArgReadWrite AnnotationArg = "read_write"
)

// addressSpaceSyntax maps address space arguments to their WGSL var<> syntax.
var addressSpaceSyntax = map[AnnotationArg]string{
	AnnotationArgUniform:   "var<uniform>",
	AnnotationArgRead:      "var<storage, read>",
	AnnotationArgReadWrite: "var<storage, read_write>",
}

// parseAnnotation attempts to parse a single line of WGSL source as an @oxy: annotation.
// Returns nil with no error for lines that do not carry the prefix. Type arguments are
// validated later against the pre-processor's registry.
//
// Parameters:
//   - line: the raw WGSL source line to parse
//   - lineNum: the 1-based line number for error reporting
//
// Returns:
//   - *Annotation: the parsed annotation, or nil if the line is not an annotation
//   - error: a descriptive error if the annotation is malformed
func parseAnnotation(line string, lineNum int) (*Annotation, error) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "//") {
		return nil, nil
	}
	_, after, ok := strings.Cut(trimmed, annotationPrefix)
	if !ok {
		return nil, nil
	}

	args := strings.Fields(after)
	if len(args) == 0 {
		return nil, fmt.Errorf("line %d: empty @oxy annotation", lineNum)
	}

	switch AnnotationType(args[0]) {
	case annotationTypeInclude:
		if len(args) != 2 {
			return nil, fmt.Errorf("line %d: @oxy include annotation requires exactly one argument", lineNum)
		}
		return &Annotation{
			Type: annotationTypeInclude,
			Args: []AnnotationArg{AnnotationArg(args[1])},
			Line: lineNum,
		}, nil
	case AnnotationTypeBindingGroup:
		if len(args) != 6 {
			return nil, fmt.Errorf("line %d: @oxy group annotation requires exactly five arguments (group, binding, address space, var name, type)", lineNum)
		}
		group, err := strconv.Atoi(args[1])
		if err != nil || group < 0 {
			return nil, fmt.Errorf("line %d: invalid group number %q in @oxy group annotation", lineNum, args[1])
		}
		binding, err := strconv.Atoi(args[2])
		if err != nil || binding < 0 {
			return nil, fmt.Errorf("line %d: invalid binding number %q in @oxy group annotation", lineNum, args[2])
		}
		if _, ok := addressSpaceSyntax[AnnotationArg(args[3])]; !ok {
			return nil, fmt.Errorf("line %d: unknown address space %q in @oxy group annotation", lineNum, args[3])
		}
		return &Annotation{
			Type:    AnnotationTypeBindingGroup,
			Args:    []AnnotationArg{AnnotationArg(args[3]), AnnotationArg(args[4]), AnnotationArg(args[5])},
			Line:    lineNum,
			Group:   &group,
			Binding: &binding,
		}, nil
	case annotationTypeWorkgroup:
		if len(args) != 1 {
			return nil, fmt.Errorf("line %d: @oxy workgroup annotation takes no arguments", lineNum)
		}
		return &Annotation{Type: annotationTypeWorkgroup, Line: lineNum}, nil
	case annotationTypeThreads:
		if len(args) != 2 {
			return nil, fmt.Errorf("line %d: @oxy threads annotation requires exactly one argument (const name)", lineNum)
		}
		return &Annotation{
			Type: annotationTypeThreads,
			Args: []AnnotationArg{AnnotationArg(args[1])},
			Line: lineNum,
		}, nil
	default:
		return nil, fmt.Errorf("line %d: unknown @oxy annotation type %q", lineNum, args[0])
	}
}

// pre_processor.go implements the Oxy WGSL kernel pre-processor. It scans kernel
// source for @oxy: annotations, replaces them with injected struct source or
// generated declarations, and collects the binding declarations so devices can
// validate what a kernel expects against what is bound.
package shader

import (
	"fmt"
	"strings"
)

// StructEntry pairs a WGSL struct source with the type name it declares.
type StructEntry struct {
	// Source is the raw WGSL struct definition injected by @oxy:include.
	Source string

	// Type is the WGSL type name emitted in generated @oxy:group declarations.
	Type string
}

// preProcessor is the implementation of the PreProcessor interface.
type preProcessor struct {
	structRegistry map[AnnotationArg]StructEntry
	workgroupSize  *[3]uint32
	declarations   []Annotation
}

// PreProcessor processes raw WGSL kernel source containing @oxy: annotations.
type PreProcessor interface {
	// Process replaces every annotation in source with its WGSL output. The declarations
	// list is reset at the start of each call.
	//
	// Parameters:
	//   - source: the raw WGSL source code
	//
	// Returns:
	//   - string: the processed WGSL source
	//   - error: an error if an annotation is malformed or references an unregistered type
	Process(source string) (string, error)

	// Declarations returns the group annotations collected during the most recent Process call,
	// in source order.
	//
	// Returns:
	//   - []Annotation: the collected declarations
	Declarations() []Annotation
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a PreProcessor.
//
// Parameters:
//   - structs: the struct registry keyed by include/type argument (may be nil)
//   - workgroupSize: the size substituted for //@oxy:workgroup, or nil if the kernel has none
//
// Returns:
//   - PreProcessor: a ready-to-use pre-processor instance
func NewPreProcessor(structs map[AnnotationArg]StructEntry, workgroupSize *[3]uint32) PreProcessor {
	if structs == nil {
		structs = make(map[AnnotationArg]StructEntry)
	}
	return &preProcessor{
		structRegistry: structs,
		workgroupSize:  workgroupSize,
	}
}

func (p *preProcessor) Process(source string) (string, error) {
	p.declarations = p.declarations[:0]

	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))
	included := make(map[AnnotationArg]bool)

	for i, line := range lines {
		a, err := parseAnnotation(line, i+1)
		if err != nil {
			return "", err
		}
		if a == nil {
			out = append(out, line)
			continue
		}

		switch a.Type {
		case annotationTypeInclude:
			entry, ok := p.structRegistry[a.Args[0]]
			if !ok {
				return "", fmt.Errorf("line %d: unknown @oxy:include argument %q", a.Line, a.Args[0])
			}
			// a struct may be included by several kernels sharing a snippet; declare it once
			if included[a.Args[0]] {
				continue
			}
			included[a.Args[0]] = true
			out = append(out, entry.Source)
		case AnnotationTypeBindingGroup:
			wgslType, err := p.resolveType(string(a.Args[2]))
			if err != nil {
				return "", fmt.Errorf("line %d: %w", a.Line, err)
			}
			out = append(out, fmt.Sprintf("@group(%d) @binding(%d) %s %s: %s;",
				*a.Group, *a.Binding, addressSpaceSyntax[a.Args[0]], a.Args[1], wgslType))
			p.declarations = append(p.declarations, *a)
		case annotationTypeWorkgroup:
			if p.workgroupSize == nil {
				return "", fmt.Errorf("line %d: @oxy:workgroup used but no workgroup size was configured", a.Line)
			}
			ws := *p.workgroupSize
			out = append(out, fmt.Sprintf("@workgroup_size(%d, %d, %d)", ws[0], ws[1], ws[2]))
		case annotationTypeThreads:
			if p.workgroupSize == nil {
				return "", fmt.Errorf("line %d: @oxy:threads used but no workgroup size was configured", a.Line)
			}
			ws := *p.workgroupSize
			out = append(out, fmt.Sprintf("const %s: u32 = %du;", a.Args[0], ws[0]*ws[1]*ws[2]))
		default:
			return "", fmt.Errorf("line %d: unknown annotation type %q", a.Line, a.Type)
		}
	}
	return strings.Join(out, "\n"), nil
}

func (p *preProcessor) Declarations() []Annotation {
	return p.declarations
}

// resolveType maps an annotation type argument to WGSL, unwrapping array<> and atomic<>.
// Registered struct keys resolve to their declared type name; scalars pass through.
func (p *preProcessor) resolveType(arg string) (string, error) {
	for _, wrapper := range []string{"array<", "atomic<"} {
		if inner, ok := strings.CutPrefix(arg, wrapper); ok {
			inner, ok = strings.CutSuffix(inner, ">")
			if !ok {
				return "", fmt.Errorf("malformed type %q", arg)
			}
			resolved, err := p.resolveType(inner)
			if err != nil {
				return "", err
			}
			return wrapper + resolved + ">", nil
		}
	}
	if entry, ok := p.structRegistry[AnnotationArg(arg)]; ok {
		return entry.Type, nil
	}
	if _, ok := wgslPrimitiveLayoutMap[arg]; ok {
		return arg, nil
	}
	return "", fmt.Errorf("unknown type %q in @oxy group annotation", arg)
}

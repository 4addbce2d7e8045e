package shader

// wgslTypeLayout holds the byte size and alignment for a WGSL type per the WGSL specification.
type wgslTypeLayout struct {
	size  uint64
	align uint64
}

// parsedField represents a single field extracted from a WGSL struct during parsing.
type parsedField struct {
	name      string
	typeName  string
	isBuiltin bool
}

// parsedStruct represents a WGSL struct block extracted during parsing.
type parsedStruct struct {
	name   string
	fields []parsedField
}

// FieldLayout describes where a struct member lives inside a host-shareable buffer.
type FieldLayout struct {
	Name   string
	Type   string
	Offset uint64
	Size   uint64
}

// StructLayout is the resolved memory layout of a WGSL struct.
type StructLayout struct {
	Name   string
	Size   uint64
	Align  uint64
	Fields []FieldLayout
}

// Field returns the member with the given name.
//
// Parameters:
//   - name: the member name
//
// Returns:
//   - FieldLayout: the member layout
//   - bool: false if the struct has no such member
func (s StructLayout) Field(name string) (FieldLayout, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldLayout{}, false
}

// Binding is a resource declaration parsed from a kernel's @group/@binding lines.
type Binding struct {
	Group   uint32
	Binding uint32
	Name    string
	Type    string

	// AddressSpace is AnnotationArgUniform, AnnotationArgRead or AnnotationArgReadWrite.
	AddressSpace AnnotationArg

	// MinSize is the resolved size of Type. For runtime-sized arrays it is one element stride.
	MinSize uint64
}

package shader

// ShaderBuilderOption is a functional option applied to a shader during construction via NewShader.
type ShaderBuilderOption func(*shader)

// WithStruct registers a WGSL struct that the source may pull in with //@oxy:include
// or reference as a binding type in //@oxy:group.
//
// Parameters:
//   - key: the annotation argument naming the struct
//   - entry: the struct source and its WGSL type name
//
// Returns:
//   - ShaderBuilderOption: a function that applies the struct option to a shader
func WithStruct(key AnnotationArg, entry StructEntry) ShaderBuilderOption {
	return func(s *shader) {
		s.structs[key] = entry
	}
}

// WithStructs registers several structs at once. See WithStruct.
//
// Parameters:
//   - entries: structs keyed by annotation argument
//
// Returns:
//   - ShaderBuilderOption: a function that applies the structs option to a shader
func WithStructs(entries map[AnnotationArg]StructEntry) ShaderBuilderOption {
	return func(s *shader) {
		for k, v := range entries {
			s.structs[k] = v
		}
	}
}

// WithWorkgroupSize sets the size substituted for //@oxy:workgroup.
//
// Parameters:
//   - x, y, z: the workgroup dimensions
//
// Returns:
//   - ShaderBuilderOption: a function that applies the workgroup option to a shader
func WithWorkgroupSize(x, y, z uint32) ShaderBuilderOption {
	return func(s *shader) {
		s.workgroupSize = &[3]uint32{x, y, z}
	}
}

// WithValidation runs the processed source through Validate during NewShader.
//
// Parameters:
//   - enabled: true to validate
//
// Returns:
//   - ShaderBuilderOption: a function that applies the validation option to a shader
func WithValidation(enabled bool) ShaderBuilderOption {
	return func(s *shader) {
		s.validate = enabled
	}
}

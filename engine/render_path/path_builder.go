package render_path

// PathBuilderOption is a function that configures a Path during construction.
type PathBuilderOption func(*pathBase)

// WithShadingStage sets the stage that consumes the bound light data.
//
// Parameters:
//   - stage: the shading stage; nil keeps the default no-op stage
//
// Returns:
//   - PathBuilderOption: a function that applies the stage to a path
func WithShadingStage(stage ShadingStage) PathBuilderOption {
	return func(b *pathBase) {
		if stage != nil {
			b.shading = stage
		}
	}
}

// WithOptions sets the initial culling options.
//
// Parameters:
//   - opts: the options
//
// Returns:
//   - PathBuilderOption: a function that applies the options to a path
func WithOptions(opts Options) PathBuilderOption {
	return func(b *pathBase) {
		b.opts = opts
	}
}

// WithGPUTiming makes the path wait for the device after every view so per-view GPU
// times are measured. The wait blocks the CPU, so it is meant for benchmark runs only.
//
// Parameters:
//   - enabled: whether to drain the device after each view
//
// Returns:
//   - PathBuilderOption: a function that applies the option to a path
func WithGPUTiming(enabled bool) PathBuilderOption {
	return func(b *pathBase) {
		b.gpuTiming = enabled
	}
}

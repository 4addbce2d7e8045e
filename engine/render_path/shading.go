package render_path

import (
	"github.com/Carmen-Shannon/oxy-cluster/engine/camera"
	"github.com/Carmen-Shannon/oxy-cluster/engine/cull"
	"github.com/Carmen-Shannon/oxy-cluster/engine/renderer"
)

// ShadingInput is what a path hands its shading stage once the light data is bound.
type ShadingInput struct {
	Kind     Kind
	Device   renderer.Device
	Camera   camera.Camera
	Viewport [2]uint32

	// LightCount is the number of lights in the bound light buffer.
	LightCount uint32

	// Grid is the culled cell grid, nil for paths without culling. When set, the light
	// grid and light index are bound read-only.
	Grid *cull.Grid

	// Uniforms are the cell-mapping uniforms for culled paths.
	Uniforms map[string][4]float32
}

// ShadingStage consumes the bound light data. Material and BRDF evaluation live behind
// this interface.
type ShadingStage interface {
	Shade(in ShadingInput) error
}

// ShadingFunc adapts a function to a ShadingStage.
type ShadingFunc func(in ShadingInput) error

// Shade calls f.
func (f ShadingFunc) Shade(in ShadingInput) error {
	return f(in)
}

type nopShading struct{}

func (nopShading) Shade(ShadingInput) error { return nil }

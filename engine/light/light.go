package light

import "github.com/go-gl/mathgl/mgl32"

// lightImpl is the implementation of the Light interface.
type lightImpl struct {
	position   mgl32.Vec3
	color      mgl32.Vec3
	intensity  float32
	lightRange float32
	enabled    bool
}

// Light defines the interface for a point light in the scene.
//
// Point lights emit in all directions from a world-space position and stop
// contributing beyond their range. The culling stage treats each light as a
// sphere of radius Range around Position; color and intensity are carried
// through untouched for the shading stage.
type Light interface {
	// Position returns the world-space position of the light.
	//
	// Returns:
	//   - mgl32.Vec3: position as (x, y, z)
	Position() mgl32.Vec3

	// Color returns the linear RGB color of the light.
	//
	// Returns:
	//   - mgl32.Vec3: color as (r, g, b)
	Color() mgl32.Vec3

	// Intensity returns the scalar multiplier applied to the color.
	//
	// Returns:
	//   - float32: the intensity
	Intensity() float32

	// Range returns the influence radius of the light in world units.
	//
	// Returns:
	//   - float32: the radius
	Range() float32

	// Enabled reports whether the light takes part in culling and shading.
	//
	// Returns:
	//   - bool: true if enabled
	Enabled() bool

	// SetPosition moves the light.
	//
	// Parameters:
	//   - p: the new world-space position
	SetPosition(p mgl32.Vec3)

	// SetColor sets the RGB color.
	//
	// Parameters:
	//   - c: the new color
	SetColor(c mgl32.Vec3)

	// SetIntensity sets the scalar multiplier.
	//
	// Parameters:
	//   - intensity: the new intensity
	SetIntensity(intensity float32)

	// SetRange sets the influence radius. Negative values are clamped to zero.
	//
	// Parameters:
	//   - lightRange: the new radius
	SetRange(lightRange float32)

	// SetEnabled toggles the light.
	//
	// Parameters:
	//   - enabled: whether the light is active
	SetEnabled(enabled bool)
}

var _ Light = &lightImpl{}

// NewLight creates a new point light with the given options applied.
// Defaults: origin, white, intensity 1, range 1, enabled.
//
// Parameters:
//   - opts: variadic list of LightBuilderOption functions
//
// Returns:
//   - Light: the constructed light
func NewLight(opts ...LightBuilderOption) Light {
	l := &lightImpl{
		color:      mgl32.Vec3{1, 1, 1},
		intensity:  1,
		lightRange: 1,
		enabled:    true,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *lightImpl) Position() mgl32.Vec3 {
	return l.position
}

func (l *lightImpl) Color() mgl32.Vec3 {
	return l.color
}

func (l *lightImpl) Intensity() float32 {
	return l.intensity
}

func (l *lightImpl) Range() float32 {
	return l.lightRange
}

func (l *lightImpl) Enabled() bool {
	return l.enabled
}

func (l *lightImpl) SetPosition(p mgl32.Vec3) {
	l.position = p
}

func (l *lightImpl) SetColor(c mgl32.Vec3) {
	l.color = c
}

func (l *lightImpl) SetIntensity(intensity float32) {
	l.intensity = intensity
}

func (l *lightImpl) SetRange(lightRange float32) {
	l.lightRange = max(lightRange, 0)
}

func (l *lightImpl) SetEnabled(enabled bool) {
	l.enabled = enabled
}

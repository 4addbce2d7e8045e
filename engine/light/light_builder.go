package light

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// AttenuationCutoff is the irradiance below which a light is considered to no
// longer contribute. RangeForPower uses it to derive a radius from intensity.
const AttenuationCutoff float32 = 0.01

// LightBuilderOption is a function that configures a Light instance during construction.
type LightBuilderOption func(*lightImpl)

// WithPosition is an option builder that sets the world-space position of the light.
//
// Parameters:
//   - x: the x position component
//   - y: the y position component
//   - z: the z position component
//
// Returns:
//   - LightBuilderOption: a function that applies the position option to a lightImpl
func WithPosition(x, y, z float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.position = mgl32.Vec3{x, y, z}
	}
}

// WithColor is an option builder that sets the RGB color of the light.
//
// Parameters:
//   - r: red component
//   - g: green component
//   - b: blue component
//
// Returns:
//   - LightBuilderOption: a function that applies the color option to a lightImpl
func WithColor(r, g, b float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.color = mgl32.Vec3{r, g, b}
	}
}

// WithIntensity is an option builder that sets the intensity of the light.
//
// Parameters:
//   - intensity: the scalar multiplier
//
// Returns:
//   - LightBuilderOption: a function that applies the intensity option to a lightImpl
func WithIntensity(intensity float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.intensity = intensity
	}
}

// WithRange is an option builder that sets the influence radius of the light.
// Negative values are clamped to zero.
//
// Parameters:
//   - lightRange: the radius in world units
//
// Returns:
//   - LightBuilderOption: a function that applies the range option to a lightImpl
func WithRange(lightRange float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.lightRange = max(lightRange, 0)
	}
}

// WithRangeFromPower is an option builder that sets the intensity and derives the
// range from it using RangeForPower.
//
// Parameters:
//   - power: the light intensity
//
// Returns:
//   - LightBuilderOption: a function that applies the intensity and range to a lightImpl
func WithRangeFromPower(power float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.intensity = power
		l.lightRange = RangeForPower(power)
	}
}

// WithEnabled is an option builder that sets whether the light starts enabled.
//
// Parameters:
//   - enabled: the initial state
//
// Returns:
//   - LightBuilderOption: a function that applies the enabled option to a lightImpl
func WithEnabled(enabled bool) LightBuilderOption {
	return func(l *lightImpl) {
		l.enabled = enabled
	}
}

// RangeForPower returns the distance at which an inverse-square falloff of the
// given power drops to AttenuationCutoff.
//
// Parameters:
//   - power: the light intensity
//
// Returns:
//   - float32: the radius, zero for non-positive power
func RangeForPower(power float32) float32 {
	if power <= 0 {
		return 0
	}
	return float32(math.Sqrt(float64(power / AttenuationCutoff)))
}

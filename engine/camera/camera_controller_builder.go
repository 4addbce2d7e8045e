package camera

import "github.com/go-gl/mathgl/mgl32"

// ControllerOption is a functional option for configuring an orbit controller.
type ControllerOption func(*orbitController)

// WithRadius sets the initial orbit radius (distance from target).
//
// Parameters:
//   - radius: distance from the orbit target
//
// Returns:
//   - ControllerOption: functional option to set the radius
func WithRadius(radius float32) ControllerOption {
	return func(cc *orbitController) {
		cc.radius = radius
	}
}

// WithAzimuth sets the initial horizontal angle around the Y axis.
//
// Parameters:
//   - azimuth: horizontal angle in radians (0 = +Z axis)
//
// Returns:
//   - ControllerOption: functional option to set the azimuth
func WithAzimuth(azimuth float32) ControllerOption {
	return func(cc *orbitController) {
		cc.azimuth = wrapAngle(azimuth)
	}
}

// WithElevation sets the initial vertical angle from the horizontal plane.
//
// Parameters:
//   - elevation: vertical angle in radians (0 = horizontal)
//
// Returns:
//   - ControllerOption: functional option to set the elevation
func WithElevation(elevation float32) ControllerOption {
	return func(cc *orbitController) {
		cc.elevation = elevation
	}
}

// WithTarget sets the look-at/pivot point.
//
// Parameters:
//   - x, y, z: target coordinates
//
// Returns:
//   - ControllerOption: functional option to set the target position
func WithTarget(x, y, z float32) ControllerOption {
	return func(cc *orbitController) {
		cc.target = mgl32.Vec3{x, y, z}
	}
}

// WithRadiusBounds sets the zoom limits.
//
// Parameters:
//   - lo: minimum radius
//   - hi: maximum radius
//
// Returns:
//   - ControllerOption: functional option to set the radius bounds
func WithRadiusBounds(lo, hi float32) ControllerOption {
	return func(cc *orbitController) {
		cc.minRadius = lo
		cc.maxRadius = hi
	}
}

// WithZoomSpeed sets the radius change per unit of Zoom delta.
func WithZoomSpeed(speed float32) ControllerOption {
	return func(cc *orbitController) {
		cc.zoomSpeed = speed
	}
}

// WithAutoOrbit enables automatic orbiting at the given angular speed.
//
// Parameters:
//   - radiansPerSecond: azimuth change per second
//
// Returns:
//   - ControllerOption: functional option enabling auto-orbit
func WithAutoOrbit(radiansPerSecond float32) ControllerOption {
	return func(cc *orbitController) {
		cc.autoOrbit = true
		cc.autoOrbitSpeed = radiansPerSecond
	}
}

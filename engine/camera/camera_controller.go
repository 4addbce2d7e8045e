package camera

import "github.com/go-gl/mathgl/mgl32"

// Controller drives the camera eye position. The orbit controller keeps the eye
// on a sphere around a target and can advance around it on its own, which is
// how the benchmark moves the camera without input.
type Controller interface {
	// Position returns the world-space eye position.
	//
	// Returns:
	//   - mgl32.Vec3: the eye position
	Position() mgl32.Vec3

	// Target returns the look-at/pivot point.
	//
	// Returns:
	//   - mgl32.Vec3: the target
	Target() mgl32.Vec3

	// SetTarget moves the pivot and recomputes the eye position.
	//
	// Parameters:
	//   - target: the new pivot
	SetTarget(target mgl32.Vec3)

	// Zoom moves the eye toward the target by delta scaled by the zoom speed,
	// clamped to the radius bounds.
	//
	// Parameters:
	//   - delta: positive zooms in
	Zoom(delta float32)

	// Orbit rotates the eye around the target. Elevation is clamped.
	//
	// Parameters:
	//   - dAzimuth: horizontal change in radians
	//   - dElevation: vertical change in radians
	Orbit(dAzimuth, dElevation float32)

	// Radius returns the distance from the target.
	Radius() float32

	// SetRadius sets the distance from the target, clamped to the bounds.
	SetRadius(radius float32)

	// Azimuth returns the horizontal angle around the Y axis in radians.
	Azimuth() float32

	// SetAzimuth sets the horizontal angle.
	SetAzimuth(azimuth float32)

	// Elevation returns the vertical angle from the horizontal plane in radians.
	Elevation() float32

	// SetElevation sets the vertical angle, clamped to the bounds.
	SetElevation(elevation float32)

	// AutoOrbit reports whether Update advances the azimuth on its own.
	AutoOrbit() bool

	// SetAutoOrbit toggles automatic orbiting.
	SetAutoOrbit(enabled bool)

	// Update advances automatic orbiting by dt seconds. No-op when auto-orbit is off.
	//
	// Parameters:
	//   - dt: elapsed time in seconds
	Update(dt float32)
}

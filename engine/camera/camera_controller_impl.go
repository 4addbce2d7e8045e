package camera

import (
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

// orbitController keeps the eye on a sphere around a target, parameterized by
// radius, azimuth and elevation.
type orbitController struct {
	mu *sync.Mutex

	position mgl32.Vec3
	target   mgl32.Vec3

	radius    float32
	azimuth   float32 // horizontal angle around Y, 0 = +Z
	elevation float32 // vertical angle from horizontal plane

	minRadius    float32
	maxRadius    float32
	minElevation float32
	maxElevation float32

	zoomSpeed float32

	autoOrbit      bool
	autoOrbitSpeed float32 // radians per second
}

var _ Controller = &orbitController{}

// NewOrbitController creates a new orbit controller with sensible defaults:
// radius 20 within [2, 200], elevation 30 degrees, auto-orbit off at 0.2 rad/s.
//
// Parameters:
//   - options: functional options to configure the controller
//
// Returns:
//   - Controller: the newly created controller
func NewOrbitController(options ...ControllerOption) Controller {
	cc := &orbitController{
		mu: &sync.Mutex{},

		radius:    20.0,
		elevation: float32(math.Pi / 6),

		minRadius:    2.0,
		maxRadius:    200.0,
		minElevation: -float32(math.Pi/2 - 0.1),
		maxElevation: float32(math.Pi/2 - 0.1),

		zoomSpeed:      1.0,
		autoOrbitSpeed: 0.2,
	}
	for _, option := range options {
		option(cc)
	}
	cc.radius = clamp(cc.radius, cc.minRadius, cc.maxRadius)
	cc.elevation = clamp(cc.elevation, cc.minElevation, cc.maxElevation)
	cc.updatePosition()
	return cc
}

// updatePosition recomputes the eye from the spherical coordinates.
// Caller must hold the mutex.
func (cc *orbitController) updatePosition() {
	cosElev := float32(math.Cos(float64(cc.elevation)))
	sinElev := float32(math.Sin(float64(cc.elevation)))
	cosAzim := float32(math.Cos(float64(cc.azimuth)))
	sinAzim := float32(math.Sin(float64(cc.azimuth)))

	cc.position = cc.target.Add(mgl32.Vec3{
		cc.radius * cosElev * sinAzim,
		cc.radius * sinElev,
		cc.radius * cosElev * cosAzim,
	})
}

func clamp(v, lo, hi float32) float32 {
	return max(lo, min(v, hi))
}

func (cc *orbitController) Position() mgl32.Vec3 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.position
}

func (cc *orbitController) Target() mgl32.Vec3 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.target
}

func (cc *orbitController) SetTarget(target mgl32.Vec3) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.target = target
	cc.updatePosition()
}

func (cc *orbitController) Zoom(delta float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.radius = clamp(cc.radius-delta*cc.zoomSpeed, cc.minRadius, cc.maxRadius)
	cc.updatePosition()
}

func (cc *orbitController) Orbit(dAzimuth, dElevation float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.azimuth = wrapAngle(cc.azimuth + dAzimuth)
	cc.elevation = clamp(cc.elevation+dElevation, cc.minElevation, cc.maxElevation)
	cc.updatePosition()
}

func (cc *orbitController) Radius() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.radius
}

func (cc *orbitController) SetRadius(radius float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.radius = clamp(radius, cc.minRadius, cc.maxRadius)
	cc.updatePosition()
}

func (cc *orbitController) Azimuth() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.azimuth
}

func (cc *orbitController) SetAzimuth(azimuth float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.azimuth = wrapAngle(azimuth)
	cc.updatePosition()
}

func (cc *orbitController) Elevation() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.elevation
}

func (cc *orbitController) SetElevation(elevation float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.elevation = clamp(elevation, cc.minElevation, cc.maxElevation)
	cc.updatePosition()
}

func (cc *orbitController) AutoOrbit() bool {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.autoOrbit
}

func (cc *orbitController) SetAutoOrbit(enabled bool) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.autoOrbit = enabled
}

func (cc *orbitController) Update(dt float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	if !cc.autoOrbit || dt == 0 {
		return
	}
	cc.azimuth = wrapAngle(cc.azimuth + cc.autoOrbitSpeed*dt)
	cc.updatePosition()
}

// wrapAngle keeps an angle in [0, 2π).
func wrapAngle(a float32) float32 {
	const twoPi = 2 * math.Pi
	w := float32(math.Mod(float64(a), twoPi))
	if w < 0 {
		w += twoPi
	}
	return w
}

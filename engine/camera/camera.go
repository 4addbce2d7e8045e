package camera

import (
	"math"
	"sync"

	"github.com/Carmen-Shannon/oxy-cluster/common"
	"github.com/go-gl/mathgl/mgl32"
)

// ProjectionParams holds the perspective settings the culling stage derives its
// cell geometry from.
type ProjectionParams struct {
	Fov    float32 // vertical field of view in radians
	Aspect float32 // width / height
	Near   float32
	Far    float32
}

// Matrix returns the WebGPU-convention perspective matrix for the parameters.
//
// Returns:
//   - mgl32.Mat4: the projection matrix
func (p ProjectionParams) Matrix() mgl32.Mat4 {
	return common.Perspective(p.Fov, p.Aspect, p.Near, p.Far)
}

type cameraImpl struct {
	mu *sync.Mutex

	up         mgl32.Vec3
	projection ProjectionParams

	viewMatrix              mgl32.Mat4
	projectionMatrix        mgl32.Mat4
	inverseProjectionMatrix mgl32.Mat4

	controller Controller
}

// Camera defines the interface for the camera system.
// The camera holds perspective settings and computes view/projection matrices
// from an attached Controller each frame via Update().
type Camera interface {
	// ProjectionParams returns the current perspective settings.
	//
	// Returns:
	//   - ProjectionParams: fov, aspect, near and far
	ProjectionParams() ProjectionParams

	// ViewMatrix returns the world-to-view transform. View space is right-handed
	// with the camera looking down -Z.
	//
	// Returns:
	//   - mgl32.Mat4: the view matrix
	ViewMatrix() mgl32.Mat4

	// ProjectionMatrix returns the view-to-clip transform.
	//
	// Returns:
	//   - mgl32.Mat4: the projection matrix
	ProjectionMatrix() mgl32.Mat4

	// InverseProjectionMatrix returns the clip-to-view transform.
	//
	// Returns:
	//   - mgl32.Mat4: the inverse projection matrix
	InverseProjectionMatrix() mgl32.Mat4

	// Position returns the world-space eye position, the origin when no
	// controller is attached.
	//
	// Returns:
	//   - mgl32.Vec3: the eye position
	Position() mgl32.Vec3

	// SetProjection replaces the perspective settings.
	//
	// Parameters:
	//   - p: the new settings
	SetProjection(p ProjectionParams)

	// SetViewport updates the aspect ratio from a viewport size. Zero sizes are ignored.
	//
	// Parameters:
	//   - width: viewport width in pixels
	//   - height: viewport height in pixels
	SetViewport(width, height uint32)

	// Controller returns the attached controller, or nil.
	//
	// Returns:
	//   - Controller: the controller
	Controller() Controller

	// SetController attaches a controller that drives the eye position.
	//
	// Parameters:
	//   - ctrl: the controller
	SetController(ctrl Controller)

	// Update advances the controller by dt seconds and recomputes the matrices.
	//
	// Parameters:
	//   - dt: elapsed time in seconds
	Update(dt float32)
}

var _ Camera = &cameraImpl{}

// NewCamera creates a new Camera with default perspective settings
// (45 degree fov, aspect 1, near 0.1, far 100).
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu: &sync.Mutex{},
		up: mgl32.Vec3{0, 1, 0},
		projection: ProjectionParams{
			Fov:    45.0 * (math.Pi / 180.0),
			Aspect: 1.0,
			Near:   0.1,
			Far:    100.0,
		},
		viewMatrix: mgl32.Ident4(),
	}
	for _, option := range options {
		option(c)
	}
	c.updateMatrices()
	return c
}

func (c *cameraImpl) ProjectionParams() ProjectionParams {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projection
}

func (c *cameraImpl) ViewMatrix() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewMatrix
}

func (c *cameraImpl) ProjectionMatrix() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projectionMatrix
}

func (c *cameraImpl) InverseProjectionMatrix() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inverseProjectionMatrix
}

func (c *cameraImpl) Position() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.controller == nil {
		return mgl32.Vec3{}
	}
	return c.controller.Position()
}

func (c *cameraImpl) SetProjection(p ProjectionParams) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.projection = p
	c.updateMatrices()
}

func (c *cameraImpl) SetViewport(width, height uint32) {
	if width == 0 || height == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.projection.Aspect = float32(width) / float32(height)
	c.updateMatrices()
}

func (c *cameraImpl) Controller() Controller {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.controller
}

func (c *cameraImpl) SetController(ctrl Controller) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.controller = ctrl
	c.updateMatrices()
}

func (c *cameraImpl) Update(dt float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.controller != nil {
		c.controller.Update(dt)
	}
	c.updateMatrices()
}

// updateMatrices recalculates the view, projection and inverse projection matrices.
// The view matrix is only recomputed when a controller is attached.
// Caller must hold the mutex.
func (c *cameraImpl) updateMatrices() {
	if c.controller != nil {
		c.viewMatrix = mgl32.LookAtV(c.controller.Position(), c.controller.Target(), c.up)
	}
	c.projectionMatrix = c.projection.Matrix()
	c.inverseProjectionMatrix = c.projectionMatrix.Inv()
}

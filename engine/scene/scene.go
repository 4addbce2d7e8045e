package scene

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-cluster/common"
	"github.com/Carmen-Shannon/oxy-cluster/engine/camera"
	"github.com/Carmen-Shannon/oxy-cluster/engine/light"
)

// Scene holds the camera and the light list the culling stage reads each frame.
// Thread-safe for concurrent access.
type Scene interface {
	// Name returns the scene's identifier.
	Name() string

	// Camera returns the scene's camera.
	Camera() camera.Camera

	// SetCamera replaces the scene's camera.
	//
	// Parameters:
	//   - cam: the new camera
	SetCamera(cam camera.Camera)

	// AddLight appends a light to the scene.
	//
	// Parameters:
	//   - l: the light to add
	AddLight(l light.Light)

	// SetLights replaces the full light list.
	//
	// Parameters:
	//   - lights: the new lights, in order
	SetLights(lights []light.Light)

	// Lights returns a copy of every light in the scene, enabled or not.
	//
	// Returns:
	//   - []light.Light: the lights in insertion order
	Lights() []light.Light

	// ActiveLights returns the enabled lights in insertion order. Indices into
	// this slice are the light indices the culling stage writes.
	//
	// Returns:
	//   - []light.Light: the enabled lights
	ActiveLights() []light.Light

	// MovingLights reports whether Update animates the lights.
	MovingLights() bool

	// SetMovingLights toggles light animation.
	SetMovingLights(moving bool)

	// Update advances the camera and, when moving lights are on, the lights by dt seconds.
	//
	// Parameters:
	//   - dt: elapsed time in seconds
	Update(dt float32)
}

type scene struct {
	mu *sync.RWMutex

	name      string
	cam       camera.Camera
	lights    []light.Light
	generator light.Generator
	moving    bool
}

var _ Scene = &scene{}

// NewScene creates a new Scene with the given camera. NewScene panics if cam is nil.
//
// Parameters:
//   - name: the name of the scene
//   - cam: the camera to attach (must not be nil)
//   - options: functional options to further configure the scene
//
// Returns:
//   - Scene: the newly created scene
func NewScene(name string, cam camera.Camera, options ...SceneBuilderOption) Scene {
	if cam == nil {
		panic("scene: NewScene requires a non-nil Camera")
	}
	s := &scene{
		mu:   &sync.RWMutex{},
		name: name,
		cam:  cam,
	}
	for _, option := range options {
		option(s)
	}
	if s.generator == nil {
		s.generator = light.NewGenerator()
	}
	return s
}

func (s *scene) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

func (s *scene) Camera() camera.Camera {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cam
}

func (s *scene) SetCamera(cam camera.Camera) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cam = cam
}

func (s *scene) AddLight(l light.Light) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lights = append(s.lights, l)
}

func (s *scene) SetLights(lights []light.Light) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lights = append([]light.Light(nil), lights...)
}

func (s *scene) Lights() []light.Light {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]light.Light(nil), s.lights...)
}

func (s *scene) ActiveLights() []light.Light {
	s.mu.RLock()
	defer s.mu.RUnlock()
	active := make([]light.Light, 0, len(s.lights))
	for _, l := range s.lights {
		if l.Enabled() {
			active = append(active, l)
		}
	}
	return active
}

func (s *scene) MovingLights() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.moving
}

func (s *scene) SetMovingLights(moving bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.moving = moving
}

func (s *scene) Update(dt float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cam != nil {
		s.cam.Update(dt)
	}
	if s.moving {
		s.generator.Move(s.lights, dt)
	}
	common.Logger().Debug("scene updated", "scene", s.name, "lights", len(s.lights), "moving", s.moving)
}

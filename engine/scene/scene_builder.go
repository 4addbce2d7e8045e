package scene

import "github.com/Carmen-Shannon/oxy-cluster/engine/light"

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *scene)

// WithLights sets the initial light list.
//
// Parameters:
//   - lights: the lights to add, in order
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithLights(lights ...light.Light) SceneBuilderOption {
	return func(s *scene) {
		s.lights = append(s.lights, lights...)
	}
}

// WithGenerator sets the generator used to animate moving lights. The scene
// falls back to a default-seeded generator when none is given.
//
// Parameters:
//   - g: the generator
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithGenerator(g light.Generator) SceneBuilderOption {
	return func(s *scene) {
		s.generator = g
	}
}

// WithGeneratedLights fills the scene with count lights from the scene's
// generator. Apply after WithGenerator to use a custom one.
//
// Parameters:
//   - count: number of lights to generate
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithGeneratedLights(count int) SceneBuilderOption {
	return func(s *scene) {
		if s.generator == nil {
			s.generator = light.NewGenerator()
		}
		s.lights = append(s.lights, s.generator.Generate(count)...)
	}
}

// WithMovingLights sets whether Update animates the lights.
//
// Parameters:
//   - moving: whether lights move
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithMovingLights(moving bool) SceneBuilderOption {
	return func(s *scene) {
		s.moving = moving
	}
}

package light

import (
	"math/rand/v2"

	"github.com/Carmen-Shannon/oxy-cluster/common"
)

// GeneratorBuilderOption is a function that configures a Generator during construction.
type GeneratorBuilderOption func(*generator)

// WithSeed is an option builder that reseeds the generator's RNG.
//
// Parameters:
//   - seed: the PCG seed
//
// Returns:
//   - GeneratorBuilderOption: a function that applies the seed option to a generator
func WithSeed(seed uint64) GeneratorBuilderOption {
	return func(g *generator) {
		g.rng = rand.New(rand.NewPCG(seed, seed))
	}
}

// WithBounds is an option builder that sets the volume lights are generated in.
//
// Parameters:
//   - bounds: the world-space generation volume
//
// Returns:
//   - GeneratorBuilderOption: a function that applies the bounds option to a generator
func WithBounds(bounds common.AABB) GeneratorBuilderOption {
	return func(g *generator) {
		g.bounds = bounds
	}
}

// WithPowerRange is an option builder that sets the interval light powers are drawn from.
//
// Parameters:
//   - minPower: the lowest power
//   - maxPower: the highest power
//
// Returns:
//   - GeneratorBuilderOption: a function that applies the power option to a generator
func WithPowerRange(minPower, maxPower float32) GeneratorBuilderOption {
	return func(g *generator) {
		g.minPower = minPower
		g.maxPower = maxPower
	}
}

// WithAngularSpeed is an option builder that sets how fast Move rotates lights.
//
// Parameters:
//   - radiansPerSecond: the rotation speed
//
// Returns:
//   - GeneratorBuilderOption: a function that applies the speed option to a generator
func WithAngularSpeed(radiansPerSecond float32) GeneratorBuilderOption {
	return func(g *generator) {
		g.angularSpeed = radiansPerSecond
	}
}

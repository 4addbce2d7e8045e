package light

import (
	"math"
	"math/rand/v2"

	"github.com/Carmen-Shannon/oxy-cluster/common"
	"github.com/go-gl/mathgl/mgl32"
)

// DefaultSeed is the seed used when no explicit seed is configured, so two runs
// with identical settings produce identical light sets.
const DefaultSeed uint64 = 1337

// Generator produces deterministic random light sets and moves them over time.
// All randomness comes from the generator's own RNG state; there are no
// package-level globals, so independent generators never influence each other.
type Generator interface {
	// Generate creates count lights positioned uniformly inside the generator bounds
	// with random colors and powers.
	//
	// Parameters:
	//   - count: number of lights to create
	//
	// Returns:
	//   - []Light: the generated lights, in generation order
	Generate(count int) []Light

	// Move rotates every light around the vertical axis through the center of the
	// bounds by the angular speed times dt.
	//
	// Parameters:
	//   - lights: the lights to move
	//   - dt: elapsed time in seconds
	Move(lights []Light, dt float32)

	// Bounds returns the volume lights are generated in.
	//
	// Returns:
	//   - common.AABB: the generation volume
	Bounds() common.AABB
}

type generator struct {
	rng          *rand.Rand
	bounds       common.AABB
	minPower     float32
	maxPower     float32
	angularSpeed float32
}

var _ Generator = &generator{}

// NewGenerator creates a Generator seeded with DefaultSeed unless WithSeed is given.
// Defaults: bounds (-15,0,-7)..(15,12,7), power 0.5..4, angular speed 0.25 rad/s.
//
// Parameters:
//   - opts: variadic list of GeneratorBuilderOption functions
//
// Returns:
//   - Generator: the constructed generator
func NewGenerator(opts ...GeneratorBuilderOption) Generator {
	g := &generator{
		rng: rand.New(rand.NewPCG(DefaultSeed, DefaultSeed)),
		bounds: common.AABB{
			Min: mgl32.Vec3{-15, 0, -7},
			Max: mgl32.Vec3{15, 12, 7},
		},
		minPower:     0.5,
		maxPower:     4,
		angularSpeed: 0.25,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.maxPower < g.minPower {
		g.minPower, g.maxPower = g.maxPower, g.minPower
	}
	return g
}

func (g *generator) Generate(count int) []Light {
	if count <= 0 {
		return nil
	}
	size := g.bounds.Max.Sub(g.bounds.Min)
	lights := make([]Light, 0, count)
	for range count {
		pos := mgl32.Vec3{
			g.bounds.Min.X() + g.rng.Float32()*size.X(),
			g.bounds.Min.Y() + g.rng.Float32()*size.Y(),
			g.bounds.Min.Z() + g.rng.Float32()*size.Z(),
		}
		color := mgl32.Vec3{g.rng.Float32(), g.rng.Float32(), g.rng.Float32()}
		power := g.minPower + g.rng.Float32()*(g.maxPower-g.minPower)
		lights = append(lights, NewLight(
			WithPosition(pos.X(), pos.Y(), pos.Z()),
			WithColor(color.X(), color.Y(), color.Z()),
			WithRangeFromPower(power),
		))
	}
	return lights
}

func (g *generator) Move(lights []Light, dt float32) {
	if len(lights) == 0 || dt == 0 {
		return
	}
	angle := float64(g.angularSpeed * dt)
	sin, cos := float32(math.Sin(angle)), float32(math.Cos(angle))
	center := g.bounds.Center()
	for _, l := range lights {
		p := l.Position().Sub(center)
		x := p.X()*cos + p.Z()*sin
		z := -p.X()*sin + p.Z()*cos
		l.SetPosition(center.Add(mgl32.Vec3{x, p.Y(), z}))
	}
}

func (g *generator) Bounds() common.AABB {
	return g.bounds
}

package light

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLightDefaults(t *testing.T) {
	l := NewLight()
	assert.Equal(t, mgl32.Vec3{1, 1, 1}, l.Color())
	assert.Equal(t, float32(1), l.Intensity())
	assert.Equal(t, float32(1), l.Range())
	assert.True(t, l.Enabled())

	l.SetRange(-3)
	assert.Equal(t, float32(0), l.Range())
}

func TestRangeForPower(t *testing.T) {
	assert.Equal(t, float32(0), RangeForPower(0))
	assert.InDelta(t, 10, RangeForPower(1), 1e-4)
	assert.InDelta(t, 20, RangeForPower(4), 1e-4)
}

func TestMarshalLightBufferSkipsDisabled(t *testing.T) {
	lights := []Light{
		NewLight(WithPosition(1, 2, 3), WithRange(4), WithColor(0.5, 0.25, 1), WithIntensity(2)),
		NewLight(WithEnabled(false)),
		NewLight(WithPosition(-1, 0, 0), WithRange(9)),
	}
	buf, count := MarshalLightBuffer(lights)
	require.Equal(t, uint32(2), count)
	require.Len(t, buf, 16+2*32)
	assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(buf[0:4]))

	f := func(off int) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(buf[off:])) }
	assert.Equal(t, float32(1), f(16))
	assert.Equal(t, float32(3), f(24))
	assert.Equal(t, float32(4), f(28))
	assert.Equal(t, float32(0.25), f(36))
	assert.Equal(t, float32(2), f(44))
	assert.Equal(t, float32(-1), f(48))
	assert.Equal(t, float32(9), f(60))
}

func TestGeneratorIsDeterministic(t *testing.T) {
	a := NewGenerator().Generate(64)
	b := NewGenerator().Generate(64)
	c := NewGenerator(WithSeed(7)).Generate(64)
	require.Len(t, a, 64)

	same := true
	for i := range a {
		assert.Equal(t, a[i].Position(), b[i].Position())
		assert.Equal(t, a[i].Range(), b[i].Range())
		if a[i].Position() != c[i].Position() {
			same = false
		}
	}
	assert.False(t, same, "a different seed should produce a different set")
}

func TestGeneratorStaysInBounds(t *testing.T) {
	g := NewGenerator(WithPowerRange(1, 1))
	bounds := g.Bounds()
	for _, l := range g.Generate(500) {
		assert.True(t, bounds.Contains(l.Position()), "light at %v", l.Position())
		assert.InDelta(t, 10, l.Range(), 1e-4)
	}
	assert.Nil(t, g.Generate(0))
}

func TestGeneratorMoveRotatesAroundCenter(t *testing.T) {
	g := NewGenerator(WithAngularSpeed(math.Pi / 2))
	center := g.Bounds().Center()
	l := NewLight(WithPosition(center.X()+2, center.Y()+1, center.Z()))

	g.Move([]Light{l}, 1)
	p := l.Position()
	assert.InDelta(t, center.X(), p.X(), 1e-5)
	assert.InDelta(t, center.Y()+1, p.Y(), 1e-5)
	assert.InDelta(t, center.Z()-2, p.Z(), 1e-5)

	// distance to the axis is preserved
	d := mgl32.Vec2{p.X() - center.X(), p.Z() - center.Z()}.Len()
	assert.InDelta(t, 2, d, 1e-5)
}

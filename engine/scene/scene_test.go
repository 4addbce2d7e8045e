package scene

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-cluster/engine/camera"
	"github.com/Carmen-Shannon/oxy-cluster/engine/light"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActiveLightsKeepsOrderAndSkipsDisabled(t *testing.T) {
	a := light.NewLight(light.WithPosition(1, 0, 0))
	b := light.NewLight(light.WithEnabled(false))
	c := light.NewLight(light.WithPosition(3, 0, 0))
	s := NewScene("test", camera.NewCamera(), WithLights(a, b, c))

	active := s.ActiveLights()
	require.Len(t, active, 2)
	assert.Same(t, a, active[0])
	assert.Same(t, c, active[1])
	assert.Len(t, s.Lights(), 3)
}

func TestGeneratedLightsAreDeterministic(t *testing.T) {
	s1 := NewScene("a", camera.NewCamera(), WithGeneratedLights(16))
	s2 := NewScene("b", camera.NewCamera(), WithGeneratedLights(16))
	l1, l2 := s1.Lights(), s2.Lights()
	require.Len(t, l1, 16)
	for i := range l1 {
		assert.Equal(t, l1[i].Position(), l2[i].Position())
	}
}

func TestUpdateMovesLightsOnlyWhenEnabled(t *testing.T) {
	s := NewScene("test", camera.NewCamera(), WithGeneratedLights(4))
	before := s.Lights()[0].Position()
	s.Update(1)
	assert.Equal(t, before, s.Lights()[0].Position())

	s.SetMovingLights(true)
	s.Update(1)
	assert.NotEqual(t, before, s.Lights()[0].Position())
}

func TestNewScenePanicsWithoutCamera(t *testing.T) {
	assert.Panics(t, func() { NewScene("x", nil) })
}

package zone

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dualcarla/bridge/internal/config"
	"github.com/dualcarla/bridge/pkg/core"
)

func TestClassify_AxisX(t *testing.T) {
	c := NewClassifier(config.ZoneConfig{Axis: "x", Start: -8.5, End: 8.5})

	tests := []struct {
		name string
		x    float64
		want Membership
	}{
		{"well left of buffer", -10, Membership{core.WorldA: true}},
		{"just below start", -8.500001, Membership{core.WorldA: true}},
		{"exactly at start", -8.5, Membership{core.WorldA: true, core.WorldB: true}},
		{"middle of buffer", 0, Membership{core.WorldA: true, core.WorldB: true}},
		{"exactly at end", 8.5, Membership{core.WorldA: true, core.WorldB: true}},
		{"just above end", 8.500001, Membership{core.WorldB: true}},
		{"well right of buffer", 20, Membership{core.WorldB: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(core.Transform{X: tt.x, Y: 999})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassify_AxisY(t *testing.T) {
	c := NewClassifier(config.ZoneConfig{Axis: "y", Start: -3, End: 3})

	assert.Equal(t, Membership{core.WorldA: true}, c.Classify(core.Transform{X: 100, Y: -5}))
	assert.Equal(t, Membership{core.WorldA: true, core.WorldB: true}, c.Classify(core.Transform{X: 100, Y: 0}))
	assert.Equal(t, Membership{core.WorldB: true}, c.Classify(core.Transform{X: 100, Y: 5}))
}

func TestClassify_NeverEmpty(t *testing.T) {
	c := NewClassifier(config.ZoneConfig{Axis: "x", Start: 0, End: 0})

	for _, x := range []float64{-1e9, -1, 0, 1, 1e9} {
		m := c.Classify(core.Transform{X: x})
		assert.True(t, m.Has(core.WorldA) || m.Has(core.WorldB), "x=%v", x)
	}
}

func TestMembership_Dual(t *testing.T) {
	assert.True(t, Membership{true, true}.Dual())
	assert.False(t, Membership{true, false}.Dual())
	assert.Equal(t, "{A,B}", Membership{true, true}.String())
	assert.Equal(t, "{A}", Membership{true, false}.String())
	assert.Equal(t, "{B}", Membership{false, true}.String())
}

func TestParseAxis(t *testing.T) {
	a, ok := ParseAxis("x")
	assert.True(t, ok)
	assert.Equal(t, AxisX, a)

	a, ok = ParseAxis("Y")
	assert.True(t, ok)
	assert.Equal(t, AxisY, a)

	_, ok = ParseAxis("z")
	assert.False(t, ok)
}

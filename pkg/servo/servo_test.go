package servo

import (
	"math"
	"testing"

	v2 "github.com/deadsy/sdfx/vec/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/legsim/pkg/physics"
)

type fakeBody struct{ angle float64 }

func (b *fakeBody) Angle() float64 { return b.angle }

type fakeMotor struct{ rate float64 }

func (m *fakeMotor) SetRate(r float64) { m.rate = r }

func TestWrap(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{1, 1},
		{math.Pi, math.Pi},
		{-math.Pi, math.Pi},
		{3 * math.Pi, math.Pi},
		{-3 * math.Pi / 2, math.Pi / 2},
		{3 * math.Pi / 2, -math.Pi / 2},
		{2 * math.Pi, 0},
		{-0.25, -0.25},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, Wrap(tt.in), 1e-12, "Wrap(%v)", tt.in)
	}
	for x := -20.0; x <= 20; x += 0.37 {
		w := Wrap(x)
		assert.True(t, w > -math.Pi && w <= math.Pi, "Wrap(%v) = %v out of range", x, w)
		assert.InDelta(t, 0, math.Remainder(x-w, 2*math.Pi), 1e-9)
	}
}

func TestRegisterCapturesHome(t *testing.T) {
	c := New(DefaultConfig(), nil)
	parent, child := &fakeBody{angle: 0.2}, &fakeBody{angle: 2.556}
	j := c.Register("rear_upper_motor", &fakeMotor{}, parent, child)

	assert.InDelta(t, 2.356, j.Home, 1e-12)
	assert.Equal(t, j.Home, j.Target)
	assert.Len(t, c.Joints(), 1)
}

func TestTickIsProportional(t *testing.T) {
	c := New(Config{Gain: 6}, nil)
	m := &fakeMotor{}
	child := &fakeBody{angle: 1}
	j := c.Register("j", m, &fakeBody{}, child)

	j.Target = 1.5
	worst := c.Tick()
	assert.InDelta(t, 3.0, m.rate, 1e-12)
	assert.InDelta(t, 0.5, worst, 1e-12)

	// the short way round across ±π
	child.angle = math.Pi - 0.1
	j.Target = -math.Pi + 0.1
	c.Tick()
	assert.InDelta(t, 6*0.2, m.rate, 1e-9)
}

func TestResampleStaysInWindow(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Seed = 7
	c := New(cfg, nil)
	a := c.Register("a", &fakeMotor{}, &fakeBody{}, &fakeBody{angle: 2.4})
	b := c.Register("b", &fakeMotor{}, &fakeBody{}, &fakeBody{angle: 2.6})

	var moved bool
	for range 500 {
		c.Resample()
		for _, j := range []*Joint{a, b} {
			require.LessOrEqual(t, math.Abs(j.Target-j.Home), cfg.Range)
			if j.Target != j.Home {
				moved = true
			}
		}
	}
	assert.True(t, moved)
}

func TestResampleIsSeeded(t *testing.T) {
	draw := func(seed uint64) []float64 {
		cfg := DefaultConfig()
		cfg.Seed = seed
		c := New(cfg, nil)
		j := c.Register("j", &fakeMotor{}, &fakeBody{}, &fakeBody{})
		var out []float64
		for range 5 {
			c.Resample()
			out = append(out, j.Target)
		}
		return out
	}
	assert.Equal(t, draw(42), draw(42))
	assert.NotEqual(t, draw(42), draw(43))
}

func TestConvergesInScene(t *testing.T) {
	s := physics.NewScene()
	torso, err := s.AddBody(physics.BodyDef{Name: "torso", Shape: physics.ShapeBox, Mass: 2.27, Moment: 0.033, Width: 0.3, Height: 0.06})
	require.NoError(t, err)
	crank, err := s.AddBody(physics.BodyDef{Name: "crank", Position: v2.Vec{}, Angle: 3 * math.Pi / 4,
		Mass: 0.5, Moment: physics.RodMoment(0.5, 0.038), Length: 0.038})
	require.NoError(t, err)
	m, err := s.AddMotor("rear_upper_motor", torso, crank, 2.5)
	require.NoError(t, err)

	c := New(DefaultConfig(), nil)
	j := c.Register("rear_upper_motor", m, torso, crank)
	j.Target = j.Home + c.Config().Range

	for range 240 {
		c.Tick()
		s.Step(1.0 / 240)
	}
	// error shrinks by (1 - 6/240) per step
	want := c.Config().Range * math.Pow(1-6.0/240, 240)
	assert.InDelta(t, want, math.Abs(j.Error()), 1e-9)
	assert.Less(t, math.Abs(j.Error()), 0.001)
}

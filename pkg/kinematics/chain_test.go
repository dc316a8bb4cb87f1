package kinematics

import (
	"math"
	"testing"

	v2 "github.com/deadsy/sdfx/vec/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	legerr "github.com/matzehuels/legsim/pkg/errors"
)

// Rear leg at (0°, 0°) with the default geometry.
var baselineRest = map[string]v2.Vec{
	UpperTip:    {X: -0.026870057685, Y: 0.026870057685},
	LowerTip:    {X: 0.059813203436, Y: -0.048013203436},
	Joint1:      {X: -0.035433077010, Y: -0.002923812490},
	BlueOrange:  {X: -0.060075101330, Y: 0.001047615144},
	Foot:        {X: -0.040178514274, Y: -0.121345709116},
	GreenAttach: {X: -0.052373196663, Y: -0.046330445860},
}

// Rear leg at (20°, 30°).
var baselineMid = map[string]v2.Vec{
	UpperTip:    {X: -0.034439695907, Y: 0.016059493946},
	LowerTip:    {X: 0.046364571353, Y: -0.055777774789},
	Joint1:      {X: -0.036437537294, Y: -0.014876062131},
	BlueOrange:  {X: -0.061396759598, Y: -0.014679029120},
	Foot:        {X: -0.046634461837, Y: -0.137797161679},
	GreenAttach: {X: -0.055682321755, Y: -0.062337661078},
}

func assertPose(t *testing.T, want map[string]v2.Vec, got Pose) {
	t.Helper()
	require.Equal(t, len(want), got.Len())
	for name, w := range want {
		p, ok := got.Point(name)
		require.True(t, ok, "missing %s", name)
		assert.InDelta(t, w.X, p.X, 1e-9, "%s.X", name)
		assert.InDelta(t, w.Y, p.Y, 1e-9, "%s.Y", name)
	}
}

func TestChainRegressionBaseline(t *testing.T) {
	c := NewChain(DefaultGeometry())

	p, err := c.Solve(Angles{Upper: 0, Lower: 0})
	require.NoError(t, err)
	assertPose(t, baselineRest, p)

	p, err = c.Solve(Angles{Upper: 20, Lower: 30})
	require.NoError(t, err)
	assertPose(t, baselineMid, p)
}

func TestChainPointOrder(t *testing.T) {
	p, err := NewChain(DefaultGeometry()).Solve(Angles{})
	require.NoError(t, err)
	assert.Equal(t, []string{UpperTip, LowerTip, Joint1, BlueOrange, Foot, GreenAttach}, p.Names())
}

func TestChainConstraintsHold(t *testing.T) {
	g := DefaultGeometry()
	c := NewChain(g)

	for _, in := range []Angles{{0, 0}, {10, 5}, {20, 30}, {40, 40}, {0, 40}, {40, 0}} {
		p, err := c.Solve(in)
		require.NoError(t, err, "inputs %+v", in)

		tip, _ := p.Point(UpperTip)
		j1, _ := p.Point(Joint1)
		lj, _ := p.Point(BlueOrange)
		foot, _ := p.Point(Foot)
		tip2, _ := p.Point(LowerTip)
		gs, _ := p.Point(GreenAttach)

		assert.InDelta(t, g.Red, j1.Sub(tip).Length(), 1e-9)
		assert.InDelta(t, g.Blue*(1-g.JointRatio), j1.Sub(g.Fixed).Length(), 1e-9)
		assert.InDelta(t, g.Blue, lj.Sub(g.Fixed).Length(), 1e-9)
		assert.InDelta(t, g.Orange, foot.Sub(lj).Length(), 1e-9)
		assert.InDelta(t, g.Orange, foot.Sub(tip2).Length(), 1e-9)
		assert.InDelta(t, g.Attach, gs.Sub(lj).Length(), 1e-9)

		// Joint1 lies on the rocker between the fixed pivot and BlueOrange.
		u, w := lj.Sub(g.Fixed), j1.Sub(g.Fixed)
		assert.InDelta(t, 0, u.X*w.Y-u.Y*w.X, 1e-12)
	}
}

func TestChainUnreachable(t *testing.T) {
	c := NewChain(DefaultGeometry())

	// The upper tip swings to within 8 mm of the fixed pivot, inside the
	// rocker circle: one circle contains the other.
	for _, upper := range []float64{200, -150} {
		p, err := c.Solve(Angles{Upper: upper})
		require.Error(t, err)
		assert.True(t, legerr.Is(err, legerr.ErrCodeUnreachable), "got %v", err)
		assert.Contains(t, err.Error(), "crank stage")
		assert.True(t, p.IsZero(), "failed solve must not return a partial pose")
	}
}

func TestChainAttachOutOfRange(t *testing.T) {
	g := DefaultGeometry()
	g.Attach = g.Orange + 0.001

	p, err := NewChain(g).Solve(Angles{})
	require.Error(t, err)
	assert.True(t, legerr.Is(err, legerr.ErrCodeAttachOutOfRange), "got %v", err)
	assert.True(t, p.IsZero())
}

func TestExtrapolateDegenerate(t *testing.T) {
	g := DefaultGeometry()
	var p Pose
	p.Set(Joint1, g.Fixed)

	err := ExtrapolateStage{}.Solve(g, Angles{}, &p)
	require.Error(t, err)
	assert.True(t, legerr.Is(err, legerr.ErrCodeDegenerate))
	_, ok := p.Point(BlueOrange)
	assert.False(t, ok)
}

func TestAttachDegenerate(t *testing.T) {
	g := DefaultGeometry()
	var p Pose
	p.Set(BlueOrange, v2.Vec{X: 0.1, Y: 0.1})
	p.Set(Foot, v2.Vec{X: 0.1, Y: 0.1})

	err := AttachStage{}.Solve(g, Angles{}, &p)
	assert.True(t, legerr.Is(err, legerr.ErrCodeDegenerate), "got %v", err)
}

func TestStageMissingInput(t *testing.T) {
	var p Pose
	err := CrankStage{}.Solve(DefaultGeometry(), Angles{}, &p)
	assert.True(t, legerr.Is(err, legerr.ErrCodeInternal))
}

func TestNewChainStages(t *testing.T) {
	tests := []struct {
		name   string
		orange float64
		attach float64
		want   []string
	}{
		{"full", DefaultOrange, DefaultAttach, []string{"project", "crank", "extrapolate", "coupler", "attach"}},
		{"no attach", DefaultOrange, 0, []string{"project", "crank", "extrapolate", "coupler"}},
		{"upper four-bar only", 0, 0, []string{"project", "crank", "extrapolate"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := DefaultGeometry()
			g.Orange, g.Attach = tt.orange, tt.attach
			c := NewChain(g)

			var names []string
			for _, s := range c.Stages {
				names = append(names, s.Name())
			}
			assert.Equal(t, tt.want, names)

			p, err := c.Solve(Angles{Upper: 10, Lower: 10})
			require.NoError(t, err)
			assert.Equal(t, len(tt.want)+1, p.Len())
		})
	}
}

func TestChainNeverReturnsNaN(t *testing.T) {
	c := NewChain(DefaultGeometry())
	for a1 := -180.0; a1 <= 360; a1 += 7.5 {
		for a2 := -180.0; a2 <= 360; a2 += 7.5 {
			p, err := c.Solve(Angles{Upper: a1, Lower: a2})
			if err != nil {
				assert.True(t, legerr.IsKinematic(err), "unexpected error kind: %v", err)
				continue
			}
			for _, n := range p.Names() {
				pt, _ := p.Point(n)
				if math.IsNaN(pt.X) || math.IsNaN(pt.Y) {
					t.Fatalf("NaN in %s at (%v, %v)", n, a1, a2)
				}
			}
		}
	}
}

func TestLegGeometryValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*LegGeometry)
		wantErr bool
	}{
		{"default", func(*LegGeometry) {}, false},
		{"zero red", func(g *LegGeometry) { g.Red = 0 }, true},
		{"ratio one", func(g *LegGeometry) { g.JointRatio = 1 }, true},
		{"negative ratio", func(g *LegGeometry) { g.JointRatio = -0.1 }, true},
		{"attach without orange", func(g *LegGeometry) { g.Orange = 0 }, true},
		{"bad sign", func(g *LegGeometry) { g.Upper.Sign = 0 }, true},
		{"inverted range", func(g *LegGeometry) { g.Lower.MinDeg = 50 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := DefaultGeometry()
			tt.mutate(&g)
			err := g.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

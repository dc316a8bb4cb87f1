package mechanism

import (
	"context"
	"fmt"
	"testing"

	v2 "github.com/deadsy/sdfx/vec/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	legerr "github.com/matzehuels/legsim/pkg/errors"
	"github.com/matzehuels/legsim/pkg/geomspec"
	"github.com/matzehuels/legsim/pkg/kinematics"
	"github.com/matzehuels/legsim/pkg/physics"
	"github.com/matzehuels/legsim/pkg/servo"
)

const roundTripTol = 1e-6

type fixture struct {
	body    *kinematics.Body
	results map[string]kinematics.LegResult
	spec    *geomspec.Spec
}

func compile(t *testing.T, angles map[string]kinematics.Angles) fixture {
	t.Helper()
	return compileGeometry(t, kinematics.DefaultGeometry(), angles)
}

func compileGeometry(t *testing.T, g kinematics.LegGeometry, angles map[string]kinematics.Angles) fixture {
	t.Helper()
	body, err := kinematics.Replicate(g, kinematics.DefaultHipSpacing)
	require.NoError(t, err)
	results := body.Solve(angles)
	spec, err := geomspec.NewCompiler(body, kinematics.DefaultHipSpacing).Compile(angles, results)
	require.NoError(t, err)
	return fixture{body: body, results: results, spec: spec}
}

func restFixture(t *testing.T) fixture {
	return compile(t, map[string]kinematics.Angles{"rear": {}, "front": {Upper: 10, Lower: 5}})
}

func build(t *testing.T, spec *geomspec.Spec, opts Options) (*Mechanism, *physics.Scene) {
	t.Helper()
	scene := physics.NewScene()
	m, err := Build(context.Background(), spec, DefaultBase, scene, opts)
	require.NoError(t, err)
	return m, scene
}

func assertNear(t *testing.T, want, got v2.Vec, msg string) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, roundTripTol, "%s x", msg)
	assert.InDelta(t, want.Y, got.Y, roundTripTol, "%s y", msg)
}

func TestBuildRoundTrip(t *testing.T) {
	threeBar := kinematics.DefaultGeometry()
	threeBar.Orange, threeBar.Attach = 0, 0
	noAttach := kinematics.DefaultGeometry()
	noAttach.Attach = 0

	geometries := []struct {
		name string
		g    kinematics.LegGeometry
	}{
		{"full", kinematics.DefaultGeometry()},
		{"no attach", noAttach},
		{"three bar", threeBar},
	}
	// Each link's tip is the first of its points the pose has solved.
	tips := []struct {
		part   string
		points []string
	}{
		{geomspec.PartCrankUpper, []string{kinematics.UpperTip}},
		{geomspec.PartCrankLower, []string{kinematics.LowerTip}},
		{geomspec.PartRed, []string{kinematics.Joint1}},
		{geomspec.PartBlue, []string{kinematics.BlueOrange}},
		{geomspec.PartOrange, []string{kinematics.Foot}},
		{geomspec.PartGreen, []string{kinematics.GreenAttach, kinematics.Foot}},
	}
	for _, geo := range geometries {
		for i, angles := range []map[string]kinematics.Angles{
			{"rear": {}, "front": {}},
			{"rear": {Upper: 20, Lower: 30}, "front": {Upper: 35, Lower: 12}},
			{"rear": {Upper: 40, Lower: 40}, "front": {Upper: 3, Lower: 27}},
		} {
			t.Run(fmt.Sprintf("%s/%d", geo.name, i), func(t *testing.T) {
				f := compileGeometry(t, geo.g, angles)
				m, scene := build(t, f.spec, Options{})
				origin := f.body.Reference().Geometry.Upper.Pivot
				world := func(p v2.Vec) v2.Vec { return DefaultBase.Add(p.Sub(origin)) }

				for _, leg := range f.body.Names() {
					pose := f.results[leg].Pose
					for _, tt := range tips {
						name := geomspec.LinkName(leg, tt.part)
						l, built := m.Link(name)
						var (
							want   v2.Vec
							solved bool
						)
						for _, pt := range tt.points {
							if want, solved = pose.Point(pt); solved {
								break
							}
						}
						if !solved {
							assert.False(t, built, "%s built without a solved tip", name)
							continue
						}
						require.True(t, built, name)
						assertNear(t, world(want), l.Tip(), name+" tip")
					}
				}
				assert.Empty(t, m.Warnings)
				assert.InDelta(t, 0, scene.PivotError(), 1e-12)
			})
		}
	}
}

func TestBuildAnchorsLieOnBothBodies(t *testing.T) {
	f := compile(t, map[string]kinematics.Angles{"rear": {Upper: 12, Lower: 33}, "front": {Upper: 27, Lower: 8}})
	m, scene := build(t, f.spec, Options{})

	for _, j := range m.Joints {
		for _, name := range []string{j.Parent, j.Child} {
			if name == geomspec.TorsoName {
				continue
			}
			l, ok := m.Link(name)
			require.True(t, ok)
			local := l.Body.WorldToLocal(j.World)
			assert.InDelta(t, 0, local.Y, roundTripTol, "%s on %s: off axis", j.Name, name)
			assert.GreaterOrEqual(t, local.X, -roundTripTol, "%s on %s", j.Name, name)
			assert.LessOrEqual(t, local.X, l.Length+roundTripTol, "%s on %s", j.Name, name)
		}
	}
	assert.InDelta(t, 0, scene.PivotError(), 1e-12)
}

func TestBuildOneBodyPerLink(t *testing.T) {
	f := restFixture(t)
	m, scene := build(t, f.spec, Options{})

	defs := scene.Bodies()
	require.Len(t, defs, len(f.spec.Links)+1)
	seen := map[string]bool{}
	for _, d := range defs {
		assert.False(t, seen[d.Name], "duplicate body %s", d.Name)
		seen[d.Name] = true
	}
	for name := range f.spec.Links {
		assert.True(t, seen[name], name)
	}
	assert.Equal(t, geomspec.TorsoName, defs[0].Name)
	assert.Len(t, m.Links, 12)
	assert.Empty(t, m.Warnings)

	pivots, limits, motors := scene.Counts()
	assert.Equal(t, 16, pivots)
	assert.Equal(t, 4, limits)
	assert.Equal(t, 4, motors)
	assert.Len(t, m.Motors(), 4)
	assert.Len(t, scene.Ground(), 1)
}

func TestBuildLinkKindsAndLengths(t *testing.T) {
	f := restFixture(t)
	m, _ := build(t, f.spec, Options{})

	tests := []struct {
		link   string
		kind   LinkKind
		length float64
	}{
		{"rear_crank_upper", LinkCrank, kinematics.DefaultUpperRadius},
		{"rear_crank_lower", LinkCrank, kinematics.DefaultLowerRadius},
		{"rear_red", LinkRod, kinematics.DefaultRed},
		{"rear_blue", LinkRod, kinematics.DefaultBlue},
		{"rear_orange", LinkRod, kinematics.DefaultOrange},
		{"rear_green", LinkRod, 0.112199019783},
	}
	for _, tt := range tests {
		t.Run(tt.link, func(t *testing.T) {
			l, ok := m.Link(tt.link)
			require.True(t, ok)
			assert.Equal(t, tt.kind, l.Kind)
			assert.InDelta(t, tt.length, l.Length, roundTripTol)
		})
	}

	blue, _ := m.Link("rear_blue")
	assert.Len(t, blue.Anchors, 3)
	// blue starts at the fixed pivot, the first of its farthest pair
	assertNear(t, v2.Vec{X: 0.0426, Y: 0.15 - 0.0155}, blue.Body.Position(), "blue origin")
}

func TestBuildTorsoPlacement(t *testing.T) {
	f := restFixture(t)
	m, scene := build(t, f.spec, Options{})

	assert.InDelta(t, 0.2186+0.0425-0.3048/2, m.Torso.Position().X, 1e-9)
	assert.InDelta(t, (0.15+0.0319+0.1232-0.0258)/2, m.Torso.Position().Y, 1e-9)
	assert.Equal(t, 0.0, m.Torso.Angle())

	def := scene.Bodies()[0]
	assert.Equal(t, physics.ShapeBox, def.Shape)
	assert.InDelta(t, geomspec.DefaultTorsoWidth, def.Width, 1e-12)
	assert.InDelta(t, geomspec.DefaultTorsoMass, def.Mass, 1e-12)
}

func TestBuildRegistersDrivenServos(t *testing.T) {
	f := restFixture(t)
	ctrl := servo.New(servo.DefaultConfig(), nil)
	m, _ := build(t, f.spec, Options{Driven: DrivenUpperMotors("rear", "front"), Servo: ctrl})

	require.Len(t, m.Servos, 2)
	assert.Equal(t, []string{"rear_upper_motor", "front_upper_motor"}, []string{m.Servos[0].Name, m.Servos[1].Name})
	for _, s := range m.Servos {
		j, _ := f.spec.Joint(s.Name)
		assert.InDelta(t, *j.ZeroAngle, s.Home, 1e-12)
	}
	assert.Len(t, ctrl.Joints(), 2)
}

func TestBuildMotorForceOverride(t *testing.T) {
	f := restFixture(t)
	m, _ := build(t, f.spec, Options{MotorMaxForce: 1.416})
	for _, j := range m.Motors() {
		assert.Equal(t, 1.416, j.Motor.MaxForce())
	}

	m, _ = build(t, f.spec, Options{})
	for _, j := range m.Motors() {
		assert.Equal(t, geomspec.DefaultMotorMaxForce, j.Motor.MaxForce())
	}
}

func TestBuildOrphanLink(t *testing.T) {
	f := restFixture(t)
	f.spec.Links["spare"] = geomspec.Link{Length: 0.05}
	m, scene := build(t, f.spec, Options{})

	require.Len(t, m.Warnings, 1)
	assert.True(t, legerr.Is(m.Warnings[0], legerr.ErrCodeOrphanLink))
	_, ok := scene.Body("spare")
	assert.False(t, ok)
	_, ok = m.Link("spare")
	assert.False(t, ok)
}

func TestBuildCollinearExtraAnchor(t *testing.T) {
	f := restFixture(t)
	f.spec.Links["spur"] = geomspec.Link{Length: 0.01}
	f.spec.Joints = append(f.spec.Joints,
		geomspec.Joint{Name: "spur_mid", Parent: "rear_blue", Child: "spur", Type: geomspec.JointPin,
			Anchor: geomspec.Vec2{-0.008737550665, -0.007226192428}},
		geomspec.Joint{Name: "spur_top", Parent: geomspec.TorsoName, Child: "spur", Type: geomspec.JointPin,
			Anchor: geomspec.Vec2{0.1, 0.1}},
	)
	m, _ := build(t, f.spec, Options{})

	blue, _ := m.Link("rear_blue")
	assert.Len(t, blue.Anchors, 4)
	assert.InDelta(t, kinematics.DefaultBlue, blue.Length, roundTripTol)
}

func TestBuildRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *geomspec.Spec, o *Options)
		code   legerr.Code
		want   string
	}{
		{"off-axis rod anchor", func(s *geomspec.Spec, _ *Options) {
			s.Links["spur"] = geomspec.Link{Length: 0.01}
			s.Joints = append(s.Joints,
				geomspec.Joint{Name: "spur_a", Parent: "rear_blue", Child: "spur", Type: geomspec.JointPin,
					Anchor: geomspec.Vec2{0.0426, -0.0055}},
				geomspec.Joint{Name: "spur_b", Parent: geomspec.TorsoName, Child: "spur", Type: geomspec.JointPin,
					Anchor: geomspec.Vec2{0.1, 0.1}})
		}, legerr.ErrCodeInvalidSpec, `link "rear_blue": anchor`},
		{"crank anchor off crank", func(s *geomspec.Spec, _ *Options) {
			z := *s.Joints[0].ZeroAngle + 0.1
			s.Joints[0].ZeroAngle = &z
		}, legerr.ErrCodeInvalidSpec, "off the crank"},
		{"single anchor rod", func(s *geomspec.Spec, _ *Options) {
			s.Links["spur"] = geomspec.Link{Length: 0.01}
			s.Joints = append(s.Joints, geomspec.Joint{Name: "spur_a", Parent: geomspec.TorsoName, Child: "spur",
				Type: geomspec.JointPin, Anchor: geomspec.Vec2{0.1, 0.1}})
		}, legerr.ErrCodeInvalidSpec, "two distinct anchors"},
		{"invalid spec", func(s *geomspec.Spec, _ *Options) {
			s.Joints[3].Child = "nowhere"
		}, legerr.ErrCodeInvalidSpec, "unknown body"},
		{"unknown driven joint", func(_ *geomspec.Spec, o *Options) {
			o.Driven = []string{"middle_upper_motor"}
		}, legerr.ErrCodeInvalidInput, "not in spec"},
		{"driven pin", func(_ *geomspec.Spec, o *Options) {
			o.Driven = []string{"rear_red_blue"}
		}, legerr.ErrCodeInvalidInput, "has no motor"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := restFixture(t)
			var opts Options
			tt.mutate(f.spec, &opts)

			scene := physics.NewScene()
			_, err := Build(context.Background(), f.spec, DefaultBase, scene, opts)
			require.Error(t, err)
			assert.Equal(t, tt.code, legerr.GetCode(err), err.Error())
			assert.Contains(t, err.Error(), tt.want)
			assert.Empty(t, scene.Bodies(), "world must be untouched")
		})
	}
}

func TestBuildContextAndWorld(t *testing.T) {
	f := restFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Build(ctx, f.spec, DefaultBase, physics.NewScene(), Options{})
	assert.ErrorIs(t, err, context.Canceled)

	_, err = Build(context.Background(), f.spec, DefaultBase, nil, Options{})
	assert.True(t, legerr.Is(err, legerr.ErrCodeInvalidInput))
}

func TestLinkKindString(t *testing.T) {
	assert.Equal(t, "crank", LinkCrank.String())
	assert.Equal(t, "rod", LinkRod.String())
}

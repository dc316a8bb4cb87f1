package geomspec

import (
	"math"

	v2 "github.com/deadsy/sdfx/vec/v2"

	legerr "github.com/matzehuels/legsim/pkg/errors"
	"github.com/matzehuels/legsim/pkg/kinematics"
)

// Link parts of one leg. Link names are "<leg>_<part>".
const (
	PartCrankUpper = "crank_upper"
	PartCrankLower = "crank_lower"
	PartRed        = "red"
	PartBlue       = "blue"
	PartOrange     = "orange"
	PartGreen      = "green"
)

// Defaults written by [NewCompiler].
const (
	DefaultLinkMass      = 0.50
	DefaultMotorMaxForce = 2.5
	DefaultTorsoWidth    = 0.3048
	DefaultTorsoMass     = 2.27
	DefaultTorsoInertia  = 0.033
	DefaultTorsoFriction = 1.0
	DefaultTopOffset     = 0.0319
	DefaultBottomOffset  = 0.0258
	DefaultFrontOffset   = 0.0425
	DefaultGroundY       = -0.03
	DefaultGroundThick   = 0.02
	DefaultGroundFrict   = 1.2
)

// LinkName returns the name of a leg's link.
func LinkName(leg, part string) string { return leg + "_" + part }

// UpperMotor returns the name of a leg's upper motor joint.
func UpperMotor(leg string) string { return leg + "_upper_motor" }

// LowerMotor returns the name of a leg's lower motor joint.
func LowerMotor(leg string) string { return leg + "_lower_motor" }

// Compiler turns solved leg poses into a [Spec]. Body supplies the leg
// geometry; the remaining fields are copied into every spec.
type Compiler struct {
	Body          *kinematics.Body
	LinkDefaults  LinkDefaults
	Torso         Torso
	FixedOffsets  FixedOffsets
	Ground        Ground
	MotorMaxForce float64
}

// NewCompiler returns a compiler for body with the standard torso, ground and
// motor parameters. Hip spacing is taken from the body's leg placement.
func NewCompiler(body *kinematics.Body, hipSpacing float64) *Compiler {
	return &Compiler{
		Body:         body,
		LinkDefaults: LinkDefaults{Mass: DefaultLinkMass},
		Torso: Torso{
			Size:      Size{Width: DefaultTorsoWidth, Height: DefaultTopOffset + DefaultBottomOffset},
			Mass:      DefaultTorsoMass,
			InertiaZZ: DefaultTorsoInertia,
			Friction:  DefaultTorsoFriction,
		},
		FixedOffsets: FixedOffsets{
			TopOffset:    DefaultTopOffset,
			BottomOffset: DefaultBottomOffset,
			FrontOffset:  DefaultFrontOffset,
			HipSpacing:   hipSpacing,
		},
		Ground: Ground{
			Segment:   [2]Vec2{{-2, DefaultGroundY}, {6, DefaultGroundY}},
			Thickness: DefaultGroundThick,
			Friction:  DefaultGroundFrict,
		},
		MotorMaxForce: DefaultMotorMaxForce,
	}
}

// Compile freezes the solved pose of every leg into a spec. Anchors are
// expressed relative to the reference leg's upper pivot. Each motor joint
// gets the current absolute crank angle as its zero angle.
//
// Compile refuses with INVALID_POSE if any leg has no angles, no result, or
// a failed solve; the cause is kept in the error chain.
func (c *Compiler) Compile(angles map[string]kinematics.Angles, results map[string]kinematics.LegResult) (*Spec, error) {
	if c.Body == nil || c.Body.Reference() == nil {
		return nil, legerr.New(legerr.ErrCodeInvalidInput, "compiler has no legs")
	}
	for _, name := range c.Body.Names() {
		if _, ok := angles[name]; !ok {
			return nil, legerr.New(legerr.ErrCodeInvalidPose, "no angles for leg %q", name)
		}
		r, ok := results[name]
		if !ok {
			return nil, legerr.New(legerr.ErrCodeInvalidPose, "no pose for leg %q", name)
		}
		if r.Err != nil {
			return nil, legerr.Wrap(legerr.ErrCodeInvalidPose, r.Err, "leg %q", name)
		}
	}

	origin := c.Body.Reference().Geometry.Upper.Pivot
	s := &Spec{
		LinkDefaults: c.LinkDefaults,
		Torso:        c.Torso,
		FixedOffsets: c.FixedOffsets,
		Links:        make(map[string]Link),
		Ground:       c.Ground,
	}
	for _, leg := range c.Body.Legs {
		if err := c.addLeg(s, leg, angles[leg.Name], results[leg.Name].Pose, origin); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (c *Compiler) addLeg(s *Spec, leg *kinematics.Leg, in kinematics.Angles, p kinematics.Pose, origin v2.Vec) error {
	g := leg.Geometry
	local := func(pt v2.Vec) Vec2 { return FromVec(pt.Sub(origin)) }
	link := func(part string) string { return LinkName(leg.Name, part) }

	point := func(name string) (v2.Vec, error) {
		pt, ok := p.Point(name)
		if !ok {
			return v2.Vec{}, legerr.New(legerr.ErrCodeInvalidPose, "leg %q: pose has no %s", leg.Name, name)
		}
		return pt, nil
	}
	var (
		pts = make(map[string]v2.Vec)
		err error
	)
	for _, name := range []string{kinematics.UpperTip, kinematics.LowerTip, kinematics.Joint1} {
		if pts[name], err = point(name); err != nil {
			return err
		}
	}
	// The coupler and its green link exist once the foot is solved. Without
	// an attach point the green link meets the coupler at the foot, which the
	// coupler stage placed Orange from the lower tip.
	lj, hasLJ := p.Point(kinematics.BlueOrange)
	foot, hasFoot := p.Point(kinematics.Foot)
	attach, hasAttach := p.Point(kinematics.GreenAttach)
	if !hasAttach {
		attach = foot
	}
	coupled := hasLJ && hasFoot

	s.Links[link(PartCrankUpper)] = Link{Length: g.Upper.Radius}
	s.Links[link(PartCrankLower)] = Link{Length: g.Lower.Radius}
	s.Links[link(PartRed)] = Link{Length: g.Red}
	s.Links[link(PartBlue)] = Link{Length: g.Blue}
	if coupled {
		s.Links[link(PartOrange)] = Link{Length: g.Orange}
		s.Links[link(PartGreen)] = Link{Length: pts[kinematics.LowerTip].Sub(attach).Length()}
	}

	// Joint order fixes each rod's origin: the first anchor of a link's
	// farthest pair. Blue starts at the fixed pivot, orange at BlueOrange and
	// green at the lower tip.
	s.Joints = append(s.Joints,
		c.motor(UpperMotor(leg.Name), link(PartCrankUpper), local(g.Upper.Pivot), g.Upper.Angle(in.Upper)),
		c.motor(LowerMotor(leg.Name), link(PartCrankLower), local(g.Lower.Pivot), g.Lower.Angle(in.Lower)),
		pin(link("torso_blue"), TorsoName, link(PartBlue), local(g.Fixed)),
		pin(link("crank_upper_red"), link(PartCrankUpper), link(PartRed), local(pts[kinematics.UpperTip])),
		pin(link("red_blue"), link(PartRed), link(PartBlue), local(pts[kinematics.Joint1])),
	)
	if coupled {
		s.Joints = append(s.Joints,
			pin(link("blue_orange"), link(PartBlue), link(PartOrange), local(lj)),
			pin(link("crank_lower_green"), link(PartCrankLower), link(PartGreen), local(pts[kinematics.LowerTip])),
			pin(link("orange_green"), link(PartOrange), link(PartGreen), local(attach)),
		)
	}
	return nil
}

func (c *Compiler) motor(name, child string, anchor Vec2, zero float64) Joint {
	return Joint{
		Name:      name,
		Parent:    TorsoName,
		Child:     child,
		Type:      JointRevolute,
		Anchor:    anchor,
		Limits:    &[2]float64{-math.Pi, math.Pi},
		Motor:     &Motor{Enabled: true, MaxForce: c.MotorMaxForce},
		ZeroAngle: &zero,
	}
}

func pin(name, parent, child string, anchor Vec2) Joint {
	return Joint{Name: name, Parent: parent, Child: child, Type: JointPin, Anchor: anchor}
}

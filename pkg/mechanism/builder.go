package mechanism

import (
	"context"
	"io"
	"math"
	"slices"

	"github.com/charmbracelet/log"
	v2 "github.com/deadsy/sdfx/vec/v2"

	legerr "github.com/matzehuels/legsim/pkg/errors"
	"github.com/matzehuels/legsim/pkg/geomspec"
	"github.com/matzehuels/legsim/pkg/physics"
	"github.com/matzehuels/legsim/pkg/servo"
)

// Defaults for [Options].
const (
	DefaultPivotMaxForce = 8e3
	DefaultLimitMaxForce = 8e3
	DefaultRodRadius     = 0.002
	DefaultRodFriction   = 1.0
)

// DefaultBase is the world position of the reference anchor: the rear
// upper hip sits 0.15 m above the origin.
var DefaultBase = v2.Vec{X: 0, Y: 0.15}

// Options tune a build. The zero value builds with defaults, drives no
// servos and logs nothing.
type Options struct {
	// Driven names the motor joints registered with Servo.
	Driven []string
	Servo  *servo.Controller
	Logger *log.Logger

	Tolerance     float64 // anchor merge and rod alignment tolerance
	PivotMaxForce float64
	LimitMaxForce float64
	MotorMaxForce float64 // overrides every motor's max_force when positive
	RodRadius     float64
	RodFriction   float64
}

func (o *Options) setDefaults() {
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if o.Tolerance <= 0 {
		o.Tolerance = DefaultTolerance
	}
	if o.PivotMaxForce <= 0 {
		o.PivotMaxForce = DefaultPivotMaxForce
	}
	if o.LimitMaxForce <= 0 {
		o.LimitMaxForce = DefaultLimitMaxForce
	}
	if o.RodRadius <= 0 {
		o.RodRadius = DefaultRodRadius
	}
	if o.RodFriction <= 0 {
		o.RodFriction = DefaultRodFriction
	}
}

// DrivenUpperMotors returns the upper motor joint names of the given legs,
// the joints a walking demo drives.
func DrivenUpperMotors(legs ...string) []string {
	out := make([]string, len(legs))
	for i, leg := range legs {
		out[i] = geomspec.UpperMotor(leg)
	}
	return out
}

// plan is a fully checked build, computed before the world is touched.
type plan struct {
	torso  physics.BodyDef
	links  []linkPlan
	joints []jointPlan
	orphan []error
}

type linkPlan struct {
	def     physics.BodyDef
	kind    LinkKind
	anchors []v2.Vec
}

type jointPlan struct {
	spec  geomspec.Joint
	world v2.Vec
}

// Build places every body and constraint of spec into world.
//
// Joint anchors are local to the reference anchor and land at base+anchor.
// A motorised crank is placed at its pivot with its zero angle; any other
// link starts at the earlier of the two anchors lying farthest apart and
// runs through the other for the larger of the span and its declared
// length. Further anchors must lie on the body. A link no joint touches is
// skipped with an ORPHAN_LINK warning in [Mechanism.Warnings].
//
// All checks run before the first body is created: INVALID_SPEC (or
// INVALID_INPUT for bad options) leaves world untouched. Bodies are created
// before any constraint.
func Build(ctx context.Context, spec *geomspec.Spec, base v2.Vec, world physics.World, opts Options) (*Mechanism, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if world == nil {
		return nil, legerr.New(legerr.ErrCodeInvalidInput, "no physics world")
	}
	opts.setDefaults()
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	p, err := newPlan(spec, base, opts)
	if err != nil {
		return nil, err
	}
	return p.apply(ctx, spec, base, world, opts)
}

func newPlan(spec *geomspec.Spec, base v2.Vec, opts Options) (*plan, error) {
	p := &plan{}
	sets := make(map[string]*AnchorSet)
	anchorsOf := func(name string) *AnchorSet {
		if sets[name] == nil {
			sets[name] = NewAnchorSet(opts.Tolerance)
		}
		return sets[name]
	}
	for _, j := range spec.Joints {
		w := base.Add(j.Anchor.V())
		anchorsOf(j.Parent).Add(w)
		anchorsOf(j.Child).Add(w)
		p.joints = append(p.joints, jointPlan{spec: j, world: w})
	}

	if err := checkDriven(spec, opts.Driven); err != nil {
		return nil, err
	}
	p.torso = torsoDef(spec, p.joints)

	cranks := spec.Cranks()
	placed := make(map[string]bool)
	for _, name := range spec.LinkNames() {
		link := spec.Links[name]
		set := anchorsOf(name)
		mass := link.MassOr(spec.LinkDefaults.Mass)

		var (
			seg  segment
			kind LinkKind
		)
		if j, ok := cranks[name]; ok {
			kind = LinkCrank
			seg = newSegment(base.Add(j.Anchor.V()), *j.ZeroAngle, link.Length)
		} else {
			kind = LinkRod
			switch set.Len() {
			case 0:
				p.orphan = append(p.orphan, legerr.New(legerr.ErrCodeOrphanLink, "link %q has no anchors", name))
				continue
			case 1:
				return nil, legerr.New(legerr.ErrCodeInvalidSpec, "link %q needs two distinct anchors, has one", name)
			}
			a, b, _ := set.FarthestPair()
			d := b.Sub(a)
			// a rod longer than its anchor span overhangs past the far anchor
			seg = segment{origin: a, dir: d.MulScalar(1 / d.Length()), length: math.Max(d.Length(), link.Length)}
		}
		for _, pt := range set.Points() {
			if !seg.contains(pt, opts.Tolerance) {
				along, across := seg.offset(pt)
				return nil, legerr.New(legerr.ErrCodeInvalidSpec,
					"link %q: anchor (%.6f, %.6f) is off the %s (along %.6f of %.6f, %.2e off axis)",
					name, pt.X, pt.Y, kind, along, seg.length, across)
			}
		}

		p.links = append(p.links, linkPlan{
			kind:    kind,
			anchors: set.Points(),
			def: physics.BodyDef{
				Name:     name,
				Shape:    physics.ShapeSegment,
				Position: seg.origin,
				Angle:    seg.angle(),
				Mass:     mass,
				Moment:   physics.RodMoment(mass, seg.length),
				Friction: opts.RodFriction,
				Length:   seg.length,
				Radius:   opts.RodRadius,
			},
		})
		placed[name] = true
	}

	for _, j := range p.joints {
		for _, body := range []string{j.spec.Parent, j.spec.Child} {
			if body != geomspec.TorsoName && !placed[body] {
				return nil, legerr.New(legerr.ErrCodeInvalidSpec, "joint %q references skipped link %q", j.spec.Name, body)
			}
		}
	}
	return p, nil
}

func checkDriven(spec *geomspec.Spec, driven []string) error {
	for _, name := range driven {
		j, ok := spec.Joint(name)
		if !ok {
			return legerr.New(legerr.ErrCodeInvalidInput, "driven joint %q not in spec", name)
		}
		if !j.Motorized() {
			return legerr.New(legerr.ErrCodeInvalidInput, "driven joint %q has no motor", name)
		}
	}
	return nil
}

// torsoDef places the torso box around the torso-mounted motor pivots:
// its front edge sits front_offset ahead of the foremost pivot, its top and
// bottom top_offset above and bottom_offset below the pivot span.
func torsoDef(spec *geomspec.Spec, joints []jointPlan) physics.BodyDef {
	var pivots []v2.Vec
	for _, j := range joints {
		if j.spec.Parent == geomspec.TorsoName && j.spec.Motorized() {
			pivots = append(pivots, j.world)
		}
	}
	if len(pivots) == 0 {
		for _, j := range joints {
			if j.spec.Parent == geomspec.TorsoName {
				pivots = append(pivots, j.world)
			}
		}
	}

	var center v2.Vec
	if len(pivots) > 0 {
		minY, maxX, maxY := math.Inf(1), math.Inf(-1), math.Inf(-1)
		for _, p := range pivots {
			minY = math.Min(minY, p.Y)
			maxX = math.Max(maxX, p.X)
			maxY = math.Max(maxY, p.Y)
		}
		off := spec.FixedOffsets
		front := maxX + off.FrontOffset
		center = v2.Vec{
			X: front - spec.Torso.Size.Width/2,
			Y: (maxY + off.TopOffset + minY - off.BottomOffset) / 2,
		}
	}
	return physics.BodyDef{
		Name:     geomspec.TorsoName,
		Shape:    physics.ShapeBox,
		Position: center,
		Mass:     spec.Torso.Mass,
		Moment:   spec.Torso.InertiaZZ,
		Friction: spec.Torso.Friction,
		Width:    spec.Torso.Size.Width,
		Height:   spec.Torso.Size.Height,
	}
}

func (p *plan) apply(ctx context.Context, spec *geomspec.Spec, base v2.Vec, world physics.World, opts Options) (*Mechanism, error) {
	logger := opts.Logger
	m := &Mechanism{Base: base, Warnings: p.orphan}
	for _, w := range p.orphan {
		logger.Warn("skipping link", "reason", legerr.UserMessage(w))
	}

	bodies := make(map[string]physics.Body, len(p.links)+1)
	torso, err := world.AddBody(p.torso)
	if err != nil {
		return nil, legerr.Wrap(legerr.ErrCodeInternal, err, "add torso")
	}
	bodies[geomspec.TorsoName] = torso
	m.Torso = torso

	g := spec.Ground
	if err := world.AddGround(g.Segment[0].V(), g.Segment[1].V(), g.Thickness, g.Friction); err != nil {
		return nil, legerr.Wrap(legerr.ErrCodeInternal, err, "add ground")
	}

	for _, lp := range p.links {
		b, err := world.AddBody(lp.def)
		if err != nil {
			return nil, legerr.Wrap(legerr.ErrCodeInternal, err, "add link %q", lp.def.Name)
		}
		bodies[lp.def.Name] = b
		m.Links = append(m.Links, Link{Name: lp.def.Name, Kind: lp.kind, Body: b, Length: lp.def.Length, Anchors: lp.anchors})
		logger.Debug("placed link", "link", lp.def.Name, "kind", lp.kind, "length", lp.def.Length, "angle", lp.def.Angle)
	}

	for _, jp := range p.joints {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		j, err := addJoint(world, jp, bodies, opts)
		if err != nil {
			return nil, err
		}
		if j.Motor != nil && opts.Servo != nil && slices.Contains(opts.Driven, j.Name) {
			m.Servos = append(m.Servos, opts.Servo.Register(j.Name, j.Motor, bodies[j.Parent], bodies[j.Child]))
		}
		m.Joints = append(m.Joints, j)
	}
	logger.Debug("mechanism built", "bodies", len(bodies), "joints", len(m.Joints), "servos", len(m.Servos))
	return m, nil
}

func addJoint(world physics.World, jp jointPlan, bodies map[string]physics.Body, opts Options) (Joint, error) {
	s := jp.spec
	parent, child := bodies[s.Parent], bodies[s.Child]
	j := Joint{Name: s.Name, Parent: s.Parent, Child: s.Child, World: jp.world}

	var err error
	if j.Pivot, err = world.AddPivot(s.Name, parent, child, jp.world, opts.PivotMaxForce); err != nil {
		return Joint{}, legerr.Wrap(legerr.ErrCodeInternal, err, "joint %q", s.Name)
	}
	if s.Type != geomspec.JointRevolute {
		return j, nil
	}
	lo, hi := -math.Pi, math.Pi
	if s.Limits != nil {
		lo, hi = s.Limits[0], s.Limits[1]
	}
	if j.Limit, err = world.AddRotaryLimit(s.Name+"_limit", parent, child, lo, hi, opts.LimitMaxForce); err != nil {
		return Joint{}, legerr.Wrap(legerr.ErrCodeInternal, err, "joint %q", s.Name)
	}
	if s.Motorized() {
		force := s.Motor.MaxForce
		if opts.MotorMaxForce > 0 {
			force = opts.MotorMaxForce
		}
		if j.Motor, err = world.AddMotor(s.Name+"_motor", parent, child, force); err != nil {
			return Joint{}, legerr.Wrap(legerr.ErrCodeInternal, err, "joint %q", s.Name)
		}
	}
	return j, nil
}

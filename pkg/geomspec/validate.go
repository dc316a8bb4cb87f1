package geomspec

import (
	"math"

	"github.com/matzehuels/legsim/pkg/dag"
	legerr "github.com/matzehuels/legsim/pkg/errors"
)

// Validate checks the spec for structural problems: bad names and values,
// joints referring to unknown bodies, duplicate joints, malformed motors and
// limits, parent-to-child cycles, and jointed links that no chain of joints
// connects to the torso. Links no joint mentions are left to the builder,
// which skips them with a warning. It returns the first problem found as
// an INVALID_SPEC error.
func (s *Spec) Validate() error {
	if s == nil {
		return invalid("spec is nil")
	}
	if err := s.validateScalars(); err != nil {
		return err
	}
	if len(s.Links) == 0 {
		return invalid("spec has no links")
	}
	for _, name := range s.LinkNames() {
		l := s.Links[name]
		if name == TorsoName {
			return invalid("link name %q is reserved", TorsoName)
		}
		if err := legerr.ValidateName("link", name); err != nil {
			return legerr.Wrap(legerr.ErrCodeInvalidSpec, err, "link %q", name)
		}
		if err := legerr.ValidatePositive("length", l.Length); err != nil {
			return legerr.Wrap(legerr.ErrCodeInvalidSpec, err, "link %q", name)
		}
		if l.Mass != nil {
			if err := legerr.ValidatePositive("mass", *l.Mass); err != nil {
				return legerr.Wrap(legerr.ErrCodeInvalidSpec, err, "link %q", name)
			}
		}
	}

	seen := make(map[string]bool, len(s.Joints))
	placed := make(map[string]string)
	for _, j := range s.Joints {
		if err := legerr.ValidateName("joint", j.Name); err != nil {
			return legerr.Wrap(legerr.ErrCodeInvalidSpec, err, "joints")
		}
		if seen[j.Name] {
			return invalid("duplicate joint %q", j.Name)
		}
		seen[j.Name] = true
		if err := s.validateJoint(j); err != nil {
			return err
		}
		if j.ZeroAngle != nil {
			if prev, ok := placed[j.Child]; ok {
				return invalid("joint %q: link %q already placed by joint %q", j.Name, j.Child, prev)
			}
			placed[j.Child] = j.Name
		}
	}

	g, err := s.Graph()
	if err != nil {
		return err
	}
	attached := make(map[string]bool, len(s.Links)+1)
	for _, id := range g.Reachable(TorsoName) {
		attached[id] = true
	}
	for _, j := range s.Joints {
		for _, body := range []string{j.Parent, j.Child} {
			if !attached[body] {
				return invalid("joint %q: link %q is not connected to the torso", j.Name, body)
			}
		}
	}
	return nil
}

func (s *Spec) validateScalars() error {
	checks := []struct {
		field string
		v     float64
	}{
		{"link_defaults.mass", s.LinkDefaults.Mass},
		{"torso.size.width", s.Torso.Size.Width},
		{"torso.size.height", s.Torso.Size.Height},
		{"torso.mass", s.Torso.Mass},
		{"torso.inertia_zz", s.Torso.InertiaZZ},
		{"ground.thickness", s.Ground.Thickness},
	}
	for _, c := range checks {
		if err := legerr.ValidatePositive(c.field, c.v); err != nil {
			return legerr.Wrap(legerr.ErrCodeInvalidSpec, err, "%s", c.field)
		}
	}
	finiteChecks := []struct {
		field string
		v     float64
	}{
		{"torso.friction", s.Torso.Friction},
		{"ground.friction", s.Ground.Friction},
		{"fixed_offsets.top_offset", s.FixedOffsets.TopOffset},
		{"fixed_offsets.bottom_offset", s.FixedOffsets.BottomOffset},
		{"fixed_offsets.front_offset", s.FixedOffsets.FrontOffset},
		{"fixed_offsets.hip_spacing", s.FixedOffsets.HipSpacing},
	}
	for _, c := range finiteChecks {
		if err := legerr.ValidateFinite(c.field, c.v); err != nil {
			return legerr.Wrap(legerr.ErrCodeInvalidSpec, err, "%s", c.field)
		}
	}
	if s.Torso.Friction < 0 || s.Ground.Friction < 0 {
		return invalid("friction must not be negative")
	}
	a, b := s.Ground.Segment[0], s.Ground.Segment[1]
	for _, p := range []Vec2{a, b} {
		if !finite(p) {
			return invalid("ground segment has non-finite point %v", p)
		}
	}
	if a == b {
		return invalid("ground segment has zero length")
	}
	return nil
}

func (s *Spec) validateJoint(j Joint) error {
	for _, body := range []string{j.Parent, j.Child} {
		if body == TorsoName {
			continue
		}
		if _, ok := s.Links[body]; !ok {
			return invalid("joint %q references unknown body %q", j.Name, body)
		}
	}
	if j.Parent == j.Child {
		return invalid("joint %q connects %q to itself", j.Name, j.Parent)
	}
	if j.Child == TorsoName {
		return invalid("joint %q: torso cannot be a child", j.Name)
	}
	switch j.Type {
	case JointRevolute, JointPin:
	default:
		return invalid("joint %q has unknown type %q", j.Name, j.Type)
	}
	if !finite(j.Anchor) {
		return invalid("joint %q has non-finite anchor", j.Name)
	}
	if j.Limits != nil {
		if j.Type != JointRevolute {
			return invalid("joint %q: limits require a revolute joint", j.Name)
		}
		if err := legerr.ValidateRange("limits", j.Limits[0], j.Limits[1]); err != nil {
			return legerr.Wrap(legerr.ErrCodeInvalidSpec, err, "joint %q", j.Name)
		}
	}
	if j.Motor != nil && j.Motor.Enabled {
		if j.Type != JointRevolute {
			return invalid("joint %q: motor requires a revolute joint", j.Name)
		}
		if err := legerr.ValidatePositive("max_force", j.Motor.MaxForce); err != nil {
			return legerr.Wrap(legerr.ErrCodeInvalidSpec, err, "joint %q", j.Name)
		}
	}
	if j.ZeroAngle != nil {
		if err := legerr.ValidateFinite("zero_angle", *j.ZeroAngle); err != nil {
			return legerr.Wrap(legerr.ErrCodeInvalidSpec, err, "joint %q", j.Name)
		}
		if j.Parent != TorsoName || !j.Motorized() {
			return invalid("joint %q: zero_angle requires a torso-mounted motor", j.Name)
		}
	}
	return nil
}

// Graph builds the parent-to-child link graph of the spec. The torso is
// always present; links appear in [Spec.LinkNames] order. Cycles are
// reported as INVALID_SPEC naming the joint that closes one.
func (s *Spec) Graph() (*dag.DAG, error) {
	g := dag.New(dag.Metadata{"links": len(s.Links), "joints": len(s.Joints)})
	if err := g.AddNode(dag.Node{ID: TorsoName, Kind: dag.NodeKindTorso}); err != nil {
		return nil, legerr.Wrap(legerr.ErrCodeInvalidSpec, err, "torso")
	}
	for _, name := range s.LinkNames() {
		l := s.Links[name]
		if err := g.AddNode(dag.Node{ID: name, Meta: dag.Metadata{"length": l.Length}}); err != nil {
			return nil, legerr.Wrap(legerr.ErrCodeInvalidSpec, err, "link %q", name)
		}
	}
	for _, j := range s.Joints {
		e := dag.Edge{From: j.Parent, To: j.Child, Joint: j.Name, Motor: j.Motorized(),
			Meta: dag.Metadata{"type": string(j.Type)}}
		if err := g.AddEdge(e); err != nil {
			return nil, legerr.Wrap(legerr.ErrCodeInvalidSpec, err, "joint %q", j.Name)
		}
	}
	if back := g.BackEdges(); len(back) > 0 {
		return nil, legerr.Wrap(legerr.ErrCodeInvalidSpec, dag.ErrGraphHasCycle,
			"joint %q closes a cycle", back[0].Joint)
	}
	return g, nil
}

func invalid(format string, args ...any) error {
	return legerr.New(legerr.ErrCodeInvalidSpec, format, args...)
}

func finite(p Vec2) bool {
	for _, v := range p {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

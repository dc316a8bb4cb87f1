package mechanism

import (
	v2 "github.com/deadsy/sdfx/vec/v2"

	"github.com/matzehuels/legsim/pkg/physics"
	"github.com/matzehuels/legsim/pkg/servo"
)

// LinkKind says how a link body was placed.
type LinkKind int

const (
	// LinkCrank is placed at its motor pivot with the motor's zero angle.
	LinkCrank LinkKind = iota
	// LinkRod spans the farthest pair of its anchors.
	LinkRod
)

func (k LinkKind) String() string {
	if k == LinkCrank {
		return "crank"
	}
	return "rod"
}

// Link is a placed link body.
type Link struct {
	Name    string
	Kind    LinkKind
	Body    physics.Body
	Length  float64  // body length; for rods the anchor span
	Anchors []v2.Vec // distinct world anchors, insertion ordered
}

// Joint is a placed joint and the constraints created for it.
type Joint struct {
	Name   string
	Parent string
	Child  string
	World  v2.Vec // world anchor
	Pivot  physics.Constraint
	Limit  physics.Constraint // nil for pin joints
	Motor  physics.Motor      // nil without an enabled motor
}

// Mechanism is the result of a build. Bodies and constraints are owned by
// the world they were created in.
type Mechanism struct {
	Base     v2.Vec
	Torso    physics.Body
	Links    []Link
	Joints   []Joint
	Servos   []*servo.Joint
	Warnings []error // ORPHAN_LINK warnings, one per skipped link
}

// Link returns the named link body.
func (m *Mechanism) Link(name string) (Link, bool) {
	for _, l := range m.Links {
		if l.Name == name {
			return l, true
		}
	}
	return Link{}, false
}

// Joint returns the named joint.
func (m *Mechanism) Joint(name string) (Joint, bool) {
	for _, j := range m.Joints {
		if j.Name == name {
			return j, true
		}
	}
	return Joint{}, false
}

// Motors returns the joints carrying a motor, in spec order.
func (m *Mechanism) Motors() []Joint {
	var out []Joint
	for _, j := range m.Joints {
		if j.Motor != nil {
			out = append(out, j)
		}
	}
	return out
}

// Tip returns the world position of the far end of a link body.
func (l Link) Tip() v2.Vec {
	return l.Body.LocalToWorld(v2.Vec{X: l.Length})
}

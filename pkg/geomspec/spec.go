package geomspec

import (
	"math"
	"slices"

	v2 "github.com/deadsy/sdfx/vec/v2"
)

// TorsoName is the reserved body name joints use to refer to the torso.
const TorsoName = "torso"

// Vec2 is a point encoded as a JSON array [x, y], metres.
type Vec2 [2]float64

// V converts to a vector.
func (p Vec2) V() v2.Vec { return v2.Vec{X: p[0], Y: p[1]} }

// FromVec converts a vector, rounding to 1e-10 m.
func FromVec(v v2.Vec) Vec2 { return Vec2{tidy(v.X), tidy(v.Y)} }

func tidy(x float64) float64 {
	r := math.Round(x*1e10) / 1e10
	if r == 0 {
		return 0 // no negative zero in output
	}
	return r
}

// Spec is the declarative description of a mechanism in one rest pose.
// It is immutable once written.
type Spec struct {
	ID           string          `json:"id,omitempty"`
	LinkDefaults LinkDefaults    `json:"link_defaults"`
	Torso        Torso           `json:"torso"`
	FixedOffsets FixedOffsets    `json:"fixed_offsets"`
	Links        map[string]Link `json:"links"`
	Joints       []Joint         `json:"joints"`
	Ground       Ground          `json:"ground"`
}

// LinkDefaults applies to links that omit their own values.
type LinkDefaults struct {
	Mass float64 `json:"mass"`
}

// Size is a box size in metres.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Torso describes the body box all motors are mounted on.
type Torso struct {
	Size      Size    `json:"size"`
	Mass      float64 `json:"mass"`
	InertiaZZ float64 `json:"inertia_zz"`
	Friction  float64 `json:"friction"`
}

// FixedOffsets place the torso box around the motor pivots.
type FixedOffsets struct {
	TopOffset    float64 `json:"top_offset"`
	BottomOffset float64 `json:"bottom_offset"`
	FrontOffset  float64 `json:"front_offset"`
	HipSpacing   float64 `json:"hip_spacing"`
}

// Link is a rigid bar.
type Link struct {
	Length float64  `json:"length"`
	Mass   *float64 `json:"mass,omitempty"`
}

// MassOr returns the link mass, or def if unset.
func (l Link) MassOr(def float64) float64 {
	if l.Mass != nil {
		return *l.Mass
	}
	return def
}

// JointType is the constraint kind of a joint.
type JointType string

const (
	JointRevolute JointType = "revolute"
	JointPin      JointType = "pin"
)

// Motor is a velocity-controlled actuator on a joint.
type Motor struct {
	Enabled  bool    `json:"enabled"`
	MaxForce float64 `json:"max_force"`
}

// Joint pins a child body to a parent body at Anchor, in the local frame
// whose origin is the reference anchor.
type Joint struct {
	Name      string      `json:"name"`
	Parent    string      `json:"parent"`
	Child     string      `json:"child"`
	Type      JointType   `json:"type"`
	Anchor    Vec2        `json:"anchor"`
	Limits    *[2]float64 `json:"limits,omitempty"`
	Motor     *Motor      `json:"motor,omitempty"`
	ZeroAngle *float64    `json:"zero_angle,omitempty"`
}

// Motorized reports whether the joint carries an enabled motor.
func (j Joint) Motorized() bool { return j.Motor != nil && j.Motor.Enabled }

// Ground is a static segment the feet walk on.
type Ground struct {
	Segment   [2]Vec2 `json:"segment"`
	Thickness float64 `json:"thickness"`
	Friction  float64 `json:"friction"`
}

// Joint returns the named joint.
func (s *Spec) Joint(name string) (Joint, bool) {
	for _, j := range s.Joints {
		if j.Name == name {
			return j, true
		}
	}
	return Joint{}, false
}

// LinkNames returns link names in first-reference order: links named by
// joints come first in joint order, then any unreferenced links sorted.
func (s *Spec) LinkNames() []string {
	seen := make(map[string]bool, len(s.Links))
	var out []string
	add := func(n string) {
		if n == TorsoName || seen[n] {
			return
		}
		if _, ok := s.Links[n]; !ok {
			return
		}
		seen[n] = true
		out = append(out, n)
	}
	for _, j := range s.Joints {
		add(j.Parent)
		add(j.Child)
	}
	var rest []string
	for n := range s.Links {
		if !seen[n] {
			rest = append(rest, n)
		}
	}
	slices.Sort(rest)
	return append(out, rest...)
}

// Cranks maps each motor-placed link to the joint carrying its zero angle.
func (s *Spec) Cranks() map[string]Joint {
	out := make(map[string]Joint)
	for _, j := range s.Joints {
		if j.ZeroAngle != nil {
			out[j.Child] = j
		}
	}
	return out
}

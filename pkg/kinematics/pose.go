package kinematics

import (
	"slices"

	v2 "github.com/deadsy/sdfx/vec/v2"
)

// Joint point names produced by the standard chain, in solve order.
const (
	UpperTip    = "upper_tip"
	LowerTip    = "lower_tip"
	Joint1      = "joint1"
	BlueOrange  = "blue_orange"
	Foot        = "foot"
	GreenAttach = "green_attach"
)

// Angles are the two actuator inputs of one leg, in degrees.
type Angles struct {
	Upper float64 `json:"upper" toml:"upper"`
	Lower float64 `json:"lower" toml:"lower"`
}

// Pose is an ordered set of named joint points for one leg.
// The zero value is an empty pose ready for use.
type Pose struct {
	names  []string
	points map[string]v2.Vec
}

// Set records a point, keeping first-insertion order for existing names.
func (p *Pose) Set(name string, pt v2.Vec) {
	if p.points == nil {
		p.points = make(map[string]v2.Vec, 6)
	}
	if _, ok := p.points[name]; !ok {
		p.names = append(p.names, name)
	}
	p.points[name] = pt
}

// Point returns the named point and whether it exists.
func (p Pose) Point(name string) (v2.Vec, bool) {
	pt, ok := p.points[name]
	return pt, ok
}

// Names returns the point names in solve order.
func (p Pose) Names() []string { return slices.Clone(p.names) }

// Len returns the number of points.
func (p Pose) Len() int { return len(p.names) }

// IsZero reports whether the pose holds no points.
func (p Pose) IsZero() bool { return len(p.names) == 0 }

// Translate returns a copy of the pose with every point moved by d.
func (p Pose) Translate(d v2.Vec) Pose {
	var out Pose
	for _, n := range p.names {
		out.Set(n, p.points[n].Add(d))
	}
	return out
}

// MaxDisplacement returns the largest distance between same-named points
// of p and q. Names missing from either pose are ignored.
func (p Pose) MaxDisplacement(q Pose) float64 {
	var maxd float64
	for _, n := range p.names {
		b, ok := q.points[n]
		if !ok {
			continue
		}
		if d := p.points[n].Sub(b).Length(); d > maxd {
			maxd = d
		}
	}
	return maxd
}

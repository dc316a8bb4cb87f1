package kinematics

import (
	"math"

	v2 "github.com/deadsy/sdfx/vec/v2"

	legerr "github.com/matzehuels/legsim/pkg/errors"
)

// Circle is a centre and a radius in metres.
type Circle struct {
	Center v2.Vec
	Radius float64
}

// Intersection holds the two candidate points of a circle-circle solve.
// Tangent is set when the circles touch and Plus equals Minus.
type Intersection struct {
	Plus    v2.Vec
	Minus   v2.Vec
	Tangent bool
}

// Candidates returns both points, Plus first.
func (x Intersection) Candidates() [2]v2.Vec {
	return [2]v2.Vec{x.Plus, x.Minus}
}

// Intersect solves for the points lying on both circles.
//
// With D = c2-c1, dist = |D|, r = c1.Radius and d = c2.Radius:
//
//	a    = (r² - d² + dist²) / (2·dist)
//	h    = sqrt(max(0, r² - a²))
//	mid  = c1 + a·D/dist
//	perp = (-D.y, D.x) / dist
//
// and the candidates are mid ± h·perp. Separate, nested and concentric
// circles fail with code UNREACHABLE.
func Intersect(c1, c2 Circle) (Intersection, error) {
	d := c2.Center.Sub(c1.Center)
	dist := d.Length()
	r, s := c1.Radius, c2.Radius

	switch {
	case math.IsNaN(dist) || math.IsInf(dist, 0) || math.IsNaN(r) || math.IsNaN(s) || r < 0 || s < 0:
		return Intersection{}, legerr.New(legerr.ErrCodeUnreachable, "invalid circle (dist=%g, r=%g, d=%g)", dist, r, s)
	case dist > r+s:
		return Intersection{}, legerr.New(legerr.ErrCodeUnreachable, "circles are separate (dist=%.6g > %.6g)", dist, r+s)
	case dist < math.Abs(r-s):
		return Intersection{}, legerr.New(legerr.ErrCodeUnreachable, "one circle contains the other (dist=%.6g < %.6g)", dist, math.Abs(r-s))
	case dist == 0:
		return Intersection{}, legerr.New(legerr.ErrCodeUnreachable, "circles are concentric")
	}

	a := (r*r - s*s + dist*dist) / (2 * dist)
	h := math.Sqrt(math.Max(0, r*r-a*a))
	mid := c1.Center.Add(d.MulScalar(a / dist))
	perp := v2.Vec{X: -d.Y, Y: d.X}.MulScalar(h / dist)

	return Intersection{
		Plus:    mid.Add(perp),
		Minus:   mid.Sub(perp),
		Tangent: h == 0,
	}, nil
}

// Branch picks one candidate of an intersection.
type Branch func(Intersection) v2.Vec

// MinusBranch picks mid - h·perp.
func MinusBranch(x Intersection) v2.Vec { return x.Minus }

// PlusBranch picks mid + h·perp.
func PlusBranch(x Intersection) v2.Vec { return x.Plus }

// LowerBranch picks the candidate with the smaller y, Minus on a tie.
func LowerBranch(x Intersection) v2.Vec {
	if x.Plus.Y < x.Minus.Y {
		return x.Plus
	}
	return x.Minus
}

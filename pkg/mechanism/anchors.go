package mechanism

import (
	"math"

	v2 "github.com/deadsy/sdfx/vec/v2"
)

// DefaultTolerance is the distance below which two anchors are the same
// point, and the largest off-axis distance allowed for a rod anchor.
const DefaultTolerance = 1e-5

// AnchorSet is an insertion-ordered set of world points. Points closer than
// the tolerance to an existing member are dropped.
type AnchorSet struct {
	tol float64
	pts []v2.Vec
}

// NewAnchorSet returns an empty set. A non-positive tol uses
// [DefaultTolerance].
func NewAnchorSet(tol float64) *AnchorSet {
	if tol <= 0 {
		tol = DefaultTolerance
	}
	return &AnchorSet{tol: tol}
}

// Add inserts p and reports whether it was new.
func (a *AnchorSet) Add(p v2.Vec) bool {
	for _, q := range a.pts {
		if p.Sub(q).Length() <= a.tol {
			return false
		}
	}
	a.pts = append(a.pts, p)
	return true
}

// Len returns the number of distinct points.
func (a *AnchorSet) Len() int { return len(a.pts) }

// Points returns the points in insertion order.
func (a *AnchorSet) Points() []v2.Vec { return append([]v2.Vec(nil), a.pts...) }

// FarthestPair returns the two points farthest apart, earlier-inserted
// first. Ties keep the first pair found. It reports false for fewer than
// two points.
func (a *AnchorSet) FarthestPair() (from, to v2.Vec, ok bool) {
	if len(a.pts) < 2 {
		return v2.Vec{}, v2.Vec{}, false
	}
	best := -1.0
	for i, p := range a.pts {
		for _, q := range a.pts[i+1:] {
			if d := q.Sub(p).Length(); d > best {
				from, to, best = p, q, d
			}
		}
	}
	return from, to, true
}

// segment is a placed rod: origin, unit direction and length.
type segment struct {
	origin v2.Vec
	dir    v2.Vec
	length float64
}

func newSegment(origin v2.Vec, angle, length float64) segment {
	s, c := math.Sincos(angle)
	return segment{origin: origin, dir: v2.Vec{X: c, Y: s}, length: length}
}

func (s segment) angle() float64 { return math.Atan2(s.dir.Y, s.dir.X) }

// offset returns the position of p along the segment axis and its
// perpendicular distance from the axis.
func (s segment) offset(p v2.Vec) (along, across float64) {
	d := p.Sub(s.origin)
	along = d.X*s.dir.X + d.Y*s.dir.Y
	across = math.Abs(d.X*s.dir.Y - d.Y*s.dir.X)
	return along, across
}

// contains reports whether p lies on the segment within tol.
func (s segment) contains(p v2.Vec, tol float64) bool {
	along, across := s.offset(p)
	return across <= tol && along >= -tol && along <= s.length+tol
}

package kinematics

import (
	v2 "github.com/deadsy/sdfx/vec/v2"

	legerr "github.com/matzehuels/legsim/pkg/errors"
)

// DefaultHipSpacing is the distance between consecutive legs along x, metres.
const DefaultHipSpacing = 0.180

// DefaultLegNames lists the legs of the default body, reference leg first.
var DefaultLegNames = []string{"rear", "front"}

// Leg is one named, placed copy of the reference geometry.
type Leg struct {
	Name     string
	Geometry LegGeometry
	chain    *Chain
}

// Solve solves this leg for the given inputs.
func (l *Leg) Solve(in Angles) (Pose, error) {
	return l.chain.Solve(in)
}

// Chain returns the stage list used by Solve.
func (l *Leg) Chain() *Chain { return l.chain }

// LegResult is the outcome of solving one leg.
type LegResult struct {
	Pose Pose
	Err  error
}

// Body is an ordered set of independently solved legs.
type Body struct {
	Legs []*Leg
}

// Replicate derives one leg per name from the reference geometry. Leg i has
// its lower pivot moved by i·hipSpacing along x; its upper pivot is placed by
// reflecting the reference lower-to-upper offset through the moved lower
// pivot, and the fixed pivot keeps its offset from the lower pivot.
//
// With no names, [DefaultLegNames] is used.
func Replicate(ref LegGeometry, hipSpacing float64, names ...string) (*Body, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	if err := legerr.ValidateFinite("hip spacing", hipSpacing); err != nil {
		return nil, err
	}
	if len(names) == 0 {
		names = DefaultLegNames
	}

	b := &Body{Legs: make([]*Leg, 0, len(names))}
	seen := make(map[string]bool, len(names))
	upperOffset := ref.Lower.Pivot.Sub(ref.Upper.Pivot)
	fixedOffset := ref.Fixed.Sub(ref.Lower.Pivot)

	for i, name := range names {
		if err := legerr.ValidateName("leg", name); err != nil {
			return nil, err
		}
		if seen[name] {
			return nil, legerr.New(legerr.ErrCodeInvalidInput, "duplicate leg name %q", name)
		}
		seen[name] = true

		g := ref
		g.Lower.Pivot = ref.Lower.Pivot.Add(v2.Vec{X: float64(i) * hipSpacing})
		g.Upper.Pivot = g.Lower.Pivot.Sub(upperOffset)
		g.Fixed = g.Lower.Pivot.Add(fixedOffset)

		b.Legs = append(b.Legs, &Leg{Name: name, Geometry: g, chain: NewChain(g)})
	}
	return b, nil
}

// Leg returns the named leg.
func (b *Body) Leg(name string) (*Leg, bool) {
	for _, l := range b.Legs {
		if l.Name == name {
			return l, true
		}
	}
	return nil, false
}

// Names returns the leg names in order.
func (b *Body) Names() []string {
	names := make([]string, len(b.Legs))
	for i, l := range b.Legs {
		names[i] = l.Name
	}
	return names
}

// Solve solves every leg independently. A leg with no entry in angles fails
// with INVALID_INPUT; other legs are unaffected.
func (b *Body) Solve(angles map[string]Angles) map[string]LegResult {
	out := make(map[string]LegResult, len(b.Legs))
	for _, l := range b.Legs {
		in, ok := angles[l.Name]
		if !ok {
			out[l.Name] = LegResult{Err: legerr.New(legerr.ErrCodeInvalidInput, "no angles for leg %q", l.Name)}
			continue
		}
		p, err := l.Solve(in)
		out[l.Name] = LegResult{Pose: p, Err: err}
	}
	return out
}

// Reference returns the first leg, whose upper pivot anchors local frames.
func (b *Body) Reference() *Leg {
	if len(b.Legs) == 0 {
		return nil
	}
	return b.Legs[0]
}

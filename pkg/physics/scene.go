package physics

import (
	"fmt"
	"math"

	v2 "github.com/deadsy/sdfx/vec/v2"
)

// Scene is a kinematic [World]. Each step it turns every motor's child body
// by rate·dt relative to its parent, then clamps rotary limits. Pivots are
// recorded but not solved; [Scene.PivotError] reports how far apart their
// two ends have drifted.
//
// The zero value is not usable; use NewScene. Scene is not safe for
// concurrent use.
type Scene struct {
	bodies []*body
	byName map[string]*body
	ground []Segment
	pivots []*pivot
	limits []*limit
	motors []*motor
	time   float64
}

// Segment is a static ground segment.
type Segment struct {
	A, B      v2.Vec
	Thickness float64
	Friction  float64
}

// NewScene returns an empty scene.
func NewScene() *Scene {
	return &Scene{byName: make(map[string]*body)}
}

type body struct {
	def BodyDef
	pos v2.Vec
	ang float64
}

func (b *body) Name() string     { return b.def.Name }
func (b *body) Position() v2.Vec { return b.pos }
func (b *body) Angle() float64   { return b.ang }
func (b *body) LocalToWorld(p v2.Vec) v2.Vec {
	return b.pos.Add(Rotate(p, b.ang))
}
func (b *body) WorldToLocal(p v2.Vec) v2.Vec {
	return Rotate(p.Sub(b.pos), -b.ang)
}

type pair struct {
	name string
	a, b *body
}

func (p pair) Name() string         { return p.name }
func (p pair) Bodies() (Body, Body) { return p.a, p.b }

type pivot struct {
	pair
	localA, localB v2.Vec
	maxForce       float64
}

type limit struct {
	pair
	lo, hi   float64
	maxForce float64
}

type motor struct {
	pair
	rate     float64
	maxForce float64
}

func (m *motor) Rate() float64        { return m.rate }
func (m *motor) SetRate(rate float64) { m.rate = rate }
func (m *motor) MaxForce() float64    { return m.maxForce }

// AddBody creates a body. Names must be unique and mass and moment positive.
func (s *Scene) AddBody(def BodyDef) (Body, error) {
	if _, ok := s.byName[def.Name]; ok {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateBody, def.Name)
	}
	if !(def.Mass > 0) || !(def.Moment > 0) {
		return nil, fmt.Errorf("%w: %q needs positive mass and moment", ErrBadBody, def.Name)
	}
	switch def.Shape {
	case ShapeSegment:
		if !(def.Length > 0) {
			return nil, fmt.Errorf("%w: %q has no length", ErrBadBody, def.Name)
		}
	case ShapeBox:
		if !(def.Width > 0) || !(def.Height > 0) {
			return nil, fmt.Errorf("%w: %q has an empty box", ErrBadBody, def.Name)
		}
	default:
		return nil, fmt.Errorf("%w: %q has unknown shape %d", ErrBadBody, def.Name, def.Shape)
	}
	b := &body{def: def, pos: def.Position, ang: def.Angle}
	s.bodies = append(s.bodies, b)
	s.byName[def.Name] = b
	return b, nil
}

// AddGround adds a static segment.
func (s *Scene) AddGround(a, b v2.Vec, thickness, friction float64) error {
	if a == b {
		return fmt.Errorf("ground segment has zero length")
	}
	s.ground = append(s.ground, Segment{A: a, B: b, Thickness: thickness, Friction: friction})
	return nil
}

// AddPivot pins a and b together at a world anchor.
func (s *Scene) AddPivot(name string, a, b Body, anchor v2.Vec, maxForce float64) (Constraint, error) {
	p, err := s.pair(name, a, b)
	if err != nil {
		return nil, err
	}
	pv := &pivot{pair: p, localA: p.a.WorldToLocal(anchor), localB: p.b.WorldToLocal(anchor), maxForce: maxForce}
	s.pivots = append(s.pivots, pv)
	return pv, nil
}

// AddRotaryLimit keeps b.Angle()-a.Angle() within [lo, hi].
func (s *Scene) AddRotaryLimit(name string, a, b Body, lo, hi, maxForce float64) (Constraint, error) {
	p, err := s.pair(name, a, b)
	if err != nil {
		return nil, err
	}
	if lo > hi {
		return nil, fmt.Errorf("rotary limit %q: lower bound %v exceeds upper bound %v", name, lo, hi)
	}
	l := &limit{pair: p, lo: lo, hi: hi, maxForce: maxForce}
	s.limits = append(s.limits, l)
	return l, nil
}

// AddMotor adds a velocity motor turning b relative to a. The rate starts
// at zero.
func (s *Scene) AddMotor(name string, a, b Body, maxForce float64) (Motor, error) {
	p, err := s.pair(name, a, b)
	if err != nil {
		return nil, err
	}
	m := &motor{pair: p, maxForce: maxForce}
	s.motors = append(s.motors, m)
	return m, nil
}

func (s *Scene) pair(name string, a, b Body) (pair, error) {
	ba, ok := a.(*body)
	if !ok || ba == nil || s.byName[ba.def.Name] != ba {
		return pair{}, fmt.Errorf("%s: %w", name, ErrForeignBody)
	}
	bb, ok := b.(*body)
	if !ok || bb == nil || s.byName[bb.def.Name] != bb {
		return pair{}, fmt.Errorf("%s: %w", name, ErrForeignBody)
	}
	return pair{name: name, a: ba, b: bb}, nil
}

// Step advances the scene by dt seconds.
func (s *Scene) Step(dt float64) {
	for _, m := range s.motors {
		m.b.ang += m.rate * dt
	}
	for _, l := range s.limits {
		rel := l.b.ang - l.a.ang
		switch {
		case rel < l.lo:
			l.b.ang = l.a.ang + l.lo
		case rel > l.hi:
			l.b.ang = l.a.ang + l.hi
		}
	}
	s.time += dt
}

// Time returns the simulated time in seconds.
func (s *Scene) Time() float64 { return s.time }

// Body returns the named body.
func (s *Scene) Body(name string) (Body, bool) {
	b, ok := s.byName[name]
	if !ok {
		return nil, false
	}
	return b, true
}

// Bodies returns the body definitions in creation order.
func (s *Scene) Bodies() []BodyDef {
	out := make([]BodyDef, len(s.bodies))
	for i, b := range s.bodies {
		out[i] = b.def
	}
	return out
}

// Ground returns the static segments.
func (s *Scene) Ground() []Segment { return append([]Segment(nil), s.ground...) }

// Counts returns the number of pivots, rotary limits and motors.
func (s *Scene) Counts() (pivots, limits, motors int) {
	return len(s.pivots), len(s.limits), len(s.motors)
}

// PivotAnchor returns the world positions of both ends of the named pivot.
func (s *Scene) PivotAnchor(name string) (onA, onB v2.Vec, ok bool) {
	for _, p := range s.pivots {
		if p.name == name {
			return p.a.LocalToWorld(p.localA), p.b.LocalToWorld(p.localB), true
		}
	}
	return v2.Vec{}, v2.Vec{}, false
}

// PivotError returns the largest distance between the two ends of any pivot.
func (s *Scene) PivotError() float64 {
	var worst float64
	for _, p := range s.pivots {
		d := p.a.LocalToWorld(p.localA).Sub(p.b.LocalToWorld(p.localB)).Length()
		worst = math.Max(worst, d)
	}
	return worst
}

var _ World = (*Scene)(nil)

// Package physics defines the rigid-body boundary the mechanism builder
// talks to, and a small kinematic [Scene] implementing it.
//
// A real engine (dynamics, contacts, constraint solving) plugs in behind
// [World]. The Scene only integrates motor rates into body angles and
// enforces rotary limits, which is enough to drive the servo loop and to
// check where every pin lands.
package physics

import (
	"errors"
	"math"

	v2 "github.com/deadsy/sdfx/vec/v2"
)

var (
	// ErrDuplicateBody is returned when a body name is already taken.
	ErrDuplicateBody = errors.New("duplicate body name")

	// ErrForeignBody is returned when a constraint refers to a body the
	// world did not create.
	ErrForeignBody = errors.New("body does not belong to this world")

	// ErrBadBody is returned for bodies without positive mass and moment
	// or with an unusable shape.
	ErrBadBody = errors.New("invalid body definition")
)

// ShapeKind selects the collision shape attached to a body.
type ShapeKind int

const (
	// ShapeSegment is a rod from local (0, 0) to (Length, 0).
	ShapeSegment ShapeKind = iota
	// ShapeBox is a Width by Height box centred on the body origin.
	ShapeBox
)

// BodyDef describes a dynamic body to create.
type BodyDef struct {
	Name     string
	Shape    ShapeKind
	Position v2.Vec
	Angle    float64 // radians
	Mass     float64
	Moment   float64
	Friction float64

	Length float64 // segment length
	Radius float64 // segment radius

	Width  float64 // box width
	Height float64 // box height
}

// Body is a rigid body owned by a [World].
type Body interface {
	Name() string
	Position() v2.Vec
	Angle() float64
	// LocalToWorld maps a point in body coordinates to world coordinates.
	LocalToWorld(p v2.Vec) v2.Vec
	// WorldToLocal maps a world point into body coordinates.
	WorldToLocal(p v2.Vec) v2.Vec
}

// Constraint joins two bodies.
type Constraint interface {
	Name() string
	Bodies() (a, b Body)
}

// Motor drives the relative angular velocity of its second body against
// its first.
type Motor interface {
	Constraint
	Rate() float64
	SetRate(rate float64)
	MaxForce() float64
}

// World creates bodies and constraints and advances time.
type World interface {
	AddBody(def BodyDef) (Body, error)
	AddGround(a, b v2.Vec, thickness, friction float64) error
	AddPivot(name string, a, b Body, anchor v2.Vec, maxForce float64) (Constraint, error)
	AddRotaryLimit(name string, a, b Body, lo, hi, maxForce float64) (Constraint, error)
	AddMotor(name string, a, b Body, maxForce float64) (Motor, error)
	Step(dt float64)
}

// RodMoment returns the moment of inertia of a slender rod about its centre.
func RodMoment(mass, length float64) float64 {
	return mass * length * length / 12
}

// Rotate rotates v by angle radians.
func Rotate(v v2.Vec, angle float64) v2.Vec {
	s, c := math.Sincos(angle)
	return v2.Vec{X: v.X*c - v.Y*s, Y: v.X*s + v.Y*c}
}

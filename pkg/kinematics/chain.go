package kinematics

import (
	v2 "github.com/deadsy/sdfx/vec/v2"

	legerr "github.com/matzehuels/legsim/pkg/errors"
)

// Default leg geometry, metres and degrees. Pivot positions are relative to
// the upper actuator pivot of the reference leg.
const (
	DefaultUpperRadius = 0.038
	DefaultLowerRadius = 0.030
	DefaultRed         = 0.031
	DefaultBlue        = 0.104
	DefaultOrange      = 0.124
	DefaultAttach      = 0.048
	DefaultJointRatio  = 0.24

	DefaultUpperBaseDeg = 135.0
	DefaultLowerBaseDeg = -45.0
	DefaultMinDeg       = 0.0
	DefaultMaxDeg       = 40.0
)

var (
	// DefaultLowerPivot is the lower actuator pivot relative to the upper one.
	DefaultLowerPivot = v2.Vec{X: 0.0386, Y: -0.0268}

	// DefaultFixedOffset places the grounded rocker pivot relative to the lower pivot.
	DefaultFixedOffset = v2.Vec{X: 0.004, Y: 0.0113}
)

// LegGeometry describes one leg: two actuators, the grounded rocker pivot
// and the bar lengths of the chain.
//
// Orange and Attach are optional; zero disables the coupler and attach
// stages respectively. Attach requires Orange.
type LegGeometry struct {
	Upper Actuator
	Lower Actuator
	Fixed v2.Vec // grounded pivot of the rocker

	Red        float64 // coupler from the upper tip to Joint1
	Blue       float64 // full rocker length, Fixed to BlueOrange
	JointRatio float64 // fraction of Blue between Joint1 and BlueOrange
	Orange     float64 // coupler from BlueOrange to Foot
	Attach     float64 // distance from BlueOrange to GreenAttach along Orange
}

// DefaultGeometry returns the reference leg with its upper pivot at the origin.
func DefaultGeometry() LegGeometry {
	return LegGeometry{
		Upper: Actuator{
			Radius:  DefaultUpperRadius,
			BaseDeg: DefaultUpperBaseDeg,
			Sign:    1,
			MinDeg:  DefaultMinDeg,
			MaxDeg:  DefaultMaxDeg,
		},
		Lower: Actuator{
			Pivot:   DefaultLowerPivot,
			Radius:  DefaultLowerRadius,
			BaseDeg: DefaultLowerBaseDeg,
			Sign:    -1,
			MinDeg:  DefaultMinDeg,
			MaxDeg:  DefaultMaxDeg,
		},
		Fixed:      DefaultLowerPivot.Add(DefaultFixedOffset),
		Red:        DefaultRed,
		Blue:       DefaultBlue,
		JointRatio: DefaultJointRatio,
		Orange:     DefaultOrange,
		Attach:     DefaultAttach,
	}
}

// Validate checks that the geometry can be solved at all.
func (g LegGeometry) Validate() error {
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"upper radius", g.Upper.Radius},
		{"lower radius", g.Lower.Radius},
		{"red", g.Red},
		{"blue", g.Blue},
	} {
		if err := legerr.ValidatePositive(f.name, f.v); err != nil {
			return err
		}
	}
	if g.JointRatio < 0 || g.JointRatio >= 1 {
		return legerr.New(legerr.ErrCodeInvalidInput, "joint ratio must be in [0, 1), got %v", g.JointRatio)
	}
	if g.Orange < 0 || g.Attach < 0 {
		return legerr.New(legerr.ErrCodeInvalidInput, "orange and attach must not be negative")
	}
	if g.Attach > 0 && g.Orange == 0 {
		return legerr.New(legerr.ErrCodeInvalidInput, "attach requires an orange coupler")
	}
	for _, a := range []Actuator{g.Upper, g.Lower} {
		if a.Sign != 1 && a.Sign != -1 {
			return legerr.New(legerr.ErrCodeInvalidInput, "actuator sign must be +1 or -1, got %v", a.Sign)
		}
		if err := legerr.ValidateRange("actuator range", a.MinDeg, a.MaxDeg); err != nil {
			return err
		}
	}
	return nil
}

// Translate returns a copy of the geometry with every pivot moved by d.
func (g LegGeometry) Translate(d v2.Vec) LegGeometry {
	g.Upper = g.Upper.Translate(d)
	g.Lower = g.Lower.Translate(d)
	g.Fixed = g.Fixed.Add(d)
	return g
}

// Clamp limits both inputs to their actuator ranges.
func (g LegGeometry) Clamp(in Angles) Angles {
	return Angles{Upper: g.Upper.Clamp(in.Upper), Lower: g.Lower.Clamp(in.Lower)}
}

// Chain is an ordered list of stages solving one leg.
type Chain struct {
	Geometry LegGeometry
	Stages   []Stage
}

// NewChain builds the stage list matching the geometry.
func NewChain(g LegGeometry) *Chain {
	stages := []Stage{ProjectStage{}, CrankStage{}, ExtrapolateStage{}}
	if g.Orange > 0 {
		stages = append(stages, CouplerStage{})
		if g.Attach > 0 {
			stages = append(stages, AttachStage{})
		}
	}
	return &Chain{Geometry: g, Stages: stages}
}

// Solve runs every stage in order. On failure the returned pose is empty and
// the error carries the failing stage's code.
func (c *Chain) Solve(in Angles) (Pose, error) {
	var p Pose
	for _, s := range c.Stages {
		if err := s.Solve(c.Geometry, in, &p); err != nil {
			code := legerr.GetCode(err)
			if code == "" {
				code = legerr.ErrCodeInternal
			}
			return Pose{}, legerr.Wrap(code, err, "%s stage", s.Name())
		}
	}
	return p, nil
}

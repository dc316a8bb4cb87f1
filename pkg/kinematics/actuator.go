package kinematics

import (
	"math"

	v2 "github.com/deadsy/sdfx/vec/v2"
)

// Actuator is a crank driven about a fixed pivot on the torso.
//
// The absolute crank angle is BaseDeg + Sign*input. Sign is +1 or -1 and
// encodes the mounting direction of the motor.
type Actuator struct {
	Pivot   v2.Vec  // crank pivot, metres
	Radius  float64 // crank length, metres
	BaseDeg float64 // absolute angle at zero input
	Sign    float64 // +1 or -1
	MinDeg  float64 // lowest accepted input
	MaxDeg  float64 // highest accepted input
}

// Angle returns the absolute crank angle in radians for an input in degrees.
func (a Actuator) Angle(inputDeg float64) float64 {
	return Radians(a.BaseDeg + a.Sign*inputDeg)
}

// Tip returns the crank tip for an input in degrees.
func (a Actuator) Tip(inputDeg float64) v2.Vec {
	th := a.Angle(inputDeg)
	return a.Pivot.Add(v2.Vec{X: math.Cos(th), Y: math.Sin(th)}.MulScalar(a.Radius))
}

// Clamp limits an input to the actuator's range.
func (a Actuator) Clamp(inputDeg float64) float64 {
	return math.Max(a.MinDeg, math.Min(a.MaxDeg, inputDeg))
}

// InRange reports whether the input lies within the actuator's range.
func (a Actuator) InRange(inputDeg float64) bool {
	return inputDeg >= a.MinDeg && inputDeg <= a.MaxDeg
}

// Translate returns a copy of the actuator with its pivot moved by d.
func (a Actuator) Translate(d v2.Vec) Actuator {
	a.Pivot = a.Pivot.Add(d)
	return a
}

// Radians converts degrees to radians.
func Radians(deg float64) float64 { return deg * math.Pi / 180 }

// Degrees converts radians to degrees.
func Degrees(rad float64) float64 { return rad * 180 / math.Pi }

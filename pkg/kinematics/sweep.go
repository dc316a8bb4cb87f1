package kinematics

import (
	"math"

	legerr "github.com/matzehuels/legsim/pkg/errors"
)

// Axis selects which actuator a sweep drives.
type Axis int

const (
	AxisUpper Axis = iota
	AxisLower
)

// String returns "upper" or "lower".
func (a Axis) String() string {
	if a == AxisLower {
		return "lower"
	}
	return "upper"
}

// SweepReport summarises a sweep of one actuator with the other held fixed.
type SweepReport struct {
	Axis      Axis    `json:"axis"`
	From      float64 `json:"from"`
	To        float64 `json:"to"`
	Step      float64 `json:"step"`
	Samples   int     `json:"samples"`
	Reachable int     `json:"reachable"`

	// MaxStep is the largest joint displacement between consecutive
	// reachable samples, metres; MaxStepAt is the input where it ended.
	MaxStep   float64 `json:"max_step"`
	MaxStepAt float64 `json:"max_step_at"`

	// Failures counts samples per failure code.
	Failures map[string]int `json:"failures,omitempty"`
}

// Sweep drives one actuator from `from` to `to` (inclusive) in steps of
// `step` degrees, holding the other at `other`.
func (c *Chain) Sweep(axis Axis, other, from, to, step float64) (SweepReport, error) {
	if step <= 0 || math.IsNaN(step) {
		return SweepReport{}, legerr.New(legerr.ErrCodeInvalidInput, "sweep step must be positive, got %v", step)
	}
	if err := legerr.ValidateRange("sweep", from, to); err != nil {
		return SweepReport{}, err
	}

	rep := SweepReport{Axis: axis, From: from, To: to, Step: step}
	n := int(math.Floor((to-from)/step+1e-9)) + 1

	var prev Pose
	for i := 0; i < n; i++ {
		x := from + float64(i)*step
		in := Angles{Upper: x, Lower: other}
		if axis == AxisLower {
			in = Angles{Upper: other, Lower: x}
		}
		rep.Samples++

		p, err := c.Solve(in)
		if err != nil {
			if rep.Failures == nil {
				rep.Failures = make(map[string]int)
			}
			rep.Failures[string(legerr.GetCode(err))]++
			prev = Pose{}
			continue
		}
		rep.Reachable++
		if !prev.IsZero() {
			if d := p.MaxDisplacement(prev); d > rep.MaxStep {
				rep.MaxStep, rep.MaxStepAt = d, x
			}
		}
		prev = p
	}
	return rep, nil
}

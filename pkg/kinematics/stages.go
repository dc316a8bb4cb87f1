package kinematics

import (
	v2 "github.com/deadsy/sdfx/vec/v2"

	legerr "github.com/matzehuels/legsim/pkg/errors"
)

// Stage computes one or more named points from the geometry, the inputs and
// the points produced by earlier stages.
type Stage interface {
	Name() string
	Solve(g LegGeometry, in Angles, p *Pose) error
}

// ProjectStage places both actuator tips.
type ProjectStage struct{}

func (ProjectStage) Name() string { return "project" }

func (ProjectStage) Solve(g LegGeometry, in Angles, p *Pose) error {
	p.Set(UpperTip, g.Upper.Tip(in.Upper))
	p.Set(LowerTip, g.Lower.Tip(in.Lower))
	return nil
}

// CrankStage closes the upper four-bar: Joint1 lies Red from the upper tip
// and Blue·(1-JointRatio) from the fixed pivot.
type CrankStage struct{}

func (CrankStage) Name() string { return "crank" }

func (CrankStage) Solve(g LegGeometry, _ Angles, p *Pose) error {
	tip, err := requirePoint(p, UpperTip)
	if err != nil {
		return err
	}
	x, err := Intersect(
		Circle{Center: tip, Radius: g.Red},
		Circle{Center: g.Fixed, Radius: g.Blue * (1 - g.JointRatio)},
	)
	if err != nil {
		return err
	}
	p.Set(Joint1, MinusBranch(x))
	return nil
}

// ExtrapolateStage extends the rocker from the fixed pivot through Joint1
// to its full length.
type ExtrapolateStage struct{}

func (ExtrapolateStage) Name() string { return "extrapolate" }

func (ExtrapolateStage) Solve(g LegGeometry, _ Angles, p *Pose) error {
	j1, err := requirePoint(p, Joint1)
	if err != nil {
		return err
	}
	dir := g.Fixed.Sub(j1)
	n := dir.Length()
	if n == 0 {
		return legerr.New(legerr.ErrCodeDegenerate, "joint1 coincides with the fixed pivot")
	}
	p.Set(BlueOrange, g.Fixed.Sub(dir.MulScalar(g.Blue/n)))
	return nil
}

// CouplerStage places the foot Orange away from both BlueOrange and the
// lower tip, taking the lower candidate.
type CouplerStage struct{}

func (CouplerStage) Name() string { return "coupler" }

func (CouplerStage) Solve(g LegGeometry, _ Angles, p *Pose) error {
	lj, err := requirePoint(p, BlueOrange)
	if err != nil {
		return err
	}
	tip, err := requirePoint(p, LowerTip)
	if err != nil {
		return err
	}
	x, err := Intersect(
		Circle{Center: lj, Radius: g.Orange},
		Circle{Center: tip, Radius: g.Orange},
	)
	if err != nil {
		return err
	}
	p.Set(Foot, LowerBranch(x))
	return nil
}

// AttachStage places GreenAttach Attach along the coupler from BlueOrange.
type AttachStage struct{}

func (AttachStage) Name() string { return "attach" }

func (AttachStage) Solve(g LegGeometry, _ Angles, p *Pose) error {
	lj, err := requirePoint(p, BlueOrange)
	if err != nil {
		return err
	}
	foot, err := requirePoint(p, Foot)
	if err != nil {
		return err
	}
	axis := foot.Sub(lj)
	n := axis.Length()
	if n == 0 {
		return legerr.New(legerr.ErrCodeDegenerate, "coupler axis has zero length")
	}
	if g.Attach > n {
		return legerr.New(legerr.ErrCodeAttachOutOfRange, "attach distance %.6g exceeds coupler length %.6g", g.Attach, n)
	}
	p.Set(GreenAttach, lj.Add(axis.MulScalar(g.Attach/n)))
	return nil
}

func requirePoint(p *Pose, name string) (v2.Vec, error) {
	pt, ok := p.Point(name)
	if !ok {
		return v2.Vec{}, legerr.New(legerr.ErrCodeInternal, "point %s not solved yet", name)
	}
	return pt, nil
}

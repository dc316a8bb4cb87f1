// Package pipeline runs the solve → compile → build → simulate chain for
// the CLI and the HTTP server.
//
// By centralizing this logic both entry points share one set of defaults,
// one cache layout and the same observability hooks.
//
// # Stages
//
//  1. Solve: solve every leg for the requested actuator inputs
//  2. Commit: solve and freeze the pose into a geometry spec
//  3. Build: instantiate a spec in a physics world
//  4. Simulate: drive a built mechanism with the servo controller
//
// Sweep and Graph are side stages: a reachability sweep of one actuator and
// a drawing of a spec's link topology.
//
// # Usage
//
//	runner := pipeline.NewRunner(cfg, cache, nil, logger)
//	res, err := runner.Solve(ctx, pipeline.Options{
//	    Angles: map[string]kinematics.Angles{"rear": {Upper: 10}},
//	})
//	commit, err := runner.Commit(ctx, pipeline.Options{})
//	sim, err := runner.Simulate(ctx, commit.Spec, pipeline.SimOptions{})
package pipeline

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/charmbracelet/log"

	legerr "github.com/matzehuels/legsim/pkg/errors"
	"github.com/matzehuels/legsim/pkg/geomspec"
	"github.com/matzehuels/legsim/pkg/kinematics"
	"github.com/matzehuels/legsim/pkg/mechanism"
	"github.com/matzehuels/legsim/pkg/physics"
	"github.com/matzehuels/legsim/pkg/sim"
)

// DefaultSweepStep is the sweep resolution, degrees.
const DefaultSweepStep = 0.1

// Graph output formats.
const (
	FormatDOT = "dot"
	FormatSVG = "svg"
)

// ValidFormats is the set of supported graph formats.
var ValidFormats = map[string]bool{
	FormatDOT: true,
	FormatSVG: true,
}

// Options selects the actuator inputs of a solve or commit. Legs missing
// from Angles are solved at zero input.
type Options struct {
	Angles  map[string]kinematics.Angles `json:"angles,omitempty"`
	Clamp   bool                         `json:"clamp,omitempty"`   // clamp inputs to each actuator's range
	Refresh bool                         `json:"refresh,omitempty"` // bypass cached results

	Logger *log.Logger `json:"-"`

	validated bool
}

// SweepOptions selects one actuator sweep. A zero From and To sweep the
// actuator's full range.
type SweepOptions struct {
	Leg     string  `json:"leg,omitempty"` // defaults to the reference leg
	Axis    string  `json:"axis,omitempty"`
	Other   float64 `json:"other,omitempty"` // input held on the other actuator
	From    float64 `json:"from,omitempty"`
	To      float64 `json:"to,omitempty"`
	Step    float64 `json:"step,omitempty"`
	Refresh bool    `json:"refresh,omitempty"`
}

// SimOptions configures a simulation run. Zero values take the config's.
type SimOptions struct {
	Duration time.Duration
	Seed     uint64
	World    physics.World // defaults to a fresh physics.Scene
	OnTick   func(t float64) error
}

// SolveResult holds one report per leg in body order.
type SolveResult struct {
	Legs []LegReport `json:"legs"`
}

// LegReport is the solve outcome of one leg: points on success, the error
// code and message on failure.
type LegReport struct {
	Name   string            `json:"name"`
	Angles kinematics.Angles `json:"angles"`
	Points []Point           `json:"points,omitempty"`
	Code   string            `json:"code,omitempty"`
	Error  string            `json:"error,omitempty"`
}

// Point is a named joint position, metres.
type Point struct {
	Name string  `json:"name"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// Commit is a frozen pose.
type Commit struct {
	Spec  *geomspec.Spec    `json:"spec"`
	Poses geomspec.PoseDump `json:"poses"`
}

// SimResult is the outcome of a simulation run.
type SimResult struct {
	Mechanism *mechanism.Mechanism
	World     physics.World
	Stats     sim.Stats
}

// CacheInfo tracks which stages were served from the cache.
type CacheInfo struct {
	SolveHit  bool
	SweepHit  bool
	CommitHit bool
}

// OK reports whether every leg solved.
func (r *SolveResult) OK() bool {
	for _, l := range r.Legs {
		if l.Error != "" {
			return false
		}
	}
	return true
}

// Failed returns the number of legs that did not solve.
func (r *SolveResult) Failed() int {
	n := 0
	for _, l := range r.Legs {
		if l.Error != "" {
			n++
		}
	}
	return n
}

// Leg returns the report for name.
func (r *SolveResult) Leg(name string) (LegReport, bool) {
	for _, l := range r.Legs {
		if l.Name == name {
			return l, true
		}
	}
	return LegReport{}, false
}

// Poses returns the solved points of every successful leg.
func (r *SolveResult) Poses() geomspec.PoseDump {
	d := make(geomspec.PoseDump, len(r.Legs))
	for _, l := range r.Legs {
		if l.Error != "" {
			continue
		}
		pts := make(map[string]geomspec.Vec2, len(l.Points))
		for _, p := range l.Points {
			pts[p.Name] = geomspec.Vec2{p.X, p.Y}
		}
		d[l.Name] = pts
	}
	return d
}

// ValidateFormat checks that a graph format is supported.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return legerr.New(legerr.ErrCodeUnsupported, "invalid format: %q (must be one of: dot, svg)", format)
	}
	return nil
}

// ParseAxis converts "upper" or "lower" to a sweep axis.
func ParseAxis(s string) (kinematics.Axis, error) {
	switch s {
	case "", "upper":
		return kinematics.AxisUpper, nil
	case "lower":
		return kinematics.AxisLower, nil
	}
	return 0, legerr.New(legerr.ErrCodeInvalidInput, "invalid axis: %q (must be upper or lower)", s)
}

// ValidateAndSetDefaults checks the inputs are finite and sets the logger.
// It is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	for name, a := range o.Angles {
		if err := legerr.ValidateName("leg", name); err != nil {
			return err
		}
		for _, v := range []float64{a.Upper, a.Lower} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return legerr.New(legerr.ErrCodeInvalidInput, "leg %q: input must be finite, got %v", name, v)
			}
		}
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// ValidateAndSetDefaults checks the sweep inputs and applies the default
// step.
func (o *SweepOptions) ValidateAndSetDefaults() error {
	if _, err := ParseAxis(o.Axis); err != nil {
		return err
	}
	if o.Axis == "" {
		o.Axis = kinematics.AxisUpper.String()
	}
	if o.Step == 0 {
		o.Step = DefaultSweepStep
	}
	for _, v := range []float64{o.Other, o.From, o.To, o.Step} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return legerr.New(legerr.ErrCodeInvalidInput, "sweep inputs must be finite")
		}
	}
	if o.Step < 0 {
		return legerr.New(legerr.ErrCodeInvalidInput, "sweep step must be positive, got %v", o.Step)
	}
	return nil
}

func (o *Options) angleKey() map[string][2]float64 {
	out := make(map[string][2]float64, len(o.Angles))
	for name, a := range o.Angles {
		out[name] = [2]float64{a.Upper, a.Lower}
	}
	return out
}

func pointsOf(p kinematics.Pose) []Point {
	out := make([]Point, 0, p.Len())
	for _, name := range p.Names() {
		v, _ := p.Point(name)
		out = append(out, Point{Name: name, X: v.X, Y: v.Y})
	}
	return out
}

func describe(err error) (code, msg string) {
	if c := legerr.GetCode(err); c != "" {
		return string(c), legerr.UserMessage(err)
	}
	return string(legerr.ErrCodeInternal), fmt.Sprint(err)
}

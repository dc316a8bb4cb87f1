// Package servo implements the proportional position controller that drives
// motorised joints toward randomly resampled targets.
//
// Each registered joint remembers its home angle, the relative angle between
// child and parent bodies at registration. [Controller.Resample] draws a new
// target uniformly within ±Range of home; [Controller.Tick] commands every
// motor at Gain times the wrapped angle error. There is no integral or
// derivative term.
package servo

import (
	"io"
	"math"
	"math/rand/v2"
	"time"

	"github.com/charmbracelet/log"
)

// Defaults for [Config].
const (
	DefaultGain     = 6.0
	DefaultRangeDeg = 20.0
	DefaultInterval = time.Second
)

// Body is the part of a rigid body the controller reads.
type Body interface {
	Angle() float64
}

// Actuator is the part of a motor the controller commands.
type Actuator interface {
	SetRate(rate float64)
}

// Config holds controller parameters.
type Config struct {
	Gain     float64       // rate per radian of error
	Range    float64       // half-width of the target window, radians
	Interval time.Duration // time between resamples
	Seed     uint64        // random source seed
}

// DefaultConfig returns the standard gain, a ±20° window and a 1 s interval.
func DefaultConfig() Config {
	return Config{
		Gain:     DefaultGain,
		Range:    DefaultRangeDeg * math.Pi / 180,
		Interval: DefaultInterval,
	}
}

// Joint is one driven motor.
type Joint struct {
	Name   string
	Motor  Actuator
	Parent Body
	Child  Body
	Home   float64 // relative angle at registration
	Target float64
}

// Relative returns the child angle measured from the parent.
func (j *Joint) Relative() float64 {
	return j.Child.Angle() - j.Parent.Angle()
}

// Error returns the wrapped distance from the current angle to the target.
func (j *Joint) Error() float64 {
	return Wrap(j.Target - j.Relative())
}

// Controller drives registered joints. It is not safe for concurrent use;
// call it from the simulation loop only.
type Controller struct {
	cfg    Config
	joints []*Joint
	rng    *rand.Rand
	logger *log.Logger
}

// New creates a controller. A nil logger discards output.
func New(cfg Config, logger *log.Logger) *Controller {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Controller{
		cfg:    cfg,
		rng:    rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0xdeadbeef)),
		logger: logger,
	}
}

// Config returns the controller parameters.
func (c *Controller) Config() Config { return c.cfg }

// Register adds a joint. Its home and initial target are the current
// relative angle of child against parent.
func (c *Controller) Register(name string, motor Actuator, parent, child Body) *Joint {
	j := &Joint{Name: name, Motor: motor, Parent: parent, Child: child}
	j.Home = j.Relative()
	j.Target = j.Home
	c.joints = append(c.joints, j)
	c.logger.Debug("servo registered", "joint", name, "home", j.Home)
	return j
}

// Joints returns the registered joints in registration order.
func (c *Controller) Joints() []*Joint { return c.joints }

// Resample draws a fresh target for every joint in [Home-Range, Home+Range].
func (c *Controller) Resample() {
	for _, j := range c.joints {
		j.Target = j.Home + (2*c.rng.Float64()-1)*c.cfg.Range
		c.logger.Debug("servo target", "joint", j.Name, "target", j.Target)
	}
}

// Tick commands every motor proportionally to its wrapped error and
// returns the largest absolute error.
func (c *Controller) Tick() float64 {
	var worst float64
	for _, j := range c.joints {
		err := j.Error()
		j.Motor.SetRate(c.cfg.Gain * err)
		worst = math.Max(worst, math.Abs(err))
	}
	return worst
}

// Wrap maps an angle into (-π, π].
func Wrap(a float64) float64 {
	w := math.Mod(a+math.Pi, 2*math.Pi)
	if w <= 0 {
		w += 2 * math.Pi
	}
	return w - math.Pi
}

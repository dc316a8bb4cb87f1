// Package sim runs the fixed-timestep control loop that drives a built
// mechanism.
//
// Each tick the servo controller commands its motors and the world then
// advances by one timestep. Targets are resampled on a slower schedule.
// Both clocks run on simulated time, so a run is deterministic for a given
// seed and independent of wall-clock speed.
package sim

import (
	"context"
	"io"
	"math"
	"time"

	"github.com/charmbracelet/log"

	legerr "github.com/matzehuels/legsim/pkg/errors"
	"github.com/matzehuels/legsim/pkg/observability"
	"github.com/matzehuels/legsim/pkg/physics"
	"github.com/matzehuels/legsim/pkg/servo"
)

// DefaultTimestep is the physics step, seconds.
const DefaultTimestep = 1.0 / 240

// Stepper advances a world by dt seconds.
type Stepper interface {
	Step(dt float64)
}

// Loop ties a world to a servo controller.
type Loop struct {
	World    Stepper
	Servo    *servo.Controller
	Timestep float64 // seconds; DefaultTimestep when zero
	Logger   *log.Logger

	// OnTick, if set, is called after every world step with the simulated
	// time. Returning an error stops the run.
	OnTick func(t float64) error
}

// Stats summarises a run.
type Stats struct {
	Steps     int
	Resamples int
	SimTime   float64 // seconds
	MaxError  float64 // largest absolute servo error seen at any tick, radians
	LastError float64 // largest absolute servo error at the final tick
}

var _ Stepper = (physics.World)(nil)

// Run advances the loop for duration of simulated time. Targets are
// resampled at t = 0 and then every Servo interval. Cancellation is
// honoured between ticks; the stats so far are returned with the context
// error.
func (l *Loop) Run(ctx context.Context, duration time.Duration) (Stats, error) {
	start := time.Now()
	stats, err := l.run(ctx, duration)
	observability.Pipeline().OnSimulateComplete(ctx, stats.Steps, stats.Resamples, time.Since(start), err)
	return stats, err
}

func (l *Loop) run(ctx context.Context, duration time.Duration) (Stats, error) {
	var stats Stats
	if l.World == nil || l.Servo == nil {
		return stats, legerr.New(legerr.ErrCodeInvalidInput, "loop needs a world and a servo controller")
	}
	dt := l.Timestep
	if dt == 0 {
		dt = DefaultTimestep
	}
	if !(dt > 0) || math.IsInf(dt, 0) {
		return stats, legerr.New(legerr.ErrCodeInvalidInput, "timestep must be positive, got %v", dt)
	}
	logger := l.Logger
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}

	interval := l.Servo.Config().Interval.Seconds()
	steps := int(math.Round(duration.Seconds() / dt))
	nextResample := 0.0

	for i := range steps {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		t := float64(i) * dt
		if t >= nextResample-dt/2 {
			l.Servo.Resample()
			stats.Resamples++
			if interval > 0 {
				nextResample += interval
			} else {
				nextResample = math.Inf(1)
			}
		}
		e := l.Servo.Tick()
		l.World.Step(dt)
		stats.Steps++
		stats.SimTime = float64(stats.Steps) * dt
		stats.MaxError = math.Max(stats.MaxError, e)
		stats.LastError = e
		if l.OnTick != nil {
			if err := l.OnTick(stats.SimTime); err != nil {
				return stats, err
			}
		}
	}
	logger.Debug("simulation finished", "steps", stats.Steps, "resamples", stats.Resamples, "max_error", stats.MaxError)
	return stats, nil
}

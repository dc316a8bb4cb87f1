// Package cli implements the legsim command-line interface.
//
// The commands cover the whole pose-to-mechanism chain: solving legs for
// actuator inputs, sweeping an actuator's range, committing a pose to a
// geometry spec, building and simulating that spec, and serving the same
// operations over HTTP. The CLI is built using cobra and logs via the
// charmbracelet/log library.
//
// # Commands
//
// The main commands are:
//   - solve: Solve every leg for the given actuator inputs
//   - sweep: Sample one actuator across its range
//   - commit: Freeze a pose into robot_geom.json and robot_points.json
//   - build, simulate: Instantiate a spec and drive it with the servos
//   - edit: Interactive pose editor
//   - serve: HTTP API
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging.
//
// # Example
//
//	c := cli.New(os.Stderr, cli.LogInfo)
//	if err := c.RootCommand().ExecuteContext(ctx); err != nil {
//	    os.Exit(1)
//	}
package cli

import (
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger creates a logger with "HH:MM:SS.ms" timestamps that writes to w
// and filters below level.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress logs the elapsed time of an operation. Not safe for concurrent
// use.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg with the elapsed time rounded to the millisecond, e.g.
// "Simulated 10s (1.234s)".
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}

package cli

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	legio "github.com/matzehuels/legsim/pkg/io"
	"github.com/matzehuels/legsim/pkg/kinematics"
	"github.com/matzehuels/legsim/pkg/pipeline"
	"github.com/matzehuels/legsim/pkg/servo"
)

// simulateCommand creates the simulate command.
func (c *CLI) simulateCommand() *cobra.Command {
	var opts pipeline.SimOptions

	cmd := &cobra.Command{
		Use:   "simulate [robot_geom.json]",
		Short: "Build a spec and drive it with the servo controller",
		Long: `Build a spec and drive it with the servo controller.

The driven motors track targets resampled within a window around their
build-time angle. The loop runs on simulated time at a fixed timestep, so
a run is reproducible for a given --seed.`,
		Example: `  legsim simulate
  legsim simulate robot_geom.json --duration 30s --seed 7`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runSimulate(cmd.Context(), specArg(args), opts)
		},
	}

	cmd.Flags().DurationVarP(&opts.Duration, "duration", "d", 0, "simulated time (default: from config)")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "target sampling seed (default: from config)")

	return cmd
}

func (c *CLI) runSimulate(ctx context.Context, path string, opts pipeline.SimOptions) error {
	spec, err := legio.ImportJSON(path)
	if err != nil {
		return fmt.Errorf("load spec %s: %w", path, err)
	}
	runner, err := c.newRunner(ctx, true)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	spinner := newSpinner(ctx, "Simulating...")
	spinner.Start()
	nextReport := 1.0
	opts.OnTick = func(t float64) error {
		if t >= nextReport {
			spinner.SetMessage(fmt.Sprintf("Simulating... %.0fs", t))
			nextReport++
		}
		return nil
	}

	prog := newProgress(c.Logger)
	res, err := runner.Simulate(ctx, spec, opts)
	if err != nil {
		spinner.StopWithError("Simulation failed")
		return err
	}
	spinner.Stop()
	prog.done(fmt.Sprintf("Simulated %s", time.Duration(res.Stats.SimTime*float64(time.Second)).Round(time.Millisecond)))

	printSuccess("Simulated %s for %.2fs", path, res.Stats.SimTime)
	if len(res.Mechanism.Servos) > 0 {
		fmt.Fprintln(out, servoTable(res.Mechanism.Servos))
	}
	printDetail("%d steps · %d resamples · max error %.2f° · final error %.3f°",
		res.Stats.Steps, res.Stats.Resamples,
		kinematics.Degrees(res.Stats.MaxError), kinematics.Degrees(res.Stats.LastError))
	return nil
}

// servoTable lists each driven joint's home, target and tracking error in
// degrees.
func servoTable(joints []*servo.Joint) string {
	rows := make([][]string, 0, len(joints))
	for _, j := range joints {
		rows = append(rows, []string{
			j.Name,
			deg(j.Home),
			deg(j.Target),
			deg(j.Relative()),
			deg(math.Abs(j.Error())),
		})
	}
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Servo", "Home", "Target", "Angle", "|Error|").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styleHeader
			}
			if col > 0 {
				return StyleValue.Align(lipgloss.Right)
			}
			return lipgloss.NewStyle()
		}).
		Render()
}

func deg(rad float64) string { return fmt.Sprintf("%.2f°", kinematics.Degrees(rad)) }

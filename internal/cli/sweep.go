package cli

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/legsim/pkg/pipeline"
)

// sweepCommand creates the sweep command for reachability checks.
func (c *CLI) sweepCommand() *cobra.Command {
	var (
		opts    pipeline.SweepOptions
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Sample one actuator across its range",
		Long: `Sample one actuator across its range while the other is held fixed.

Every sample is solved; the report counts reachable samples, tallies
failures by error code and gives the largest joint displacement between
neighbouring reachable samples as a continuity check. Without --from and
--to the actuator's configured range is swept.`,
		Example: `  legsim sweep
  legsim sweep --axis lower --other 10 --step 0.5
  legsim sweep --leg front --from -20 --to 60`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := pipeline.ParseAxis(opts.Axis); err != nil {
				return err
			}
			opts.Refresh = noCache
			return c.runSweep(cmd.Context(), opts, noCache)
		},
	}

	cmd.Flags().StringVar(&opts.Leg, "leg", "", "leg to sweep (default: reference leg)")
	cmd.Flags().StringVar(&opts.Axis, "axis", "upper", "actuator to sweep: upper, lower")
	cmd.Flags().Float64Var(&opts.Other, "other", 0, "input held on the other actuator, degrees")
	cmd.Flags().Float64Var(&opts.From, "from", 0, "first input, degrees")
	cmd.Flags().Float64Var(&opts.To, "to", 0, "last input, degrees")
	cmd.Flags().Float64Var(&opts.Step, "step", pipeline.DefaultSweepStep, "step, degrees")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

func (c *CLI) runSweep(ctx context.Context, opts pipeline.SweepOptions, noCache bool) error {
	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	spinner := newSpinner(ctx, fmt.Sprintf("Sweeping %s actuator...", opts.Axis))
	spinner.Start()
	rep, cached, err := runner.SweepWithCacheInfo(ctx, opts)
	if err != nil {
		spinner.StopWithError("Sweep failed")
		return err
	}
	spinner.Stop()

	printSuccess("Swept %s from %g° to %g°", rep.Axis, rep.From, rep.To)
	printKeyValue("samples", fmt.Sprintf("%d", rep.Samples))
	printKeyValue("reachable", fmt.Sprintf("%d (%.1f%%)", rep.Reachable, 100*float64(rep.Reachable)/float64(max(rep.Samples, 1))))
	printKeyValue("max step", fmt.Sprintf("%s mm at %g°", mm(rep.MaxStep), rep.MaxStepAt))
	if len(rep.Failures) > 0 {
		var parts []string
		for _, code := range slices.Sorted(maps.Keys(rep.Failures)) {
			parts = append(parts, fmt.Sprintf("%s×%d", code, rep.Failures[code]))
		}
		printKeyValue("failures", strings.Join(parts, ", "))
	}
	printStats(cached, fmt.Sprintf("step %g°", rep.Step))
	return nil
}

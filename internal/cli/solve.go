package cli

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	legerr "github.com/matzehuels/legsim/pkg/errors"
	legio "github.com/matzehuels/legsim/pkg/io"
	"github.com/matzehuels/legsim/pkg/pipeline"
)

// solveCommand creates the solve command.
func (c *CLI) solveCommand() *cobra.Command {
	var (
		angles  []string
		points  string
		noCache bool
		opts    pipeline.Options
	)

	cmd := &cobra.Command{
		Use:   "solve",
		Short: "Solve every leg for the given actuator inputs",
		Long: `Solve every leg for the given actuator inputs.

Inputs are given per leg as --angle leg=upper[,lower] in degrees; legs
without a flag are solved at zero input. A leg whose chain cannot close is
reported with its error code and the command exits non-zero.`,
		Example: `  legsim solve
  legsim solve --angle rear=10,5 --angle front=-5
  legsim solve --angle front=45 --clamp --points robot_points.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := parseAngles(angles)
			if err != nil {
				return err
			}
			opts.Angles = parsed
			opts.Refresh = noCache
			return c.runSolve(cmd.Context(), opts, points, noCache)
		},
	}

	cmd.Flags().StringArrayVarP(&angles, "angle", "a", nil, "actuator inputs as leg=upper[,lower] degrees (repeatable)")
	cmd.Flags().BoolVar(&opts.Clamp, "clamp", false, "clamp inputs to each actuator's range")
	cmd.Flags().StringVar(&points, "points", "", "write the pose dump to this file")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

func (c *CLI) runSolve(ctx context.Context, opts pipeline.Options, points string, noCache bool) error {
	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	res, cached, err := runner.SolveWithCacheInfo(ctx, opts)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, poseTable(res))
	printStats(cached, fmt.Sprintf("%d legs", len(res.Legs)), fmt.Sprintf("%d failed", res.Failed()))

	if points != "" {
		if err := legio.ExportPoses(res.Poses(), points); err != nil {
			return fmt.Errorf("write poses %s: %w", points, err)
		}
		printFile(points)
	}

	if !res.OK() {
		for _, leg := range res.Legs {
			if leg.Error != "" {
				printError("%s: %s", leg.Name, leg.Error)
			}
		}
		return legerr.New(legerr.ErrCodeInvalidPose, "%d of %d legs did not solve", res.Failed(), len(res.Legs))
	}
	printNewline()
	printNextStep("Freeze this pose", "legsim commit"+angleArgs(opts))
	return nil
}

// angleArgs renders opts.Angles back into flags, sorted by leg name.
func angleArgs(opts pipeline.Options) string {
	var s string
	for _, name := range slices.Sorted(maps.Keys(opts.Angles)) {
		a := opts.Angles[name]
		if a.Upper == 0 && a.Lower == 0 {
			continue
		}
		s += fmt.Sprintf(" --angle %s=%g,%g", name, a.Upper, a.Lower)
	}
	if opts.Clamp {
		s += " --clamp"
	}
	return s
}

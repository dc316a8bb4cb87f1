package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	legerr "github.com/matzehuels/legsim/pkg/errors"
	legio "github.com/matzehuels/legsim/pkg/io"
	"github.com/matzehuels/legsim/pkg/physics"
	"github.com/matzehuels/legsim/pkg/servo"
)

// buildCommand creates the build command.
func (c *CLI) buildCommand() *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "build [robot_geom.json]",
		Short: "Build a geometry spec as a physics mechanism",
		Long: `Build a geometry spec as a physics mechanism.

The spec is instantiated in an in-memory world: one body per link, the
torso, pivots at every joint, rotary limits and motors where declared.
Links that cannot be reached from the torso are skipped with a warning.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runBuild(cmd.Context(), specArg(args), quiet)
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "print only the summary line")

	return cmd
}

func (c *CLI) runBuild(ctx context.Context, path string, quiet bool) error {
	spec, err := legio.ImportJSON(path)
	if err != nil {
		return fmt.Errorf("load spec %s: %w", path, err)
	}
	runner, err := c.newRunner(ctx, true)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	scene := physics.NewScene()
	m, err := runner.Build(ctx, spec, scene, servo.New(runner.Config.ServoConfig(), c.Logger))
	if err != nil {
		return err
	}

	pivots, limits, motors := scene.Counts()
	printSuccess("Built mechanism from %s", path)
	if !quiet {
		fmt.Fprintln(out, jointTable(m))
	}
	printDetail("%d bodies · %d pivots · %d limits · %d motors · %d servos",
		len(scene.Bodies()), pivots, limits, motors, len(m.Servos))
	for _, w := range m.Warnings {
		printWarning("%s", legerr.UserMessage(w))
	}
	return nil
}

// specArg returns the spec path argument, or the commit default.
func specArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return defaultSpecFile
}

package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	legio "github.com/matzehuels/legsim/pkg/io"
	"github.com/matzehuels/legsim/pkg/pipeline"
)

// graphCommand creates the graph command that draws a spec's topology.
func (c *CLI) graphCommand() *cobra.Command {
	var (
		format   string
		output   string
		detailed bool
	)

	cmd := &cobra.Command{
		Use:   "graph [robot_geom.json]",
		Short: "Draw the link and joint topology of a spec",
		Long: `Draw the link and joint topology of a spec.

Links are nodes and joints are edges from parent to child; motor joints are
drawn bold. DOT output needs no Graphviz installation.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := pipeline.ValidateFormat(format); err != nil {
				return err
			}
			return c.runGraph(cmd.Context(), specArg(args), format, output, detailed)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", defaultGraphFormat, "output format: svg, dot")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <input>.<format>)")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "label links with lengths and joints with types")

	return cmd
}

func (c *CLI) runGraph(ctx context.Context, input, format, output string, detailed bool) error {
	spec, err := legio.ImportJSON(input)
	if err != nil {
		return fmt.Errorf("load spec %s: %w", input, err)
	}
	runner, err := c.newRunner(ctx, true)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	data, err := runner.Graph(spec, format, detailed)
	if err != nil {
		return err
	}
	if output == "" {
		output = strings.TrimSuffix(input, filepath.Ext(input)) + "." + format
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", output, err)
	}
	printSuccess("Graph written")
	printFile(output)
	printStats(false, fmt.Sprintf("%d links", len(spec.Links)), fmt.Sprintf("%d joints", len(spec.Joints)))
	return nil
}

package cli

import (
	"context"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

// editCommand creates the interactive pose editor command.
func (c *CLI) editCommand() *cobra.Command {
	var o commitOpts

	cmd := &cobra.Command{
		Use:   "edit",
		Short: "Edit a pose interactively and commit it",
		Long: `Edit a pose interactively and commit it.

Select an actuator with its number key and step its input with the arrow
keys. Inputs stay within each actuator's range; a step that leaves a leg
unsolvable is refused and the last valid pose is kept. Press d to commit
the pose to the same files 'commit' writes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runEdit(cmd.Context(), o)
		},
	}

	cmd.Flags().StringVarP(&o.spec, "output", "o", defaultSpecFile, "geometry spec file")
	cmd.Flags().StringVar(&o.poses, "points", defaultPosesFile, "pose dump file (empty to skip)")
	cmd.Flags().BoolVar(&o.save, "save", false, "also save the spec in the spec store")
	cmd.Flags().StringVar(&o.name, "name", "", "name of the stored spec")

	return cmd
}

func (c *CLI) runEdit(ctx context.Context, o commitOpts) error {
	runner, err := c.newRunner(ctx, true)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()
	// the terminal belongs to the editor while it runs
	runner.Logger = log.NewWithOptions(io.Discard, log.Options{})

	editor, err := NewPoseEditor(ctx, runner)
	if err != nil {
		return err
	}
	if _, err := tea.NewProgram(editor, tea.WithContext(ctx)).Run(); err != nil {
		return fmt.Errorf("pose editor: %w", err)
	}
	if editor.Committed == nil {
		printInfo("No pose committed")
		return nil
	}
	return c.writeCommit(ctx, editor.Committed, false, o)
}

package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	legio "github.com/matzehuels/legsim/pkg/io"
	"github.com/matzehuels/legsim/pkg/pipeline"
	"github.com/matzehuels/legsim/pkg/store"
)

type commitOpts struct {
	angles  []string
	clamp   bool
	spec    string
	poses   string
	save    bool
	name    string
	noCache bool
}

// commitCommand creates the commit command that freezes a pose.
func (c *CLI) commitCommand() *cobra.Command {
	var o commitOpts

	cmd := &cobra.Command{
		Use:   "commit",
		Short: "Freeze a pose into a geometry spec",
		Long: `Freeze a pose into a geometry spec.

Every leg is solved for the given inputs and the pose is compiled into the
link and joint description read by 'build' and 'simulate'. The commit is
refused if any leg fails to solve. With --save the spec is also stored in
the configured spec store.`,
		Example: `  legsim commit
  legsim commit --angle front=10,5 --save --name stride`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runCommit(cmd.Context(), o)
		},
	}

	cmd.Flags().StringArrayVarP(&o.angles, "angle", "a", nil, "actuator inputs as leg=upper[,lower] degrees (repeatable)")
	cmd.Flags().BoolVar(&o.clamp, "clamp", false, "clamp inputs to each actuator's range")
	cmd.Flags().StringVarP(&o.spec, "output", "o", defaultSpecFile, "geometry spec file")
	cmd.Flags().StringVar(&o.poses, "points", defaultPosesFile, "pose dump file (empty to skip)")
	cmd.Flags().BoolVar(&o.save, "save", false, "also save the spec in the spec store")
	cmd.Flags().StringVar(&o.name, "name", "", "name of the stored spec")
	cmd.Flags().BoolVar(&o.noCache, "no-cache", false, "disable caching")

	return cmd
}

func (c *CLI) runCommit(ctx context.Context, o commitOpts) error {
	angles, err := parseAngles(o.angles)
	if err != nil {
		return err
	}
	runner, err := c.newRunner(ctx, o.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	commit, cached, err := runner.CommitWithCacheInfo(ctx, pipeline.Options{Angles: angles, Clamp: o.clamp, Refresh: o.noCache})
	if err != nil {
		return err
	}
	return c.writeCommit(ctx, commit, cached, o)
}

// writeCommit writes the spec and pose files and optionally stores the
// spec. It is shared with the pose editor.
func (c *CLI) writeCommit(ctx context.Context, commit *pipeline.Commit, cached bool, o commitOpts) error {
	if o.save {
		cfg, err := c.loadConfig()
		if err != nil {
			return err
		}
		st, err := openStore(ctx, cfg)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close(ctx)
		rec := &store.Record{Name: o.name, Spec: commit.Spec, Poses: commit.Poses}
		if err := st.Save(ctx, rec); err != nil {
			return fmt.Errorf("save spec: %w", err)
		}
		c.Logger.Info("stored spec", "id", rec.ID, "name", rec.Name)
	}

	if err := legio.ExportJSON(commit.Spec, o.spec); err != nil {
		return fmt.Errorf("write spec %s: %w", o.spec, err)
	}
	printSuccess("Committed pose")
	printFile(o.spec)
	if o.poses != "" {
		if err := legio.ExportPoses(commit.Poses, o.poses); err != nil {
			return fmt.Errorf("write poses %s: %w", o.poses, err)
		}
		printFile(o.poses)
	}
	facts := []string{fmt.Sprintf("%d links", len(commit.Spec.Links)), fmt.Sprintf("%d joints", len(commit.Spec.Joints))}
	if commit.Spec.ID != "" {
		facts = append(facts, "id "+commit.Spec.ID)
	}
	printStats(cached, facts...)
	printNewline()
	printNextStep("Simulate", "legsim simulate "+o.spec)
	return nil
}

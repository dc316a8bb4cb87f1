package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/legsim/pkg/buildinfo"
	"github.com/matzehuels/legsim/pkg/cache"
	"github.com/matzehuels/legsim/pkg/config"
	legerr "github.com/matzehuels/legsim/pkg/errors"
	"github.com/matzehuels/legsim/pkg/kinematics"
	"github.com/matzehuels/legsim/pkg/pipeline"
	"github.com/matzehuels/legsim/pkg/store"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = config.AppName

	// Default output files of commit, read back by build and simulate.
	defaultSpecFile    = "robot_geom.json"
	defaultPosesFile   = "robot_points.json"
	defaultGraphFormat = pipeline.FormatSVG
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	cfg        *config.Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "legsim solves and simulates planar linkage legs",
		Long: `legsim solves the closed-chain kinematics of a planar two-actuator leg,
freezes a pose into a geometry spec, and builds that spec as a physics
mechanism driven by a servo controller.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "robot config file (default: $XDG_CONFIG_HOME/legsim/legsim.toml)")

	root.AddCommand(c.solveCommand())
	root.AddCommand(c.sweepCommand())
	root.AddCommand(c.commitCommand())
	root.AddCommand(c.buildCommand())
	root.AddCommand(c.simulateCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.editCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// loadConfig loads the robot config once per process.
func (c *CLI) loadConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, err := config.LoadOrDefault(c.configPath)
	if err != nil {
		return nil, err
	}
	c.Logger.Debug("loaded config", "path", c.configPath, "legs", cfg.Legs.Names)
	c.cfg = cfg
	return cfg, nil
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	ch, err := newCache(ctx, cfg, noCache)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(cfg, ch, nil, c.Logger), nil
}

// newCache opens the configured cache backend. A file cache whose directory
// cannot be determined degrades to no cache.
func newCache(ctx context.Context, cfg *config.Config, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	switch cfg.Cache.Backend {
	case "none":
		return cache.NewNullCache(), nil
	case "redis":
		return cache.NewRedisCache(ctx, cfg.Cache.RedisAddr)
	}
	dir, err := cacheDir(cfg)
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// openStore opens the configured spec store.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	if cfg.Server.Store == "mongo" {
		return store.NewMongoStore(ctx, cfg.Server.MongoURI, cfg.Server.MongoDatabase)
	}
	dir := cfg.Server.StoreDir
	if dir == "" {
		var err error
		if dir, err = dataDir(); err != nil {
			return nil, fmt.Errorf("get data dir: %w", err)
		}
		dir = filepath.Join(dir, "specs")
	}
	return store.NewFileStore(dir)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the configured cache directory, or the XDG default
// (~/.cache/legsim/).
func cacheDir(cfg *config.Config) (string, error) {
	if cfg != nil && cfg.Cache.Dir != "" {
		return cfg.Cache.Dir, nil
	}
	return xdgDir("XDG_CACHE_HOME", ".cache")
}

// dataDir returns the XDG data directory (~/.local/share/legsim/).
func dataDir() (string, error) {
	return xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
}

func xdgDir(env, fallback string) (string, error) {
	if base := os.Getenv(env); base != "" {
		return filepath.Join(base, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, fallback, appName), nil
}

// =============================================================================
// Flag Helpers
// =============================================================================

// parseAngles parses repeated leg=upper,lower flags. The lower input may be
// omitted and defaults to zero.
func parseAngles(flags []string) (map[string]kinematics.Angles, error) {
	out := make(map[string]kinematics.Angles, len(flags))
	for _, f := range flags {
		name, value, ok := strings.Cut(f, "=")
		if !ok || name == "" {
			return nil, legerr.New(legerr.ErrCodeInvalidInput, "angle %q: want leg=upper[,lower]", f)
		}
		if _, dup := out[name]; dup {
			return nil, legerr.New(legerr.ErrCodeInvalidInput, "angle for leg %q given twice", name)
		}
		upper, lower, _ := strings.Cut(value, ",")
		var a kinematics.Angles
		var err error
		if a.Upper, err = strconv.ParseFloat(strings.TrimSpace(upper), 64); err != nil {
			return nil, legerr.Wrap(legerr.ErrCodeInvalidInput, err, "angle %q: upper input", f)
		}
		if lower != "" {
			if a.Lower, err = strconv.ParseFloat(strings.TrimSpace(lower), 64); err != nil {
				return nil, legerr.Wrap(legerr.ErrCodeInvalidInput, err, "angle %q: lower input", f)
			}
		}
		out[name] = a
	}
	return out, nil
}

package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/matzehuels/pypi2pkgbuild/pkg/buildinfo"
	"github.com/matzehuels/pypi2pkgbuild/pkg/cache"
	"github.com/matzehuels/pypi2pkgbuild/pkg/config"
	"github.com/matzehuels/pypi2pkgbuild/pkg/observability"
	"github.com/matzehuels/pypi2pkgbuild/pkg/pipeline"
	"github.com/matzehuels/pypi2pkgbuild/pkg/shell"
)

// appName is the application name used for directories and display.
const appName = config.AppName

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
	// Shell runs the external tools; processes are spawned when nil.
	Shell shell.Runner

	configFile string
	noCache    bool
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
// Given package names and no subcommand, it builds them.
func (c *CLI) RootCommand() *cobra.Command {
	var flags buildFlags
	root := &cobra.Command{
		Use:   appName + " [flags] name...",
		Short: "Create PKGBUILDs for PyPI packages and build them",
		Long: `pypi2pkgbuild writes a PKGBUILD for each named Python distribution and for every
dependency the system does not provide yet, builds them with makepkg and
installs the results with pacman.

Names may be index project names, git+<url> references or file://<path>
archives. List flags are comma-separated and can be repeated; an empty element
drops the values given so far, including the configured ones.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		Args:         cobra.ArbitraryArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger := runLogger(c.Logger)
			if c.Logger.GetLevel() <= log.DebugLevel {
				observability.SetAll(observability.LogHooks{Logger: logger})
			}
			cmd.SetContext(withLogger(cmd.Context(), logger))
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return c.runBuild(cmd, &flags, args)
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configFile, "config", "", "config file (default $XDG_CONFIG_HOME/pypi2pkgbuild/config.toml)")
	root.PersistentFlags().BoolVar(&c.noCache, "no-cache", false, "do not cache index responses")
	addBuildFlags(root.Flags(), &flags)

	root.AddCommand(c.buildCommand())
	root.AddCommand(c.outdatedCommand())
	root.AddCommand(c.updateCommand())
	root.AddCommand(c.planCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.versionCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Configuration
// =============================================================================

// loadConfig merges defaults, config file, environment and the flags of
// cmd. f may be nil for commands without list flags.
func (c *CLI) loadConfig(cmd *cobra.Command, f *buildFlags) (config.Config, error) {
	v, err := config.New(c.configFile)
	if err != nil {
		return config.Config{}, err
	}
	var bindErr error
	cmd.Flags().VisitAll(func(fl *pflag.Flag) {
		if key, ok := flagKeys[fl.Name]; ok && bindErr == nil {
			bindErr = v.BindPFlag(key, fl)
		}
	})
	if bindErr != nil {
		return config.Config{}, bindErr
	}

	cfg, err := config.Load(v)
	if err != nil {
		return config.Config{}, err
	}
	if f != nil {
		cfg.GuessMakedepends = f.guessMakedepends.Apply(cfg.GuessMakedepends)
		cfg.SetupRequires = f.setupRequires.Apply(cfg.SetupRequires)
		cfg.PkgTypes = f.pkgTypes.Apply(cfg.PkgTypes)
		if f.noDeps {
			cfg.BuildDeps = false
		}
		if f.noInstall {
			cfg.Install = false
		}
	}
	if c.noCache {
		cfg.Cache.Disabled = true
	}
	return cfg, nil
}

// =============================================================================
// Runner Factory
// =============================================================================

func (c *CLI) shell(logger *log.Logger) shell.Runner {
	if c.Shell != nil {
		return c.Shell
	}
	return shell.NewExecRunner(logger)
}

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, cfg config.Config, run shell.Runner) (*pipeline.Runner, error) {
	backend, err := newCache(cfg.Cache)
	if err != nil {
		return nil, err
	}
	opts := cfg.Pipeline()
	opts.Cache = backend
	opts.Logger = loggerFromContext(ctx)
	opts.Progress = os.Stderr

	runner, err := pipeline.New(ctx, opts, run)
	if err != nil {
		backend.Close()
		return nil, err
	}
	return runner, nil
}

func newCache(cfg config.CacheConfig) (cache.Cache, error) {
	switch {
	case cfg.Disabled:
		return cache.NewNullCache(), nil
	case cfg.RedisURL != "":
		backend, err := cache.NewRedisCache(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("connect cache: %w", err)
		}
		return backend, nil
	case cfg.Dir == "":
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(cfg.Dir)
}

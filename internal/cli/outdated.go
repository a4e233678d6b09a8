package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/pypi2pkgbuild/pkg/config"
	"github.com/matzehuels/pypi2pkgbuild/pkg/outdated"
	"github.com/matzehuels/pypi2pkgbuild/pkg/system"
)

// outdatedCommand creates the outdated command.
func (c *CLI) outdatedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "outdated",
		Short: "List system packages whose Python distributions have newer releases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig(cmd, nil)
			if err != nil {
				return err
			}
			groups, err := c.findOutdated(cmd, cfg)
			if err != nil {
				return err
			}
			printOutdated(groups)
			return nil
		},
	}
}

// updateCommand creates the update command.
func (c *CLI) updateCommand() *cobra.Command {
	var (
		flags  buildFlags
		ignore commaList
	)
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Rebuild every outdated system package",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig(cmd, &flags)
			if err != nil {
				return err
			}
			groups, err := c.findOutdated(cmd, cfg)
			if err != nil {
				return err
			}
			names, ignored := outdated.Updates(groups, ignore.Apply(nil))
			if len(ignored) > 0 {
				printWarning("Not updating %s", strings.Join(ignored, ", "))
			}
			if len(names) == 0 {
				printInfo("Nothing to update")
				return nil
			}
			return c.runBuild(cmd, &flags, names)
		},
	}
	addBuildFlags(cmd.Flags(), &flags)
	cmd.Flags().VarP(&ignore, "ignore", "i", "comma-separated packages not to update")
	return cmd
}

func (c *CLI) findOutdated(cmd *cobra.Command, cfg config.Config) ([]outdated.Group, error) {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)
	run := c.shell(logger)

	python := system.Python{Version: cfg.Python.Version, Prefix: cfg.Python.Prefix}
	if python.Version == "" {
		detected, err := system.DetectPython(ctx, run, cfg.Python.Prefix)
		if err != nil {
			return nil, err
		}
		python = detected
	}
	oracle := system.NewOracle(run, logger, python, cfg.PackagePrefix)
	finder := outdated.NewFinder(run, oracle, python.SitePackages(), logger)

	spin := newSpinner(ctx, os.Stderr, "Asking pip for outdated packages...")
	spin.Start()
	groups, err := finder.Find(ctx)
	spin.Stop()
	return groups, err
}

func printOutdated(groups []outdated.Group) {
	if len(groups) == 0 {
		printSuccess("No outdated packages")
		return
	}
	for _, g := range groups {
		fmt.Println(StyleTitle.Render(g.Owner.Name) + " " + StyleValue.Render(g.Owner.Version.String()))
		for _, e := range g.Entries {
			fmt.Println("    " + StyleDim.Render(e.String()))
		}
	}
}

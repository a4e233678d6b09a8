package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/pypi2pkgbuild/pkg/buildinfo"
	perrors "github.com/matzehuels/pypi2pkgbuild/pkg/errors"
	"github.com/matzehuels/pypi2pkgbuild/pkg/pipeline"
	"github.com/matzehuels/pypi2pkgbuild/pkg/system"
)

// buildCommand creates the build command.
func (c *CLI) buildCommand() *cobra.Command {
	var flags buildFlags
	cmd := &cobra.Command{
		Use:   "build name...",
		Short: "Write, build and install packages and their missing dependencies",
		Example: `  pypi2pkgbuild build requests
  pypi2pkgbuild build -g cython -t ,sdist numpy
  pypi2pkgbuild build git+https://github.com/psf/black`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runBuild(cmd, &flags, args)
		},
	}
	addBuildFlags(cmd.Flags(), &flags)
	return cmd
}

func (c *CLI) runBuild(cmd *cobra.Command, flags *buildFlags, names []string) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	cfg, err := c.loadConfig(cmd, flags)
	if err != nil {
		return err
	}
	run := c.shell(logger)
	if err := system.Preflight(ctx, run); err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, cfg, run)
	if err != nil {
		return err
	}
	defer runner.Close()

	prog := newProgress(logger)
	result, err := runner.Execute(ctx, names)
	printBuildSummary(result)
	if err == nil {
		prog.done(fmt.Sprintf("Built %d packages", len(result.Built)))
	}
	return err
}

func printBuildSummary(result *pipeline.Result) {
	if result == nil {
		return
	}
	for _, pkg := range result.Built {
		printSuccess("%s %s", StyleHighlight.Render(pkg.Name), StyleDim.Render(pkg.Version))
		printFile(pkg.Path)
	}
	for _, f := range result.Failed {
		printError("%s: %s", f.Root, perrors.UserMessage(f.Err))
	}
}

// versionCommand creates the version command.
func (c *CLI) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			tmpl := strings.Replace(buildinfo.Template(), "{{.Name}}", appName, 1)
			fmt.Fprint(cmd.OutOrStdout(), tmpl)
		},
	}
}

package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/pypi2pkgbuild/pkg/deps"
	"github.com/matzehuels/pypi2pkgbuild/pkg/pipeline"
	"github.com/matzehuels/pypi2pkgbuild/pkg/render/nodelink"
	"github.com/matzehuels/pypi2pkgbuild/pkg/source"
)

type planView struct {
	Root   string     `yaml:"root"`
	Builds []planItem `yaml:"builds"`
}

type planItem struct {
	Name         string            `yaml:"name"`
	Version      string            `yaml:"version"`
	Kind         deps.Kind         `yaml:"kind"`
	Arch         []string          `yaml:"arch"`
	Licenses     []string          `yaml:"licenses,omitempty"`
	Dir          string            `yaml:"dir"`
	IsDep        bool              `yaml:"is_dep"`
	Depends      []string          `yaml:"depends,omitempty"`
	MakeDepends  []string          `yaml:"makedepends,omitempty"`
	CheckDepends []string          `yaml:"checkdepends,omitempty"`
	Provides     string            `yaml:"provides,omitempty"`
	Sources      []source.Artifact `yaml:"sources,omitempty"`
}

func newPlanView(c *deps.Closure) planView {
	v := planView{Root: c.Root.Name()}
	for _, p := range c.Plans {
		v.Builds = append(v.Builds, planItem{
			Name:         p.Name(),
			Version:      p.Version().String(),
			Kind:         p.Kind,
			Arch:         p.Arch,
			Licenses:     p.Licenses,
			Dir:          p.Dir,
			IsDep:        p.IsDep,
			Depends:      deps.DependencyNames(p, p.Depends),
			MakeDepends:  deps.DependencyNames(p, p.MakeDepends),
			CheckDepends: deps.DependencyNames(p, p.CheckDepends),
			Provides:     p.Provides,
			Sources:      p.Artifacts(),
		})
	}
	return v
}

// planCommand creates the plan command.
func (c *CLI) planCommand() *cobra.Command {
	var flags buildFlags
	cmd := &cobra.Command{
		Use:   "plan name...",
		Short: "Print the packages a build would create, without building",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := c.plan(cmd, &flags, args)
			if result != nil && len(result.Closures) > 0 {
				views := make([]planView, len(result.Closures))
				for i, cl := range result.Closures {
					views[i] = newPlanView(cl)
				}
				enc := yaml.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent(2)
				if encErr := enc.Encode(views); encErr != nil {
					return encErr
				}
				if encErr := enc.Close(); encErr != nil {
					return encErr
				}
			}
			return err
		},
	}
	addResolveFlags(cmd.Flags(), &flags)
	return cmd
}

// graphCommand creates the graph command.
func (c *CLI) graphCommand() *cobra.Command {
	var (
		flags  buildFlags
		format string
		output string
		opts   nodelink.Options
	)
	cmd := &cobra.Command{
		Use:   "graph name...",
		Short: "Draw the dependency closure as a DOT, SVG or JSON graph",
		Example: `  pypi2pkgbuild graph requests
  pypi2pkgbuild graph --format svg -o deps.svg --runtime jupyter`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := pipeline.ValidateFormat(format); err != nil {
				return err
			}
			result, err := c.plan(cmd, &flags, args)
			if result == nil || len(result.Closures) == 0 {
				return err
			}
			data, renderErr := pipeline.Render(cmd.Context(), result.Closures, format, opts)
			if renderErr != nil {
				return renderErr
			}
			if output == "" {
				fmt.Fprint(cmd.OutOrStdout(), string(data))
				return err
			}
			if writeErr := os.WriteFile(output, data, 0o644); writeErr != nil {
				return writeErr
			}
			printSuccess("Graph written")
			printFile(output)
			return err
		},
	}
	addResolveFlags(cmd.Flags(), &flags)
	cmd.Flags().StringVar(&format, "format", pipeline.FormatDOT, "output format (dot, svg, json)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().BoolVar(&opts.Detailed, "detailed", false, "label nodes with versions")
	cmd.Flags().BoolVar(&opts.Runtime, "runtime", false, "only show runtime dependencies")
	return cmd
}

// plan resolves the closures of names. The closures of roots that did not
// fail are returned along with the error.
func (c *CLI) plan(cmd *cobra.Command, flags *buildFlags, names []string) (*pipeline.Result, error) {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	cfg, err := c.loadConfig(cmd, flags)
	if err != nil {
		return nil, err
	}
	runner, err := c.newRunner(ctx, cfg, c.shell(logger))
	if err != nil {
		return nil, err
	}
	defer runner.Close()

	spin := newSpinner(ctx, os.Stderr, "Resolving dependencies...")
	spin.Start()
	result, err := runner.Plan(ctx, names)
	spin.Stop()

	return result, err
}

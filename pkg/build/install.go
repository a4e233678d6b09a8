package build

import (
	"context"
	"slices"
	"strings"

	"github.com/alessio/shellescape"
	"github.com/charmbracelet/log"

	"github.com/matzehuels/pypi2pkgbuild/pkg/shell"
)

// Accumulator collects the packages built during one run, in build order.
// A package built twice keeps its first position and its latest file.
type Accumulator struct {
	order []string
	pkgs  map[string]*Package
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{pkgs: make(map[string]*Package)}
}

// Add records pkg.
func (a *Accumulator) Add(pkg *Package) {
	if _, ok := a.pkgs[pkg.Name]; !ok {
		a.order = append(a.order, pkg.Name)
	}
	a.pkgs[pkg.Name] = pkg
}

// MarkExplicit records that the package named name was requested
// explicitly, so it is not installed as a dependency.
func (a *Accumulator) MarkExplicit(name string) {
	if pkg, ok := a.pkgs[name]; ok {
		pkg.IsDep = false
	}
}

// Packages returns the recorded packages in build order.
func (a *Accumulator) Packages() []*Package {
	out := make([]*Package, len(a.order))
	for i, name := range a.order {
		out[i] = a.pkgs[name]
	}
	return out
}

// Has reports whether a package named name was recorded.
func (a *Accumulator) Has(name string) bool {
	_, ok := a.pkgs[name]
	return ok
}

// Len is the number of recorded packages.
func (a *Accumulator) Len() int { return len(a.order) }

// InstallOptions configures the final install.
type InstallOptions struct {
	// NoDeps skips dependency checks, used when dependencies were not built.
	NoDeps     bool
	PacmanArgs []string
}

// InstallCommand returns the privileged command installing every recorded
// package at once and marking dependencies as such. It returns false when
// nothing was built.
func (a *Accumulator) InstallCommand(opts InstallOptions) (shell.Command, bool) {
	if a.Len() == 0 {
		return shell.Command{}, false
	}
	flag := "-U"
	if opts.NoDeps {
		flag = "-Udd"
	}
	parts := []string{"pacman", flag}
	for _, arg := range opts.PacmanArgs {
		parts = append(parts, shellescape.Quote(arg))
	}
	var deps []string
	for _, pkg := range a.Packages() {
		parts = append(parts, shellescape.Quote(pkg.Path))
		if pkg.IsDep {
			deps = append(deps, shellescape.Quote(pkg.Name))
		}
	}
	script := strings.Join(parts, " ")
	if len(deps) > 0 {
		script += "; " + strings.Join(slices.Concat([]string{"pacman", "-D", "--asdeps"}, deps), " ")
	}
	return shell.Command{Name: "sudo", Args: []string{"sh", "-c", script}, Verbose: true, Stream: true}, true
}

// Install runs the install command. A failed install is logged, not
// returned: the packages are built and can be installed by hand.
func (a *Accumulator) Install(ctx context.Context, run shell.Runner, opts InstallOptions, logger *log.Logger) {
	cmd, ok := a.InstallCommand(opts)
	if !ok {
		return
	}
	if logger == nil {
		logger = log.Default()
	}
	if _, err := run.Run(ctx, cmd); err != nil {
		logger.Error("install failed", "err", err)
	}
}

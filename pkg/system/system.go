// Package system answers questions about the local Arch Linux installation:
// which installed or repository package already provides a Python
// distribution, at which version, and which distributions a repository
// package bundles. Answers come from pacman and pkgfile.
package system

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pypi2pkgbuild/pkg/naming"
	"github.com/matzehuels/pypi2pkgbuild/pkg/shell"
)

// Match is a system package found to provide a distribution.
type Match struct {
	Name    string
	Version naming.ArchVersion
}

// Python describes the system interpreter packages are built for.
type Python struct {
	Version string // "3.12"
	Prefix  string // "/usr"
}

// SitePackages returns the system-wide site-packages directory.
func (p Python) SitePackages() string {
	return fmt.Sprintf("%s/lib/python%s/site-packages", strings.TrimSuffix(p.Prefix, "/"), p.Version)
}

// Oracle queries the local package database and the pkgfile index.
type Oracle struct {
	run    shell.Runner
	logger *log.Logger
	python Python
	prefix string
}

// NewOracle creates an oracle. prefix is the conventional package name
// prefix for Python distributions ("python").
func NewOracle(run shell.Runner, logger *log.Logger, python Python, prefix string) *Oracle {
	if logger == nil {
		logger = log.Default()
	}
	return &Oracle{run: run, logger: logger, python: python, prefix: prefix}
}

// Python returns the interpreter the oracle was configured for.
func (o *Oracle) Python() Python { return o.python }

// DetectPython asks the system interpreter for its version.
func DetectPython(ctx context.Context, run shell.Runner, prefix string) (Python, error) {
	res, err := run.Run(ctx, shell.Command{
		Name: "python3",
		Args: []string{"-c", `import sys; print("%d.%d" % sys.version_info[:2])`},
	})
	if err != nil {
		return Python{}, fmt.Errorf("detect python version: %w", err)
	}
	return Python{Version: strings.TrimSpace(res.Stdout), Prefix: prefix}, nil
}

// Preflight verifies that the inspection tools are available and that the
// pkgfile index has been populated.
func Preflight(ctx context.Context, run shell.Runner) error {
	for _, tool := range []string{"namcap", "pkgfile", "makepkg", "pacman"} {
		if _, err := run.Run(ctx, shell.Bash("command -v "+tool)); err != nil {
			return fmt.Errorf("missing dependency: %s", tool)
		}
	}
	if _, err := run.Run(ctx, shell.Command{Name: "pkgfile", Args: []string{"pkgfile"}}); err != nil {
		return fmt.Errorf("pkgfile has no repository files, run `pkgfile --update`: %w", err)
	}
	return nil
}

// IsInstalled reports whether the named package is installed.
func (o *Oracle) IsInstalled(ctx context.Context, pkgname string) bool {
	_, err := o.run.Run(ctx, shell.Command{Name: "pacman", Args: []string{"-Q", pkgname}})
	return err == nil
}

// EnsureInstalled installs pkgname as a dependency when it is missing.
func (o *Oracle) EnsureInstalled(ctx context.Context, pkgname string) error {
	if o.IsInstalled(ctx, pkgname) {
		return nil
	}
	_, err := o.run.Run(ctx, shell.Command{
		Name:    "sudo",
		Args:    []string{"pacman", "-S", "--asdeps", "--noconfirm", pkgname},
		Verbose: true,
		Stream:  true,
	})
	return err
}

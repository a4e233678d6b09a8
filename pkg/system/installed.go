package system

import (
	"context"
	"regexp"
	"slices"
	"strings"

	"github.com/alessio/shellescape"

	perrors "github.com/matzehuels/pypi2pkgbuild/pkg/errors"
	"github.com/matzehuels/pypi2pkgbuild/pkg/naming"
	"github.com/matzehuels/pypi2pkgbuild/pkg/shell"
)

var conflictsLine = regexp.MustCompile(`(?m)^Conflicts With\s*:\s*(.*)$`)

// FindInstalled returns the installed package providing canonical, or nil.
//
// The metadata directory in site-packages is matched case-insensitively
// first; packages without one are found through the conventional name.
// An installed "-git" package must declare a conflict with its plain
// counterpart, which it then stands for; otherwise the lookup fails with
// CONFLICTING_INSTALLED_PACKAGE. Vendored component packages are ignored
// when ignoreVendored is set.
func (o *Oracle) FindInstalled(ctx context.Context, canonical string, ignoreVendored bool) (*Match, error) {
	m, err := o.ownerOfMetadata(ctx, canonical)
	if err != nil {
		return nil, err
	}
	if m == nil {
		m = o.queryInstalled(ctx, naming.DefaultSystemName(o.prefix, canonical, false))
	}
	if m == nil {
		return nil, nil
	}

	if base, ok := strings.CutSuffix(m.Name, "-git"); ok {
		if !o.conflictsWith(ctx, m.Name, base) {
			return nil, perrors.New(perrors.ErrCodeConflictingInstalled,
				"found installed package %s which does NOT conflict with %s; please uninstall it first", m.Name, base)
		}
		m.Name = base
	}
	if ignoreVendored && naming.IsVendoredName(o.prefix, m.Name) {
		return nil, nil
	}
	return m, nil
}

func (o *Oracle) ownerOfMetadata(ctx context.Context, canonical string) (*Match, error) {
	pattern := shellescape.Quote(o.python.SitePackages()+"/"+naming.WheelToken(canonical)) + "-*-info"
	res, err := o.run.Run(ctx, shell.Bash("shopt -s nocaseglob; pacman -Qo "+pattern+" 2>/dev/null || true"))
	if err != nil {
		return nil, err
	}

	var owners []Match
	for _, line := range res.Lines() {
		// "<path> is owned by <pkgname> <version>"
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		v, err := naming.ParseArchVersion(fields[len(fields)-1])
		if err != nil {
			continue
		}
		m := Match{Name: fields[len(fields)-2], Version: v}
		if !slices.Contains(owners, m) {
			owners = append(owners, m)
		}
	}
	switch len(owners) {
	case 0:
		return nil, nil
	case 1:
		return &owners[0], nil
	default:
		names := make([]string, len(owners))
		for i, m := range owners {
			names[i] = m.Name
		}
		return nil, perrors.New(perrors.ErrCodeAmbiguousSystemName,
			"multiple installed packages own metadata for %s: %s", canonical, strings.Join(names, ", "))
	}
}

func (o *Oracle) queryInstalled(ctx context.Context, pkgname string) *Match {
	res, err := o.run.Run(ctx, shell.Command{Name: "pacman", Args: []string{"-Q", pkgname}})
	if err != nil {
		return nil
	}
	fields := strings.Fields(res.Stdout)
	if len(fields) != 2 {
		return nil
	}
	v, err := naming.ParseArchVersion(fields[1])
	if err != nil {
		return nil
	}
	return &Match{Name: fields[0], Version: v}
}

func (o *Oracle) conflictsWith(ctx context.Context, pkgname, other string) bool {
	res, err := o.run.Run(ctx, shell.Command{Name: "pacman", Args: []string{"-Qi", pkgname}})
	if err != nil {
		return false
	}
	m := conflictsLine.FindStringSubmatch(res.Stdout)
	if m == nil {
		return false
	}
	for _, c := range strings.Fields(m[1]) {
		// Entries may carry a version constraint ("foo<2").
		if i := strings.IndexAny(c, "<>="); i >= 0 {
			c = c[:i]
		}
		if c == other {
			return true
		}
	}
	return false
}

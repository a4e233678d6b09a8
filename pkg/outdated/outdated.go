// Package outdated finds system-wide Python distributions that the index
// has newer releases of, grouped by the system package owning them.
package outdated

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/matzehuels/pypi2pkgbuild/pkg/naming"
	"github.com/matzehuels/pypi2pkgbuild/pkg/shell"
	"github.com/matzehuels/pypi2pkgbuild/pkg/system"
)

// Owners finds the installed system package providing a distribution.
type Owners interface {
	FindInstalled(ctx context.Context, canonical string, ignoreVendored bool) (*system.Match, error)
}

var _ Owners = (*system.Oracle)(nil)

// Entry is one distribution pip reports as outdated.
type Entry struct {
	Name      string `json:"name"`
	Installed string `json:"version"`
	Latest    string `json:"latest_version"`
	Type      string `json:"latest_filetype"`
}

func (e Entry) String() string {
	return fmt.Sprintf("%s %s -> %s (%s)", e.Name, e.Installed, e.Latest, e.Type)
}

// Group is the outdated distributions owned by one system package.
type Group struct {
	Owner   system.Match
	Entries []Entry
}

// Finder queries pip and the package database.
type Finder struct {
	run    shell.Runner
	owners Owners
	site   string
	logger *log.Logger
}

// NewFinder creates a finder considering only distributions installed in
// sitePackages.
func NewFinder(run shell.Runner, owners Owners, sitePackages string, logger *log.Logger) *Finder {
	if logger == nil {
		logger = log.Default()
	}
	return &Finder{run: run, owners: owners, site: sitePackages, logger: logger}
}

// Find returns the outdated groups sorted by owner. Distributions pip
// considers outdated although the owning package is already at the
// index's version are skipped with a warning.
func (f *Finder) Find(ctx context.Context) ([]Group, error) {
	res, err := f.run.Run(ctx, shell.Command{Name: "pip", Args: []string{"list", "--outdated", "--format=json"}})
	if err != nil {
		return nil, fmt.Errorf("pip list: %w", err)
	}
	var entries []Entry
	if err := json.Unmarshal([]byte(res.Stdout), &entries); err != nil {
		return nil, fmt.Errorf("parse pip list: %w", err)
	}
	if len(entries) == 0 {
		return nil, nil
	}

	// pip show is slow; query every location at once.
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	res, err = f.run.Run(ctx, shell.Command{Name: "pip", Args: append([]string{"show"}, names...)})
	if err != nil {
		return nil, fmt.Errorf("pip show: %w", err)
	}
	locations := parseLocations(res.Stdout)

	groups := map[string]*Group{}
	for _, e := range entries {
		if locations[naming.Normalize(e.Name)] != f.site {
			continue
		}
		owner, err := f.owners.FindInstalled(ctx, naming.Normalize(e.Name), false)
		if err != nil {
			return nil, err
		}
		if owner == nil {
			f.logger.Debug("no system package owns distribution", "name", e.Name)
			continue
		}
		if sameVersion(owner.Version.PkgVer(), e.Latest) {
			f.logger.Warn("pip reports an outdated distribution that is up to date",
				"name", e.Name, "owner", owner.Name, "version", e.Latest)
			continue
		}
		key := owner.Name + " " + owner.Version.String()
		g, ok := groups[key]
		if !ok {
			g = &Group{Owner: *owner}
			groups[key] = g
		}
		g.Entries = append(g.Entries, e)
	}

	out := make([]Group, 0, len(groups))
	for _, key := range slices.Sorted(maps.Keys(groups)) {
		out = append(out, *groups[key])
	}
	return out, nil
}

// Updates returns the canonical names to rebuild and the ones skipped
// because they are in ignore, both sorted.
func Updates(groups []Group, ignore []string) (names, ignored []string) {
	skip := mapset.NewSet[string]()
	for _, name := range ignore {
		skip.Add(naming.Normalize(name))
	}
	all := mapset.NewSet[string]()
	for _, g := range groups {
		for _, e := range g.Entries {
			all.Add(naming.Normalize(e.Name))
		}
	}
	names = all.Difference(skip).ToSlice()
	ignored = all.Intersect(skip).ToSlice()
	slices.Sort(names)
	slices.Sort(ignored)
	return names, ignored
}

// parseLocations maps canonical names to the Location fields of pip show
// output.
func parseLocations(out string) map[string]string {
	locs := map[string]string{}
	name := ""
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		key, value, ok := strings.Cut(sc.Text(), ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch key {
		case "Name":
			name = naming.Normalize(value)
		case "Location":
			if name != "" {
				locs[name] = value
			}
		}
	}
	return locs
}

func sameVersion(a, b string) bool {
	if a == b {
		return true
	}
	va, errA := naming.ParsePyVersion(a)
	vb, errB := naming.ParsePyVersion(b)
	return errA == nil && errB == nil && va.Compare(vb) == 0
}

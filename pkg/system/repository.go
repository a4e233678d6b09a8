package system

import (
	"context"
	"errors"
	"regexp"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"

	perrors "github.com/matzehuels/pypi2pkgbuild/pkg/errors"
	"github.com/matzehuels/pypi2pkgbuild/pkg/naming"
	"github.com/matzehuels/pypi2pkgbuild/pkg/shell"
)

var componentMetadata = regexp.MustCompile(`site-packages/([^-/]+)-[^/]*\.(?:egg|dist)-info/?$`)

// FindRepository returns the repository package shipping metadata for
// canonical, or nil. Top-level site-packages entries are searched first,
// then entries vendored below another package. Several candidates are an
// AMBIGUOUS_SYSTEM_NAME error unless one of them carries the default
// name, which then wins with a warning.
func (o *Oracle) FindRepository(ctx context.Context, canonical string) (*Match, error) {
	site := regexp.QuoteMeta(o.python.SitePackages())
	wheel := regexp.QuoteMeta(naming.WheelToken(canonical))
	passes := []string{
		"^" + site + "/" + wheel + `-[^/]*\.(egg|dist)-info`,
		"^" + site + "/.+/" + wheel + `-[^/]*\.(egg|dist)-info`,
	}

	for _, pattern := range passes {
		candidates, err := o.searchIndex(ctx, pattern)
		if err != nil {
			return nil, err
		}
		switch len(candidates) {
		case 0:
			continue
		case 1:
			return &candidates[0], nil
		}

		def := naming.DefaultSystemName(o.prefix, canonical, false)
		names := make([]string, len(candidates))
		for i, c := range candidates {
			names[i] = c.Name
		}
		for _, c := range candidates {
			if c.Name == def {
				o.logger.Warn("multiple repository candidates, using the default name",
					"package", canonical, "candidates", strings.Join(names, ", "), "chosen", def)
				return &c, nil
			}
		}
		return nil, perrors.New(perrors.ErrCodeAmbiguousSystemName,
			"multiple candidates for %s: %s", canonical, strings.Join(names, ", "))
	}
	return nil, nil
}

// searchIndex runs a case-insensitive pkgfile regex search and returns the
// distinct packages in output order. Lines look like
// "extra/python-foo 1.0-1\t/usr/lib/...".
func (o *Oracle) searchIndex(ctx context.Context, pattern string) ([]Match, error) {
	res, err := o.run.Run(ctx, shell.Command{Name: "pkgfile", Args: []string{"-riv", pattern}})
	if err != nil {
		var exitErr *shell.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode == 1 {
			return nil, nil // no match
		}
		return nil, err
	}

	seen := mapset.NewThreadUnsafeSet[string]()
	var out []Match
	for _, line := range res.Lines() {
		head, _, _ := strings.Cut(line, "\t")
		_, pkg, ok := strings.Cut(head, "/")
		if !ok {
			continue
		}
		fields := strings.Fields(pkg)
		if len(fields) != 2 || !seen.Add(fields[0]) {
			continue
		}
		v, err := naming.ParseArchVersion(fields[1])
		if err != nil {
			continue
		}
		out = append(out, Match{Name: fields[0], Version: v})
	}
	return out, nil
}

// VendoredComponents lists the distinct distribution names whose metadata
// directories are shipped by the repository package pkgname, in file list
// order. Packages unknown to the index have no components.
func (o *Oracle) VendoredComponents(ctx context.Context, pkgname string) ([]string, error) {
	res, err := o.run.Run(ctx, shell.Command{Name: "pkgfile", Args: []string{"-l", pkgname}})
	if err != nil {
		return nil, nil
	}

	seen := mapset.NewThreadUnsafeSet[string]()
	var out []string
	for _, line := range res.Lines() {
		m := componentMetadata.FindStringSubmatch(line)
		if m == nil || !seen.Add(m[1]) {
			continue
		}
		out = append(out, m[1])
	}
	return out, nil
}

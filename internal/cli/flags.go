package cli

import (
	"slices"
	"strings"

	"github.com/spf13/pflag"

	"github.com/matzehuels/pypi2pkgbuild/pkg/build"
	"github.com/matzehuels/pypi2pkgbuild/pkg/deps"
)

// commaList is a repeatable comma-separated list flag. Values add to the
// configured ones; an empty element drops everything given before it.
type commaList struct {
	sets [][]string
}

var _ pflag.Value = (*commaList)(nil)

func (l *commaList) String() string { return strings.Join(l.Apply(nil), ",") }

func (l *commaList) Set(s string) error {
	l.sets = append(l.sets, strings.Split(s, ","))
	return nil
}

func (l *commaList) Type() string { return "list" }

// Apply returns base extended by the flag's values.
func (l *commaList) Apply(base []string) []string {
	if len(l.sets) == 0 {
		return base
	}
	out := slices.Clone(base)
	for _, set := range l.sets {
		for _, v := range set {
			if v = strings.TrimSpace(v); v == "" {
				out = out[:0]
				continue
			}
			out = append(out, v)
		}
	}
	if out == nil {
		out = []string{}
	}
	return out
}

// flagKeys maps flags to configuration keys.
var flagKeys = map[string]string{
	"base-path":           "base_path",
	"force":               "force",
	"pre":                 "pre",
	"pkgrel":              "pkgrel",
	"python-version":      "python.version",
	"index-url":           "index.url",
	"pkgbuild-extras":     "pkgbuild_extras",
	"pkgbuild-extras-dir": "pkgbuild_extras_dir",
	"makepkg":             "makepkg",
	"pacman":              "pacman",
	"maintainer":          "maintainer",
}

// buildFlags are the flags that do not map one to one onto a key.
type buildFlags struct {
	guessMakedepends commaList
	setupRequires    commaList
	pkgTypes         commaList
	noDeps           bool
	noInstall        bool
}

// addResolveFlags registers the flags shared by every command that plans.
func addResolveFlags(fs *pflag.FlagSet, f *buildFlags) {
	fs.BoolP("pre", "", false, "include pre-releases")
	fs.StringP("pkgrel", "r", deps.DefaultPkgRel, "force $pkgrel (not applicable to metapackages), e.g. 99 to override AUR packages")
	fs.String("python-version", "", "target python version (detected when empty)")
	fs.String("index-url", "", "package index JSON API base URL")
	fs.VarP(&f.guessMakedepends, "guess-makedepends", "g", "comma-separated makedepends to guess (cython, swig)")
	fs.VarP(&f.setupRequires, "setup-requires", "s", "comma-separated build requirements to force")
	fs.VarP(&f.pkgTypes, "pkgtypes", "t", "comma-separated preference order of distribution types")
	fs.BoolVarP(&f.noDeps, "no-deps", "d", false, "do not generate packages for dependencies")
}

// addBuildFlags registers the flags of commands that build.
func addBuildFlags(fs *pflag.FlagSet, f *buildFlags) {
	addResolveFlags(fs, f)
	fs.StringP("base-path", "b", ".", "directory the package folders are created in")
	fs.BoolP("force", "f", false, "overwrite existing package folders")
	fs.StringP("pkgbuild-extras", "e", "", "contents of PKGBUILD_EXTRAS")
	fs.String("pkgbuild-extras-dir", "", "directory of per-package PKGBUILD_EXTRAS files")
	fs.StringP("makepkg", "m", build.DefaultMakepkgArgs, "additional makepkg arguments")
	fs.StringP("pacman", "p", "", "additional arguments to pacman -U")
	fs.String("maintainer", "", "maintainer line (default: $PACKAGER from makepkg.conf)")
	fs.BoolVarP(&f.noInstall, "no-install", "n", false, "do not install the built packages")
}

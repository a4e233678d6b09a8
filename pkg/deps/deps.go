package deps

import (
	"context"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/matzehuels/pypi2pkgbuild/pkg/license"
	"github.com/matzehuels/pypi2pkgbuild/pkg/metadata"
	"github.com/matzehuels/pypi2pkgbuild/pkg/naming"
	"github.com/matzehuels/pypi2pkgbuild/pkg/source"
	"github.com/matzehuels/pypi2pkgbuild/pkg/system"
)

// Default option values.
const (
	DefaultPrefix = "python"
	DefaultPkgRel = "00"
)

// Guessable build dependencies.
const (
	GuessCython = "cython"
	GuessSwig   = "swig"
)

// Options configures resolution.
type Options struct {
	Prefix           string             // system package prefix, "python"
	PkgRel           string             // pkgrel of generated packages
	BuildDeps        bool               // plan missing dependencies too
	SetupRequires    []string           // build requirements forced on every package
	GuessMakedepends mapset.Set[string] // subset of GuessCython, GuessSwig
}

// WithDefaults returns a copy of Options with zero values replaced by defaults.
func (o Options) WithDefaults() Options {
	opts := o
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}
	if opts.PkgRel == "" {
		opts.PkgRel = DefaultPkgRel
	}
	if opts.GuessMakedepends == nil {
		opts.GuessMakedepends = mapset.NewSet(GuessCython, GuessSwig)
	}
	return opts
}

// PackageRef is the identity of a package as the system sees it.
type PackageRef struct {
	Canonical string `json:"canonical" yaml:"canonical"`
	// SystemName is the name the package is built under.
	SystemName string `json:"system_name" yaml:"system_name"`
	// DepName is the name used when other packages depend on this one.
	DepName string `json:"dep_name" yaml:"dep_name"`
	// Existing is the version of SystemName already installed or in a
	// repository.
	Existing *naming.ArchVersion `json:"existing,omitempty" yaml:"existing,omitempty"`
	// Repository is the repository package providing the distribution,
	// used for the provides entry of a rebuilt package.
	Repository *system.Match `json:"-" yaml:"-"`
	// Vendored lists the distributions whose metadata SystemName ships.
	Vendored []string `json:"vendored,omitempty" yaml:"vendored,omitempty"`
	// NonPython marks plain system packages such as swig.
	NonPython bool `json:"non_python,omitempty" yaml:"non_python,omitempty"`
}

// Exists reports whether the system already provides the package.
func (r *PackageRef) Exists() bool { return r.Existing != nil }

// WheelName is the canonical name as it appears in wheel filenames.
func (r *PackageRef) WheelName() string { return naming.WheelToken(r.Canonical) }

func nonPythonRef(pkgname string) *PackageRef {
	return &PackageRef{SystemName: pkgname, DepName: pkgname, NonPython: true}
}

// Oracle answers questions about the local package database.
type Oracle interface {
	FindInstalled(ctx context.Context, canonical string, ignoreVendored bool) (*system.Match, error)
	FindRepository(ctx context.Context, canonical string) (*system.Match, error)
	VendoredComponents(ctx context.Context, pkgname string) ([]string, error)
	IsInstalled(ctx context.Context, pkgname string) bool
	EnsureInstalled(ctx context.Context, pkgname string) error
}

// Releases resolves references to releases.
type Releases interface {
	Resolve(ctx context.Context, ref source.Reference) (*source.Release, error)
	Local(ctx context.Context, ref source.Reference, name, version string) (*source.Release, error)
}

// Fetcher materializes artifacts.
type Fetcher interface {
	Fetch(ctx context.Context, ref source.Reference, a source.Artifact) (*source.Workspace, error)
}

// Extractor reads the metadata of an installed requirement.
type Extractor interface {
	Extract(ctx context.Context, req string, setupRequires []string) (*metadata.Metadata, error)
}

// Licenses resolves license names and files.
type Licenses interface {
	Resolve(ctx context.Context, in license.Input) license.Result
}

var (
	_ Oracle    = (*system.Oracle)(nil)
	_ Releases  = (*source.Resolver)(nil)
	_ Fetcher   = (*source.Fetcher)(nil)
	_ Extractor = (*metadata.Extractor)(nil)
	_ Licenses  = (*license.Resolver)(nil)
)

package deps

import (
	"fmt"
	"slices"
	"strings"

	"github.com/matzehuels/pypi2pkgbuild/pkg/naming"
	"github.com/matzehuels/pypi2pkgbuild/pkg/source"
)

// Kind tags the two shapes a [Plan] can take.
type Kind int

const (
	// KindSingle is one Python distribution built into one package.
	KindSingle Kind = iota
	// KindMeta is an empty package depending on split components.
	KindMeta
)

func (k Kind) String() string {
	if k == KindMeta {
		return "meta"
	}
	return "single"
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Metapackage constants.
const (
	MetaSummary   = "A wrapper package."
	MetaURL       = "N/A"
	MetaLicense   = "CCPL:by"
	metaRelSuffix = ".99"
	metaDirPrefix = "meta:"
)

// File is an extra file shipped next to the manifest.
type File struct {
	Name    string
	Content []byte
}

// Plan is everything needed to write and build one package. A plan is
// complete when returned by a [Builder]; only the build step patches the
// rendered manifest afterwards.
type Plan struct {
	Kind    Kind            `json:"kind" yaml:"kind"`
	Ref     *PackageRef     `json:"ref" yaml:"ref"`
	Release *source.Release `json:"-" yaml:"-"` // nil for metapackages

	Epoch  string   `json:"epoch,omitempty" yaml:"epoch,omitempty"`
	PkgVer string   `json:"pkgver" yaml:"pkgver"`
	PkgRel string   `json:"pkgrel" yaml:"pkgrel"`
	Arch   []string `json:"arch" yaml:"arch"`

	Summary  string   `json:"summary" yaml:"summary"`
	URL      string   `json:"url" yaml:"url"`
	Licenses []string `json:"licenses" yaml:"licenses"`

	Depends      []*PackageRef `json:"-" yaml:"-"`
	MakeDepends  []*PackageRef `json:"-" yaml:"-"`
	CheckDepends []*PackageRef `json:"-" yaml:"-"`

	// Provides is "<name>=<pkgver>" when a repository package is replaced.
	Provides string `json:"provides,omitempty" yaml:"provides,omitempty"`
	// Conflicts overrides the default conflicts derived from Provides.
	Conflicts []string `json:"conflicts,omitempty" yaml:"conflicts,omitempty"`

	Files []File `json:"-" yaml:"-"`

	// Subpackages are the split components of a metapackage.
	Subpackages []*Plan `json:"-" yaml:"-"`
	// Requires are the plans of dependencies that must be built first.
	Requires []*Plan `json:"-" yaml:"-"`

	// Dir is the output directory relative to the base path.
	Dir string `json:"dir" yaml:"dir"`
	// IsDep marks packages built only because something depends on them.
	IsDep bool `json:"is_dep" yaml:"is_dep"`

	Hints     source.Hints      `json:"-" yaml:"-"`
	Workspace *source.Workspace `json:"-" yaml:"-"`
}

// Name is the package name.
func (p *Plan) Name() string { return p.Ref.SystemName }

// Version returns the full version, "[epoch:]pkgver-pkgrel".
func (p *Plan) Version() naming.ArchVersion {
	return naming.ArchVersion{Epoch: p.Epoch, Version: p.PkgVer, Release: p.PkgRel}
}

// VCS reports whether the package is built from a git checkout.
func (p *Plan) VCS() bool { return p.Release != nil && p.Release.Ref.IsVCS() }

// Artifacts returns the selected distribution files.
func (p *Plan) Artifacts() []source.Artifact {
	if p.Release == nil {
		return nil
	}
	return p.Release.Artifacts
}

// Packed returns the fetched archive to place next to the manifest, or ""
// when the build tool fetches the source itself.
func (p *Plan) Packed() string {
	if p.Workspace == nil || p.VCS() {
		return ""
	}
	return p.Workspace.Packed
}

// File returns the content of the named extra file.
func (p *Plan) File(name string) ([]byte, bool) {
	for _, f := range p.Files {
		if f.Name == name {
			return f.Content, true
		}
	}
	return nil, false
}

// Close releases the plan's workspace.
func (p *Plan) Close() error {
	if p.Workspace == nil {
		return nil
	}
	err := p.Workspace.Close()
	p.Workspace = nil
	return err
}

// DependencyNames renders a dependency list as package names. Ordinary
// packages refer to their dependencies by dependency name, so that a
// dependency on a split component points at its metapackage; a metapackage
// lists its own components by package name.
func DependencyNames(p *Plan, refs []*PackageRef) []string {
	names := make([]string, 0, len(refs))
	for _, r := range refs {
		name := r.DepName
		if p.Kind == KindMeta {
			name = r.SystemName
		}
		if !slices.Contains(names, name) {
			names = append(names, name)
		}
	}
	return names
}

// metaVersion is the version a metapackage is built at: the bundling
// package's version with a release suffix, so it supersedes it.
func metaVersion(existing naming.ArchVersion) naming.ArchVersion {
	v := existing
	v.Release += metaRelSuffix
	return v
}

// subConflicts keeps split components from being installed alongside any
// other version of their metapackage.
func subConflicts(meta string, v naming.ArchVersion) []string {
	return []string{
		fmt.Sprintf("%s<%s", meta, v),
		fmt.Sprintf("%s>%s", meta, v),
	}
}

func metaDir(pkgname string) string { return metaDirPrefix + pkgname }

// pkgver converts a Python version to a valid pkgver.
func pkgver(version string) string {
	return strings.ReplaceAll(version, "-", "_")
}

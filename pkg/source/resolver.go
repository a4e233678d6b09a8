package source

import (
	"context"

	"github.com/charmbracelet/log"
	mapset "github.com/deckarep/golang-set/v2"

	perrors "github.com/matzehuels/pypi2pkgbuild/pkg/errors"
	"github.com/matzehuels/pypi2pkgbuild/pkg/integrations/pypi"
	"github.com/matzehuels/pypi2pkgbuild/pkg/naming"
)

// Release is a resolved package version with its chosen artifacts.
type Release struct {
	Ref       Reference
	Name      string // as registered on the index, or as reported by pip
	Canonical string
	Version   string
	Info      pypi.Info
	Artifacts []Artifact
}

// Primary is the most preferred artifact.
func (r *Release) Primary() Artifact { return r.Artifacts[0] }

// Options controls artifact selection.
type Options struct {
	PkgTypes   []PkgType
	Pre        bool
	PythonTags mapset.Set[string]
}

// Resolver finds releases and their artifacts.
type Resolver struct {
	index  *pypi.Client
	opts   Options
	logger *log.Logger
}

// NewResolver creates a resolver querying index.
func NewResolver(index *pypi.Client, opts Options, logger *log.Logger) *Resolver {
	if len(opts.PkgTypes) == 0 {
		opts.PkgTypes = DefaultPkgTypes
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Resolver{index: index, opts: opts, logger: logger}
}

// Resolve looks up the newest acceptable release of an index reference and
// selects its artifacts. It fails with NO_ARTIFACT when no file survives
// selection.
func (r *Resolver) Resolve(ctx context.Context, ref Reference) (*Release, error) {
	p, err := r.index.LatestRelease(ctx, ref.Location, r.opts.Pre)
	if err != nil {
		return nil, err
	}
	rel := &Release{
		Ref:       ref,
		Name:      p.Info.Name,
		Canonical: naming.Normalize(p.Info.Name),
		Version:   p.Info.Version,
		Info:      p.Info,
	}

	arts, warnings := Select(p.URLs, rel.Canonical, rel.Version, r.opts.PkgTypes, r.opts.PythonTags)
	for _, w := range warnings {
		r.logger.Warn(w.Message, "package", rel.Canonical, "file", w.Filename)
	}
	if len(arts) == 0 {
		return nil, perrors.New(perrors.ErrCodeNoArtifact, "no URL available for package %s", rel.Canonical)
	}
	rel.Artifacts = arts
	return rel, nil
}

// Local describes a git or file reference as a release. name and version
// come from the metadata of the installed checkout; the name is replaced by
// the index's registered name when the index knows the project.
func (r *Resolver) Local(ctx context.Context, ref Reference, name, version string) (*Release, error) {
	if r.index != nil {
		registered, ok, err := r.index.RegisteredName(ctx, name)
		if err != nil {
			r.logger.Debug("index lookup failed", "name", name, "err", err)
		} else if ok {
			name = registered
		}
	}

	a := Artifact{Kind: pypi.TypeSdist, Class: Sdist, URL: ref.Raw, MD5: SkipChecksum, Filename: ref.Basename()}
	if ref.Kind == RefFile && !naming.IsWheel(ref.Location) && !isSdistName(ref.Location) {
		return nil, perrors.New(perrors.ErrCodeInvalidInput, "%s is neither a wheel nor a source archive", ref.Location)
	}
	if ref.Kind == RefFile && naming.IsWheel(ref.Location) {
		w, err := naming.ParseWheelFilename(ref.Basename())
		if err != nil {
			return nil, perrors.Wrap(perrors.ErrCodeInvalidInput, err, "local wheel %s", ref.Location)
		}
		arch, ok := naming.WheelArch(w)
		if !ok {
			return nil, perrors.New(perrors.ErrCodeNoArtifact, "wheel %s is not installable on this platform", ref.Location)
		}
		a.Kind, a.Wheel, a.Arch, a.Class = pypi.TypeWheel, &w, arch, ManylinuxWheel
		if arch == naming.ArchAny {
			a.Class = AnyWheel
		}
	}

	return &Release{
		Ref:       ref,
		Name:      name,
		Canonical: naming.Normalize(name),
		Version:   version,
		Info: pypi.Info{
			Name:        name,
			Version:     version,
			DownloadURL: ref.Location,
			HomePage:    ref.Location,
			PackageURL:  ref.Location,
		},
		Artifacts: []Artifact{a},
	}, nil
}

package deps

import (
	"context"
	"errors"
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
	mapset "github.com/deckarep/golang-set/v2"

	perrors "github.com/matzehuels/pypi2pkgbuild/pkg/errors"
	"github.com/matzehuels/pypi2pkgbuild/pkg/integrations/pypi"
	"github.com/matzehuels/pypi2pkgbuild/pkg/license"
	"github.com/matzehuels/pypi2pkgbuild/pkg/metadata"
	"github.com/matzehuels/pypi2pkgbuild/pkg/naming"
	"github.com/matzehuels/pypi2pkgbuild/pkg/source"
)

const (
	pipName    = "pip"
	cythonName = "cython"
	swigName   = "swig"
)

// Collaborators bundles the external services a [Builder] consults.
type Collaborators struct {
	Oracle    Oracle
	Releases  Releases
	Fetcher   Fetcher
	Extractor Extractor
	Licenses  Licenses
}

// Builder computes dependency closures. Plans and package references are
// memoized for the builder's lifetime. A Builder is not safe for
// concurrent use.
type Builder struct {
	c      Collaborators
	opts   Options
	logger *log.Logger

	refs      map[string]*PackageRef
	plans     map[string]*Plan
	resolving mapset.Set[string]
	stack     []string
}

// NewBuilder creates a builder.
func NewBuilder(c Collaborators, opts Options, logger *log.Logger) *Builder {
	if logger == nil {
		logger = log.Default()
	}
	return &Builder{
		c:         c,
		opts:      opts.WithDefaults(),
		logger:    logger,
		refs:      make(map[string]*PackageRef),
		plans:     make(map[string]*Plan),
		resolving: mapset.NewThreadUnsafeSet[string](),
	}
}

// scope carries where a plan is being requested from.
type scope struct {
	isDep bool
	base  string      // output directory prefix
	subOf *PackageRef // owning metapackage of a split component
}

// Resolve plans root and, when dependencies are built, every missing
// dependency. The root is always planned, even when the system already
// provides it.
func (b *Builder) Resolve(ctx context.Context, root string) (*Closure, error) {
	ref, err := source.ParseReference(root)
	if err != nil {
		return nil, err
	}
	p, err := b.plan(ctx, ref, scope{})
	if err != nil {
		return nil, err
	}
	return newClosure(p), nil
}

// Plans returns every plan computed so far.
func (b *Builder) Plans() []*Plan {
	plans := make([]*Plan, 0, len(b.plans))
	for _, p := range b.plans {
		plans = append(plans, p)
	}
	slices.SortFunc(plans, func(x, y *Plan) int { return strings.Compare(x.Dir, y.Dir) })
	return plans
}

// Close releases the workspaces of all plans.
func (b *Builder) Close() error {
	var errs []error
	for _, p := range b.plans {
		errs = append(errs, p.Close())
	}
	return errors.Join(errs...)
}

func memoKey(ref source.Reference, sc scope) string {
	key := ref.Raw
	if ref.Kind == source.RefIndex {
		key = naming.Normalize(ref.Raw)
	}
	if sc.subOf != nil {
		key = sc.subOf.SystemName + "/" + key
	}
	return key
}

func (b *Builder) plan(ctx context.Context, ref source.Reference, sc scope) (*Plan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := memoKey(ref, sc)
	if p, ok := b.plans[key]; ok {
		if !sc.isDep {
			p.IsDep = false
		}
		return p, nil
	}
	if b.resolving.Contains(key) {
		cycle := append(slices.Clone(b.stack[slices.Index(b.stack, key):]), key)
		return nil, perrors.New(perrors.ErrCodeCyclicDependency,
			"dependency cycle: %s", strings.Join(cycle, " -> "))
	}
	b.resolving.Add(key)
	b.stack = append(b.stack, key)
	defer func() {
		b.resolving.Remove(key)
		b.stack = b.stack[:len(b.stack)-1]
	}()

	p, err := b.build(ctx, ref, sc)
	if err != nil {
		return nil, err
	}
	b.plans[key] = p
	return p, nil
}

func (b *Builder) build(ctx context.Context, ref source.Reference, sc scope) (*Plan, error) {
	if ref.Kind != source.RefIndex {
		return b.buildSingle(ctx, ref, sc)
	}

	rel, err := b.c.Releases.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	if sc.subOf == nil {
		pref, err := b.refFor(ctx, rel.Canonical, false, nil)
		if err != nil {
			return nil, err
		}
		if len(pref.Vendored) > 1 && pref.Exists() {
			return b.buildMeta(ctx, pref, sc)
		}
	}
	return b.buildRelease(ctx, ref, rel, sc)
}

// buildSingle plans a git or file reference. Its name and version are only
// known once the checkout has been installed.
func (b *Builder) buildSingle(ctx context.Context, ref source.Reference, sc scope) (*Plan, error) {
	local := source.Artifact{Kind: pypi.TypeSdist, Class: source.Sdist, Filename: ref.Basename(), URL: ref.Raw}
	if naming.IsWheel(ref.Location) {
		local.Kind, local.Class = pypi.TypeWheel, source.AnyWheel
	}
	ws, err := b.c.Fetcher.Fetch(ctx, ref, local)
	if err != nil {
		return nil, err
	}

	p, err := b.single(ctx, ref, ws, local.IsWheel(), sc, func(setup []string) (*source.Release, *metadata.Metadata, error) {
		md, err := b.c.Extractor.Extract(ctx, ref.Raw, setup)
		if err != nil {
			return nil, nil, err
		}
		rel, err := b.c.Releases.Local(ctx, ref, md.Name, md.Version)
		return rel, md, err
	})
	if err != nil {
		_ = ws.Close()
		return nil, err
	}
	return p, nil
}

// buildRelease plans an index release. Wheels are not fetched: the build
// tool downloads them from the manifest's sources.
func (b *Builder) buildRelease(ctx context.Context, ref source.Reference, rel *source.Release, sc scope) (*Plan, error) {
	var ws *source.Workspace
	primary := rel.Primary()
	if !primary.IsWheel() {
		var err error
		if ws, err = b.c.Fetcher.Fetch(ctx, ref, primary); err != nil {
			return nil, err
		}
	}
	p, err := b.single(ctx, ref, ws, primary.IsWheel(), sc, func(setup []string) (*source.Release, *metadata.Metadata, error) {
		md, err := b.c.Extractor.Extract(ctx, rel.Name+"=="+rel.Version, setup)
		return rel, md, err
	})
	if err != nil {
		if ws != nil {
			_ = ws.Close()
		}
		return nil, err
	}
	return p, nil
}

type releaseFunc func(setupRequires []string) (*source.Release, *metadata.Metadata, error)

func (b *Builder) single(ctx context.Context, ref source.Reference, ws *source.Workspace, wheel bool, sc scope, release releaseFunc) (*Plan, error) {
	var hints source.Hints
	if ws != nil && !wheel {
		h, err := source.Sniff(ws.Tree)
		if err != nil {
			return nil, fmt.Errorf("inspect source tree: %w", err)
		}
		hints = h
	}

	makedepends, err := b.makedepends(ctx, wheel, hints)
	if err != nil {
		return nil, err
	}

	rel, md, err := release(setupNames(makedepends))
	if err != nil {
		return nil, err
	}
	b.logger.Info("packaging", "package", rel.Canonical, "version", rel.Version)

	pref, err := b.refFor(ctx, rel.Canonical, ref.IsVCS(), sc.subOf)
	if err != nil {
		return nil, err
	}

	p := &Plan{
		Kind:        KindSingle,
		Ref:         pref,
		Release:     rel,
		PkgVer:      pkgver(rel.Version),
		PkgRel:      b.opts.PkgRel,
		Summary:     firstUsable(rel.Info.Summary, md.Summary),
		URL:         firstUsable(rel.Info.HomePage, rel.Info.DownloadURL, rel.Info.PackageURL, rel.Info.ProjectURL, md.URL()),
		MakeDepends: makedepends,
		Dir:         path.Join(sc.base, pref.SystemName),
		IsDep:       sc.isDep,
		Hints:       hints,
		Workspace:   ws,
	}
	if pref.Existing != nil {
		p.Epoch = pref.Existing.Epoch
	}
	p.Arch = b.arch(rel, wheel, hints)
	if !naming.IsVendoredName(b.opts.Prefix, pref.SystemName) && pref.Repository != nil {
		p.Provides = pref.Repository.Name + "=" + p.PkgVer
	}

	lic := b.c.Licenses.Resolve(ctx, licenseInput(rel, md, ws))
	p.Licenses = lic.Licenses
	if lic.File != nil {
		p.Files = append(p.Files, File{Name: "LICENSE", Content: lic.File})
	}

	if err := b.depends(ctx, p, md.Requires, sc); err != nil {
		return nil, err
	}
	return p, nil
}

func (b *Builder) arch(rel *source.Release, wheel bool, hints source.Hints) []string {
	if wheel {
		if archs := source.Archs(rel.Artifacts); len(archs) > 0 {
			return archs
		}
	}
	if hints.Native {
		return []string{naming.NativeArch()}
	}
	return []string{naming.ArchAny}
}

// makedepends lists build dependencies. Wheels only need pip; sdists also
// get the build tools their sources suggest. Non-Python tools that are
// missing are installed right away.
func (b *Builder) makedepends(ctx context.Context, wheel bool, hints source.Hints) ([]*PackageRef, error) {
	var names []string
	if wheel {
		names = append([]string{pipName}, b.opts.SetupRequires...)
	} else {
		names = append(slices.Clone(b.opts.SetupRequires), pipName)
	}

	var refs []*PackageRef
	for _, name := range names {
		r, err := b.refFor(ctx, naming.Normalize(name), false, nil)
		if err != nil {
			return nil, err
		}
		refs = append(refs, r)
	}
	if wheel {
		return refs, nil
	}

	if hints.Swig && b.opts.GuessMakedepends.Contains(GuessSwig) {
		swig := nonPythonRef(swigName)
		if err := b.c.Oracle.EnsureInstalled(ctx, swig.SystemName); err != nil {
			b.logger.Warn("could not install build dependency", "package", swig.SystemName, "err", err)
		}
		refs = append(refs, swig)
	}
	if hints.Cython && b.opts.GuessMakedepends.Contains(GuessCython) {
		r, err := b.refFor(ctx, cythonName, false, nil)
		if err != nil {
			return nil, err
		}
		refs = append(refs, r)
	}
	for _, req := range hints.BuildRequires {
		r, err := b.refFor(ctx, naming.Normalize(req), false, nil)
		if err != nil {
			return nil, err
		}
		if r.Exists() && !containsRef(refs, r) {
			refs = append(refs, r)
		}
	}
	return refs, nil
}

// setupNames are the Python build requirements installed before
// extracting metadata.
func setupNames(makedepends []*PackageRef) []string {
	var names []string
	for _, r := range makedepends {
		if !r.NonPython && r.Canonical != "" && !slices.Contains(names, r.Canonical) {
			names = append(names, r.Canonical)
		}
	}
	return names
}

func (b *Builder) depends(ctx context.Context, p *Plan, requires []string, sc scope) error {
	for _, req := range requires {
		canonical := naming.Normalize(req)
		if !b.opts.BuildDeps {
			name := naming.DefaultSystemName(b.opts.Prefix, canonical, false)
			p.Depends = append(p.Depends, &PackageRef{Canonical: canonical, SystemName: name, DepName: name})
			continue
		}

		r, err := b.refFor(ctx, canonical, false, nil)
		if err != nil {
			return err
		}
		p.Depends = append(p.Depends, r)
		if r.Exists() {
			continue
		}
		dep, err := b.plan(ctx, source.Reference{Raw: canonical, Kind: source.RefIndex, Location: canonical},
			scope{isDep: true, base: sc.base})
		if err != nil {
			return fmt.Errorf("dependency %s of %s: %w", canonical, p.Name(), err)
		}
		if !slices.Contains(p.Requires, dep) {
			p.Requires = append(p.Requires, dep)
		}
	}
	return nil
}

func (b *Builder) buildMeta(ctx context.Context, pref *PackageRef, sc scope) (*Plan, error) {
	version := metaVersion(*pref.Existing)
	base := path.Join(sc.base, metaDir(pref.SystemName))
	b.logger.Info("splitting bundled package", "package", pref.SystemName, "components", pref.Vendored)

	meta := &Plan{
		Kind:     KindMeta,
		Ref:      pref,
		Epoch:    version.Epoch,
		PkgVer:   version.Version,
		PkgRel:   version.Release,
		Arch:     []string{naming.ArchAny},
		Summary:  MetaSummary,
		URL:      MetaURL,
		Licenses: []string{MetaLicense},
		Dir:      path.Join(base, pref.SystemName),
		IsDep:    sc.isDep,
	}
	for _, name := range pref.Vendored {
		canonical := naming.Normalize(name)
		sub, err := b.plan(ctx, source.Reference{Raw: canonical, Kind: source.RefIndex, Location: canonical},
			scope{isDep: true, base: base, subOf: pref})
		if err != nil {
			return nil, fmt.Errorf("component %s of %s: %w", canonical, pref.SystemName, err)
		}
		sub.Conflicts = subConflicts(pref.SystemName, version)
		meta.Subpackages = append(meta.Subpackages, sub)
		meta.Depends = append(meta.Depends, sub.Ref)
	}
	return meta, nil
}

// refFor maps a distribution to its system package names. A split
// component always gets the vendored name and depends through its
// metapackage.
func (b *Builder) refFor(ctx context.Context, canonical string, vcs bool, subOf *PackageRef) (*PackageRef, error) {
	key := canonical
	if vcs {
		key += "#vcs"
	}
	if subOf != nil {
		key = subOf.SystemName + "/" + key
	}
	if r, ok := b.refs[key]; ok {
		return r, nil
	}

	r := &PackageRef{Canonical: canonical}
	if subOf != nil {
		r.SystemName = naming.VendoredSystemName(b.opts.Prefix, canonical)
		r.DepName = subOf.SystemName
	} else {
		installed, err := b.c.Oracle.FindInstalled(ctx, canonical, true)
		if err != nil {
			return nil, err
		}
		repo, err := b.c.Oracle.FindRepository(ctx, canonical)
		if err != nil {
			return nil, err
		}
		def := naming.DefaultSystemName(b.opts.Prefix, canonical, false)

		switch {
		case installed != nil:
			r.SystemName, r.Existing = installed.Name, &installed.Version
		case repo != nil:
			r.SystemName, r.Existing = repo.Name, &repo.Version
		default:
			r.SystemName = def
		}
		switch {
		case repo != nil:
			r.DepName = repo.Name
		case installed != nil:
			r.DepName = installed.Name
		default:
			r.DepName = def
		}
		r.Repository = repo

		if r.Existing != nil {
			vendored, err := b.c.Oracle.VendoredComponents(ctx, r.SystemName)
			if err != nil {
				return nil, err
			}
			r.Vendored = vendored
		}
	}
	if vcs && !strings.HasSuffix(r.SystemName, "-git") {
		r.SystemName += "-git"
	}

	b.refs[key] = r
	return r, nil
}

func licenseInput(rel *source.Release, md *metadata.Metadata, ws *source.Workspace) license.Input {
	in := license.Input{
		Classifiers: rel.Info.Classifiers,
		License:     rel.Info.License,
		DownloadURL: rel.Info.DownloadURL,
		HomePage:    rel.Info.HomePage,
	}
	if len(in.Classifiers) == 0 {
		in.Classifiers = md.Classifiers
	}
	if in.License == "" {
		in.License = md.License
	}
	if in.HomePage == "" {
		in.HomePage = md.HomePage
	}
	if ws != nil {
		in.SourceDir = ws.Tree
	}
	return in
}

func firstUsable(candidates ...string) string {
	for _, c := range candidates {
		switch c {
		case "", "UNKNOWN", "None":
		default:
			return c
		}
	}
	return ""
}

func containsRef(refs []*PackageRef, r *PackageRef) bool {
	return slices.ContainsFunc(refs, func(o *PackageRef) bool { return o.SystemName == r.SystemName })
}

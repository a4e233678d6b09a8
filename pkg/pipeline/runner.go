package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pypi2pkgbuild/pkg/build"
	"github.com/matzehuels/pypi2pkgbuild/pkg/cache"
	"github.com/matzehuels/pypi2pkgbuild/pkg/deps"
	"github.com/matzehuels/pypi2pkgbuild/pkg/integrations/forge"
	"github.com/matzehuels/pypi2pkgbuild/pkg/integrations/pypi"
	"github.com/matzehuels/pypi2pkgbuild/pkg/license"
	"github.com/matzehuels/pypi2pkgbuild/pkg/metadata"
	"github.com/matzehuels/pypi2pkgbuild/pkg/naming"
	"github.com/matzehuels/pypi2pkgbuild/pkg/observability"
	"github.com/matzehuels/pypi2pkgbuild/pkg/pkgbuild"
	"github.com/matzehuels/pypi2pkgbuild/pkg/shell"
	"github.com/matzehuels/pypi2pkgbuild/pkg/source"
	"github.com/matzehuels/pypi2pkgbuild/pkg/system"
)

// Planner computes dependency closures.
type Planner interface {
	Resolve(ctx context.Context, root string) (*deps.Closure, error)
	Close() error
}

// PackageBuilder builds one planned package.
type PackageBuilder interface {
	Build(ctx context.Context, p *deps.Plan) (*build.Package, error)
}

var (
	_ Planner        = (*deps.Builder)(nil)
	_ PackageBuilder = (*build.Builder)(nil)
)

// Runner executes runs. Plans are memoized across the roots of one
// Runner, so a package shared by several roots is planned and built once.
type Runner struct {
	Planner Planner
	// Builder is created on first use when nil, after the maintainer has
	// been discovered.
	Builder PackageBuilder
	Built   *build.Accumulator
	Shell   shell.Runner
	Cache   cache.Cache
	Logger  *log.Logger

	opts Options
}

// New wires a runner from opts.
func New(ctx context.Context, opts Options, run shell.Runner) (*Runner, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	logger := opts.Logger

	python := system.Python{Version: opts.PythonVersion, Prefix: opts.PythonPrefix}
	if python.Version == "" {
		detected, err := system.DetectPython(ctx, run, opts.PythonPrefix)
		if err != nil {
			return nil, err
		}
		python = detected
	}
	tags, err := naming.PythonTags(python.Version)
	if err != nil {
		return nil, err
	}
	types, _ := opts.pkgTypes()

	index := pypi.NewClient(opts.Cache, opts.IndexURL, opts.CacheTTL)
	planner := deps.NewBuilder(deps.Collaborators{
		Oracle:    system.NewOracle(run, logger, python, opts.Prefix),
		Releases:  source.NewResolver(index, source.Options{PkgTypes: types, Pre: opts.Pre, PythonTags: tags}, logger),
		Fetcher:   source.NewFetcher(logger, opts.Progress),
		Extractor: metadata.NewExtractor(run, logger, opts.Fallback),
		Licenses:  license.NewResolver(forge.NewClient(), logger),
	}, opts.depsOptions(), logger)

	logger.Debug("pipeline ready", "python", python.Version, "index", opts.IndexURL, "build_deps", opts.BuildDeps)
	return &Runner{
		Planner: planner,
		Built:   build.NewAccumulator(),
		Shell:   run,
		Cache:   opts.Cache,
		Logger:  logger,
		opts:    opts,
	}, nil
}

// Plan resolves every root without building. Failed roots are reported in
// the result.
func (r *Runner) Plan(ctx context.Context, roots []string) (*Result, error) {
	result := &Result{}
	for _, root := range roots {
		closure, err := r.resolve(ctx, root)
		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			r.fail(result, root, err)
			continue
		}
		result.Closures = append(result.Closures, closure)
	}
	return result, result.Err()
}

// Execute plans and builds every root, then installs what was built when
// installation is enabled. Failed roots do not stop the others; the
// returned error joins their failures.
func (r *Runner) Execute(ctx context.Context, roots []string) (*Result, error) {
	result := &Result{}
	for _, root := range roots {
		if err := r.executeRoot(ctx, root, result); err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			r.fail(result, root, err)
		}
	}

	if r.opts.Install {
		observability.Pipeline().OnInstall(ctx, r.Built.Len())
		pacmanArgs, _ := build.SplitArgs(r.opts.Pacman)
		r.Built.Install(ctx, r.Shell, build.InstallOptions{NoDeps: !r.opts.BuildDeps, PacmanArgs: pacmanArgs}, r.Logger)
	}
	return result, result.Err()
}

func (r *Runner) executeRoot(ctx context.Context, root string, result *Result) error {
	closure, err := r.resolve(ctx, root)
	if err != nil {
		return err
	}
	result.Closures = append(result.Closures, closure)

	builder, err := r.builder(ctx)
	if err != nil {
		return err
	}
	r.Logger.Info("building", "root", closure.Root.Name(), "packages", closure.Names())
	for _, p := range closure.Plans {
		if r.Built.Has(p.Name()) {
			r.Logger.Debug("already built", "package", p.Name())
			if !p.IsDep {
				r.Built.MarkExplicit(p.Name())
			}
			continue
		}
		observability.Pipeline().OnBuildStart(ctx, p.Name())
		start := time.Now()
		pkg, err := builder.Build(ctx, p)
		observability.Pipeline().OnBuildComplete(ctx, p.Name(), time.Since(start), err)
		if err != nil {
			return fmt.Errorf("build %s: %w", p.Name(), err)
		}
		r.Built.Add(pkg)
		result.Built = append(result.Built, pkg)
		if err := p.Close(); err != nil {
			r.Logger.Debug("remove workspace", "package", p.Name(), "err", err)
		}
	}
	return nil
}

func (r *Runner) resolve(ctx context.Context, root string) (*deps.Closure, error) {
	hooks := observability.Pipeline()
	hooks.OnResolveStart(ctx, root)
	start := time.Now()
	closure, err := r.Planner.Resolve(ctx, root)
	packages := 0
	if closure != nil {
		packages = len(closure.Plans)
	}
	hooks.OnResolveComplete(ctx, root, packages, time.Since(start), err)
	return closure, err
}

func (r *Runner) builder(ctx context.Context) (PackageBuilder, error) {
	if r.Builder != nil {
		return r.Builder, nil
	}
	maintainer := r.opts.Maintainer
	if maintainer == "" {
		m, err := build.DiscoverMaintainer(ctx, r.Shell)
		if err != nil {
			return nil, err
		}
		maintainer = m
	}
	makepkgArgs, _ := build.SplitArgs(r.opts.Makepkg)
	r.Builder = build.NewBuilder(r.Shell, build.Options{
		BasePath:    r.opts.BasePath,
		Force:       r.opts.Force,
		MakepkgArgs: makepkgArgs,
		Extras:      pkgbuild.Extras{Text: r.opts.PkgbuildExtras, Dir: r.opts.PkgbuildExtrasDir},
		Maintainer:  maintainer,
	}, r.Logger)
	return r.Builder, nil
}

func (r *Runner) fail(result *Result, root string, err error) {
	r.Logger.Error("failed", "root", root, "err", err)
	result.Failed = append(result.Failed, &RootError{Root: root, Err: err})
}

// Close releases the workspaces of unbuilt plans and the cache.
func (r *Runner) Close() error {
	var errs []error
	if r.Planner != nil {
		errs = append(errs, r.Planner.Close())
	}
	if r.Cache != nil {
		errs = append(errs, r.Cache.Close())
	}
	return errors.Join(errs...)
}

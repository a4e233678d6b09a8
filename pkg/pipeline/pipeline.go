// Package pipeline drives a whole pypi2pkgbuild run.
//
// For every requested root the dependency closure is planned, each missing
// package is written out and built in dependency order, and every built
// package is collected for one final install. A failing root is reported
// and skipped; the remaining roots still run.
//
// # Usage
//
//	runner, err := pipeline.New(ctx, opts, shell.NewExecRunner(logger))
//	if err != nil {
//	    return err
//	}
//	defer runner.Close()
//	result, err := runner.Execute(ctx, []string{"requests"})
//
// Planning without building is available through [Runner.Plan], and
// [Render] draws the planned closures.
package pipeline

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"time"

	"github.com/charmbracelet/log"
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/matzehuels/pypi2pkgbuild/pkg/build"
	"github.com/matzehuels/pypi2pkgbuild/pkg/cache"
	"github.com/matzehuels/pypi2pkgbuild/pkg/deps"
	perrors "github.com/matzehuels/pypi2pkgbuild/pkg/errors"
	"github.com/matzehuels/pypi2pkgbuild/pkg/integrations/pypi"
	"github.com/matzehuels/pypi2pkgbuild/pkg/source"
)

// Default values shared by the CLI and the configuration defaults.
const (
	DefaultPythonPrefix        = "/usr"
	DefaultFallbackRequirement = "numpy"
	DefaultCacheTTL            = 24 * time.Hour
)

// Graph output formats.
const (
	FormatDOT  = "dot"
	FormatSVG  = "svg"
	FormatJSON = "json"
)

// ValidFormats is the set of supported graph formats.
var ValidFormats = map[string]bool{
	FormatDOT:  true,
	FormatSVG:  true,
	FormatJSON: true,
}

// DefaultGuessMakedepends are the build dependencies guessed by default.
var DefaultGuessMakedepends = []string{deps.GuessCython, deps.GuessSwig}

// Options configures a run.
type Options struct {
	// Output
	BasePath string `json:"base_path"`
	Force    bool   `json:"force,omitempty"`

	// Resolution
	Pre              bool     `json:"pre,omitempty"`
	PkgRel           string   `json:"pkgrel,omitempty"`
	Prefix           string   `json:"package_prefix,omitempty"`
	BuildDeps        bool     `json:"build_deps"`
	GuessMakedepends []string `json:"guess_makedepends,omitempty"`
	SetupRequires    []string `json:"setup_requires,omitempty"`
	PkgTypes         []string `json:"pkgtypes,omitempty"`
	Fallback         string   `json:"fallback_requirement,omitempty"`

	// Interpreter; the version is detected when empty.
	PythonVersion string `json:"python_version,omitempty"`
	PythonPrefix  string `json:"python_prefix,omitempty"`

	// Index
	IndexURL string        `json:"index_url,omitempty"`
	CacheTTL time.Duration `json:"cache_ttl,omitempty"`

	// Build and install
	PkgbuildExtras    string `json:"pkgbuild_extras,omitempty"`
	PkgbuildExtrasDir string `json:"pkgbuild_extras_dir,omitempty"`
	Makepkg           string `json:"makepkg,omitempty"`
	Install           bool   `json:"install"`
	Pacman            string `json:"pacman,omitempty"`
	Maintainer        string `json:"maintainer,omitempty"` // discovered from makepkg when empty

	// Runtime options (not serialized)
	Cache    cache.Cache `json:"-"`
	Progress io.Writer   `json:"-"`
	Logger   *log.Logger `json:"-"`

	validated bool
}

// ValidateFormat checks that a graph format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return perrors.New(perrors.ErrCodeInvalidInput, "invalid format: %q (must be one of: dot, svg, json)", format)
	}
	return nil
}

// ValidateAndSetDefaults checks the options and applies defaults. It is
// idempotent.
var validPkgRel = regexp.MustCompile(`^[0-9]+(\.[0-9]+)*$`)

func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if _, err := o.pkgTypes(); err != nil {
		return err
	}
	if _, err := o.guessSet(); err != nil {
		return err
	}
	if _, err := build.SplitArgs(o.Makepkg); err != nil {
		return err
	}
	if _, err := build.SplitArgs(o.Pacman); err != nil {
		return err
	}
	if o.PkgRel != "" && !validPkgRel.MatchString(o.PkgRel) {
		return perrors.New(perrors.ErrCodeInvalidInput, "invalid pkgrel %q (expected e.g. 1 or 2.1)", o.PkgRel)
	}

	if o.BasePath == "" {
		o.BasePath = "."
	}
	if o.PkgRel == "" {
		o.PkgRel = deps.DefaultPkgRel
	}
	if o.Prefix == "" {
		o.Prefix = deps.DefaultPrefix
	}
	if o.PythonPrefix == "" {
		o.PythonPrefix = DefaultPythonPrefix
	}
	if o.Fallback == "" {
		o.Fallback = DefaultFallbackRequirement
	}
	if o.IndexURL == "" {
		o.IndexURL = pypi.DefaultBaseURL
	}
	if o.CacheTTL == 0 {
		o.CacheTTL = DefaultCacheTTL
	}
	if o.Cache == nil {
		o.Cache = cache.NewNullCache()
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

func (o *Options) pkgTypes() ([]source.PkgType, error) {
	if len(o.PkgTypes) == 0 {
		return source.DefaultPkgTypes, nil
	}
	types, ok := source.ParsePkgTypes(o.PkgTypes)
	if !ok {
		return nil, perrors.New(perrors.ErrCodeInvalidInput,
			"invalid pkgtypes %v (allowed: anywheel, sdist, manylinuxwheel)", o.PkgTypes)
	}
	return types, nil
}

func (o *Options) guessSet() (mapset.Set[string], error) {
	guesses := o.GuessMakedepends
	if guesses == nil {
		guesses = DefaultGuessMakedepends
	}
	set := mapset.NewSet[string]()
	for _, g := range guesses {
		if g != deps.GuessCython && g != deps.GuessSwig {
			return nil, perrors.New(perrors.ErrCodeInvalidInput,
				"invalid makedepends guess %q (allowed: cython, swig)", g)
		}
		set.Add(g)
	}
	return set, nil
}

func (o *Options) depsOptions() deps.Options {
	guesses, _ := o.guessSet()
	return deps.Options{
		Prefix:           o.Prefix,
		PkgRel:           o.PkgRel,
		BuildDeps:        o.BuildDeps,
		SetupRequires:    o.SetupRequires,
		GuessMakedepends: guesses,
	}
}

// Result is the outcome of a run.
type Result struct {
	// Closures holds the planned closure of every root that resolved.
	Closures []*deps.Closure
	// Built lists the built packages in build order.
	Built []*build.Package
	// Failed holds one error per failed root.
	Failed []*RootError
}

// Err joins the root failures, or returns nil.
func (r *Result) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	errs := make([]error, len(r.Failed))
	for i, f := range r.Failed {
		errs[i] = f
	}
	return errors.Join(errs...)
}

// RootError is the failure of one requested root.
type RootError struct {
	Root string
	Err  error
}

func (e *RootError) Error() string { return fmt.Sprintf("%s: %v", e.Root, e.Err) }

func (e *RootError) Unwrap() error { return e.Err }

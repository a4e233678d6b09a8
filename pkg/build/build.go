// Package build writes package directories and drives makepkg and namcap.
//
// A package is built once, inspected with namcap, and, when namcap reports
// undeclared library dependencies or native code in an "any" package,
// patched and repackaged exactly once more. Every built package is recorded
// in an [Accumulator] for one final batched install.
package build

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	gosrc "github.com/Morganamilo/go-srcinfo"
	"github.com/charmbracelet/log"
	"github.com/kballard/go-shellquote"

	"github.com/matzehuels/pypi2pkgbuild/pkg/deps"
	perrors "github.com/matzehuels/pypi2pkgbuild/pkg/errors"
	"github.com/matzehuels/pypi2pkgbuild/pkg/naming"
	"github.com/matzehuels/pypi2pkgbuild/pkg/pkgbuild"
	"github.com/matzehuels/pypi2pkgbuild/pkg/shell"
)

// DefaultMakepkgArgs are passed to every makepkg build.
const DefaultMakepkgArgs = "--cleanbuild --nodeps"

// Options configures the build step.
type Options struct {
	BasePath    string
	Force       bool     // overwrite existing package directories
	MakepkgArgs []string // extra makepkg arguments
	Extras      pkgbuild.Extras
	Maintainer  string
}

// SplitArgs splits a user supplied argument string the way a shell would.
func SplitArgs(s string) ([]string, error) {
	args, err := shellquote.Split(s)
	if err != nil {
		return nil, perrors.Wrap(perrors.ErrCodeInvalidInput, err, "malformed arguments %q", s)
	}
	return args, nil
}

// Package is a built package file.
type Package struct {
	Name    string
	Version string
	Path    string
	Dir     string
	IsDep   bool
}

// Builder builds plans.
type Builder struct {
	run    shell.Runner
	opts   Options
	logger *log.Logger
}

// NewBuilder creates a builder.
func NewBuilder(run shell.Runner, opts Options, logger *log.Logger) *Builder {
	if logger == nil {
		logger = log.Default()
	}
	return &Builder{run: run, opts: opts, logger: logger}
}

var (
	extraDepRe  = regexp.MustCompile(`E: Dependency (\S+) detected and not included`)
	elfInAnyRe  = regexp.MustCompile(`E: ELF file .* found in an 'any' package\.`)
	namcapNoise = regexp.MustCompile(`W: (Dependency included and not needed|Unused shared library '/usr/lib/libpthread\.so\.0')`)
)

// Build writes p's directory, builds it, and returns the package file.
func (b *Builder) Build(ctx context.Context, p *deps.Plan) (*Package, error) {
	dir := filepath.Join(b.opts.BasePath, p.Dir)
	if err := b.write(p, dir); err != nil {
		return nil, err
	}

	args := []string{}
	if b.opts.Force {
		args = append(args, "--force")
	}
	args = append(args, b.opts.MakepkgArgs...)
	if err := b.makepkg(ctx, dir, args...); err != nil {
		return nil, err
	}
	path, err := b.packageFile(ctx, dir)
	if err != nil {
		return nil, err
	}

	path, err = b.fixup(ctx, dir, path)
	if err != nil {
		return nil, err
	}
	if err := b.inspect(ctx, dir, path); err != nil {
		return nil, err
	}

	pkg := &Package{Name: p.Name(), Version: p.Version().String(), Path: path, Dir: dir, IsDep: p.IsDep}
	if si, err := gosrc.ParseFile(filepath.Join(dir, pkgbuild.SrcInfo)); err == nil {
		pkg.Version = si.Version()
	} else {
		b.logger.Warn("could not parse .SRCINFO", "package", p.Name(), "err", err)
	}
	b.logger.Info("built", "package", pkg.Name, "version", pkg.Version, "file", filepath.Base(path))
	return pkg, nil
}

func (b *Builder) write(p *deps.Plan, dir string) error {
	if err := os.MkdirAll(filepath.Dir(dir), 0o755); err != nil {
		return err
	}
	if err := os.Mkdir(dir, 0o755); err != nil {
		if !errors.Is(err, fs.ErrExist) {
			return err
		}
		if !b.opts.Force {
			return perrors.New(perrors.ErrCodeOutputExists, "%s already exists, use --force to overwrite", dir)
		}
	}

	extras, err := b.opts.Extras.For(p.Name())
	if err != nil {
		return fmt.Errorf("read extras: %w", err)
	}
	manifest, err := pkgbuild.Render(p, b.opts.Maintainer)
	if err != nil {
		return err
	}
	files := []deps.File{
		{Name: pkgbuild.ExtrasFile, Content: extras},
		{Name: pkgbuild.FileName, Content: manifest},
	}
	for _, f := range append(files, p.Files...) {
		if err := os.WriteFile(filepath.Join(dir, f.Name), f.Content, 0o644); err != nil {
			return err
		}
	}

	if packed := p.Packed(); packed != "" {
		dest := filepath.Join(dir, filepath.Base(packed))
		if err := os.RemoveAll(dest); err != nil {
			return err
		}
		if err := move(packed, dest); err != nil {
			return fmt.Errorf("move %s: %w", filepath.Base(packed), err)
		}
	}
	return nil
}

func (b *Builder) makepkg(ctx context.Context, dir string, args ...string) error {
	_, err := b.run.Run(ctx, shell.Command{Name: "makepkg", Args: args, Dir: dir, Verbose: true, Stream: true})
	if err != nil {
		return perrors.Wrap(perrors.ErrCodeBuildFailed, err, "makepkg failed in %s", dir)
	}
	return nil
}

// packageFile finds the package makepkg just built. Only one of the
// listed architectures exists on disk.
func (b *Builder) packageFile(ctx context.Context, dir string) (string, error) {
	res, err := b.run.Run(ctx, shell.Command{Name: "makepkg", Args: []string{"--packagelist"}, Dir: dir})
	if err != nil {
		return "", perrors.Wrap(perrors.ErrCodeBuildFailed, err, "list packages in %s", dir)
	}
	var found []string
	for _, name := range res.Lines() {
		if !filepath.IsAbs(name) {
			name = filepath.Join(dir, name)
		}
		if fi, err := os.Stat(name); err == nil && fi.Mode().IsRegular() {
			found = append(found, name)
			continue
		}
		matches, _ := filepath.Glob(name + ".*")
		found = append(found, matches...)
	}
	if len(found) != 1 {
		return "", perrors.New(perrors.ErrCodeBuildFailed, "expected one package in %s, found %d", dir, len(found))
	}
	return found[0], nil
}

// fixup applies namcap's findings to the manifest and repackages once when
// anything changed. It returns the possibly renamed package file.
func (b *Builder) fixup(ctx context.Context, dir, path string) (string, error) {
	res, err := b.run.Run(ctx, shell.Command{Name: "namcap", Args: []string{filepath.Base(path)}, Dir: dir})
	if err != nil {
		return "", fmt.Errorf("namcap: %w", err)
	}
	report := res.Lines()

	// pkgver() may have rewritten the manifest.
	manifestPath := filepath.Join(dir, pkgbuild.FileName)
	manifest, err := os.ReadFile(manifestPath)
	if err != nil {
		return "", err
	}

	var extra []string
	anyELF := false
	for _, line := range report {
		if m := extraDepRe.FindStringSubmatch(line); m != nil {
			extra = append(extra, m[1])
		}
		if elfInAnyRe.MatchString(line) {
			anyELF = true
		}
	}
	manifest = pkgbuild.AddDepends(manifest, extra)
	if anyELF {
		manifest = pkgbuild.SetArch(manifest, naming.NativeArch())
	}
	if len(extra) == 0 && !anyELF {
		return path, nil
	}

	b.logger.Info("repackaging", "dir", dir, "depends", extra, "native", anyELF)
	if err := os.Remove(path); err != nil {
		return "", err
	}
	if err := os.WriteFile(manifestPath, manifest, 0o644); err != nil {
		return "", err
	}
	if err := b.makepkg(ctx, dir, "--force", "--repackage", "--nodeps"); err != nil {
		return "", err
	}
	return b.packageFile(ctx, dir)
}

// inspect reports what namcap still finds, checks the manifest and writes
// .SRCINFO.
func (b *Builder) inspect(ctx context.Context, dir, path string) error {
	if res, err := b.run.Run(ctx, shell.Command{Name: "namcap", Args: []string{filepath.Base(path)}, Dir: dir}); err == nil {
		for _, line := range res.Lines() {
			if !namcapNoise.MatchString(line) {
				b.logger.Warn("namcap", "line", line)
			}
		}
	}
	if res, err := b.run.Run(ctx, shell.Command{Name: "namcap", Args: []string{pkgbuild.FileName}, Dir: dir}); err == nil {
		for _, line := range res.Lines() {
			b.logger.Warn("namcap", "line", line)
		}
	}

	res, err := b.run.Run(ctx, shell.Command{Name: "makepkg", Args: []string{"--printsrcinfo"}, Dir: dir})
	if err != nil {
		return perrors.Wrap(perrors.ErrCodeBuildFailed, err, "print .SRCINFO in %s", dir)
	}
	return os.WriteFile(filepath.Join(dir, pkgbuild.SrcInfo), []byte(res.Stdout), 0o644)
}

// move renames src to dst, copying when they are on different devices.
func move(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	fi, err := os.Stat(src)
	if err != nil {
		return err
	}
	if fi.IsDir() {
		if err := os.CopyFS(dst, os.DirFS(src)); err != nil {
			return err
		}
		return os.RemoveAll(src)
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, fi.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}

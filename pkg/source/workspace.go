package source

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/go-git/go-git/v5"
	"github.com/mholt/archives"
	"github.com/schollz/progressbar/v3"

	perrors "github.com/matzehuels/pypi2pkgbuild/pkg/errors"
	"github.com/matzehuels/pypi2pkgbuild/pkg/integrations"
)

// Fetcher downloads, copies or clones artifacts into workspaces.
type Fetcher struct {
	http     *integrations.Client
	logger   *log.Logger
	progress io.Writer
}

// NewFetcher creates a fetcher. Download progress bars are drawn on
// progress; nil disables them.
func NewFetcher(logger *log.Logger, progress io.Writer) *Fetcher {
	if logger == nil {
		logger = log.Default()
	}
	return &Fetcher{
		http:     integrations.NewClient(nil, "download", 0, nil),
		logger:   logger,
		progress: progress,
	}
}

// Workspace is a temporary directory holding the files of one package.
// It lives until the package is resolved; Close removes it.
type Workspace struct {
	dir string

	// Packed is the downloaded or copied archive, or the git checkout.
	Packed string
	// Tree is the unpacked source tree. It is empty for wheels.
	Tree string
}

// Close removes the workspace directory.
func (w *Workspace) Close() error {
	if w == nil || w.dir == "" {
		return nil
	}
	return os.RemoveAll(w.dir)
}

// Fetch materializes artifact a of ref in a new workspace. Sdists are
// unpacked; git references are cloned with their submodules.
func (f *Fetcher) Fetch(ctx context.Context, ref Reference, a Artifact) (*Workspace, error) {
	dir, err := os.MkdirTemp("", "pypi2pkgbuild-src-")
	if err != nil {
		return nil, err
	}
	ws := &Workspace{dir: dir}

	if err := f.fetch(ctx, ws, ref, a); err != nil {
		_ = ws.Close()
		return nil, err
	}
	return ws, nil
}

func (f *Fetcher) fetch(ctx context.Context, ws *Workspace, ref Reference, a Artifact) error {
	switch ref.Kind {
	case RefGit:
		dest := filepath.Join(ws.dir, ref.Basename())
		f.logger.Info("cloning", "url", ref.Location)
		_, err := git.PlainCloneContext(ctx, dest, false, &git.CloneOptions{
			URL:               ref.Location,
			RecurseSubmodules: git.DefaultSubmoduleRecursionDepth,
		})
		if err != nil {
			return perrors.Wrap(perrors.ErrCodeNetwork, err, "clone %s", ref.Location)
		}
		ws.Packed, ws.Tree = dest, dest
		return nil

	case RefFile:
		ws.Packed = filepath.Join(ws.dir, filepath.Base(ref.Location))
		if err := copyFile(ref.Location, ws.Packed); err != nil {
			return perrors.Wrap(perrors.ErrCodeInvalidPath, err, "read %s", ref.Location)
		}

	default:
		ws.Packed = filepath.Join(ws.dir, a.Filename)
		if err := f.download(ctx, a, ws.Packed); err != nil {
			return perrors.Wrap(perrors.ErrCodeNetwork, err, "download %s", a.Filename)
		}
	}

	if a.IsWheel() {
		return nil
	}
	tree, err := Unpack(ctx, ws.Packed, filepath.Join(ws.dir, "src"))
	if err != nil {
		return fmt.Errorf("unpack %s: %w", filepath.Base(ws.Packed), err)
	}
	ws.Tree = tree
	return nil
}

func (f *Fetcher) download(ctx context.Context, a Artifact, dest string) error {
	resp, err := f.http.Do(ctx, a.URL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	var w io.Writer = out
	if f.progress != nil {
		bar := progressbar.NewOptions64(
			resp.ContentLength,
			progressbar.OptionSetDescription(" "+a.Filename),
			progressbar.OptionSetWriter(f.progress),
			progressbar.OptionSetWidth(30),
			progressbar.OptionShowBytes(true),
			progressbar.OptionClearOnFinish(),
		)
		defer bar.Finish()
		w = io.MultiWriter(out, bar)
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return err
	}
	return out.Sync()
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// Unpack extracts the archive at path into dest. When the archive holds a
// single top-level directory, as sdists do, that directory is returned;
// otherwise dest itself.
func Unpack(ctx context.Context, path, dest string) (string, error) {
	fsys, err := archives.FileSystem(ctx, path, nil)
	if err != nil {
		return "", fmt.Errorf("open archive: %w", err)
	}
	if c, ok := fsys.(io.Closer); ok {
		defer func() { _ = c.Close() }()
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return "", err
	}

	err = fs.WalkDir(fsys, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if name == "." {
			return nil
		}
		if !filepath.IsLocal(name) {
			return fmt.Errorf("archive entry escapes destination: %s", name)
		}
		return extractEntry(fsys, name, filepath.Join(dest, name), d)
	})
	if err != nil {
		return "", err
	}

	entries, err := os.ReadDir(dest)
	if err != nil {
		return "", err
	}
	if len(entries) == 1 && entries[0].IsDir() {
		return filepath.Join(dest, entries[0].Name()), nil
	}
	return dest, nil
}

func extractEntry(fsys fs.FS, name, target string, d fs.DirEntry) error {
	if d.IsDir() {
		return os.MkdirAll(target, 0o755)
	}
	if !d.Type().IsRegular() {
		return nil // links and devices are not needed for inspection
	}
	info, err := d.Info()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	src, err := fsys.Open(name)
	if err != nil {
		return err
	}
	defer src.Close()
	dst, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm()|0o200)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}

// isSdistName reports whether filename looks like a source archive.
func isSdistName(filename string) bool {
	for _, s := range []string{".tar.gz", ".tgz", ".tar.bz2", ".zip"} {
		if strings.HasSuffix(filename, s) {
			return true
		}
	}
	return false
}

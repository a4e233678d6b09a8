package build

import (
	"context"
	"os"
	"path/filepath"

	perrors "github.com/matzehuels/pypi2pkgbuild/pkg/errors"
	"github.com/matzehuels/pypi2pkgbuild/pkg/pkgbuild"
	"github.com/matzehuels/pypi2pkgbuild/pkg/shell"
)

// probeManifest makes makepkg print $PACKAGER as configured in
// makepkg.conf and stop.
const probeManifest = `pkgname=_
pkgver=0
pkgrel=0
arch=(any)
prepare() { printf "%s" "$PACKAGER"; exit 0; }
`

// DiscoverMaintainer asks makepkg for the configured packager.
func DiscoverMaintainer(ctx context.Context, run shell.Runner) (string, error) {
	dir, err := os.MkdirTemp("", "pypi2pkgbuild-maintainer-")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(dir)

	if err := os.WriteFile(filepath.Join(dir, pkgbuild.FileName), []byte(probeManifest), 0o644); err != nil {
		return "", err
	}
	res, err := run.Run(ctx, shell.Command{Name: "makepkg", Dir: dir})
	if err != nil {
		return "", perrors.Wrap(perrors.ErrCodeBuildFailed, err, "query packager from makepkg")
	}
	return res.Stdout, nil
}

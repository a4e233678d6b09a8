package pypi

import (
	"context"
	"errors"

	perrors "github.com/matzehuels/pypi2pkgbuild/pkg/errors"
	"github.com/matzehuels/pypi2pkgbuild/pkg/integrations"
	"github.com/matzehuels/pypi2pkgbuild/pkg/naming"
)

// LatestRelease returns the document of the newest release of name. Unless
// pre is set, pre-releases are skipped. When the newest acceptable release
// is not the index's current one, the index is queried again for it.
//
// Errors carry the codes NOT_FOUND and NO_SUITABLE_RELEASE.
func (c *Client) LatestRelease(ctx context.Context, name string, pre bool) (*Project, error) {
	p, err := c.FetchProject(ctx, name, "", false)
	if err != nil {
		return nil, notFound(err, name)
	}

	latest, ok := naming.MaxVersion(p.Versions(), pre)
	if !ok {
		if len(p.Releases) == 0 {
			return nil, perrors.New(perrors.ErrCodeNoSuitableRelease, "no suitable release found for %s", name)
		}
		return nil, perrors.New(perrors.ErrCodeNoSuitableRelease,
			"no suitable release found for %s; pre-releases are available, use --pre to use the latest one", name)
	}
	if latest == p.Info.Version {
		return p, nil
	}
	return c.Release(ctx, name, latest)
}

// Release returns the document of one specific release.
func (c *Client) Release(ctx context.Context, name, version string) (*Project, error) {
	p, err := c.FetchProject(ctx, name, version, false)
	if err != nil {
		return nil, notFound(err, name+" "+version)
	}
	return p, nil
}

// RegisteredName returns the project name as registered on the index.
// The second result is false when the index does not know the project.
func (c *Client) RegisteredName(ctx context.Context, name string) (string, bool, error) {
	p, err := c.FetchProject(ctx, name, "", false)
	if errors.Is(err, integrations.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return p.Info.Name, true, nil
}

func notFound(err error, what string) error {
	if errors.Is(err, integrations.ErrNotFound) {
		return perrors.Wrap(perrors.ErrCodeNotFound, err, "package %s not found", what)
	}
	return perrors.Wrap(perrors.ErrCodeNetwork, err, "querying index for %s", what)
}

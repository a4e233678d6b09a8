// Package pypi is a client for the package index JSON API
// (https://warehouse.pypa.io/api-reference/json.html).
package pypi

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/matzehuels/pypi2pkgbuild/pkg/cache"
	"github.com/matzehuels/pypi2pkgbuild/pkg/integrations"
)

// DefaultBaseURL is the public index.
const DefaultBaseURL = "https://pypi.org/pypi"

// Package types used by the index for distribution files.
const (
	TypeSdist = "sdist"
	TypeWheel = "bdist_wheel"
)

// Project is the index document for one project, either at its current
// version or at an explicitly requested one.
type Project struct {
	Info     Info              `json:"info"`
	Releases map[string][]File `json:"releases,omitempty"`
	URLs     []File            `json:"urls"`
}

// Info is the metadata block of a project document.
type Info struct {
	Name        string            `json:"name"`
	Version     string            `json:"version"`
	Summary     string            `json:"summary"`
	HomePage    string            `json:"home_page"`
	DownloadURL string            `json:"download_url"`
	PackageURL  string            `json:"package_url"`
	ProjectURL  string            `json:"project_url"`
	License     string            `json:"license"`
	Classifiers []string          `json:"classifiers"`
	ProjectURLs map[string]string `json:"project_urls"`
}

// File is one distribution file of a release.
type File struct {
	PackageType string  `json:"packagetype"`
	Filename    string  `json:"filename"`
	URL         string  `json:"url"`
	MD5Digest   string  `json:"md5_digest"`
	Digests     Digests `json:"digests"`
	Yanked      bool    `json:"yanked"`
}

// Digests holds the content hashes published for a file.
type Digests struct {
	MD5    string `json:"md5"`
	SHA256 string `json:"sha256"`
}

// Client fetches project documents from the index.
type Client struct {
	*integrations.Client
	baseURL string
}

// NewClient creates an index client. An empty baseURL selects
// [DefaultBaseURL]. Responses are cached in backend for cacheTTL.
func NewClient(backend cache.Cache, baseURL string, cacheTTL time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		Client:  integrations.NewClient(backend, "pypi", cacheTTL, map[string]string{"Accept": "application/json"}),
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// FetchProject retrieves the project document for name. When version is
// empty the document describes the index's current release. Missing
// projects and versions return an error wrapping [integrations.ErrNotFound].
func (c *Client) FetchProject(ctx context.Context, name, version string, refresh bool) (*Project, error) {
	endpoint := c.baseURL + "/" + url.PathEscape(name)
	if version != "" {
		endpoint += "/" + url.PathEscape(version)
	}
	endpoint += "/json"

	var p Project
	err := c.Cached(ctx, name+"\x00"+version, refresh, &p, func() error {
		p = Project{}
		return c.Get(ctx, endpoint, &p)
	})
	if err != nil {
		if errors.Is(err, integrations.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(name+" "+version))
		}
		return nil, err
	}
	for k, v := range p.URLs {
		if v.MD5Digest == "" {
			p.URLs[k].MD5Digest = v.Digests.MD5
		}
	}
	return &p, nil
}

// Versions returns the release identifiers listed in the document.
func (p *Project) Versions() []string {
	out := make([]string, 0, len(p.Releases))
	for v := range p.Releases {
		out = append(out, v)
	}
	return out
}

// Package forge fetches raw files from source forges given a project's
// home page URL. Only GitHub and Bitbucket repository URLs of the form
// https://host/<owner>/<repo> are understood.
package forge

import (
	"context"
	"net/url"
	"strings"

	"github.com/matzehuels/pypi2pkgbuild/pkg/integrations"
)

// DefaultBranch is the branch raw files are read from.
const DefaultBranch = "master"

// RawBase rewrites a repository URL into the base URL under which the
// raw contents of DefaultBranch are served. The second result is false
// for unsupported hosts and for URLs that are not exactly <owner>/<repo>.
func RawBase(repoURL string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(repoURL))
	if err != nil || u.Host == "" {
		return "", false
	}
	path := strings.Trim(u.Path, "/")
	if parts := strings.Split(path, "/"); len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", false
	}

	switch strings.ToLower(u.Host) {
	case "github.com", "www.github.com":
		u.Host = "raw.githubusercontent.com"
		u.Path = "/" + path + "/" + DefaultBranch
	case "bitbucket.org", "www.bitbucket.org":
		u.Path = "/" + path + "/raw/" + DefaultBranch
	default:
		return "", false
	}
	u.RawQuery, u.Fragment = "", ""
	return u.String(), true
}

// Client downloads raw repository files.
type Client struct {
	http    *integrations.Client
	rawBase func(string) (string, bool)
}

// NewClient creates a forge client. Raw files are not cached.
func NewClient() *Client {
	return &Client{
		http:    integrations.NewClient(nil, "forge", 0, nil),
		rawBase: RawBase,
	}
}

// FirstFile probes each supported project URL in turn, and for each one
// every candidate filename in order. It returns the contents and name of
// the first file found; found is false when none exists. Transport errors
// count as misses.
func (c *Client) FirstFile(ctx context.Context, projectURLs, names []string) (data []byte, name string, found bool) {
	for _, pu := range projectURLs {
		base, ok := c.rawBase(pu)
		if !ok {
			continue
		}
		for _, n := range names {
			if ctx.Err() != nil {
				return nil, "", false
			}
			b, err := c.http.GetBytes(ctx, base+"/"+n)
			if err == nil {
				return b, n, true
			}
		}
	}
	return nil, "", false
}

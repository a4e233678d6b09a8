// Package integrations provides the HTTP plumbing shared by the remote
// services pypi2pkgbuild talks to.
//
// Two subpackages build on it:
//
//   - [pypi]: the package index JSON API (project and release documents)
//   - [forge]: raw license file lookups on GitHub and Bitbucket
//
// [Client] wraps an *http.Client with a response cache, default headers,
// retries for transient failures and a uniform mapping of HTTP status codes
// to the sentinel errors [ErrNotFound] and [ErrNetwork]:
//
//	c := integrations.NewClient(backend, "pypi", 24*time.Hour, nil)
//	var doc document
//	err := c.Cached(ctx, key, false, &doc, func() error {
//	    return c.Get(ctx, url, &doc)
//	})
package integrations

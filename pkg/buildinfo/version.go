// Package buildinfo carries the version stamped into release binaries.
//
//	go build -ldflags "-X github.com/matzehuels/pypi2pkgbuild/pkg/buildinfo.Version=v0.4.0 \
//	    -X github.com/matzehuels/pypi2pkgbuild/pkg/buildinfo.Commit=$(git rev-parse --short HEAD) \
//	    -X github.com/matzehuels/pypi2pkgbuild/pkg/buildinfo.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
package buildinfo

import "fmt"

var (
	// Version is the release tag, "dev" for local builds.
	Version = "dev"

	// Commit is the abbreviated git commit.
	Commit = "none"

	// Date is the UTC build timestamp.
	Date = "unknown"
)

// String returns a one-line summary suitable for debug logs.
func String() string {
	return fmt.Sprintf("%s (%s, %s)", Version, Commit, Date)
}

// Template returns the cobra version template.
func Template() string {
	return fmt.Sprintf("{{.Name}} %s\ncommit: %s\nbuilt: %s\n", Version, Commit, Date)
}

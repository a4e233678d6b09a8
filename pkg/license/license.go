// Package license maps trove classifiers to system license names and
// retrieves a license file when the package has to ship one.
package license

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
)

const (
	classifierPrefix = "License :: "
	osiApproved      = "License :: OSI Approved"

	// Unknown is the license of a package that declares none.
	Unknown = "custom:unknown"
)

// Fetcher retrieves the first existing file out of names from the
// repositories behind projectURLs.
type Fetcher interface {
	FirstFile(ctx context.Context, projectURLs, names []string) ([]byte, string, bool)
}

// Input is the license-relevant part of a package's metadata.
type Input struct {
	Classifiers []string
	License     string // free-text license field
	DownloadURL string
	HomePage    string
	SourceDir   string // unpacked source tree, empty when none was fetched
}

// Result is the resolved license list and, when one is needed, the
// contents of the LICENSE file to embed.
type Result struct {
	Licenses []string
	File     []byte
}

// Resolver resolves licenses.
type Resolver struct {
	fetch  Fetcher
	logger *log.Logger
}

// NewResolver creates a resolver. A nil fetch disables remote lookups.
func NewResolver(fetch Fetcher, logger *log.Logger) *Resolver {
	if logger == nil {
		logger = log.Default()
	}
	return &Resolver{fetch: fetch, logger: logger}
}

// Map converts classifiers, or failing that the free-text license, into
// system license names. The result is never empty.
func Map(classifiers []string, freeText string) (licenses []string, unknown bool) {
	for _, c := range classifiers {
		if !strings.HasPrefix(c, classifierPrefix) || c == osiApproved {
			continue
		}
		label := c[strings.LastIndex(c, " :: ")+len(" :: "):]
		if name, ok := Common[label]; ok {
			licenses = append(licenses, name)
		} else if name, ok := Special[label]; ok {
			licenses = append(licenses, name)
		} else {
			licenses = append(licenses, "custom:"+label)
		}
	}
	if len(licenses) > 0 {
		return licenses, false
	}
	if freeText = strings.TrimSpace(freeText); freeText != "" && freeText != "UNKNOWN" && freeText != "None" {
		return []string{"custom:" + freeText}, false
	}
	return []string{Unknown}, true
}

// NeedsFile reports whether any license is not provided by the system.
func NeedsFile(licenses []string) bool {
	for _, l := range licenses {
		if !isCommonName(l) {
			return true
		}
	}
	return false
}

func isCommonName(name string) bool {
	for _, v := range Common {
		if v == name {
			return true
		}
	}
	return false
}

// Resolve maps the input's licenses and, when a license file is needed,
// looks for one on the project's forge, then in the source tree, and
// finally synthesizes a placeholder. Nothing here fails.
func (r *Resolver) Resolve(ctx context.Context, in Input) Result {
	licenses, unknown := Map(in.Classifiers, in.License)
	if unknown {
		r.logger.Warn("no license information available")
	}
	res := Result{Licenses: licenses}
	if !NeedsFile(licenses) {
		return res
	}

	if r.fetch != nil {
		if data, name, ok := r.fetch.FirstFile(ctx, []string{in.DownloadURL, in.HomePage}, FileNames); ok {
			r.logger.Debug("fetched license file", "name", name)
			res.File = data
			return res
		}
	}
	if data, ok := findInTree(in.SourceDir); ok {
		res.File = data
		return res
	}

	r.logger.Warn("could not retrieve license file", "licenses", licenses)
	res.File = Placeholder(licenses)
	return res
}

// Placeholder is the LICENSE file written when no text could be found.
func Placeholder(licenses []string) []byte {
	return fmt.Appendf(nil, "LICENSE: %s\n", strings.Join(licenses, ", "))
}

func findInTree(dir string) ([]byte, bool) {
	if dir == "" {
		return nil, false
	}
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		if fi, err := os.Stat(path); err != nil || !fi.Mode().IsRegular() {
			continue
		}
		if data, err := os.ReadFile(path); err == nil {
			return data, true
		}
	}
	return nil, false
}

// Package pkgbuild renders plans into PKGBUILD manifests.
//
// Rendering is a pure function of a [deps.Plan] and the maintainer line.
// All shell quoting happens here, once, through the template functions; the
// plan carries raw values.
//
// The rendered manifest sources a PKGBUILD_EXTRAS file next to it, and
// carries an "## EXTRA_DEPENDS ##" marker that the build step replaces with
// the binary dependencies namcap reports.
package pkgbuild

import (
	"bytes"
	"crypto/md5"
	"embed"
	"encoding/hex"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"
	"text/template"

	"github.com/alessio/shellescape"

	"github.com/matzehuels/pypi2pkgbuild/pkg/deps"
	"github.com/matzehuels/pypi2pkgbuild/pkg/license"
	"github.com/matzehuels/pypi2pkgbuild/pkg/naming"
)

// File names in a package directory.
const (
	FileName   = "PKGBUILD"
	ExtrasFile = "PKGBUILD_EXTRAS"
	SrcInfo    = ".SRCINFO"
)

// ExtraDependsMarker is replaced by the binary dependencies found after a
// first build.
const ExtraDependsMarker = "## EXTRA_DEPENDS ##"

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.New("pkgbuild").Funcs(template.FuncMap{
	"quote":    shellescape.Quote,
	"quoteAll": quoteAll,
	"join":     join,
	"prepend":  func(first string, rest []string) []string { return append([]string{first}, rest...) },
}).ParseFS(templateFS, "templates/*.tmpl"))

// Source is one distribution file declared in the manifest.
type Source struct {
	URL      string
	MD5      string
	Filename string
	Arch     string
	Wheel    bool
}

type manifest struct {
	Maintainer string
	Name       string
	Epoch      string
	PkgVer     string
	PkgRel     string
	Summary    string
	URL        string
	Arch       []string
	Licenses   []string

	Depends      []string
	MakeDepends  []string
	CheckDepends []string
	Provides     string
	Conflicts    []string

	Sources   []Source
	FileNames []string
	FileSums  []string

	SpecialLicenses []string
	LicenseFiles    []string
}

// Render returns the manifest of p.
func Render(p *deps.Plan, maintainer string) ([]byte, error) {
	m := manifest{
		Maintainer:   maintainer,
		Name:         p.Name(),
		Epoch:        p.Epoch,
		PkgVer:       p.PkgVer,
		PkgRel:       p.PkgRel,
		Summary:      p.Summary,
		URL:          p.URL,
		Arch:         p.Arch,
		Licenses:     p.Licenses,
		Depends:      deps.DependencyNames(p, p.Depends),
		MakeDepends:  deps.DependencyNames(p, p.MakeDepends),
		CheckDepends: deps.DependencyNames(p, p.CheckDepends),
		Provides:     p.Provides,
		Conflicts:    p.Conflicts,
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "header.tmpl", m); err != nil {
		return nil, fmt.Errorf("render %s: %w", p.Name(), err)
	}

	if p.Kind == deps.KindMeta {
		if err := templates.ExecuteTemplate(&buf, "meta.tmpl", m); err != nil {
			return nil, fmt.Errorf("render %s: %w", p.Name(), err)
		}
		return buf.Bytes(), nil
	}

	m.Sources = sources(p)
	for _, f := range p.Files {
		sum := md5.Sum(f.Content)
		m.FileNames = append(m.FileNames, f.Name)
		m.FileSums = append(m.FileSums, hex.EncodeToString(sum[:]))
	}
	m.SpecialLicenses = slices.Sorted(maps.Values(license.Special))
	m.LicenseFiles = license.FileNames

	for _, name := range []string{"sources.tmpl", "package.tmpl"} {
		if err := templates.ExecuteTemplate(&buf, name, m); err != nil {
			return nil, fmt.Errorf("render %s: %w", p.Name(), err)
		}
	}
	return buf.Bytes(), nil
}

// sources lists the files the build tool fetches: every retained wheel, or
// the single source distribution.
func sources(p *deps.Plan) []Source {
	var out []Source
	for _, a := range p.Artifacts() {
		if !a.IsWheel() {
			return []Source{{URL: a.URL, MD5: a.MD5, Filename: a.Filename}}
		}
		arch := a.Arch
		if arch == "" {
			arch = naming.ArchAny
		}
		out = append(out, Source{URL: a.URL, MD5: a.MD5, Filename: a.Filename, Arch: arch, Wheel: true})
	}
	return out
}

func quoteAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = shellescape.Quote(v)
	}
	return out
}

func join(values []string, sep ...string) string {
	s := " "
	if len(sep) > 0 {
		s = sep[0]
	}
	return strings.Join(values, s)
}

var archLine = regexp.MustCompile(`(?m)^arch=.*$`)

// AddDepends replaces the extra dependencies marker with deps. The marker
// is replaced even when deps is empty.
func AddDepends(manifest []byte, extra []string) []byte {
	line := "depends+=(" + strings.Join(quoteAll(extra), " ") + ")"
	return bytes.Replace(manifest, []byte(ExtraDependsMarker), []byte(line), 1)
}

// SetArch replaces the first arch line.
func SetArch(manifest []byte, arch string) []byte {
	done := false
	return archLine.ReplaceAllFunc(manifest, func(m []byte) []byte {
		if done {
			return m
		}
		done = true
		return []byte("arch=(" + arch + ")")
	})
}

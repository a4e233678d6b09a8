package source

import (
	"slices"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/matzehuels/pypi2pkgbuild/pkg/integrations/pypi"
	"github.com/matzehuels/pypi2pkgbuild/pkg/naming"
)

// PkgType is a distribution class usable in a preference list.
type PkgType string

const (
	AnyWheel       PkgType = "anywheel"
	Sdist          PkgType = "sdist"
	ManylinuxWheel PkgType = "manylinuxwheel"
)

// DefaultPkgTypes is the default preference order.
var DefaultPkgTypes = []PkgType{AnyWheel, Sdist, ManylinuxWheel}

// ParsePkgTypes validates a preference list given as strings.
func ParsePkgTypes(values []string) ([]PkgType, bool) {
	out := make([]PkgType, 0, len(values))
	for _, v := range values {
		switch t := PkgType(strings.ToLower(strings.TrimSpace(v))); t {
		case AnyWheel, Sdist, ManylinuxWheel:
			out = append(out, t)
		default:
			return nil, false
		}
	}
	return out, true
}

// SkipChecksum is the checksum of sources that are not verified.
const SkipChecksum = "SKIP"

// Artifact is one distribution file chosen for a package.
type Artifact struct {
	Kind     string  `json:"kind" yaml:"kind"` // pypi.TypeSdist or pypi.TypeWheel
	Class    PkgType `json:"class" yaml:"class"`
	Filename string  `json:"filename" yaml:"filename"`
	URL      string  `json:"url" yaml:"url"`
	MD5      string  `json:"md5" yaml:"md5"`

	// Arch is the target architecture of a wheel, "any" for pure ones.
	// Empty for sdists.
	Arch  string        `json:"arch,omitempty" yaml:"arch,omitempty"`
	Wheel *naming.Wheel `json:"-" yaml:"-"`
}

// IsWheel reports whether the artifact is a built distribution.
func (a Artifact) IsWheel() bool { return a.Kind == pypi.TypeWheel }

// Warning is a non-fatal problem noticed while selecting artifacts.
type Warning struct {
	Filename string
	Message  string
}

// Select filters a release's files and orders them by preference.
//
// Wheels must have an interpreter tag in pyTags and an installable
// platform. Each file is ranked by the position of its class in prefs;
// files whose class is not listed are dropped. If the best file is an
// sdist it is returned alone. If it is a wheel, every wheel of the same
// class is kept, the first one per architecture, so one release can serve
// several architectures. Wheels whose filename disagrees with canonical or
// version are kept but reported.
func Select(files []pypi.File, canonical, version string, prefs []PkgType, pyTags mapset.Set[string]) ([]Artifact, []Warning) {
	type ranked struct {
		a    Artifact
		rank int
	}
	var (
		cands    []ranked
		warnings []Warning
	)

	for _, f := range files {
		if f.Yanked {
			continue
		}
		a := Artifact{Kind: f.PackageType, Filename: f.Filename, URL: f.URL, MD5: f.MD5Digest}
		switch f.PackageType {
		case pypi.TypeWheel:
			w, err := naming.ParseWheelFilename(f.Filename)
			if err != nil {
				warnings = append(warnings, Warning{f.Filename, err.Error()})
				continue
			}
			if !pyTags.ContainsAny(w.PythonTags...) {
				continue
			}
			arch, ok := naming.WheelArch(w)
			if !ok {
				continue
			}
			a.Wheel, a.Arch, a.Class = &w, arch, ManylinuxWheel
			if arch == naming.ArchAny {
				a.Class = AnyWheel
			}
			if naming.Normalize(w.Name) != canonical || w.Version != version {
				warnings = append(warnings, Warning{f.Filename, "unexpected wheel name or version"})
			}
		case pypi.TypeSdist:
			a.Class = Sdist
		default:
			continue
		}
		rank := slices.Index(prefs, a.Class)
		if rank < 0 {
			continue
		}
		cands = append(cands, ranked{a, rank})
	}
	if len(cands) == 0 {
		return nil, warnings
	}

	slices.SortStableFunc(cands, func(x, y ranked) int { return x.rank - y.rank })
	primary := cands[0].a
	if !primary.IsWheel() {
		return []Artifact{primary}, warnings
	}

	seen := mapset.NewThreadUnsafeSet[string]()
	var out []Artifact
	for _, c := range cands {
		if c.a.Class != primary.Class || !seen.Add(c.a.Arch) {
			continue
		}
		out = append(out, c.a)
	}
	return out, warnings
}

// Archs returns the sorted architectures served by wheel artifacts.
func Archs(artifacts []Artifact) []string {
	set := mapset.NewThreadUnsafeSet[string]()
	for _, a := range artifacts {
		if a.IsWheel() {
			set.Add(a.Arch)
		}
	}
	out := set.ToSlice()
	slices.Sort(out)
	return out
}

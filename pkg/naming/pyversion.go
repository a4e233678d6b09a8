package naming

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/hashicorp/go-version"
)

// PyVersion is a Python release version ordered by PEP 440 rules.
//
// The release segment, pre-release and local label are handled by
// go-version after rewriting; the epoch, post-release number and the dev
// number of a post-release are kept aside and compared around it.
type PyVersion struct {
	raw     string
	epoch   int
	post    int
	postDev int
	v       *version.Version
}

var (
	pep440Epoch = regexp.MustCompile(`^(\d+)!`)
	pep440Post  = regexp.MustCompile(`(?:[._-]?(?:post|rev|r)[._-]?(\d*)|-(\d+))$`)
	pep440Dev   = regexp.MustCompile(`[._-]?dev[._-]?(\d*)$`)
	pep440Pre   = regexp.MustCompile(`[._-]?(alpha|beta|preview|pre|a|b|c|rc)[._-]?(\d*)$`)
)

var preTags = map[string]string{
	"a": "a", "alpha": "a",
	"b": "b", "beta": "b",
	"c": "rc", "rc": "rc", "pre": "rc", "preview": "rc",
}

// ParsePyVersion parses a PEP 440 version string.
func ParsePyVersion(s string) (*PyVersion, error) {
	pv := &PyVersion{raw: s, post: -1, postDev: -1}

	rest := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "v")
	local := ""
	if i := strings.Index(rest, "+"); i >= 0 {
		rest, local = rest[:i], strings.NewReplacer("_", ".", "-", ".").Replace(rest[i+1:])
	}
	if m := pep440Epoch.FindStringSubmatch(rest); m != nil {
		pv.epoch, _ = strconv.Atoi(m[1])
		rest = rest[len(m[0]):]
	}

	dev := ""
	if m := pep440Dev.FindStringSubmatchIndex(rest); m != nil {
		dev = numOrZero(rest[m[2]:m[3]])
		rest = rest[:m[0]]
	}
	if m := pep440Post.FindStringSubmatchIndex(rest); m != nil {
		n := ""
		if m[2] >= 0 {
			n = rest[m[2]:m[3]]
		} else {
			n = rest[m[4]:m[5]]
		}
		pv.post, _ = strconv.Atoi(numOrZero(n))
		rest = rest[:m[0]]
		// 1.0.post1.dev0 sorts between 1.0 and 1.0.post1.
		if dev != "" {
			pv.postDev, _ = strconv.Atoi(dev)
			dev = ""
		}
	}
	pre := ""
	if m := pep440Pre.FindStringSubmatchIndex(rest); m != nil {
		pre = preTags[rest[m[2]:m[3]]] + "." + numOrZero(rest[m[4]:m[5]])
		rest = rest[:m[0]]
	}

	// A bare dev release sorts before every pre-release of the same release.
	switch {
	case pre != "" && dev != "":
		rest += "-" + pre + ".dev." + dev
	case pre != "":
		rest += "-" + pre
	case dev != "":
		rest += "-0." + dev
	}
	if local != "" {
		rest += "+" + local
	}

	v, err := version.NewVersion(rest)
	if err != nil {
		return nil, fmt.Errorf("invalid python version %q: %w", s, err)
	}
	pv.v = v
	return pv, nil
}

func numOrZero(s string) string {
	if s == "" {
		return "0"
	}
	return s
}

// Compare returns -1, 0 or 1 depending on whether v is older than, equal
// to, or newer than o.
func (v *PyVersion) Compare(o *PyVersion) int {
	switch {
	case v.epoch < o.epoch:
		return -1
	case v.epoch > o.epoch:
		return 1
	}
	if c := v.v.Compare(o.v); c != 0 {
		return c
	}
	switch {
	case v.post < o.post:
		return -1
	case v.post > o.post:
		return 1
	}
	switch {
	case v.postDev == o.postDev:
		return 0
	case v.postDev < 0:
		return 1
	case o.postDev < 0:
		return -1
	case v.postDev < o.postDev:
		return -1
	}
	return 1
}

// LessThan reports whether v is older than o.
func (v *PyVersion) LessThan(o *PyVersion) bool { return v.Compare(o) < 0 }

// IsPrerelease reports whether v is a pre-release or development release.
func (v *PyVersion) IsPrerelease() bool { return v.v.Prerelease() != "" || v.postDev >= 0 }

// String returns the version exactly as it was parsed.
func (v *PyVersion) String() string { return v.raw }

// MaxVersion returns the newest parseable version of candidates. Unless pre
// is set, pre-releases are ignored. The second result is false when nothing
// qualified.
func MaxVersion(candidates []string, pre bool) (string, bool) {
	var best *PyVersion
	for _, c := range candidates {
		v, err := ParsePyVersion(c)
		if err != nil || (!pre && v.IsPrerelease()) {
			continue
		}
		if best == nil || best.LessThan(v) {
			best = v
		}
	}
	if best == nil {
		return "", false
	}
	return best.String(), true
}

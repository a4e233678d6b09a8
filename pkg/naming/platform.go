package naming

import (
	"fmt"
	"regexp"
	"runtime"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

// ArchAny is the architecture of a platform-independent package.
const ArchAny = "any"

var linuxPlatform = regexp.MustCompile(`^(?:manylinux\w*?|musllinux_\d+_\d+|linux)_(x86_64|i686|aarch64|armv7l|ppc64le|s390x)$`)

// Wheel platform names that differ from the system architecture name.
var wheelArchs = map[string]string{
	"armv7l": "armv7h",
}

// PlatformArch maps a single wheel platform tag to a system architecture.
// The second result is false for platforms that cannot be installed here
// (macOS, Windows, ...).
func PlatformArch(tag string) (string, bool) {
	if tag == ArchAny {
		return ArchAny, true
	}
	if m := linuxPlatform.FindStringSubmatch(tag); m != nil {
		if arch, ok := wheelArchs[m[1]]; ok {
			return arch, true
		}
		return m[1], true
	}
	return "", false
}

// WheelArch returns the architecture served by a wheel, considering every
// tag of its compressed platform set.
func WheelArch(w Wheel) (string, bool) {
	for _, tag := range w.PlatformTags {
		if arch, ok := PlatformArch(tag); ok {
			return arch, true
		}
	}
	return "", false
}

var goArchs = map[string]string{
	"amd64":   "x86_64",
	"386":     "i686",
	"arm64":   "aarch64",
	"arm":     "armv7h",
	"ppc64le": "ppc64le",
	"s390x":   "s390x",
}

// NativeArch returns the system architecture name of the running machine.
func NativeArch() string {
	if a, ok := goArchs[runtime.GOARCH]; ok {
		return a
	}
	return runtime.GOARCH
}

// PythonTags returns the interpreter tags installable by the given
// interpreter version ("3.12"): py3, py312 and cp312.
func PythonTags(pyVersion string) (mapset.Set[string], error) {
	major, minor, ok := strings.Cut(pyVersion, ".")
	if !ok || major == "" || minor == "" {
		return nil, fmt.Errorf("invalid python version %q", pyVersion)
	}
	if i := strings.Index(minor, "."); i >= 0 {
		minor = minor[:i]
	}
	return mapset.NewSet(
		"py"+major,
		"py"+major+minor,
		"cp"+major+minor,
	), nil
}

package naming

import (
	"regexp"
	"strings"
)

var separatorRun = regexp.MustCompile(`[-_.]+`)

// Normalize returns the canonical form of a distribution name: runs of
// '.', '_' and '-' collapse to a single '-', and the result is lowercased.
// Normalize is idempotent.
func Normalize(name string) string {
	return strings.ToLower(separatorRun.ReplaceAllString(strings.TrimSpace(name), "-"))
}

// WheelToken returns the form of a canonical name used inside wheel and
// metadata directory names.
func WheelToken(canonical string) string {
	return strings.ReplaceAll(canonical, "-", "_")
}

// DefaultSystemName returns the generated package name for a distribution
// that has no installed or repository equivalent.
func DefaultSystemName(prefix, canonical string, vcs bool) string {
	name := prefix + "-" + canonical
	if vcs {
		name += "-git"
	}
	return name
}

// VendoredSystemName is the name given to a component split out of a
// repository package that bundles several distributions.
func VendoredSystemName(prefix, canonical string) string {
	return prefix + "--" + canonical
}

// IsVendoredName reports whether name was produced by [VendoredSystemName].
func IsVendoredName(prefix, name string) bool {
	return strings.HasPrefix(name, prefix+"--")
}

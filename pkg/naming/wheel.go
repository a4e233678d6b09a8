package naming

import (
	"fmt"
	"strings"
)

// Wheel is the information carried by a built distribution's filename.
type Wheel struct {
	Name         string
	Version      string
	BuildTag     string
	PythonTags   []string
	ABITag       string
	PlatformTags []string
}

// ParseWheelFilename splits a wheel filename into its tags. The stem must
// have five '-' separated fields, or six when a build tag is present. The
// python and platform fields may be compressed '.' joined tag sets.
func ParseWheelFilename(filename string) (Wheel, error) {
	stem := strings.TrimSuffix(filename, ".whl")
	parts := strings.Split(stem, "-")

	var w Wheel
	switch len(parts) {
	case 5:
		w = Wheel{Name: parts[0], Version: parts[1], ABITag: parts[3]}
		w.PythonTags = strings.Split(parts[2], ".")
		w.PlatformTags = strings.Split(parts[4], ".")
	case 6:
		w = Wheel{Name: parts[0], Version: parts[1], BuildTag: parts[2], ABITag: parts[4]}
		w.PythonTags = strings.Split(parts[3], ".")
		w.PlatformTags = strings.Split(parts[5], ".")
	default:
		return Wheel{}, fmt.Errorf("invalid wheel filename %q: expected 5 or 6 fields, got %d", filename, len(parts))
	}
	return w, nil
}

// IsWheel reports whether filename names a built distribution.
func IsWheel(filename string) bool {
	return strings.HasSuffix(filename, ".whl")
}

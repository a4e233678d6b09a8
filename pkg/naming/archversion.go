package naming

import (
	"fmt"
	"strings"
)

// ArchVersion is a system package version in [epoch:]pkgver-pkgrel form.
type ArchVersion struct {
	Epoch   string `json:"epoch,omitempty" yaml:"epoch,omitempty"`
	Version string `json:"version" yaml:"version"`
	Release string `json:"release" yaml:"release"`
}

// ParseArchVersion parses a pacman version string such as "1:2.3-4".
func ParseArchVersion(s string) (ArchVersion, error) {
	var v ArchVersion
	rest := s
	if i := strings.Index(rest, ":"); i >= 0 {
		v.Epoch, rest = rest[:i], rest[i+1:]
	}
	i := strings.LastIndex(rest, "-")
	if i <= 0 || i == len(rest)-1 {
		return ArchVersion{}, fmt.Errorf("invalid package version %q", s)
	}
	v.Version, v.Release = rest[:i], rest[i+1:]
	return v, nil
}

// String formats v back into pacman's notation.
func (v ArchVersion) String() string {
	if v.Epoch == "" {
		return v.Version + "-" + v.Release
	}
	return v.Epoch + ":" + v.Version + "-" + v.Release
}

// PkgVer returns the version without the release part.
func (v ArchVersion) PkgVer() string {
	if v.Epoch == "" {
		return v.Version
	}
	return v.Epoch + ":" + v.Version
}

package pkgbuild

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// Extras supplies the PKGBUILD_EXTRAS contents of each package. A file
// named after the package in Dir takes precedence over Text.
type Extras struct {
	Text string
	Dir  string
}

// For returns the extras for pkgname.
func (e Extras) For(pkgname string) ([]byte, error) {
	if e.Dir != "" {
		data, err := os.ReadFile(filepath.Join(e.Dir, pkgname))
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return []byte(e.Text), nil
}

package source

import (
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"

	"github.com/BurntSushi/toml"
)

// Hints are build requirements inferred from a source tree.
type Hints struct {
	Swig   bool // SWIG interface files (*.i)
	Cython bool // Cython sources (*.pyx)
	// Native is set when the tree has extension sources, so the package
	// is architecture specific.
	Native bool
	// BuildRequires are the distribution names listed under
	// [build-system] requires in pyproject.toml.
	BuildRequires []string
}

var nativeSuffixes = []string{".c", ".cc", ".cpp", ".cxx", ".pyx", ".i"}

// Sniff walks tree looking for build hints. An empty tree yields no hints.
func Sniff(tree string) (Hints, error) {
	var h Hints
	if tree == "" {
		return h, nil
	}
	err := filepath.WalkDir(tree, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		ext := filepath.Ext(d.Name())
		switch ext {
		case ".i":
			h.Swig = true
		case ".pyx":
			h.Cython = true
		}
		if slices.Contains(nativeSuffixes, ext) {
			h.Native = true
		}
		return nil
	})
	if err != nil {
		return h, err
	}
	h.BuildRequires = buildRequires(tree)
	return h, nil
}

var requirementName = regexp.MustCompile(`^\s*([A-Za-z0-9][A-Za-z0-9._-]*)`)

func buildRequires(dir string) []string {
	data, err := os.ReadFile(filepath.Join(dir, "pyproject.toml"))
	if err != nil {
		return nil
	}
	var pyproject struct {
		BuildSystem struct {
			Requires []string `toml:"requires"`
		} `toml:"build-system"`
	}
	if err := toml.Unmarshal(data, &pyproject); err != nil {
		return nil
	}
	var names []string
	for _, req := range pyproject.BuildSystem.Requires {
		if m := requirementName.FindStringSubmatch(req); m != nil {
			names = append(names, m[1])
		}
	}
	return names
}

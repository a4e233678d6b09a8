package source

import (
	"net/url"
	"path"
	"strings"

	perrors "github.com/matzehuels/pypi2pkgbuild/pkg/errors"
)

// RefKind tells where a reference's files come from.
type RefKind int

const (
	RefIndex RefKind = iota
	RefGit
	RefFile
)

func (k RefKind) String() string {
	switch k {
	case RefGit:
		return "git"
	case RefFile:
		return "file"
	default:
		return "index"
	}
}

// Reference is a parsed root or dependency reference.
type Reference struct {
	Raw  string  // as given
	Kind RefKind
	// Location is the clone URL without the "git+" prefix for git
	// references and the local path for file references.
	Location string
}

// IsVCS reports whether the reference is a version control checkout.
func (r Reference) IsVCS() bool { return r.Kind == RefGit }

// Basename is the last path element of the location, without a .git
// suffix. It is empty for index references.
func (r Reference) Basename() string {
	if r.Kind == RefIndex {
		return ""
	}
	loc := strings.TrimSuffix(r.Location, "/")
	if r.Kind == RefGit {
		if u, err := url.Parse(loc); err == nil {
			loc = u.Path
		}
	}
	return strings.TrimSuffix(path.Base(loc), ".git")
}

var revisionKeys = []string{"commit=", "tag=", "branch=", "revision="}

// ParseReference classifies raw. Git references pinned to a revision,
// either with "@rev" or with a commit/tag/branch fragment, are rejected
// with UNSUPPORTED_REFERENCE.
func ParseReference(raw string) (Reference, error) {
	if err := perrors.ValidateReference(raw); err != nil {
		return Reference{}, err
	}

	switch {
	case strings.HasPrefix(raw, "git+"):
		loc := strings.TrimPrefix(raw, "git+")
		u, err := url.Parse(loc)
		if err != nil {
			return Reference{}, perrors.Wrap(perrors.ErrCodeInvalidInput, err, "malformed VCS reference %q", raw)
		}
		for _, kv := range strings.Split(u.Fragment, "&") {
			for _, key := range revisionKeys {
				if strings.HasPrefix(kv, key) {
					return Reference{}, perrors.New(perrors.ErrCodeUnsupportedReference,
						"no support for packaging specific revisions: %s", raw)
				}
			}
		}
		if strings.Contains(u.Path, "@") {
			return Reference{}, perrors.New(perrors.ErrCodeUnsupportedReference,
				"no support for packaging specific revisions: %s", raw)
		}
		u.Fragment, u.RawFragment = "", ""
		return Reference{Raw: raw, Kind: RefGit, Location: u.String()}, nil

	case strings.HasPrefix(raw, "file://"):
		u, err := url.Parse(raw)
		if err != nil || u.Path == "" {
			return Reference{}, perrors.New(perrors.ErrCodeInvalidInput, "malformed file reference %q", raw)
		}
		return Reference{Raw: raw, Kind: RefFile, Location: u.Path}, nil

	default:
		return Reference{Raw: raw, Kind: RefIndex, Location: raw}, nil
	}
}

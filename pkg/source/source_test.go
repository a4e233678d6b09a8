package source

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "github.com/matzehuels/pypi2pkgbuild/pkg/errors"
	"github.com/matzehuels/pypi2pkgbuild/pkg/integrations/pypi"
)

var py312 = mapset.NewSet("py3", "py312", "cp312")

func TestParseReference(t *testing.T) {
	tests := []struct {
		raw      string
		kind     RefKind
		location string
		basename string
	}{
		{"requests", RefIndex, "requests", ""},
		{"git+https://github.com/pallets/flask", RefGit, "https://github.com/pallets/flask", "flask"},
		{"git+https://github.com/pallets/flask.git#egg=flask", RefGit, "https://github.com/pallets/flask.git", "flask"},
		{"git+ssh://git@github.com/pallets/flask.git", RefGit, "ssh://git@github.com/pallets/flask.git", "flask"},
		{"file:///tmp/dist/foo-1.0.tar.gz", RefFile, "/tmp/dist/foo-1.0.tar.gz", "foo-1.0.tar.gz"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			ref, err := ParseReference(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, ref.Kind)
			assert.Equal(t, tt.location, ref.Location)
			assert.Equal(t, tt.basename, ref.Basename())
		})
	}
}

func TestParseReference_PinnedRevision(t *testing.T) {
	for _, raw := range []string{
		"git+https://github.com/pallets/flask@3.0.0",
		"git+https://github.com/pallets/flask.git@0123abcd#egg=flask",
		"git+https://github.com/pallets/flask#commit=0123abcd",
		"git+https://github.com/pallets/flask#egg=flask&tag=v1",
	} {
		_, err := ParseReference(raw)
		require.Error(t, err, raw)
		assert.True(t, perrors.Is(err, perrors.ErrCodeUnsupportedReference), raw)
	}
}

func TestParseReference_Invalid(t *testing.T) {
	_, err := ParseReference("https://example.com/foo.tar.gz")
	assert.True(t, perrors.Is(err, perrors.ErrCodeInvalidInput))
}

func wheel(name string) pypi.File {
	return pypi.File{PackageType: pypi.TypeWheel, Filename: name, URL: "https://files/" + name, MD5Digest: "m-" + name}
}

func sdist(name string) pypi.File {
	return pypi.File{PackageType: pypi.TypeSdist, Filename: name, URL: "https://files/" + name, MD5Digest: "m-" + name}
}

func filenames(arts []Artifact) []string {
	var out []string
	for _, a := range arts {
		out = append(out, a.Filename)
	}
	return out
}

func TestSelect_AnyWheelPreferred(t *testing.T) {
	files := []pypi.File{
		sdist("requests-2.31.0.tar.gz"),
		wheel("requests-2.31.0-py3-none-any.whl"),
	}
	arts, warnings := Select(files, "requests", "2.31.0", DefaultPkgTypes, py312)
	assert.Empty(t, warnings)
	assert.Equal(t, []string{"requests-2.31.0-py3-none-any.whl"}, filenames(arts))
	assert.Equal(t, []string{"any"}, Archs(arts))
}

func TestSelect_SdistAlone(t *testing.T) {
	files := []pypi.File{
		wheel("numpy-2.0.0-cp312-cp312-manylinux_2_17_x86_64.manylinux2014_x86_64.whl"),
		sdist("numpy-2.0.0.tar.gz"),
		sdist("numpy-2.0.0.zip"),
	}
	arts, _ := Select(files, "numpy", "2.0.0", []PkgType{Sdist, ManylinuxWheel}, py312)
	assert.Equal(t, []string{"numpy-2.0.0.tar.gz"}, filenames(arts))
}

func TestSelect_ManylinuxSet(t *testing.T) {
	files := []pypi.File{
		wheel("numpy-2.0.0-cp312-cp312-macosx_14_0_arm64.whl"),
		wheel("numpy-2.0.0-cp312-cp312-manylinux_2_17_x86_64.manylinux2014_x86_64.whl"),
		wheel("numpy-2.0.0-cp312-cp312-musllinux_1_1_x86_64.whl"),
		wheel("numpy-2.0.0-cp312-cp312-manylinux_2_17_aarch64.manylinux2014_aarch64.whl"),
		wheel("numpy-2.0.0-cp311-cp311-manylinux_2_17_i686.whl"),
		sdist("numpy-2.0.0.tar.gz"),
	}
	arts, _ := Select(files, "numpy", "2.0.0", []PkgType{ManylinuxWheel, Sdist}, py312)
	assert.Equal(t, []string{
		"numpy-2.0.0-cp312-cp312-manylinux_2_17_x86_64.manylinux2014_x86_64.whl",
		"numpy-2.0.0-cp312-cp312-manylinux_2_17_aarch64.manylinux2014_aarch64.whl",
	}, filenames(arts))
	assert.Equal(t, []string{"aarch64", "x86_64"}, Archs(arts))
	for _, a := range arts {
		assert.True(t, a.IsWheel(), "no sdist mixed with wheels")
	}
}

func TestSelect_Filtering(t *testing.T) {
	files := []pypi.File{
		wheel("foo-1.0-py2-none-any.whl"),
		wheel("bad-name.whl"),
		{PackageType: "bdist_egg", Filename: "foo-1.0-py3.12.egg"},
		{PackageType: pypi.TypeSdist, Filename: "foo-1.0.tar.gz", Yanked: true},
	}
	arts, warnings := Select(files, "foo", "1.0", DefaultPkgTypes, py312)
	assert.Empty(t, arts)
	require.Len(t, warnings, 1)
	assert.Equal(t, "bad-name.whl", warnings[0].Filename)
}

func TestSelect_MismatchWarnsButKeeps(t *testing.T) {
	files := []pypi.File{wheel("Foo_Bar-1.0+local-py3-none-any.whl")}
	arts, warnings := Select(files, "foo-bar", "1.0", DefaultPkgTypes, py312)
	assert.Len(t, arts, 1)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0].Message, "unexpected wheel")
}

func TestSelect_UnlistedClassDropped(t *testing.T) {
	files := []pypi.File{wheel("foo-1.0-py3-none-any.whl")}
	arts, _ := Select(files, "foo", "1.0", []PkgType{Sdist}, py312)
	assert.Empty(t, arts)
}

func TestParsePkgTypes(t *testing.T) {
	got, ok := ParsePkgTypes([]string{"sdist", "AnyWheel"})
	require.True(t, ok)
	assert.Equal(t, []PkgType{Sdist, AnyWheel}, got)

	_, ok = ParsePkgTypes([]string{"egg"})
	assert.False(t, ok)
}

func testIndex(t *testing.T, docs map[string]pypi.Project) *pypi.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		doc, ok := docs[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(doc)
	}))
	t.Cleanup(srv.Close)
	c := pypi.NewClient(nil, srv.URL, time.Hour)
	c.WithHTTPClient(&http.Client{Timeout: 5 * time.Second})
	return c
}

func TestResolver_Resolve(t *testing.T) {
	index := testIndex(t, map[string]pypi.Project{
		"/Requests/json": {
			Info:     pypi.Info{Name: "requests", Version: "2.31.0"},
			Releases: map[string][]pypi.File{"2.30.0": nil, "2.31.0": nil},
			URLs: []pypi.File{
				wheel("requests-2.31.0-py3-none-any.whl"),
				sdist("requests-2.31.0.tar.gz"),
			},
		},
	})
	r := NewResolver(index, Options{PythonTags: py312}, nil)
	ref, err := ParseReference("Requests")
	require.NoError(t, err)

	rel, err := r.Resolve(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, "requests", rel.Canonical)
	assert.Equal(t, "2.31.0", rel.Version)
	assert.Equal(t, "requests-2.31.0-py3-none-any.whl", rel.Primary().Filename)
}

func TestResolver_NoArtifact(t *testing.T) {
	index := testIndex(t, map[string]pypi.Project{
		"/winonly/json": {
			Info:     pypi.Info{Name: "winonly", Version: "1.0"},
			Releases: map[string][]pypi.File{"1.0": nil},
			URLs:     []pypi.File{wheel("winonly-1.0-py3-none-win_amd64.whl")},
		},
	})
	r := NewResolver(index, Options{PythonTags: py312}, nil)
	_, err := r.Resolve(context.Background(), Reference{Raw: "winonly", Location: "winonly"})
	assert.True(t, perrors.Is(err, perrors.ErrCodeNoArtifact))
}

func TestResolver_Local(t *testing.T) {
	index := testIndex(t, map[string]pypi.Project{
		"/flask/json": {Info: pypi.Info{Name: "Flask", Version: "3.0.0"}},
	})
	r := NewResolver(index, Options{PythonTags: py312}, nil)

	ref, err := ParseReference("git+https://github.com/pallets/flask")
	require.NoError(t, err)
	rel, err := r.Local(context.Background(), ref, "flask", "3.1.0.dev0")
	require.NoError(t, err)
	assert.Equal(t, "Flask", rel.Name)
	assert.Equal(t, SkipChecksum, rel.Primary().MD5)
	assert.Equal(t, pypi.TypeSdist, rel.Primary().Kind)

	ref, err = ParseReference("file:///tmp/foo-1.0-py3-none-any.whl")
	require.NoError(t, err)
	rel, err = r.Local(context.Background(), ref, "foo", "1.0")
	require.NoError(t, err)
	assert.Equal(t, "foo", rel.Name, "unknown projects keep their name")
	assert.True(t, rel.Primary().IsWheel())
	assert.Equal(t, "any", rel.Primary().Arch)

	ref, err = ParseReference("file:///tmp/foo-1.0.rpm")
	require.NoError(t, err)
	_, err = r.Local(context.Background(), ref, "foo", "1.0")
	assert.True(t, perrors.Is(err, perrors.ErrCodeInvalidInput))
}

// writeTarGz writes an sdist-like archive. Entries ending in "/" are
// directories.
func writeTarGz(t *testing.T, path string, entries ...[2]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)
	for _, e := range entries {
		name, body := e[0], e[1]
		if strings.HasSuffix(name, "/") {
			require.NoError(t, tw.WriteHeader(&tar.Header{Name: name, Typeflag: tar.TypeDir, Mode: 0o755}))
			continue
		}
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name: name, Typeflag: tar.TypeReg, Mode: 0o644, Size: int64(len(body)),
		}))
		_, err := tw.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
}

func TestFetch_LocalSdist(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "fastfoo-1.0.tar.gz")
	writeTarGz(t, archive,
		[2]string{"fastfoo-1.0/", ""},
		[2]string{"fastfoo-1.0/setup.py", "from setuptools import setup\n"},
		[2]string{"fastfoo-1.0/fastfoo/", ""},
		[2]string{"fastfoo-1.0/fastfoo/_speedup.pyx", "def f(): pass\n"},
		[2]string{"fastfoo-1.0/pyproject.toml", "[build-system]\nrequires = [\"setuptools>=61\", \"Cython >= 3\", \"wheel; python_version<'4'\"]\n"},
		[2]string{"fastfoo-1.0/LICENSE", "MIT\n"},
	)

	ref, err := ParseReference("file://" + archive)
	require.NoError(t, err)
	ws, err := NewFetcher(nil, nil).Fetch(context.Background(), ref, Artifact{Kind: pypi.TypeSdist})
	require.NoError(t, err)

	assert.Equal(t, "fastfoo-1.0", filepath.Base(ws.Tree))
	assert.FileExists(t, ws.Packed)
	assert.FileExists(t, filepath.Join(ws.Tree, "fastfoo", "_speedup.pyx"))

	h, err := Sniff(ws.Tree)
	require.NoError(t, err)
	assert.True(t, h.Cython)
	assert.True(t, h.Native)
	assert.False(t, h.Swig)
	assert.Equal(t, []string{"setuptools", "Cython", "wheel"}, h.BuildRequires)

	require.NoError(t, ws.Close())
	assert.NoDirExists(t, ws.Tree)
}

func TestFetch_Download(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("wheel-bytes"))
	}))
	defer srv.Close()

	a := Artifact{Kind: pypi.TypeWheel, Filename: "foo-1.0-py3-none-any.whl", URL: srv.URL + "/foo.whl"}
	ws, err := NewFetcher(nil, nil).Fetch(context.Background(), Reference{Raw: "foo", Location: "foo"}, a)
	require.NoError(t, err)
	defer ws.Close()

	data, err := os.ReadFile(ws.Packed)
	require.NoError(t, err)
	assert.Equal(t, "wheel-bytes", string(data))
	assert.Empty(t, ws.Tree)
}

func TestSniff_PureTree(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mod.py"), []byte("x = 1\n"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".git"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".git", "hook.c"), nil, 0o644))

	h, err := Sniff(dir)
	require.NoError(t, err)
	assert.Equal(t, Hints{}, h)

	h, err = Sniff("")
	require.NoError(t, err)
	assert.Equal(t, Hints{}, h)
}

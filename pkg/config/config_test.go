package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func load(t *testing.T, file string) Config {
	t.Helper()
	v, err := New(file)
	if err != nil {
		t.Fatalf("New() returned unexpected error: %v", err)
	}
	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}
	return cfg
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_CACHE_HOME", "/tmp/cache-home")

	cfg := load(t, "")

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"BasePath", cfg.BasePath, "."},
		{"PkgRel", cfg.PkgRel, "00"},
		{"GuessMakedepends", cfg.GuessMakedepends, []string{"cython", "swig"}},
		{"PkgTypes", cfg.PkgTypes, []string{"anywheel", "sdist", "manylinuxwheel"}},
		{"BuildDeps", cfg.BuildDeps, true},
		{"Makepkg", cfg.Makepkg, "--cleanbuild --nodeps"},
		{"Install", cfg.Install, true},
		{"PackagePrefix", cfg.PackagePrefix, "python"},
		{"FallbackRequirement", cfg.FallbackRequirement, "numpy"},
		{"Python.Prefix", cfg.Python.Prefix, "/usr"},
		{"Index.URL", cfg.Index.URL, "https://pypi.org/pypi"},
		{"Cache.TTL", cfg.Cache.TTL, 24 * time.Hour},
		{"Cache.Dir", cfg.Cache.Dir, "/tmp/cache-home/pypi2pkgbuild"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !reflect.DeepEqual(tt.got, tt.want) {
				t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
			}
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("PYPI2PKGBUILD_PKGREL", "99")
	t.Setenv("PYPI2PKGBUILD_BUILD_DEPS", "false")
	t.Setenv("PYPI2PKGBUILD_CACHE_TTL", "1h30m")
	t.Setenv("PYPI2PKGBUILD_CACHE_REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("PYPI2PKGBUILD_PYTHON_VERSION", "3.11")

	cfg := load(t, "")
	if cfg.PkgRel != "99" {
		t.Errorf("PkgRel = %q", cfg.PkgRel)
	}
	if cfg.BuildDeps {
		t.Error("BuildDeps should be disabled")
	}
	if cfg.Cache.TTL != 90*time.Minute {
		t.Errorf("Cache.TTL = %v", cfg.Cache.TTL)
	}
	if cfg.Cache.RedisURL != "redis://localhost:6379/0" {
		t.Errorf("Cache.RedisURL = %q", cfg.Cache.RedisURL)
	}
	if got := cfg.Pipeline().PythonVersion; got != "3.11" {
		t.Errorf("PythonVersion = %q", got)
	}
}

func TestLoad_DefaultFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", home)
	dir := filepath.Join(home, AppName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	data := `base_path = "/srv/pkgs"
pkgtypes = ["sdist"]
setup_requires = ["setuptools_scm"]

[cache]
disabled = true
`
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	opts := load(t, "").Pipeline()
	if opts.BasePath != "/srv/pkgs" {
		t.Errorf("BasePath = %q", opts.BasePath)
	}
	if !reflect.DeepEqual(opts.PkgTypes, []string{"sdist"}) {
		t.Errorf("PkgTypes = %v", opts.PkgTypes)
	}
	if !reflect.DeepEqual(opts.SetupRequires, []string{"setuptools_scm"}) {
		t.Errorf("SetupRequires = %v", opts.SetupRequires)
	}
}

func TestNew_MissingExplicitFile(t *testing.T) {
	if _, err := New(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Error("expected an error for a missing config file")
	}
}

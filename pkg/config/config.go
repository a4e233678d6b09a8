// Package config loads pypi2pkgbuild settings.
//
// Values come, in decreasing precedence, from command-line flags bound by
// the CLI, PYPI2PKGBUILD_* environment variables, a TOML config file and
// the defaults below. Nested keys map to environment variables with dots
// replaced by underscores: cache.redis_url is PYPI2PKGBUILD_CACHE_REDIS_URL.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/matzehuels/pypi2pkgbuild/pkg/build"
	"github.com/matzehuels/pypi2pkgbuild/pkg/deps"
	"github.com/matzehuels/pypi2pkgbuild/pkg/integrations/pypi"
	"github.com/matzehuels/pypi2pkgbuild/pkg/pipeline"
)

// AppName names the config and cache directories.
const AppName = "pypi2pkgbuild"

// EnvPrefix prefixes environment variables.
const EnvPrefix = "PYPI2PKGBUILD"

// PythonConfig selects the target interpreter.
type PythonConfig struct {
	Version string `mapstructure:"version"` // detected when empty
	Prefix  string `mapstructure:"prefix"`
}

// IndexConfig selects the package index.
type IndexConfig struct {
	URL string `mapstructure:"url"`
}

// CacheConfig controls the index response cache.
type CacheConfig struct {
	TTL      time.Duration `mapstructure:"ttl"`
	Dir      string        `mapstructure:"dir"`
	RedisURL string        `mapstructure:"redis_url"`
	Disabled bool          `mapstructure:"disabled"`
}

// Config holds all settings of a run.
type Config struct {
	BasePath            string       `mapstructure:"base_path"`
	Force               bool         `mapstructure:"force"`
	Pre                 bool         `mapstructure:"pre"`
	PkgRel              string       `mapstructure:"pkgrel"`
	GuessMakedepends    []string     `mapstructure:"guess_makedepends"`
	SetupRequires       []string     `mapstructure:"setup_requires"`
	PkgTypes            []string     `mapstructure:"pkgtypes"`
	BuildDeps           bool         `mapstructure:"build_deps"`
	PkgbuildExtras      string       `mapstructure:"pkgbuild_extras"`
	PkgbuildExtrasDir   string       `mapstructure:"pkgbuild_extras_dir"`
	Makepkg             string       `mapstructure:"makepkg"`
	Install             bool         `mapstructure:"install"`
	Pacman              string       `mapstructure:"pacman"`
	Maintainer          string       `mapstructure:"maintainer"`
	PackagePrefix       string       `mapstructure:"package_prefix"`
	FallbackRequirement string       `mapstructure:"fallback_requirement"`
	Python              PythonConfig `mapstructure:"python"`
	Index               IndexConfig  `mapstructure:"index"`
	Cache               CacheConfig  `mapstructure:"cache"`
}

// New returns a viper instance reading the environment and the config
// file. An explicit file must exist; the default file is optional.
func New(file string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
		return v, nil
	}

	dir, err := os.UserConfigDir()
	if err != nil {
		return v, nil
	}
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(filepath.Join(dir, AppName))
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

// SetDefaults registers the default of every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("base_path", ".")
	v.SetDefault("force", false)
	v.SetDefault("pre", false)
	v.SetDefault("pkgrel", deps.DefaultPkgRel)
	v.SetDefault("guess_makedepends", pipeline.DefaultGuessMakedepends)
	v.SetDefault("setup_requires", []string{})
	v.SetDefault("pkgtypes", []string{"anywheel", "sdist", "manylinuxwheel"})
	v.SetDefault("build_deps", true)
	v.SetDefault("pkgbuild_extras", "")
	v.SetDefault("pkgbuild_extras_dir", "")
	v.SetDefault("makepkg", build.DefaultMakepkgArgs)
	v.SetDefault("install", true)
	v.SetDefault("pacman", "")
	v.SetDefault("maintainer", "")
	v.SetDefault("package_prefix", deps.DefaultPrefix)
	v.SetDefault("fallback_requirement", pipeline.DefaultFallbackRequirement)
	v.SetDefault("python.version", "")
	v.SetDefault("python.prefix", pipeline.DefaultPythonPrefix)
	v.SetDefault("index.url", pypi.DefaultBaseURL)
	v.SetDefault("cache.ttl", pipeline.DefaultCacheTTL)
	v.SetDefault("cache.dir", DefaultCacheDir())
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.disabled", false)
}

// Load decodes v into a Config.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// DefaultCacheDir returns $XDG_CACHE_HOME/pypi2pkgbuild, or
// ~/.cache/pypi2pkgbuild.
func DefaultCacheDir() string {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), AppName)
	}
	return filepath.Join(home, ".cache", AppName)
}

// Pipeline converts the configuration into run options.
func (c Config) Pipeline() pipeline.Options {
	return pipeline.Options{
		BasePath:          c.BasePath,
		Force:             c.Force,
		Pre:               c.Pre,
		PkgRel:            c.PkgRel,
		Prefix:            c.PackagePrefix,
		BuildDeps:         c.BuildDeps,
		GuessMakedepends:  c.GuessMakedepends,
		SetupRequires:     c.SetupRequires,
		PkgTypes:          c.PkgTypes,
		Fallback:          c.FallbackRequirement,
		PythonVersion:     c.Python.Version,
		PythonPrefix:      c.Python.Prefix,
		IndexURL:          c.Index.URL,
		CacheTTL:          c.Cache.TTL,
		PkgbuildExtras:    c.PkgbuildExtras,
		PkgbuildExtrasDir: c.PkgbuildExtrasDir,
		Makepkg:           c.Makepkg,
		Install:           c.Install,
		Pacman:            c.Pacman,
		Maintainer:        c.Maintainer,
	}
}

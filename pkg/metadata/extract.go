package metadata

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	perrors "github.com/matzehuels/pypi2pkgbuild/pkg/errors"
	"github.com/matzehuels/pypi2pkgbuild/pkg/shell"
)

var errNoName = errors.New("pip show reported no package name")

// installScript creates a venv, installs the setup requirements given as
// positional arguments, then installs $REQ without dependencies. The name
// actually installed is found by diffing the package list. When the first
// attempt fails, $FALLBACK is installed and a marker line is printed
// before retrying once.
const installScript = `set -e
python3 -m venv "$VENV"
cd "$VENV"
. "$VENV/bin/activate"
if [ "$#" -gt 0 ]; then
    pip install --upgrade "$@" >/dev/null
fi
install_cmd() {
    pip list --format=freeze | cut -d= -f1 | sort >"$VENV/pre_install_list"
    if ! pip install --no-deps "$REQ"; then
        return 1
    fi
    pip list --format=freeze | cut -d= -f1 | sort >"$VENV/post_install_list"
    install_name="$(comm -13 "$VENV/pre_install_list" "$VENV/post_install_list" | head -n1)"
    if [ -z "$install_name" ]; then
        if [ -e "$REQ" ]; then
            install_name="$(basename "$REQ" .git)"
        else
            install_name="$(printf '%s' "$REQ" | cut -d= -f1)"
        fi
    fi
}
if ! install_cmd >"$LOG" 2>&1; then
    pip install "$FALLBACK" >/dev/null
    echo "# fallback: $FALLBACK"
    install_cmd >"$LOG" 2>&1
fi
pip show --verbose "$install_name"
`

// Extractor runs metadata extractions and memoizes their results for the
// lifetime of the process.
type Extractor struct {
	run      shell.Runner
	logger   *log.Logger
	fallback string

	mu   sync.Mutex
	memo map[string]memoEntry
}

type memoEntry struct {
	md  *Metadata
	err error
}

// NewExtractor creates an extractor. fallback is the requirement
// pre-installed when a first install attempt fails ("numpy").
func NewExtractor(run shell.Runner, logger *log.Logger, fallback string) *Extractor {
	if logger == nil {
		logger = log.Default()
	}
	return &Extractor{run: run, logger: logger, fallback: fallback, memo: map[string]memoEntry{}}
}

// Extract installs req (a "name==version" requirement or a local path)
// after setupRequires and returns the installed distribution's metadata.
// Results, including failures, are cached per (req, setupRequires) set.
// Failures carry the METADATA_EXTRACTION code.
func (e *Extractor) Extract(ctx context.Context, req string, setupRequires []string) (*Metadata, error) {
	setup := slices.Clone(setupRequires)
	slices.Sort(setup)
	setup = slices.Compact(setup)
	key := req + "\x00" + strings.Join(setup, "\x00")

	e.mu.Lock()
	if hit, ok := e.memo[key]; ok {
		e.mu.Unlock()
		return hit.md, hit.err
	}
	e.mu.Unlock()

	md, err := e.extract(ctx, req, setup)
	if err != nil && ctx.Err() != nil {
		return nil, err // do not memoize cancellations
	}

	e.mu.Lock()
	e.memo[key] = memoEntry{md: md, err: err}
	e.mu.Unlock()
	return md, err
}

func (e *Extractor) extract(ctx context.Context, req string, setup []string) (*Metadata, error) {
	dir, err := os.MkdirTemp("", "pypi2pkgbuild-venv-")
	if err != nil {
		return nil, perrors.Wrap(perrors.ErrCodeMetadata, err, "failed to obtain metadata for %s", req)
	}
	defer os.RemoveAll(dir)

	logPath := filepath.Join(dir, "install.log")
	cmd := shell.Command{
		Name: "bash",
		Args: append([]string{"-c", installScript, "pypi2pkgbuild-metadata"}, setup...),
		Env: []string{
			"VENV=" + filepath.Join(dir, "venv"),
			"REQ=" + req,
			"LOG=" + logPath,
			"FALLBACK=" + e.fallback,
		},
	}
	e.logger.Debug("extracting metadata", "req", req, "setup_requires", setup)

	res, err := e.run.Run(ctx, cmd)
	if err != nil {
		if data, rerr := os.ReadFile(logPath); rerr == nil && len(data) > 0 {
			e.logger.Error("install log", "req", req, "log", string(data))
		}
		return nil, perrors.Wrap(perrors.ErrCodeMetadata, err, "failed to obtain metadata for %s", req)
	}

	md, err := Parse(res.Stdout)
	if err != nil {
		return nil, perrors.Wrap(perrors.ErrCodeMetadata, err, "failed to obtain metadata for %s", req)
	}
	if strings.Contains(res.Stdout, fallbackMarker) {
		e.logger.Warn("metadata needed a fallback requirement", "req", req, "fallback", e.fallback)
	}
	return md, nil
}

// String is used in debug output.
func (m *Metadata) String() string {
	return fmt.Sprintf("%s %s (%d requirements)", m.Name, m.Version, len(m.Requires))
}

package integrations

import (
	"errors"
	"net/http"
	"time"

	"github.com/matzehuels/pypi2pkgbuild/pkg/buildinfo"
)

const httpTimeout = 30 * time.Second

var (
	// ErrNotFound is returned when the remote resource does not exist (404).
	ErrNotFound = errors.New("resource not found")

	// ErrNetwork is returned for transport failures and unexpected statuses.
	ErrNetwork = errors.New("network error")
)

// NewHTTPClient creates the HTTP client used for index and forge requests.
func NewHTTPClient() *http.Client {
	return &http.Client{Timeout: httpTimeout}
}

// UserAgent identifies this tool to remote services.
func UserAgent() string {
	return "pypi2pkgbuild/" + buildinfo.Version
}

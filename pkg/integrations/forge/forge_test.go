package forge

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRawBase(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"https://github.com/psf/requests", "https://raw.githubusercontent.com/psf/requests/master", true},
		{"https://www.github.com/psf/requests/", "https://raw.githubusercontent.com/psf/requests/master", true},
		{"https://bitbucket.org/ned/coveragepy", "https://bitbucket.org/ned/coveragepy/raw/master", true},
		{"https://github.com/psf", "", false},
		{"https://github.com/psf/requests/tree/main", "", false},
		{"https://gitlab.com/foo/bar", "", false},
		{"", "", false},
		{"not a url", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := RawBase(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFirstFile(t *testing.T) {
	var requested []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested = append(requested, r.URL.Path)
		if r.URL.Path == "/second/COPYING.txt" {
			w.Write([]byte("license text"))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := NewClient()
	c.rawBase = func(u string) (string, bool) {
		if u == "" {
			return "", false
		}
		return srv.URL + "/" + u, true
	}

	names := []string{"LICENSE", "COPYING.txt"}
	data, name, found := c.FirstFile(context.Background(), []string{"", "first", "second"}, names)
	assert.True(t, found)
	assert.Equal(t, "COPYING.txt", name)
	assert.Equal(t, "license text", string(data))
	assert.Equal(t, []string{"/first/LICENSE", "/first/COPYING.txt", "/second/LICENSE", "/second/COPYING.txt"}, requested)

	_, _, found = c.FirstFile(context.Background(), []string{"third"}, names)
	assert.False(t, found)
}

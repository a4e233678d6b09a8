package metadata

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	perrors "github.com/matzehuels/pypi2pkgbuild/pkg/errors"
	"github.com/matzehuels/pypi2pkgbuild/pkg/shell"
	mock_shell "github.com/matzehuels/pypi2pkgbuild/pkg/shell/mocks"
)

const requestsShow = `Name: requests
Version: 2.31.0
Summary: Python HTTP for Humans.
Home-page: https://requests.readthedocs.io
Author: Kenneth Reitz
License: Apache 2.0
Location: /tmp/venv/lib/python3.12/site-packages
Requires: certifi, charset-normalizer, idna, urllib3
Required-by:
Metadata-Version: 2.1
Installer: pip
Classifiers:
  Development Status :: 5 - Production/Stable
  License :: OSI Approved :: Apache Software License
Entry-points:
Project-URLs:
  Documentation, https://requests.readthedocs.io
  Source, https://github.com/psf/requests
`

func TestParse(t *testing.T) {
	m, err := Parse(requestsShow)
	require.NoError(t, err)

	assert.Equal(t, "requests", m.Name)
	assert.Equal(t, "2.31.0", m.Version)
	assert.Equal(t, "Python HTTP for Humans.", m.Summary)
	assert.Equal(t, "Apache 2.0", m.License)
	assert.Equal(t, []string{"certifi", "charset-normalizer", "idna", "urllib3"}, m.Requires)
	assert.Equal(t, []string{
		"Development Status :: 5 - Production/Stable",
		"License :: OSI Approved :: Apache Software License",
	}, m.Classifiers)
	assert.Equal(t, "https://github.com/psf/requests", m.ProjectURLs["Source"])
	assert.Equal(t, "https://requests.readthedocs.io", m.URL())
}

func TestParse_Fallback(t *testing.T) {
	m, err := Parse("# fallback: numpy\nName: pyfoo\nVersion: 1.0\nRequires: \n")
	require.NoError(t, err)
	assert.Equal(t, []string{"numpy"}, m.Requires)
}

func TestParse_NoName(t *testing.T) {
	_, err := Parse("WARNING: Package(s) not found: foo\n")
	assert.Error(t, err)
}

func TestURL_ProjectURLFallback(t *testing.T) {
	m := &Metadata{HomePage: "UNKNOWN", ProjectURLs: map[string]string{"Homepage": "https://example.org"}}
	assert.Equal(t, "https://example.org", m.URL())

	assert.Empty(t, (&Metadata{}).URL())
}

func TestExtract_Memoized(t *testing.T) {
	ctrl := gomock.NewController(t)
	run := mock_shell.NewMockRunner(ctrl)

	var got shell.Command
	run.EXPECT().Run(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, c shell.Command) (shell.Result, error) {
			got = c
			return shell.Result{Stdout: requestsShow}, nil
		}).Times(1)

	e := NewExtractor(run, nil, "numpy")
	m1, err := e.Extract(context.Background(), "requests==2.31.0", []string{"wheel", "setuptools", "wheel"})
	require.NoError(t, err)
	m2, err := e.Extract(context.Background(), "requests==2.31.0", []string{"setuptools", "wheel"})
	require.NoError(t, err)

	assert.Same(t, m1, m2)
	assert.Equal(t, "bash", got.Name)
	assert.Equal(t, []string{"setuptools", "wheel"}, got.Args[3:])
	assert.Contains(t, got.Env, "REQ=requests==2.31.0")
	assert.Contains(t, got.Env, "FALLBACK=numpy")
}

func TestExtract_FailureIsMemoized(t *testing.T) {
	ctrl := gomock.NewController(t)
	run := mock_shell.NewMockRunner(ctrl)
	run.EXPECT().Run(gomock.Any(), gomock.Any()).
		Return(shell.Result{ExitCode: 1}, &shell.ExitError{Command: "bash", ExitCode: 1}).
		Times(1)

	e := NewExtractor(run, nil, "numpy")
	_, err := e.Extract(context.Background(), "broken==1.0", nil)
	require.Error(t, err)
	assert.True(t, perrors.Is(err, perrors.ErrCodeMetadata))

	_, err = e.Extract(context.Background(), "broken==1.0", nil)
	assert.True(t, perrors.Is(err, perrors.ErrCodeMetadata))
}

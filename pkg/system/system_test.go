package system

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	perrors "github.com/matzehuels/pypi2pkgbuild/pkg/errors"
	"github.com/matzehuels/pypi2pkgbuild/pkg/naming"
	"github.com/matzehuels/pypi2pkgbuild/pkg/shell"
	mock_shell "github.com/matzehuels/pypi2pkgbuild/pkg/shell/mocks"
)

// reply answers commands whose rendered form contains match.
type reply struct {
	match  string
	stdout string
	exit   int
}

func scriptedRunner(t *testing.T, replies ...reply) *mock_shell.MockRunner {
	t.Helper()
	ctrl := gomock.NewController(t)
	run := mock_shell.NewMockRunner(ctrl)
	run.EXPECT().Run(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, c shell.Command) (shell.Result, error) {
			line := c.String()
			for _, r := range replies {
				if strings.Contains(line, r.match) {
					res := shell.Result{Stdout: r.stdout, ExitCode: r.exit}
					if r.exit != 0 {
						return res, &shell.ExitError{Command: line, ExitCode: r.exit}
					}
					return res, nil
				}
			}
			return shell.Result{ExitCode: 1}, &shell.ExitError{Command: line, ExitCode: 1}
		}).AnyTimes()
	return run
}

var py312 = Python{Version: "3.12", Prefix: "/usr"}

func newTestOracle(t *testing.T, replies ...reply) *Oracle {
	return NewOracle(scriptedRunner(t, replies...), nil, py312, "python")
}

func TestSitePackages(t *testing.T) {
	assert.Equal(t, "/usr/lib/python3.12/site-packages", py312.SitePackages())
	assert.Equal(t, "/opt/py/lib/python3.11/site-packages", Python{Version: "3.11", Prefix: "/opt/py/"}.SitePackages())
}

func TestFindInstalled_ByMetadataOwner(t *testing.T) {
	o := newTestOracle(t, reply{
		match:  "pacman -Qo /usr/lib/python3.12/site-packages/zope_interface-*-info",
		stdout: "/usr/lib/python3.12/site-packages/zope.interface-6.0-py3.12.egg-info/ is owned by python-zope-interface 6.0-1\n",
	})

	m, err := o.FindInstalled(context.Background(), "zope-interface", true)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "python-zope-interface", m.Name)
	assert.Equal(t, naming.ArchVersion{Version: "6.0", Release: "1"}, m.Version)
}

func TestFindInstalled_FallbackName(t *testing.T) {
	o := newTestOracle(t,
		reply{match: "pacman -Qo"},
		reply{match: "pacman -Q python-foo", stdout: "python-foo 1:1.0-2\n"},
	)

	m, err := o.FindInstalled(context.Background(), "foo", true)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "1", m.Version.Epoch)
}

func TestFindInstalled_NotInstalled(t *testing.T) {
	o := newTestOracle(t, reply{match: "pacman -Qo"})

	m, err := o.FindInstalled(context.Background(), "missing", true)
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestFindInstalled_GitPackage(t *testing.T) {
	owned := "/usr/lib/python3.12/site-packages/flask-3.1.dev0.dist-info/ is owned by python-flask-git 3.1.dev0-1\n"

	t.Run("with conflict", func(t *testing.T) {
		o := newTestOracle(t,
			reply{match: "pacman -Qo", stdout: owned},
			reply{match: "pacman -Qi python-flask-git", stdout: "Name            : python-flask-git\nConflicts With  : python-flask\n"},
		)
		m, err := o.FindInstalled(context.Background(), "flask", true)
		require.NoError(t, err)
		assert.Equal(t, "python-flask", m.Name)
	})

	t.Run("without conflict", func(t *testing.T) {
		o := newTestOracle(t,
			reply{match: "pacman -Qo", stdout: owned},
			reply{match: "pacman -Qi python-flask-git", stdout: "Conflicts With  : None\n"},
		)
		_, err := o.FindInstalled(context.Background(), "flask", true)
		require.Error(t, err)
		assert.True(t, perrors.Is(err, perrors.ErrCodeConflictingInstalled))
	})
}

func TestFindInstalled_IgnoresVendored(t *testing.T) {
	o := newTestOracle(t, reply{
		match:  "pacman -Qo",
		stdout: "/usr/lib/python3.12/site-packages/pillow-10.0.dist-info/ is owned by python--pillow 10.0-1\n",
	})

	m, err := o.FindInstalled(context.Background(), "pillow", true)
	require.NoError(t, err)
	assert.Nil(t, m)

	m, err = o.FindInstalled(context.Background(), "pillow", false)
	require.NoError(t, err)
	assert.Equal(t, "python--pillow", m.Name)
}

func TestFindRepository(t *testing.T) {
	t.Run("single standalone", func(t *testing.T) {
		o := newTestOracle(t, reply{
			match:  `site-packages/requests-`,
			stdout: "extra/python-requests 2.31.0-3\t/usr/lib/python3.12/site-packages/requests-2.31.0.dist-info/\nextra/python-requests 2.31.0-3\t/usr/lib/python3.12/site-packages/requests-2.31.0.dist-info/METADATA\n",
		})
		m, err := o.FindRepository(context.Background(), "requests")
		require.NoError(t, err)
		require.NotNil(t, m)
		assert.Equal(t, "python-requests", m.Name)
		assert.Equal(t, "2.31.0-3", m.Version.String())
	})

	t.Run("tie broken by default name", func(t *testing.T) {
		o := newTestOracle(t, reply{
			match:  `site-packages/numpy-`,
			stdout: "extra/python-numpy 1.26.0-1\t/a\nextra/python-numpy-mkl 1.26.0-1\t/b\n",
		})
		m, err := o.FindRepository(context.Background(), "numpy")
		require.NoError(t, err)
		assert.Equal(t, "python-numpy", m.Name)
	})

	t.Run("ambiguous", func(t *testing.T) {
		o := newTestOracle(t, reply{
			match:  `site-packages/foo-`,
			stdout: "extra/foo-a 1-1\t/a\nextra/foo-b 1-1\t/b\n",
		})
		_, err := o.FindRepository(context.Background(), "foo")
		require.Error(t, err)
		assert.True(t, perrors.Is(err, perrors.ErrCodeAmbiguousSystemName))
	})

	t.Run("vendored pass", func(t *testing.T) {
		o := newTestOracle(t,
			reply{match: `site-packages/olefile-`, exit: 1},
			reply{match: `site-packages/.+/olefile-`, stdout: "extra/python-pillow 10.0-1\t/usr/lib/python3.12/site-packages/PIL/olefile-0.46.dist-info\n"},
		)
		m, err := o.FindRepository(context.Background(), "olefile")
		require.NoError(t, err)
		assert.Equal(t, "python-pillow", m.Name)
	})

	t.Run("absent", func(t *testing.T) {
		o := newTestOracle(t)
		m, err := o.FindRepository(context.Background(), "nothing")
		require.NoError(t, err)
		assert.Nil(t, m)
	})
}

func TestVendoredComponents(t *testing.T) {
	o := newTestOracle(t, reply{
		match: "pkgfile -l python-matplotlib",
		stdout: strings.Join([]string{
			"extra/python-matplotlib\t/usr/lib/python3.12/site-packages/matplotlib-3.8.0.dist-info/",
			"extra/python-matplotlib\t/usr/lib/python3.12/site-packages/matplotlib-3.8.0.dist-info/METADATA",
			"extra/python-matplotlib\t/usr/lib/python3.12/site-packages/mpl_toolkits-3.8.0-py3.12.egg-info/",
			"extra/python-matplotlib\t/usr/lib/python3.12/site-packages/matplotlib/foo-1.0.dist-info/",
		}, "\n"),
	})

	got, err := o.VendoredComponents(context.Background(), "python-matplotlib")
	require.NoError(t, err)
	assert.Equal(t, []string{"matplotlib", "mpl_toolkits"}, got)

	got, err = o.VendoredComponents(context.Background(), "python-unknown")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestEnsureInstalled(t *testing.T) {
	ctrl := gomock.NewController(t)
	run := mock_shell.NewMockRunner(ctrl)
	gomock.InOrder(
		run.EXPECT().Run(gomock.Any(), shell.Command{Name: "pacman", Args: []string{"-Q", "swig"}}).
			Return(shell.Result{ExitCode: 1}, &shell.ExitError{ExitCode: 1}),
		run.EXPECT().Run(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, c shell.Command) (shell.Result, error) {
				assert.Equal(t, "sudo", c.Name)
				assert.Contains(t, c.Args, "--asdeps")
				assert.Contains(t, c.Args, "swig")
				return shell.Result{}, nil
			}),
	)

	o := NewOracle(run, nil, py312, "python")
	require.NoError(t, o.EnsureInstalled(context.Background(), "swig"))
}

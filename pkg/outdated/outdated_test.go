package outdated

import (
	"context"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/matzehuels/pypi2pkgbuild/pkg/naming"
	"github.com/matzehuels/pypi2pkgbuild/pkg/shell"
	mock_shell "github.com/matzehuels/pypi2pkgbuild/pkg/shell/mocks"
	"github.com/matzehuels/pypi2pkgbuild/pkg/system"
)

const site = "/usr/lib/python3.12/site-packages"

const pipList = `[
 {"name": "requests", "version": "2.31.0", "latest_version": "2.32.3", "latest_filetype": "wheel"},
 {"name": "urllib3", "version": "2.0.0", "latest_version": "2.2.1", "latest_filetype": "wheel"},
 {"name": "Slicerator", "version": "0.9.7", "latest_version": "0.9.8", "latest_filetype": "sdist"},
 {"name": "local-tool", "version": "0.1", "latest_version": "0.2", "latest_filetype": "wheel"},
 {"name": "numpy", "version": "1.26.0", "latest_version": "2.0.0", "latest_filetype": "wheel"}
]`

const pipShow = `Name: requests
Version: 2.31.0
Location: /usr/lib/python3.12/site-packages
---
Name: urllib3
Version: 2.0.0
Location: /usr/lib/python3.12/site-packages
---
Name: slicerator
Version: 0.9.7
Location: /usr/lib/python3.12/site-packages
---
Name: local-tool
Version: 0.1
Location: /home/me/.local/lib/python3.12/site-packages
---
Name: numpy
Version: 1.26.0
Location: /usr/lib/python3.12/site-packages
`

type fakeOwners map[string]*system.Match

func (f fakeOwners) FindInstalled(_ context.Context, canonical string, _ bool) (*system.Match, error) {
	return f[canonical], nil
}

func match(name, version string) *system.Match {
	v, _ := naming.ParseArchVersion(version)
	return &system.Match{Name: name, Version: v}
}

func newRunner(t *testing.T, list, show string) shell.Runner {
	ctrl := gomock.NewController(t)
	run := mock_shell.NewMockRunner(ctrl)
	run.EXPECT().Run(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, c shell.Command) (shell.Result, error) {
			if c.Args[0] == "list" {
				return shell.Result{Stdout: list}, nil
			}
			return shell.Result{Stdout: show}, nil
		}).AnyTimes()
	return run
}

func TestFind(t *testing.T) {
	owners := fakeOwners{
		"requests":   match("python-requests", "2.31.0-1"),
		"urllib3":    match("python-urllib3", "2.0.0-3"),
		"slicerator": match("python-slicerator", "0.9.8-00"),
		"local-tool": match("python-local-tool", "0.1-1"),
	}
	logger := log.New(io.Discard)
	logger.SetLevel(log.FatalLevel)

	groups, err := NewFinder(newRunner(t, pipList, pipShow), owners, site, logger).Find(context.Background())
	require.NoError(t, err)

	require.Len(t, groups, 2)
	assert.Equal(t, "python-requests", groups[0].Owner.Name)
	assert.Equal(t, "2.32.3", groups[0].Entries[0].Latest)
	assert.Equal(t, "python-urllib3", groups[1].Owner.Name)
	assert.Equal(t, "urllib3 2.0.0 -> 2.2.1 (wheel)", groups[1].Entries[0].String())
}

func TestFind_NothingOutdated(t *testing.T) {
	groups, err := NewFinder(newRunner(t, "[]", ""), fakeOwners{}, site, nil).Find(context.Background())
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestUpdates(t *testing.T) {
	groups := []Group{
		{Owner: *match("python-requests", "1-1"), Entries: []Entry{{Name: "requests"}}},
		{Owner: *match("python-zope", "1-1"), Entries: []Entry{{Name: "zope.interface"}, {Name: "Zope_Event"}}},
	}
	names, ignored := Updates(groups, []string{"ZOPE.event", "unrelated"})
	assert.Equal(t, []string{"requests", "zope-interface"}, names)
	assert.Equal(t, []string{"zope-event"}, ignored)
}

func TestParseLocations(t *testing.T) {
	locs := parseLocations(pipShow)
	assert.Equal(t, site, locs["slicerator"])
	assert.Equal(t, "/home/me/.local/lib/python3.12/site-packages", locs["local-tool"])
}

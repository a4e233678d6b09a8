package license

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

type fakeFetcher struct {
	data  []byte
	calls [][]string
}

func (f *fakeFetcher) FirstFile(_ context.Context, urls, _ []string) ([]byte, string, bool) {
	f.calls = append(f.calls, urls)
	if f.data == nil {
		return nil, "", false
	}
	return f.data, "LICENSE", true
}

func TestMap(t *testing.T) {
	tests := []struct {
		name        string
		classifiers []string
		free        string
		want        []string
		unknown     bool
	}{
		{"common", []string{"License :: OSI Approved :: Apache Software License"}, "", []string{"Apache"}, false},
		{"special", []string{"License :: OSI Approved :: BSD License"}, "", []string{"BSD"}, false},
		{"osi marker ignored", []string{"License :: OSI Approved", "License :: OSI Approved :: MIT License"}, "", []string{"MIT"}, false},
		{"unmapped", []string{"License :: Public Domain"}, "", []string{"custom:Public Domain"}, false},
		{"other classifiers ignored", []string{"Programming Language :: Python"}, "BSD-3-Clause", []string{"custom:BSD-3-Clause"}, false},
		{"free text UNKNOWN", nil, "UNKNOWN", []string{"custom:unknown"}, true},
		{"nothing", nil, "", []string{"custom:unknown"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, unknown := Map(tt.classifiers, tt.free)
			if !reflect.DeepEqual(got, tt.want) || unknown != tt.unknown {
				t.Errorf("Map() = %v, %v; want %v, %v", got, unknown, tt.want, tt.unknown)
			}
		})
	}
}

func TestNeedsFile(t *testing.T) {
	if NeedsFile([]string{"Apache", "GPL3"}) {
		t.Error("common licenses should not need a file")
	}
	if !NeedsFile([]string{"Apache", "MIT"}) {
		t.Error("MIT should need a file")
	}
	if !NeedsFile([]string{Unknown}) {
		t.Error("custom licenses should need a file")
	}
}

func TestResolve_CommonSkipsLookup(t *testing.T) {
	f := &fakeFetcher{data: []byte("x")}
	res := NewResolver(f, nil).Resolve(context.Background(), Input{
		Classifiers: []string{"License :: OSI Approved :: GNU General Public License v3 (GPLv3)"},
	})
	if res.File != nil || len(f.calls) != 0 {
		t.Errorf("unexpected license lookup: %v", f.calls)
	}
}

func TestResolve_Forge(t *testing.T) {
	f := &fakeFetcher{data: []byte("Copyright (c) someone\n")}
	res := NewResolver(f, nil).Resolve(context.Background(), Input{
		Classifiers: []string{"License :: OSI Approved :: MIT License"},
		DownloadURL: "https://example.org/dl",
		HomePage:    "https://github.com/owner/repo",
	})
	if string(res.File) != "Copyright (c) someone\n" {
		t.Errorf("File = %q", res.File)
	}
	want := []string{"https://example.org/dl", "https://github.com/owner/repo"}
	if len(f.calls) != 1 || !reflect.DeepEqual(f.calls[0], want) {
		t.Errorf("calls = %v, want [%v]", f.calls, want)
	}
}

func TestResolve_SourceTree(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "COPYING.txt"), []byte("tree license"), 0o644); err != nil {
		t.Fatal(err)
	}
	res := NewResolver(&fakeFetcher{}, nil).Resolve(context.Background(), Input{
		Classifiers: []string{"License :: OSI Approved :: BSD License"},
		SourceDir:   dir,
	})
	if string(res.File) != "tree license" {
		t.Errorf("File = %q", res.File)
	}
}

func TestResolve_Placeholder(t *testing.T) {
	res := NewResolver(nil, nil).Resolve(context.Background(), Input{
		Classifiers: []string{"License :: OSI Approved :: MIT License", "License :: Freeware"},
	})
	if got, want := string(res.File), "LICENSE: MIT, custom:Freeware\n"; got != want {
		t.Errorf("File = %q, want %q", got, want)
	}
}

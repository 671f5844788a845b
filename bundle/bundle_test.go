/*
Copyright © 2026 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

package bundle

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"bennypowers.dev/rocketmod/source"
	"bennypowers.dev/rocketmod/stage"
)

// fakeBundler returns a canned output and remembers how it was called.
type fakeBundler struct {
	out   *Output
	err   error
	calls int
	wd    string
	cfg   *Config
}

func (f *fakeBundler) Bundle(ctx context.Context, cfg *Config) (*Output, error) {
	f.calls++
	f.cfg = cfg
	f.wd, _ = os.Getwd()
	return f.out, f.err
}

func compiled(keys ...string) map[string][]byte {
	m := map[string][]byte{}
	for _, k := range keys {
		m[k] = []byte("/* " + k + " */")
	}
	return m
}

func resolvedDir(t *testing.T) string {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestDriverRun(t *testing.T) {
	entries := stage.EntryMap{"pkg-a/a.entry.js": "./packages/pkg-a/a.entry.js"}
	tests := []struct {
		name        string
		diagnostics []Diagnostic
		outputs     map[string][]byte
		wantErr     bool
		wantBundle  bool
	}{
		{
			name:       "clean build",
			outputs:    compiled("pkg-a/a.entry.js"),
			wantBundle: true,
		},
		{
			name: "allow-listed diagnostic is ignored",
			diagnostics: []Diagnostic{{
				Text: "Module not found: Error: Cannot resolve module 'glslify' in /s/node_modules/famous/core",
			}},
			outputs:    compiled("pkg-a/a.entry.js"),
			wantBundle: true,
		},
		{
			name:        "other diagnostic fails",
			diagnostics: []Diagnostic{{Text: "Module not found: Error: Cannot resolve module 'left-pad'"}},
			outputs:     compiled("pkg-a/a.entry.js"),
			wantErr:     true,
		},
		{
			name:        "warnings do not fail",
			diagnostics: []Diagnostic{{Text: "large bundle", Warning: true}},
			outputs:     compiled("pkg-a/a.entry.js"),
			wantBundle:  true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := resolvedDir(t)
			fake := &fakeBundler{out: &Output{Entries: tt.outputs, Diagnostics: tt.diagnostics}}
			out, err := NewDriver(fake).Run(context.Background(), source.Browser, entries, dir, []string{"pkg-a"})
			if tt.wantErr {
				var berr *BundleError
				if !errors.As(err, &berr) {
					t.Fatalf("err = %v, want *BundleError", err)
				}
				if berr.Diagnostics[0].Text != tt.diagnostics[0].Text {
					t.Errorf("representative diagnostic = %v", berr.Diagnostics[0])
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if out == nil || (fake.calls == 1) != tt.wantBundle {
				t.Fatalf("out = %v, calls = %d", out, fake.calls)
			}
			if fake.wd != dir {
				t.Errorf("bundler ran in %q, want %q", fake.wd, dir)
			}
			if fake.cfg.OutDir != filepath.Join(dir, "built") {
				t.Errorf("OutDir = %q", fake.cfg.OutDir)
			}
		})
	}
}

func TestDriverNoEntries(t *testing.T) {
	fake := &fakeBundler{}
	out, err := NewDriver(fake).Run(context.Background(), source.Server, stage.EntryMap{}, t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if fake.calls != 0 {
		t.Error("bundler ran without entries")
	}
	if out.IsIncluded("pkg-a", "x.js") {
		t.Error("empty output reports inclusions")
	}
}

func TestDriverMissingOutput(t *testing.T) {
	entries := stage.EntryMap{
		"pkg-a/a.entry.js": "./packages/pkg-a/a.entry.js",
		"pkg-a/b.entry.js": "./packages/pkg-a/b.entry.js",
	}
	fake := &fakeBundler{out: &Output{Entries: compiled("pkg-a/a.entry.js")}}
	_, err := NewDriver(fake).Run(context.Background(), source.Browser, entries, t.TempDir(), nil)
	if !errors.Is(err, ErrNoOutput) {
		t.Fatalf("err = %v, want ErrNoOutput", err)
	}
}

func TestDriverOverride(t *testing.T) {
	entries := stage.EntryMap{"pkg-a/a.entry.js": "./packages/pkg-a/a.entry.js"}
	fake := &fakeBundler{out: &Output{
		Entries:     compiled("pkg-a/a.entry.js"),
		Diagnostics: []Diagnostic{{Text: "deprecated loader syntax"}},
	}}
	d := NewDriver(fake).WithOverride(Config{Allow: []string{"^deprecated"}, Define: map[string]string{"X": "1"}})
	if _, err := d.Run(context.Background(), source.Browser, entries, t.TempDir(), nil); err != nil {
		t.Fatal(err)
	}
	if fake.cfg.Define["X"] != "1" {
		t.Errorf("override not applied: %+v", fake.cfg)
	}
}

func TestDriverBundlerFailure(t *testing.T) {
	boom := errors.New("boom")
	entries := stage.EntryMap{"pkg-a/a.entry.js": "./packages/pkg-a/a.entry.js"}
	_, err := NewDriver(&fakeBundler{err: boom}).Run(context.Background(), source.Browser, entries, t.TempDir(), nil)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
}

func TestIsIncluded(t *testing.T) {
	out := &Output{Included: map[string]bool{"packages/pkg-a/lib/h.js": true}}
	if !out.IsIncluded("pkg-a", "lib/h.js") {
		t.Error("included module not reported")
	}
	if out.IsIncluded("pkg-b", "lib/h.js") {
		t.Error("inclusion leaked across packages")
	}
}

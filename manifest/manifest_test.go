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

package manifest

import (
	"errors"
	"maps"
	"testing"

	"bennypowers.dev/rocketmod/packagejson"
	"bennypowers.dev/rocketmod/source"
	"bennypowers.dev/rocketmod/stagename"
	"bennypowers.dev/rocketmod/testutil"
)

func manifestFile(path, content string) source.File {
	return source.File{Path: path, Content: []byte(content), Role: source.RoleManifest}
}

func TestMergeOrder(t *testing.T) {
	tests := []struct {
		name  string
		files []source.File
		want  map[string]string
	}{
		{
			name: "no manifests",
			want: map[string]string{},
		},
		{
			name: "disjoint keys",
			files: []source.File{
				manifestFile("npm.json", `{"x":"1.0"}`),
				manifestFile("lib/npm.json", `{"y":"2.0"}`),
			},
			want: map[string]string{"x": "1.0", "y": "2.0"},
		},
		{
			name: "disjoint keys reversed",
			files: []source.File{
				manifestFile("lib/npm.json", `{"y":"2.0"}`),
				manifestFile("npm.json", `{"x":"1.0"}`),
			},
			want: map[string]string{"x": "1.0", "y": "2.0"},
		},
		{
			name: "later manifest wins",
			files: []source.File{
				manifestFile("npm.json", `{"x":"1.0"}`),
				manifestFile("lib/npm.json", `{"x":"2.0"}`),
			},
			want: map[string]string{"x": "2.0"},
		},
		{
			name: "non-manifest files are ignored",
			files: []source.File{
				{Path: "a.entry.js", Content: []byte("not json"), Role: source.RoleEntry},
				manifestFile("npm.json", `{"x":"1.0"}`),
			},
			want: map[string]string{"x": "1.0"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMerger(packagejson.NewMemoryCache())
			got, err := m.Merge(&source.Package{Name: "vendor:pkg", Files: tt.files})
			if err != nil {
				t.Fatal(err)
			}
			if !maps.Equal(got, tt.want) {
				t.Errorf("Merge() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMergeProviderDependenciesComeFirst(t *testing.T) {
	pkg := &source.Package{
		Name:         "vendor:pkg",
		Dependencies: map[string]string{"x": "0.1", "z": "3.0"},
		Files:        []source.File{manifestFile("npm.json", `{"x":"1.0"}`)},
	}
	got, err := NewMerger(nil).Merge(pkg)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]string{"x": "1.0", "z": "3.0"}
	if !maps.Equal(got, want) {
		t.Errorf("Merge() = %v, want %v", got, want)
	}
	if pkg.Dependencies["x"] != "0.1" {
		t.Error("Merge mutated the provider's dependency set")
	}
}

func TestMergeAllAbortsOnMalformedManifest(t *testing.T) {
	pkgs := []*source.Package{
		{Name: "vendor:good", Files: []source.File{manifestFile("npm.json", `{"x":"1.0"}`)}},
		{Name: "vendor:bad", Files: []source.File{
			manifestFile("npm.json", `{"y":"1.0"}`),
			manifestFile("lib/npm.json", `{"y":`),
		}},
	}
	res, err := NewMerger(nil).MergeAll(pkgs)
	if res != nil {
		t.Error("a partial result was returned")
	}
	var merr *MetadataError
	if !errors.As(err, &merr) {
		t.Fatalf("err = %v, want *MetadataError", err)
	}
	if merr.Package != "vendor:bad" || merr.File != "lib/npm.json" {
		t.Errorf("error identifies %s/%s", merr.Package, merr.File)
	}
}

func TestMergeAllRootDescriptor(t *testing.T) {
	pkgs := []*source.Package{
		{Name: "pkgA", Files: []source.File{{Path: "a.entry.js", Role: source.RoleEntry}}},
		{Name: "pkgB", Files: []source.File{manifestFile("npm.json", `{"left-pad":"1.0.0"}`)}},
		{Name: ""},
	}
	res, err := NewMerger(nil).MergeAll(pkgs)
	if err != nil {
		t.Fatal(err)
	}
	a, b := stagename.NameFor("pkgA"), stagename.NameFor("pkgB")
	wantRoot := map[string]string{
		a:              "file:./packages/" + a,
		b:              "file:./packages/" + b,
		stagename.Root: "file:./packages/" + stagename.Root,
	}
	if !maps.Equal(res.Root.Dependencies, wantRoot) {
		t.Errorf("root dependencies = %v, want %v", res.Root.Dependencies, wantRoot)
	}
	if res.Root.Version != "0.0.0" || res.Root.Name != RootName {
		t.Errorf("root descriptor = %+v", res.Root)
	}
	if got := res.Packages[b].Dependencies["left-pad"]; got != "1.0.0" {
		t.Errorf("pkgB left-pad = %q", got)
	}
	if len(res.Packages[a].Dependencies) != 0 {
		t.Errorf("pkgA dependencies = %v, want empty", res.Packages[a].Dependencies)
	}
}

func TestMergeAllRejectsDuplicates(t *testing.T) {
	_, err := NewMerger(nil).MergeAll([]*source.Package{{Name: "a:b"}, {Name: "a:b"}})
	if !errors.Is(err, ErrDuplicatePackage) {
		t.Fatalf("err = %v, want ErrDuplicatePackage", err)
	}
}

func TestMergeAllDescriptorsGolden(t *testing.T) {
	pkgs := []*source.Package{
		{Name: "vendor:a", Files: []source.File{{Path: "a.entry.js", Role: source.RoleEntry}}},
		{Name: "vendor:b", Files: []source.File{
			manifestFile("npm.json", `{"left-pad": "1.0.0"}`),
			// comments and trailing commas are tolerated
			manifestFile("lib/npm.json", "{\n  // utilities\n  \"lodash\": \"^4.17.0\",\n}"),
		}},
		{Name: ""},
	}
	res, err := NewMerger(nil).MergeAll(pkgs)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		golden     string
		descriptor *packagejson.Descriptor
	}{
		{"root.golden.json", res.Root},
		{"vendor_b.golden.json", res.Packages[stagename.NameFor("vendor:b")]},
	}
	for _, tt := range tests {
		t.Run(tt.golden, func(t *testing.T) {
			if tt.descriptor == nil {
				t.Fatal("descriptor missing")
			}
			got, err := tt.descriptor.Marshal()
			if err != nil {
				t.Fatal(err)
			}
			testutil.UpdateGoldenFile(t, tt.golden, got)
			want := testutil.LoadGoldenFile(t, tt.golden)
			if want != nil && string(got) != string(want) {
				t.Errorf("descriptor mismatch\ngot:\n%s\nwant:\n%s", got, want)
			}
		})
	}
}

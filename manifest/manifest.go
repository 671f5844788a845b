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

// Package manifest merges each logical package's dependency manifests into
// the package.json descriptors that are staged for installation.
package manifest

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"bennypowers.dev/rocketmod/fingerprint"
	"bennypowers.dev/rocketmod/packagejson"
	"bennypowers.dev/rocketmod/source"
	"bennypowers.dev/rocketmod/stagename"
)

// RootName is the name of the synthesized root descriptor.
const RootName = "rocketmod-staging"

// ErrDuplicatePackage is returned when two packages share an identity.
var ErrDuplicatePackage = errors.New("duplicate package identity")

// MetadataError reports a dependency manifest that could not be parsed.
type MetadataError struct {
	Package string // identity, empty for the root application
	File    string // path relative to the package
	Err     error
}

func (e *MetadataError) Error() string {
	pkg := e.Package
	if pkg == "" {
		pkg = "application"
	}
	return fmt.Sprintf("%s: malformed dependency manifest %s: %v", pkg, e.File, e.Err)
}

func (e *MetadataError) Unwrap() error { return e.Err }

// Result holds the descriptors for one build pass.
type Result struct {
	// Packages maps staging names to per-package descriptors.
	Packages map[string]*packagejson.Descriptor
	Root     *packagejson.Descriptor
}

// Merger merges dependency manifests.
type Merger struct {
	cache packagejson.Cache
}

// NewMerger returns a Merger. A nil cache disables caching.
func NewMerger(cache packagejson.Cache) *Merger {
	return &Merger{cache: cache}
}

// Merge unions pkg's dependencies: provider-declared entries first, then
// every dependency manifest in discovery order. On a key collision the later
// entry wins. A package without manifests yields an empty mapping.
func (m *Merger) Merge(pkg *source.Package) (map[string]string, error) {
	deps := make(map[string]string, len(pkg.Dependencies))
	maps.Copy(deps, pkg.Dependencies)
	for _, file := range pkg.FilesWithRole(source.RoleManifest) {
		parsed, err := m.parse(file)
		if err != nil {
			return nil, &MetadataError{Package: pkg.Name, File: file.Path, Err: err}
		}
		maps.Copy(deps, parsed)
	}
	return deps, nil
}

func (m *Merger) parse(file source.File) (map[string]string, error) {
	load := func() (map[string]string, error) {
		return packagejson.ParseDependencies(file.Content)
	}
	if m.cache == nil {
		return load()
	}
	fp := file.Fingerprint
	if fp == "" {
		fp = fingerprint.Of(file.Content)
	}
	return m.cache.GetOrLoad(fp, load)
}

// Descriptor returns the per-package descriptor for pkg.
func (m *Merger) Descriptor(pkg *source.Package) (*packagejson.Descriptor, error) {
	deps, err := m.Merge(pkg)
	if err != nil {
		return nil, err
	}
	d := packagejson.New(stagename.NameFor(pkg.Name))
	d.Dependencies = deps
	return d, nil
}

// MergeAll builds every package's descriptor and the root descriptor. The
// first malformed manifest aborts the merge and no result is returned.
func (m *Merger) MergeAll(pkgs []*source.Package) (*Result, error) {
	res := &Result{Packages: make(map[string]*packagejson.Descriptor, len(pkgs))}
	for _, pkg := range pkgs {
		d, err := m.Descriptor(pkg)
		if err != nil {
			return nil, err
		}
		if _, dup := res.Packages[d.Name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicatePackage, pkg.Name)
		}
		res.Packages[d.Name] = d
	}
	res.Root = Root(slices.Collect(maps.Keys(res.Packages)))
	return res, nil
}

// Root returns the root descriptor depending on every staging name as a
// local path under packages/.
func Root(stagingNames []string) *packagejson.Descriptor {
	d := packagejson.New(RootName)
	for _, name := range stagingNames {
		d.Dependencies[name] = "file:./packages/" + name
	}
	return d
}

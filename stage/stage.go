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

// Package stage writes the source files of every logical package into a
// per-platform staging tree, rewriting only files whose content changed.
package stage

import (
	"context"
	"fmt"
	"maps"
	"path"
	"path/filepath"
	"slices"
	"sort"

	"bennypowers.dev/rocketmod/fingerprint"
	"bennypowers.dev/rocketmod/fs"
	"bennypowers.dev/rocketmod/internal/logging"
	"bennypowers.dev/rocketmod/manifest"
	"bennypowers.dev/rocketmod/packagejson"
	"bennypowers.dev/rocketmod/source"
	"bennypowers.dev/rocketmod/stagename"
)

// DescriptorFile is the file name of every staged descriptor.
const DescriptorFile = "package.json"

// EntryMap maps "<stagingName>/<relPath>" to the entry's path relative to
// the platform staging directory.
type EntryMap map[string]string

// Keys returns the entry names in sorted order.
func (m EntryMap) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Result describes one Stage call.
type Result struct {
	Entries EntryMap
	// Written lists the staged paths that were (re)written, relative to the
	// platform staging directory.
	Written []string
	Skipped int
}

// Stager stages packages below a staging root.
type Stager struct {
	fs         fs.FileSystem
	root       string
	store      fingerprint.Store
	classifier source.Classifier
	logger     logging.Logger
}

// New returns a Stager writing below root.
func New(fsys fs.FileSystem, root string, store fingerprint.Store, classifier source.Classifier) *Stager {
	return &Stager{fs: fsys, root: root, store: store, classifier: classifier}
}

// WithLogger returns a copy of s that logs to logger.
func (s *Stager) WithLogger(logger logging.Logger) *Stager {
	c := *s
	c.logger = logger
	return &c
}

// Root returns the staging root.
func (s *Stager) Root() string { return s.root }

// PlatformDir returns the staging directory of platform p. The root
// descriptor, node_modules and the bundler output live there.
func (s *Stager) PlatformDir(p source.Platform) string {
	return filepath.Join(s.root, string(p))
}

// PackageDir returns the staged subtree of the package named stagingName.
func (s *Stager) PackageDir(p source.Platform, stagingName string) string {
	return filepath.Join(s.PlatformDir(p), "packages", stagingName)
}

// EntryPath returns the value the entry map holds for rel in stagingName.
func EntryPath(stagingName, rel string) string {
	return "./" + path.Join("packages", stagingName, rel)
}

// EntryKey returns the entry map key for rel in stagingName.
func EntryKey(stagingName, rel string) string {
	return stagingName + "/" + rel
}

// Stage writes every entry and ordinary module of pkgs that applies to p and
// returns the entry map. Files the fingerprint store reports unmodified are
// left untouched.
func (s *Stager) Stage(ctx context.Context, p source.Platform, pkgs []*source.Package) (*Result, error) {
	res := &Result{Entries: EntryMap{}}
	for _, pkg := range pkgs {
		sn := stagename.NameFor(pkg.Name)
		for _, file := range pkg.Files {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			switch file.Role {
			case source.RoleEntry, source.RoleModule:
			default:
				continue
			}
			if !s.classifier.AppliesTo(file.Path, p) {
				continue
			}
			fp := file.Fingerprint
			if fp == "" {
				fp = fingerprint.Of(file.Content)
			}
			written, err := s.write(p, sn, file.Path, file.Content, fp)
			if err != nil {
				return nil, err
			}
			if written {
				res.Written = append(res.Written, path.Join("packages", sn, file.Path))
			} else {
				res.Skipped++
			}
			if file.Role == source.RoleEntry {
				res.Entries[EntryKey(sn, file.Path)] = EntryPath(sn, file.Path)
			}
		}
	}
	if s.logger != nil {
		s.logger.Debug("%s: staged %d files, %d unchanged, %d entries", p, len(res.Written), res.Skipped, len(res.Entries))
	}
	return res, nil
}

// WriteDescriptors writes each package's descriptor into its staged subtree,
// only when its content changed.
func (s *Stager) WriteDescriptors(ctx context.Context, p source.Platform, merged *manifest.Result) (*Result, error) {
	res := &Result{}
	names := make([]string, 0, len(merged.Packages))
	for sn := range merged.Packages {
		names = append(names, sn)
	}
	sort.Strings(names)
	for _, sn := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := merged.Packages[sn].Marshal()
		if err != nil {
			return nil, fmt.Errorf("encoding descriptor for %s: %w", sn, err)
		}
		written, err := s.write(p, sn, DescriptorFile, data, fingerprint.Of(data))
		if err != nil {
			return nil, err
		}
		if written {
			res.Written = append(res.Written, path.Join("packages", sn, DescriptorFile))
		} else {
			res.Skipped++
		}
	}
	return res, nil
}

func (s *Stager) write(p source.Platform, sn, rel string, data []byte, fp string) (bool, error) {
	key := fingerprint.Key{Platform: p, StagingName: sn, Path: rel}
	if !s.store.IsModified(key, fp) {
		return false, nil
	}
	dest := filepath.Join(s.PackageDir(p, sn), filepath.FromSlash(rel))
	if err := s.fs.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return false, fmt.Errorf("creating %s: %w", filepath.Dir(dest), err)
	}
	if err := s.fs.WriteFile(dest, data, 0644); err != nil {
		return false, fmt.Errorf("staging %s: %w", dest, err)
	}
	s.store.Record(key, fp)
	return true, nil
}

// Staged is one package found in a platform's staging tree.
type Staged struct {
	// Identity is empty for the root application.
	Identity     string            `json:"identity" yaml:"identity"`
	StagingName  string            `json:"stagingName" yaml:"stagingName"`
	Dependencies map[string]string `json:"dependencies" yaml:"dependencies"`
}

// List reads the staging tree of p back from disk: every package the root
// descriptor links, with the dependencies of its own descriptor.
func (s *Stager) List(p source.Platform) ([]Staged, error) {
	rootPath := filepath.Join(s.PlatformDir(p), DescriptorFile)
	root, err := packagejson.ParseFile(s.fs, rootPath)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", rootPath, err)
	}
	names := slices.Sorted(maps.Keys(root.Dependencies))
	out := make([]Staged, 0, len(names))
	for _, sn := range names {
		identity, ok := stagename.IdentityFor(sn)
		if !ok {
			return nil, fmt.Errorf("%s: %q is not a staging name", rootPath, sn)
		}
		descPath := filepath.Join(s.PackageDir(p, sn), DescriptorFile)
		d, err := packagejson.ParseFile(s.fs, descPath)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", descPath, err)
		}
		out = append(out, Staged{Identity: identity, StagingName: sn, Dependencies: d.Dependencies})
	}
	return out, nil
}

// Pruner is implemented by stores that can drop records.
type Pruner interface {
	Prune(keep func(fingerprint.Key) bool) int
}

// PruneMissing drops fingerprint records for platform p whose staged file no
// longer exists, so a staging tree cleared behind the store's back is fully
// rewritten. Stores that cannot prune are left alone.
func (s *Stager) PruneMissing(p source.Platform) int {
	pruner, ok := s.store.(Pruner)
	if !ok {
		return 0
	}
	dropped := pruner.Prune(func(k fingerprint.Key) bool {
		if k.Platform != p {
			return true
		}
		return s.fs.Exists(filepath.Join(s.PackageDir(p, k.StagingName), filepath.FromSlash(k.Path)))
	})
	if dropped > 0 && s.logger != nil {
		s.logger.Debug("%s: forgot %d fingerprints of missing staged files", p, dropped)
	}
	return dropped
}

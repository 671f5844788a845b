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

package splice

import (
	"context"
	"errors"
	"fmt"
	iofs "io/fs"
	"path/filepath"
	"regexp"

	"bennypowers.dev/rocketmod/bundle"
	"bennypowers.dev/rocketmod/fs"
	"bennypowers.dev/rocketmod/internal/logging"
	"bennypowers.dev/rocketmod/jsmod"
	"bennypowers.dev/rocketmod/source"
	"bennypowers.dev/rocketmod/stage"
	"bennypowers.dev/rocketmod/stagename"
)

// DefaultNamespace is the server-side global that stands in for window.
const DefaultNamespace = "RocketModule"

var windowRef = regexp.MustCompile(`\bwindow\b`)

// SpliceError reports a failure to splice one artifact.
type SpliceError struct {
	Artifact string
	Section  string
	Err      error
}

func (e *SpliceError) Error() string {
	if e.Section != "" {
		return fmt.Sprintf("splicing %s into %s: %v", e.Section, e.Artifact, e.Err)
	}
	return fmt.Sprintf("splicing %s: %v", e.Artifact, e.Err)
}

func (e *SpliceError) Unwrap() error { return e.Err }

// ArtifactReport describes one rewritten artifact.
type ArtifactReport struct {
	Package  string `json:"package" yaml:"package"`
	Artifact string `json:"artifact" yaml:"artifact"`
	Sections int    `json:"sections" yaml:"sections"`
	Bytes    int    `json:"bytes" yaml:"bytes"`
}

// Splicer writes one platform's bundler output into the host's artifacts.
type Splicer struct {
	fs         fs.FileSystem
	classifier source.Classifier
	namespace  string
	logger     logging.Logger
}

// New returns a Splicer.
func New(fsys fs.FileSystem, classifier source.Classifier) *Splicer {
	return &Splicer{fs: fsys, classifier: classifier, namespace: DefaultNamespace}
}

// WithNamespace returns a copy of s using ns as the server-side global.
func (s *Splicer) WithNamespace(ns string) *Splicer {
	c := *s
	c.namespace = ns
	return &c
}

// WithLogger returns a copy of s that logs to logger.
func (s *Splicer) WithLogger(logger logging.Logger) *Splicer {
	c := *s
	c.logger = logger
	return &c
}

// extendFunc deep-merges plain objects of source into target. Arrays and
// functions are assigned, not merged.
const extendFunc = `function rocketModuleExtend(target, source) {
  target = target || {};
  for (var prop in source) {
    var value = source[prop];
    if (value !== null && typeof value === 'object' && !Array.isArray(value)) {
      target[prop] = rocketModuleExtend(target[prop], value);
    } else {
      target[prop] = value;
    }
  }
  return target;
}
`

// Prelude returns the code prepended to server entries. It defines the
// merge function itself and copies the core package's shared namespace into
// the entry's scope.
func (s *Splicer) Prelude() string {
	return fmt.Sprintf("%srocketModuleExtend(this, Package['%s'].%s);\n", extendFunc, s.classifier.CorePackage, s.namespace)
}

// SharedBody returns the shared-chunk section body for p.
func (s *Splicer) SharedBody(p source.Platform, shared []byte) []byte {
	if !p.IsServer() {
		return shared
	}
	out := []byte(s.namespace + " = {};\n")
	return append(out, windowRef.ReplaceAll(shared, []byte(s.namespace))...)
}

// Splice rewrites the artifact of every package in pkgs that was built for
// p. Packages without an artifact on disk are skipped.
func (s *Splicer) Splice(ctx context.Context, p source.Platform, pkgs []*source.Package, out *bundle.Output) ([]ArtifactReport, error) {
	var reports []ArtifactReport
	for _, pkg := range pkgs {
		if err := ctx.Err(); err != nil {
			return reports, err
		}
		loc, ok := pkg.Artifacts[p]
		if !ok || loc.Source == "" {
			continue
		}
		report, err := s.spliceArtifact(p, pkg, loc, out)
		if err != nil {
			return reports, err
		}
		if report != nil {
			reports = append(reports, *report)
		}
	}
	return reports, nil
}

// Bodies computes the replacement body of every section of a that pkg owns
// on platform p.
func (s *Splicer) Bodies(p source.Platform, pkg *source.Package, a *Artifact, out *bundle.Output) (map[string][]byte, error) {
	sn := stagename.NameFor(pkg.Name)
	bodies := make(map[string][]byte)

	if pkg.Name == s.classifier.CorePackage {
		name := source.SectionName(pkg, s.classifier.SharedChunk)
		if _, ok := a.Section(name); !ok {
			return nil, &SpliceError{Section: name, Err: ErrSectionNotFound}
		}
		bodies[name] = s.SharedBody(p, out.Shared)
	}

	for _, file := range pkg.Files {
		name := source.SectionName(pkg, file.Path)
		applies := s.classifier.AppliesTo(file.Path, p)
		switch file.Role {
		case source.RoleEntry:
			if !applies {
				continue
			}
			if _, ok := a.Section(name); !ok {
				return nil, &SpliceError{Section: name, Err: ErrSectionNotFound}
			}
			compiled, ok := out.Entries[stage.EntryKey(sn, file.Path)]
			if !ok {
				return nil, &SpliceError{Section: name, Err: bundle.ErrNoOutput}
			}
			body := compiled
			if p.IsServer() {
				body = append([]byte(s.Prelude()), compiled...)
			}
			bodies[name] = body
		case source.RoleModule:
			if _, ok := a.Section(name); !ok {
				continue
			}
			switch {
			case out.IsIncluded(sn, file.Path):
				bodies[name] = []byte{}
			case applies && !s.isImportChain(file):
				bodies[name] = file.Content
			default:
				bodies[name] = []byte{}
			}
		}
	}
	return bodies, nil
}

func (s *Splicer) isImportChain(file source.File) bool {
	if s.classifier.IsImportChain(file.Path) {
		return true
	}
	chain, err := jsmod.IsImportChain(file.Path, file.Content)
	return err == nil && chain
}

func (s *Splicer) spliceArtifact(p source.Platform, pkg *source.Package, loc source.ArtifactLocation, out *bundle.Output) (*ArtifactReport, error) {
	data, err := s.fs.ReadFile(loc.Source)
	if errors.Is(err, iofs.ErrNotExist) {
		if s.logger != nil {
			s.logger.Debug("%s: no artifact for %s at %s", p, pkg.Name, loc.Source)
		}
		return nil, nil
	}
	if err != nil {
		return nil, &SpliceError{Artifact: loc.Source, Err: err}
	}
	a, err := Parse(data)
	if err != nil {
		return nil, &SpliceError{Artifact: loc.Source, Err: err}
	}
	bodies, err := s.Bodies(p, pkg, a, out)
	if err != nil {
		var se *SpliceError
		if errors.As(err, &se) {
			se.Artifact = loc.Source
		}
		return nil, err
	}
	spliced, err := a.Replace(bodies)
	if err != nil {
		return nil, &SpliceError{Artifact: loc.Source, Err: err}
	}

	var sidecar []byte
	if loc.Sidecar != "" {
		sidecar, err = s.updatedSidecar(loc, spliced)
		if err != nil {
			return nil, &SpliceError{Artifact: loc.Source, Err: err}
		}
	}

	if err := s.write(loc.Source, spliced.Bytes()); err != nil {
		return nil, &SpliceError{Artifact: loc.Source, Err: err}
	}
	if sidecar != nil {
		if err := s.write(loc.Sidecar, sidecar); err != nil {
			return nil, &SpliceError{Artifact: loc.Sidecar, Err: err}
		}
	}
	if s.logger != nil {
		s.logger.Debug("%s: spliced %d sections into %s", p, len(bodies), loc.Source)
	}
	return &ArtifactReport{
		Package:  pkg.Name,
		Artifact: loc.Source,
		Sections: len(bodies),
		Bytes:    len(spliced.Bytes()),
	}, nil
}

func (s *Splicer) updatedSidecar(loc source.ArtifactLocation, a *Artifact) ([]byte, error) {
	data, err := s.fs.ReadFile(loc.Sidecar)
	if errors.Is(err, iofs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	sc, err := ParseSidecar(data)
	if err != nil {
		return nil, err
	}
	if err := sc.Update(loc.Resource, a); err != nil {
		return nil, err
	}
	return sc.Marshal()
}

// write replaces name atomically, lifting read-only modes on the file and
// its directory for the duration of the write.
func (s *Splicer) write(name string, data []byte) error {
	info, err := s.fs.Stat(name)
	if err != nil {
		return err
	}
	mode := info.Mode().Perm()
	dir := filepath.Dir(name)
	if restore, err := s.makeWritable(dir); err != nil {
		return err
	} else if restore != nil {
		defer restore()
	}
	if err := fs.WriteFileAtomic(s.fs, name, data, mode|0200); err != nil {
		return err
	}
	if mode&0200 == 0 {
		return s.fs.Chmod(name, mode)
	}
	return nil
}

func (s *Splicer) makeWritable(name string) (func(), error) {
	info, err := s.fs.Stat(name)
	if err != nil {
		return nil, err
	}
	mode := info.Mode().Perm()
	if mode&0200 != 0 {
		return nil, nil
	}
	if err := s.fs.Chmod(name, mode|0200); err != nil {
		return nil, err
	}
	return func() { _ = s.fs.Chmod(name, mode) }, nil
}

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

// Package packagejson reads dependency manifests and writes the package.json
// descriptors the installer consumes.
package packagejson

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/tidwall/jsonc"

	"bennypowers.dev/rocketmod/fs"
)

// StagedVersion is the version every synthesized descriptor carries.
const StagedVersion = "0.0.0"

// ErrNotObject is returned when a manifest's top level is not a JSON object.
var ErrNotObject = errors.New("manifest is not an object")

// Descriptor is a synthesized package.json.
type Descriptor struct {
	Name         string            `json:"name"`
	Version      string            `json:"version"`
	Dependencies map[string]string `json:"dependencies"`
}

// New returns a descriptor for name with an empty dependency set.
func New(name string) *Descriptor {
	return &Descriptor{Name: name, Version: StagedVersion, Dependencies: map[string]string{}}
}

// Marshal renders d with two-space indentation and a trailing newline.
// Dependency keys are sorted, so equal descriptors render identically.
func (d *Descriptor) Marshal() ([]byte, error) {
	deps := d.Dependencies
	if deps == nil {
		deps = map[string]string{}
	}
	out := *d
	out.Dependencies = deps
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// Parse parses package.json data.
func Parse(data []byte) (*Descriptor, error) {
	var d Descriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// ParseFile parses a package.json file.
func ParseFile(fs fs.FileSystem, path string) (*Descriptor, error) {
	data, err := fs.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// ParseDependencies parses a dependency manifest: a flat object mapping
// dependency names to version constraints. Comments and trailing commas
// are tolerated.
func ParseDependencies(data []byte) (map[string]string, error) {
	clean := bytes.TrimSpace(jsonc.ToJSON(data))
	if len(clean) == 0 {
		return nil, fmt.Errorf("empty manifest: %w", ErrNotObject)
	}
	if clean[0] != '{' {
		return nil, ErrNotObject
	}
	deps := map[string]string{}
	dec := json.NewDecoder(bytes.NewReader(clean))
	if err := dec.Decode(&deps); err != nil {
		return nil, err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected content after manifest object")
	}
	return deps, nil
}

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

// Package source models the logical packages, source files and platforms
// that a build pass operates on.
package source

import (
	"strings"
)

// Platform names one build target. Each platform gets its own staging tree,
// bundler run and artifact.
type Platform string

const (
	Server  Platform = "os"
	Browser Platform = "web.browser"
	Cordova Platform = "web.cordova"
)

// DefaultPlatforms are built when a project names none.
var DefaultPlatforms = []Platform{Server, Browser}

// IsServer reports whether p is a server runtime ("os" or an "os.*" variant).
func (p Platform) IsServer() bool {
	return p == Server || strings.HasPrefix(string(p), string(Server)+".")
}

func (p Platform) String() string { return string(p) }

// Role classifies a file by its name and location.
type Role int

const (
	RoleIgnored Role = iota
	RoleEntry
	RoleModule
	RoleManifest
)

func (r Role) String() string {
	switch r {
	case RoleEntry:
		return "entry"
	case RoleModule:
		return "ordinary-module"
	case RoleManifest:
		return "dependency-manifest"
	default:
		return "ignored"
	}
}

// File is one source file of a logical package.
type File struct {
	// Path is slash-separated and relative to the package root.
	Path    string
	Content []byte
	Role    Role
	// Fingerprint of Content. Left empty, consumers compute it on demand.
	Fingerprint string
}

// ArtifactLocation points at a package's built artifact for one platform.
type ArtifactLocation struct {
	// Source is the concatenated, sectioned artifact file.
	Source string
	// Sidecar is the JSON resource manifest accompanying Source.
	Sidecar string
	// Resource is the value of the sidecar's resources[].file that refers to Source.
	Resource string
}

// Package is a logical package as handed over by the metadata provider for
// one build pass.
type Package struct {
	// Name is the namespaced identity ("vendor:name"). Empty for the root application.
	Name  string
	Files []File
	// Dependencies declared through the provider itself rather than manifest files.
	Dependencies map[string]string
	Artifacts    map[Platform]ArtifactLocation
}

// IsApp reports whether p is the anonymous root application.
func (p *Package) IsApp() bool {
	return p.Name == ""
}

// FilesWithRole returns p's files of the given role in discovery order.
func (p *Package) FilesWithRole(role Role) []File {
	var files []File
	for _, f := range p.Files {
		if f.Role == role {
			files = append(files, f)
		}
	}
	return files
}

// IsopackName is the identity as used in built artifact file names.
func (p *Package) IsopackName() string {
	if p.IsApp() {
		return "app"
	}
	return strings.ReplaceAll(p.Name, ":", "_")
}

// SectionName is the name an artifact section for rel carries.
func SectionName(pkg *Package, rel string) string {
	if pkg.IsApp() {
		return rel
	}
	return "packages/" + pkg.Name + "/" + rel
}

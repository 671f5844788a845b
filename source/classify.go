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

package source

import (
	"path"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Classifier derives file roles, platform applicability and import-chain
// status from paths alone.
type Classifier struct {
	EntrySuffixes   []string
	ManifestName    string
	ModuleExts      []string
	ImportChainDirs []string
	// Ignore holds doublestar globs, relative to the package root, naming
	// modules that only re-export others.
	Ignore []string
	// CorePackage and SharedChunk name the placeholder file that is filled
	// with the bundler's shared chunk.
	CorePackage string
	SharedChunk string
}

// DefaultClassifier returns the conventions rocket:module packages follow.
func DefaultClassifier() Classifier {
	return Classifier{
		EntrySuffixes:   []string{"module.js", "module.coffee.js", "module.ts.js", "module.ls.js", ".entry.js"},
		ManifestName:    "npm.json",
		ModuleExts:      []string{".js", ".jsx", ".css", ".glsl"},
		ImportChainDirs: []string{"imports"},
		CorePackage:     "rocket:module",
		SharedChunk:     "shared-modules.js",
	}
}

// Role classifies rel, a file of the package named pkg.
func (c Classifier) Role(pkg, rel string) Role {
	segments := strings.Split(rel, "/")
	for _, seg := range segments {
		if strings.HasPrefix(seg, ".") || seg == "node_modules" {
			return RoleIgnored
		}
	}
	base := segments[len(segments)-1]
	switch {
	case pkg == c.CorePackage && rel == c.SharedChunk:
		return RoleIgnored
	case base == c.ManifestName:
		return RoleManifest
	case c.isEntry(base):
		return RoleEntry
	case slices.Contains(c.ModuleExts, path.Ext(base)):
		return RoleModule
	}
	return RoleIgnored
}

func (c Classifier) isEntry(base string) bool {
	for _, suffix := range c.EntrySuffixes {
		if strings.HasSuffix(base, suffix) {
			return true
		}
	}
	return false
}

// AppliesTo reports whether rel is loaded on platform p. A "server" or
// "client" directory, or a ".server."/".client." infix in the file name,
// restricts a file to that side. Everything else loads everywhere.
func (c Classifier) AppliesTo(rel string, p Platform) bool {
	server, client := false, false
	segments := strings.Split(rel, "/")
	for _, seg := range segments[:len(segments)-1] {
		switch seg {
		case "server":
			server = true
		case "client":
			client = true
		}
	}
	base := segments[len(segments)-1]
	if strings.Contains(base, ".server.") {
		server = true
	}
	if strings.Contains(base, ".client.") {
		client = true
	}
	switch {
	case server && !client:
		return p.IsServer()
	case client && !server:
		return !p.IsServer()
	}
	return true
}

// IsImportChain reports whether rel sits in an import-chain directory or
// matches one of the ignore globs.
func (c Classifier) IsImportChain(rel string) bool {
	segments := strings.Split(rel, "/")
	for _, seg := range segments[:len(segments)-1] {
		if slices.Contains(c.ImportChainDirs, seg) {
			return true
		}
	}
	for _, pattern := range c.Ignore {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
	}
	return false
}

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

// Package bundle builds a per-platform bundler configuration, runs the
// bundler and filters its diagnostics.
package bundle

import (
	"maps"
	"path/filepath"
	"slices"

	"bennypowers.dev/rocketmod/source"
	"bennypowers.dev/rocketmod/stage"
)

// DefaultSharedChunk is the file name of the shared chunk in the output directory.
const DefaultSharedChunk = "shared-modules.js"

// Rule assigns a loader to files with a given extension.
type Rule struct {
	Extension string   `json:"extension" mapstructure:"extension"`
	Loader    string   `json:"loader" mapstructure:"loader"`
	Exclude   []string `json:"exclude,omitempty" mapstructure:"exclude"`
}

// Loader names understood by the built-in backend.
const (
	LoaderJS   = "js"
	LoaderJSX  = "jsx"
	LoaderCSS  = "css"
	LoaderText = "text"
	LoaderJSON = "json"
)

// Config is the bundler configuration for one platform.
type Config struct {
	Platform source.Platform `json:"platform" mapstructure:"-"`
	// Context is the platform staging directory; entry paths are relative to it.
	Context string         `json:"context" mapstructure:"-"`
	Entry   stage.EntryMap `json:"entry" mapstructure:"-"`
	OutDir  string         `json:"outDir" mapstructure:"-"`
	// SharedChunk names the output holding modules common to all entries.
	SharedChunk string `json:"sharedChunk" mapstructure:"sharedChunk"`
	// Roots are searched for bare module specifiers.
	Roots      []string          `json:"roots" mapstructure:"roots"`
	Extensions []string          `json:"extensions" mapstructure:"extensions"`
	Rules      []Rule            `json:"rules" mapstructure:"rules"`
	Define     map[string]string `json:"define,omitempty" mapstructure:"define"`
	External   []string          `json:"external,omitempty" mapstructure:"external"`
	// Allow holds regular expressions matching diagnostics that must not
	// fail the build.
	Allow  []string `json:"allow,omitempty" mapstructure:"allow"`
	Minify bool     `json:"minify,omitempty" mapstructure:"minify"`
}

// DefaultRules cover scripts, stylesheets, shaders and JSX.
var DefaultRules = []Rule{
	{Extension: ".css", Loader: LoaderCSS},
	{Extension: ".js", Loader: LoaderJS, Exclude: []string{"node_modules"}},
	{Extension: ".glsl", Loader: LoaderText},
	{Extension: ".jsx", Loader: LoaderJSX},
}

// DefaultAllow matches the known-benign failure to resolve glslify from
// within famous, as reported by webpack and by esbuild.
var DefaultAllow = []string{
	`Module not found: Error: Cannot resolve module 'glslify'.*famous`,
	`Could not resolve "glslify".*famous`,
}

// DefaultConfig returns the configuration for bundling entries of platform p
// staged in dir. Installed dependencies are resolved from dir/node_modules
// and from each staged package's own node_modules.
func DefaultConfig(p source.Platform, dir string, entries stage.EntryMap, stagingNames []string) Config {
	roots := []string{filepath.Join(dir, "node_modules")}
	for _, sn := range stagingNames {
		roots = append(roots, filepath.Join(dir, "packages", sn, "node_modules"))
	}
	return Config{
		Platform:    p,
		Context:     dir,
		Entry:       maps.Clone(entries),
		OutDir:      filepath.Join(dir, "built"),
		SharedChunk: DefaultSharedChunk,
		Roots:       roots,
		Extensions:  []string{".js", ".jsx", ".css", ".json"},
		Rules:       slices.Clone(DefaultRules),
		Allow:       slices.Clone(DefaultAllow),
	}
}

// Merge returns base overlaid with override. Maps merge key-wise with
// override winning, slices concatenate, and non-zero scalars in override
// replace those in base. Neither argument is modified.
func Merge(base, override Config) Config {
	out := base
	out.Entry = mergeMap(base.Entry, override.Entry)
	out.Define = mergeMap(base.Define, override.Define)
	out.Roots = concat(base.Roots, override.Roots)
	out.Extensions = concat(base.Extensions, override.Extensions)
	out.Rules = concat(base.Rules, override.Rules)
	out.External = concat(base.External, override.External)
	out.Allow = concat(base.Allow, override.Allow)
	if override.Platform != "" {
		out.Platform = override.Platform
	}
	if override.Context != "" {
		out.Context = override.Context
	}
	if override.OutDir != "" {
		out.OutDir = override.OutDir
	}
	if override.SharedChunk != "" {
		out.SharedChunk = override.SharedChunk
	}
	if override.Minify {
		out.Minify = true
	}
	return out
}

func mergeMap[M ~map[string]string](base, override M) M {
	if base == nil && override == nil {
		return nil
	}
	out := make(M, len(base)+len(override))
	maps.Copy(out, base)
	maps.Copy(out, override)
	return out
}

func concat[S ~[]E, E any](base, override S) S {
	if base == nil && override == nil {
		return nil
	}
	out := make(S, 0, len(base)+len(override))
	out = append(out, base...)
	return append(out, override...)
}

// Loaders maps each extension with a rule to its loader. Later rules take
// precedence, so an override can replace a default rule.
func (c *Config) Loaders() map[string]string {
	loaders := make(map[string]string, len(c.Rules))
	for _, rule := range c.Rules {
		loaders[rule.Extension] = rule.Loader
	}
	return loaders
}

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
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"slices"
	"sort"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	"bennypowers.dev/rocketmod/fs"
)

// SharedRegistry is the global the shared chunk publishes its modules on.
const SharedRegistry = "rocketmodShared"

const sharedNamespace = "rocketmod-shared"

// metafile is the subset of esbuild's metafile used to find shared modules.
type metafile struct {
	Inputs  map[string]metafileInput  `json:"inputs"`
	Outputs map[string]metafileOutput `json:"outputs"`
}

type metafileInput struct {
	Format string `json:"format,omitempty"`
}

type metafileOutput struct {
	EntryPoint string              `json:"entryPoint,omitempty"`
	Inputs     map[string]struct{} `json:"inputs"`
}

// ESBuild bundles in-process with esbuild. Modules reached from every entry
// are factored into the shared chunk, which publishes them on
// SharedRegistry; entries then read them from there instead of carrying
// their own copy.
type ESBuild struct {
	fs fs.FileSystem
}

// NewESBuild returns an esbuild backend writing outputs through fsys.
func NewESBuild(fsys fs.FileSystem) *ESBuild {
	return &ESBuild{fs: fsys}
}

func (e *ESBuild) Bundle(ctx context.Context, cfg *Config) (*Output, error) {
	filter, err := NewFilter(cfg.Allow)
	if err != nil {
		return nil, err
	}
	out := &Output{Entries: map[string][]byte{}, Included: map[string]bool{}}
	base := options(cfg)
	entries, outputNames := entryPoints(cfg)

	// Analysis: which modules does every entry pull in?
	analysis := base
	analysis.EntryPointsAdvanced = entries
	res := e.build(&analysis, filter, out)
	if len(res.Errors) > 0 {
		return out, nil
	}
	meta, err := parseMetafile(res.Metafile)
	if err != nil {
		return nil, err
	}
	shared := sharedModules(meta, cfg)
	base.External = analysis.External

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	chunk := base
	chunk.Outdir = ""
	chunk.Outfile = filepath.Join(cfg.OutDir, cfg.SharedChunk)
	chunk.Stdin = &api.StdinOptions{
		Contents:   sharedSource(shared),
		ResolveDir: cfg.Context,
		Sourcefile: cfg.SharedChunk,
		Loader:     api.LoaderJS,
	}
	chunkRes := e.build(&chunk, filter, out)
	if len(chunkRes.Errors) > 0 {
		return out, nil
	}
	if err := e.collect(chunkRes, out, nil, cfg); err != nil {
		return nil, err
	}
	for _, f := range chunkRes.OutputFiles {
		if strings.HasSuffix(f.Path, ".js") {
			out.Shared = f.Contents
		}
	}

	if len(shared) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		final := base
		final.EntryPointsAdvanced = entries
		final.Plugins = append(slices.Clone(base.Plugins), sharedPlugin(cfg.Context, shared))
		res = e.build(&final, filter, out)
		if len(res.Errors) > 0 {
			return out, nil
		}
	}
	if err := e.collect(res, out, outputNames, cfg); err != nil {
		return nil, err
	}
	return out, nil
}

// build runs esbuild once. When every error is allow-listed and names a
// module that could not be resolved, it retries with those modules marked
// external, the way webpack emits a throwing stub and carries on.
func (e *ESBuild) build(opts *api.BuildOptions, filter *Filter, out *Output) api.BuildResult {
	res := api.Build(*opts)
	errs := fromMessages(res.Errors, false)
	out.Diagnostics = append(out.Diagnostics, errs...)
	out.Diagnostics = append(out.Diagnostics, fromMessages(res.Warnings, true)...)
	if len(errs) == 0 || len(filter.Failures(errs)) > 0 {
		return res
	}
	var added []string
	for _, spec := range unresolved(errs) {
		if !slices.Contains(opts.External, spec) {
			added = append(added, spec)
		}
	}
	if len(added) == 0 {
		return res
	}
	opts.External = append(slices.Clone(opts.External), added...)
	retry := api.Build(*opts)
	out.Diagnostics = append(out.Diagnostics, fromMessages(retry.Errors, false)...)
	return retry
}

// collect writes res's output files below cfg.OutDir, records compiled
// entries by their entry key and adds res's inputs to the inclusion report.
func (e *ESBuild) collect(res api.BuildResult, out *Output, outputNames map[string]string, cfg *Config) error {
	for _, f := range res.OutputFiles {
		if err := e.fs.MkdirAll(filepath.Dir(f.Path), 0755); err != nil {
			return err
		}
		if err := e.fs.WriteFile(f.Path, f.Contents, 0644); err != nil {
			return fmt.Errorf("writing bundle output: %w", err)
		}
		rel, err := filepath.Rel(cfg.OutDir, f.Path)
		if err != nil {
			continue
		}
		if key, ok := outputNames[filepath.ToSlash(rel)]; ok {
			out.Entries[key] = f.Contents
		}
	}
	meta, err := parseMetafile(res.Metafile)
	if err != nil {
		return err
	}
	for input := range meta.Inputs {
		if isFileInput(input) {
			out.Included[input] = true
		}
	}
	return nil
}

func options(cfg *Config) api.BuildOptions {
	opts := api.BuildOptions{
		AbsWorkingDir:     cfg.Context,
		Bundle:            true,
		Write:             false,
		Metafile:          true,
		Outdir:            cfg.OutDir,
		Format:            api.FormatIIFE,
		Platform:          api.PlatformBrowser,
		Target:            api.ES2015,
		NodePaths:         cfg.Roots,
		ResolveExtensions: cfg.Extensions,
		Define:            cfg.Define,
		External:          cfg.External,
		MinifyWhitespace:  cfg.Minify,
		MinifyIdentifiers: cfg.Minify,
		MinifySyntax:      cfg.Minify,
		LogLevel:          api.LogLevelSilent,
		Loader:            map[string]api.Loader{},
	}
	if cfg.Platform.IsServer() {
		opts.Platform = api.PlatformNode
	}
	var styleExts []string
	for ext, loader := range cfg.Loaders() {
		switch loader {
		case LoaderCSS:
			styleExts = append(styleExts, ext)
		case LoaderJS:
			opts.Loader[ext] = api.LoaderJS
		case LoaderJSX:
			opts.Loader[ext] = api.LoaderJSX
		case LoaderText:
			opts.Loader[ext] = api.LoaderText
		case LoaderJSON:
			opts.Loader[ext] = api.LoaderJSON
		}
	}
	if len(styleExts) > 0 {
		opts.Plugins = append(opts.Plugins, stylePlugin(styleExts))
	}
	return opts
}

// entryPoints returns esbuild entry points for cfg.Entry in key order, and
// a map from each entry's output file, relative to OutDir, to its key.
func entryPoints(cfg *Config) ([]api.EntryPoint, map[string]string) {
	keys := cfg.Entry.Keys()
	eps := make([]api.EntryPoint, 0, len(keys))
	names := make(map[string]string, len(keys))
	for _, key := range keys {
		stem := strings.TrimSuffix(key, path.Ext(key))
		eps = append(eps, api.EntryPoint{InputPath: cfg.Entry[key], OutputPath: stem})
		names[stem+".js"] = key
	}
	return eps, names
}

func parseMetafile(data string) (*metafile, error) {
	var meta metafile
	if data == "" {
		return &meta, nil
	}
	if err := json.Unmarshal([]byte(data), &meta); err != nil {
		return nil, fmt.Errorf("failed to parse metafile: %w", err)
	}
	return &meta, nil
}

// isFileInput excludes stdin and plugin namespaces from metafile inputs.
func isFileInput(input string) bool {
	return !strings.HasPrefix(input, "<") && !strings.Contains(input, ":")
}

// sharedModules returns the modules, with their format, that every entry
// includes. Fewer than two entries share nothing.
func sharedModules(meta *metafile, cfg *Config) map[string]string {
	entryFiles := map[string]bool{}
	for _, p := range cfg.Entry {
		entryFiles[strings.TrimPrefix(p, "./")] = true
	}
	counts := map[string]int{}
	n := 0
	for _, output := range meta.Outputs {
		if output.EntryPoint == "" {
			continue
		}
		n++
		for input := range output.Inputs {
			counts[input]++
		}
	}
	shared := map[string]string{}
	if n < 2 {
		return shared
	}
	for input, count := range counts {
		if count == n && !entryFiles[input] && isFileInput(input) {
			shared[input] = meta.Inputs[input].Format
		}
	}
	return shared
}

// sharedSource is the shared chunk's source: it imports every shared module
// and publishes its namespace under the module's path.
func sharedSource(shared map[string]string) string {
	paths := make([]string, 0, len(shared))
	for p := range shared {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var b strings.Builder
	fmt.Fprintf(&b, "var shared = window.%[1]s = window.%[1]s || {};\n", SharedRegistry)
	for i, p := range paths {
		spec, _ := json.Marshal("./" + p)
		key, _ := json.Marshal(p)
		fmt.Fprintf(&b, "import * as m%d from %s;\nshared[%s] = m%d;\n", i, spec, key, i)
	}
	return b.String()
}

// stubSource re-exports a shared module from the registry. ES modules keep
// their named exports; CommonJS modules expose their module.exports.
func stubSource(rel, format string) string {
	key, _ := json.Marshal(rel)
	if format == "cjs" {
		return fmt.Sprintf("module.exports = %s[%s].default;\n", SharedRegistry, key)
	}
	return fmt.Sprintf("module.exports = Object.assign({ __esModule: true }, %s[%s]);\n", SharedRegistry, key)
}

type resolvingMarker struct{}

// sharedPlugin swaps imports of shared modules for registry stubs.
func sharedPlugin(dir string, shared map[string]string) api.Plugin {
	return api.Plugin{
		Name: "rocketmod-shared",
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: `.*`},
				func(args api.OnResolveArgs) (api.OnResolveResult, error) {
					if args.Kind == api.ResolveEntryPoint || args.Namespace == sharedNamespace {
						return api.OnResolveResult{}, nil
					}
					if _, ok := args.PluginData.(resolvingMarker); ok {
						return api.OnResolveResult{}, nil
					}
					r := build.Resolve(args.Path, api.ResolveOptions{
						Importer:   args.Importer,
						Namespace:  args.Namespace,
						ResolveDir: args.ResolveDir,
						Kind:       args.Kind,
						PluginData: resolvingMarker{},
					})
					if len(r.Errors) > 0 || r.External || r.Namespace != "file" {
						return api.OnResolveResult{}, nil
					}
					rel, err := filepath.Rel(dir, r.Path)
					if err != nil {
						return api.OnResolveResult{}, nil
					}
					rel = filepath.ToSlash(rel)
					if _, ok := shared[rel]; !ok {
						return api.OnResolveResult{}, nil
					}
					return api.OnResolveResult{Path: rel, Namespace: sharedNamespace}, nil
				})
			build.OnLoad(api.OnLoadOptions{Filter: `.*`, Namespace: sharedNamespace},
				func(args api.OnLoadArgs) (api.OnLoadResult, error) {
					contents := stubSource(args.Path, shared[args.Path])
					return api.OnLoadResult{Contents: &contents, Loader: api.LoaderJS}, nil
				})
		},
	}
}

// stylePlugin turns stylesheets into modules that inject a <style> element
// when a document exists and export the CSS text.
func stylePlugin(exts []string) api.Plugin {
	quoted := make([]string, len(exts))
	for i, ext := range exts {
		quoted[i] = regexp.QuoteMeta(ext)
	}
	filter := `(` + strings.Join(quoted, "|") + `)$`
	return api.Plugin{
		Name: "rocketmod-style",
		Setup: func(build api.PluginBuild) {
			build.OnLoad(api.OnLoadOptions{Filter: filter, Namespace: "file"},
				func(args api.OnLoadArgs) (api.OnLoadResult, error) {
					css, err := os.ReadFile(args.Path)
					if err != nil {
						return api.OnLoadResult{}, err
					}
					text, _ := json.Marshal(string(css))
					contents := fmt.Sprintf(`var css = %s;
if (typeof document !== "undefined") {
  var style = document.createElement("style");
  style.textContent = css;
  document.head.appendChild(style);
}
export default css;
`, text)
					return api.OnLoadResult{Contents: &contents, Loader: api.LoaderJS}, nil
				})
		},
	}
}

func fromMessages(msgs []api.Message, warning bool) []Diagnostic {
	out := make([]Diagnostic, 0, len(msgs))
	for _, m := range msgs {
		d := Diagnostic{Text: m.Text, Warning: warning}
		if m.Location != nil {
			d.File = m.Location.File
			d.Line = m.Location.Line
		}
		out = append(out, d)
	}
	return out
}

var _ Bundler = (*ESBuild)(nil)

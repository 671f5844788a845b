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

// Package project loads a rocketmod project file and hands the build over
// the logical packages it describes.
package project

import (
	"bytes"
	"errors"
	"fmt"
	iofs "io/fs"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"bennypowers.dev/rocketmod/bundle"
	"bennypowers.dev/rocketmod/fingerprint"
	"bennypowers.dev/rocketmod/fs"
	"bennypowers.dev/rocketmod/source"
	"bennypowers.dev/rocketmod/splice"
)

// ErrNoConfig is returned when a directory holds no project file.
var ErrNoConfig = errors.New("no rocketmod project file")

// ConfigName is the project file's base name; any extension viper reads
// is accepted.
const ConfigName = "rocketmod"

// EnvPrefix prefixes environment variables overriding project settings.
const EnvPrefix = "ROCKETMOD"

var configExts = []string{"yaml", "yml", "json", "toml"}

// PackageConfig describes one logical package.
type PackageConfig struct {
	// Name is the identity; empty for the application itself.
	Name string `mapstructure:"name"`
	Dir  string `mapstructure:"dir"`
	// Artifacts is the package's built isopack directory.
	Artifacts    string            `mapstructure:"artifacts"`
	Include      []string          `mapstructure:"include"`
	Exclude      []string          `mapstructure:"exclude"`
	Dependencies map[string]string `mapstructure:"dependencies"`
}

// ArtifactTemplates locate the built artifacts of a package.
type ArtifactTemplates struct {
	Source   string `mapstructure:"source"`
	Sidecar  string `mapstructure:"sidecar"`
	Resource string `mapstructure:"resource"`
}

// InstallerConfig configures the dependency installer.
type InstallerConfig struct {
	Command []string `mapstructure:"command"`
	Env     []string `mapstructure:"env"`
}

// BundlerConfig selects and configures the bundler.
type BundlerConfig struct {
	// Backend is "esbuild" or "external".
	Backend  string        `mapstructure:"backend"`
	Command  []string      `mapstructure:"command"`
	Env      []string      `mapstructure:"env"`
	Allow    []string      `mapstructure:"allow"`
	Override bundle.Config `mapstructure:"override"`
}

// Config is the decoded project file.
type Config struct {
	Staging         string            `mapstructure:"staging"`
	Platforms       []string          `mapstructure:"platforms"`
	Core            string            `mapstructure:"core"`
	Namespace       string            `mapstructure:"namespace"`
	SharedChunk     string            `mapstructure:"sharedChunk"`
	Entry           []string          `mapstructure:"entry"`
	Manifest        string            `mapstructure:"manifest"`
	Ignore          []string          `mapstructure:"ignore"`
	ImportChainDirs []string          `mapstructure:"importChainDirs"`
	Parallel        bool              `mapstructure:"parallel"`
	Artifacts       ArtifactTemplates `mapstructure:"artifacts"`
	Packages        []PackageConfig   `mapstructure:"packages"`
	Installer       InstallerConfig   `mapstructure:"installer"`
	Bundler         BundlerConfig     `mapstructure:"bundler"`
}

// SetDefaults registers the default of every scalar setting on v.
func SetDefaults(v *viper.Viper) {
	c := source.DefaultClassifier()
	v.SetDefault("staging", ".rocketmod")
	v.SetDefault("platforms", []string{string(source.Server), string(source.Browser)})
	v.SetDefault("core", c.CorePackage)
	v.SetDefault("namespace", splice.DefaultNamespace)
	v.SetDefault("sharedChunk", c.SharedChunk)
	v.SetDefault("entry", c.EntrySuffixes)
	v.SetDefault("manifest", c.ManifestName)
	v.SetDefault("importChainDirs", c.ImportChainDirs)
	v.SetDefault("parallel", false)
	v.SetDefault("artifacts.source", DefaultSourceTemplate)
	v.SetDefault("artifacts.sidecar", DefaultSidecarTemplate)
	v.SetDefault("artifacts.resource", DefaultResourceTemplate)
	v.SetDefault("bundler.backend", "esbuild")
}

// Project is a loaded project.
type Project struct {
	// Dir is the absolute project directory.
	Dir    string
	File   string
	Config Config

	fs fs.FileSystem
}

// FindConfig returns the project file in dir.
func FindConfig(fsys fs.FileSystem, dir string) (string, error) {
	for _, ext := range configExts {
		p := filepath.Join(dir, ConfigName+"."+ext)
		if fsys.Exists(p) {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w in %s", ErrNoConfig, dir)
}

// Load reads the project in dir. file overrides the project file location;
// relative paths in it are resolved against dir.
func Load(fsys fs.FileSystem, dir, file string) (*Project, error) {
	if file == "" {
		found, err := FindConfig(fsys, dir)
		if err != nil {
			return nil, err
		}
		file = found
	} else if !filepath.IsAbs(file) {
		file = filepath.Join(dir, file)
	}
	data, err := fsys.ReadFile(file)
	if errors.Is(err, iofs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNoConfig, file)
	}
	if err != nil {
		return nil, err
	}

	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetConfigType(strings.TrimPrefix(filepath.Ext(file), "."))
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("reading %s: %w", file, err)
	}

	p := &Project{Dir: dir, File: file, fs: fsys}
	if err := v.Unmarshal(&p.Config); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", file, err)
	}
	if err := p.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	return p, nil
}

func (p *Project) validate() error {
	for _, pattern := range []string{p.Config.Artifacts.Source, p.Config.Artifacts.Sidecar, p.Config.Artifacts.Resource} {
		if _, err := ParseTemplate(pattern); err != nil {
			return err
		}
	}
	switch p.Config.Bundler.Backend {
	case "esbuild":
	case "external":
		if len(p.Config.Bundler.Command) == 0 {
			return errors.New("the external bundler needs bundler.command")
		}
	default:
		return fmt.Errorf("unknown bundler backend %q", p.Config.Bundler.Backend)
	}
	if len(p.Config.Platforms) == 0 {
		return errors.New("no platforms")
	}
	for i, pkg := range p.Config.Packages {
		if pkg.Dir == "" {
			return fmt.Errorf("packages[%d] (%q) has no dir", i, pkg.Name)
		}
	}
	return nil
}

// Abs resolves a project-relative path.
func (p *Project) Abs(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(p.Dir, filepath.FromSlash(rel))
}

// StagingDir returns the staging root.
func (p *Project) StagingDir() string {
	return p.Abs(p.Config.Staging)
}

// StorePath returns the persisted fingerprint store.
func (p *Project) StorePath() string {
	return filepath.Join(p.StagingDir(), fingerprint.FileName)
}

// Platforms returns the configured platforms.
func (p *Project) Platforms() []source.Platform {
	out := make([]source.Platform, len(p.Config.Platforms))
	for i, name := range p.Config.Platforms {
		out[i] = source.Platform(name)
	}
	return out
}

// Classifier returns the file conventions of the project.
func (p *Project) Classifier() source.Classifier {
	c := source.DefaultClassifier()
	c.EntrySuffixes = p.Config.Entry
	c.ManifestName = p.Config.Manifest
	c.ImportChainDirs = p.Config.ImportChainDirs
	c.Ignore = p.Config.Ignore
	c.CorePackage = p.Config.Core
	c.SharedChunk = p.Config.SharedChunk
	return c
}

// PackageDirs returns the absolute source directory of every package.
func (p *Project) PackageDirs() []string {
	dirs := make([]string, len(p.Config.Packages))
	for i, pkg := range p.Config.Packages {
		dirs[i] = p.Abs(pkg.Dir)
	}
	return dirs
}

// Packages reads every configured package from disk. The result is a
// snapshot for one build pass.
func (p *Project) Packages() ([]*source.Package, error) {
	classifier := p.Classifier()
	templates, err := p.templates()
	if err != nil {
		return nil, err
	}
	pkgs := make([]*source.Package, 0, len(p.Config.Packages))
	for _, pc := range p.Config.Packages {
		pkg, err := p.readPackage(pc, classifier, templates)
		if err != nil {
			return nil, err
		}
		pkgs = append(pkgs, pkg)
	}
	return pkgs, nil
}

func (p *Project) templates() ([3]*Template, error) {
	var out [3]*Template
	for i, pattern := range []string{p.Config.Artifacts.Source, p.Config.Artifacts.Sidecar, p.Config.Artifacts.Resource} {
		t, err := ParseTemplate(pattern)
		if err != nil {
			return out, err
		}
		out[i] = t
	}
	return out, nil
}

func (p *Project) readPackage(pc PackageConfig, classifier source.Classifier, templates [3]*Template) (*source.Package, error) {
	pkg := &source.Package{
		Name:         pc.Name,
		Dependencies: pc.Dependencies,
		Artifacts:    map[source.Platform]source.ArtifactLocation{},
	}
	root := p.Abs(pc.Dir)
	files, err := walk(p.fs, root, pc.Include, pc.Exclude)
	if err != nil {
		return nil, fmt.Errorf("reading package %q: %w", pc.Name, err)
	}
	for _, rel := range files {
		role := classifier.Role(pc.Name, rel)
		if role == source.RoleIgnored {
			continue
		}
		content, err := p.fs.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
		if err != nil {
			return nil, fmt.Errorf("reading package %q: %w", pc.Name, err)
		}
		pkg.Files = append(pkg.Files, source.File{
			Path:        rel,
			Content:     content,
			Role:        role,
			Fingerprint: fingerprint.Of(content),
		})
	}

	if pc.Artifacts != "" {
		dir := filepath.ToSlash(p.Abs(pc.Artifacts))
		isopack := pkg.IsopackName()
		for _, plat := range p.Platforms() {
			pkg.Artifacts[plat] = source.ArtifactLocation{
				Source:   filepath.FromSlash(templates[0].Expand(dir, string(plat), isopack)),
				Sidecar:  filepath.FromSlash(templates[1].Expand(dir, string(plat), isopack)),
				Resource: templates[2].Expand(dir, string(plat), isopack),
			}
		}
	}
	return pkg, nil
}

// walk lists the files below root as slash-separated relative paths, depth
// first in name order. Hidden entries and node_modules are skipped.
func walk(fsys fs.FileSystem, root string, include, exclude []string) ([]string, error) {
	var files []string
	var visit func(rel string) error
	visit = func(rel string) error {
		entries, err := fsys.ReadDir(filepath.Join(root, filepath.FromSlash(rel)))
		if err != nil {
			return err
		}
		for _, e := range entries {
			name := e.Name()
			if strings.HasPrefix(name, ".") || name == "node_modules" {
				continue
			}
			child := path.Join(rel, name)
			if e.IsDir() {
				if err := visit(child); err != nil {
					return err
				}
				continue
			}
			if matchAny(include, child, true) && !matchAny(exclude, child, false) {
				files = append(files, child)
			}
		}
		return nil
	}
	if err := visit(""); err != nil {
		return nil, err
	}
	return files, nil
}

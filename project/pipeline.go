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

package project

import (
	"fmt"

	"bennypowers.dev/rocketmod/build"
	"bennypowers.dev/rocketmod/bundle"
	"bennypowers.dev/rocketmod/fingerprint"
	"bennypowers.dev/rocketmod/install"
	"bennypowers.dev/rocketmod/internal/logging"
	"bennypowers.dev/rocketmod/manifest"
	"bennypowers.dev/rocketmod/packagejson"
	"bennypowers.dev/rocketmod/splice"
	"bennypowers.dev/rocketmod/stage"
)

// Bundler returns the configured bundler backend.
func (p *Project) Bundler() bundle.Bundler {
	if p.Config.Bundler.Backend == "external" {
		return bundle.NewExternal(p.fs, p.Config.Bundler.Command, p.Config.Bundler.Env)
	}
	return bundle.NewESBuild(p.fs)
}

// BundleOverride returns the configuration merged into every generated
// bundler configuration.
func (p *Project) BundleOverride() bundle.Config {
	override := p.Config.Bundler.Override
	override.Allow = append(append([]string{}, override.Allow...), p.Config.Bundler.Allow...)
	return override
}

// Pipeline assembles a build pipeline for the project. The fingerprint
// store is loaded from the staging tree and saved back after every pass.
func (p *Project) Pipeline(logger logging.Logger) (*build.Pipeline, error) {
	store, err := fingerprint.Load(p.fs, p.StorePath())
	if err != nil {
		if logger != nil {
			logger.Warning("discarding fingerprint store: %v", err)
		}
		store = fingerprint.NewMemoryStore()
	}
	classifier := p.Classifier()

	stager := stage.New(p.fs, p.StagingDir(), store, classifier).
		WithLogger(logger)
	installer := install.New(p.fs).
		WithCommand(p.Config.Installer.Command, p.Config.Installer.Env).
		WithLogger(logger)
	driver := bundle.NewDriver(p.Bundler()).
		WithOverride(p.BundleOverride()).
		WithLogger(logger)
	splicer := splice.New(p.fs, classifier).
		WithNamespace(p.Config.Namespace).
		WithLogger(logger)

	if _, err := bundle.NewFilter(p.BundleOverride().Allow); err != nil {
		return nil, fmt.Errorf("bundler.allow: %w", err)
	}

	return build.New(stager, manifest.NewMerger(packagejson.NewMemoryCache()), installer, driver, splicer).
		WithParallel(p.Config.Parallel).
		WithStore(p.fs, store, p.StorePath()).
		WithLogger(logger), nil
}

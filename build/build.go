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

// Package build runs build passes: for every platform it stages sources,
// installs third-party dependencies, bundles entries and splices the result
// into the host's artifacts.
package build

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"bennypowers.dev/rocketmod/bundle"
	"bennypowers.dev/rocketmod/fs"
	"bennypowers.dev/rocketmod/internal/logging"
	"bennypowers.dev/rocketmod/manifest"
	"bennypowers.dev/rocketmod/packagejson"
	"bennypowers.dev/rocketmod/source"
	"bennypowers.dev/rocketmod/splice"
	"bennypowers.dev/rocketmod/stage"
)

// PassContext describes one build pass. The orchestrator builds it once per
// pass and hands it to every stage.
type PassContext struct {
	// FirstPass is true for the first pass since process start.
	FirstPass bool
	Platforms []source.Platform
}

// Installer installs the dependency tree described by root into dir.
type Installer interface {
	Install(ctx context.Context, dir string, root *packagejson.Descriptor) error
}

// Saver persists a fingerprint store.
type Saver interface {
	Save(fsys fs.FileSystem, path string) error
}

// PlatformReport summarises one platform of a pass.
type PlatformReport struct {
	Platform    source.Platform         `json:"platform" yaml:"platform"`
	Written     []string                `json:"written,omitempty" yaml:"written,omitempty"`
	Skipped     int                     `json:"skipped" yaml:"skipped"`
	Descriptors int                     `json:"descriptors" yaml:"descriptors"`
	Entries     []string                `json:"entries,omitempty" yaml:"entries,omitempty"`
	Ignored     []string                `json:"ignoredDiagnostics,omitempty" yaml:"ignoredDiagnostics,omitempty"`
	Artifacts   []splice.ArtifactReport `json:"artifacts,omitempty" yaml:"artifacts,omitempty"`
	Error       string                  `json:"error,omitempty" yaml:"error,omitempty"`
}

// Report summarises a pass.
type Report struct {
	FirstPass bool             `json:"firstPass" yaml:"firstPass"`
	Duration  time.Duration    `json:"duration" yaml:"duration"`
	Platforms []PlatformReport `json:"platforms" yaml:"platforms"`
}

// Pipeline wires the stages of a pass together.
type Pipeline struct {
	stager    *stage.Stager
	merger    *manifest.Merger
	installer Installer
	driver    *bundle.Driver
	splicer   *splice.Splicer

	fs        fs.FileSystem
	store     Saver
	storePath string

	parallel bool
	logger   logging.Logger
}

// New returns a Pipeline running its platforms one after another.
func New(stager *stage.Stager, merger *manifest.Merger, installer Installer, driver *bundle.Driver, splicer *splice.Splicer) *Pipeline {
	return &Pipeline{
		stager:    stager,
		merger:    merger,
		installer: installer,
		driver:    driver,
		splicer:   splicer,
	}
}

// WithParallel returns a copy of p that runs platforms concurrently.
func (p *Pipeline) WithParallel(parallel bool) *Pipeline {
	c := *p
	c.parallel = parallel
	return &c
}

// WithStore returns a copy of p that saves store to path after every pass.
func (p *Pipeline) WithStore(fsys fs.FileSystem, store Saver, path string) *Pipeline {
	c := *p
	c.fs = fsys
	c.store = store
	c.storePath = path
	return &c
}

// WithLogger returns a copy of p that logs to logger.
func (p *Pipeline) WithLogger(logger logging.Logger) *Pipeline {
	c := *p
	c.logger = logger
	return &c
}

// Run performs one pass over pkgs. Dependency manifests are merged before
// any platform starts; a malformed manifest fails the pass without staging
// anything. Each platform then fails or succeeds on its own, and their
// errors are joined.
func (p *Pipeline) Run(ctx context.Context, pass PassContext, pkgs []*source.Package) (*Report, error) {
	start := time.Now()
	report := &Report{FirstPass: pass.FirstPass, Platforms: make([]PlatformReport, len(pass.Platforms))}

	merged, err := p.merger.MergeAll(pkgs)
	if err != nil {
		return report, err
	}
	names := make([]string, 0, len(merged.Packages))
	for sn := range merged.Packages {
		names = append(names, sn)
	}
	slices.Sort(names)

	errs := make([]error, len(pass.Platforms))
	run := func(i int) error {
		plat := pass.Platforms[i]
		report.Platforms[i].Platform = plat
		errs[i] = p.runPlatform(ctx, pass, plat, pkgs, merged, names, &report.Platforms[i])
		if errs[i] != nil {
			report.Platforms[i].Error = errs[i].Error()
		}
		return errs[i]
	}

	if p.parallel {
		var g errgroup.Group
		for i := range pass.Platforms {
			g.Go(func() error { return run(i) })
		}
		_ = g.Wait()
	} else {
		for i := range pass.Platforms {
			_ = run(i)
		}
	}

	err = errors.Join(errs...)
	if p.store != nil && p.storePath != "" {
		if serr := p.store.Save(p.fs, p.storePath); serr != nil {
			err = errors.Join(err, fmt.Errorf("saving fingerprints: %w", serr))
		}
	}
	report.Duration = time.Since(start)
	if p.logger != nil && err == nil {
		p.logger.Info("built %d platforms in %s", len(pass.Platforms), report.Duration.Round(time.Millisecond))
	}
	return report, err
}

func (p *Pipeline) runPlatform(ctx context.Context, pass PassContext, plat source.Platform, pkgs []*source.Package, merged *manifest.Result, names []string, report *PlatformReport) error {
	logger := logging.With(p.logger, "platform", string(plat))

	if pass.FirstPass {
		p.stager.PruneMissing(plat)
	}

	staged, err := p.stager.Stage(ctx, plat, pkgs)
	if err != nil {
		return fmt.Errorf("%s: staging: %w", plat, err)
	}
	report.Written = staged.Written
	report.Skipped = staged.Skipped
	report.Entries = staged.Entries.Keys()

	descriptors, err := p.stager.WriteDescriptors(ctx, plat, merged)
	if err != nil {
		return fmt.Errorf("%s: writing descriptors: %w", plat, err)
	}
	report.Descriptors = len(descriptors.Written)

	dir := p.stager.PlatformDir(plat)
	if err := p.installer.Install(ctx, dir, merged.Root); err != nil {
		return fmt.Errorf("%s: %w", plat, err)
	}

	out, err := p.driver.Run(ctx, plat, staged.Entries, dir, names)
	if err != nil {
		return err
	}
	for _, d := range out.Diagnostics {
		report.Ignored = append(report.Ignored, d.String())
	}

	artifacts, err := p.splicer.Splice(ctx, plat, pkgs, out)
	report.Artifacts = artifacts
	if err != nil {
		return fmt.Errorf("%s: %w", plat, err)
	}
	if logger != nil {
		logger.Info("staged %d files, spliced %d artifacts", len(staged.Written)+len(descriptors.Written), len(artifacts))
	}
	return nil
}

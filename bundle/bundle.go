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
	"errors"
	"fmt"
	"path"

	"bennypowers.dev/rocketmod/internal/logging"
	"bennypowers.dev/rocketmod/internal/workdir"
	"bennypowers.dev/rocketmod/source"
	"bennypowers.dev/rocketmod/stage"
)

// ErrNoOutput is returned when the bundler reports success but emitted
// nothing for an entry.
var ErrNoOutput = errors.New("bundler produced no output")

// Output is the compiled output of one platform build.
type Output struct {
	// Entries maps entry map keys to compiled code.
	Entries map[string][]byte
	// Shared is the shared chunk.
	Shared []byte
	// Included holds every staged module pulled into some bundle, as
	// "packages/<stagingName>/<relPath>".
	Included map[string]bool
	// Diagnostics holds everything the bundler reported, allowed or not.
	Diagnostics []Diagnostic
}

// IsIncluded reports whether rel of the package staged as stagingName was
// pulled into a bundle.
func (o *Output) IsIncluded(stagingName, rel string) bool {
	return o.Included[path.Join("packages", stagingName, rel)]
}

// Bundler runs one build. Implementations block until the build finished.
// Diagnostics are returned in Output; the error result is reserved for
// failures to run the bundler at all.
type Bundler interface {
	Bundle(ctx context.Context, cfg *Config) (*Output, error)
}

// Driver configures and runs a Bundler per platform.
type Driver struct {
	bundler  Bundler
	override Config
	logger   logging.Logger
}

// NewDriver returns a Driver running b.
func NewDriver(b Bundler) *Driver {
	return &Driver{bundler: b}
}

// WithOverride returns a copy of d merging override into every generated
// configuration.
func (d *Driver) WithOverride(override Config) *Driver {
	c := *d
	c.override = override
	return &c
}

// WithLogger returns a copy of d that logs to logger.
func (d *Driver) WithLogger(logger logging.Logger) *Driver {
	c := *d
	c.logger = logger
	return &c
}

// Config returns the configuration Run would use.
func (d *Driver) Config(p source.Platform, dir string, entries stage.EntryMap, stagingNames []string) Config {
	return Merge(DefaultConfig(p, dir, entries, stagingNames), d.override)
}

// Run bundles entries of platform p staged in dir, with dir as the working
// directory. Any diagnostic not allow-listed fails the build with a
// *BundleError.
func (d *Driver) Run(ctx context.Context, p source.Platform, entries stage.EntryMap, dir string, stagingNames []string) (*Output, error) {
	cfg := d.Config(p, dir, entries, stagingNames)
	filter, err := NewFilter(cfg.Allow)
	if err != nil {
		return nil, err
	}
	if len(cfg.Entry) == 0 {
		if d.logger != nil {
			d.logger.Debug("%s: no entries, skipping bundler", p)
		}
		return &Output{Entries: map[string][]byte{}, Included: map[string]bool{}}, nil
	}

	if d.logger != nil {
		d.logger.Info("%s: bundling %d entries", p, len(cfg.Entry))
	}
	var out *Output
	err = workdir.Within(dir, func() error {
		var err error
		out, err = d.bundler.Bundle(ctx, &cfg)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: running bundler: %w", p, err)
	}

	if failures := filter.Failures(out.Diagnostics); len(failures) > 0 {
		if d.logger != nil {
			d.logger.Debug("%s: bundler diagnostics:\n%s", p, joinDiagnostics(out.Diagnostics))
		}
		return nil, &BundleError{Platform: string(p), Diagnostics: failures}
	}
	if d.logger != nil {
		for _, diag := range out.Diagnostics {
			d.logger.Debug("%s: ignored diagnostic: %s", p, diag)
		}
	}
	for key := range cfg.Entry {
		if _, ok := out.Entries[key]; !ok {
			return nil, fmt.Errorf("%s: %w for entry %s", p, ErrNoOutput, key)
		}
	}
	return out, nil
}

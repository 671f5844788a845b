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

// Package cli holds the setup shared by rocketmod's commands.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"bennypowers.dev/rocketmod/fs"
	"bennypowers.dev/rocketmod/internal/logging"
	"bennypowers.dev/rocketmod/project"
	"bennypowers.dev/rocketmod/source"
)

// Logger returns the logger selected by the root flags.
func Logger() *logging.Zerolog {
	level := logging.LevelNormal
	switch {
	case viper.GetBool("quiet"):
		level = logging.LevelQuiet
	case viper.GetBool("verbose"):
		level = logging.LevelVerbose
	}
	if viper.GetBool("log-json") {
		return logging.NewJSON(os.Stderr, level)
	}
	return logging.New(os.Stderr, level)
}

// Project loads the project named by the root flags.
func Project(osfs fs.FileSystem) (*project.Project, error) {
	dir, err := filepath.Abs(viper.GetString("project"))
	if err != nil {
		return nil, fmt.Errorf("invalid project directory: %w", err)
	}
	return project.Load(osfs, dir, viper.GetString("config"))
}

// Platforms narrows the project's platforms to only, when given.
func Platforms(p *project.Project, only []string) ([]source.Platform, error) {
	all := p.Platforms()
	if len(only) == 0 {
		return all, nil
	}
	var out []source.Platform
	for _, name := range only {
		found := false
		for _, plat := range all {
			if string(plat) == name {
				out = append(out, plat)
				found = true
			}
		}
		if !found {
			return nil, fmt.Errorf("platform %q is not configured", name)
		}
	}
	return out, nil
}

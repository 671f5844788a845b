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

// Package install writes the root descriptor into a platform staging
// directory and runs the dependency installer against it.
package install

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"bennypowers.dev/rocketmod/fs"
	"bennypowers.dev/rocketmod/internal/command"
	"bennypowers.dev/rocketmod/internal/logging"
	"bennypowers.dev/rocketmod/internal/workdir"
	"bennypowers.dev/rocketmod/packagejson"
)

// DefaultCommand installs with npm.
var DefaultCommand = []string{"npm", "install", "--no-audit", "--no-fund", "--loglevel=error"}

// InstallError reports a failed installer run.
type InstallError struct {
	Dir      string
	Command  []string
	ExitCode int
	Output   []byte
}

func (e *InstallError) Error() string {
	msg := fmt.Sprintf("%s in %s exited with status %d", strings.Join(e.Command, " "), e.Dir, e.ExitCode)
	if out := strings.TrimSpace(string(e.Output)); out != "" {
		msg += ":\n" + out
	}
	return msg
}

// Installer runs an external dependency installer.
type Installer struct {
	fs      fs.FileSystem
	command []string
	env     []string
	logger  logging.Logger
}

// New returns an Installer running DefaultCommand.
func New(fsys fs.FileSystem) *Installer {
	return &Installer{fs: fsys, command: DefaultCommand}
}

// WithCommand returns a copy of i running argv instead.
func (i *Installer) WithCommand(argv []string, env []string) *Installer {
	c := *i
	if len(argv) > 0 {
		c.command = argv
	}
	c.env = env
	return &c
}

// WithLogger returns a copy of i that logs to logger.
func (i *Installer) WithLogger(logger logging.Logger) *Installer {
	c := *i
	c.logger = logger
	return &c
}

// Install writes root to dir/package.json and runs the installer with dir
// as the working directory. It blocks until the installer exits.
func (i *Installer) Install(ctx context.Context, dir string, root *packagejson.Descriptor) error {
	data, err := root.Marshal()
	if err != nil {
		return fmt.Errorf("encoding root descriptor: %w", err)
	}
	if err := i.fs.MkdirAll(dir, 0755); err != nil {
		return err
	}
	if err := i.fs.WriteFile(filepath.Join(dir, "package.json"), data, 0644); err != nil {
		return fmt.Errorf("writing root descriptor: %w", err)
	}

	if i.logger != nil {
		i.logger.Info("installing dependencies in %s", dir)
	}
	var res *command.Result
	err = workdir.Within(dir, func() error {
		var err error
		res, err = command.Run(ctx, i.command, i.env, nil)
		return err
	})
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return &InstallError{Dir: dir, Command: i.command, ExitCode: res.ExitCode, Output: res.Output()}
	}
	if i.logger != nil && len(res.Stderr) > 0 {
		i.logger.Debug("installer: %s", strings.TrimSpace(string(res.Stderr)))
	}
	return nil
}

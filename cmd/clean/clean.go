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

// Package clean provides the clean command for rocketmod.
package clean

import (
	"fmt"

	"github.com/spf13/cobra"

	"bennypowers.dev/rocketmod/fs"
	"bennypowers.dev/rocketmod/internal/cli"
)

// Cmd is the clean command. It removes the staging tree together with the
// fingerprint store kept inside it, so the next pass restages everything.
var Cmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove the staging tree",
	Long:  `Remove the staging tree, installed dependencies and recorded fingerprints.`,
	Args:  cobra.NoArgs,
	RunE:  run,
}

func run(cmd *cobra.Command, args []string) error {
	osfs := fs.NewOSFileSystem()
	logger := cli.Logger()

	proj, err := cli.Project(osfs)
	if err != nil {
		return err
	}
	dir := proj.StagingDir()
	if dir == proj.Dir {
		return fmt.Errorf("refusing to remove the project directory %s", dir)
	}
	if !osfs.Exists(dir) {
		logger.Info("nothing to clean in %s", dir)
		return nil
	}
	if err := osfs.RemoveAll(dir); err != nil {
		return fmt.Errorf("removing %s: %w", dir, err)
	}
	logger.Info("removed %s", dir)
	return nil
}

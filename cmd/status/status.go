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

// Package status provides the status command for rocketmod.
package status

import (
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"bennypowers.dev/rocketmod/fingerprint"
	"bennypowers.dev/rocketmod/fs"
	"bennypowers.dev/rocketmod/internal/cli"
	"bennypowers.dev/rocketmod/internal/output"
	"bennypowers.dev/rocketmod/source"
	"bennypowers.dev/rocketmod/stage"
)

// Cmd is the status command that lists what the staging tree holds.
var Cmd = &cobra.Command{
	Use:   "status",
	Short: "List the packages in the staging tree",
	Long: `Read each platform's staged descriptors back and list every package
with its staging name and merged npm dependencies.`,
	Args: cobra.NoArgs,
	RunE: run,
}

func init() {
	Cmd.Flags().StringSlice("platform", nil, "Platforms to list (default: all configured)")
	Cmd.Flags().StringP("format", "f", "text", "Output format (text, json, yaml)")

	_ = viper.BindPFlag("status.platform", Cmd.Flags().Lookup("platform"))
}

// PlatformStatus lists the packages staged for one platform.
type PlatformStatus struct {
	Platform source.Platform `json:"platform" yaml:"platform"`
	Packages []stage.Staged  `json:"packages" yaml:"packages"`
}

func run(cmd *cobra.Command, args []string) error {
	osfs := fs.NewOSFileSystem()
	logger := cli.Logger()
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("error reading format flag: %w", err)
	}

	proj, err := cli.Project(osfs)
	if err != nil {
		return err
	}
	platforms, err := cli.Platforms(proj, viper.GetStringSlice("status.platform"))
	if err != nil {
		return err
	}
	stager := stage.New(osfs, proj.StagingDir(), fingerprint.NewMemoryStore(), proj.Classifier())

	statuses := make([]PlatformStatus, 0, len(platforms))
	for _, p := range platforms {
		staged, err := stager.List(p)
		if errors.Is(err, iofs.ErrNotExist) {
			logger.Info("%s has not been staged", p)
			continue
		}
		if err != nil {
			return err
		}
		statuses = append(statuses, PlatformStatus{Platform: p, Packages: staged})
	}

	if format != "text" {
		return output.Write(osfs, statuses, format)
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PLATFORM\tPACKAGE\tSTAGED AS\tDEPENDENCIES")
	for _, st := range statuses {
		for _, pkg := range st.Packages {
			identity := pkg.Identity
			if identity == "" {
				identity = "(app)"
			}
			deps := make([]string, 0, len(pkg.Dependencies))
			for name, version := range pkg.Dependencies {
				deps = append(deps, name+"@"+version)
			}
			slices.Sort(deps)
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", st.Platform, identity, pkg.StagingName, strings.Join(deps, " "))
		}
	}
	return w.Flush()
}

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

// Package build provides the build command for rocketmod.
package build

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"bennypowers.dev/rocketmod/build"
	"bennypowers.dev/rocketmod/fs"
	"bennypowers.dev/rocketmod/internal/cli"
	"bennypowers.dev/rocketmod/internal/output"
)

// Cmd is the build cobra command that runs one build pass.
var Cmd = &cobra.Command{
	Use:   "build",
	Short: "Run one build pass",
	Long: `Stage every package's sources, install their npm dependencies, bundle the
entry modules and splice the bundles into the built package artifacts.

Only files whose content changed since the last pass are restaged.`,
	Example: `  # Build every configured platform
  rocketmod build

  # Build only the browser and print a YAML report
  rocketmod build --platform web.browser --report yaml`,
	RunE: run,
}

func init() {
	Cmd.Flags().StringSlice("platform", nil, "Platforms to build (default: all configured)")
	Cmd.Flags().String("report", "", "Print a build report (json, yaml)")

	_ = viper.BindPFlag("build.platform", Cmd.Flags().Lookup("platform"))
	_ = viper.BindPFlag("build.report", Cmd.Flags().Lookup("report"))
}

func run(cmd *cobra.Command, args []string) error {
	osfs := fs.NewOSFileSystem()
	logger := cli.Logger()

	format := viper.GetString("build.report")
	if format != "" && format != "json" && format != "yaml" {
		return fmt.Errorf("invalid report format %q: must be 'json' or 'yaml'", format)
	}

	proj, err := cli.Project(osfs)
	if err != nil {
		return err
	}
	platforms, err := cli.Platforms(proj, viper.GetStringSlice("build.platform"))
	if err != nil {
		return err
	}
	pipeline, err := proj.Pipeline(logger)
	if err != nil {
		return err
	}
	pkgs, err := proj.Packages()
	if err != nil {
		return err
	}

	report, err := pipeline.Run(cmd.Context(), build.PassContext{FirstPass: true, Platforms: platforms}, pkgs)
	if format != "" && report != nil {
		if werr := output.Write(osfs, report, format); werr != nil && err == nil {
			err = werr
		}
	}
	return err
}

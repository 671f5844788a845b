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

// Package inspect provides the inspect command for rocketmod.
package inspect

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"bennypowers.dev/rocketmod/fs"
	"bennypowers.dev/rocketmod/internal/output"
	"bennypowers.dev/rocketmod/splice"
)

// Cmd is the inspect command that lists the sections of a built artifact.
var Cmd = &cobra.Command{
	Use:   "inspect <artifact>",
	Short: "List the sections of a built artifact",
	Long: `Parse a built package artifact and list its sections with their byte
offsets, as the splicer sees them.`,
	Example: `  # Table of sections
  rocketmod inspect .meteor/local/isopacks/vendor_widgets/web.browser/packages/vendor_widgets.js

  # Print one section's body
  rocketmod inspect --section packages/vendor:widgets/widgets.module.js artifact.js`,
	Args: cobra.ExactArgs(1),
	RunE: run,
}

func init() {
	Cmd.Flags().StringP("format", "f", "text", "Output format (text, json, yaml)")
	Cmd.Flags().String("section", "", "Print the body of this section")
}

func run(cmd *cobra.Command, args []string) error {
	osfs := fs.NewOSFileSystem()
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("error reading format flag: %w", err)
	}
	section, err := cmd.Flags().GetString("section")
	if err != nil {
		return fmt.Errorf("error reading section flag: %w", err)
	}

	data, err := osfs.ReadFile(args[0])
	if err != nil {
		return err
	}
	a, err := splice.Parse(data)
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}

	if section != "" {
		body, ok := a.Body(section)
		if !ok {
			return fmt.Errorf("%s: %w: %s", args[0], splice.ErrSectionNotFound, section)
		}
		_, err := os.Stdout.Write(body)
		return err
	}
	if format != "text" {
		return output.Write(osfs, a.Sections, format)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "OFFSET\tLENGTH\tBODY\tBARE\tNAME")
	for _, s := range a.Sections {
		fmt.Fprintf(w, "%d\t%d\t%d+%d\t%v\t%s\n", s.Start, s.Length, s.BodyStart, s.BodyLength, s.Bare, s.Name)
	}
	return w.Flush()
}

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

// Package output provides shared output utilities for rocketmod CLI commands.
package output

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"bennypowers.dev/rocketmod/fs"
)

// Encode renders v as "json" or "yaml".
func Encode(v any, format string) ([]byte, error) {
	switch format {
	case "json":
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	case "yaml":
		return yaml.Marshal(v)
	}
	return nil, fmt.Errorf("invalid format %q: must be 'json' or 'yaml'", format)
}

// Write encodes v and writes it to stdout or, if viper's "output" flag is
// set, to that file.
func Write(osfs fs.FileSystem, v any, format string) error {
	data, err := Encode(v, format)
	if err != nil {
		return err
	}
	if outputPath := viper.GetString("output"); outputPath != "" {
		return osfs.WriteFile(outputPath, data, 0644)
	}
	fmt.Print(string(data))
	return nil
}

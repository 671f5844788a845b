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
	"regexp"
	"strings"
)

// Template is a path pattern locating a package's built artifacts.
// Supported variables:
//   - {dir} - the package's artifact directory
//   - {platform} - the platform name (e.g. "web.browser")
//   - {isopack} - the identity with ":" replaced by "_", "app" for the application
type Template struct {
	pattern   string
	variables []string
}

var variablePattern = regexp.MustCompile(`\{(\w+)\}`)

var templateVariables = map[string]bool{
	"dir":      true,
	"platform": true,
	"isopack":  true,
}

// Default artifact templates, matching the host's isopack layout.
const (
	DefaultSourceTemplate   = "{dir}/{platform}/packages/{isopack}.js"
	DefaultSidecarTemplate  = "{dir}/{platform}.json"
	DefaultResourceTemplate = "{platform}/packages/{isopack}.js"
)

// ParseTemplate parses pattern, rejecting unknown variables.
func ParseTemplate(pattern string) (*Template, error) {
	if pattern == "" {
		return nil, fmt.Errorf("template pattern cannot be empty")
	}
	var variables []string
	for _, match := range variablePattern.FindAllStringSubmatch(pattern, -1) {
		if !templateVariables[match[1]] {
			return nil, fmt.Errorf("unknown template variable: {%s}", match[1])
		}
		variables = append(variables, match[1])
	}
	return &Template{pattern: pattern, variables: variables}, nil
}

// Expand substitutes the variables of t.
func (t *Template) Expand(dir, platform, isopack string) string {
	return strings.NewReplacer(
		"{dir}", dir,
		"{platform}", platform,
		"{isopack}", isopack,
	).Replace(t.pattern)
}

// Pattern returns the original pattern.
func (t *Template) Pattern() string {
	return t.pattern
}

// Variables returns the variables t uses, in order of appearance.
func (t *Template) Variables() []string {
	return t.variables
}

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
	"fmt"
	"regexp"
	"strings"
)

// Diagnostic is one message emitted by the bundler.
type Diagnostic struct {
	Text    string `json:"text" yaml:"text"`
	File    string `json:"file,omitempty" yaml:"file,omitempty"`
	Line    int    `json:"line,omitempty" yaml:"line,omitempty"`
	Warning bool   `json:"warning,omitempty" yaml:"warning,omitempty"`
}

func (d Diagnostic) String() string {
	if d.File == "" {
		return d.Text
	}
	if d.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", d.File, d.Line, d.Text)
	}
	return d.File + ": " + d.Text
}

// BundleError reports the diagnostics that failed a platform build. The
// first one is representative; all are kept.
type BundleError struct {
	Platform    string
	Diagnostics []Diagnostic
}

func (e *BundleError) Error() string {
	if len(e.Diagnostics) == 0 {
		return e.Platform + ": bundling failed"
	}
	msg := e.Platform + ": " + e.Diagnostics[0].String()
	if n := len(e.Diagnostics) - 1; n > 0 {
		msg += fmt.Sprintf(" (and %d more)", n)
	}
	return msg
}

// Filter drops allow-listed diagnostics.
type Filter struct {
	allow []*regexp.Regexp
}

// NewFilter compiles patterns into a Filter.
func NewFilter(patterns []string) (*Filter, error) {
	f := &Filter{}
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid allow pattern %q: %w", p, err)
		}
		f.allow = append(f.allow, re)
	}
	return f, nil
}

// Allowed reports whether d matches an allow pattern. Patterns see the text
// followed by " in <file>", the way webpack reports resolution failures, so
// they can refer to where the problem occurred.
func (f *Filter) Allowed(d Diagnostic) bool {
	subject := d.Text
	if d.File != "" {
		subject += " in " + d.File
	}
	for _, re := range f.allow {
		if re.MatchString(subject) {
			return true
		}
	}
	return false
}

// Failures returns the errors in ds that are not allow-listed. Warnings never
// fail a build.
func (f *Filter) Failures(ds []Diagnostic) []Diagnostic {
	var out []Diagnostic
	for _, d := range ds {
		if d.Warning || f.Allowed(d) {
			continue
		}
		out = append(out, d)
	}
	return out
}

var unresolvedPattern = regexp.MustCompile(`Could not resolve "([^"]+)"`)

// unresolved returns the module specifiers named by esbuild resolution
// errors in ds.
func unresolved(ds []Diagnostic) []string {
	var specs []string
	seen := map[string]bool{}
	for _, d := range ds {
		m := unresolvedPattern.FindStringSubmatch(d.Text)
		if m == nil || seen[m[1]] {
			continue
		}
		seen[m[1]] = true
		specs = append(specs, m[1])
	}
	return specs
}

func joinDiagnostics(ds []Diagnostic) string {
	lines := make([]string, len(ds))
	for i, d := range ds {
		lines[i] = d.String()
	}
	return strings.Join(lines, "\n")
}

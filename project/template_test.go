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
	"reflect"
	"testing"
)

func TestParseTemplate(t *testing.T) {
	tests := []struct {
		name     string
		pattern  string
		wantErr  bool
		wantVars []string
	}{
		{
			name:     "default source",
			pattern:  DefaultSourceTemplate,
			wantVars: []string{"dir", "platform", "isopack"},
		},
		{
			name:     "resource without dir",
			pattern:  DefaultResourceTemplate,
			wantVars: []string{"platform", "isopack"},
		},
		{
			name:    "unknown variable",
			pattern: "{dir}/{package}.js",
			wantErr: true,
		},
		{
			name:    "empty",
			pattern: "",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl, err := ParseTemplate(tt.pattern)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseTemplate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if tmpl.Pattern() != tt.pattern {
				t.Errorf("Pattern() = %q", tmpl.Pattern())
			}
			if !reflect.DeepEqual(tmpl.Variables(), tt.wantVars) {
				t.Errorf("Variables() = %v, want %v", tmpl.Variables(), tt.wantVars)
			}
		})
	}
}

func TestTemplateExpand(t *testing.T) {
	tests := []struct {
		pattern string
		want    string
	}{
		{DefaultSourceTemplate, "/app/.meteor/local/isopacks/vendor_widgets/web.browser/packages/vendor_widgets.js"},
		{DefaultSidecarTemplate, "/app/.meteor/local/isopacks/vendor_widgets/web.browser.json"},
		{DefaultResourceTemplate, "web.browser/packages/vendor_widgets.js"},
	}
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			tmpl, err := ParseTemplate(tt.pattern)
			if err != nil {
				t.Fatal(err)
			}
			got := tmpl.Expand("/app/.meteor/local/isopacks/vendor_widgets", "web.browser", "vendor_widgets")
			if got != tt.want {
				t.Errorf("Expand() = %q, want %q", got, tt.want)
			}
		})
	}
}

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

package source

import "testing"

func TestRole(t *testing.T) {
	c := DefaultClassifier()
	tests := []struct {
		name string
		pkg  string
		rel  string
		want Role
	}{
		{"module entry", "vendor:ui", "button.module.js", RoleEntry},
		{"coffee entry", "vendor:ui", "lib/app.module.coffee.js", RoleEntry},
		{"entry infix", "pkgA", "a.entry.js", RoleEntry},
		{"manifest", "vendor:ui", "npm.json", RoleManifest},
		{"nested manifest", "vendor:ui", "lib/npm.json", RoleManifest},
		{"plain script", "vendor:ui", "lib/helper.js", RoleModule},
		{"stylesheet", "vendor:ui", "styles/main.css", RoleModule},
		{"shader", "vendor:ui", "shaders/fade.glsl", RoleModule},
		{"jsx", "vendor:ui", "view.jsx", RoleModule},
		{"unknown extension", "vendor:ui", "README.md", RoleIgnored},
		{"hidden file", "vendor:ui", ".eslintrc.js", RoleIgnored},
		{"hidden dir", "vendor:ui", ".cache/x.js", RoleIgnored},
		{"node_modules", "vendor:ui", "node_modules/left-pad/index.js", RoleIgnored},
		{"core shared chunk", "rocket:module", "shared-modules.js", RoleIgnored},
		{"shared chunk name elsewhere", "vendor:ui", "shared-modules.js", RoleModule},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Role(tt.pkg, tt.rel); got != tt.want {
				t.Errorf("Role(%q, %q) = %v, want %v", tt.pkg, tt.rel, got, tt.want)
			}
		})
	}
}

func TestAppliesTo(t *testing.T) {
	c := DefaultClassifier()
	tests := []struct {
		rel     string
		server  bool
		browser bool
	}{
		{"lib/shared.js", true, true},
		{"server/db.js", true, false},
		{"client/view.js", false, true},
		{"lib/db.server.js", true, false},
		{"lib/view.client.js", false, true},
		{"server/client/odd.js", true, true},
		{"serverless.js", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.rel, func(t *testing.T) {
			if got := c.AppliesTo(tt.rel, Server); got != tt.server {
				t.Errorf("AppliesTo(%q, os) = %v, want %v", tt.rel, got, tt.server)
			}
			if got := c.AppliesTo(tt.rel, Browser); got != tt.browser {
				t.Errorf("AppliesTo(%q, web.browser) = %v, want %v", tt.rel, got, tt.browser)
			}
		})
	}
}

func TestIsServer(t *testing.T) {
	for p, want := range map[Platform]bool{
		"os":              true,
		"os.linux.x86_64": true,
		"osx":             false,
		"web.browser":     false,
		"web.cordova":     false,
	} {
		if got := p.IsServer(); got != want {
			t.Errorf("%q.IsServer() = %v, want %v", p, got, want)
		}
	}
}

func TestIsImportChain(t *testing.T) {
	c := DefaultClassifier()
	c.Ignore = []string{"lib/index.js", "**/reexports/*.js"}
	tests := []struct {
		rel  string
		want bool
	}{
		{"imports/startup.js", true},
		{"client/imports/routes.js", true},
		{"imports.js", false},
		{"lib/index.js", true},
		{"lib/other.js", false},
		{"a/b/reexports/all.js", true},
	}
	for _, tt := range tests {
		if got := c.IsImportChain(tt.rel); got != tt.want {
			t.Errorf("IsImportChain(%q) = %v, want %v", tt.rel, got, tt.want)
		}
	}
}

func TestSectionName(t *testing.T) {
	app := &Package{}
	pkg := &Package{Name: "vendor:ui"}
	if got := SectionName(app, "client/main.js"); got != "client/main.js" {
		t.Errorf("app section = %q", got)
	}
	if got := SectionName(pkg, "button.module.js"); got != "packages/vendor:ui/button.module.js" {
		t.Errorf("package section = %q", got)
	}
	if got := pkg.IsopackName(); got != "vendor_ui" {
		t.Errorf("IsopackName() = %q", got)
	}
}

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
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"bennypowers.dev/rocketmod/fs"
	"bennypowers.dev/rocketmod/source"
	"bennypowers.dev/rocketmod/stage"
)

// fakeWebpack writes the entry and the shared chunk, then prints stats.
const fakeWebpack = `
cfg="$1"
dir=$(dirname "$cfg")
mkdir -p "$dir/built/pkg-a"
printf 'compiled-a' > "$dir/built/pkg-a/a.entry.js"
printf 'shared' > "$dir/built/shared-modules.js"
cat <<'JSON'
{
  "errors": [
    "Module not found: Error: Cannot resolve module 'glslify' in /s/node_modules/famous",
    {"message": "Unexpected token", "moduleName": "./packages/pkg-a/bad.js"}
  ],
  "warnings": ["big"],
  "modules": [
    {"name": "./packages/pkg-a/a.entry.js"},
    {"name": "./~/css-loader!./packages/pkg-a/style.css"},
    {"name": "./~/left-pad/index.js"}
  ]
}
JSON
`

func TestExternalBundle(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig(source.Browser, dir, stage.EntryMap{"pkg-a/a.entry.js": "./packages/pkg-a/a.entry.js"}, nil)
	ext := NewExternal(fs.NewOSFileSystem(), []string{"sh", "-c", fakeWebpack, "sh"}, nil)

	out, err := ext.Bundle(context.Background(), &cfg)
	if err != nil {
		t.Fatal(err)
	}
	if string(out.Entries["pkg-a/a.entry.js"]) != "compiled-a" || string(out.Shared) != "shared" {
		t.Errorf("outputs = %q, shared = %q", out.Entries, out.Shared)
	}
	if !out.IsIncluded("pkg-a", "a.entry.js") || !out.IsIncluded("pkg-a", "style.css") {
		t.Errorf("included = %v", out.Included)
	}
	if len(out.Included) != 2 {
		t.Errorf("installed modules leaked into the inclusion report: %v", out.Included)
	}

	filter, _ := NewFilter(cfg.Allow)
	failures := filter.Failures(out.Diagnostics)
	if len(failures) != 1 || failures[0].Text != "Unexpected token" || failures[0].File != "./packages/pkg-a/bad.js" {
		t.Errorf("failures = %v", failures)
	}

	data, err := os.ReadFile(filepath.Join(dir, ConfigFile))
	if err != nil {
		t.Fatal(err)
	}
	var written Config
	if err := json.Unmarshal(data, &written); err != nil {
		t.Fatal(err)
	}
	if written.Entry["pkg-a/a.entry.js"] != "./packages/pkg-a/a.entry.js" || written.SharedChunk != DefaultSharedChunk {
		t.Errorf("config file = %s", data)
	}
}

func TestExternalUnreadableStats(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig(source.Browser, dir, stage.EntryMap{"pkg-a/a.entry.js": "./packages/pkg-a/a.entry.js"}, nil)
	ext := NewExternal(fs.NewOSFileSystem(), []string{"sh", "-c", "echo 'webpack: command not found' >&2; exit 127", "sh"}, nil)

	out, err := ext.Bundle(context.Background(), &cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Diagnostics) != 1 || out.Diagnostics[0].Text != "webpack: command not found" {
		t.Errorf("diagnostics = %v", out.Diagnostics)
	}
}

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

package version

import (
	"runtime"
	"testing"
)

func TestGetVersion(t *testing.T) {
	saved := [...]string{Version, GitCommit, GitTag, GitDirty}
	t.Cleanup(func() { Version, GitCommit, GitTag, GitDirty = saved[0], saved[1], saved[2], saved[3] })

	tests := []struct {
		name    string
		version string
		commit  string
		tag     string
		dirty   string
		want    string
	}{
		{"ldflags", "v1.2.0", "abcdef0123", "v1.2.0", "", "v1.2.0"},
		{"tag and commit", "dev", "abcdef0123", "v1.1.0", "", "v1.1.0-abcdef0"},
		{"tag already names commit", "dev", "abcdef0", "v1.1.0-abcdef0", "", "v1.1.0-abcdef0"},
		{"dirty", "dev", "abcdef0123", "v1.1.0", "dirty", "v1.1.0-abcdef0-dirty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Version, GitCommit, GitTag, GitDirty = tt.version, tt.commit, tt.tag, tt.dirty
			got := GetVersion()
			// Test binaries carry no module version, so build info never
			// takes precedence here.
			if got != tt.want {
				t.Errorf("GetVersion() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGet(t *testing.T) {
	info := Get()
	if info.Go != runtime.Version() {
		t.Errorf("Go = %q", info.Go)
	}
	if info.Version == "" {
		t.Error("empty version")
	}
}

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

package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestLevels(t *testing.T) {
	tests := []struct {
		level     Level
		wantDebug bool
		wantInfo  bool
	}{
		{LevelQuiet, false, false},
		{LevelNormal, false, true},
		{LevelVerbose, true, true},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		l := New(&buf, tt.level)
		l.Debug("debug %d", 1)
		l.Info("info %d", 2)
		l.Warning("warn %d", 3)
		out := buf.String()
		if got := strings.Contains(out, "debug 1"); got != tt.wantDebug {
			t.Errorf("level %d: debug logged = %v", tt.level, got)
		}
		if got := strings.Contains(out, "info 2"); got != tt.wantInfo {
			t.Errorf("level %d: info logged = %v", tt.level, got)
		}
		if !strings.Contains(out, "warn 3") {
			t.Errorf("level %d: warning dropped", tt.level)
		}
	}
}

func TestWithAddsField(t *testing.T) {
	var buf bytes.Buffer
	var l Logger = NewJSON(&buf, LevelNormal)
	With(l, "platform", "os").Info("staged %d files", 3)

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("not JSON: %q", buf.String())
	}
	if line["platform"] != "os" || line["message"] != "staged 3 files" {
		t.Errorf("line = %v", line)
	}
}

func TestWithNil(t *testing.T) {
	if With(nil, "k", "v") != nil {
		t.Error("With(nil) must stay nil")
	}
}

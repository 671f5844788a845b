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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	rfs "bennypowers.dev/rocketmod/fs"
	"bennypowers.dev/rocketmod/internal/command"
)

// ConfigFile is the name the external backend writes the configuration to,
// inside the platform staging directory.
const ConfigFile = "rocketmod.bundle.json"

// External runs a separate bundler process, such as a small webpack wrapper
// script. The process receives the path of the JSON-encoded Config as its
// last argument, writes outputs into OutDir named by entry key, and prints
// webpack-style stats JSON to stdout:
//
//	{"errors": [...], "warnings": [...], "modules": [{"name": "./packages/..."}]}
//
// Errors and warnings may be strings or objects with a "message" field.
type External struct {
	fs      rfs.FileSystem
	command []string
	env     []string
}

// NewExternal returns a backend running argv.
func NewExternal(fsys rfs.FileSystem, argv []string, env []string) *External {
	return &External{fs: fsys, command: argv, env: env}
}

type externalStats struct {
	Errors   []json.RawMessage `json:"errors"`
	Warnings []json.RawMessage `json:"warnings"`
	Modules  []struct {
		Name string `json:"name"`
	} `json:"modules"`
}

type externalMessage struct {
	Message    string `json:"message"`
	ModuleName string `json:"moduleName"`
	File       string `json:"file"`
}

func (e *External) Bundle(ctx context.Context, cfg *Config) (*Output, error) {
	if len(e.command) == 0 {
		return nil, errors.New("no bundler command configured")
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding bundler config: %w", err)
	}
	cfgPath := filepath.Join(cfg.Context, ConfigFile)
	if err := e.fs.WriteFile(cfgPath, data, 0644); err != nil {
		return nil, fmt.Errorf("writing bundler config: %w", err)
	}
	if err := e.fs.MkdirAll(cfg.OutDir, 0755); err != nil {
		return nil, err
	}

	argv := append(append([]string(nil), e.command...), cfgPath)
	res, err := command.Run(ctx, argv, e.env, nil)
	if err != nil {
		return nil, err
	}

	out := &Output{Entries: map[string][]byte{}, Included: map[string]bool{}}
	var st externalStats
	if err := json.Unmarshal(bytes.TrimSpace(res.Stdout), &st); err != nil {
		text := strings.TrimSpace(string(res.Output()))
		if text == "" {
			text = fmt.Sprintf("unreadable bundler stats: %v", err)
		}
		out.Diagnostics = append(out.Diagnostics, Diagnostic{Text: text})
		return out, nil
	}
	out.Diagnostics = append(out.Diagnostics, decodeMessages(st.Errors, false)...)
	out.Diagnostics = append(out.Diagnostics, decodeMessages(st.Warnings, true)...)
	if res.ExitCode != 0 && len(st.Errors) == 0 {
		out.Diagnostics = append(out.Diagnostics, Diagnostic{
			Text: fmt.Sprintf("%s exited with status %d", e.command[0], res.ExitCode),
		})
	}

	for _, m := range st.Modules {
		name := m.Name
		if i := strings.LastIndexByte(name, '!'); i >= 0 {
			name = name[i+1:]
		}
		name = strings.TrimPrefix(name, "./")
		if strings.HasPrefix(name, "packages/") {
			out.Included[name] = true
		}
	}

	for key := range cfg.Entry {
		compiled, err := e.fs.ReadFile(filepath.Join(cfg.OutDir, filepath.FromSlash(key)))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out.Entries[key] = compiled
	}
	shared, err := e.fs.ReadFile(filepath.Join(cfg.OutDir, cfg.SharedChunk))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	out.Shared = shared
	return out, nil
}

func decodeMessages(raw []json.RawMessage, warning bool) []Diagnostic {
	out := make([]Diagnostic, 0, len(raw))
	for _, r := range raw {
		var text string
		if err := json.Unmarshal(r, &text); err == nil {
			out = append(out, Diagnostic{Text: text, Warning: warning})
			continue
		}
		var m externalMessage
		if err := json.Unmarshal(r, &m); err != nil {
			out = append(out, Diagnostic{Text: string(r), Warning: warning})
			continue
		}
		file := m.File
		if file == "" {
			file = m.ModuleName
		}
		out = append(out, Diagnostic{Text: m.Message, File: file, Warning: warning})
	}
	return out
}

var _ Bundler = (*External)(nil)

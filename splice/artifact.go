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

// Package splice parses the concatenated per-platform build artifacts the
// host produces and writes compiled bundles back into them.
//
// An artifact is a sequence of sections, each introduced by a boxed banner
// naming the file it came from:
//
//	(function () {                       optional closure prologue
//
//	//////////////////////////////////   rule: three or more slashes
//	//                              //   pad
//	// packages/vendor:pkg/file.js  //   name line: first token is the name
//	// optional information         //   zero or more info lines
//	//                              //   pad
//	//////////////////////////////////   rule
//	                                //   gutter
//	body ...
//	//////////////////////////////////   closing rule
//
//	}).call(this);                       epilogue, absent for bare sections
//
// Everything outside section bodies is preserved byte for byte.
package splice

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSectionNotFound is returned when no section carries a requested name.
	ErrSectionNotFound = errors.New("section not found")
	// ErrMalformedSection is returned for a banner without a closing rule.
	ErrMalformedSection = errors.New("malformed section")
	// ErrDuplicateSection is returned when two sections carry the same name.
	ErrDuplicateSection = errors.New("duplicate section")
)

const epilogue = "}).call(this);"

// Section locates one file's region within an artifact. Offsets are bytes.
type Section struct {
	Name string   `json:"name" yaml:"name"`
	Info []string `json:"info,omitempty" yaml:"info,omitempty"`
	// Start is the offset of the opening rule; Length runs through the
	// closing rule's newline.
	Start  int `json:"offset" yaml:"offset"`
	Length int `json:"length" yaml:"length"`
	// BodyStart and BodyLength delimit the file's code.
	BodyStart  int  `json:"bodyOffset" yaml:"bodyOffset"`
	BodyLength int  `json:"bodyLength" yaml:"bodyLength"`
	Bare       bool `json:"bare,omitempty" yaml:"bare,omitempty"`
}

// Artifact is a parsed artifact.
type Artifact struct {
	data     []byte
	Sections []Section
}

type line struct {
	start, end int // end excludes the newline
	next       int // offset of the following line
}

func (l line) text(data []byte) string {
	return strings.TrimSuffix(string(data[l.start:l.end]), "\r")
}

func splitLines(data []byte) []line {
	var lines []line
	for start := 0; start < len(data); {
		end := bytes.IndexByte(data[start:], '\n')
		if end < 0 {
			lines = append(lines, line{start: start, end: len(data), next: len(data)})
			break
		}
		lines = append(lines, line{start: start, end: start + end, next: start + end + 1})
		start += end + 1
	}
	return lines
}

func isRule(s string) bool {
	return len(s) >= 3 && strings.Trim(s, "/") == ""
}

// isBoxed reports whether s is "//" + inner + "//" and returns inner.
func isBoxed(s string) (string, bool) {
	if len(s) < 4 || !strings.HasPrefix(s, "//") || !strings.HasSuffix(s, "//") {
		return "", false
	}
	return s[2 : len(s)-2], true
}

func isPad(s string) bool {
	inner, ok := isBoxed(s)
	return ok && strings.TrimSpace(inner) == "" && !isRule(s)
}

// nameOf returns the name on a name line.
func nameOf(s string) (string, bool) {
	inner, ok := isBoxed(s)
	if !ok || !strings.HasPrefix(inner, " ") {
		return "", false
	}
	fields := strings.Fields(inner)
	if len(fields) == 0 {
		return "", false
	}
	return fields[0], true
}

func isGutter(s string) bool {
	trimmed := strings.TrimLeft(s, " ")
	return trimmed == "//" && len(s) > len(trimmed)
}

// header matches a banner starting at lines[i]. It returns the section name,
// info lines and the index of the first body line.
func header(data []byte, lines []line, i int) (name string, info []string, body int, ok bool) {
	at := func(j int) string {
		if j >= len(lines) {
			return ""
		}
		return lines[j].text(data)
	}
	if !isRule(at(i)) || !isPad(at(i+1)) {
		return "", nil, 0, false
	}
	name, ok = nameOf(at(i + 2))
	if !ok {
		return "", nil, 0, false
	}
	j := i + 3
	for j < len(lines) && !isPad(at(j)) {
		inner, boxed := isBoxed(at(j))
		if !boxed || isRule(at(j)) {
			return "", nil, 0, false
		}
		info = append(info, strings.TrimSpace(inner))
		j++
	}
	if !isPad(at(j)) || !isRule(at(j+1)) || !isGutter(at(j+2)) {
		return "", nil, 0, false
	}
	return name, info, j + 3, true
}

// Parse locates every section of data.
func Parse(data []byte) (*Artifact, error) {
	lines := splitLines(data)
	type banner struct {
		name  string
		info  []string
		first int // first banner line
		body  int // first body line
	}
	var banners []banner
	for i := 0; i < len(lines); i++ {
		name, info, body, ok := header(data, lines, i)
		if !ok {
			continue
		}
		banners = append(banners, banner{name: name, info: info, first: i, body: body})
		i = body - 1
	}

	a := &Artifact{data: data}
	seen := make(map[string]bool, len(banners))
	for k, b := range banners {
		limit := len(lines)
		if k+1 < len(banners) {
			limit = banners[k+1].first
		}
		closing := -1
		for j := limit - 1; j >= b.body; j-- {
			if isRule(lines[j].text(data)) {
				closing = j
				break
			}
		}
		if closing < 0 {
			return nil, fmt.Errorf("%w: %s has no closing rule", ErrMalformedSection, b.name)
		}
		if seen[b.name] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSection, b.name)
		}
		seen[b.name] = true

		bodyStart := len(data)
		if b.body < len(lines) {
			bodyStart = lines[b.body].start
		}
		trailerEnd := len(data)
		if limit < len(lines) {
			trailerEnd = lines[limit].start
		}
		start := lines[b.first].start
		a.Sections = append(a.Sections, Section{
			Name:       b.name,
			Info:       b.info,
			Start:      start,
			Length:     lines[closing].next - start,
			BodyStart:  bodyStart,
			BodyLength: lines[closing].start - bodyStart,
			Bare:       !bytes.Contains(data[lines[closing].next:trailerEnd], []byte(epilogue)),
		})
	}
	return a, nil
}

// Bytes returns the artifact's content.
func (a *Artifact) Bytes() []byte { return a.data }

// Section returns the section named name.
func (a *Artifact) Section(name string) (Section, bool) {
	for _, s := range a.Sections {
		if s.Name == name {
			return s, true
		}
	}
	return Section{}, false
}

// Body returns the body of the section named name.
func (a *Artifact) Body(name string) ([]byte, bool) {
	s, ok := a.Section(name)
	if !ok {
		return nil, false
	}
	return a.data[s.BodyStart : s.BodyStart+s.BodyLength], true
}

// Replace returns a new artifact whose named sections carry the given
// bodies. A non-empty body is given a trailing newline so the closing rule
// stays on its own line. Nothing is replaced unless every name is found.
func (a *Artifact) Replace(bodies map[string][]byte) (*Artifact, error) {
	for name := range bodies {
		if _, ok := a.Section(name); !ok {
			return nil, fmt.Errorf("%w: %s", ErrSectionNotFound, name)
		}
	}

	var buf bytes.Buffer
	buf.Grow(len(a.data))
	out := &Artifact{Sections: make([]Section, 0, len(a.Sections))}
	prev := 0
	shift := 0
	for _, s := range a.Sections {
		ns := s
		ns.Start += shift
		ns.BodyStart += shift
		body, replace := bodies[s.Name]
		if !replace {
			out.Sections = append(out.Sections, ns)
			continue
		}
		if len(body) > 0 && body[len(body)-1] != '\n' {
			body = append(body[:len(body):len(body)], '\n')
		}
		buf.Write(a.data[prev:s.BodyStart])
		buf.Write(body)
		prev = s.BodyStart + s.BodyLength

		delta := len(body) - s.BodyLength
		ns.BodyLength = len(body)
		ns.Length += delta
		shift += delta
		out.Sections = append(out.Sections, ns)
	}
	buf.Write(a.data[prev:])
	out.data = buf.Bytes()
	return out, nil
}

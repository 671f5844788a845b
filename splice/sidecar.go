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

package splice

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path"
)

// ErrResourceNotFound is returned when a sidecar lists no resource for the
// artifact being spliced.
var ErrResourceNotFound = errors.New("sidecar resource not found")

// Sidecar is the metadata document that sits next to a platform's
// artifacts. Fields this package does not touch survive a round trip.
type Sidecar struct {
	fields    map[string]json.RawMessage
	Resources []map[string]json.RawMessage
}

// ParseSidecar decodes a sidecar document.
func ParseSidecar(data []byte) (*Sidecar, error) {
	s := &Sidecar{}
	if err := json.Unmarshal(data, &s.fields); err != nil {
		return nil, fmt.Errorf("decoding sidecar: %w", err)
	}
	if raw, ok := s.fields["resources"]; ok {
		if err := json.Unmarshal(raw, &s.Resources); err != nil {
			return nil, fmt.Errorf("decoding sidecar resources: %w", err)
		}
	}
	return s, nil
}

func stringField(r map[string]json.RawMessage, key string) string {
	var v string
	if raw, ok := r[key]; ok {
		_ = json.Unmarshal(raw, &v)
	}
	return v
}

func setInt(r map[string]json.RawMessage, key string, v int) {
	r[key] = json.RawMessage(fmt.Sprint(v))
}

// Update rewrites the lengths recorded for resource, the artifact's path
// relative to the sidecar. A resource naming a section gets that section's
// body offset and length; otherwise it gets the whole artifact's length.
func (s *Sidecar) Update(resource string, a *Artifact) error {
	want := path.Clean(resource)
	matched := false
	for _, r := range s.Resources {
		if path.Clean(stringField(r, "file")) != want {
			continue
		}
		matched = true
		if name := stringField(r, "section"); name != "" {
			sec, ok := a.Section(name)
			if !ok {
				return fmt.Errorf("%w: %s", ErrSectionNotFound, name)
			}
			setInt(r, "offset", sec.BodyStart)
			setInt(r, "length", sec.BodyLength)
			continue
		}
		setInt(r, "length", len(a.Bytes()))
	}
	if !matched {
		return fmt.Errorf("%w: %s", ErrResourceNotFound, resource)
	}
	return nil
}

// Marshal encodes the sidecar with two-space indentation.
func (s *Sidecar) Marshal() ([]byte, error) {
	if s.Resources != nil {
		raw, err := json.Marshal(s.Resources)
		if err != nil {
			return nil, err
		}
		s.fields["resources"] = raw
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s.fields); err != nil {
		return nil, fmt.Errorf("encoding sidecar: %w", err)
	}
	return buf.Bytes(), nil
}

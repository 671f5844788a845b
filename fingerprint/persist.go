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

package fingerprint

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"

	"github.com/fxamacker/cbor/v2"

	rfs "bennypowers.dev/rocketmod/fs"
	"bennypowers.dev/rocketmod/source"
)

// FileName is the store's file name inside the staging root.
const FileName = ".fingerprints.cbor"

const formatVersion = 1

var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("fingerprint: CBOR encoder initialization failed: " + err.Error())
	}
}

type record struct {
	Platform    string `cbor:"1,keyasint"`
	StagingName string `cbor:"2,keyasint"`
	Path        string `cbor:"3,keyasint"`
	Fingerprint string `cbor:"4,keyasint"`
}

type document struct {
	Version int      `cbor:"1,keyasint"`
	Records []record `cbor:"2,keyasint"`
}

// ErrUnsupportedVersion is returned by Load for stores written by a newer format.
var ErrUnsupportedVersion = errors.New("unsupported fingerprint store version")

// Load reads a store saved by Save. A missing file yields an empty store.
func Load(fsys rfs.FileSystem, path string) (*MemoryStore, error) {
	s := NewMemoryStore()
	data, err := fsys.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading fingerprint store: %w", err)
	}
	var doc document
	if err := cbor.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding fingerprint store %s: %w", path, err)
	}
	if doc.Version != formatVersion {
		return nil, fmt.Errorf("%s: %w %d", path, ErrUnsupportedVersion, doc.Version)
	}
	for _, r := range doc.Records {
		s.records[Key{Platform: source.Platform(r.Platform), StagingName: r.StagingName, Path: r.Path}] = r.Fingerprint
	}
	return s, nil
}

// Save writes the store to path. Records are sorted, so equal stores
// produce identical bytes.
func (s *MemoryStore) Save(fsys rfs.FileSystem, path string) error {
	s.mu.RLock()
	doc := document{Version: formatVersion, Records: make([]record, 0, len(s.records))}
	for key, fp := range s.records {
		doc.Records = append(doc.Records, record{
			Platform:    string(key.Platform),
			StagingName: key.StagingName,
			Path:        key.Path,
			Fingerprint: fp,
		})
	}
	s.mu.RUnlock()

	slices.SortFunc(doc.Records, func(a, b record) int {
		return cmp.Or(
			cmp.Compare(a.Platform, b.Platform),
			cmp.Compare(a.StagingName, b.StagingName),
			cmp.Compare(a.Path, b.Path),
		)
	})
	data, err := encMode.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding fingerprint store: %w", err)
	}
	if err := fsys.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return rfs.WriteFileAtomic(fsys, path, data, 0644)
}

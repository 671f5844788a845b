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

// Package fingerprint tracks the content fingerprint each staged file was
// last written with, so unchanged files are not rewritten on rebuild.
package fingerprint

import (
	"encoding/hex"
	"sync"

	"github.com/zeebo/blake3"

	"bennypowers.dev/rocketmod/source"
)

// domainKey separates staging fingerprints from any other BLAKE3 use of the
// same bytes. ASCII, zero-padded to the 32 bytes keyed mode requires.
var domainKey = [32]byte{
	'r', 'o', 'c', 'k', 'e', 't', 'm', 'o', 'd', '.',
	'f', 'i', 'n', 'g', 'e', 'r', 'p', 'r', 'i', 'n', 't',
}

// Of returns the hex fingerprint of data.
func Of(data []byte) string {
	hasher, err := blake3.NewKeyed(domainKey[:])
	if err != nil {
		panic("fingerprint: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	_, _ = hasher.Write(data)
	return hex.EncodeToString(hasher.Sum(nil))
}

// Key identifies one staged file.
type Key struct {
	Platform    source.Platform
	StagingName string
	Path        string
}

// Store decides whether a file changed since it was last staged.
type Store interface {
	// IsModified reports whether fp differs from the fingerprint recorded
	// for key. A key with no record is always modified.
	IsModified(key Key, fp string) bool
	// Record stores fp as key's last-written fingerprint.
	Record(key Key, fp string)
}

// MemoryStore is a Store safe for concurrent use. Keys are namespaced by
// platform, so per-platform passes may share one store.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[Key]string
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[Key]string)}
}

func (s *MemoryStore) IsModified(key Key, fp string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	prev, ok := s.records[key]
	return !ok || prev != fp
}

func (s *MemoryStore) Record(key Key, fp string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = fp
}

// Len returns the number of records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Prune drops every record for which keep returns false and returns how many
// were dropped.
func (s *MemoryStore) Prune(keep func(Key) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	dropped := 0
	for key := range s.records {
		if !keep(key) {
			delete(s.records, key)
			dropped++
		}
	}
	return dropped
}


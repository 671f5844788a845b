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
	"bytes"
	"testing"

	"bennypowers.dev/rocketmod/internal/mapfs"
	"bennypowers.dev/rocketmod/source"
)

func TestOf(t *testing.T) {
	a := Of([]byte("export default 1;\n"))
	b := Of([]byte("export default 2;\n"))
	if a == b {
		t.Fatal("different content produced the same fingerprint")
	}
	if a != Of([]byte("export default 1;\n")) {
		t.Fatal("fingerprint is not deterministic")
	}
	if len(a) != 64 {
		t.Errorf("len(Of()) = %d, want 64 hex chars", len(a))
	}
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	key := Key{Platform: source.Browser, StagingName: "pkg-a", Path: "a.entry.js"}
	fp := Of([]byte("a"))

	if !s.IsModified(key, fp) {
		t.Fatal("first lookup must report modified")
	}
	s.Record(key, fp)
	if s.IsModified(key, fp) {
		t.Fatal("recorded fingerprint reported modified")
	}
	if !s.IsModified(key, Of([]byte("b"))) {
		t.Fatal("changed fingerprint reported unmodified")
	}

	other := key
	other.Platform = source.Server
	if !s.IsModified(other, fp) {
		t.Fatal("records leaked across platforms")
	}
}

func TestPrune(t *testing.T) {
	s := NewMemoryStore()
	s.Record(Key{Platform: source.Server, StagingName: "pkg-a", Path: "x.js"}, "1")
	s.Record(Key{Platform: source.Server, StagingName: "pkg-a", Path: "y.js"}, "2")
	s.Record(Key{Platform: source.Browser, StagingName: "pkg-a", Path: "x.js"}, "3")

	dropped := s.Prune(func(k Key) bool { return k.Platform == source.Browser })
	if dropped != 2 {
		t.Errorf("Prune dropped %d, want 2", dropped)
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}

func TestSaveLoad(t *testing.T) {
	mfs := mapfs.New()
	path := "/project/.rocketmod/" + FileName

	empty, err := Load(mfs, path)
	if err != nil {
		t.Fatalf("Load on missing file: %v", err)
	}
	if empty.Len() != 0 {
		t.Fatalf("missing store has %d records", empty.Len())
	}

	s := NewMemoryStore()
	k1 := Key{Platform: source.Server, StagingName: "pkg-rocket_cmodule", Path: "lib/a.js"}
	k2 := Key{Platform: source.Browser, StagingName: "app", Path: "client/main.module.js"}
	s.Record(k1, "aa")
	s.Record(k2, "bb")
	if err := s.Save(mfs, path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	first, _ := mfs.ReadFile(path)

	loaded, err := Load(mfs, path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.IsModified(k1, "aa") || loaded.IsModified(k2, "bb") {
		t.Error("loaded store lost records")
	}
	if err := loaded.Save(mfs, path); err != nil {
		t.Fatalf("second Save: %v", err)
	}
	second, _ := mfs.ReadFile(path)
	if !bytes.Equal(first, second) {
		t.Error("saving an equal store produced different bytes")
	}
}

func TestLoadCorrupt(t *testing.T) {
	mfs := mapfs.New()
	mfs.AddFile("/s/"+FileName, "\xff\x00", 0644)
	if _, err := Load(mfs, "/s/"+FileName); err == nil {
		t.Fatal("expected an error for a corrupt store")
	}
}

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

// Package stagename maps logical package identities to names that are safe
// both as directory names and as npm package names.
package stagename

import (
	"strings"
)

// Root is the staging name of the anonymous root application. No named
// identity maps to it, since every named result carries Prefix.
const Root = "app"

// Prefix starts every staging name derived from a named identity. npm refuses
// names that begin with "." or "_", so escaping alone is not enough.
const Prefix = "pkg-"

const hexDigits = "0123456789abcdef"

// NameFor returns the staging name of identity. The mapping is injective:
// lower-case letters, digits, "." and "-" pass through, and every other byte
// becomes a "_"-led escape whose second byte determines its length.
func NameFor(identity string) string {
	if identity == "" {
		return Root
	}
	var b strings.Builder
	b.Grow(len(Prefix) + len(identity))
	b.WriteString(Prefix)
	for i := 0; i < len(identity); i++ {
		c := identity[i]
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '.', c == '-':
			b.WriteByte(c)
		case c == '_':
			b.WriteString("__")
		case c == ':':
			b.WriteString("_c")
		case c == '/':
			b.WriteString("_s")
		case c == '@':
			b.WriteString("_a")
		default:
			b.WriteString("_x")
			b.WriteByte(hexDigits[c>>4])
			b.WriteByte(hexDigits[c&0x0f])
		}
	}
	return b.String()
}

// IdentityFor inverts NameFor. It reports false for strings NameFor never
// produces.
func IdentityFor(name string) (string, bool) {
	if name == Root {
		return "", true
	}
	rest, ok := strings.CutPrefix(name, Prefix)
	if !ok || rest == "" {
		return "", false
	}
	var b strings.Builder
	for i := 0; i < len(rest); i++ {
		c := rest[i]
		if c != '_' {
			b.WriteByte(c)
			continue
		}
		if i+1 >= len(rest) {
			return "", false
		}
		i++
		switch rest[i] {
		case '_':
			b.WriteByte('_')
		case 'c':
			b.WriteByte(':')
		case 's':
			b.WriteByte('/')
		case 'a':
			b.WriteByte('@')
		case 'x':
			if i+2 >= len(rest) {
				return "", false
			}
			hi := strings.IndexByte(hexDigits, rest[i+1])
			lo := strings.IndexByte(hexDigits, rest[i+2])
			if hi < 0 || lo < 0 {
				return "", false
			}
			b.WriteByte(byte(hi<<4 | lo))
			i += 2
		default:
			return "", false
		}
	}
	return b.String(), true
}

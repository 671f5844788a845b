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

package jsmod

import (
	"cmp"
	"slices"

	ts "github.com/tree-sitter/go-tree-sitter"
)

// Kind tells how a module is imported.
type Kind int

const (
	Static Kind = iota
	Dynamic
	Reexport
	Require
)

// Import is one module specifier referenced by a script.
type Import struct {
	Specifier string
	Kind      Kind
	Line      int // 1-indexed
}

// Imports returns the module specifiers the script at p references, in
// source order. Files that are not scripts have none.
func Imports(p string, content []byte) ([]Import, error) {
	d, ok := dialectFor(p)
	if !ok {
		return nil, nil
	}
	query, err := importQuery(d)
	if err != nil {
		return nil, err
	}

	var imports []Import
	err = parse(d, content, func(tree *ts.Tree) error {
		cursor := ts.NewQueryCursor()
		defer cursor.Close()

		matches := cursor.Matches(query, tree.RootNode(), content)
		captureNames := query.CaptureNames()
		for {
			match := matches.Next()
			if match == nil {
				break
			}
			var fn string
			for _, capture := range match.Captures {
				if captureNames[capture.Index] == "require.fn" {
					fn = capture.Node.Utf8Text(content)
				}
			}
			for _, capture := range match.Captures {
				imp := Import{
					Specifier: capture.Node.Utf8Text(content),
					Line:      int(capture.Node.StartPosition().Row) + 1,
				}
				switch captureNames[capture.Index] {
				case "import.spec":
					imp.Kind = Static
				case "dynamicImport.spec":
					imp.Kind = Dynamic
				case "reexport.spec":
					imp.Kind = Reexport
				case "require.spec":
					if fn != "require" {
						continue
					}
					imp.Kind = Require
				default:
					continue
				}
				imports = append(imports, imp)
			}
		}
		return nil
	})
	slices.SortStableFunc(imports, func(a, b Import) int { return cmp.Compare(a.Line, b.Line) })
	return imports, err
}

// IsImportChain reports whether the script at p only imports or re-exports
// other modules: every top-level statement is an import, a re-export, a
// directive or a comment, and there is at least one import or re-export.
// Scripts that fail to parse cleanly are not import chains.
func IsImportChain(p string, content []byte) (bool, error) {
	d, ok := dialectFor(p)
	if !ok {
		return false, nil
	}
	chain := false
	err := parse(d, content, func(tree *ts.Tree) error {
		root := tree.RootNode()
		if root.HasError() {
			return nil
		}
		links := 0
		for i := uint(0); i < root.NamedChildCount(); i++ {
			node := root.NamedChild(i)
			switch node.Kind() {
			case "comment", "empty_statement", "hash_bang_line":
			case "import_statement":
				links++
			case "export_statement":
				if node.ChildByFieldName("source") == nil {
					return nil
				}
				links++
			case "expression_statement":
				if !isDirective(node) {
					return nil
				}
			default:
				return nil
			}
		}
		chain = links > 0
		return nil
	})
	return chain, err
}

// isDirective reports whether an expression statement is a bare string
// such as "use strict".
func isDirective(node *ts.Node) bool {
	return node.NamedChildCount() == 1 && node.NamedChild(0).Kind() == "string"
}

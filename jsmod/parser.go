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

// Package jsmod inspects JavaScript modules with tree-sitter: which modules
// they import, and whether they do nothing but import.
package jsmod

import (
	_ "embed"
	"fmt"
	"path"
	"sync"

	ts "github.com/tree-sitter/go-tree-sitter"
	tsTypescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

//go:embed queries/imports.scm
var importsQuery string

// dialect selects a grammar. JSX needs the TSX grammar; everything else
// parses with the TypeScript grammar, a superset of JavaScript.
type dialect int

const (
	dialectTS dialect = iota
	dialectTSX
)

var languages = [...]*ts.Language{
	dialectTS:  ts.NewLanguage(tsTypescript.LanguageTypescript()),
	dialectTSX: ts.NewLanguage(tsTypescript.LanguageTSX()),
}

// Parser pools for reuse, one per dialect.
var parserPools = [...]*sync.Pool{
	dialectTS:  newParserPool(dialectTS),
	dialectTSX: newParserPool(dialectTSX),
}

func newParserPool(d dialect) *sync.Pool {
	return &sync.Pool{
		New: func() any {
			parser := ts.NewParser()
			if err := parser.SetLanguage(languages[d]); err != nil {
				panic("failed to set tree-sitter language: " + err.Error())
			}
			return parser
		},
	}
}

func getParser(d dialect) *ts.Parser {
	return parserPools[d].Get().(*ts.Parser)
}

func putParser(d dialect, p *ts.Parser) {
	p.Reset()
	parserPools[d].Put(p)
}

// Compiled queries, one per dialect, built on first use.
var (
	queries     [len(languages)]*ts.Query
	queriesOnce sync.Once
	queriesErr  error
)

func importQuery(d dialect) (*ts.Query, error) {
	queriesOnce.Do(func() {
		for i, lang := range languages {
			q, qerr := ts.NewQuery(lang, importsQuery)
			if qerr != nil {
				queriesErr = fmt.Errorf("failed to parse imports query: %w", qerr)
				return
			}
			queries[i] = q
		}
	})
	return queries[d], queriesErr
}

// dialectFor returns the grammar for the file at p, and false for files
// that are not scripts.
func dialectFor(p string) (dialect, bool) {
	switch path.Ext(p) {
	case ".js", ".mjs", ".cjs", ".ts":
		return dialectTS, true
	case ".jsx", ".tsx":
		return dialectTSX, true
	}
	return 0, false
}

// parse parses content and hands the tree to fn.
func parse(d dialect, content []byte, fn func(*ts.Tree) error) error {
	parser := getParser(d)
	defer putParser(d, parser)

	tree := parser.Parse(content, nil)
	if tree == nil {
		return fmt.Errorf("failed to parse content")
	}
	defer tree.Close()
	return fn(tree)
}

// Copyright © 2018 The ELPS authors

// Package parser turns document text into a lossless syntax tree.
package parser

import (
	"github.com/luthersystems/ctxengine/parser/lexer"
	"github.com/luthersystems/ctxengine/parser/rdparser"
	"github.com/luthersystems/ctxengine/parser/syntax"
)

// Parse lexes and parses text.  Trees parsed into the same arena share
// storage for unchanged subtrees; a nil arena allocates a fresh one.
func Parse(text string, arena *syntax.Arena) *syntax.Tree {
	return rdparser.Parse(lexer.Tokenize(text), arena)
}

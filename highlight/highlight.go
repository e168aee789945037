// Copyright © 2024 The ELPS authors

// Package highlight derives highlight spans from a syntax tree.
package highlight

import (
	"fmt"

	"github.com/luthersystems/ctxengine/parser/lexer"
	"github.com/luthersystems/ctxengine/parser/syntax"
	"github.com/luthersystems/ctxengine/parser/token"
)

// Kind is the highlight class of a span.
type Kind uint8

const (
	Keyword Kind = iota
	Command
	Option
	Text
	Comment
	Environment

	numKinds
)

var kindStrings = [numKinds]string{
	Keyword:     "Keyword",
	Command:     "Command",
	Option:      "Option",
	Text:        "Text",
	Comment:     "Comment",
	Environment: "Environment",
}

func (k Kind) String() string {
	if k >= numKinds {
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
	return kindStrings[k]
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if k >= numKinds {
		return nil, fmt.Errorf("invalid highlight kind: %d", uint8(k))
	}
	return []byte(kindStrings[k]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	for i, s := range kindStrings {
		if s == string(b) {
			*k = Kind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown highlight kind: %q", b)
}

// Span is a highlighted byte range of a document.
type Span struct {
	Range token.Span `json:"range" msgpack:"range"`
	Kind  Kind       `json:"kind" msgpack:"kind"`
}

// Extract returns the highlight spans of tree ordered by start offset.  The
// spans never overlap.  Whitespace is left unlabeled.
func Extract(tree *syntax.Tree) []Span {
	var spans []Span
	syntax.Leaves(tree.Root(), func(l syntax.Leaf, ancestors []syntax.Kind) {
		if l.Type() == token.WHITESPACE {
			return
		}
		kind := Text
		if !inErrorNode(ancestors) {
			kind = classify(l.Type(), l.Text())
		}
		spans = append(spans, Span{Range: l.Span(), Kind: kind})
	})
	return spans
}

func classify(typ token.Type, text string) Kind {
	switch typ {
	case token.KEYWORD:
		return Keyword
	case token.COMMAND:
		if len(text) > 1 && lexer.IsKeyword(text[1:]) {
			return Keyword
		}
		return Command
	case token.OPTION:
		return Option
	case token.COMMENT:
		return Comment
	case token.ENVIRONMENT:
		return Environment
	default:
		return Text
	}
}

func inErrorNode(ancestors []syntax.Kind) bool {
	for _, k := range ancestors {
		if k == syntax.ErrorNode {
			return true
		}
	}
	return false
}

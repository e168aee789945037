// Copyright © 2018 The ELPS authors

package token

import (
	"fmt"
	"strings"
)

// Token is a classified slice of document text.  Tokens are values and are
// never modified after the lexer produces them.
type Token struct {
	Type Type
	Text string
	Span Span
}

type Type uint8

// Type constants used by the lexer and parser.  Every byte of a document is
// covered by exactly one token, whitespace and comments included.
const (
	INVALID Type = iota
	ERROR

	KEYWORD
	COMMAND
	OPTION
	TEXT
	COMMENT
	ENVIRONMENT
	WHITESPACE

	numTokenTypes
)

func (typ Type) String() string {
	typeStrings := [numTokenTypes]string{
		INVALID:     "invalid",
		ERROR:       "error",
		KEYWORD:     "keyword",
		COMMAND:     "command",
		OPTION:      "option",
		TEXT:        "text",
		COMMENT:     "comment",
		ENVIRONMENT: "environment",
		WHITESPACE:  "whitespace",
	}
	if typ >= numTokenTypes {
		return typeStrings[INVALID]
	}
	return typeStrings[typ]
}

// Span is a half-open byte range [Start, End) into the UTF-8 document text.
type Span struct {
	Start uint32 `json:"start" msgpack:"start"`
	End   uint32 `json:"end" msgpack:"end"`
}

// Len returns the number of bytes covered by the span.
func (s Span) Len() uint32 {
	if s.End < s.Start {
		return 0
	}
	return s.End - s.Start
}

// Contains reports whether offset falls inside the span.
func (s Span) Contains(offset uint32) bool {
	return s.Start <= offset && offset < s.End
}

// Overlaps reports whether s and other share at least one byte.
func (s Span) Overlaps(other Span) bool {
	return s.Start < other.End && other.Start < s.End
}

func (s Span) String() string {
	return fmt.Sprintf("[%d,%d)", s.Start, s.End)
}

const (
	startPrefix = `\start`
	stopPrefix  = `\stop`
)

// IsTrivia reports whether tok carries no syntactic weight.
func (tok Token) IsTrivia() bool {
	return tok.Type == WHITESPACE || tok.Type == COMMENT
}

// IsStartMarker reports whether tok opens an environment block.
func (tok Token) IsStartMarker() bool {
	return tok.Type == ENVIRONMENT && strings.HasPrefix(tok.Text, startPrefix)
}

// IsStopMarker reports whether tok closes an environment block.
func (tok Token) IsStopMarker() bool {
	return tok.Type == ENVIRONMENT && strings.HasPrefix(tok.Text, stopPrefix)
}

// EnvName returns the environment family of a start or stop marker.  The
// bare \start and \stop pair has the empty name.
func (tok Token) EnvName() string {
	switch {
	case tok.IsStartMarker():
		return tok.Text[len(startPrefix):]
	case tok.IsStopMarker():
		return tok.Text[len(stopPrefix):]
	}
	return ""
}

// IsGroupOpen reports whether tok is the '{' opening an argument group.
func (tok Token) IsGroupOpen() bool {
	return tok.Type == OPTION && tok.Text == "{"
}

// IsGroupClose reports whether tok is the '}' closing an argument group.
func (tok Token) IsGroupClose() bool {
	return tok.Type == OPTION && tok.Text == "}"
}

// IsOptionList reports whether tok is a bracket or parenthesis delimited
// option list, terminated or not.
func (tok Token) IsOptionList() bool {
	return tok.Type == OPTION && len(tok.Text) > 0 && (tok.Text[0] == '[' || tok.Text[0] == '(')
}

// IsUnterminated reports whether tok is an option list missing its closing
// delimiter.
func (tok Token) IsUnterminated() bool {
	if !tok.IsOptionList() {
		return false
	}
	last := tok.Text[len(tok.Text)-1]
	return len(tok.Text) == 1 || (tok.Text[0] == '[' && last != ']') || (tok.Text[0] == '(' && last != ')')
}

// Location is a human oriented position in a document.
type Location struct {
	File string // a name representing the source document
	Pos  int    // byte offset
	Line int    // line number (starting at 1 when tracked)
	Col  int    // line column number in bytes (starting at 1 when tracked)
}

func (loc *Location) String() string {
	switch {
	case loc.Pos < 0:
		return loc.File
	case loc.Line == 0:
		return fmt.Sprintf("%s[%d]", loc.File, loc.Pos)
	case loc.Col == 0:
		return fmt.Sprintf("%s:%d", loc.File, loc.Line)
	default:
		return fmt.Sprintf("%s:%d:%d", loc.File, loc.Line, loc.Col)
	}
}

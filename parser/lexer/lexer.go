// Copyright © 2018 The ELPS authors

// Package lexer converts document text into a flat, lossless sequence of
// classified tokens.
//
// Recognized constructs, in order of precedence when two rules match the
// same text:
//
//	environment  \start<letters> | \stop<letters>
//	keyword      \<letters> where letters is a reserved word
//	command      \<letters> | \<one non-letter rune>
//	option       [ ... ] | ( ... ) directly after a command or option | { | }
//	comment      % up to the end of the line
//	whitespace   a run of spaces, tabs, and line breaks
//	text         a run of anything else
//
// Control characters, invalid UTF-8, and a backslash at the end of input
// become error tokens.
package lexer

import (
	"unicode"

	"github.com/luthersystems/ctxengine/parser/token"
)

// keywords are the reserved control words.  They are structural primitives
// of the macro language rather than ordinary typesetting commands.
var keywords = map[string]bool{
	"def": true, "edef": true, "gdef": true, "xdef": true, "let": true,
	"global": true, "long": true, "protected": true, "relax": true,
	"if": true, "ifx": true, "ifnum": true, "ifdim": true, "ifcase": true,
	"else": true, "or": true, "fi": true,
	"expandafter": true, "noexpand": true, "unexpanded": true,
	"begingroup": true, "endgroup": true, "bgroup": true, "egroup": true,
	"input": true, "usemodule": true,
	"environment": true, "component": true, "product": true, "project": true,
}

// IsKeyword reports whether name, without its leading backslash, is a
// reserved control word.
func IsKeyword(name string) bool {
	return keywords[name]
}

type lexFn func(*Lexer) token.Token

type Lexer struct {
	scanner *token.Scanner
	lex     lexFn
	prev    token.Type
}

func New(s *token.Scanner) *Lexer {
	return &Lexer{
		scanner: s,
		lex:     (*Lexer).readToken,
		prev:    token.INVALID,
	}
}

// Tokenize lexes text completely.  It never fails; concatenating the Text of
// the returned tokens reproduces text exactly.
func Tokenize(text string) []token.Token {
	lex := New(token.NewScanner(text))
	var toks []token.Token
	for {
		tok, ok := lex.ReadToken()
		if !ok {
			return toks
		}
		toks = append(toks, tok)
	}
}

// ReadToken returns the next token.  The boolean is false at the end of
// input.
func (lex *Lexer) ReadToken() (token.Token, bool) {
	if lex.scanner.EOF() {
		return token.Token{}, false
	}
	tok := lex.lex(lex)
	lex.prev = tok.Type
	if tok.Type == token.OPTION && !tok.IsOptionList() {
		// Braces do not license a following parenthesized option list.
		lex.prev = token.TEXT
	}
	return tok, true
}

func (lex *Lexer) readToken() token.Token {
	c, _ := lex.scanner.Peek()
	switch {
	case isInvalid(c):
		lex.scanner.AcceptSeq(isInvalid)
		return lex.scanner.EmitToken(token.ERROR)
	case isSpace(c):
		lex.scanner.AcceptSeq(isSpace)
		return lex.scanner.EmitToken(token.WHITESPACE)
	}
	switch c {
	case '\\':
		return lex.readControl()
	case '%':
		lex.scanner.AcceptSeq(func(c rune) bool { return c != '\n' })
		return lex.scanner.EmitToken(token.COMMENT)
	case '{', '}':
		lex.scanner.ScanRune()
		return lex.scanner.EmitToken(token.OPTION)
	case '[':
		return lex.readOptionList(']')
	case '(':
		if lex.prev == token.COMMAND || lex.prev == token.KEYWORD || lex.prev == token.ENVIRONMENT || lex.prev == token.OPTION {
			lex.scanner.ScanRune()
			if lex.scanner.AcceptUntil(')') {
				return lex.scanner.EmitToken(token.OPTION)
			}
			// An unclosed parenthesis is ordinary text.
			lex.scanner.AcceptSeq(isText)
			return lex.scanner.EmitToken(token.TEXT)
		}
	}
	lex.scanner.ScanRune()
	lex.scanner.AcceptSeq(isText)
	return lex.scanner.EmitToken(token.TEXT)
}

func (lex *Lexer) readOptionList(close rune) token.Token {
	lex.scanner.ScanRune()
	// A missing close delimiter yields the lone opener which the parser
	// reports as an unterminated option group.
	lex.scanner.AcceptUntil(close)
	return lex.scanner.EmitToken(token.OPTION)
}

func (lex *Lexer) readControl() token.Token {
	lex.scanner.ScanRune() // backslash
	if lex.scanner.AcceptSeq(isLetter) == 0 {
		c, n := lex.scanner.Peek()
		if n == 0 || isInvalid(c) {
			return lex.scanner.EmitToken(token.ERROR)
		}
		// control symbol such as \\ or \%
		lex.scanner.ScanRune()
		return lex.scanner.EmitToken(token.COMMAND)
	}
	text := lex.scanner.Text()
	name := text[1:]
	switch {
	case hasPrefix(name, "start"), hasPrefix(name, "stop"):
		return lex.scanner.EmitToken(token.ENVIRONMENT)
	case keywords[name]:
		return lex.scanner.EmitToken(token.KEYWORD)
	default:
		return lex.scanner.EmitToken(token.COMMAND)
	}
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

// isLetter matches the letters permitted in control word names.
func isLetter(c rune) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func isSpace(c rune) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\f', '\v':
		return true
	}
	return false
}

// isInvalid matches control characters and bytes which are not valid UTF-8.
func isInvalid(c rune) bool {
	return c == token.InvalidRune || (!isSpace(c) && unicode.IsControl(c))
}

func isText(c rune) bool {
	if isSpace(c) || isInvalid(c) {
		return false
	}
	switch c {
	case '\\', '%', '{', '}', '[':
		return false
	}
	return true
}

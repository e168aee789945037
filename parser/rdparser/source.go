// Copyright © 2018 The ELPS authors

package rdparser

import (
	"github.com/luthersystems/ctxengine/parser/token"
)

// TokenSource adds "memory" to a fully lexed token sequence and provides
// methods to process and look ahead in it.
type TokenSource struct {
	toks  []token.Token
	pos   int
	Token token.Token // the last token scanned
}

// NewTokenSource returns a TokenSource positioned at the first of toks.
func NewTokenSource(toks []token.Token) *TokenSource {
	return &TokenSource{toks: toks}
}

// Peek returns the next token.  The boolean is false at the end of input.
func (s *TokenSource) Peek() (token.Token, bool) {
	return s.PeekAt(0)
}

// PeekAt returns the token i positions past the next one.
func (s *TokenSource) PeekAt(i int) (token.Token, bool) {
	if s.pos+i >= len(s.toks) {
		return token.Token{}, false
	}
	return s.toks[s.pos+i], true
}

// Accept scans the next token if fn returns true for it.
func (s *TokenSource) Accept(fn func(token.Token) bool) bool {
	tok, ok := s.Peek()
	if ok && fn(tok) {
		s.scan()
		return true
	}
	return false
}

// Scan advances to the next token.  It returns false at the end of input.
func (s *TokenSource) Scan() bool {
	if s.IsEOF() {
		return false
	}
	s.scan()
	return true
}

func (s *TokenSource) IsEOF() bool {
	return s.pos >= len(s.toks)
}

func (s *TokenSource) scan() {
	s.Token = s.toks[s.pos]
	s.pos++
}
